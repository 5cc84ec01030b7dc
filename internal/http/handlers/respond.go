package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"shopple/internal/auth"
	"shopple/internal/domain"
	"shopple/internal/extractor"
	"shopple/internal/storage"
)

const maxJSONBody = 1 << 20

// writeJSON writes data as a JSON response with the given status
func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

// writeError writes {"error": message}
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeFailure maps repository and validation errors onto status codes.
// Unexpected errors are logged and reported as 500.
func writeFailure(w http.ResponseWriter, logger *slog.Logger, err error, action string) {
	var validation *storage.ValidationError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, domain.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "Already exists")
	case errors.Is(err, domain.ErrDefaultCategory):
		writeError(w, http.StatusConflict, "The default category cannot be deleted")
	case errors.Is(err, extractor.ErrInvalidURL):
		writeError(w, http.StatusBadRequest, "Invalid product URL")
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, validation.Message)
	default:
		logger.Error("Failed to "+action, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// decodeJSON reads a bounded JSON body into dst
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// pathID parses the {id} path value
func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid id")
		return uuid.Nil, false
	}
	return id, true
}

// sessionUser returns the authenticated user id set by the session middleware
func sessionUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := auth.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
	}
	return id, ok
}

func ownedBy(p *domain.Product, userID uuid.UUID) bool {
	return p.UserID == nil || *p.UserID == userID
}
