package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"shopple/internal/domain"
)

type ProfileHandler struct {
	logger *slog.Logger
	users  domain.UserRepository
}

func NewProfileHandler(logger *slog.Logger, users domain.UserRepository) *ProfileHandler {
	return &ProfileHandler{
		logger: logger,
		users:  users,
	}
}

// GetProfile handles GET /api/admin/profile
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := sessionUser(w, r)
	if !ok {
		return
	}

	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		writeFailure(w, h.logger, err, "get profile")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, user)
}

// UpdateProfile handles PUT /api/admin/profile
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := sessionUser(w, r)
	if !ok {
		return
	}

	var update domain.ProfileUpdate
	if !decodeJSON(w, r, &update) {
		return
	}
	if update.Username != nil {
		username := strings.TrimSpace(*update.Username)
		if username == "" {
			writeError(w, http.StatusBadRequest, "username cannot be empty")
			return
		}
		update.Username = &username
	}

	user, err := h.users.UpdateProfile(r.Context(), userID, update)
	if err != nil {
		writeFailure(w, h.logger, err, "update profile")
		return
	}

	h.logger.Info("Profile updated", "user_id", userID)
	writeJSON(w, h.logger, http.StatusOK, user)
}
