package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"shopple/internal/service/catalog"
)

type ExtractHandler struct {
	logger    *slog.Logger
	extractor catalog.ProductExtractor
	timeout   time.Duration
}

func NewExtractHandler(logger *slog.Logger, extractor catalog.ProductExtractor, timeout time.Duration) *ExtractHandler {
	return &ExtractHandler{
		logger:    logger,
		extractor: extractor,
		timeout:   timeout,
	}
}

// ExtractRequest is the body of POST /api/admin/extract
type ExtractRequest struct {
	URL string `json:"url"`
}

// Extract handles POST /api/admin/extract. It previews the product a link
// would import without storing it. Unreachable pages still return 200 with
// fallback data.
func (h *ExtractHandler) Extract(w http.ResponseWriter, r *http.Request) {
	var req ExtractRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	product, err := h.extractor.Extract(ctx, req.URL)
	if err != nil {
		writeFailure(w, h.logger, err, "extract product")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, product)
}
