package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"shopple/internal/domain"
	"shopple/internal/storage"
)

const multipartMemory = 32 << 20

// MediaHandler uploads files and manages the media attached to products
type MediaHandler struct {
	logger   *slog.Logger
	products domain.ProductRepository
	media    domain.MediaRepository
	store    storage.Store
}

func NewMediaHandler(logger *slog.Logger, products domain.ProductRepository, media domain.MediaRepository, store storage.Store) *MediaHandler {
	return &MediaHandler{
		logger:   logger,
		products: products,
		media:    media,
		store:    store,
	}
}

// UploadFile handles POST /api/admin/uploads. The multipart form carries a
// "file" part and an optional "kind" of image (default) or video.
func (h *MediaHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	userID, ok := sessionUser(w, r)
	if !ok {
		return
	}

	upload, ok := h.receive(w, r, userID)
	if !ok {
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, upload)
}

// ListMedia handles GET /api/admin/products/{id}/media
func (h *MediaHandler) ListMedia(w http.ResponseWriter, r *http.Request) {
	product, _, ok := h.ownedProduct(w, r)
	if !ok {
		return
	}

	items, err := h.media.ListByProduct(r.Context(), product.ID)
	if err != nil {
		writeFailure(w, h.logger, err, "list media")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]interface{}{"media": items})
}

// MediaResponse is a stored upload and the media row created for it
type MediaResponse struct {
	Media  *domain.Media   `json:"media"`
	Upload *storage.Upload `json:"upload"`
}

// AddMedia handles POST /api/admin/products/{id}/media. The file is stored
// first and attached to the end of the product's media list.
func (h *MediaHandler) AddMedia(w http.ResponseWriter, r *http.Request) {
	product, userID, ok := h.ownedProduct(w, r)
	if !ok {
		return
	}

	upload, ok := h.receive(w, r, userID)
	if !ok {
		return
	}

	item := &domain.Media{
		ProductID: product.ID,
		URL:       upload.URL,
		Type:      upload.Type,
		FileName:  &upload.FileName,
		FileSize:  &upload.FileSize,
	}
	if err := h.media.Add(r.Context(), item); err != nil {
		h.discard(r, upload.URL)
		writeFailure(w, h.logger, err, "attach media")
		return
	}

	h.logger.Info("Media attached", "product_id", product.ID, "media_id", item.ID, "type", item.Type)
	writeJSON(w, h.logger, http.StatusCreated, MediaResponse{Media: item, Upload: upload})
}

// ReorderMedia handles PUT /api/admin/products/{id}/media/order
func (h *MediaHandler) ReorderMedia(w http.ResponseWriter, r *http.Request) {
	product, _, ok := h.ownedProduct(w, r)
	if !ok {
		return
	}

	var req ReorderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "ids is required")
		return
	}

	if err := h.media.Reorder(r.Context(), product.ID, req.IDs); err != nil {
		writeFailure(w, h.logger, err, "reorder media")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteMedia handles DELETE /api/admin/media/{id}. The stored file is
// removed after the row; a failed file removal is only logged.
func (h *MediaHandler) DeleteMedia(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	item, err := h.media.Delete(r.Context(), id)
	if err != nil {
		writeFailure(w, h.logger, err, "delete media")
		return
	}
	h.discard(r, item.URL)

	w.WriteHeader(http.StatusNoContent)
}

func (h *MediaHandler) receive(w http.ResponseWriter, r *http.Request, userID uuid.UUID) (*storage.Upload, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, storage.MaxVideoSize+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "File too large")
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return nil, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return nil, false
	}
	defer file.Close()

	kind := domain.MediaType(r.FormValue("kind"))
	if kind == "" {
		kind = domain.MediaTypeImage
	}
	if kind != domain.MediaTypeImage && kind != domain.MediaTypeVideo {
		writeError(w, http.StatusBadRequest, "kind must be image or video")
		return nil, false
	}

	upload, err := storage.Save(r.Context(), h.store, userID, kind,
		header.Filename, header.Header.Get("Content-Type"), header.Size, file)
	if err != nil {
		writeFailure(w, h.logger, err, "store upload")
		return nil, false
	}

	h.logger.Info("File uploaded", "user_id", userID, "url", upload.URL, "size", upload.FileSize)
	return upload, true
}

func (h *MediaHandler) discard(r *http.Request, url string) {
	if url == storage.VideoThumbnail {
		return
	}
	if err := h.store.Delete(r.Context(), url); err != nil {
		h.logger.Warn("Failed to delete stored file", "url", url, "error", err)
	}
}

func (h *MediaHandler) ownedProduct(w http.ResponseWriter, r *http.Request) (*domain.Product, uuid.UUID, bool) {
	userID, ok := sessionUser(w, r)
	if !ok {
		return nil, uuid.Nil, false
	}
	id, ok := pathID(w, r)
	if !ok {
		return nil, uuid.Nil, false
	}

	product, err := h.products.GetByID(r.Context(), id)
	if err != nil {
		writeFailure(w, h.logger, err, "get product")
		return nil, uuid.Nil, false
	}
	if !ownedBy(product, userID) {
		writeError(w, http.StatusNotFound, "Not found")
		return nil, uuid.Nil, false
	}
	return product, userID, true
}
