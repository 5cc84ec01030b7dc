// Package storage validates and stores uploaded product media.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/google/uuid"

	"shopple/internal/domain"
)

// Upload limits
const (
	MaxImageSize = 5 * 1024 * 1024
	MaxVideoSize = 100 * 1024 * 1024
)

// VideoThumbnail is attached to uploaded videos until real thumbnails exist
const VideoThumbnail = "/placeholder.svg?height=160&width=160&text=Video"

var (
	allowedImageTypes = []string{"image/jpeg", "image/png", "image/webp", "image/gif"}
	allowedVideoTypes = []string{"video/mp4", "video/webm", "video/quicktime", "video/x-msvideo"}
)

var (
	ErrInvalidType = errors.New("invalid media type")
	ErrTooLarge    = errors.New("file too large")
	ErrForeignURL  = errors.New("url does not belong to this store")
)

// ValidationError carries the message shown to the uploader
type ValidationError struct {
	Err     error
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return e.Err }

// Store persists objects and returns the URL they are served from
type Store interface {
	Put(ctx context.Context, key, contentType string, r io.Reader) (string, error)
	Delete(ctx context.Context, publicURL string) error
}

// Validate checks the content type and size of an upload of the given kind
func Validate(kind domain.MediaType, contentType string, size int64) error {
	contentType = baseType(contentType)

	switch kind {
	case domain.MediaTypeImage:
		if !contains(allowedImageTypes, contentType) {
			return &ValidationError{ErrInvalidType, "Invalid image type. Allowed types: JPEG, PNG, WebP, GIF"}
		}
		if size > MaxImageSize {
			return &ValidationError{ErrTooLarge, "File size exceeds the 5MB limit"}
		}
	case domain.MediaTypeVideo:
		if !contains(allowedVideoTypes, contentType) {
			return &ValidationError{ErrInvalidType, "Invalid video type. Allowed types: MP4, WebM, QuickTime, AVI"}
		}
		if size > MaxVideoSize {
			return &ValidationError{ErrTooLarge, "File size exceeds the 100MB limit"}
		}
	default:
		return &ValidationError{ErrInvalidType, fmt.Sprintf("Unsupported upload kind %q", kind)}
	}
	return nil
}

// ObjectKey names an upload "<userID>/<uuid>.<ext>". The extension comes from
// the original file name, or from the content type when the name has none.
func ObjectKey(userID uuid.UUID, fileName, contentType string) string {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(fileName)), ".")
	if ext == "" {
		if exts, _ := mime.ExtensionsByType(baseType(contentType)); len(exts) > 0 {
			ext = strings.TrimPrefix(exts[0], ".")
		}
	}
	if ext == "" {
		ext = "bin"
	}
	return fmt.Sprintf("%s/%s.%s", userID, uuid.New(), ext)
}

// Upload describes a stored file
type Upload struct {
	URL          string           `json:"url"`
	Type         domain.MediaType `json:"type"`
	ThumbnailURL string           `json:"thumbnail_url,omitempty"`
	FileName     string           `json:"file_name"`
	FileSize     int64            `json:"file_size"`
}

// Save validates and stores one uploaded file for userID
func Save(ctx context.Context, store Store, userID uuid.UUID, kind domain.MediaType, fileName, contentType string, size int64, r io.Reader) (*Upload, error) {
	if err := Validate(kind, contentType, size); err != nil {
		return nil, err
	}

	url, err := store.Put(ctx, ObjectKey(userID, fileName, contentType), baseType(contentType), r)
	if err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	up := &Upload{
		URL:      url,
		Type:     kind,
		FileName: fileName,
		FileSize: size,
	}
	if kind == domain.MediaTypeVideo {
		up.ThumbnailURL = VideoThumbnail
	}
	return up, nil
}

func baseType(contentType string) string {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		return mediaType
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
