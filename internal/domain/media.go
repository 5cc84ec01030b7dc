package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// MediaType classifies a product media item
type MediaType string

const (
	MediaTypeImage     MediaType = "image"
	MediaTypeVideo     MediaType = "video"
	MediaTypeThumbnail MediaType = "thumbnail"
)

// Media is an uploaded image or video attached to a product
type Media struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"product_id"`
	URL       string    `json:"url"`
	Type      MediaType `json:"type"`
	FileName  *string   `json:"file_name,omitempty"`
	FileSize  *int64    `json:"file_size,omitempty"`
	Width     *int      `json:"width,omitempty"`
	Height    *int      `json:"height,omitempty"`
	Duration  *float64  `json:"duration,omitempty"`
	SortOrder int       `json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
}

// GetValidMediaTypes lists the media types the store accepts
func GetValidMediaTypes() []MediaType {
	return []MediaType{MediaTypeImage, MediaTypeVideo, MediaTypeThumbnail}
}

// IsValid reports whether t is a known media type
func (t MediaType) IsValid() bool {
	for _, valid := range GetValidMediaTypes() {
		if t == valid {
			return true
		}
	}
	return false
}

// GetMediaTypeConstraintSQL generates the CHECK constraint for product_media.type
func GetMediaTypeConstraintSQL() string {
	types := GetValidMediaTypes()
	quoted := make([]string, len(types))
	for i, t := range types {
		quoted[i] = "'" + string(t) + "'"
	}
	return "CHECK (type IN (" + strings.Join(quoted, ", ") + "))"
}
