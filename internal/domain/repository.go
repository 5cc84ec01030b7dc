package domain

import (
	"context"

	"github.com/google/uuid"
)

// ProductRepository defines the interface for catalog product operations
type ProductRepository interface {
	// List returns products, pinned first then newest
	List(ctx context.Context, filter ProductFilter) ([]*Product, error)

	// GetByID retrieves a product by its UUID
	GetByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// Create inserts a product and links its categories
	Create(ctx context.Context, product *Product) error

	// Update modifies a product; a non-nil CategoryIDs replaces its links
	Update(ctx context.Context, product *Product) error

	// Delete removes a product, scoped to the owner when userID is set
	Delete(ctx context.Context, id uuid.UUID, userID *uuid.UUID) error

	// IncrementClicks bumps the click counter
	IncrementClicks(ctx context.Context, id uuid.UUID) error

	// IncrementShares bumps the share counter
	IncrementShares(ctx context.Context, id uuid.UUID) error

	// ApplyRefresh stores freshly extracted data
	ApplyRefresh(ctx context.Context, id uuid.UUID, refresh ProductRefresh) error

	// ListForRefresh returns commissionable products, least recently refreshed first
	ListForRefresh(ctx context.Context, limit int) ([]*Product, error)

	// Stats aggregates counters, scoped to the owner when userID is set
	Stats(ctx context.Context, userID *uuid.UUID) (*ProductStats, error)
}

// CategoryRepository defines the interface for category operations
type CategoryRepository interface {
	// List returns categories with product counts in display order
	List(ctx context.Context) ([]*Category, error)

	// GetByID retrieves a category by its UUID
	GetByID(ctx context.Context, id uuid.UUID) (*Category, error)

	// GetBySlug retrieves a category by slug
	GetBySlug(ctx context.Context, slug string) (*Category, error)

	// Create inserts a category, deriving the slug from the name when empty
	Create(ctx context.Context, category *Category) error

	// Update modifies a category
	Update(ctx context.Context, category *Category) error

	// Delete removes a category; the default category cannot be deleted
	Delete(ctx context.Context, id uuid.UUID) error

	// Reorder sets display_order to each id's position
	Reorder(ctx context.Context, ids []uuid.UUID) error
}

// UserRepository defines the interface for profile operations
type UserRepository interface {
	// GetByID retrieves a user by UUID
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)

	// GetByUsername retrieves a user by username
	GetByUsername(ctx context.Context, username string) (*User, error)

	// Create inserts a user; fails with ErrAlreadyExists for duplicates
	Create(ctx context.Context, user *User) error

	// UpdateProfile changes the editable profile fields
	UpdateProfile(ctx context.Context, id uuid.UUID, update ProfileUpdate) (*User, error)
}

// MediaRepository defines the interface for product media operations
type MediaRepository interface {
	// ListByProduct returns media in sort order
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]*Media, error)

	// Add appends a media item to the end of a product's list
	Add(ctx context.Context, media *Media) error

	// Reorder sets sort_order to each id's position
	Reorder(ctx context.Context, productID uuid.UUID, ids []uuid.UUID) error

	// Delete removes a media row and returns it so storage can be cleaned up
	Delete(ctx context.Context, id uuid.UUID) (*Media, error)
}

// QueueRepository defines the interface for job queue operations
type QueueRepository interface {
	// Enqueue adds a new job to the queue
	Enqueue(ctx context.Context, jobType string, payload interface{}) error

	// Dequeue retrieves the next job from the queue
	Dequeue(ctx context.Context, jobType string) (*QueueJob, error)

	// Complete marks a job as completed
	Complete(ctx context.Context, jobID string) error

	// Fail marks a job as failed with error details
	Fail(ctx context.Context, jobID string, errorMsg string) error

	// GetPendingCount returns the number of pending jobs
	GetPendingCount(ctx context.Context, jobType string) (int, error)

	// ProcessRetryJobs moves due retries back onto the queue
	ProcessRetryJobs(ctx context.Context, jobType string) error

	// GetQueueStats returns counters and current queue lengths
	GetQueueStats(ctx context.Context, jobType string) (map[string]int64, error)
}

// QueueJob represents a job in the processing queue
type QueueJob struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Payload   map[string]interface{} `json:"payload"`
	Status    string                 `json:"status"`
	CreatedAt string                 `json:"created_at"`
	UpdatedAt *string                `json:"updated_at"`
}

// RefreshPayload is the payload of a refresh_product job
type RefreshPayload struct {
	ProductID string `json:"product_id"`
	URL       string `json:"url"`
}

// Job types
const (
	JobTypeRefreshProduct = "refresh_product"
)

// Job statuses
const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)
