package repositories

import (
	"context"

	"github.com/adcatlas/curation-backend/internal/domain/entities"
)

// ReviewRepository stores review change items
type ReviewRepository interface {
	// Create inserts a pending review item
	Create(ctx context.Context, item *entities.ReviewChangeItem) error

	// GetByID retrieves a review item by ID
	GetByID(ctx context.Context, id string) (*entities.ReviewChangeItem, error)

	// List retrieves review items sorted by creation time
	List(ctx context.Context, filter ReviewFilter) ([]*entities.ReviewChangeItem, error)

	// Resolve moves a pending item to status. Items that are no longer pending
	// yield AlreadyResolvedError, missing items NotFound.
	Resolve(ctx context.Context, id string, status entities.ReviewStatus, res entities.Resolution) (*entities.ReviewChangeItem, error)
}

// ReviewFilter defines filters for listing review items
type ReviewFilter struct {
	Status   entities.ReviewStatus
	RecordID string
	SortDesc bool
	Limit    int
	Offset   int
}
