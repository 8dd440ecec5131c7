package repositories

import (
	"context"

	"github.com/adcatlas/curation-backend/internal/domain/entities"
)

// StagingRepository stores staging components awaiting catalog promotion
type StagingRepository interface {
	// Create inserts a pending component
	Create(ctx context.Context, component *entities.StagingComponent) error

	// GetByID retrieves a component by ID
	GetByID(ctx context.Context, id string) (*entities.StagingComponent, error)

	// List retrieves components with filters, oldest first
	List(ctx context.Context, filter StagingFilter) ([]*entities.StagingComponent, error)

	// Resolve moves a pending component to status. Components that are no
	// longer pending yield AlreadyResolvedError, missing ones NotFound.
	Resolve(ctx context.Context, id string, status entities.StagingStatus, res entities.Resolution) (*entities.StagingComponent, error)
}

// StagingFilter defines filters for listing staging components
type StagingFilter struct {
	Status entities.StagingStatus
	Type   entities.ComponentType
	Limit  int
	Offset int
}
