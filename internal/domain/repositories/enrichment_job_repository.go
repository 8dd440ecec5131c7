package repositories

import (
	"context"

	"github.com/adcatlas/curation-backend/internal/domain/entities"
)

// EnrichmentJobRepository stores diff preview jobs
type EnrichmentJobRepository interface {
	// Create inserts a job
	Create(ctx context.Context, job *entities.EnrichmentJob) error

	// GetByID retrieves a job by ID
	GetByID(ctx context.Context, id string) (*entities.EnrichmentJob, error)

	// Update persists job when its stored status equals expected; otherwise ConflictError
	Update(ctx context.Context, job *entities.EnrichmentJob, expected entities.EnrichmentJobStatus) error
}
