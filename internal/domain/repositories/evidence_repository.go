package repositories

import (
	"context"

	"github.com/adcatlas/curation-backend/internal/domain/entities"
)

// EvidenceRepository stores append-only evidence items
type EvidenceRepository interface {
	// Create inserts an evidence item
	Create(ctx context.Context, item *entities.EvidenceItem) error

	// GetByID retrieves an evidence item by ID
	GetByID(ctx context.Context, id string) (*entities.EvidenceItem, error)

	// GetByIDs retrieves the evidence items that exist among ids; missing ids are omitted
	GetByIDs(ctx context.Context, ids []string) ([]*entities.EvidenceItem, error)
}
