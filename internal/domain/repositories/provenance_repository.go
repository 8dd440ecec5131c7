package repositories

import (
	"context"

	"github.com/adcatlas/curation-backend/internal/domain/entities"
)

// ProvenanceRepository stores field provenance rows. Rows are never updated or deleted.
type ProvenanceRepository interface {
	// Insert appends a row and returns its monotonic id
	Insert(ctx context.Context, row *entities.FieldProvenance) (int64, error)

	// ListByRecord returns every row for a record ordered by created_at then id.
	// An empty fieldName returns all fields.
	ListByRecord(ctx context.Context, recordID, fieldName string) ([]*entities.FieldProvenance, error)

	// LatestByRecord returns the authoritative row per field
	LatestByRecord(ctx context.Context, recordID string) (map[string]*entities.FieldProvenance, error)
}
