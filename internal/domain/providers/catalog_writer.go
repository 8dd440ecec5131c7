package providers

import (
	"context"

	"github.com/adcatlas/curation-backend/internal/domain/entities"
)

// CatalogWriter materializes curated entities into the canonical catalog.
// The curation core only marks things approved or final; writers copy them out.
type CatalogWriter interface {
	// UpsertComponent writes an approved staging component
	UpsertComponent(ctx context.Context, component *entities.StagingComponent) error

	// UpsertRecord writes a final curation record
	UpsertRecord(ctx context.Context, record *entities.CurationRecord) error

	// Delete removes a catalog entry by id
	Delete(ctx context.Context, id string) error
}
