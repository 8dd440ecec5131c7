package repositories

import (
	"context"

	"github.com/adcatlas/curation-backend/internal/domain/entities"
)

// CurationRecordRepository defines the interface for curation record data operations
type CurationRecordRepository interface {
	// Create inserts a new record at version 1
	Create(ctx context.Context, record *entities.CurationRecord) error

	// GetByID retrieves a record by ID
	GetByID(ctx context.Context, id string) (*entities.CurationRecord, error)

	// List retrieves records with filters
	List(ctx context.Context, filter RecordFilter) ([]*entities.CurationRecord, error)

	// Update persists fields, lifecycle state, lock, evidence refs and promoted_at
	// when the stored version still equals record.Version, then increments
	// record.Version. A stale version yields a ConflictError, a missing row NotFound.
	Update(ctx context.Context, record *entities.CurationRecord) error
}

// RecordFilter defines filters for listing records
type RecordFilter struct {
	State  entities.LifecycleState
	Kind   string
	Limit  int
	Offset int
}
