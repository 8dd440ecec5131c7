package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/adcatlas/curation-backend/internal/domain/entities"
	"github.com/adcatlas/curation-backend/internal/domain/repositories"
	apperrors "github.com/adcatlas/curation-backend/pkg/errors"
)

type recordRepo Store

func (r *recordRepo) store() *Store { return (*Store)(r) }

// Create inserts a new record at version 1
func (r *recordRepo) Create(ctx context.Context, record *entities.CurationRecord) error {
	return r.store().do(ctx, func(st *memoryState, now time.Time) error {
		if _, exists := st.records[record.ID]; exists {
			return apperrors.NewConflictError(fmt.Sprintf("record %s already exists", record.ID)).WithID(record.ID)
		}
		if record.CreatedAt.IsZero() {
			record.CreatedAt = now
		}
		record.UpdatedAt = record.CreatedAt
		record.Version = 1
		if record.Fields == nil {
			record.Fields = entities.Fields{}
		}
		st.records[record.ID] = record.Clone()
		return nil
	})
}

// GetByID retrieves a record by ID
func (r *recordRepo) GetByID(ctx context.Context, id string) (*entities.CurationRecord, error) {
	var out *entities.CurationRecord
	err := r.store().do(ctx, func(st *memoryState, _ time.Time) error {
		rec, ok := st.records[id]
		if !ok {
			return apperrors.NewNotFoundError(fmt.Sprintf("record with id %s not found", id)).WithID(id)
		}
		out = rec.Clone()
		return nil
	})
	return out, err
}

// List retrieves records with filters, oldest first
func (r *recordRepo) List(ctx context.Context, filter repositories.RecordFilter) ([]*entities.CurationRecord, error) {
	var out []*entities.CurationRecord
	err := r.store().do(ctx, func(st *memoryState, _ time.Time) error {
		for _, rec := range st.records {
			if filter.State != "" && rec.LifecycleState != filter.State {
				continue
			}
			if filter.Kind != "" && rec.Kind != filter.Kind {
				continue
			}
			out = append(out, rec.Clone())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortByCreated(out,
		func(r *entities.CurationRecord) time.Time { return r.CreatedAt },
		func(r *entities.CurationRecord) string { return r.ID },
		false)
	return page(out, filter.Limit, filter.Offset), nil
}

// Update writes the record when its version matches the stored one
func (r *recordRepo) Update(ctx context.Context, record *entities.CurationRecord) error {
	return r.store().do(ctx, func(st *memoryState, now time.Time) error {
		current, ok := st.records[record.ID]
		if !ok {
			return apperrors.NewNotFoundError(fmt.Sprintf("record with id %s not found", record.ID)).WithID(record.ID)
		}
		if current.Version != record.Version {
			return apperrors.NewConflictError(fmt.Sprintf(
				"record %s was modified concurrently (expected version %d, found %d)",
				record.ID, record.Version, current.Version)).WithID(record.ID)
		}
		record.Version++
		record.UpdatedAt = now
		record.CreatedAt = current.CreatedAt
		st.records[record.ID] = record.Clone()
		return nil
	})
}
