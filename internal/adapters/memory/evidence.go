package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/adcatlas/curation-backend/internal/domain/entities"
	apperrors "github.com/adcatlas/curation-backend/pkg/errors"
)

type evidenceRepo Store

// Create inserts an evidence item
func (r *evidenceRepo) Create(ctx context.Context, item *entities.EvidenceItem) error {
	return (*Store)(r).do(ctx, func(st *memoryState, now time.Time) error {
		if _, exists := st.evidence[item.ID]; exists {
			return apperrors.NewConflictError(fmt.Sprintf("evidence %s already exists", item.ID)).WithID(item.ID)
		}
		if item.CreatedAt.IsZero() {
			item.CreatedAt = now
		}
		cp := *item
		st.evidence[item.ID] = &cp
		return nil
	})
}

// GetByID retrieves an evidence item by ID
func (r *evidenceRepo) GetByID(ctx context.Context, id string) (*entities.EvidenceItem, error) {
	var out *entities.EvidenceItem
	err := (*Store)(r).do(ctx, func(st *memoryState, _ time.Time) error {
		item, ok := st.evidence[id]
		if !ok {
			return apperrors.NewNotFoundError(fmt.Sprintf("evidence item with id %s not found", id)).WithID(id)
		}
		cp := *item
		out = &cp
		return nil
	})
	return out, err
}

// GetByIDs retrieves the evidence items that exist among ids, in input order
func (r *evidenceRepo) GetByIDs(ctx context.Context, ids []string) ([]*entities.EvidenceItem, error) {
	out := make([]*entities.EvidenceItem, 0, len(ids))
	err := (*Store)(r).do(ctx, func(st *memoryState, _ time.Time) error {
		for _, id := range ids {
			if item, ok := st.evidence[id]; ok {
				cp := *item
				out = append(out, &cp)
			}
		}
		return nil
	})
	return out, err
}
