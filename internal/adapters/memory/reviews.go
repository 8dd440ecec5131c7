package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/adcatlas/curation-backend/internal/domain/entities"
	"github.com/adcatlas/curation-backend/internal/domain/repositories"
	apperrors "github.com/adcatlas/curation-backend/pkg/errors"
)

type reviewRepo Store

// Create inserts a review item
func (r *reviewRepo) Create(ctx context.Context, item *entities.ReviewChangeItem) error {
	return (*Store)(r).do(ctx, func(st *memoryState, now time.Time) error {
		if _, exists := st.reviews[item.ID]; exists {
			return apperrors.NewConflictError(fmt.Sprintf("review item %s already exists", item.ID)).WithID(item.ID)
		}
		if item.CreatedAt.IsZero() {
			item.CreatedAt = now
		}
		cp := *item
		st.reviews[item.ID] = &cp
		return nil
	})
}

// GetByID retrieves a review item by ID
func (r *reviewRepo) GetByID(ctx context.Context, id string) (*entities.ReviewChangeItem, error) {
	var out *entities.ReviewChangeItem
	err := (*Store)(r).do(ctx, func(st *memoryState, _ time.Time) error {
		item, ok := st.reviews[id]
		if !ok {
			return apperrors.NewNotFoundError(fmt.Sprintf("review item with id %s not found", id)).WithID(id)
		}
		cp := *item
		out = &cp
		return nil
	})
	return out, err
}

// List retrieves review items sorted by creation time
func (r *reviewRepo) List(ctx context.Context, filter repositories.ReviewFilter) ([]*entities.ReviewChangeItem, error) {
	var out []*entities.ReviewChangeItem
	err := (*Store)(r).do(ctx, func(st *memoryState, _ time.Time) error {
		for _, item := range st.reviews {
			if filter.Status != "" && item.Status != filter.Status {
				continue
			}
			if filter.RecordID != "" && item.RecordID != filter.RecordID {
				continue
			}
			cp := *item
			out = append(out, &cp)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortByCreated(out,
		func(i *entities.ReviewChangeItem) time.Time { return i.CreatedAt },
		func(i *entities.ReviewChangeItem) string { return i.ID },
		filter.SortDesc)
	return page(out, filter.Limit, filter.Offset), nil
}

// Resolve moves a pending item to status
func (r *reviewRepo) Resolve(ctx context.Context, id string, status entities.ReviewStatus, res entities.Resolution) (*entities.ReviewChangeItem, error) {
	var out *entities.ReviewChangeItem
	err := (*Store)(r).do(ctx, func(st *memoryState, now time.Time) error {
		item, ok := st.reviews[id]
		if !ok {
			return apperrors.NewNotFoundError(fmt.Sprintf("review item with id %s not found", id)).WithID(id)
		}
		if item.Status != entities.ReviewPending {
			return apperrors.NewAlreadyResolvedError(fmt.Sprintf("review item %s is already %s", id, item.Status)).WithID(id)
		}
		resolvedAt := res.ResolvedAt
		if resolvedAt.IsZero() {
			resolvedAt = now
		}
		cp := *item
		cp.Status = status
		cp.ReviewComment = res.Comment
		if res.ReviewedBy != "" {
			cp.ReviewedBy = &res.ReviewedBy
		}
		cp.ResolvedAt = &resolvedAt
		st.reviews[id] = &cp
		ret := cp
		out = &ret
		return nil
	})
	return out, err
}
