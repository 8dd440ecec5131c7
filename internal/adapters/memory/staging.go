package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/adcatlas/curation-backend/internal/domain/entities"
	"github.com/adcatlas/curation-backend/internal/domain/repositories"
	apperrors "github.com/adcatlas/curation-backend/pkg/errors"
)

type stagingRepo Store

func cloneComponent(c *entities.StagingComponent) *entities.StagingComponent {
	cp := *c
	cp.Properties = c.Properties.Clone()
	return &cp
}

// Create inserts a staging component
func (r *stagingRepo) Create(ctx context.Context, component *entities.StagingComponent) error {
	return (*Store)(r).do(ctx, func(st *memoryState, now time.Time) error {
		if _, exists := st.staging[component.ID]; exists {
			return apperrors.NewConflictError(fmt.Sprintf("staging component %s already exists", component.ID)).WithID(component.ID)
		}
		if component.CreatedAt.IsZero() {
			component.CreatedAt = now
		}
		st.staging[component.ID] = cloneComponent(component)
		return nil
	})
}

// GetByID retrieves a staging component by ID
func (r *stagingRepo) GetByID(ctx context.Context, id string) (*entities.StagingComponent, error) {
	var out *entities.StagingComponent
	err := (*Store)(r).do(ctx, func(st *memoryState, _ time.Time) error {
		c, ok := st.staging[id]
		if !ok {
			return apperrors.NewNotFoundError(fmt.Sprintf("staging component with id %s not found", id)).WithID(id)
		}
		out = cloneComponent(c)
		return nil
	})
	return out, err
}

// List retrieves staging components with filters, oldest first
func (r *stagingRepo) List(ctx context.Context, filter repositories.StagingFilter) ([]*entities.StagingComponent, error) {
	var out []*entities.StagingComponent
	err := (*Store)(r).do(ctx, func(st *memoryState, _ time.Time) error {
		for _, c := range st.staging {
			if filter.Status != "" && c.Status != filter.Status {
				continue
			}
			if filter.Type != "" && c.Type != filter.Type {
				continue
			}
			out = append(out, cloneComponent(c))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortByCreated(out,
		func(c *entities.StagingComponent) time.Time { return c.CreatedAt },
		func(c *entities.StagingComponent) string { return c.ID },
		false)
	return page(out, filter.Limit, filter.Offset), nil
}

// Resolve moves a pending component to status
func (r *stagingRepo) Resolve(ctx context.Context, id string, status entities.StagingStatus, res entities.Resolution) (*entities.StagingComponent, error) {
	var out *entities.StagingComponent
	err := (*Store)(r).do(ctx, func(st *memoryState, now time.Time) error {
		c, ok := st.staging[id]
		if !ok {
			return apperrors.NewNotFoundError(fmt.Sprintf("staging component with id %s not found", id)).WithID(id)
		}
		if c.Status != entities.StagingPending {
			return apperrors.NewAlreadyResolvedError(fmt.Sprintf("staging component %s is already %s", id, c.Status)).WithID(id)
		}
		reviewedAt := res.ResolvedAt
		if reviewedAt.IsZero() {
			reviewedAt = now
		}
		cp := cloneComponent(c)
		cp.Status = status
		cp.ReviewNote = res.Comment
		if res.ReviewedBy != "" {
			cp.ReviewedBy = &res.ReviewedBy
		}
		cp.ReviewedAt = &reviewedAt
		st.staging[id] = cp
		out = cloneComponent(cp)
		return nil
	})
	return out, err
}
