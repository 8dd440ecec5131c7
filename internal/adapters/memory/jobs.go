package memory

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/adcatlas/curation-backend/internal/domain/entities"
	apperrors "github.com/adcatlas/curation-backend/pkg/errors"
)

type jobRepo Store

func cloneJob(j *entities.EnrichmentJob) *entities.EnrichmentJob {
	cp := *j
	cp.Proposed = slices.Clone(j.Proposed)
	cp.AppliedItems = slices.Clone(j.AppliedItems)
	return &cp
}

// Create inserts an enrichment job
func (r *jobRepo) Create(ctx context.Context, job *entities.EnrichmentJob) error {
	return (*Store)(r).do(ctx, func(st *memoryState, now time.Time) error {
		if _, exists := st.jobs[job.ID]; exists {
			return apperrors.NewConflictError(fmt.Sprintf("enrichment job %s already exists", job.ID)).WithID(job.ID)
		}
		if job.CreatedAt.IsZero() {
			job.CreatedAt = now
		}
		st.jobs[job.ID] = cloneJob(job)
		return nil
	})
}

// GetByID retrieves a job by ID
func (r *jobRepo) GetByID(ctx context.Context, id string) (*entities.EnrichmentJob, error) {
	var out *entities.EnrichmentJob
	err := (*Store)(r).do(ctx, func(st *memoryState, _ time.Time) error {
		j, ok := st.jobs[id]
		if !ok {
			return apperrors.NewNotFoundError(fmt.Sprintf("enrichment job with id %s not found", id)).WithID(id)
		}
		out = cloneJob(j)
		return nil
	})
	return out, err
}

// Update persists job when the stored status equals expected
func (r *jobRepo) Update(ctx context.Context, job *entities.EnrichmentJob, expected entities.EnrichmentJobStatus) error {
	return (*Store)(r).do(ctx, func(st *memoryState, _ time.Time) error {
		current, ok := st.jobs[job.ID]
		if !ok {
			return apperrors.NewNotFoundError(fmt.Sprintf("enrichment job with id %s not found", job.ID)).WithID(job.ID)
		}
		if current.Status != expected {
			return apperrors.NewConflictError(fmt.Sprintf("enrichment job %s is %s, expected %s", job.ID, current.Status, expected)).WithID(job.ID)
		}
		st.jobs[job.ID] = cloneJob(job)
		return nil
	})
}
