package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/adcatlas/curation-backend/internal/domain/entities"
	"github.com/adcatlas/curation-backend/internal/domain/repositories"
	"github.com/adcatlas/curation-backend/internal/infrastructure/observability"
	apperrors "github.com/adcatlas/curation-backend/pkg/errors"
)

// EnrichmentService tracks diff preview jobs: an external enrichment run is
// registered as pending, reports its proposals, and a reviewer applies a selection.
type EnrichmentService struct {
	tx      repositories.TxManager
	jobs    repositories.EnrichmentJobRepository
	records repositories.CurationRecordRepository
	diff    *DiffEngine
	now     func() time.Time
}

// NewEnrichmentService creates a new enrichment service
func NewEnrichmentService(
	tx repositories.TxManager,
	jobs repositories.EnrichmentJobRepository,
	records repositories.CurationRecordRepository,
	diff *DiffEngine,
) *EnrichmentService {
	return &EnrichmentService{
		tx:      tx,
		jobs:    jobs,
		records: records,
		diff:    diff,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// RegisterJobInput identifies the run and the record it enriches
type RegisterJobInput struct {
	JobID    string `json:"job_id,omitempty"`
	RecordID string `json:"record_id"`
}

// RegisterJob stores a pending job for an existing record
func (s *EnrichmentService) RegisterJob(ctx context.Context, in RegisterJobInput) (*entities.EnrichmentJob, error) {
	if strings.TrimSpace(in.RecordID) == "" {
		return nil, apperrors.NewValidationError("record_id is required")
	}
	if _, err := s.records.GetByID(ctx, in.RecordID); err != nil {
		return nil, err
	}
	job := &entities.EnrichmentJob{
		ID:       strings.TrimSpace(in.JobID),
		RecordID: in.RecordID,
		Status:   entities.EnrichmentPending,
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, err
	}
	observability.LoggerFromContext(ctx).Info().Str("job_id", job.ID).Str("record_id", job.RecordID).Msg("registered enrichment job")
	return job, nil
}

// GetJob returns one job
func (s *EnrichmentService) GetJob(ctx context.Context, jobID string) (*entities.EnrichmentJob, error) {
	return s.jobs.GetByID(ctx, jobID)
}

// CompleteJob stores the proposals of a finished run and marks the job ready.
// Re-delivering the same proposals is a no-op; different proposals for a
// completed job are a conflict.
func (s *EnrichmentService) CompleteJob(ctx context.Context, jobID string, proposed []entities.ProposedChange) (*entities.EnrichmentJob, error) {
	if err := entities.ValidateProposed(proposed); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}

	switch job.Status {
	case entities.EnrichmentPending:
	case entities.EnrichmentReady, entities.EnrichmentApplied:
		if sameProposals(job.Proposed, proposed) {
			return job, nil
		}
		return nil, apperrors.NewConflictError(fmt.Sprintf("job %s already completed with different proposals", jobID)).WithID(jobID)
	default:
		return nil, apperrors.NewConflictError(fmt.Sprintf("job %s is %s", jobID, job.Status)).WithID(jobID)
	}

	now := s.now()
	job.Status = entities.EnrichmentReady
	job.Proposed = proposed
	job.CompletedAt = &now
	if err := s.jobs.Update(ctx, job, entities.EnrichmentPending); err != nil {
		if apperrors.IsConflict(err) {
			// a concurrent delivery won; report its outcome
			return s.CompleteJob(ctx, jobID, proposed)
		}
		return nil, err
	}
	observability.LoggerFromContext(ctx).Info().Str("job_id", job.ID).Int("proposed", len(proposed)).Msg("enrichment job ready")
	return job, nil
}

// FailJob records that the run failed. Failing a failed job again is a no-op.
func (s *EnrichmentService) FailJob(ctx context.Context, jobID, reason string) (*entities.EnrichmentJob, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	switch job.Status {
	case entities.EnrichmentFailed:
		return job, nil
	case entities.EnrichmentPending:
	default:
		return nil, apperrors.NewConflictError(fmt.Sprintf("job %s is %s and cannot fail", jobID, job.Status)).WithID(jobID)
	}

	now := s.now()
	job.Status = entities.EnrichmentFailed
	job.Error = reason
	job.CompletedAt = &now
	if err := s.jobs.Update(ctx, job, entities.EnrichmentPending); err != nil {
		return nil, err
	}
	observability.LoggerFromContext(ctx).Warn().Str("job_id", job.ID).Str("reason", reason).Msg("enrichment job failed")
	return job, nil
}

// GetDiff renders the job's proposals. Ready jobs are diffed against the
// current record; applied jobs return the snapshot taken at apply time.
func (s *EnrichmentService) GetDiff(ctx context.Context, jobID string) (*entities.DiffView, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	view := &entities.DiffView{
		JobID:    job.ID,
		RecordID: job.RecordID,
		Status:   job.Status,
		Items:    []entities.DiffItem{},
	}

	switch job.Status {
	case entities.EnrichmentReady:
		record, err := s.records.GetByID(ctx, job.RecordID)
		if err != nil {
			return nil, err
		}
		view.Items = s.diff.ComputeDiff(record, job.Proposed)
	case entities.EnrichmentApplied:
		if job.AppliedItems != nil {
			view.Items = job.AppliedItems
		}
	}
	for _, item := range view.Items {
		if item.Changed {
			view.Changed++
		}
	}
	return view, nil
}

// ApplyJob applies the selected fields of a ready job. The job becomes
// applied once at least one field is committed; otherwise it stays ready.
func (s *EnrichmentService) ApplyJob(ctx context.Context, jobID string, selected []string, actor entities.Actor) (*entities.ApplyResult, error) {
	if err := actor.Validate(); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != entities.EnrichmentReady {
		return nil, apperrors.NewConflictError(fmt.Sprintf("job %s is %s, not ready", jobID, job.Status)).WithID(jobID)
	}

	unlock := s.diff.locks.Lock(job.RecordID)
	defer unlock()

	var result *entities.ApplyResult
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		job, err := s.jobs.GetByID(ctx, jobID)
		if err != nil {
			return err
		}
		if job.Status != entities.EnrichmentReady {
			return apperrors.NewConflictError(fmt.Sprintf("job %s is %s, not ready", jobID, job.Status)).WithID(jobID)
		}
		record, err := s.records.GetByID(ctx, job.RecordID)
		if err != nil {
			return err
		}
		items := s.diff.ComputeDiff(record, job.Proposed)
		result, err = s.diff.applyLocked(ctx, ApplyRequest{
			RecordID:       job.RecordID,
			Items:          items,
			SelectedFields: selected,
			Actor:          actor,
		})
		if err != nil {
			return err
		}
		if result.AppliedCount == 0 {
			return nil
		}
		now := s.now()
		job.Status = entities.EnrichmentApplied
		job.AppliedItems = items
		job.AppliedAt = &now
		return s.jobs.Update(ctx, job, entities.EnrichmentReady)
	})
	if err != nil {
		return nil, err
	}

	s.diff.afterApply(ctx, actor, result)
	return result, nil
}

func sameProposals(a, b []entities.ProposedChange) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].FieldName != b[i].FieldName ||
			a[i].Confidence != b[i].Confidence ||
			a[i].Source != b[i].Source ||
			a[i].Value.Kind() != b[i].Value.Kind() ||
			!a[i].Value.Equal(b[i].Value) {
			return false
		}
	}
	return true
}
