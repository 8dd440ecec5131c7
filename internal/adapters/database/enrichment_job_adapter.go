package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/adcatlas/curation-backend/internal/domain/entities"
	"github.com/adcatlas/curation-backend/internal/domain/repositories"
	"github.com/adcatlas/curation-backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/adcatlas/curation-backend/pkg/errors"
)

const jobsTable = "enrichment_jobs"

var jobColumns = []any{
	"id", "record_id", "status", "proposed", "applied_items", "error", "created_at", "completed_at", "applied_at",
}

// EnrichmentJobAdapter implements EnrichmentJobRepository
type EnrichmentJobAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewEnrichmentJobAdapter creates a new enrichment job adapter
func NewEnrichmentJobAdapter(client *postgres.Client) repositories.EnrichmentJobRepository {
	return &EnrichmentJobAdapter{
		client: client,
		db:     newDialect(client),
	}
}

// Create inserts a job
func (a *EnrichmentJobAdapter) Create(ctx context.Context, job *entities.EnrichmentJob) error {
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}

	query, args, err := a.db.Insert(jobsTable).Prepared(true).Rows(a.record(job)).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := conn(ctx, a.client.DB()).ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to create enrichment job", err)
	}
	return nil
}

// GetByID retrieves a job by ID
func (a *EnrichmentJobAdapter) GetByID(ctx context.Context, id string) (*entities.EnrichmentJob, error) {
	query, args, err := a.db.From(jobsTable).Prepared(true).
		Select(jobColumns...).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build select query", err)
	}

	job := &entities.EnrichmentJob{}
	var status string
	err = conn(ctx, a.client.DB()).QueryRowContext(ctx, query, args...).Scan(
		&job.ID,
		&job.RecordID,
		&status,
		jsonb(&job.Proposed),
		jsonb(&job.AppliedItems),
		&job.Error,
		&job.CreatedAt,
		&job.CompletedAt,
		&job.AppliedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("enrichment job with id %s not found", id)).WithID(id)
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get enrichment job", err)
	}
	job.Status = entities.EnrichmentJobStatus(status)
	return job, nil
}

// Update persists job when the stored status equals expected
func (a *EnrichmentJobAdapter) Update(ctx context.Context, job *entities.EnrichmentJob, expected entities.EnrichmentJobStatus) error {
	rec := a.record(job)
	delete(rec, "id")
	delete(rec, "created_at")

	query, args, err := a.db.Update(jobsTable).Prepared(true).
		Set(rec).
		Where(goqu.Ex{"id": job.ID, "status": string(expected)}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := conn(ctx, a.client.DB()).ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to update enrichment job", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to read rows affected", err)
	}
	if affected == 0 {
		current, getErr := a.GetByID(ctx, job.ID)
		if getErr != nil {
			return getErr
		}
		return apperrors.NewConflictError(fmt.Sprintf("enrichment job %s is %s, expected %s", job.ID, current.Status, expected)).WithID(job.ID)
	}
	return nil
}

func (a *EnrichmentJobAdapter) record(job *entities.EnrichmentJob) goqu.Record {
	proposed := job.Proposed
	if proposed == nil {
		proposed = []entities.ProposedChange{}
	}
	applied := job.AppliedItems
	if applied == nil {
		applied = []entities.DiffItem{}
	}
	return goqu.Record{
		"id":            job.ID,
		"record_id":     job.RecordID,
		"status":        string(job.Status),
		"proposed":      jsonb(&proposed),
		"applied_items": jsonb(&applied),
		"error":         job.Error,
		"created_at":    job.CreatedAt,
		"completed_at":  job.CompletedAt,
		"applied_at":    job.AppliedAt,
	}
}
