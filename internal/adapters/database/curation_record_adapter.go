package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/lib/pq"

	"github.com/adcatlas/curation-backend/internal/domain/entities"
	"github.com/adcatlas/curation-backend/internal/domain/repositories"
	"github.com/adcatlas/curation-backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/adcatlas/curation-backend/pkg/errors"
)

const recordsTable = "curation_records"

var recordColumns = []any{
	"id", "kind", "fields", "lifecycle_state", "verified_lock",
	"evidence_refs", "version", "created_at", "updated_at", "promoted_at",
}

// CurationRecordAdapter implements CurationRecordRepository
type CurationRecordAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewCurationRecordAdapter creates a new curation record adapter
func NewCurationRecordAdapter(client *postgres.Client) repositories.CurationRecordRepository {
	return &CurationRecordAdapter{
		client: client,
		db:     newDialect(client),
	}
}

// Create inserts a new record at version 1
func (a *CurationRecordAdapter) Create(ctx context.Context, record *entities.CurationRecord) error {
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = record.CreatedAt
	record.Version = 1
	if record.Fields == nil {
		record.Fields = entities.Fields{}
	}
	if record.EvidenceRefs == nil {
		record.EvidenceRefs = []string{}
	}

	query, args, err := a.db.Insert(recordsTable).Prepared(true).Rows(goqu.Record{
		"id":              record.ID,
		"kind":            record.Kind,
		"fields":          record.Fields,
		"lifecycle_state": string(record.LifecycleState),
		"verified_lock":   record.VerifiedLock,
		"evidence_refs":   pq.Array(record.EvidenceRefs),
		"version":         record.Version,
		"created_at":      record.CreatedAt,
		"updated_at":      record.UpdatedAt,
		"promoted_at":     record.PromotedAt,
	}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := conn(ctx, a.client.DB()).ExecContext(ctx, query, args...); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return apperrors.NewConflictError(fmt.Sprintf("record %s already exists", record.ID)).WithID(record.ID)
		}
		return apperrors.NewInternalError("failed to create curation record", err)
	}
	return nil
}

// GetByID retrieves a record by ID
func (a *CurationRecordAdapter) GetByID(ctx context.Context, id string) (*entities.CurationRecord, error) {
	query, args, err := a.db.From(recordsTable).Prepared(true).
		Select(recordColumns...).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build select query", err)
	}

	record, err := scanRecord(conn(ctx, a.client.DB()).QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("record with id %s not found", id)).WithID(id)
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get curation record", err)
	}
	return record, nil
}

// List retrieves records with filters, oldest first
func (a *CurationRecordAdapter) List(ctx context.Context, filter repositories.RecordFilter) ([]*entities.CurationRecord, error) {
	ds := a.db.From(recordsTable).Prepared(true).Select(recordColumns...)
	if filter.State != "" {
		ds = ds.Where(goqu.Ex{"lifecycle_state": string(filter.State)})
	}
	if filter.Kind != "" {
		ds = ds.Where(goqu.Ex{"kind": filter.Kind})
	}
	limit, offset := pageBounds(filter.Limit, filter.Offset)
	ds = ds.Order(goqu.I("created_at").Asc(), goqu.I("id").Asc()).Limit(limit).Offset(offset)

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	rows, err := conn(ctx, a.client.DB()).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list curation records", err)
	}
	defer rows.Close()

	records := []*entities.CurationRecord{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan curation record", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate curation records", err)
	}
	return records, nil
}

// Update writes the record with a compare-and-swap on version
func (a *CurationRecordAdapter) Update(ctx context.Context, record *entities.CurationRecord) error {
	now := time.Now().UTC()
	if record.EvidenceRefs == nil {
		record.EvidenceRefs = []string{}
	}

	query, args, err := a.db.Update(recordsTable).Prepared(true).Set(goqu.Record{
		"fields":          record.Fields,
		"lifecycle_state": string(record.LifecycleState),
		"verified_lock":   record.VerifiedLock,
		"evidence_refs":   pq.Array(record.EvidenceRefs),
		"version":         goqu.L("version + 1"),
		"updated_at":      now,
		"promoted_at":     record.PromotedAt,
	}).Where(goqu.Ex{"id": record.ID, "version": record.Version}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	db := conn(ctx, a.client.DB())
	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to update curation record", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to read rows affected", err)
	}
	if affected == 0 {
		return a.casFailure(ctx, db, record)
	}

	record.Version++
	record.UpdatedAt = now
	return nil
}

// casFailure tells a missing row apart from a stale version
func (a *CurationRecordAdapter) casFailure(ctx context.Context, db dbtx, record *entities.CurationRecord) error {
	query, args, err := a.db.From(recordsTable).Prepared(true).
		Select("version").
		Where(goqu.Ex{"id": record.ID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build version query", err)
	}
	var current int64
	err = db.QueryRowContext(ctx, query, args...).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NewNotFoundError(fmt.Sprintf("record with id %s not found", record.ID)).WithID(record.ID)
	}
	if err != nil {
		return apperrors.NewInternalError("failed to read record version", err)
	}
	return apperrors.NewConflictError(fmt.Sprintf(
		"record %s was modified concurrently (expected version %d, found %d)",
		record.ID, record.Version, current)).WithID(record.ID)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*entities.CurationRecord, error) {
	record := &entities.CurationRecord{}
	var state string
	err := row.Scan(
		&record.ID,
		&record.Kind,
		&record.Fields,
		&state,
		&record.VerifiedLock,
		pq.Array(&record.EvidenceRefs),
		&record.Version,
		&record.CreatedAt,
		&record.UpdatedAt,
		&record.PromotedAt,
	)
	if err != nil {
		return nil, err
	}
	record.LifecycleState = entities.LifecycleState(state)
	return record, nil
}
