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

const stagingTable = "staging_components"

var stagingColumns = []any{
	"id", "type", "name", "properties", "quality_grade",
	"source_connector", "source_external_id", "source_fetched_at",
	"status", "review_note", "reviewed_by", "created_at", "reviewed_at",
}

// StagingAdapter implements StagingRepository
type StagingAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewStagingAdapter creates a new staging adapter
func NewStagingAdapter(client *postgres.Client) repositories.StagingRepository {
	return &StagingAdapter{
		client: client,
		db:     newDialect(client),
	}
}

// Create inserts a staging component
func (a *StagingAdapter) Create(ctx context.Context, c *entities.StagingComponent) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	if c.Properties == nil {
		c.Properties = entities.Fields{}
	}

	query, args, err := a.db.Insert(stagingTable).Prepared(true).Rows(goqu.Record{
		"id":                 c.ID,
		"type":               string(c.Type),
		"name":               c.Name,
		"properties":         c.Properties,
		"quality_grade":      string(c.QualityGrade),
		"source_connector":   c.Source.Connector,
		"source_external_id": c.Source.ExternalID,
		"source_fetched_at":  c.Source.FetchedAt,
		"status":             string(c.Status),
		"review_note":        c.ReviewNote,
		"reviewed_by":        c.ReviewedBy,
		"created_at":         c.CreatedAt,
		"reviewed_at":        c.ReviewedAt,
	}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := conn(ctx, a.client.DB()).ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to create staging component", err)
	}
	return nil
}

// GetByID retrieves a staging component by ID
func (a *StagingAdapter) GetByID(ctx context.Context, id string) (*entities.StagingComponent, error) {
	query, args, err := a.db.From(stagingTable).Prepared(true).
		Select(stagingColumns...).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build select query", err)
	}

	c, err := scanStaging(conn(ctx, a.client.DB()).QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("staging component with id %s not found", id)).WithID(id)
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get staging component", err)
	}
	return c, nil
}

// List retrieves staging components with filters, oldest first
func (a *StagingAdapter) List(ctx context.Context, filter repositories.StagingFilter) ([]*entities.StagingComponent, error) {
	ds := a.db.From(stagingTable).Prepared(true).Select(stagingColumns...)
	if filter.Status != "" {
		ds = ds.Where(goqu.Ex{"status": string(filter.Status)})
	}
	if filter.Type != "" {
		ds = ds.Where(goqu.Ex{"type": string(filter.Type)})
	}
	limit, offset := pageBounds(filter.Limit, filter.Offset)
	ds = ds.Order(goqu.I("created_at").Asc(), goqu.I("id").Asc()).Limit(limit).Offset(offset)

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	rows, err := conn(ctx, a.client.DB()).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list staging components", err)
	}
	defer rows.Close()

	out := []*entities.StagingComponent{}
	for rows.Next() {
		c, err := scanStaging(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan staging component", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate staging components", err)
	}
	return out, nil
}

// Resolve moves a pending component to status with a compare-and-swap on status
func (a *StagingAdapter) Resolve(ctx context.Context, id string, status entities.StagingStatus, res entities.Resolution) (*entities.StagingComponent, error) {
	reviewedAt := res.ResolvedAt
	if reviewedAt.IsZero() {
		reviewedAt = time.Now().UTC()
	}
	var reviewedBy *string
	if res.ReviewedBy != "" {
		reviewedBy = &res.ReviewedBy
	}

	query, args, err := a.db.Update(stagingTable).Prepared(true).Set(goqu.Record{
		"status":      string(status),
		"review_note": res.Comment,
		"reviewed_by": reviewedBy,
		"reviewed_at": reviewedAt,
	}).Where(goqu.Ex{
		"id":     id,
		"status": string(entities.StagingPending),
	}).Returning(stagingColumns...).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build update query", err)
	}

	c, err := scanStaging(conn(ctx, a.client.DB()).QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		current, getErr := a.GetByID(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		return nil, apperrors.NewAlreadyResolvedError(fmt.Sprintf("staging component %s is already %s", id, current.Status)).WithID(id)
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to resolve staging component", err)
	}
	return c, nil
}

func scanStaging(row rowScanner) (*entities.StagingComponent, error) {
	c := &entities.StagingComponent{}
	var typ, grade, status string
	err := row.Scan(
		&c.ID,
		&typ,
		&c.Name,
		&c.Properties,
		&grade,
		&c.Source.Connector,
		&c.Source.ExternalID,
		&c.Source.FetchedAt,
		&status,
		&c.ReviewNote,
		&c.ReviewedBy,
		&c.CreatedAt,
		&c.ReviewedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Type = entities.ComponentType(typ)
	c.QualityGrade = entities.QualityGrade(grade)
	c.Status = entities.StagingStatus(status)
	return c, nil
}
