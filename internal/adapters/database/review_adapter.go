package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/adcatlas/curation-backend/internal/domain/entities"
	"github.com/adcatlas/curation-backend/internal/domain/repositories"
	"github.com/adcatlas/curation-backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/adcatlas/curation-backend/pkg/errors"
)

const reviewTable = "review_change_items"

var reviewColumns = []any{
	"id", "record_id", "change_type", "field_name", "old_value", "new_value", "confidence",
	"source_job", "status", "review_comment", "reviewed_by", "created_at", "resolved_at",
}

// ReviewAdapter implements ReviewRepository
type ReviewAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewReviewAdapter creates a new review adapter
func NewReviewAdapter(client *postgres.Client) repositories.ReviewRepository {
	return &ReviewAdapter{
		client: client,
		db:     newDialect(client),
	}
}

// Create inserts a review item
func (a *ReviewAdapter) Create(ctx context.Context, item *entities.ReviewChangeItem) error {
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}

	query, args, err := a.db.Insert(reviewTable).Prepared(true).Rows(goqu.Record{
		"id":             item.ID,
		"record_id":      item.RecordID,
		"change_type":    string(item.ChangeType),
		"field_name":     item.FieldName,
		"old_value":      item.OldValue,
		"new_value":      item.NewValue,
		"confidence":     item.Confidence,
		"source_job":     item.SourceJob,
		"status":         string(item.Status),
		"review_comment": item.ReviewComment,
		"reviewed_by":    item.ReviewedBy,
		"created_at":     item.CreatedAt,
		"resolved_at":    item.ResolvedAt,
	}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := conn(ctx, a.client.DB()).ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to create review item", err)
	}
	return nil
}

// GetByID retrieves a review item by ID
func (a *ReviewAdapter) GetByID(ctx context.Context, id string) (*entities.ReviewChangeItem, error) {
	query, args, err := a.db.From(reviewTable).Prepared(true).
		Select(reviewColumns...).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build select query", err)
	}

	item, err := scanReview(conn(ctx, a.client.DB()).QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("review item with id %s not found", id)).WithID(id)
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get review item", err)
	}
	return item, nil
}

// List retrieves review items sorted by creation time
func (a *ReviewAdapter) List(ctx context.Context, filter repositories.ReviewFilter) ([]*entities.ReviewChangeItem, error) {
	ds := a.db.From(reviewTable).Prepared(true).Select(reviewColumns...)
	if filter.Status != "" {
		ds = ds.Where(goqu.Ex{"status": string(filter.Status)})
	}
	if filter.RecordID != "" {
		ds = ds.Where(goqu.Ex{"record_id": filter.RecordID})
	}
	order := []exp.OrderedExpression{goqu.I("created_at").Asc(), goqu.I("id").Asc()}
	if filter.SortDesc {
		order = []exp.OrderedExpression{goqu.I("created_at").Desc(), goqu.I("id").Desc()}
	}
	limit, offset := pageBounds(filter.Limit, filter.Offset)
	ds = ds.Order(order...).Limit(limit).Offset(offset)

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	rows, err := conn(ctx, a.client.DB()).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list review items", err)
	}
	defer rows.Close()

	items := []*entities.ReviewChangeItem{}
	for rows.Next() {
		item, err := scanReview(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan review item", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate review items", err)
	}
	return items, nil
}

// Resolve moves a pending item to status with a compare-and-swap on status
func (a *ReviewAdapter) Resolve(ctx context.Context, id string, status entities.ReviewStatus, res entities.Resolution) (*entities.ReviewChangeItem, error) {
	resolvedAt := res.ResolvedAt
	if resolvedAt.IsZero() {
		resolvedAt = time.Now().UTC()
	}
	var reviewedBy *string
	if res.ReviewedBy != "" {
		reviewedBy = &res.ReviewedBy
	}

	query, args, err := a.db.Update(reviewTable).Prepared(true).Set(goqu.Record{
		"status":         string(status),
		"review_comment": res.Comment,
		"reviewed_by":    reviewedBy,
		"resolved_at":    resolvedAt,
	}).Where(goqu.Ex{
		"id":     id,
		"status": string(entities.ReviewPending),
	}).Returning(reviewColumns...).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build update query", err)
	}

	db := conn(ctx, a.client.DB())
	item, err := scanReview(db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		current, getErr := a.GetByID(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		return nil, apperrors.NewAlreadyResolvedError(fmt.Sprintf("review item %s is already %s", id, current.Status)).WithID(id)
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to resolve review item", err)
	}
	return item, nil
}

func scanReview(row rowScanner) (*entities.ReviewChangeItem, error) {
	item := &entities.ReviewChangeItem{}
	var changeType, status string
	err := row.Scan(
		&item.ID,
		&item.RecordID,
		&changeType,
		&item.FieldName,
		&item.OldValue,
		&item.NewValue,
		&item.Confidence,
		&item.SourceJob,
		&status,
		&item.ReviewComment,
		&item.ReviewedBy,
		&item.CreatedAt,
		&item.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	item.ChangeType = entities.ChangeType(changeType)
	item.Status = entities.ReviewStatus(status)
	return item, nil
}
