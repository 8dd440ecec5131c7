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

const evidenceTable = "evidence_items"

var evidenceColumns = []any{
	"id", "type", "locator", "title", "published_date", "snippet", "source_quality", "created_at",
}

// EvidenceAdapter implements EvidenceRepository
type EvidenceAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewEvidenceAdapter creates a new evidence adapter
func NewEvidenceAdapter(client *postgres.Client) repositories.EvidenceRepository {
	return &EvidenceAdapter{
		client: client,
		db:     newDialect(client),
	}
}

// Create inserts an evidence item
func (a *EvidenceAdapter) Create(ctx context.Context, item *entities.EvidenceItem) error {
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}

	query, args, err := a.db.Insert(evidenceTable).Prepared(true).Rows(goqu.Record{
		"id":             item.ID,
		"type":           string(item.Type),
		"locator":        item.Locator,
		"title":          item.Title,
		"published_date": item.PublishedDate,
		"snippet":        item.Snippet,
		"source_quality": string(item.SourceQuality),
		"created_at":     item.CreatedAt,
	}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := conn(ctx, a.client.DB()).ExecContext(ctx, query, args...); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return apperrors.NewConflictError(fmt.Sprintf("evidence %s already exists", item.ID)).WithID(item.ID)
		}
		return apperrors.NewInternalError("failed to create evidence item", err)
	}
	return nil
}

// GetByID retrieves an evidence item by ID
func (a *EvidenceAdapter) GetByID(ctx context.Context, id string) (*entities.EvidenceItem, error) {
	query, args, err := a.db.From(evidenceTable).Prepared(true).
		Select(evidenceColumns...).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build select query", err)
	}

	item, err := scanEvidence(conn(ctx, a.client.DB()).QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("evidence item with id %s not found", id)).WithID(id)
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get evidence item", err)
	}
	return item, nil
}

// GetByIDs retrieves the evidence items that exist among ids, in input order
func (a *EvidenceAdapter) GetByIDs(ctx context.Context, ids []string) ([]*entities.EvidenceItem, error) {
	if len(ids) == 0 {
		return []*entities.EvidenceItem{}, nil
	}

	query, args, err := a.db.From(evidenceTable).Prepared(true).
		Select(evidenceColumns...).
		Where(goqu.Ex{"id": ids}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build select query", err)
	}

	rows, err := conn(ctx, a.client.DB()).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get evidence items", err)
	}
	defer rows.Close()

	byID := make(map[string]*entities.EvidenceItem, len(ids))
	for rows.Next() {
		item, err := scanEvidence(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan evidence item", err)
		}
		byID[item.ID] = item
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate evidence items", err)
	}

	items := make([]*entities.EvidenceItem, 0, len(byID))
	for _, id := range ids {
		if item, ok := byID[id]; ok {
			items = append(items, item)
		}
	}
	return items, nil
}

func scanEvidence(row rowScanner) (*entities.EvidenceItem, error) {
	item := &entities.EvidenceItem{}
	var typ, grade string
	err := row.Scan(
		&item.ID,
		&typ,
		&item.Locator,
		&item.Title,
		&item.PublishedDate,
		&item.Snippet,
		&grade,
		&item.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	item.Type = entities.EvidenceType(typ)
	item.SourceQuality = entities.EvidenceGrade(grade)
	return item, nil
}
