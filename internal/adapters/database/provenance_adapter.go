package database

import (
	"context"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/adcatlas/curation-backend/internal/domain/entities"
	"github.com/adcatlas/curation-backend/internal/domain/repositories"
	"github.com/adcatlas/curation-backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/adcatlas/curation-backend/pkg/errors"
)

const provenanceTable = "field_provenance"

var provenanceColumns = []any{
	"id", "record_id", "field_name", "field_value", "evidence_item_id", "confidence", "quote_span", "created_at",
}

// ProvenanceAdapter implements ProvenanceRepository
type ProvenanceAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewProvenanceAdapter creates a new provenance adapter
func NewProvenanceAdapter(client *postgres.Client) repositories.ProvenanceRepository {
	return &ProvenanceAdapter{
		client: client,
		db:     newDialect(client),
	}
}

// Insert appends a row; the id comes from the BIGSERIAL sequence
func (a *ProvenanceAdapter) Insert(ctx context.Context, row *entities.FieldProvenance) (int64, error) {
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}

	query, args, err := a.db.Insert(provenanceTable).Prepared(true).Rows(goqu.Record{
		"record_id":        row.RecordID,
		"field_name":       row.FieldName,
		"field_value":      row.FieldValue,
		"evidence_item_id": row.EvidenceItemID,
		"confidence":       row.Confidence,
		"quote_span":       row.QuoteSpan,
		"created_at":       row.CreatedAt,
	}).Returning("id").ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build insert query", err)
	}

	if err := conn(ctx, a.client.DB()).QueryRowContext(ctx, query, args...).Scan(&row.ID); err != nil {
		return 0, apperrors.NewInternalError("failed to insert field provenance", err)
	}
	return row.ID, nil
}

// ListByRecord returns rows ordered by created_at then id
func (a *ProvenanceAdapter) ListByRecord(ctx context.Context, recordID, fieldName string) ([]*entities.FieldProvenance, error) {
	ds := a.db.From(provenanceTable).Prepared(true).
		Select(provenanceColumns...).
		Where(goqu.Ex{"record_id": recordID})
	if fieldName != "" {
		ds = ds.Where(goqu.Ex{"field_name": fieldName})
	}
	ds = ds.Order(goqu.I("created_at").Asc(), goqu.I("id").Asc())
	return a.query(ctx, ds)
}

// LatestByRecord returns the authoritative row per field
func (a *ProvenanceAdapter) LatestByRecord(ctx context.Context, recordID string) (map[string]*entities.FieldProvenance, error) {
	ds := a.db.From(provenanceTable).Prepared(true).
		Select(provenanceColumns...).
		Distinct("field_name").
		Where(goqu.Ex{"record_id": recordID}).
		Order(goqu.I("field_name").Asc(), goqu.I("created_at").Desc(), goqu.I("id").Desc())

	rows, err := a.query(ctx, ds)
	if err != nil {
		return nil, err
	}
	latest := make(map[string]*entities.FieldProvenance, len(rows))
	for _, row := range rows {
		latest[row.FieldName] = row
	}
	return latest, nil
}

func (a *ProvenanceAdapter) query(ctx context.Context, ds *goqu.SelectDataset) ([]*entities.FieldProvenance, error) {
	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build provenance query", err)
	}

	rows, err := conn(ctx, a.client.DB()).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to query field provenance", err)
	}
	defer rows.Close()

	out := []*entities.FieldProvenance{}
	for rows.Next() {
		row := &entities.FieldProvenance{}
		if err := rows.Scan(
			&row.ID,
			&row.RecordID,
			&row.FieldName,
			&row.FieldValue,
			&row.EvidenceItemID,
			&row.Confidence,
			&row.QuoteSpan,
			&row.CreatedAt,
		); err != nil {
			return nil, apperrors.NewInternalError("failed to scan field provenance", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate field provenance", err)
	}
	return out, nil
}
