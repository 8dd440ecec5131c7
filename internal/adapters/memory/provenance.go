package memory

import (
	"context"
	"sort"
	"time"

	"github.com/adcatlas/curation-backend/internal/domain/entities"
)

type provenanceRepo Store

// Insert appends a row and assigns the next id
func (r *provenanceRepo) Insert(ctx context.Context, row *entities.FieldProvenance) (int64, error) {
	var id int64
	err := (*Store)(r).do(ctx, func(st *memoryState, now time.Time) error {
		st.nextProvID++
		id = st.nextProvID
		row.ID = id
		if row.CreatedAt.IsZero() {
			row.CreatedAt = now
		}
		cp := *row
		st.provenance = append(st.provenance, &cp)
		return nil
	})
	return id, err
}

// ListByRecord returns rows ordered by created_at then id
func (r *provenanceRepo) ListByRecord(ctx context.Context, recordID, fieldName string) ([]*entities.FieldProvenance, error) {
	var out []*entities.FieldProvenance
	err := (*Store)(r).do(ctx, func(st *memoryState, _ time.Time) error {
		for _, row := range st.provenance {
			if row.RecordID != recordID || (fieldName != "" && row.FieldName != fieldName) {
				continue
			}
			cp := *row
			out = append(out, &cp)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[j].NewerThan(out[i]) })
	return out, nil
}

// LatestByRecord returns the authoritative row per field
func (r *provenanceRepo) LatestByRecord(ctx context.Context, recordID string) (map[string]*entities.FieldProvenance, error) {
	rows, err := r.ListByRecord(ctx, recordID, "")
	if err != nil {
		return nil, err
	}
	latest := make(map[string]*entities.FieldProvenance)
	for _, row := range rows {
		if row.NewerThan(latest[row.FieldName]) {
			latest[row.FieldName] = row
		}
	}
	return latest, nil
}
