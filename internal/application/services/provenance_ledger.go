package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/adcatlas/curation-backend/internal/domain/entities"
	"github.com/adcatlas/curation-backend/internal/domain/repositories"
	apperrors "github.com/adcatlas/curation-backend/pkg/errors"
)

// ProvenanceLedger records evidence items and the field-level links that justify values
type ProvenanceLedger struct {
	records    repositories.CurationRecordRepository
	evidence   repositories.EvidenceRepository
	provenance repositories.ProvenanceRepository
}

// NewProvenanceLedger creates a new provenance ledger
func NewProvenanceLedger(
	records repositories.CurationRecordRepository,
	evidence repositories.EvidenceRepository,
	provenance repositories.ProvenanceRepository,
) *ProvenanceLedger {
	return &ProvenanceLedger{
		records:    records,
		evidence:   evidence,
		provenance: provenance,
	}
}

// LinkFieldInput describes one provenance row to append
type LinkFieldInput struct {
	RecordID       string         `json:"record_id"`
	FieldName      string         `json:"field_name"`
	Value          entities.Value `json:"field_value"`
	EvidenceItemID *string        `json:"evidence_item_id,omitempty"`
	Confidence     float64        `json:"confidence"`
	QuoteSpan      string         `json:"quote_span,omitempty"`
}

// RecordEvidence validates and stores an evidence item, returning its id
func (l *ProvenanceLedger) RecordEvidence(ctx context.Context, item *entities.EvidenceItem) (string, error) {
	if item == nil {
		return "", apperrors.NewValidationError("evidence item is required")
	}
	if err := item.Validate(); err != nil {
		return "", apperrors.NewValidationError(err.Error())
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if err := l.evidence.Create(ctx, item); err != nil {
		return "", err
	}
	return item.ID, nil
}

// GetEvidence returns one evidence item
func (l *ProvenanceLedger) GetEvidence(ctx context.Context, id string) (*entities.EvidenceItem, error) {
	return l.evidence.GetByID(ctx, id)
}

// LinkField appends a provenance row for a record field. The record and the
// referenced evidence item must already exist.
func (l *ProvenanceLedger) LinkField(ctx context.Context, in LinkFieldInput) (int64, error) {
	if strings.TrimSpace(in.RecordID) == "" {
		return 0, apperrors.NewValidationError("record_id is required")
	}
	if strings.TrimSpace(in.FieldName) == "" {
		return 0, apperrors.NewValidationError("field_name is required")
	}
	if !entities.ValidConfidence(in.Confidence) {
		return 0, apperrors.NewValidationError(fmt.Sprintf("confidence %v outside [0,1]", in.Confidence))
	}
	if _, err := l.records.GetByID(ctx, in.RecordID); err != nil {
		return 0, err
	}
	if in.EvidenceItemID != nil && *in.EvidenceItemID != "" {
		if _, err := l.evidence.GetByID(ctx, *in.EvidenceItemID); err != nil {
			return 0, err
		}
	} else {
		in.EvidenceItemID = nil
	}

	return l.provenance.Insert(ctx, &entities.FieldProvenance{
		RecordID:       in.RecordID,
		FieldName:      in.FieldName,
		FieldValue:     in.Value,
		EvidenceItemID: in.EvidenceItemID,
		Confidence:     in.Confidence,
		QuoteSpan:      in.QuoteSpan,
	})
}

// LatestProvenance returns the authoritative provenance row per field
func (l *ProvenanceLedger) LatestProvenance(ctx context.Context, recordID string) (map[string]*entities.FieldProvenance, error) {
	if _, err := l.records.GetByID(ctx, recordID); err != nil {
		return nil, err
	}
	return l.provenance.LatestByRecord(ctx, recordID)
}

// HighConfidenceFields returns, sorted, the fields whose latest confidence is at least threshold
func (l *ProvenanceLedger) HighConfidenceFields(ctx context.Context, recordID string, threshold float64) ([]string, error) {
	if !entities.ValidConfidence(threshold) {
		return nil, apperrors.NewValidationError(fmt.Sprintf("threshold %v outside [0,1]", threshold))
	}
	latest, err := l.LatestProvenance(ctx, recordID)
	if err != nil {
		return nil, err
	}
	fields := make([]string, 0, len(latest))
	for name, row := range latest {
		if row.Confidence >= threshold {
			fields = append(fields, name)
		}
	}
	sort.Strings(fields)
	return fields, nil
}

// History returns the full audit trail of a record, or of one field when fieldName is set
func (l *ProvenanceLedger) History(ctx context.Context, recordID, fieldName string) ([]*entities.FieldProvenance, error) {
	if _, err := l.records.GetByID(ctx, recordID); err != nil {
		return nil, err
	}
	return l.provenance.ListByRecord(ctx, recordID, fieldName)
}
