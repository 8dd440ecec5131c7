package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adcatlas/curation-backend/internal/application/services"
	"github.com/adcatlas/curation-backend/internal/domain/entities"
	apperrors "github.com/adcatlas/curation-backend/pkg/errors"
)

func TestProvenanceLedger_RecordEvidenceValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.ledger.RecordEvidence(ctx, &entities.EvidenceItem{Type: "tweet", Title: "x"})
	assert.True(t, apperrors.IsValidation(err))

	_, err = f.ledger.RecordEvidence(ctx, &entities.EvidenceItem{Type: entities.EvidencePaper})
	assert.True(t, apperrors.IsValidation(err), "locator or title is required")

	id, err := f.ledger.RecordEvidence(ctx, &entities.EvidenceItem{Type: entities.EvidenceClinicalTrial, Locator: "NCT01234567", SourceQuality: "a"})
	require.NoError(t, err)
	item, err := f.ledger.GetEvidence(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, entities.GradeA, item.SourceQuality)
}

func TestProvenanceLedger_LinkFieldValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec := f.createRecord(t, entities.RecordKindADCSeed, nil)

	tests := []struct {
		name    string
		in      services.LinkFieldInput
		isValid bool
		check   func(error) bool
	}{
		{"confidence above one", services.LinkFieldInput{RecordID: rec.ID, FieldName: "axis", Confidence: 1.2}, false, apperrors.IsValidation},
		{"confidence below zero", services.LinkFieldInput{RecordID: rec.ID, FieldName: "axis", Confidence: -0.1}, false, apperrors.IsValidation},
		{"missing field name", services.LinkFieldInput{RecordID: rec.ID, Confidence: 0.5}, false, apperrors.IsValidation},
		{"missing record id", services.LinkFieldInput{FieldName: "axis", Confidence: 0.5}, false, apperrors.IsValidation},
		{"unknown record", services.LinkFieldInput{RecordID: "nope", FieldName: "axis", Confidence: 0.5}, false, apperrors.IsNotFound},
		{"unknown evidence", services.LinkFieldInput{RecordID: rec.ID, FieldName: "axis", Confidence: 0.5, EvidenceItemID: strPtr("missing")}, false, apperrors.IsNotFound},
		{"boundary confidence", services.LinkFieldInput{RecordID: rec.ID, FieldName: "axis", Confidence: 1}, true, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := f.ledger.LinkField(ctx, tt.in)
			if tt.isValid {
				require.NoError(t, err)
				assert.Positive(t, id)
				return
			}
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error type: %v", err)
		})
	}
}

func TestProvenanceLedger_LatestWinsAndHighConfidence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ts := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	f.store.SetNowFunc(func() time.Time { return ts })

	rec := f.createRecord(t, entities.RecordKindADCSeed, nil)
	evID := f.addEvidence(t, entities.GradeB)

	_, err := f.ledger.LinkField(ctx, services.LinkFieldInput{RecordID: rec.ID, FieldName: "axis", Value: entities.StringValue("HER2"), Confidence: 0.95})
	require.NoError(t, err)
	// same timestamp: the higher id is authoritative
	_, err = f.ledger.LinkField(ctx, services.LinkFieldInput{RecordID: rec.ID, FieldName: "axis", Value: entities.StringValue("ERBB2"), Confidence: 0.4, EvidenceItemID: &evID})
	require.NoError(t, err)
	_, err = f.ledger.LinkField(ctx, services.LinkFieldInput{RecordID: rec.ID, FieldName: "linker_type", Value: entities.StringValue("Val-Cit"), Confidence: 0.9})
	require.NoError(t, err)

	latest, err := f.ledger.LatestProvenance(ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	s, _ := latest["axis"].FieldValue.AsString()
	assert.Equal(t, "ERBB2", s)
	require.NotNil(t, latest["axis"].EvidenceItemID)
	assert.Equal(t, evID, *latest["axis"].EvidenceItemID)

	fields, err := f.ledger.HighConfidenceFields(ctx, rec.ID, 0.8)
	require.NoError(t, err)
	assert.Equal(t, []string{"linker_type"}, fields)

	fields, err = f.ledger.HighConfidenceFields(ctx, rec.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"axis", "linker_type"}, fields)

	_, err = f.ledger.HighConfidenceFields(ctx, rec.ID, 1.5)
	assert.True(t, apperrors.IsValidation(err))

	history, err := f.ledger.History(ctx, rec.ID, "axis")
	require.NoError(t, err)
	assert.Len(t, history, 2, "older rows are kept")
}

func TestProvenanceLedger_ReadsOnUnknownRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.ledger.LatestProvenance(ctx, "no-such-record")
	assert.True(t, apperrors.IsNotFound(err), "latest: %v", err)

	_, err = f.ledger.HighConfidenceFields(ctx, "no-such-record", 0.5)
	assert.True(t, apperrors.IsNotFound(err), "high confidence: %v", err)

	_, err = f.ledger.History(ctx, "no-such-record", "")
	assert.True(t, apperrors.IsNotFound(err), "history: %v", err)
}
