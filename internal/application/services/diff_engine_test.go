package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adcatlas/curation-backend/internal/application/services"
	"github.com/adcatlas/curation-backend/internal/domain/entities"
	apperrors "github.com/adcatlas/curation-backend/pkg/errors"
)

func TestDiffEngine_ComputeDiff(t *testing.T) {
	f := newFixture(t)
	rec := &entities.CurationRecord{
		ID: "r1",
		Fields: entities.Fields{
			"linker_type":  entities.StringValue("Val-Cit "),
			"dar":          entities.NumberValue(4),
			"payload_name": entities.NullValue(),
		},
	}
	proposed := []entities.ProposedChange{
		{FieldName: "payload_name", Value: entities.StringValue(""), Confidence: 0.5},
		{FieldName: "linker_type", Value: entities.StringValue("Val-Cit"), Confidence: 0.9},
		{FieldName: "dar", Value: entities.NumberValue(3.8), Confidence: 0.7, Source: "label"},
		{FieldName: "axis", Value: entities.StringValue("HER2"), Confidence: 0.8},
	}

	items := f.diff.ComputeDiff(rec, proposed)
	require.Len(t, items, 4)
	for i, p := range proposed {
		assert.Equal(t, p.FieldName, items[i].FieldName, "order follows the proposals")
	}
	assert.False(t, items[0].Changed, "null and empty string are the same value")
	assert.False(t, items[1].Changed, "text compares trimmed")
	assert.True(t, items[2].Changed)
	assert.Equal(t, "label", items[2].Source)
	assert.True(t, items[3].Changed)
	assert.True(t, items[3].OldValue.IsNull())

	assert.Equal(t, items, f.diff.ComputeDiff(rec, proposed), "computing twice gives the same diff")
}

func TestDiffEngine_ApplySelected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec := f.createRecord(t, entities.RecordKindADCSeed, entities.Fields{
		"linker_type":  entities.StringValue("MC"),
		"payload_name": entities.StringValue("MMAE"),
	})
	items := f.diff.ComputeDiff(rec, []entities.ProposedChange{
		{FieldName: "linker_type", Value: entities.StringValue("Val-Cit"), Confidence: 0.92, Source: "job-1"},
		{FieldName: "payload_name", Value: entities.StringValue("DXd"), Confidence: 0.6},
		{FieldName: "axis", Value: entities.StringValue("HER2"), Confidence: 0.8},
	})

	res, err := f.diff.ApplySelected(ctx, services.ApplyRequest{
		RecordID:       rec.ID,
		Items:          items,
		SelectedFields: []string{"linker_type", "axis", "not_in_diff"},
		Actor:          entities.HumanActor("curator@example.org"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.AppliedCount)
	assert.Equal(t, []string{"linker_type", "axis"}, res.AppliedFields)
	assert.Equal(t, int64(2), res.Version)

	got, err := f.records.Get(ctx, rec.ID)
	require.NoError(t, err)
	linker, _ := got.Fields.Get("linker_type").AsString()
	assert.Equal(t, "Val-Cit", linker)
	payload, _ := got.Fields.Get("payload_name").AsString()
	assert.Equal(t, "MMAE", payload, "unselected fields are untouched")

	latest, err := f.ledger.LatestProvenance(ctx, rec.ID)
	require.NoError(t, err)
	require.Contains(t, latest, "linker_type")
	assert.InDelta(t, 0.92, latest["linker_type"].Confidence, 1e-9)
	assert.Equal(t, "job-1", latest["linker_type"].QuoteSpan)
	assert.NotContains(t, latest, "payload_name")
	assert.Contains(t, f.bus.types(), entities.EventRecordUpdated)
}

func TestDiffEngine_EmptySelectionIsNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec := f.createRecord(t, entities.RecordKindADCSeed, entities.Fields{"axis": entities.StringValue("HER2")})
	items := f.diff.ComputeDiff(rec, []entities.ProposedChange{{FieldName: "axis", Value: entities.StringValue("TROP2"), Confidence: 0.9}})

	res, err := f.diff.ApplySelected(ctx, services.ApplyRequest{RecordID: rec.ID, Items: items, Actor: entities.HumanActor("a")})
	require.NoError(t, err)
	assert.Zero(t, res.AppliedCount)
	assert.Empty(t, res.AppliedFields)

	got, err := f.records.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.Version, got.Version)
	history, err := f.ledger.History(ctx, rec.ID, "")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestDiffEngine_UnchangedItemsAreSkipped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec := f.createRecord(t, entities.RecordKindADCSeed, entities.Fields{"payload_name": entities.NullValue()})
	items := f.diff.ComputeDiff(rec, []entities.ProposedChange{{FieldName: "payload_name", Value: entities.StringValue(""), Confidence: 0.9}})

	res, err := f.diff.ApplySelected(ctx, services.ApplyRequest{
		RecordID: rec.ID, Items: items, SelectedFields: []string{"payload_name"}, Actor: entities.HumanActor("a"),
	})
	require.NoError(t, err)
	assert.Zero(t, res.AppliedCount)
}

func TestDiffEngine_VerifiedLockBlocksAutomation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec := f.createRecord(t, entities.RecordKindADCSeed, entities.Fields{"axis": entities.StringValue("HER2")})
	_, err := f.records.SetVerifiedLock(ctx, rec.ID, true)
	require.NoError(t, err)

	items := f.diff.ComputeDiff(rec, []entities.ProposedChange{{FieldName: "axis", Value: entities.StringValue("TROP2"), Confidence: 0.99}})
	req := services.ApplyRequest{RecordID: rec.ID, Items: items, SelectedFields: []string{"axis"}, Actor: entities.AutomatedActor("job-7")}

	_, err = f.diff.ApplySelected(ctx, req)
	require.Error(t, err)
	assert.True(t, apperrors.IsLocked(err))

	got, err := f.records.Get(ctx, rec.ID)
	require.NoError(t, err)
	axis, _ := got.Fields.Get("axis").AsString()
	assert.Equal(t, "HER2", axis)

	req.Actor = entities.HumanActor("curator")
	res, err := f.diff.ApplySelected(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 1, res.AppliedCount, "a human may still edit a locked record")
}

func TestDiffEngine_FinalRecordRejectsApply(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec := f.createRecord(t, entities.RecordKindManualSeed, entities.Fields{
		entities.FieldTargetSymbol:  entities.StringValue("ERBB2"),
		entities.FieldPayloadSmiles: entities.StringValue("CC"),
	})
	_, err := f.records.AttachEvidence(ctx, rec.ID, f.addEvidence(t, entities.GradeA))
	require.NoError(t, err)
	_, err = f.promotion.Promote(ctx, rec.ID, entities.HumanActor("lead"))
	require.NoError(t, err)

	items := []entities.DiffItem{{FieldName: "axis", NewValue: entities.StringValue("HER2"), Confidence: 1, Changed: true}}
	_, err = f.diff.ApplySelected(ctx, services.ApplyRequest{RecordID: rec.ID, Items: items, SelectedFields: []string{"axis"}, Actor: entities.HumanActor("a")})
	assert.True(t, apperrors.IsConflict(err))
}

func TestDiffEngine_ActorKindRequired(t *testing.T) {
	f := newFixture(t)
	rec := f.createRecord(t, entities.RecordKindADCSeed, nil)
	_, err := f.diff.ApplySelected(context.Background(), services.ApplyRequest{RecordID: rec.ID, Actor: entities.Actor{ID: "x"}})
	assert.True(t, apperrors.IsValidation(err))
}

func TestDiffEngine_InvalidConfidenceRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec := f.createRecord(t, entities.RecordKindADCSeed, nil)
	items := []entities.DiffItem{
		{FieldName: "axis", NewValue: entities.StringValue("HER2"), Confidence: 0.9, Changed: true},
		{FieldName: "linker_type", NewValue: entities.StringValue("Val-Cit"), Confidence: 3, Changed: true},
	}
	_, err := f.diff.ApplySelected(ctx, services.ApplyRequest{
		RecordID: rec.ID, Items: items, SelectedFields: []string{"axis", "linker_type"}, Actor: entities.HumanActor("a"),
	})
	require.True(t, apperrors.IsValidation(err))

	got, err := f.records.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.False(t, got.Fields.Has("axis"), "no partial application")
	assert.Equal(t, int64(1), got.Version)
}
