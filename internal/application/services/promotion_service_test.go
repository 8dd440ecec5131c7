package services_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adcatlas/curation-backend/internal/domain/entities"
	apperrors "github.com/adcatlas/curation-backend/pkg/errors"
)

func manualSeedFields() entities.Fields {
	return entities.Fields{
		entities.FieldTargetSymbol:    entities.StringValue("ERBB2"),
		entities.FieldProxySmilesFlag: entities.BoolValue(true),
	}
}

func TestGateService_CachesPerVersion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec := f.createRecord(t, entities.RecordKindManualSeed, manualSeedFields())

	res, err := f.gates.Check(ctx, rec.ID)
	require.NoError(t, err)
	assert.False(t, res.Passed)
	assert.Equal(t, []string{"evidence_exists"}, res.FailedChecks())

	_, err = f.records.AttachEvidence(ctx, rec.ID, f.addEvidence(t, entities.GradeB))
	require.NoError(t, err)

	res, err = f.gates.Check(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, res.Passed, "a new version is evaluated afresh")
	assert.Equal(t, int64(2), res.Version)

	again, err := f.gates.Check(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, res, again)
}

func TestPromotionService_Promote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec := f.createRecord(t, entities.RecordKindManualSeed, manualSeedFields())

	_, err := f.promotion.Promote(ctx, rec.ID, entities.HumanActor("lead"))
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeGateFailed, apperrors.TypeOf(err))
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	gates, ok := appErr.Details.(*entities.GateCheckResult)
	require.True(t, ok, "the gate result travels with the error")
	assert.Equal(t, 2, gates.Score)

	got, err := f.records.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.LifecycleDraft, got.LifecycleState)

	_, err = f.records.AttachEvidence(ctx, rec.ID, f.addEvidence(t, entities.GradeC))
	require.NoError(t, err)

	res, err := f.promotion.Promote(ctx, rec.ID, entities.HumanActor("lead"))
	require.NoError(t, err)
	assert.Equal(t, entities.PromotionPromoted, res.Status)
	assert.Equal(t, entities.LifecycleFinal, res.Record.LifecycleState)
	assert.NotNil(t, res.Record.PromotedAt)
	assert.Contains(t, f.bus.types(), entities.EventRecordPromoted)

	res, err = f.promotion.Promote(ctx, rec.ID, entities.HumanActor("lead"))
	require.NoError(t, err)
	assert.Equal(t, entities.PromotionAlreadyFinal, res.Status)

	_, err = f.promotion.Promote(ctx, "missing", entities.HumanActor("lead"))
	assert.True(t, apperrors.IsNotFound(err))
}

func TestPromotionService_ConcurrentPromoteOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec := f.createRecord(t, entities.RecordKindManualSeed, manualSeedFields())
	_, err := f.records.AttachEvidence(ctx, rec.ID, f.addEvidence(t, entities.GradeB))
	require.NoError(t, err)

	const callers = 8
	statuses := make([]entities.PromotionStatus, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.promotion.Promote(ctx, rec.ID, entities.HumanActor("lead"))
			if err == nil {
				statuses[i] = res.Status
			}
		}()
	}
	wg.Wait()

	promoted := 0
	for _, s := range statuses {
		if s == entities.PromotionPromoted {
			promoted++
		} else {
			assert.Equal(t, entities.PromotionAlreadyFinal, s)
		}
	}
	assert.Equal(t, 1, promoted)
}
