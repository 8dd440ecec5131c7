package services_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adcatlas/curation-backend/internal/adapters/cache"
	"github.com/adcatlas/curation-backend/internal/application/services"
	"github.com/adcatlas/curation-backend/internal/domain/entities"
)

func TestGateWarmingService_WarmsRecordsAwaitingPromotion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	gateCache := cache.NewMemoryAdapter(0, 0)
	gates := services.NewGateService(f.store.Records(), f.store.Evidence(),
		services.NewDefaultGateEvaluator(services.DefaultGateConfig()), gateCache, 60, nil)
	warmer := services.NewGateWarmingService(f.store.Records(), gates)

	draft := f.createRecord(t, entities.RecordKindManualSeed, manualSeedFields())
	pending := f.createRecord(t, entities.RecordKindManualSeed, manualSeedFields())
	pending, err := f.records.Transition(ctx, pending.ID, entities.LifecyclePendingReview, nil)
	require.NoError(t, err)

	warmed, err := warmer.WarmCache(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, warmed)

	hit, err := gateCache.Exists(ctx, fmt.Sprintf("gate:%s:v%d", pending.ID, pending.Version))
	require.NoError(t, err)
	assert.True(t, hit)

	miss, err := gateCache.Exists(ctx, fmt.Sprintf("gate:%s:v%d", draft.ID, draft.Version))
	require.NoError(t, err)
	assert.False(t, miss, "draft records are not warmed")
}
