package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adcatlas/curation-backend/internal/adapters/memory"
	"github.com/adcatlas/curation-backend/internal/application/services"
	"github.com/adcatlas/curation-backend/internal/domain/entities"
	"github.com/adcatlas/curation-backend/pkg/config"
)

func TestGateConfig(t *testing.T) {
	gc, err := GateConfig(config.CurationConfig{EvidenceMin: 3, ManualEvidenceMin: 2, MinEvidenceGrade: "a"})
	require.NoError(t, err)
	assert.Equal(t, 3, gc.EvidenceMin)
	assert.Equal(t, 2, gc.ManualEvidenceMin)
	assert.Equal(t, entities.GradeA, gc.MinGrade)
	assert.NotNil(t, gc.OutcomeConsistent)

	gc, err = GateConfig(config.CurationConfig{})
	require.NoError(t, err)
	assert.Equal(t, entities.GradeB, gc.MinGrade, "blank grade keeps the default")

	_, err = GateConfig(config.CurationConfig{MinEvidenceGrade: "Z"})
	assert.Error(t, err)
}

func TestOpenStorage_Memory(t *testing.T) {
	st, err := OpenStorage(&config.Config{Storage: config.StorageConfig{Driver: config.StorageDriverMemory}})
	require.NoError(t, err)
	assert.NoError(t, st.Migrate(context.Background()))
	assert.NoError(t, st.Close())

	_, err = OpenStorage(&config.Config{Storage: config.StorageConfig{Driver: "sqlite"}})
	assert.Error(t, err)
}

func TestDisabledBackendsFallBack(t *testing.T) {
	cfg := &config.Config{}
	assert.Nil(t, OpenRedis(cfg))
	assert.Nil(t, OpenCatalog(context.Background(), cfg))
	assert.NotNil(t, NewCache(nil, time.Minute))
	assert.NotNil(t, NewEventBus(nil))
}

func TestNewServices_EndToEnd(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStorage(memory.NewStore())
	svc, err := NewServices(config.CurationConfig{
		EvidenceMin:          2,
		ManualEvidenceMin:    1,
		MinEvidenceGrade:     "B",
		AutoApproveThreshold: 0.9,
		BulkConcurrency:      2,
		GateCacheTTLSeconds:  30,
	}, st, NewCache(nil, time.Minute), NewEventBus(nil), nil)
	require.NoError(t, err)

	evidenceID, err := svc.Ledger.RecordEvidence(ctx, &entities.EvidenceItem{
		Type: entities.EvidenceLabel, Title: "Enhertu label", SourceQuality: entities.GradeA,
	})
	require.NoError(t, err)

	rec, err := svc.Records.Create(ctx, servicesInput(evidenceID))
	require.NoError(t, err)

	res, err := svc.Promotion.Promote(ctx, rec.ID, entities.HumanActor("curator"))
	require.NoError(t, err)
	assert.Equal(t, entities.PromotionPromoted, res.Status)
}

func servicesInput(evidenceID string) services.CreateRecordInput {
	return services.CreateRecordInput{
		Kind: entities.RecordKindManualSeed,
		Fields: entities.Fields{
			entities.FieldTargetSymbol:  entities.StringValue("ERBB2"),
			entities.FieldPayloadSmiles: entities.StringValue("CC[C@H](C)[C@@H](C)N"),
		},
		EvidenceRefs: []string{evidenceID},
	}
}
