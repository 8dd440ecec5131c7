package services_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/adcatlas/curation-backend/internal/adapters/cache"
	"github.com/adcatlas/curation-backend/internal/adapters/memory"
	"github.com/adcatlas/curation-backend/internal/application/services"
	"github.com/adcatlas/curation-backend/internal/domain/entities"
)

// recordingBus keeps every published event for assertions
type recordingBus struct {
	mu     sync.Mutex
	events []*entities.CurationEvent
}

func (b *recordingBus) Publish(_ context.Context, channel string, event *entities.CurationEvent) error {
	if channel != "curation:events" {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return nil
}

func (b *recordingBus) Subscribe(context.Context, string) (<-chan *entities.CurationEvent, error) {
	return make(chan *entities.CurationEvent), nil
}

func (b *recordingBus) Unsubscribe(context.Context, string) error { return nil }
func (b *recordingBus) Close() error                              { return nil }

func (b *recordingBus) types() []entities.CurationEventType {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]entities.CurationEventType, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	store      *memory.Store
	bus        *recordingBus
	ledger     *services.ProvenanceLedger
	diff       *services.DiffEngine
	records    *services.RecordService
	enrichment *services.EnrichmentService
	gates      *services.GateService
	promotion  *services.PromotionService
	reviews    *services.ReviewWorkflow
	staging    *services.StagingPipeline
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	bus := &recordingBus{}
	locks := services.NewRecordLocks()

	ledger := services.NewProvenanceLedger(store.Records(), store.Evidence(), store.Provenance())
	diff := services.NewDiffEngine(store, store.Records(), ledger, locks, bus, nil)
	evaluator := services.NewDefaultGateEvaluator(services.DefaultGateConfig())
	gates := services.NewGateService(store.Records(), store.Evidence(), evaluator, cache.NewMemoryAdapter(0, 0), 60, nil)

	return &fixture{
		store:      store,
		bus:        bus,
		ledger:     ledger,
		diff:       diff,
		records:    services.NewRecordService(store, store.Records(), store.Evidence(), locks, bus),
		enrichment: services.NewEnrichmentService(store, store.Jobs(), store.Records(), diff),
		gates:      gates,
		promotion:  services.NewPromotionService(store, store.Records(), gates, locks, bus, nil),
		reviews: services.NewReviewWorkflow(store, store.Reviews(), store.Records(), store.Evidence(), diff,
			services.ConfidenceThresholdPolicy{Threshold: 0.9}, 2, bus, nil),
		staging: services.NewStagingPipeline(store, store.Staging(), 4, bus, nil),
	}
}

func (f *fixture) createRecord(t *testing.T, kind string, fields entities.Fields) *entities.CurationRecord {
	t.Helper()
	rec, err := f.records.Create(context.Background(), services.CreateRecordInput{Kind: kind, Fields: fields})
	require.NoError(t, err)
	return rec
}

func (f *fixture) addEvidence(t *testing.T, grade entities.EvidenceGrade) string {
	t.Helper()
	id, err := f.ledger.RecordEvidence(context.Background(), &entities.EvidenceItem{
		Type:          entities.EvidencePaper,
		Title:         "supporting paper",
		SourceQuality: grade,
	})
	require.NoError(t, err)
	return id
}

func strPtr(s string) *string { return &s }
