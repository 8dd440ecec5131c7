package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/adcatlas/curation-backend/internal/adapters/events"
	"github.com/adcatlas/curation-backend/internal/application/services"
	"github.com/adcatlas/curation-backend/internal/domain/entities"
)

type mockCatalogWriter struct {
	mock.Mock
}

func (m *mockCatalogWriter) UpsertComponent(ctx context.Context, c *entities.StagingComponent) error {
	return m.Called(ctx, c).Error(0)
}

func (m *mockCatalogWriter) UpsertRecord(ctx context.Context, r *entities.CurationRecord) error {
	return m.Called(ctx, r).Error(0)
}

func (m *mockCatalogWriter) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func TestCatalogSyncService_HandleEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	writer := &mockCatalogWriter{}
	sync := services.NewCatalogSyncService(f.store.Records(), f.store.Staging(), writer, nil)

	c, err := f.staging.Create(ctx, stagingInput("MMAE"))
	require.NoError(t, err)

	// still pending: nothing to write
	require.NoError(t, sync.HandleEvent(ctx, entities.NewCurationEvent(entities.EventStagingApproved, c.ID, "x")))
	writer.AssertNotCalled(t, "UpsertComponent", mock.Anything, mock.Anything)

	_, err = f.staging.Approve(ctx, c.ID, entities.HumanActor("curator"))
	require.NoError(t, err)
	writer.On("UpsertComponent", mock.Anything, mock.MatchedBy(func(sc *entities.StagingComponent) bool {
		return sc.ID == c.ID && sc.Status == entities.StagingApproved
	})).Return(nil).Once()
	require.NoError(t, sync.HandleEvent(ctx, entities.NewCurationEvent(entities.EventStagingApproved, c.ID, "curator")))

	rec := f.createRecord(t, entities.RecordKindManualSeed, manualSeedFields())
	require.NoError(t, sync.HandleEvent(ctx, entities.NewCurationEvent(entities.EventRecordPromoted, rec.ID, "lead")))
	writer.AssertNotCalled(t, "UpsertRecord", mock.Anything, mock.Anything)

	writer.AssertExpectations(t)
}

func TestCatalogSyncService_RetriesWrites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	writer := &mockCatalogWriter{}
	sync := services.NewCatalogSyncService(f.store.Records(), f.store.Staging(), writer, nil)

	c, err := f.staging.Create(ctx, stagingInput("DXd"))
	require.NoError(t, err)
	_, err = f.staging.Approve(ctx, c.ID, entities.HumanActor("curator"))
	require.NoError(t, err)

	writer.On("UpsertComponent", mock.Anything, mock.Anything).Return(errors.New("503")).Once()
	writer.On("UpsertComponent", mock.Anything, mock.Anything).Return(nil).Once()
	require.NoError(t, sync.HandleEvent(ctx, entities.NewCurationEvent(entities.EventStagingApproved, c.ID, "curator")))
	writer.AssertNumberOfCalls(t, "UpsertComponent", 2)
}

func TestCatalogSyncService_SyncAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	writer := &mockCatalogWriter{}
	sync := services.NewCatalogSyncService(f.store.Records(), f.store.Staging(), writer, nil)

	for _, name := range []string{"a", "b", "c"} {
		c, err := f.staging.Create(ctx, stagingInput(name))
		require.NoError(t, err)
		if name != "c" {
			_, err = f.staging.Approve(ctx, c.ID, entities.HumanActor("curator"))
			require.NoError(t, err)
		}
	}
	rec := f.createRecord(t, entities.RecordKindManualSeed, manualSeedFields())
	_, err := f.records.AttachEvidence(ctx, rec.ID, f.addEvidence(t, entities.GradeA))
	require.NoError(t, err)
	_, err = f.promotion.Promote(ctx, rec.ID, entities.HumanActor("lead"))
	require.NoError(t, err)
	f.createRecord(t, entities.RecordKindADCSeed, nil)

	writer.On("UpsertRecord", mock.Anything, mock.Anything).Return(nil)
	writer.On("UpsertComponent", mock.Anything, mock.Anything).Return(nil)

	stats, err := sync.SyncAll(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, services.SyncStats{Records: 1, Components: 2}, stats)
}

func TestCatalogSyncService_FollowsEventBus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bus := events.NewLocalEventBus()
	defer bus.Close()

	writer := &mockCatalogWriter{}
	done := make(chan struct{})
	writer.On("UpsertComponent", mock.Anything, mock.Anything).Return(nil).Run(func(mock.Arguments) { close(done) }).Once()

	sync := services.NewCatalogSyncService(f.store.Records(), f.store.Staging(), writer, bus)
	require.NoError(t, sync.Start())
	defer sync.Stop()

	pipeline := services.NewStagingPipeline(f.store, f.store.Staging(), 1, bus, nil)
	c, err := pipeline.Create(ctx, stagingInput("MMAE"))
	require.NoError(t, err)
	_, err = pipeline.Approve(ctx, c.ID, entities.HumanActor("curator"))
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("catalog writer was not called")
	}
}
