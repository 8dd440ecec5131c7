package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/adcatlas/curation-backend/internal/domain/entities"
	"github.com/adcatlas/curation-backend/internal/domain/providers"
	"github.com/adcatlas/curation-backend/internal/domain/repositories"
	"github.com/adcatlas/curation-backend/internal/infrastructure/observability"
	apperrors "github.com/adcatlas/curation-backend/pkg/errors"
	"github.com/adcatlas/curation-backend/pkg/retry"
)

// CatalogSyncService copies approved staging components and final records into
// the catalog, either by following curation events or by a full resync.
type CatalogSyncService struct {
	records  repositories.CurationRecordRepository
	staging  repositories.StagingRepository
	writer   providers.CatalogWriter
	eventBus providers.EventBus
	retryCfg retry.Config

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewCatalogSyncService creates a new catalog sync service. eventBus may be nil
// when only SyncAll is used.
func NewCatalogSyncService(
	records repositories.CurationRecordRepository,
	staging repositories.StagingRepository,
	writer providers.CatalogWriter,
	eventBus providers.EventBus,
) *CatalogSyncService {
	ctx, cancel := context.WithCancel(context.Background())
	return &CatalogSyncService{
		records:  records,
		staging:  staging,
		writer:   writer,
		eventBus: eventBus,
		retryCfg: retry.Config{
			MaxAttempts:     3,
			InitialDelay:    200 * time.Millisecond,
			MaxDelay:        2 * time.Second,
			BackoffFactor:   2.0,
			MaxTotalTimeout: 10 * time.Second,
		},
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins listening for curation events
func (s *CatalogSyncService) Start() error {
	if s.eventBus == nil {
		return fmt.Errorf("catalog sync needs an event bus")
	}
	eventChan, err := s.eventBus.Subscribe(s.ctx, providers.EventChannelCuration)
	if err != nil {
		return fmt.Errorf("failed to subscribe to curation events: %w", err)
	}

	s.wg.Add(1)
	go s.processEvents(eventChan)
	observability.GetLogger().Info().Msg("catalog sync service started")
	return nil
}

// Stop stops the catalog sync service and waits for the event loop to exit
func (s *CatalogSyncService) Stop() {
	s.cancel()
	s.wg.Wait()
	observability.GetLogger().Info().Msg("catalog sync service stopped")
}

func (s *CatalogSyncService) processEvents(eventChan <-chan *entities.CurationEvent) {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if event == nil {
				continue
			}
			ctx, cancel := context.WithTimeout(s.ctx, 15*time.Second)
			if err := s.HandleEvent(ctx, event); err != nil {
				observability.GetLogger().Warn().Err(err).
					Str("event_id", event.ID).
					Str("event_type", string(event.Type)).
					Str("entity_id", event.EntityID).
					Msg("catalog sync failed")
			}
			cancel()
		}
	}
}

// HandleEvent materializes the entity an event refers to. Events that do not
// touch the catalog are ignored.
func (s *CatalogSyncService) HandleEvent(ctx context.Context, event *entities.CurationEvent) error {
	switch event.Type {
	case entities.EventStagingApproved:
		component, err := s.staging.GetByID(ctx, event.EntityID)
		if err != nil {
			return err
		}
		if component.Status != entities.StagingApproved {
			return nil
		}
		return s.write(ctx, "component "+component.ID, func() error {
			return s.writer.UpsertComponent(ctx, component)
		})
	case entities.EventRecordPromoted:
		record, err := s.records.GetByID(ctx, event.EntityID)
		if err != nil {
			return err
		}
		if !record.IsFinal() {
			return nil
		}
		return s.write(ctx, "record "+record.ID, func() error {
			return s.writer.UpsertRecord(ctx, record)
		})
	case entities.EventRecordUpdated:
		// final records only change through the verified lock; keep the catalog copy current
		record, err := s.records.GetByID(ctx, event.EntityID)
		if err != nil {
			if apperrors.IsNotFound(err) {
				return nil
			}
			return err
		}
		if !record.IsFinal() {
			return nil
		}
		return s.write(ctx, "record "+record.ID, func() error {
			return s.writer.UpsertRecord(ctx, record)
		})
	}
	return nil
}

// SyncStats counts what a full resync wrote
type SyncStats struct {
	Records    int `json:"records"`
	Components int `json:"components"`
	Failed     int `json:"failed"`
}

// SyncAll re-materializes every final record and approved component, pageSize at a time
func (s *CatalogSyncService) SyncAll(ctx context.Context, pageSize int) (SyncStats, error) {
	if pageSize < 1 {
		pageSize = 100
	}
	var stats SyncStats
	logger := observability.LoggerFromContext(ctx)

	for offset := 0; ; offset += pageSize {
		records, err := s.records.List(ctx, repositories.RecordFilter{
			State:  entities.LifecycleFinal,
			Limit:  pageSize,
			Offset: offset,
		})
		if err != nil {
			return stats, err
		}
		for _, record := range records {
			if err := s.write(ctx, "record "+record.ID, func() error { return s.writer.UpsertRecord(ctx, record) }); err != nil {
				logger.Warn().Err(err).Str("record_id", record.ID).Msg("failed to index record")
				stats.Failed++
				continue
			}
			stats.Records++
		}
		if len(records) < pageSize {
			break
		}
	}

	for offset := 0; ; offset += pageSize {
		components, err := s.staging.List(ctx, repositories.StagingFilter{
			Status: entities.StagingApproved,
			Limit:  pageSize,
			Offset: offset,
		})
		if err != nil {
			return stats, err
		}
		for _, component := range components {
			if err := s.write(ctx, "component "+component.ID, func() error { return s.writer.UpsertComponent(ctx, component) }); err != nil {
				logger.Warn().Err(err).Str("component_id", component.ID).Msg("failed to index component")
				stats.Failed++
				continue
			}
			stats.Components++
		}
		if len(components) < pageSize {
			break
		}
	}

	logger.Info().
		Int("records", stats.Records).
		Int("components", stats.Components).
		Int("failed", stats.Failed).
		Msg("catalog resync finished")
	return stats, nil
}

func (s *CatalogSyncService) write(ctx context.Context, what string, fn func() error) error {
	return retry.DoWithLog(ctx, s.retryCfg, "catalog "+what, fn, func(attempt int, err error, next time.Duration) {
		observability.LoggerFromContext(ctx).Warn().Err(err).
			Int("attempt", attempt).
			Dur("next_delay", next).
			Msgf("catalog write for %s failed, retrying", what)
	})
}
