package services

import (
	"context"

	"github.com/adcatlas/curation-backend/internal/domain/entities"
	"github.com/adcatlas/curation-backend/internal/domain/providers"
	"github.com/adcatlas/curation-backend/internal/infrastructure/observability"
)

// publishEvent fans a committed transition out to the global and per-entity
// channels. The transition already happened, so publish failures are logged only.
func publishEvent(ctx context.Context, bus providers.EventBus, event *entities.CurationEvent) {
	if bus == nil || event == nil {
		return
	}
	logger := observability.LoggerFromContext(ctx)
	if err := bus.Publish(ctx, providers.EventChannelCuration, event); err != nil {
		logger.Warn().Err(err).Str("event_type", string(event.Type)).Str("entity_id", event.EntityID).
			Msg("failed to publish curation event")
		return
	}
	if err := bus.Publish(ctx, providers.GetRecordChannel(event.EntityID), event); err != nil {
		logger.Warn().Err(err).Str("entity_id", event.EntityID).Msg("failed to publish entity event")
	}
}
