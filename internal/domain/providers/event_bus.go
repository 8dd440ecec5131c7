package providers

import (
	"context"

	"github.com/adcatlas/curation-backend/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to curation events
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.CurationEvent) error

	// Subscribe subscribes to events on a channel
	Subscribe(ctx context.Context, channel string) (<-chan *entities.CurationEvent, error)

	// Unsubscribe unsubscribes from a channel
	Unsubscribe(ctx context.Context, channel string) error

	// Close closes the event bus and all subscriptions
	Close() error
}

// EventChannel constants for different event streams
const (
	// EventChannelCuration carries every curation event
	EventChannelCuration = "curation:events"

	// EventChannelRecordPrefix is the prefix for record-specific channels
	EventChannelRecordPrefix = "curation:record:"
)

// GetRecordChannel returns the channel name for a specific record
func GetRecordChannel(recordID string) string {
	return EventChannelRecordPrefix + recordID
}
