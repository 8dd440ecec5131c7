package events

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/adcatlas/curation-backend/internal/domain/entities"
	"github.com/adcatlas/curation-backend/internal/domain/providers"
)

// LocalEventBus fans events out to in-process subscribers. Used when Redis is disabled.
type LocalEventBus struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan *entities.CurationEvent]struct{}
}

// NewLocalEventBus creates an in-process event bus
func NewLocalEventBus() providers.EventBus {
	return &LocalEventBus{
		subscribers: make(map[string]map[chan *entities.CurationEvent]struct{}),
	}
}

// Publish delivers event to every current subscriber of channel without blocking
func (b *LocalEventBus) Publish(_ context.Context, channel string, event *entities.CurationEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subscribers[channel] {
		select {
		case sub <- event:
		default:
			log.Warn().Str("channel", channel).Str("event_id", event.ID).Msg("Subscriber channel full, skipping event")
		}
	}
	return nil
}

// Subscribe registers a subscriber until ctx is done
func (b *LocalEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.CurationEvent, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subscribers[channel] == nil {
		b.subscribers[channel] = make(map[chan *entities.CurationEvent]struct{})
	}
	ch := make(chan *entities.CurationEvent, 100)
	b.subscribers[channel][ch] = struct{}{}

	go func() {
		<-ctx.Done()
		b.remove(channel, ch)
	}()
	return ch, nil
}

func (b *LocalEventBus) remove(channel string, ch chan *entities.CurationEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subscribers[channel][ch]; !ok {
		return
	}
	delete(b.subscribers[channel], ch)
	close(ch)
	if len(b.subscribers[channel]) == 0 {
		delete(b.subscribers, channel)
	}
}

// Unsubscribe closes every subscriber of channel
func (b *LocalEventBus) Unsubscribe(_ context.Context, channel string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subscribers[channel] {
		close(ch)
	}
	delete(b.subscribers, channel)
	return nil
}

// Close closes all subscriptions
func (b *LocalEventBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for channel, subs := range b.subscribers {
		for ch := range subs {
			close(ch)
		}
		delete(b.subscribers, channel)
	}
	return nil
}
