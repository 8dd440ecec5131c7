package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/adcatlas/curation-backend/internal/domain/entities"
	"github.com/adcatlas/curation-backend/internal/domain/providers"
	redisclient "github.com/adcatlas/curation-backend/internal/infrastructure/clients/redis"
)

// subscriberBuffer bounds each subscriber; slow readers drop events rather than block delivery
const subscriberBuffer = 100

// ErrBusClosed is returned by Subscribe after Close
var ErrBusClosed = errors.New("event bus closed")

// RedisEventBus fans curation events out across processes over Redis Pub/Sub.
// One Redis subscription is shared by every local subscriber of a channel.
type RedisEventBus struct {
	rdb    *redis.Client
	ctx    context.Context
	cancel context.CancelFunc

	mu            sync.RWMutex
	closed        bool
	subscriptions map[string]*redis.PubSub
	subscribers   map[string]map[chan *entities.CurationEvent]struct{}
}

// NewRedisEventBus creates a new Redis-based event bus
func NewRedisEventBus(client *redisclient.Client) providers.EventBus {
	return newRedisEventBus(client.Client())
}

func newRedisEventBus(rdb *redis.Client) *RedisEventBus {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisEventBus{
		rdb:           rdb,
		ctx:           ctx,
		cancel:        cancel,
		subscriptions: make(map[string]*redis.PubSub),
		subscribers:   make(map[string]map[chan *entities.CurationEvent]struct{}),
	}
}

// Publish encodes the event as JSON on channel
func (b *RedisEventBus) Publish(ctx context.Context, channel string, event *entities.CurationEvent) error {
	if event == nil {
		return fmt.Errorf("cannot publish nil event")
	}
	if event.Type == "" {
		return fmt.Errorf("event %s has no type", event.ID)
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	receivers, err := b.rdb.Publish(ctx, channel, data).Result()
	if err != nil {
		return fmt.Errorf("failed to publish %s on %s: %w", event.Type, channel, err)
	}

	log.Debug().
		Str("channel", channel).
		Str("event_id", event.ID).
		Str("type", string(event.Type)).
		Str("entity_id", event.EntityID).
		Int64("receivers", receivers).
		Msg("Published curation event")
	return nil
}

// Subscribe returns a channel of events that closes when ctx is done,
// the channel is unsubscribed, or the bus is closed. The Redis subscription
// is confirmed before Subscribe returns.
func (b *RedisEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.CurationEvent, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrBusClosed
	}

	if _, exists := b.subscriptions[channel]; !exists {
		pubsub := b.rdb.Subscribe(b.ctx, channel)
		if _, err := pubsub.Receive(ctx); err != nil {
			_ = pubsub.Close()
			return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
		}
		b.subscriptions[channel] = pubsub
		go b.receiveMessages(channel, pubsub)
	}

	if b.subscribers[channel] == nil {
		b.subscribers[channel] = make(map[chan *entities.CurationEvent]struct{})
	}
	eventChan := make(chan *entities.CurationEvent, subscriberBuffer)
	b.subscribers[channel][eventChan] = struct{}{}

	log.Info().Str("channel", channel).Int("subscribers", len(b.subscribers[channel])).Msg("Subscribed to curation events")

	go func() {
		select {
		case <-ctx.Done():
			b.removeSubscriber(channel, eventChan)
		case <-b.ctx.Done():
		}
	}()

	return eventChan, nil
}

func (b *RedisEventBus) receiveMessages(channel string, pubsub *redis.PubSub) {
	ch := pubsub.Channel()
	for {
		select {
		case <-b.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				b.dropChannel(channel, pubsub)
				return
			}
			b.deliver(channel, msg.Payload)
		}
	}
}

func (b *RedisEventBus) deliver(channel, payload string) {
	var event entities.CurationEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		log.Warn().Err(err).Str("channel", channel).Msg("Dropping undecodable curation event")
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for subscriber := range b.subscribers[channel] {
		// each subscriber owns its copy
		ev := event
		ev.Fields = append([]string(nil), event.Fields...)
		select {
		case subscriber <- &ev:
		default:
			log.Warn().Str("channel", channel).Str("event_id", event.ID).Msg("Subscriber channel full, skipping event")
		}
	}
}

func (b *RedisEventBus) removeSubscriber(channel string, eventChan chan *entities.CurationEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subscribers := b.subscribers[channel]
	if _, ok := subscribers[eventChan]; !ok {
		return
	}
	delete(subscribers, eventChan)
	close(eventChan)

	if len(subscribers) == 0 {
		b.closeChannelLocked(channel)
	}
}

// dropChannel runs when Redis ends a subscription on its own
func (b *RedisEventBus) dropChannel(channel string, pubsub *redis.PubSub) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subscriptions[channel] != pubsub {
		return
	}
	if err := b.closeChannelLocked(channel); err != nil {
		log.Error().Err(err).Str("channel", channel).Msg("Failed to cleanup channel")
	}
}

func (b *RedisEventBus) closeChannelLocked(channel string) error {
	for subscriber := range b.subscribers[channel] {
		close(subscriber)
	}
	delete(b.subscribers, channel)

	pubsub, ok := b.subscriptions[channel]
	if !ok {
		return nil
	}
	delete(b.subscriptions, channel)
	if err := pubsub.Close(); err != nil {
		return fmt.Errorf("failed to close subscription %s: %w", channel, err)
	}
	log.Info().Str("channel", channel).Msg("Closed subscription")
	return nil
}

// Unsubscribe closes every local subscriber of channel
func (b *RedisEventBus) Unsubscribe(_ context.Context, channel string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closeChannelLocked(channel)
}

// Close ends all subscriptions; later Subscribe calls fail with ErrBusClosed
func (b *RedisEventBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	b.cancel()

	var errs []error
	for channel := range b.subscriptions {
		if err := b.closeChannelLocked(channel); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("errors closing event bus: %w", err)
	}

	log.Info().Msg("Event bus closed")
	return nil
}
