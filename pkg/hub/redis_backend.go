package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// channelName builds the redis pub/sub channel carrying one entity's stream.
func channelName(entityID string) string {
	return "beacon:entity:" + entityID + ":status"
}

// redisBackend carries events over redis pub/sub so a publish on any beacond
// node reaches subscribers on every node. One redis subscription is held per
// entity with local subscribers, refcounted across attach/detach.
type redisBackend struct {
	client  redis.UniversalClient
	deliver func(entityID string, ev Event)
	logger  *zap.Logger

	mu      sync.Mutex
	streams map[string]*entityStream
	closed  bool
	wg      sync.WaitGroup
}

type entityStream struct {
	refs   int
	pubsub *redis.PubSub
}

func newRedisBackend(client redis.UniversalClient, deliver func(entityID string, ev Event), logger *zap.Logger) *redisBackend {
	return &redisBackend{
		client:  client,
		deliver: deliver,
		logger:  logger,
		streams: make(map[string]*entityStream),
	}
}

// Publish sends the event envelope to the entity channel. The publishing
// node receives its own events back through the bridge like any other node,
// so local and remote publishes take the same path to subscribers.
func (b *redisBackend) Publish(ctx context.Context, entityID string, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event envelope: %w", err)
	}
	if err := b.client.Publish(ctx, channelName(entityID), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish to redis: %w", err)
	}
	return nil
}

func (b *redisBackend) SubscribeEntity(entityID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	if s, ok := b.streams[entityID]; ok {
		s.refs++
		return nil
	}

	pubsub := b.client.Subscribe(context.Background(), channelName(entityID))
	b.streams[entityID] = &entityStream{refs: 1, pubsub: pubsub}

	b.wg.Add(1)
	go b.bridge(entityID, pubsub)

	b.logger.Debug("Opened redis entity subscription", zap.String("entity_id", entityID))
	return nil
}

func (b *redisBackend) UnsubscribeEntity(entityID string) error {
	b.mu.Lock()
	s, ok := b.streams[entityID]
	if !ok {
		b.mu.Unlock()
		return nil
	}
	s.refs--
	if s.refs > 0 {
		b.mu.Unlock()
		return nil
	}
	delete(b.streams, entityID)
	b.mu.Unlock()

	b.logger.Debug("Closed redis entity subscription", zap.String("entity_id", entityID))
	return s.pubsub.Close()
}

// bridge pumps messages from one entity channel into the local hub until the
// pubsub is closed.
func (b *redisBackend) bridge(entityID string, pubsub *redis.PubSub) {
	defer b.wg.Done()

	for msg := range pubsub.Channel() {
		var ev Event
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			b.logger.Warn("Discarding malformed event envelope",
				zap.String("channel", msg.Channel),
				zap.Error(err))
			continue
		}
		b.deliver(entityID, ev)
	}
}

// Close tears down every entity subscription and waits for the bridges to
// drain. The redis client is owned by the caller and stays open.
func (b *redisBackend) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	streams := b.streams
	b.streams = make(map[string]*entityStream)
	b.mu.Unlock()

	for _, s := range streams {
		if err := s.pubsub.Close(); err != nil {
			b.logger.Warn("Failed to close entity subscription", zap.Error(err))
		}
	}
	b.wg.Wait()
	return nil
}
