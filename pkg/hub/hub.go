package hub

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/beaconhq/beacon/pkg/metrics"
)

const defaultBufferSize = 16

// Hub is the fan-out layer between status producers and stream subscribers.
// Publishers push named events for an entity; every active subscription on
// that entity receives them. Heartbeats are broadcast to all subscribers
// regardless of entity.
type Hub interface {
	// Publish delivers an event to every subscriber of an entity. Events
	// for entities nobody watches are dropped.
	Publish(ctx context.Context, entityID string, ev Event) error

	// Subscribe attaches a new subscriber to an entity stream. The entity
	// does not have to be registered; subscribers may attach before the
	// first status update arrives.
	Subscribe(entityID string) (*Subscription, error)

	// Close detaches all subscribers and shuts the hub down. Subscriber
	// channels are closed so stream handlers unblock.
	Close() error
}

// Options configures a hub.
type Options struct {
	// Backend selects the transport: BackendMemory (default) or BackendRedis.
	Backend string

	// BufferSize is the per-subscriber channel capacity.
	BufferSize int

	// HeartbeatInterval is how often liveness events are broadcast to all
	// subscribers. Zero or negative disables heartbeats.
	HeartbeatInterval time.Duration

	// RedisClient is required for BackendRedis. The hub does not own the
	// client and never closes it.
	RedisClient redis.UniversalClient

	// Logger defaults to a nop logger.
	Logger *zap.Logger
}

type hub struct {
	backend Backend
	logger  *zap.Logger

	mu     sync.RWMutex
	subs   map[string]map[string]chan Event
	closed bool

	bufferSize int

	heartbeatInterval time.Duration
	heartbeatCancel   context.CancelFunc
	wg                sync.WaitGroup
}

// New creates a hub using the backend selected in opts and starts the
// heartbeat broadcaster.
func New(opts Options) (Hub, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	bufferSize := opts.BufferSize
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	backendType := opts.Backend
	if backendType == "" {
		backendType = BackendMemory
	}

	h := &hub{
		logger:            logger,
		subs:              make(map[string]map[string]chan Event),
		bufferSize:        bufferSize,
		heartbeatInterval: opts.HeartbeatInterval,
	}

	switch backendType {
	case BackendMemory:
		h.backend = newMemoryBackend(h.deliver)
	case BackendRedis:
		if opts.RedisClient == nil {
			return nil, fmt.Errorf("hub backend %q requires a redis client", BackendRedis)
		}
		h.backend = newRedisBackend(opts.RedisClient, h.deliver, logger)
	default:
		return nil, fmt.Errorf("unknown hub backend: %s", backendType)
	}

	if h.heartbeatInterval > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		h.heartbeatCancel = cancel
		h.wg.Add(1)
		go h.heartbeatLoop(ctx)
	}

	logger.Info("Hub started",
		zap.String("backend", backendType),
		zap.Int("buffer_size", bufferSize),
		zap.Duration("heartbeat_interval", opts.HeartbeatInterval))

	return h, nil
}

func (h *hub) Publish(ctx context.Context, entityID string, ev Event) error {
	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		return ErrClosed
	}

	if err := h.backend.Publish(ctx, entityID, ev); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	metrics.EventsPublishedTotal.WithLabelValues(ev.Name).Inc()
	return nil
}

func (h *hub) Subscribe(entityID string) (*Subscription, error) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrClosed
	}

	id := uuid.New().String()
	ch := make(chan Event, h.bufferSize)
	if h.subs[entityID] == nil {
		h.subs[entityID] = make(map[string]chan Event)
	}
	h.subs[entityID][id] = ch
	metrics.SubscribersTotal.Inc()
	h.mu.Unlock()

	if err := h.backend.SubscribeEntity(entityID); err != nil {
		h.removeSubscriber(entityID, id)
		return nil, fmt.Errorf("failed to attach to entity stream: %w", err)
	}

	h.logger.Debug("Subscriber attached",
		zap.String("entity_id", entityID),
		zap.String("subscription_id", id))

	sub := &Subscription{
		ID:       id,
		EntityID: entityID,
		C:        ch,
	}
	sub.cancel = func() { h.removeSubscriber(entityID, id) }
	return sub, nil
}

func (h *hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true

	for _, subs := range h.subs {
		for _, ch := range subs {
			close(ch)
			metrics.SubscribersTotal.Dec()
		}
	}
	h.subs = make(map[string]map[string]chan Event)
	h.mu.Unlock()

	h.logger.Info("Shutting down hub")

	if h.heartbeatCancel != nil {
		h.heartbeatCancel()
	}
	h.wg.Wait()

	if err := h.backend.Close(); err != nil {
		return fmt.Errorf("failed to close hub backend: %w", err)
	}

	h.logger.Info("Hub shutdown complete")
	return nil
}

// deliver fans an event out to the local subscribers of an entity. Slow
// subscribers are skipped rather than blocking the stream.
func (h *hub) deliver(entityID string, ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}

	for id, ch := range h.subs[entityID] {
		select {
		case ch <- ev:
		default:
			metrics.EventsDroppedTotal.WithLabelValues(ev.Name).Inc()
			h.logger.Warn("Subscriber channel full, dropping event",
				zap.String("entity_id", entityID),
				zap.String("subscription_id", id),
				zap.String("event", ev.Name))
		}
	}
}

func (h *hub) heartbeatLoop(ctx context.Context) {
	defer h.wg.Done()

	ticker := time.NewTicker(h.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.broadcastHeartbeat()
		}
	}
}

// broadcastHeartbeat pushes one liveness event to every subscriber across
// all entities. Heartbeats stay node-local: each node times its own.
func (h *hub) broadcastHeartbeat() {
	ev := NewHeartbeatEvent(time.Now())

	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}

	delivered := false
	for entityID, subs := range h.subs {
		for id, ch := range subs {
			select {
			case ch <- ev:
				delivered = true
			default:
				metrics.EventsDroppedTotal.WithLabelValues(ev.Name).Inc()
				h.logger.Warn("Subscriber channel full, dropping event",
					zap.String("entity_id", entityID),
					zap.String("subscription_id", id),
					zap.String("event", ev.Name))
			}
		}
	}
	if delivered {
		metrics.HeartbeatsSentTotal.Inc()
	}
}

func (h *hub) removeSubscriber(entityID, id string) {
	h.mu.Lock()
	subs := h.subs[entityID]
	ch, ok := subs[id]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(subs, id)
	if len(subs) == 0 {
		delete(h.subs, entityID)
	}
	h.mu.Unlock()

	close(ch)
	metrics.SubscribersTotal.Dec()

	if err := h.backend.UnsubscribeEntity(entityID); err != nil {
		h.logger.Warn("Failed to release entity stream",
			zap.String("entity_id", entityID),
			zap.Error(err))
	}

	h.logger.Debug("Subscriber detached",
		zap.String("entity_id", entityID),
		zap.String("subscription_id", id))
}
