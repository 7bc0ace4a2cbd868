package hub

import "context"

// Backend is the transport behind a hub. The memory backend loops events
// straight back into the local hub; the redis backend carries them across
// nodes so a publish on any beacond instance reaches subscribers on all of
// them.
type Backend interface {
	// Publish pushes an event onto the entity's stream.
	Publish(ctx context.Context, entityID string, ev Event) error

	// SubscribeEntity is called once per local subscriber attaching to an
	// entity. Backends holding remote subscriptions refcount these calls.
	SubscribeEntity(entityID string) error

	// UnsubscribeEntity is called once per local subscriber detaching.
	UnsubscribeEntity(entityID string) error

	// Close releases all backend resources.
	Close() error
}

// memoryBackend is the single-process transport.
type memoryBackend struct {
	deliver func(entityID string, ev Event)
}

func newMemoryBackend(deliver func(entityID string, ev Event)) *memoryBackend {
	return &memoryBackend{deliver: deliver}
}

func (b *memoryBackend) Publish(_ context.Context, entityID string, ev Event) error {
	b.deliver(entityID, ev)
	return nil
}

func (b *memoryBackend) SubscribeEntity(string) error { return nil }

func (b *memoryBackend) UnsubscribeEntity(string) error { return nil }

func (b *memoryBackend) Close() error { return nil }
