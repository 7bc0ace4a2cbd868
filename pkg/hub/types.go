package hub

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/beaconhq/beacon/pkg/models"
)

// ErrClosed is returned for operations on a hub that has been shut down.
var ErrClosed = errors.New("hub is closed")

// Backend type constants
const (
	// BackendMemory fans events out within a single process
	BackendMemory = "memory"
	// BackendRedis carries events over redis pub/sub across processes
	BackendRedis = "redis"
)

// Event is a single named event on an entity stream. Data carries the JSON
// payload exactly as it crosses the wire, so an event can be re-encoded for
// SSE, WebSocket or redis without another marshal of the domain model.
type Event struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data"`
}

// NewStatusEvent wraps a status update as a stream event.
func NewStatusEvent(update *models.StatusUpdate) (Event, error) {
	data, err := json.Marshal(update)
	if err != nil {
		return Event{}, err
	}
	return Event{Name: models.EventStatus, Data: data}, nil
}

// NewErrorEvent wraps an application-level error message as a stream event.
func NewErrorEvent(message string) Event {
	data, _ := json.Marshal(models.ErrorEvent{Message: message})
	return Event{Name: models.EventError, Data: data}
}

// NewHeartbeatEvent builds a liveness event stamped with epoch milliseconds.
func NewHeartbeatEvent(at time.Time) Event {
	data, _ := json.Marshal(models.HeartbeatEvent{Timestamp: at.UnixMilli()})
	return Event{Name: models.EventHeartbeat, Data: data}
}

// Subscription is one subscriber's attachment to an entity stream. Receive
// from C until it is closed; Cancel detaches and closes C.
type Subscription struct {
	ID       string
	EntityID string
	C        <-chan Event

	cancelOnce sync.Once
	cancel     func()
}

// Cancel detaches the subscription. Safe to call more than once.
func (s *Subscription) Cancel() {
	s.cancelOnce.Do(s.cancel)
}
