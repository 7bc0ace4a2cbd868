/*
 * Copyright (c) 2026, Beacon HQ (https://github.com/beaconhq).
 *
 * Beacon HQ licenses this file to you under the Apache License,
 * Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

// Package statusclient maintains a live subscription to one entity's status
// stream on a beacond server. It consumes the text/event-stream endpoint
// GET /entities/{id}/events, surfaces status updates and connection state to
// the caller, and reconnects after transport failures with bounded
// exponential backoff.
package statusclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/beaconhq/beacon/pkg/models"
	"github.com/beaconhq/beacon/pkg/sse"
	"go.uber.org/zap"
)

// Error strings surfaced through the Err accessor. They are fixed so UIs
// can match on them.
const (
	errMsgParse     = "Failed to parse status update"
	errMsgLost      = "Connection lost"
	errMsgNoConnect = "Failed to connect"
)

// Snapshot is a point-in-time copy of the observable client state.
type Snapshot struct {
	State             State
	Status            *models.StatusUpdate // last status update, nil before the first
	Err               string               // surfaced error message, empty when none
	Connected         bool
	Reconnecting      bool
	ReconnectAttempts int
}

// Client manages the event stream subscription for a single entity
type Client struct {
	baseURL string
	opts    Options
	logger  *zap.Logger

	mu            sync.RWMutex
	entityID      string
	state         State
	status        *models.StatusUpdate
	lastErr       string
	attempts      int
	lastHeartbeat time.Time
	generation    uint64
	disposed      bool
	streamCancel  context.CancelFunc
	timer         Timer
	observers     map[uint64]func(Snapshot)
	nextObserver  uint64

	wg sync.WaitGroup
}

// NewClient creates a new status stream client. When cfg.EntityID is set the
// client starts connecting immediately; otherwise it stays Idle until
// SetEntity is called.
func NewClient(cfg Config) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		opts:      cfg.Options.withDefaults(),
		state:     Idle,
		observers: make(map[uint64]func(Snapshot)),
	}
	c.logger = c.opts.Logger

	if cfg.EntityID != "" {
		c.mu.Lock()
		c.entityID = cfg.EntityID
		c.connectLocked()
		c.mu.Unlock()
	}

	return c
}

// connectLocked starts a new stream goroutine for the current entity id.
// Callers are responsible for having torn down any previous stream. The
// generation bump makes callbacks from older streams no-ops.
func (c *Client) connectLocked() {
	c.generation++
	gen := c.generation

	ctx, cancel := context.WithCancel(context.Background())
	c.streamCancel = cancel
	c.setStateLocked(Connecting)

	c.logger.Debug("Connecting to status stream",
		zap.String("entity_id", c.entityID),
		zap.Int("attempts", c.attempts),
	)

	c.wg.Add(1)
	go c.run(ctx, gen, c.streamURL(c.entityID))
}

// run owns one transport connection: it dials the stream, reports the open,
// and pumps decoded events until the stream breaks or is canceled.
func (c *Client) run(ctx context.Context, gen uint64, streamURL string) {
	defer c.wg.Done()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, nil)
	if err != nil {
		c.handleTransportFailure(gen, false, err)
		return
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.opts.HTTPClient.Do(req)
	if err != nil {
		c.handleTransportFailure(gen, false, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.handleTransportFailure(gen, false, fmt.Errorf("unexpected response status %d", resp.StatusCode))
		return
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "text/event-stream") {
		c.handleTransportFailure(gen, false, fmt.Errorf("unexpected content type %q", ct))
		return
	}

	if !c.markConnected(gen) {
		// A teardown or entity switch won the race; this stream is stale.
		return
	}

	dec := sse.NewDecoder(resp.Body)
	for {
		ev, err := dec.Next()
		if err != nil {
			c.handleTransportFailure(gen, true, err)
			return
		}
		c.handleEvent(gen, ev)
	}
}

// markConnected transitions to Connected and resets the retry budget. It
// reports false when the stream is stale and must shut itself down.
func (c *Client) markConnected(gen uint64) bool {
	c.mu.Lock()
	if c.disposed || gen != c.generation {
		c.mu.Unlock()
		return false
	}

	c.attempts = 0
	c.lastErr = ""
	c.setStateLocked(Connected)

	notify := c.prepareNotifyLocked()
	c.mu.Unlock()
	notify()
	return true
}

// handleEvent applies one decoded stream event to the client state.
func (c *Client) handleEvent(gen uint64, ev sse.Event) {
	c.mu.Lock()
	if c.disposed || gen != c.generation {
		c.mu.Unlock()
		return
	}

	switch ev.Name {
	case models.EventStatus:
		var update models.StatusUpdate
		if err := json.Unmarshal(ev.Data, &update); err != nil {
			// A malformed payload is not fatal: the stream stays open
			// and the previous status value is retained.
			c.logger.Warn("Failed to parse status update",
				zap.Error(err),
			)
			c.lastErr = errMsgParse
		} else {
			c.status = &update
			c.logger.Debug("Status update received",
				zap.String("entity_id", update.ID),
				zap.String("status", update.Status),
				zap.Int("progress", update.Progress),
			)
		}

	case models.EventHeartbeat:
		// Liveness only. No observer notification: a heartbeat must not
		// look like a state change.
		c.lastHeartbeat = time.Now()
		c.mu.Unlock()
		return

	case models.EventError:
		var serverErr models.ErrorEvent
		if err := json.Unmarshal(ev.Data, &serverErr); err != nil || serverErr.Message == "" {
			c.lastErr = string(ev.Data)
		} else {
			c.lastErr = serverErr.Message
		}
		c.logger.Warn("Server error event",
			zap.String("message", c.lastErr),
		)

	default:
		c.logger.Debug("Ignoring unknown event",
			zap.String("event", ev.Name),
		)
		c.mu.Unlock()
		return
	}

	notify := c.prepareNotifyLocked()
	c.mu.Unlock()
	notify()
}

// handleTransportFailure reacts to a broken or unopenable stream: either a
// retry timer is armed per the backoff policy, or the failure is terminal.
// opened records whether this stream ever reached Connected, which selects
// the terminal error message.
func (c *Client) handleTransportFailure(gen uint64, opened bool, err error) {
	c.mu.Lock()
	if c.disposed || gen != c.generation {
		c.mu.Unlock()
		return
	}

	if c.opts.DisableAutoReconnect || c.attempts >= c.opts.MaxReconnectAttempts {
		if opened {
			c.lastErr = errMsgLost
		} else {
			c.lastErr = errMsgNoConnect
		}
		c.setStateLocked(Failed)

		c.logger.Warn("Giving up on status stream",
			zap.Error(err),
			zap.Int("attempts", c.attempts),
		)

		notify := c.prepareNotifyLocked()
		c.mu.Unlock()
		notify()
		return
	}

	delay := c.backoffDelayLocked()
	c.setStateLocked(Reconnecting)

	c.logger.Debug("Connection failed, will retry",
		zap.Error(err),
		zap.Duration("retry_delay", delay),
		zap.Int("attempts", c.attempts),
	)

	c.timer = c.opts.Scheduler.ScheduleAfter(delay, func() {
		c.onBackoffFire(gen)
	})

	notify := c.prepareNotifyLocked()
	c.mu.Unlock()
	notify()
}

// backoffDelayLocked returns the delay before the next retry cycle:
// ReconnectDelay * 2^min(attempts, maxBackoffShift).
func (c *Client) backoffDelayLocked() time.Duration {
	shift := c.attempts
	if shift > maxBackoffShift {
		shift = maxBackoffShift
	}
	return c.opts.ReconnectDelay * time.Duration(1<<uint(shift))
}

// onBackoffFire runs when the retry timer elapses: it counts the completed
// cycle and dials again.
func (c *Client) onBackoffFire(gen uint64) {
	c.mu.Lock()
	if c.disposed || gen != c.generation || c.state != Reconnecting {
		c.mu.Unlock()
		return
	}

	c.attempts++
	c.timer = nil
	c.connectLocked()

	notify := c.prepareNotifyLocked()
	c.mu.Unlock()
	notify()
}

// teardownLocked stops the stream and any pending retry timer. Callbacks
// already in flight observe the generation bump and drop out.
func (c *Client) teardownLocked() {
	c.generation++
	if c.streamCancel != nil {
		c.streamCancel()
		c.streamCancel = nil
	}
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// Disconnect tears down the transport, cancels any pending retry, and
// resets the observable state. The client stays usable: Reconnect or
// SetEntity starts a new subscription. Safe to call repeatedly.
func (c *Client) Disconnect() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}

	c.teardownLocked()
	c.status = nil
	c.lastErr = ""
	c.attempts = 0
	c.setStateLocked(Disconnected)

	notify := c.prepareNotifyLocked()
	c.mu.Unlock()
	notify()
}

// Reconnect resets the retry budget, clears the surfaced error, and dials
// again immediately with no delay. It is the caller's lever after the retry
// ceiling has been reached. Without an entity id it is a no-op.
func (c *Client) Reconnect() {
	c.mu.Lock()
	if c.disposed || c.entityID == "" {
		c.mu.Unlock()
		return
	}

	c.teardownLocked()
	c.attempts = 0
	c.lastErr = ""
	c.connectLocked()

	notify := c.prepareNotifyLocked()
	c.mu.Unlock()
	notify()
}

// SetEntity switches the subscription to a different entity id. The old
// transport is torn down first and the retry budget, status, and error
// reset. An empty id returns the client to Idle.
func (c *Client) SetEntity(id string) {
	c.mu.Lock()
	if c.disposed || id == c.entityID {
		c.mu.Unlock()
		return
	}

	c.teardownLocked()
	c.entityID = id
	c.status = nil
	c.lastErr = ""
	c.attempts = 0

	if id == "" {
		c.setStateLocked(Idle)
	} else {
		c.connectLocked()
	}

	notify := c.prepareNotifyLocked()
	c.mu.Unlock()
	notify()
}

// Close permanently disposes the client: the stream is closed, timers are
// cleared, observers are dropped, and every later operation or transport
// callback is a no-op. It waits for the stream goroutine to exit.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return nil
	}

	c.disposed = true
	c.teardownLocked()
	c.status = nil
	c.lastErr = ""
	c.attempts = 0
	c.setStateLocked(Disconnected)
	c.observers = make(map[uint64]func(Snapshot))
	c.mu.Unlock()

	c.wg.Wait()
	return nil
}

// OnChange registers fn to run after each observable state change. The
// returned cancel function removes the registration. fn runs on the
// goroutine that produced the change and must not block.
func (c *Client) OnChange(fn func(Snapshot)) (cancel func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return func() {}
	}

	id := c.nextObserver
	c.nextObserver++
	c.observers[id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.observers, id)
	}
}

// prepareNotifyLocked captures the snapshot and subscriber list under the
// lock; the returned closure runs the callbacks without it, in registration
// order.
func (c *Client) prepareNotifyLocked() func() {
	if len(c.observers) == 0 {
		return func() {}
	}

	snap := c.snapshotLocked()
	ids := make([]uint64, 0, len(c.observers))
	for id := range c.observers {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	fns := make([]func(Snapshot), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, c.observers[id])
	}

	return func() {
		for _, fn := range fns {
			fn(snap)
		}
	}
}

// setState updates the connection state
func (c *Client) setStateLocked(newState State) {
	oldState := c.state
	c.state = newState

	if oldState != newState {
		c.logger.Debug("Connection state changed",
			zap.String("from", oldState.String()),
			zap.String("to", newState.String()),
		)
	}
}

func (c *Client) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:             c.state,
		Err:               c.lastErr,
		Connected:         c.state == Connected,
		Reconnecting:      c.state == Reconnecting,
		ReconnectAttempts: c.attempts,
	}
	if c.status != nil {
		cp := *c.status
		snap.Status = &cp
	}
	return snap
}

// Snapshot returns a point-in-time copy of the observable state.
func (c *Client) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

// GetState returns the current connection state (thread-safe)
func (c *Client) GetState() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// IsConnected returns true if the stream is currently open
func (c *Client) IsConnected() bool {
	return c.GetState() == Connected
}

// IsReconnecting returns true if a retry timer is armed
func (c *Client) IsReconnecting() bool {
	return c.GetState() == Reconnecting
}

// Status returns the most recent status update, nil before the first one.
// The returned value is a copy the caller may keep.
func (c *Client) Status() *models.StatusUpdate {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.status == nil {
		return nil
	}
	cp := *c.status
	return &cp
}

// Err returns the surfaced error message, empty when none.
func (c *Client) Err() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// ReconnectAttempts returns the completed retry cycles since the last
// successful open.
func (c *Client) ReconnectAttempts() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.attempts
}

// LastHeartbeat returns the arrival time of the most recent heartbeat
// event, zero before the first.
func (c *Client) LastHeartbeat() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastHeartbeat
}

// EntityID returns the currently subscribed entity id.
func (c *Client) EntityID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entityID
}

// streamURL constructs the event stream URL for an entity
func (c *Client) streamURL(entityID string) string {
	return fmt.Sprintf("%s/entities/%s/events", c.baseURL, url.PathEscape(entityID))
}
