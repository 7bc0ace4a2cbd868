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

package statusclient

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultMaxReconnectAttempts is the retry ceiling applied when
	// Options.MaxReconnectAttempts is zero.
	DefaultMaxReconnectAttempts = 5
	// DefaultReconnectDelay is the backoff base applied when
	// Options.ReconnectDelay is zero.
	DefaultReconnectDelay = 1000 * time.Millisecond

	// maxBackoffShift caps the backoff exponent, bounding the delay at
	// 32x the base regardless of how many attempts have been made.
	maxBackoffShift = 5
)

// Config carries the construction parameters for a Client.
type Config struct {
	// BaseURL is the beacond server root, e.g. "http://localhost:9290".
	BaseURL string

	// EntityID selects the entity stream to subscribe to. Empty leaves
	// the client Idle with no transport; SetEntity starts it later.
	EntityID string

	Options Options
}

// Options tunes client behavior. The zero value selects the defaults:
// auto-reconnect on, five attempts, one second base delay, no debug logging.
type Options struct {
	// DisableAutoReconnect makes a transport error surface as a terminal
	// error instead of scheduling a retry. The flag is inverted so the
	// zero value keeps auto-reconnect on.
	DisableAutoReconnect bool

	// MaxReconnectAttempts is the retry ceiling. Once this many retry
	// cycles have completed without a successful open, the client stops
	// and reports a terminal error. Zero means DefaultMaxReconnectAttempts.
	MaxReconnectAttempts int

	// ReconnectDelay is the backoff base. The delay before retry n is
	// ReconnectDelay * 2^min(n, 5). Zero means DefaultReconnectDelay.
	ReconnectDelay time.Duration

	// Debug enables diagnostic logging. It has no effect on behavior or
	// timing.
	Debug bool

	// Logger overrides the logging sink. Nil means a no-op logger, or a
	// development logger when Debug is set.
	Logger *zap.Logger

	// HTTPClient overrides the transport. It must not carry a top-level
	// Timeout: the stream body stays open indefinitely. Nil means a
	// zero-value http.Client.
	HTTPClient *http.Client

	// Scheduler overrides the backoff timer source. Nil means the
	// runtime timer.
	Scheduler Scheduler
}

// withDefaults fills unset fields.
func (o Options) withDefaults() Options {
	if o.MaxReconnectAttempts == 0 {
		o.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if o.ReconnectDelay == 0 {
		o.ReconnectDelay = DefaultReconnectDelay
	}
	if o.Logger == nil {
		if o.Debug {
			if l, err := zap.NewDevelopment(); err == nil {
				o.Logger = l
			}
		}
		if o.Logger == nil {
			o.Logger = zap.NewNop()
		}
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{}
	}
	if o.Scheduler == nil {
		o.Scheduler = systemScheduler{}
	}
	return o
}
