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

package models

// Named event types carried on an entity event stream. The names are part
// of the wire contract between beacond and its subscribers.
const (
	// EventStatus carries a JSON-encoded StatusUpdate.
	EventStatus = "status"
	// EventHeartbeat proves transport liveness; subscribers discard it.
	EventHeartbeat = "heartbeat"
	// EventError carries an application-level error unrelated to
	// transport health.
	EventError = "error"
)

// HeartbeatEvent is the payload of a heartbeat event.
type HeartbeatEvent struct {
	Timestamp int64 `json:"timestamp"`
}

// ErrorEvent is the payload of a named error event.
type ErrorEvent struct {
	Message string `json:"message"`
}
