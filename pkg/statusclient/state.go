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

// State represents the connection state
type State int

const (
	// Idle state - no entity selected, no transport
	Idle State = iota
	// Connecting state - attempting to establish the stream
	Connecting
	// Connected state - live stream delivering events
	Connected
	// Reconnecting state - backoff timer armed after a transport failure
	Reconnecting
	// Failed state - retry ceiling reached or auto-reconnect disabled;
	// only Reconnect revives the subscription
	Failed
	// Disconnected state - torn down by Disconnect or Close
	Disconnected
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	case Failed:
		return "failed"
	case Disconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}
