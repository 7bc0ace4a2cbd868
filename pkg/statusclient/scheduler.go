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

import "time"

// Scheduler arms the reconnect backoff timer. It exists as an interface so
// tests can drive the backoff deterministically with a fake clock.
type Scheduler interface {
	// ScheduleAfter runs fn once after d has elapsed. fn runs on its own
	// goroutine.
	ScheduleAfter(d time.Duration, fn func()) Timer
}

// Timer is a handle to a scheduled callback.
type Timer interface {
	// Stop cancels the callback. It reports whether the callback was
	// still pending.
	Stop() bool
}

// systemScheduler is the production Scheduler backed by the runtime timer.
type systemScheduler struct{}

func (systemScheduler) ScheduleAfter(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}
