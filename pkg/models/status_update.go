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

import "time"

// Status represents the lifecycle state of a tracked entity
type Status string

const (
	StatusQueued     Status = "queued"     // Accepted but not yet started
	StatusProcessing Status = "processing" // Work in progress
	StatusCompleted  Status = "completed"  // Finished successfully
	StatusFailed     Status = "failed"     // Finished with an error
	StatusCancelled  Status = "cancelled"  // Aborted before completion
)

// KnownStatus reports whether s is one of the five lifecycle states.
// Consumers treat unknown values as opaque and pass them through; this
// helper exists for callers that want to gate on the canonical set.
func KnownStatus(s string) bool {
	switch Status(s) {
	case StatusQueued, StatusProcessing, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// StatusUpdate is a snapshot of an entity's progress as pushed over the
// event stream. Field names follow the wire protocol (camelCase JSON).
// All point-in-time fields are epoch milliseconds.
type StatusUpdate struct {
	ID          string `json:"id" db:"entity_id"`
	Status      string `json:"status" db:"status"`
	Progress    int    `json:"progress" db:"progress"`
	Timestamp   int64  `json:"timestamp" db:"timestamp"`
	CreatedAt   int64  `json:"createdAt,omitempty" db:"created_at"`
	UpdatedAt   int64  `json:"updatedAt,omitempty" db:"updated_at"`
	CompletedAt int64  `json:"completedAt,omitempty" db:"completed_at"`
	Error       string `json:"error,omitempty" db:"error"`
	RetryCount  int    `json:"retryCount,omitempty" db:"retry_count"`
}

// Terminal reports whether the update describes a finished entity.
func (u *StatusUpdate) Terminal() bool {
	switch Status(u.Status) {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// EpochMillis converts a time to the wire representation.
func EpochMillis(t time.Time) int64 {
	return t.UnixMilli()
}
