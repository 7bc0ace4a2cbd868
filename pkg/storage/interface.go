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

package storage

import (
	"context"

	"github.com/beaconhq/beacon/pkg/models"
)

// StatusStore is the interface for persisting entities and their status
// updates. Implementations keep one latest update per entity plus a bounded
// history.
type StatusStore interface {
	// SaveEntity persists a new entity
	SaveEntity(ctx context.Context, entity *models.Entity) error

	// GetEntity retrieves an entity by ID
	GetEntity(ctx context.Context, id string) (*models.Entity, error)

	// ListEntities retrieves all registered entities
	ListEntities(ctx context.Context) ([]*models.Entity, error)

	// DeleteEntity removes an entity and its status history
	DeleteEntity(ctx context.Context, id string) error

	// SaveStatus appends a status update for an entity
	SaveStatus(ctx context.Context, update *models.StatusUpdate) error

	// GetStatus retrieves the latest status update for an entity
	GetStatus(ctx context.Context, entityID string) (*models.StatusUpdate, error)

	// ListStatusHistory retrieves up to limit most recent status updates for
	// an entity, newest first. limit <= 0 means no cap.
	ListStatusHistory(ctx context.Context, entityID string, limit int) ([]*models.StatusUpdate, error)

	// Close closes the storage connection
	Close() error
}
