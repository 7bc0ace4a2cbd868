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
	"fmt"
	"sort"
	"sync"

	"github.com/beaconhq/beacon/pkg/models"
)

// MemoryStore holds entities and status updates in memory. It is the
// default backend for redis-less single-node deployments and for tests.
type MemoryStore struct {
	mu       sync.RWMutex
	entities map[string]*models.Entity
	latest   map[string]*models.StatusUpdate
	history  map[string][]*models.StatusUpdate // oldest first

	// historyLimit caps retained updates per entity; 0 keeps everything
	historyLimit int
}

// NewMemoryStore creates a new in-memory status store
func NewMemoryStore(historyLimit int) *MemoryStore {
	return &MemoryStore{
		entities:     make(map[string]*models.Entity),
		latest:       make(map[string]*models.StatusUpdate),
		history:      make(map[string][]*models.StatusUpdate),
		historyLimit: historyLimit,
	}
}

// SaveEntity stores a new entity in memory
func (s *MemoryStore) SaveEntity(ctx context.Context, entity *models.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entities[entity.ID]; exists {
		return fmt.Errorf("%w: entity with ID '%s' already exists", ErrConflict, entity.ID)
	}

	s.entities[entity.ID] = entity
	return nil
}

// GetEntity retrieves an entity by ID
func (s *MemoryStore) GetEntity(ctx context.Context, id string) (*models.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entity, exists := s.entities[id]
	if !exists {
		return nil, fmt.Errorf("%w: id=%s", ErrNotFound, id)
	}
	return entity, nil
}

// ListEntities returns all entities, newest first
func (s *MemoryStore) ListEntities(ctx context.Context) ([]*models.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.Entity, 0, len(s.entities))
	for _, entity := range s.entities {
		result = append(result, entity)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// DeleteEntity removes an entity and its status history
func (s *MemoryStore) DeleteEntity(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entities[id]; !exists {
		return fmt.Errorf("%w: id=%s", ErrNotFound, id)
	}

	delete(s.entities, id)
	delete(s.latest, id)
	delete(s.history, id)
	return nil
}

// SaveStatus appends a status update. Entities do not need to be
// registered first; status feeds and the entity registry are independent.
func (s *MemoryStore) SaveStatus(ctx context.Context, update *models.StatusUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.latest[update.ID] = update

	h := append(s.history[update.ID], update)
	if s.historyLimit > 0 && len(h) > s.historyLimit {
		h = h[len(h)-s.historyLimit:]
	}
	s.history[update.ID] = h
	return nil
}

// GetStatus returns the latest status update for an entity
func (s *MemoryStore) GetStatus(ctx context.Context, entityID string) (*models.StatusUpdate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	update, exists := s.latest[entityID]
	if !exists {
		return nil, fmt.Errorf("%w: no status for entity '%s'", ErrNotFound, entityID)
	}
	return update, nil
}

// ListStatusHistory returns up to limit most recent updates, newest first
func (s *MemoryStore) ListStatusHistory(ctx context.Context, entityID string, limit int) ([]*models.StatusUpdate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h := s.history[entityID]
	n := len(h)
	if limit > 0 && limit < n {
		n = limit
	}

	result := make([]*models.StatusUpdate, 0, n)
	for i := len(h) - 1; i >= len(h)-n; i-- {
		result = append(result, h[i])
	}
	return result, nil
}

// Close is a no-op for the in-memory store
func (s *MemoryStore) Close() error {
	return nil
}
