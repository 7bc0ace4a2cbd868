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
	"time"

	"github.com/beaconhq/beacon/pkg/metrics"
	"github.com/beaconhq/beacon/pkg/models"
)

// instrumentedStore wraps a StatusStore and records operation counts,
// durations and error outcomes for every call.
type instrumentedStore struct {
	next    StatusStore
	backend string
}

// NewInstrumentedStore decorates next with Prometheus instrumentation.
// backend labels the recorded series ("sqlite", "postgres", "memory").
func NewInstrumentedStore(next StatusStore, backend string) StatusStore {
	return &instrumentedStore{next: next, backend: backend}
}

// backendErr filters out not-found and conflict results, which are expected
// caller outcomes rather than backend failures.
func backendErr(err error) error {
	if IsNotFoundError(err) || IsConflictError(err) {
		return nil
	}
	return err
}

func (s *instrumentedStore) SaveEntity(ctx context.Context, entity *models.Entity) error {
	start := time.Now()
	err := s.next.SaveEntity(ctx, entity)
	metrics.ObserveStorageOperation("save_entity", s.backend, time.Since(start), backendErr(err))
	return err
}

func (s *instrumentedStore) GetEntity(ctx context.Context, id string) (*models.Entity, error) {
	start := time.Now()
	entity, err := s.next.GetEntity(ctx, id)
	metrics.ObserveStorageOperation("get_entity", s.backend, time.Since(start), backendErr(err))
	return entity, err
}

func (s *instrumentedStore) ListEntities(ctx context.Context) ([]*models.Entity, error) {
	start := time.Now()
	entities, err := s.next.ListEntities(ctx)
	metrics.ObserveStorageOperation("list_entities", s.backend, time.Since(start), err)
	return entities, err
}

func (s *instrumentedStore) DeleteEntity(ctx context.Context, id string) error {
	start := time.Now()
	err := s.next.DeleteEntity(ctx, id)
	metrics.ObserveStorageOperation("delete_entity", s.backend, time.Since(start), backendErr(err))
	return err
}

func (s *instrumentedStore) SaveStatus(ctx context.Context, update *models.StatusUpdate) error {
	start := time.Now()
	err := s.next.SaveStatus(ctx, update)
	metrics.ObserveStorageOperation("save_status", s.backend, time.Since(start), err)
	return err
}

func (s *instrumentedStore) GetStatus(ctx context.Context, entityID string) (*models.StatusUpdate, error) {
	start := time.Now()
	update, err := s.next.GetStatus(ctx, entityID)
	metrics.ObserveStorageOperation("get_status", s.backend, time.Since(start), backendErr(err))
	return update, err
}

func (s *instrumentedStore) ListStatusHistory(ctx context.Context, entityID string, limit int) ([]*models.StatusUpdate, error) {
	start := time.Now()
	updates, err := s.next.ListStatusHistory(ctx, entityID, limit)
	metrics.ObserveStorageOperation("list_status_history", s.backend, time.Since(start), err)
	return updates, err
}

func (s *instrumentedStore) Close() error {
	return s.next.Close()
}
