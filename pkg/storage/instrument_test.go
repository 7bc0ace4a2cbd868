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
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beaconhq/beacon/pkg/metrics"
)

func TestInstrumentedStore_PassThrough(t *testing.T) {
	metrics.SetEnabled(false)
	store := NewInstrumentedStore(NewMemoryStore(10), "memory")
	ctx := context.Background()

	entity := testEntity("inst-1", time.Now())
	require.NoError(t, store.SaveEntity(ctx, entity))

	got, err := store.GetEntity(ctx, "inst-1")
	require.NoError(t, err)
	assert.Equal(t, entity.Name, got.Name)

	entities, err := store.ListEntities(ctx)
	require.NoError(t, err)
	assert.Len(t, entities, 1)

	update := testUpdate("inst-1", "processing", 50)
	require.NoError(t, store.SaveStatus(ctx, update))

	latest, err := store.GetStatus(ctx, "inst-1")
	require.NoError(t, err)
	assert.Equal(t, update.Progress, latest.Progress)

	history, err := store.ListStatusHistory(ctx, "inst-1", 0)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	require.NoError(t, store.DeleteEntity(ctx, "inst-1"))
	require.NoError(t, store.Close())
}

func TestInstrumentedStore_PropagatesErrors(t *testing.T) {
	metrics.SetEnabled(false)
	store := NewInstrumentedStore(NewMemoryStore(10), "memory")
	ctx := context.Background()

	_, err := store.GetEntity(ctx, "missing")
	assert.True(t, IsNotFoundError(err))

	_, err = store.GetStatus(ctx, "missing")
	assert.True(t, IsNotFoundError(err))

	err = store.DeleteEntity(ctx, "missing")
	assert.True(t, IsNotFoundError(err))
}

func TestBackendErr(t *testing.T) {
	assert.NoError(t, backendErr(nil))
	assert.NoError(t, backendErr(ErrNotFound))
	assert.NoError(t, backendErr(fmt.Errorf("get entity: %w", ErrNotFound)))
	assert.NoError(t, backendErr(ErrConflict))
	assert.Error(t, backendErr(ErrDatabaseUnavailable))
	assert.Error(t, backendErr(errors.New("disk I/O error")))
}
