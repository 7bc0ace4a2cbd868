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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beaconhq/beacon/pkg/models"
)

func testEntity(id string, createdAt time.Time) *models.Entity {
	return &models.Entity{
		ID:        id,
		Name:      "entity " + id,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func testUpdate(entityID, status string, progress int) *models.StatusUpdate {
	return &models.StatusUpdate{
		ID:        entityID,
		Status:    status,
		Progress:  progress,
		Timestamp: time.Now().UnixMilli(),
	}
}

func TestNewMemoryStore(t *testing.T) {
	ms := NewMemoryStore(100)

	assert.NotNil(t, ms)
	assert.NotNil(t, ms.entities)
	assert.NotNil(t, ms.latest)
	assert.NotNil(t, ms.history)
	assert.Equal(t, 100, ms.historyLimit)
}

func TestMemoryStore_EntityCRUD(t *testing.T) {
	ms := NewMemoryStore(0)
	ctx := context.Background()

	entity := testEntity("job-1", time.Now())
	require.NoError(t, ms.SaveEntity(ctx, entity))

	// Duplicate ID conflicts
	err := ms.SaveEntity(ctx, testEntity("job-1", time.Now()))
	assert.True(t, IsConflictError(err))

	got, err := ms.GetEntity(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, entity, got)

	_, err = ms.GetEntity(ctx, "missing")
	assert.True(t, IsNotFoundError(err))

	require.NoError(t, ms.DeleteEntity(ctx, "job-1"))
	_, err = ms.GetEntity(ctx, "job-1")
	assert.True(t, IsNotFoundError(err))

	err = ms.DeleteEntity(ctx, "job-1")
	assert.True(t, IsNotFoundError(err))
}

func TestMemoryStore_ListEntities_NewestFirst(t *testing.T) {
	ms := NewMemoryStore(0)
	ctx := context.Background()

	base := time.Now()
	require.NoError(t, ms.SaveEntity(ctx, testEntity("old", base.Add(-2*time.Hour))))
	require.NoError(t, ms.SaveEntity(ctx, testEntity("new", base)))
	require.NoError(t, ms.SaveEntity(ctx, testEntity("mid", base.Add(-time.Hour))))

	entities, err := ms.ListEntities(ctx)
	require.NoError(t, err)
	require.Len(t, entities, 3)
	assert.Equal(t, "new", entities[0].ID)
	assert.Equal(t, "mid", entities[1].ID)
	assert.Equal(t, "old", entities[2].ID)
}

func TestMemoryStore_StatusRoundTrip(t *testing.T) {
	ms := NewMemoryStore(0)
	ctx := context.Background()

	// Status feeds do not require a registered entity
	_, err := ms.GetStatus(ctx, "job-1")
	assert.True(t, IsNotFoundError(err))

	require.NoError(t, ms.SaveStatus(ctx, testUpdate("job-1", "queued", 0)))
	require.NoError(t, ms.SaveStatus(ctx, testUpdate("job-1", "processing", 50)))

	got, err := ms.GetStatus(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, "processing", got.Status)
	assert.Equal(t, 50, got.Progress)

	history, err := ms.ListStatusHistory(ctx, "job-1", 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "processing", history[0].Status, "newest first")
	assert.Equal(t, "queued", history[1].Status)

	limited, err := ms.ListStatusHistory(ctx, "job-1", 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "processing", limited[0].Status)
}

func TestMemoryStore_HistoryTrim(t *testing.T) {
	ms := NewMemoryStore(3)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, ms.SaveStatus(ctx, testUpdate("job-1", fmt.Sprintf("step-%d", i), i*10)))
	}

	history, err := ms.ListStatusHistory(ctx, "job-1", 0)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "step-9", history[0].Status)
	assert.Equal(t, "step-8", history[1].Status)
	assert.Equal(t, "step-7", history[2].Status)

	// Latest still tracks the last write
	got, err := ms.GetStatus(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, "step-9", got.Status)
}

func TestMemoryStore_DeleteEntityDropsStatus(t *testing.T) {
	ms := NewMemoryStore(0)
	ctx := context.Background()

	require.NoError(t, ms.SaveEntity(ctx, testEntity("job-1", time.Now())))
	require.NoError(t, ms.SaveStatus(ctx, testUpdate("job-1", "processing", 10)))

	require.NoError(t, ms.DeleteEntity(ctx, "job-1"))

	_, err := ms.GetStatus(ctx, "job-1")
	assert.True(t, IsNotFoundError(err))

	history, err := ms.ListStatusHistory(ctx, "job-1", 0)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestMemoryStore_Close(t *testing.T) {
	ms := NewMemoryStore(0)
	assert.NoError(t, ms.Close())
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	ms := NewMemoryStore(50)
	ctx := context.Background()

	done := make(chan struct{})
	for g := 0; g < 8; g++ {
		go func(g int) {
			defer func() { done <- struct{}{} }()
			id := fmt.Sprintf("job-%d", g)
			for i := 0; i < 100; i++ {
				_ = ms.SaveStatus(ctx, testUpdate(id, "processing", i))
				_, _ = ms.GetStatus(ctx, id)
				_, _ = ms.ListStatusHistory(ctx, id, 10)
			}
		}(g)
	}
	for g := 0; g < 8; g++ {
		<-done
	}

	for g := 0; g < 8; g++ {
		got, err := ms.GetStatus(ctx, fmt.Sprintf("job-%d", g))
		require.NoError(t, err)
		assert.Equal(t, 99, got.Progress)
	}
}
