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
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
	"gotest.tools/v3/assert"

	"github.com/beaconhq/beacon/pkg/models"
)

func setupTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	storage, err := NewSQLiteStorage(dbPath, 0, zap.NewNop())
	assert.NilError(t, err)
	t.Cleanup(func() { storage.Close() })
	return storage
}

func TestNewSQLiteStorage_Success(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	storage, err := NewSQLiteStorage(dbPath, 100, zap.NewNop())
	assert.NilError(t, err)
	assert.Assert(t, storage != nil)
	assert.Assert(t, storage.db != nil)
	assert.Equal(t, storage.historyLimit, 100)
	storage.Close()
}

func TestNewSQLiteStorage_InvalidPath(t *testing.T) {
	// Try to create database in non-existent directory
	_, err := NewSQLiteStorage("/non/existent/path/test.db", 0, zap.NewNop())
	assert.Assert(t, err != nil)
}

func TestSQLiteStorage_SchemaInitialization(t *testing.T) {
	storage := setupTestStorage(t)

	// Verify schema version is set correctly
	var version int
	err := storage.db.QueryRow("PRAGMA user_version").Scan(&version)
	assert.NilError(t, err)
	assert.Equal(t, version, 1)

	// Verify tables exist
	for _, table := range []string{"entities", "status_updates"} {
		var exists bool
		err = storage.db.QueryRow(
			"SELECT COUNT(*) > 0 FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&exists)
		assert.NilError(t, err, "Failed to check existence of table: %s", table)
		assert.Assert(t, exists, "Table %s should exist", table)
	}
}

func TestSQLiteStorage_ReopenExistingSchema(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	storage, err := NewSQLiteStorage(dbPath, 0, zap.NewNop())
	assert.NilError(t, err)
	assert.NilError(t, storage.SaveEntity(context.Background(), sqliteTestEntity("job-1")))
	assert.NilError(t, storage.Close())

	// Reopen; data must survive and schema init must not run again
	storage, err = NewSQLiteStorage(dbPath, 0, zap.NewNop())
	assert.NilError(t, err)
	defer storage.Close()

	entity, err := storage.GetEntity(context.Background(), "job-1")
	assert.NilError(t, err)
	assert.Equal(t, entity.ID, "job-1")
}

func sqliteTestEntity(id string) *models.Entity {
	now := time.Now().UTC().Truncate(time.Second)
	return &models.Entity{
		ID:        id,
		Name:      "entity " + id,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func sqliteTestUpdate(entityID, status string, progress int) *models.StatusUpdate {
	return &models.StatusUpdate{
		ID:        entityID,
		Status:    status,
		Progress:  progress,
		Timestamp: time.Now().UnixMilli(),
	}
}

func TestSQLiteStorage_SaveEntity_Conflict(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	assert.NilError(t, storage.SaveEntity(ctx, sqliteTestEntity("job-1")))

	err := storage.SaveEntity(ctx, sqliteTestEntity("job-1"))
	assert.Assert(t, errors.Is(err, ErrConflict))
}

func TestSQLiteStorage_GetEntity_NotFound(t *testing.T) {
	storage := setupTestStorage(t)

	_, err := storage.GetEntity(context.Background(), "non-existent-id")
	assert.Assert(t, errors.Is(err, ErrNotFound))
}

func TestSQLiteStorage_GetEntity_Success(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	original := sqliteTestEntity("job-1")
	assert.NilError(t, storage.SaveEntity(ctx, original))

	entity, err := storage.GetEntity(ctx, "job-1")
	assert.NilError(t, err)
	assert.Equal(t, entity.ID, original.ID)
	assert.Equal(t, entity.Name, original.Name)
	assert.Assert(t, entity.CreatedAt.Equal(original.CreatedAt))
}

func TestSQLiteStorage_ListEntities(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	entities, err := storage.ListEntities(ctx)
	assert.NilError(t, err)
	assert.Equal(t, len(entities), 0)

	base := time.Now().UTC().Truncate(time.Second)
	old := sqliteTestEntity("old")
	old.CreatedAt = base.Add(-2 * time.Hour)
	recent := sqliteTestEntity("recent")
	recent.CreatedAt = base

	assert.NilError(t, storage.SaveEntity(ctx, old))
	assert.NilError(t, storage.SaveEntity(ctx, recent))

	entities, err = storage.ListEntities(ctx)
	assert.NilError(t, err)
	assert.Equal(t, len(entities), 2)
	assert.Equal(t, entities[0].ID, "recent")
	assert.Equal(t, entities[1].ID, "old")
}

func TestSQLiteStorage_DeleteEntity_NotFound(t *testing.T) {
	storage := setupTestStorage(t)

	err := storage.DeleteEntity(context.Background(), "non-existent-id")
	assert.Assert(t, errors.Is(err, ErrNotFound))
}

func TestSQLiteStorage_DeleteEntity_DropsStatus(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	assert.NilError(t, storage.SaveEntity(ctx, sqliteTestEntity("job-1")))
	assert.NilError(t, storage.SaveStatus(ctx, sqliteTestUpdate("job-1", "processing", 10)))

	assert.NilError(t, storage.DeleteEntity(ctx, "job-1"))

	_, err := storage.GetEntity(ctx, "job-1")
	assert.Assert(t, errors.Is(err, ErrNotFound))

	_, err = storage.GetStatus(ctx, "job-1")
	assert.Assert(t, errors.Is(err, ErrNotFound))
}

func TestSQLiteStorage_GetStatus_NotFound(t *testing.T) {
	storage := setupTestStorage(t)

	_, err := storage.GetStatus(context.Background(), "job-1")
	assert.Assert(t, errors.Is(err, ErrNotFound))
}

func TestSQLiteStorage_StatusRoundTrip(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	// Status rows do not require a registered entity
	first := sqliteTestUpdate("job-1", "queued", 0)
	first.RetryCount = 2
	assert.NilError(t, storage.SaveStatus(ctx, first))

	second := sqliteTestUpdate("job-1", "processing", 50)
	second.Error = "transient failure"
	assert.NilError(t, storage.SaveStatus(ctx, second))

	latest, err := storage.GetStatus(ctx, "job-1")
	assert.NilError(t, err)
	assert.Equal(t, latest.ID, "job-1")
	assert.Equal(t, latest.Status, "processing")
	assert.Equal(t, latest.Progress, 50)
	assert.Equal(t, latest.Error, "transient failure")
	assert.Equal(t, latest.Timestamp, second.Timestamp)

	history, err := storage.ListStatusHistory(ctx, "job-1", 0)
	assert.NilError(t, err)
	assert.Equal(t, len(history), 2)
	assert.Equal(t, history[0].Status, "processing")
	assert.Equal(t, history[1].Status, "queued")
	assert.Equal(t, history[1].RetryCount, 2)

	limited, err := storage.ListStatusHistory(ctx, "job-1", 1)
	assert.NilError(t, err)
	assert.Equal(t, len(limited), 1)
	assert.Equal(t, limited[0].Status, "processing")
}

func TestSQLiteStorage_HistoryTrim(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	storage, err := NewSQLiteStorage(dbPath, 3, zap.NewNop())
	assert.NilError(t, err)
	defer storage.Close()

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		assert.NilError(t, storage.SaveStatus(ctx, sqliteTestUpdate("job-1", fmt.Sprintf("step-%d", i), i*10)))
	}

	history, err := storage.ListStatusHistory(ctx, "job-1", 0)
	assert.NilError(t, err)
	assert.Equal(t, len(history), 3)
	assert.Equal(t, history[0].Status, "step-9")
	assert.Equal(t, history[1].Status, "step-8")
	assert.Equal(t, history[2].Status, "step-7")

	latest, err := storage.GetStatus(ctx, "job-1")
	assert.NilError(t, err)
	assert.Equal(t, latest.Status, "step-9")
}

func TestSQLiteStorage_HistoryIsolatedPerEntity(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	assert.NilError(t, storage.SaveStatus(ctx, sqliteTestUpdate("job-1", "processing", 10)))
	assert.NilError(t, storage.SaveStatus(ctx, sqliteTestUpdate("job-2", "completed", 100)))

	history, err := storage.ListStatusHistory(ctx, "job-1", 0)
	assert.NilError(t, err)
	assert.Equal(t, len(history), 1)
	assert.Equal(t, history[0].Status, "processing")

	latest, err := storage.GetStatus(ctx, "job-2")
	assert.NilError(t, err)
	assert.Equal(t, latest.Status, "completed")
}
