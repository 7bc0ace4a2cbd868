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
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/beaconhq/beacon/pkg/models"
)

//go:embed beacon-pg.sql
var postgresSchema string

// pgUniqueViolation is the PostgreSQL SQLSTATE for unique constraint errors
const pgUniqueViolation = "23505"

// PostgresStorage implements the StatusStore interface using PostgreSQL
// through the pgx driver.
type PostgresStorage struct {
	db           *sqlx.DB
	logger       *zap.Logger
	historyLimit int
}

// NewPostgresStorage creates a new PostgreSQL status store. dsn is a
// postgres:// connection URL; maxConns caps the connection pool.
func NewPostgresStorage(dsn string, maxConns int, historyLimit int, logger *zap.Logger) (*PostgresStorage, error) {
	db, err := sqlx.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
		db.SetMaxIdleConns(maxConns)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrDatabaseUnavailable, err)
	}

	storage := &PostgresStorage{
		db:           db,
		logger:       logger,
		historyLimit: historyLimit,
	}

	if err := storage.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("PostgreSQL storage initialized", zap.Int("max_conns", maxConns))

	return storage, nil
}

// initSchema creates the database schema if it doesn't exist. The schema
// uses IF NOT EXISTS throughout, so this is safe to run on every start.
func (s *PostgresStorage) initSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// SaveEntity persists a new entity
func (s *PostgresStorage) SaveEntity(ctx context.Context, entity *models.Entity) error {
	query := `INSERT INTO entities (id, name, created_at, updated_at) VALUES ($1, $2, $3, $4)`

	_, err := s.db.ExecContext(ctx, query, entity.ID, entity.Name, entity.CreatedAt, entity.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("%w: entity with ID '%s' already exists", ErrConflict, entity.ID)
		}
		return fmt.Errorf("failed to insert entity: %w", err)
	}

	s.logger.Info("Entity saved",
		zap.String("id", entity.ID),
		zap.String("name", entity.Name))

	return nil
}

// GetEntity retrieves an entity by ID
func (s *PostgresStorage) GetEntity(ctx context.Context, id string) (*models.Entity, error) {
	query := `SELECT id, name, created_at, updated_at FROM entities WHERE id = $1`

	var entity models.Entity
	if err := s.db.GetContext(ctx, &entity, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: id=%s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to query entity: %w", err)
	}
	return &entity, nil
}

// ListEntities retrieves all entities, newest first
func (s *PostgresStorage) ListEntities(ctx context.Context) ([]*models.Entity, error) {
	query := `SELECT id, name, created_at, updated_at FROM entities ORDER BY created_at DESC, id`

	entities := make([]*models.Entity, 0)
	if err := s.db.SelectContext(ctx, &entities, query); err != nil {
		return nil, fmt.Errorf("failed to query entities: %w", err)
	}
	return entities, nil
}

// DeleteEntity removes an entity and its status history
func (s *PostgresStorage) DeleteEntity(ctx context.Context, id string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `DELETE FROM entities WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete entity: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: id=%s", ErrNotFound, id)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM status_updates WHERE entity_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete status history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}

	s.logger.Info("Entity deleted", zap.String("id", id))

	return nil
}

// SaveStatus appends a status update and trims history past the cap
func (s *PostgresStorage) SaveStatus(ctx context.Context, update *models.StatusUpdate) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO status_updates (
			entity_id, status, progress, timestamp,
			created_at, updated_at, completed_at, error, retry_count
		) VALUES (
			:entity_id, :status, :progress, :timestamp,
			:created_at, :updated_at, :completed_at, :error, :retry_count
		)
	`

	if _, err := tx.NamedExecContext(ctx, query, update); err != nil {
		return fmt.Errorf("failed to insert status update: %w", err)
	}

	if s.historyLimit > 0 {
		trim := `
			DELETE FROM status_updates
			WHERE entity_id = $1 AND seq NOT IN (
				SELECT seq FROM status_updates
				WHERE entity_id = $2
				ORDER BY seq DESC
				LIMIT $3
			)
		`
		if _, err := tx.ExecContext(ctx, trim, update.ID, update.ID, s.historyLimit); err != nil {
			return fmt.Errorf("failed to trim status history: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit status update: %w", err)
	}

	return nil
}

// GetStatus retrieves the latest status update for an entity
func (s *PostgresStorage) GetStatus(ctx context.Context, entityID string) (*models.StatusUpdate, error) {
	query := `
		SELECT entity_id, status, progress, timestamp,
		       created_at, updated_at, completed_at, error, retry_count
		FROM status_updates
		WHERE entity_id = $1
		ORDER BY seq DESC
		LIMIT 1
	`

	var update models.StatusUpdate
	if err := s.db.GetContext(ctx, &update, query, entityID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: no status for entity '%s'", ErrNotFound, entityID)
		}
		return nil, fmt.Errorf("failed to query status: %w", err)
	}
	return &update, nil
}

// ListStatusHistory retrieves recent status updates, newest first
func (s *PostgresStorage) ListStatusHistory(ctx context.Context, entityID string, limit int) ([]*models.StatusUpdate, error) {
	query := `
		SELECT entity_id, status, progress, timestamp,
		       created_at, updated_at, completed_at, error, retry_count
		FROM status_updates
		WHERE entity_id = $1
		ORDER BY seq DESC
	`
	args := []interface{}{entityID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	updates := make([]*models.StatusUpdate, 0)
	if err := s.db.SelectContext(ctx, &updates, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query status history: %w", err)
	}
	return updates, nil
}

// Close closes the database connection
func (s *PostgresStorage) Close() error {
	s.logger.Info("Closing PostgreSQL storage")
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
