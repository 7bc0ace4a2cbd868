package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/beaconhq/beacon/pkg/hub"
	"github.com/beaconhq/beacon/pkg/models"
	"github.com/beaconhq/beacon/pkg/storage"
)

type seedStatus struct {
	Status   string `yaml:"status"`
	Progress int    `yaml:"progress"`
}

type seedEntity struct {
	ID     string      `yaml:"id"`
	Name   string      `yaml:"name"`
	Status *seedStatus `yaml:"status"`
}

type seedFile struct {
	Entities []seedEntity `yaml:"entities"`
}

// loadSeedFile parses and validates a YAML seed manifest. Entities without
// an id get a generated one.
func loadSeedFile(path string) (*seedFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed seedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}

	for i := range seed.Entities {
		e := &seed.Entities[i]
		if e.Name == "" {
			return nil, fmt.Errorf("seed entity %d: name is required", i)
		}
		if e.ID == "" {
			e.ID = uuid.New().String()
		}
		if e.Status != nil {
			if !models.KnownStatus(e.Status.Status) {
				return nil, fmt.Errorf("seed entity '%s': unknown status '%s'", e.ID, e.Status.Status)
			}
			if e.Status.Progress < 0 || e.Status.Progress > 100 {
				return nil, fmt.Errorf("seed entity '%s': progress must be between 0 and 100, got: %d", e.ID, e.Status.Progress)
			}
		}
	}
	return &seed, nil
}

// seedEntities registers the manifest's entities and publishes any initial
// statuses. Entities that already exist are left untouched.
func seedEntities(ctx context.Context, path string, store storage.StatusStore, eventHub hub.Hub, log *zap.Logger) error {
	seed, err := loadSeedFile(path)
	if err != nil {
		return err
	}

	for _, e := range seed.Entities {
		now := time.Now().UTC()
		entity := &models.Entity{
			ID:        e.ID,
			Name:      e.Name,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := store.SaveEntity(ctx, entity); err != nil {
			if !storage.IsConflictError(err) {
				return fmt.Errorf("failed to save seed entity '%s': %w", e.ID, err)
			}
			log.Debug("Seed entity already exists, skipping", zap.String("entity_id", e.ID))
			continue
		}

		if e.Status == nil {
			continue
		}
		update := &models.StatusUpdate{
			ID:        e.ID,
			Status:    e.Status.Status,
			Progress:  e.Status.Progress,
			Timestamp: models.EpochMillis(now),
			CreatedAt: models.EpochMillis(now),
		}
		if err := store.SaveStatus(ctx, update); err != nil {
			return fmt.Errorf("failed to save seed status for '%s': %w", e.ID, err)
		}
		ev, err := hub.NewStatusEvent(update)
		if err != nil {
			return fmt.Errorf("failed to encode seed status for '%s': %w", e.ID, err)
		}
		if err := eventHub.Publish(ctx, e.ID, ev); err != nil {
			return fmt.Errorf("failed to publish seed status for '%s': %w", e.ID, err)
		}
	}

	log.Info("Seeded entities",
		zap.Int("count", len(seed.Entities)),
		zap.String("path", path))
	return nil
}
