// Package store persists the too-late baseline between poll cycles.
// Every backend holds exactly one snapshot that is replaced on each Save.
package store

import (
	"context"
	"encoding/json"
	"fmt"

	"sensorita-alert/internal/config"
	"sensorita-alert/internal/models"

	"go.uber.org/zap"
)

// Store baseline persistence
type Store interface {
	// Load returns the previous cycle's too-late map, or an empty map when
	// nothing has been saved yet.
	Load(ctx context.Context) (models.SensorStatus, error)
	// Save replaces the stored baseline.
	Save(ctx context.Context, tooLate models.SensorStatus) error
	Close() error
}

// Open builds the backend selected by cfg.State.Backend.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Store, error) {
	switch cfg.State.Backend {
	case config.BackendFile, "":
		return NewFileStore(cfg.State.FilePath, logger), nil

	case config.BackendRedis:
		client := NewRedisClient(&cfg.State.Redis)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to ping redis: %w", err)
		}
		return NewRedisStore(client, cfg.State.RedisKey, logger), nil

	case config.BackendPostgres:
		db, err := NewPostgresDB(&cfg.State.Database)
		if err != nil {
			return nil, err
		}
		s := NewPostgresStore(db, logger)
		if err := s.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		return s, nil

	default:
		return nil, fmt.Errorf("%w: unknown state backend %q", config.ErrInvalidConfig, cfg.State.Backend)
	}
}

func decodeSnapshot(data []byte) (models.SensorStatus, error) {
	var snapshot models.SensorStatus
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal baseline: %w", err)
	}
	if snapshot == nil {
		snapshot = make(models.SensorStatus)
	}
	return snapshot, nil
}

func encodeSnapshot(tooLate models.SensorStatus) ([]byte, error) {
	// never persist JSON null
	data, err := json.MarshalIndent(tooLate.Clone(), "", "    ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal baseline: %w", err)
	}
	return data, nil
}
