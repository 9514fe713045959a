package store

import (
	"context"
	"errors"
	"fmt"

	"sensorita-alert/internal/config"
	"sensorita-alert/internal/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// NewRedisClient creates a go-redis client from cfg
func NewRedisClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// RedisStore keeps the baseline as a JSON string under a single key, without TTL
type RedisStore struct {
	redisClient *redis.Client
	key         string
	logger      *zap.Logger
}

// NewRedisStore creates a redis-backed store
func NewRedisStore(redisClient *redis.Client, key string, logger *zap.Logger) *RedisStore {
	return &RedisStore{
		redisClient: redisClient,
		key:         key,
		logger:      logger,
	}
}

// Load reads the baseline; an absent key yields an empty map.
func (s *RedisStore) Load(ctx context.Context) (models.SensorStatus, error) {
	val, err := s.redisClient.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			s.logger.Info("No stored baseline, starting empty",
				zap.String("key", s.key),
			)
			return make(models.SensorStatus), nil
		}
		return nil, fmt.Errorf("failed to get baseline: %w", err)
	}
	return decodeSnapshot(val)
}

// Save overwrites the baseline key.
func (s *RedisStore) Save(ctx context.Context, tooLate models.SensorStatus) error {
	data, err := encodeSnapshot(tooLate)
	if err != nil {
		return err
	}
	if err := s.redisClient.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set baseline: %w", err)
	}
	return nil
}

// Close closes the redis connection pool
func (s *RedisStore) Close() error {
	return s.redisClient.Close()
}
