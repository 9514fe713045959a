package config

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// RuntimeConfig alert settings read from the JSON config file.
// Edits to the file take effect on the next poll cycle.
type RuntimeConfig struct {
	AlertTimeHours       int      `json:"alert_time_hours"`
	CheckIntervalMinutes int      `json:"check_interval_minutes"`
	Emails               []string `json:"emails"`
}

// AlertAfter is the staleness threshold.
func (r RuntimeConfig) AlertAfter() time.Duration {
	return time.Duration(r.AlertTimeHours) * time.Hour
}

// CheckInterval is the sleep between two cycles.
func (r RuntimeConfig) CheckInterval() time.Duration {
	return time.Duration(r.CheckIntervalMinutes) * time.Minute
}

// Validate rejects values that would make the loop meaningless.
func (r RuntimeConfig) Validate() error {
	if r.AlertTimeHours <= 0 {
		return fmt.Errorf("%w: alert_time_hours must be positive, got %d", ErrInvalidConfig, r.AlertTimeHours)
	}
	if r.CheckIntervalMinutes <= 0 {
		return fmt.Errorf("%w: check_interval_minutes must be positive, got %d", ErrInvalidConfig, r.CheckIntervalMinutes)
	}
	if len(r.Emails) == 0 {
		return fmt.Errorf("%w: emails must list at least one recipient", ErrInvalidConfig)
	}
	return nil
}

// LoadRuntimeConfig reads and validates the JSON file at path.
func LoadRuntimeConfig(path string) (RuntimeConfig, error) {
	var rc RuntimeConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return rc, fmt.Errorf("failed to read runtime config: %w", err)
	}
	return parseRuntimeConfig(path, data)
}

func parseRuntimeConfig(path string, data []byte) (RuntimeConfig, error) {
	var rc RuntimeConfig
	if err := json.Unmarshal(data, &rc); err != nil {
		return rc, fmt.Errorf("%w: failed to parse %s: %v", ErrInvalidConfig, path, err)
	}
	if err := rc.Validate(); err != nil {
		return rc, err
	}
	return rc, nil
}

// RuntimeLoader reads the file every cycle and re-parses it only when its
// content differs from the last successful load.
type RuntimeLoader struct {
	path   string
	logger *zap.Logger

	mu     sync.Mutex
	cached *RuntimeConfig
	digest []byte
}

// NewRuntimeLoader creates a loader for the file at path
func NewRuntimeLoader(path string, logger *zap.Logger) *RuntimeLoader {
	return &RuntimeLoader{
		path:   path,
		logger: logger,
	}
}

// Load returns the current runtime config.
func (l *RuntimeLoader) Load() (RuntimeConfig, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := os.ReadFile(l.path)
	if err != nil {
		return RuntimeConfig{}, fmt.Errorf("failed to read runtime config: %w", err)
	}

	sum := sha256.Sum256(data)
	if l.cached != nil && bytes.Equal(sum[:], l.digest) {
		return *l.cached, nil
	}

	rc, err := parseRuntimeConfig(l.path, data)
	if err != nil {
		return RuntimeConfig{}, err
	}

	l.cached = &rc
	l.digest = sum[:]

	l.logger.Info("Runtime config loaded",
		zap.String("path", l.path),
		zap.Int("alert_time_hours", rc.AlertTimeHours),
		zap.Int("check_interval_minutes", rc.CheckIntervalMinutes),
		zap.Int("recipients", len(rc.Emails)),
	)

	return rc, nil
}
