package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"sensorita-alert/internal/config"
	"sensorita-alert/internal/models"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// baselineRowID the table only ever holds this row
const baselineRowID = 1

// NewPostgresDB opens and pings a PostgreSQL connection
func NewPostgresDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
	}
	if cfg.MaxIdle > 0 {
		db.SetMaxIdleConns(cfg.MaxIdle)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// PostgresStore keeps the baseline in a single-row table
type PostgresStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresStore creates a postgres-backed store
func NewPostgresStore(db *sql.DB, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: logger,
	}
}

// EnsureSchema creates the baseline table if it does not exist
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS alert_baseline (
			id         SMALLINT PRIMARY KEY,
			snapshot   JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create alert_baseline: %w", err)
	}
	return nil
}

// Load reads the baseline row; no row yields an empty map.
func (s *PostgresStore) Load(ctx context.Context) (models.SensorStatus, error) {
	query := `SELECT snapshot FROM alert_baseline WHERE id = $1`

	var raw []byte
	err := s.db.QueryRowContext(ctx, query, baselineRowID).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Info("No stored baseline, starting empty")
			return make(models.SensorStatus), nil
		}
		return nil, fmt.Errorf("failed to query baseline: %w", err)
	}
	return decodeSnapshot(raw)
}

// Save upserts the baseline row.
func (s *PostgresStore) Save(ctx context.Context, tooLate models.SensorStatus) error {
	data, err := encodeSnapshot(tooLate)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO alert_baseline (id, snapshot, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (id) DO UPDATE
		SET snapshot = EXCLUDED.snapshot, updated_at = EXCLUDED.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, baselineRowID, string(data)); err != nil {
		return fmt.Errorf("failed to save baseline: %w", err)
	}
	return nil
}

// Close closes the database handle
func (s *PostgresStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
