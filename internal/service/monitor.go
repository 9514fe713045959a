package service

import (
	"context"
	"fmt"
	"time"

	"sensorita-alert/internal/config"
	"sensorita-alert/internal/metrics"
	"sensorita-alert/internal/models"
	"sensorita-alert/internal/reconciler"
	"sensorita-alert/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MeasurementSource fetches the readings of the lookback window
type MeasurementSource interface {
	Fetch(ctx context.Context) ([]models.Reading, error)
}

// StatusClassifier splits sensors into too-late and on-time
type StatusClassifier interface {
	Classify(readings []models.Reading, alertAfter time.Duration) (tooLate, onTime models.SensorStatus)
}

// AlertNotifier sends the status mail when the reconciliation warrants one
type AlertNotifier interface {
	Notify(ctx context.Context, cycleID string, rec models.Reconciliation, rc config.RuntimeConfig) (bool, error)
}

// RuntimeSource yields the current runtime config (reloaded or cached)
type RuntimeSource interface {
	Load() (config.RuntimeConfig, error)
}

// MonitorService poll -> classify -> reconcile -> notify -> persist loop
type MonitorService struct {
	runtime    RuntimeSource
	source     MeasurementSource
	classifier StatusClassifier
	store      store.Store
	notifier   AlertNotifier
	metrics    *metrics.Metrics // optional
	logger     *zap.Logger

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

// NewMonitorService wires the loop. m may be nil.
func NewMonitorService(
	runtime RuntimeSource,
	source MeasurementSource,
	classifier StatusClassifier,
	st store.Store,
	notifier AlertNotifier,
	m *metrics.Metrics,
	logger *zap.Logger,
) *MonitorService {
	return &MonitorService{
		runtime:    runtime,
		source:     source,
		classifier: classifier,
		store:      st,
		notifier:   notifier,
		metrics:    m,
		logger:     logger,
		now:        time.Now,
		after:      time.After,
	}
}

// Start runs cycles until ctx is cancelled. The first cycle error stops the
// loop and is returned; nothing is retried.
func (s *MonitorService) Start(ctx context.Context) error {
	s.logger.Info("Sensor monitor started")

	for {
		rc, err := s.RunCycle(ctx)
		if err != nil {
			return err
		}

		s.logger.Debug("Sleeping until next cycle",
			zap.Duration("interval", rc.CheckInterval()),
		)

		select {
		case <-ctx.Done():
			s.logger.Info("Sensor monitor stopped")
			return nil
		case <-s.after(rc.CheckInterval()):
		}
	}
}

// RunCycle performs one poll cycle and returns the runtime config it ran with.
func (s *MonitorService) RunCycle(ctx context.Context) (config.RuntimeConfig, error) {
	started := s.now()
	cycleID := uuid.NewString()
	logger := s.logger.With(zap.String("cycle_id", cycleID))

	// 1. runtime config (live-reloadable)
	rc, err := s.runtime.Load()
	if err != nil {
		return rc, fmt.Errorf("failed to load runtime config: %w", err)
	}

	// 2. measurements
	readings, err := s.source.Fetch(ctx)
	if err != nil {
		return rc, fmt.Errorf("failed to fetch measurements: %w", err)
	}

	// 3. classify + reconcile against the stored baseline
	tooLate, onTime := s.classifier.Classify(readings, rc.AlertAfter())

	prevTooLate, err := s.store.Load(ctx)
	if err != nil {
		return rc, fmt.Errorf("failed to load baseline: %w", err)
	}

	rec := reconciler.Reconcile(tooLate, prevTooLate, onTime)

	logger.Info("Cycle classified",
		zap.Int("reading_count", len(readings)),
		zap.Int("too_late", len(tooLate)),
		zap.Int("on_time", len(onTime)),
		zap.Int("new_errors", len(rec.NewErrors)),
		zap.Int("old_errors", len(rec.OldErrors)),
		zap.Int("fixed_errors", len(rec.FixedErrors)),
	)

	// 4. notify
	notified := false
	if rec.ShouldNotify() {
		logger.Info("New sensors with missing measurements")
		for _, id := range rec.NewErrors.SortedIDs() {
			logger.Info("Sensor missing measurements",
				zap.String("sensor_id", id),
				zap.String("last_measurement_time", rec.NewErrors[id]),
			)
		}

		notified, err = s.notifier.Notify(ctx, cycleID, rec, rc)
		if err != nil {
			return rc, err
		}
	} else {
		logger.Info("No new sensors with missing measurements")
		for _, id := range rec.OnTime.SortedIDs() {
			logger.Info("Working sensor",
				zap.String("sensor_id", id),
				zap.String("last_measurement_time", rec.OnTime[id]),
			)
		}
	}

	// 5. persist the new baseline
	if err := s.store.Save(ctx, tooLate); err != nil {
		return rc, fmt.Errorf("failed to save baseline: %w", err)
	}

	if s.metrics != nil {
		s.metrics.ObserveCycle(rec, notified, s.now().Sub(started), s.now())
	}

	return rc, nil
}
