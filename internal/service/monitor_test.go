package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"sensorita-alert/internal/classifier"
	"sensorita-alert/internal/config"
	"sensorita-alert/internal/metrics"
	"sensorita-alert/internal/models"
	"sensorita-alert/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRuntime struct {
	rc  config.RuntimeConfig
	err error
}

func (f *fakeRuntime) Load() (config.RuntimeConfig, error) {
	return f.rc, f.err
}

type fakeSource struct {
	readings []models.Reading
	err      error
	calls    int
}

func (f *fakeSource) Fetch(context.Context) ([]models.Reading, error) {
	f.calls++
	return f.readings, f.err
}

type notifyCall struct {
	cycleID string
	rec     models.Reconciliation
}

type fakeNotifier struct {
	calls []notifyCall
	err   error
}

func (f *fakeNotifier) Notify(_ context.Context, cycleID string, rec models.Reconciliation, _ config.RuntimeConfig) (bool, error) {
	if !rec.ShouldNotify() {
		return false, nil
	}
	if f.err != nil {
		return false, f.err
	}
	f.calls = append(f.calls, notifyCall{cycleID: cycleID, rec: rec})
	return true, nil
}

var now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	svc      *MonitorService
	source   *fakeSource
	notifier *fakeNotifier
	store    *store.FileStore
	runtime  *fakeRuntime
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	cls, err := classifier.New("UTC")
	require.NoError(t, err)
	cls.WithClock(func() time.Time { return now })

	h := &harness{
		source: &fakeSource{readings: []models.Reading{
			{SensorID: "A", ContainerID: "c1", Time: now.Add(-5 * time.Hour)},
			{SensorID: "B", ContainerID: "c2", Time: now.Add(-10 * time.Minute)},
		}},
		notifier: &fakeNotifier{},
		store:    store.NewFileStore(filepath.Join(t.TempDir(), "alert_stored_data.json"), zap.NewNop()),
		runtime: &fakeRuntime{rc: config.RuntimeConfig{
			AlertTimeHours:       3,
			CheckIntervalMinutes: 10,
			Emails:               []string{"ops@example.com"},
		}},
	}
	h.svc = NewMonitorService(h.runtime, h.source, cls, h.store, h.notifier, metrics.New(), zap.NewNop())
	h.svc.now = func() time.Time { return now }
	return h
}

func TestRunCycle_FirstFailureNotifies(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	rc, err := h.svc.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, rc.CheckInterval())

	require.Len(t, h.notifier.calls, 1)
	call := h.notifier.calls[0]
	assert.NotEmpty(t, call.cycleID)
	assert.Equal(t, models.SensorStatus{"A": "2024/03/01 07:00:00 +0000"}, call.rec.NewErrors)
	assert.Empty(t, call.rec.OldErrors)
	assert.Empty(t, call.rec.FixedErrors)
	assert.Equal(t, models.SensorStatus{"B": "2024/03/01 11:50:00 +0000"}, call.rec.OnTime)

	baseline, err := h.store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.SensorStatus{"A": "2024/03/01 07:00:00 +0000"}, baseline)
}

func TestRunCycle_UnchangedFailureIsQuiet(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.RunCycle(ctx)
	require.NoError(t, err)
	_, err = h.svc.RunCycle(ctx)
	require.NoError(t, err)

	assert.Len(t, h.notifier.calls, 1, "old errors alone must not send mail")

	baseline, err := h.store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.SensorStatus{"A": "2024/03/01 07:00:00 +0000"}, baseline)
}

func TestRunCycle_RaisedThresholdReportsFix(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.RunCycle(ctx)
	require.NoError(t, err)

	// live config edit: A's last reading is no longer too old
	h.runtime.rc.AlertTimeHours = 6

	_, err = h.svc.RunCycle(ctx)
	require.NoError(t, err)

	require.Len(t, h.notifier.calls, 2)
	assert.Equal(t, models.SensorStatus{"A": "2024/03/01 07:00:00 +0000"}, h.notifier.calls[1].rec.FixedErrors)
	assert.Empty(t, h.notifier.calls[1].rec.NewErrors)

	baseline, err := h.store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, baseline)
}

func TestRunCycle_FetchErrorLeavesBaseline(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.store.Save(ctx, models.SensorStatus{"Z": "t0"}))

	h.source.err = errors.New("malformed measurement response")

	_, err := h.svc.RunCycle(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to fetch measurements")

	baseline, err := h.store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.SensorStatus{"Z": "t0"}, baseline)
}

func TestRunCycle_MailErrorSkipsSave(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.notifier.err = errors.New("smtp down")

	_, err := h.svc.RunCycle(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp down")

	baseline, err := h.store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, baseline)
}

func TestRunCycle_RuntimeConfigError(t *testing.T) {
	h := newHarness(t)
	h.runtime.err = config.ErrInvalidConfig

	_, err := h.svc.RunCycle(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrInvalidConfig))
	assert.Zero(t, h.source.calls)
}

func TestStart_StopsOnCancel(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var slept []time.Duration
	h.svc.after = func(d time.Duration) <-chan time.Time {
		slept = append(slept, d)
		if len(slept) == 2 {
			cancel()
			return make(chan time.Time)
		}
		ch := make(chan time.Time, 1)
		ch <- now
		return ch
	}

	err := h.svc.Start(ctx)

	require.NoError(t, err)
	assert.Equal(t, []time.Duration{10 * time.Minute, 10 * time.Minute}, slept)
	assert.Equal(t, 2, h.source.calls)
}

func TestStart_ReturnsCycleError(t *testing.T) {
	h := newHarness(t)
	h.source.err = errors.New("boom")

	err := h.svc.Start(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}
