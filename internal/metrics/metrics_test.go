package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sensorita-alert/internal/models"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveCycle(t *testing.T) {
	m := New()
	rec := models.Reconciliation{
		NewErrors:   models.SensorStatus{"A": "t1", "B": "t2"},
		OldErrors:   models.SensorStatus{"C": "t3"},
		FixedErrors: models.SensorStatus{},
		OnTime:      models.SensorStatus{"D": "t4", "E": "t5", "F": "t6"},
	}
	at := time.Unix(1700000000, 0)

	m.ObserveCycle(rec, true, 2*time.Second, at)
	m.ObserveCycle(rec, false, time.Second, at)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.sensors.WithLabelValues(CategoryNew)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sensors.WithLabelValues(CategoryOld)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.sensors.WithLabelValues(CategoryFixed)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.sensors.WithLabelValues(CategoryWorking)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cycles))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notifications))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(m.lastCycleEpoch))
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveCycle(models.Reconciliation{}, false, time.Second, time.Now())

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.True(t, strings.Contains(body, "sensorita_alert_cycles_total 1"))
	assert.Contains(t, body, `sensorita_alert_sensors{category="working"} 0`)
}
