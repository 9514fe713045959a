package classifier

import (
	"fmt"
	"time"
	_ "time/tzdata" // zone database for minimal container images

	"sensorita-alert/internal/models"
)

// StatusLayout formats a sensor's latest reading in status maps, emails and the baseline.
// Baseline comparison is exact string equality, so this layout must not change
// between releases without migrating the stored baseline.
const StatusLayout = "2006/01/02 15:04:05 -0700"

// Classifier splits sensors into too-late and on-time
type Classifier struct {
	loc *time.Location
	now func() time.Time
}

// New creates a classifier reporting times in the named IANA zone.
func New(timezone string) (*Classifier, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", timezone, err)
	}
	return &Classifier{loc: loc, now: time.Now}, nil
}

// WithClock replaces the time source.
func (c *Classifier) WithClock(now func() time.Time) *Classifier {
	c.now = now
	return c
}

// Classify classifies readings against the current time.
func (c *Classifier) Classify(readings []models.Reading, alertAfter time.Duration) (tooLate, onTime models.SensorStatus) {
	return Classify(readings, alertAfter, c.now(), c.loc)
}

// Classify puts every sensor present in readings into exactly one of the two maps:
// tooLate when its most recent reading is older than now-alertAfter, onTime otherwise.
// Sensors without readings appear in neither.
func Classify(readings []models.Reading, alertAfter time.Duration, now time.Time, loc *time.Location) (tooLate, onTime models.SensorStatus) {
	latest := make(map[string]time.Time)
	for _, r := range readings {
		if cur, ok := latest[r.SensorID]; !ok || r.Time.After(cur) {
			latest[r.SensorID] = r.Time
		}
	}

	cutoff := now.Add(-alertAfter)
	tooLate = make(models.SensorStatus)
	onTime = make(models.SensorStatus)
	for sensorID, last := range latest {
		stamp := last.In(loc).Format(StatusLayout)
		if last.Before(cutoff) {
			tooLate[sensorID] = stamp
		} else {
			onTime[sensorID] = stamp
		}
	}
	return tooLate, onTime
}
