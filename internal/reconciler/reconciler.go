// Package reconciler compares one cycle's classification with the previous
// cycle's too-late baseline.
package reconciler

import "sensorita-alert/internal/models"

// Reconcile classifies the alert-relevant sensors of this cycle.
//
//   - too late now, too late before with the same timestamp: OldErrors
//   - too late now, absent before or with a different timestamp: NewErrors
//   - on time now, too late before with the same timestamp: FixedErrors
//   - any other on-time sensor is only reported as working
//
// Timestamps are compared as formatted strings. Inputs are not modified and
// every returned map is freshly allocated, so the three error maps are
// pairwise disjoint and OnTime is a copy of onTime.
func Reconcile(tooLate, prevTooLate, onTime models.SensorStatus) models.Reconciliation {
	rec := models.Reconciliation{
		NewErrors:   make(models.SensorStatus),
		OldErrors:   make(models.SensorStatus),
		FixedErrors: make(models.SensorStatus),
		OnTime:      onTime.Clone(),
	}

	for sensorID, ts := range tooLate {
		if prev, ok := prevTooLate[sensorID]; ok && prev == ts {
			rec.OldErrors[sensorID] = ts
			continue
		}
		rec.NewErrors[sensorID] = ts
	}

	for sensorID, ts := range onTime {
		if _, late := tooLate[sensorID]; late {
			// classifier output is disjoint; keep the error maps disjoint even if a caller is not
			continue
		}
		if prev, ok := prevTooLate[sensorID]; ok && prev == ts {
			rec.FixedErrors[sensorID] = ts
		}
	}

	return rec
}
