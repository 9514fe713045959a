package models

import (
	"sort"
	"strconv"
	"time"
)

// Reading one fill-level sample reported by a sensor
type Reading struct {
	SensorID    string
	ContainerID string
	Time        time.Time // UTC
	FillLevel   float64
}

// SensorStatus sensor id -> formatted timestamp of the sensor's latest reading
type SensorStatus map[string]string

// SortedIDs returns the sensor ids in natural order (numeric ids compare numerically).
func (s SensorStatus) SortedIDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return lessSensorID(ids[i], ids[j])
	})
	return ids
}

// Clone returns an independent copy; a nil status clones to an empty map.
func (s SensorStatus) Clone() SensorStatus {
	out := make(SensorStatus, len(s))
	for id, ts := range s {
		out[id] = ts
	}
	return out
}

func lessSensorID(a, b string) bool {
	na, errA := strconv.ParseInt(a, 10, 64)
	nb, errB := strconv.ParseInt(b, 10, 64)
	switch {
	case errA == nil && errB == nil:
		return na < nb
	case errA == nil:
		return true
	case errB == nil:
		return false
	default:
		return a < b
	}
}

// Reconciliation outcome of comparing one cycle's classification with the baseline
type Reconciliation struct {
	NewErrors   SensorStatus
	OldErrors   SensorStatus
	FixedErrors SensorStatus
	OnTime      SensorStatus
}

// ShouldNotify reports whether the cycle produced anything worth an email.
func (r Reconciliation) ShouldNotify() bool {
	return len(r.NewErrors) > 0 || len(r.FixedErrors) > 0
}
