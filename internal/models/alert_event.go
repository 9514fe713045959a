package models

import "time"

// AlertEvent published to MQTT after an alert email went out
type AlertEvent struct {
	CycleID        string       `json:"cycle_id"`
	SiteID         string       `json:"site_id"`
	AlertTimeHours int          `json:"alert_time_hours"`
	Subject        string       `json:"subject"`
	NewErrors      SensorStatus `json:"new_errors"`
	OldErrors      SensorStatus `json:"old_errors"`
	FixedErrors    SensorStatus `json:"fixed_errors"`
	WorkingCount   int          `json:"working_count"`
	SentAt         time.Time    `json:"sent_at"`
}
