package notifier

import (
	"fmt"

	"sensorita-alert/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	reportSheet    = "Sensor status"
	reportFilename = "sensor-status.xlsx"
)

// BuildStatusReport renders every reported sensor into a single-sheet workbook:
// Sensor | Status | Last measurement, grouped in mail section order.
func BuildStatusReport(rec models.Reconciliation) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", reportSheet); err != nil {
		return nil, fmt.Errorf("failed to name report sheet: %w", err)
	}

	if err := f.SetSheetRow(reportSheet, "A1", &[]interface{}{"Sensor", "Status", "Last measurement"}); err != nil {
		return nil, fmt.Errorf("failed to write report header: %w", err)
	}

	groups := []struct {
		label  string
		status models.SensorStatus
	}{
		{"New error", rec.NewErrors},
		{"Old error", rec.OldErrors},
		{"Fixed", rec.FixedErrors},
		{"Working", rec.OnTime},
	}

	row := 2
	for _, g := range groups {
		for _, id := range g.status.SortedIDs() {
			cell, err := excelize.CoordinatesToCellName(1, row)
			if err != nil {
				return nil, err
			}
			if err := f.SetSheetRow(reportSheet, cell, &[]interface{}{id, g.label, g.status[id]}); err != nil {
				return nil, fmt.Errorf("failed to write report row %d: %w", row, err)
			}
			row++
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}
	return buf.Bytes(), nil
}
