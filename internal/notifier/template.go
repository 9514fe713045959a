package notifier

import (
	"bytes"
	"fmt"
	"html/template"
	texttemplate "text/template"

	"sensorita-alert/internal/models"
)

const subjectPrefix = "Sensorita - "

var statusTemplate = template.Must(template.New("status").Parse(`<html>
<head></head>
<body>
    <h2>Sensor status</h2>
    <p>Sends alert if a sensor has not sent a radar sample in {{.AlertTimeHours}} hours or if it starts sending again.</p>
    <p>Sensor number:  "last_measurement_time"</p>
{{- range .Sections}}
    <h3>{{.Title}}:</h3>
    <ul>
    {{- range .Entries}}
        <li>{{.SensorID}}: {{.Timestamp}}</li>
    {{- end}}
    </ul>
{{- end}}

    <p>This is an automated message from Sensorita.</p>
</body>
</html>
`))

var statusTextTemplate = texttemplate.Must(texttemplate.New("status-text").Parse(`Sensor status

Sends alert if a sensor has not sent a radar sample in {{.AlertTimeHours}} hours or if it starts sending again.
Sensor number: "last_measurement_time"
{{range .Sections}}
{{.Title}}:
{{- range .Entries}}
  - {{.SensorID}}: {{.Timestamp}}
{{- end}}
{{end}}
This is an automated message from Sensorita.
`))

type entry struct {
	SensorID  string
	Timestamp string
}

type section struct {
	Title   string
	Entries []entry
}

type statusView struct {
	AlertTimeHours int
	Sections       []section
}

func newSection(title string, status models.SensorStatus) section {
	ids := status.SortedIDs()
	s := section{Title: title, Entries: make([]entry, 0, len(ids))}
	for _, id := range ids {
		s.Entries = append(s.Entries, entry{SensorID: id, Timestamp: status[id]})
	}
	return s
}

// Subject picks the mail subject; fixed-only cycles are announced as fixes.
func Subject(rec models.Reconciliation) string {
	if len(rec.NewErrors) == 0 && len(rec.FixedErrors) > 0 {
		return fmt.Sprintf("%sFixed sensor errors: %d", subjectPrefix, len(rec.FixedErrors))
	}
	return fmt.Sprintf("%sNew sensor errors: %d", subjectPrefix, len(rec.NewErrors))
}

func newStatusView(rec models.Reconciliation, alertTimeHours int) statusView {
	return statusView{
		AlertTimeHours: alertTimeHours,
		Sections: []section{
			newSection("New Errors", rec.NewErrors),
			newSection("Old Errors", rec.OldErrors),
			newSection("Fixed Errors", rec.FixedErrors),
			newSection("Currently working sensors", rec.OnTime),
		},
	}
}

// RenderHTML renders the four-section status summary.
func RenderHTML(rec models.Reconciliation, alertTimeHours int) (string, error) {
	var buf bytes.Buffer
	if err := statusTemplate.Execute(&buf, newStatusView(rec, alertTimeHours)); err != nil {
		return "", fmt.Errorf("failed to render status mail: %w", err)
	}
	return buf.String(), nil
}

// RenderText renders the plain-text alternative of RenderHTML.
func RenderText(rec models.Reconciliation, alertTimeHours int) (string, error) {
	var buf bytes.Buffer
	if err := statusTextTemplate.Execute(&buf, newStatusView(rec, alertTimeHours)); err != nil {
		return "", fmt.Errorf("failed to render status text: %w", err)
	}
	return buf.String(), nil
}
