package notifier

import (
	"bytes"
	"context"
	"testing"
	"time"

	"sensorita-alert/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func renderMessage(t *testing.T, msg Message) string {
	t.Helper()

	email, err := buildMsg(msg)
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = email.WriteTo(&buf)
	require.NoError(t, err)
	return buf.String()
}

func statusMessage(t *testing.T) Message {
	t.Helper()

	rec := models.Reconciliation{
		NewErrors: models.SensorStatus{"A": "t1"},
		OnTime:    models.SensorStatus{"B": "t2"},
	}
	html, err := RenderHTML(rec, 3)
	require.NoError(t, err)
	text, err := RenderText(rec, 3)
	require.NoError(t, err)

	return Message{
		From:     "alerts@example.com",
		To:       []string{"ops@example.com", "oncall@example.com"},
		Subject:  Subject(rec),
		TextBody: text,
		HTMLBody: html,
	}
}

func TestBuildMsg_MultipartAlternative(t *testing.T) {
	raw := renderMessage(t, statusMessage(t))

	assert.Contains(t, raw, "Subject: Sensorita - New sensor errors: 1")
	assert.Contains(t, raw, "ops@example.com")
	assert.Contains(t, raw, "oncall@example.com")
	assert.Contains(t, raw, "multipart/alternative")
	assert.Contains(t, raw, "text/plain")
	assert.Contains(t, raw, "text/html")
	assert.Contains(t, raw, "<h3>New Errors:</h3>")
	assert.NotContains(t, raw, "multipart/mixed")
}

func TestBuildMsg_ReportAttachment(t *testing.T) {
	msg := statusMessage(t)
	msg.Attachments = []Attachment{{Filename: "sensor-status.xlsx", Data: []byte("PK\x03\x04")}}

	raw := renderMessage(t, msg)

	assert.Contains(t, raw, "multipart/mixed")
	assert.Contains(t, raw, "multipart/alternative")
	assert.Contains(t, raw, `filename="sensor-status.xlsx"`)
}

func TestBuildMsg_HTMLOnly(t *testing.T) {
	msg := statusMessage(t)
	msg.TextBody = ""

	raw := renderMessage(t, msg)

	assert.Contains(t, raw, "text/html")
	assert.NotContains(t, raw, "multipart/alternative")
}

func TestBuildMsg_InvalidSender(t *testing.T) {
	msg := statusMessage(t)
	msg.From = "not an address"

	_, err := buildMsg(msg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to set sender")
}

func TestSMTPMailer_SendUnreachableRelay(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{
		Host:     "127.0.0.1",
		Port:     1,
		Username: "alerts@example.com",
		Password: "secret",
		Timeout:  2 * time.Second,
	}, zap.NewNop())

	err := m.Send(context.Background(), statusMessage(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to send mail")
}

func TestRenderText_Sections(t *testing.T) {
	text, err := RenderText(models.Reconciliation{
		NewErrors:   models.SensorStatus{"9": "n9"},
		FixedErrors: models.SensorStatus{"7": "f7"},
		OnTime:      models.SensorStatus{"1": "w1"},
	}, 6)
	require.NoError(t, err)

	assert.Contains(t, text, "has not sent a radar sample in 6 hours")
	assert.Contains(t, text, "New Errors:\n  - 9: n9")
	assert.Contains(t, text, "Old Errors:\n")
	assert.Contains(t, text, "Fixed Errors:\n  - 7: f7")
	assert.Contains(t, text, "Currently working sensors:\n  - 1: w1")
}
