package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"sensorita-alert/internal/config"
	"sensorita-alert/internal/models"

	"go.uber.org/zap"
)

// Publisher broadcasts alert events (the MQTT client satisfies it)
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// Options static notifier settings fixed at construction
type Options struct {
	From         string
	SiteID       string
	AttachReport bool
	Topic        string
	QoS          byte
}

// Notifier decides whether a cycle warrants an email and sends it
type Notifier struct {
	mailer    Mailer
	publisher Publisher // nil disables MQTT events
	opts      Options
	logger    *zap.Logger
	now       func() time.Time
}

// NewNotifier creates a notifier. publisher may be nil.
func NewNotifier(mailer Mailer, publisher Publisher, opts Options, logger *zap.Logger) *Notifier {
	return &Notifier{
		mailer:    mailer,
		publisher: publisher,
		opts:      opts,
		logger:    logger,
		now:       time.Now,
	}
}

// Notify sends the status mail when rec has new or fixed errors and reports
// whether a mail went out. A delivery failure is returned unretried.
func (n *Notifier) Notify(ctx context.Context, cycleID string, rec models.Reconciliation, rc config.RuntimeConfig) (bool, error) {
	if !rec.ShouldNotify() {
		return false, nil
	}

	body, err := RenderHTML(rec, rc.AlertTimeHours)
	if err != nil {
		return false, err
	}
	text, err := RenderText(rec, rc.AlertTimeHours)
	if err != nil {
		return false, err
	}

	msg := Message{
		From:     n.opts.From,
		To:       rc.Emails,
		Subject:  Subject(rec),
		TextBody: text,
		HTMLBody: body,
	}

	if n.opts.AttachReport {
		report, err := BuildStatusReport(rec)
		if err != nil {
			return false, err
		}
		msg.Attachments = append(msg.Attachments, Attachment{
			Filename: reportFilename,
			Data:     report,
		})
	}

	n.logger.Info("Sending alert mail",
		zap.String("cycle_id", cycleID),
		zap.String("subject", msg.Subject),
		zap.Int("recipients", len(msg.To)),
	)

	if err := n.mailer.Send(ctx, msg); err != nil {
		return false, fmt.Errorf("failed to deliver alert mail: %w", err)
	}

	n.publish(cycleID, msg.Subject, rec, rc)

	return true, nil
}

// publish is best effort; the mail is the alert of record.
func (n *Notifier) publish(cycleID, subject string, rec models.Reconciliation, rc config.RuntimeConfig) {
	if n.publisher == nil || n.opts.Topic == "" {
		return
	}

	event := models.AlertEvent{
		CycleID:        cycleID,
		SiteID:         n.opts.SiteID,
		AlertTimeHours: rc.AlertTimeHours,
		Subject:        subject,
		NewErrors:      rec.NewErrors,
		OldErrors:      rec.OldErrors,
		FixedErrors:    rec.FixedErrors,
		WorkingCount:   len(rec.OnTime),
		SentAt:         n.now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		n.logger.Error("Failed to marshal alert event",
			zap.String("cycle_id", cycleID),
			zap.Error(err),
		)
		return
	}

	if err := n.publisher.Publish(n.opts.Topic, n.opts.QoS, false, payload); err != nil {
		n.logger.Warn("Failed to publish alert event",
			zap.String("cycle_id", cycleID),
			zap.String("topic", n.opts.Topic),
			zap.Error(err),
		)
	}
}
