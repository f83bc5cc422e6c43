package notify

import (
	"context"
	"fmt"
	"html"

	"github.com/sirupsen/logrus"

	"withdrawal_settlement/models"
)

// Notifier delivers a status change to whoever follows the request.
// Implementations may fail; callers treat delivery as best effort.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification) error
}

// Mailbox is the sender and recipient of notification mail.
type Mailbox struct {
	From     string
	FromName string
	To       string
}

var subjects = map[models.NotificationEvent]string{
	models.NotifySubmitted: "Withdrawal request received",
	models.NotifyTaxPaid:   "Withdrawal tax payment confirmed",
	models.NotifyCompleted: "Withdrawal completed",
	models.NotifyRejected:  "Withdrawal rejected",
}

func subject(n models.Notification) string {
	if s, ok := subjects[n.Event]; ok {
		return s
	}
	return "Withdrawal update"
}

func body(n models.Notification) string {
	reason := ""
	if n.Reason != "" {
		reason = fmt.Sprintf(`<tr><td style="color:#555;padding:6px 0;">Reason:</td><td style="color:#111;padding:6px 0;">%s</td></tr>`,
			html.EscapeString(n.Reason))
	}
	return fmt.Sprintf(`<body style="margin:0;padding:0;background:#f6f6f6;font-family:Arial,sans-serif;">
  <table width="100%%" cellpadding="0" cellspacing="0" border="0" style="max-width:600px;background:#f3f2f0;border-radius:28px;padding:32px;">
    <tr><td colspan="2"><h1 style="margin:0 0 12px 0;font-size:28px;color:#111;">%s</h1></td></tr>
    <tr><td style="color:#555;padding:6px 0;">User:</td><td style="color:#111;font-weight:bold;padding:6px 0;">%s</td></tr>
    <tr><td style="color:#555;padding:6px 0;">Request:</td><td style="color:#111;padding:6px 0;">%s</td></tr>
    <tr><td style="color:#555;padding:6px 0;">Amount:</td><td style="color:#111;padding:6px 0;">%s</td></tr>
    <tr><td style="color:#555;padding:6px 0;">Tax fee:</td><td style="color:#111;padding:6px 0;">%s</td></tr>
    <tr><td style="color:#555;padding:6px 0;">Status:</td><td style="color:#111;padding:6px 0;">%s</td></tr>
    %s
  </table>
</body>`,
		html.EscapeString(subject(n)),
		html.EscapeString(n.UserID),
		html.EscapeString(n.RequestID),
		n.Amount.StringFixed(2),
		n.TaxFee.StringFixed(2),
		n.Status,
		reason,
	)
}

// LogNotifier only writes the notification to the log.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, n models.Notification) error {
	logrus.WithFields(logrus.Fields{
		"user_id":    n.UserID,
		"request_id": n.RequestID,
		"event":      n.Event,
		"status":     n.Status,
	}).Info("withdrawal notification")
	return nil
}
