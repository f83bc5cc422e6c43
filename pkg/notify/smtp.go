package notify

import (
	"context"

	"github.com/pkg/errors"
	"gopkg.in/gomail.v2"

	"withdrawal_settlement/models"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

// SMTPNotifier sends notifications over plain SMTP.
type SMTPNotifier struct {
	box  Mailbox
	send func(...*gomail.Message) error
}

func NewSMTPNotifier(cfg SMTPConfig, box Mailbox) *SMTPNotifier {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	return &SMTPNotifier{box: box, send: d.DialAndSend}
}

func (n *SMTPNotifier) Notify(_ context.Context, note models.Notification) error {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", n.box.From, n.box.FromName)
	m.SetHeader("To", n.box.To)
	m.SetHeader("Subject", subject(note))
	m.SetBody("text/html", body(note))

	if err := n.send(m); err != nil {
		return errors.Wrapf(err, "smtp notify %s for %s", note.Event, note.RequestID)
	}
	return nil
}
