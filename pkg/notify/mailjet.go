package notify

import (
	"context"

	"github.com/mailjet/mailjet-apiv3-go/v4"
	"github.com/pkg/errors"

	"withdrawal_settlement/models"
)

// MailjetNotifier sends notifications through the Mailjet v3.1 send API.
type MailjetNotifier struct {
	box  Mailbox
	send func(*mailjet.MessagesV31) error
}

func NewMailjetNotifier(apiKey, secretKey string, box Mailbox) *MailjetNotifier {
	client := mailjet.NewMailjetClient(apiKey, secretKey)
	return &MailjetNotifier{
		box: box,
		send: func(m *mailjet.MessagesV31) error {
			_, err := client.SendMailV31(m)
			return err
		},
	}
}

func (n *MailjetNotifier) Notify(_ context.Context, note models.Notification) error {
	messages := &mailjet.MessagesV31{Info: []mailjet.InfoMessagesV31{
		{
			From: &mailjet.RecipientV31{
				Email: n.box.From,
				Name:  n.box.FromName,
			},
			To: &mailjet.RecipientsV31{
				{Email: n.box.To},
			},
			Subject:  subject(note),
			HTMLPart: body(note),
			CustomID: note.RequestID,
		},
	}}
	if err := n.send(messages); err != nil {
		return errors.Wrapf(err, "mailjet notify %s for %s", note.Event, note.RequestID)
	}
	return nil
}
