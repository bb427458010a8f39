package contact

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/klipach/cozycurated/contract"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const senderName = "Cozy Curated"

// SendGridNotifier emails the site owner a copy of every contact message.
type SendGridNotifier struct {
	client *sendgrid.Client
	from   string
	to     string
}

func NewSendGridNotifier(apiKey, from, to string) *SendGridNotifier {
	return &SendGridNotifier{
		client: sendgrid.NewSendClient(apiKey),
		from:   from,
		to:     to,
	}
}

func (n *SendGridNotifier) Notify(ctx context.Context, id string, msg contract.ContactMessage) error {
	response, err := n.client.SendWithContext(ctx, n.message(id, msg))
	if err != nil {
		return err
	}
	if response.StatusCode >= 300 {
		return fmt.Errorf("sendgrid returned status %d: %s", response.StatusCode, response.Body)
	}
	return nil
}

func (n *SendGridNotifier) message(id string, msg contract.ContactMessage) *mail.SGMailV3 {
	from := mail.NewEmail(senderName, n.from)
	to := mail.NewEmail("", n.to)
	subject := fmt.Sprintf("[Contact] %s", strings.TrimSpace(msg.Subject))

	plainTextContent := fmt.Sprintf("From: %s <%s>\nID: %s\n\n%s", msg.Name, msg.Email, id, msg.Message)
	htmlContent := fmt.Sprintf("<p><strong>From:</strong> %s &lt;%s&gt;</p><p>%s</p>",
		html.EscapeString(msg.Name), html.EscapeString(msg.Email), html.EscapeString(msg.Message))

	message := mail.NewSingleEmail(from, subject, to, plainTextContent, htmlContent)
	message.SetReplyTo(mail.NewEmail(strings.TrimSpace(msg.Name), strings.TrimSpace(msg.Email)))
	return message
}
