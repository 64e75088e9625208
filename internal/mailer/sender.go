package mailer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/keighl/postmark"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type Message struct {
	To      string
	ToName  string
	Subject string
	HTML    string
	Text    string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type SendGridSender struct {
	client   *sendgrid.Client
	from     string
	fromName string
}

func NewSendGrid(apiKey, from, fromName string) *SendGridSender {
	return &SendGridSender{client: sendgrid.NewSendClient(apiKey), from: from, fromName: fromName}
}

func (s *SendGridSender) Send(ctx context.Context, msg Message) error {
	m := mail.NewSingleEmail(
		mail.NewEmail(s.fromName, s.from),
		msg.Subject,
		mail.NewEmail(msg.ToName, msg.To),
		msg.Text,
		msg.HTML,
	)
	resp, err := s.client.SendWithContext(ctx, m)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

type PostmarkSender struct {
	client *postmark.Client
	from   string
}

func NewPostmark(serverToken, from string) *PostmarkSender {
	return &PostmarkSender{client: postmark.NewClient(serverToken, ""), from: from}
}

func (s *PostmarkSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	res, err := s.client.SendEmail(postmark.Email{
		From:     s.from,
		To:       msg.To,
		Subject:  msg.Subject,
		HtmlBody: msg.HTML,
		TextBody: msg.Text,
	})
	if err != nil {
		return fmt.Errorf("postmark: %w", err)
	}
	if res.ErrorCode != 0 {
		return fmt.Errorf("postmark: code %d: %s", res.ErrorCode, res.Message)
	}
	return nil
}

// LogSender writes mail to the log instead of sending it.
type LogSender struct {
	Log *slog.Logger
}

func (s LogSender) Send(_ context.Context, msg Message) error {
	s.Log.Info("mail_logged", "to", msg.To, "subject", msg.Subject)
	return nil
}

// NewSender picks a sender by provider name.
func NewSender(provider, sendGridKey, postmarkToken, from, fromName string, log *slog.Logger) (Sender, error) {
	switch provider {
	case "sendgrid":
		if sendGridKey == "" {
			return nil, errors.New("mailer: SENDGRID_API_KEY is required for the sendgrid provider")
		}
		return NewSendGrid(sendGridKey, from, fromName), nil
	case "postmark":
		if postmarkToken == "" {
			return nil, errors.New("mailer: POSTMARK_SERVER_TOKEN is required for the postmark provider")
		}
		return NewPostmark(postmarkToken, from), nil
	case "", "log":
		return LogSender{Log: log}, nil
	default:
		return nil, fmt.Errorf("mailer: unknown provider %q", provider)
	}
}
