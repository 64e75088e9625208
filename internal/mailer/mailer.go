// Package mailer renders transactional email and hands it to a Sender.
package mailer

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"

	"github.com/Skotchmaster/shop_backend/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

type Mailer struct {
	sender    Sender
	storeName string
	clientURL string
	tmpl      *template.Template
}

// New parses the templates. clientURL is the storefront base used for
// password-reset and verification links.
func New(sender Sender, storeName, clientURL string) (*Mailer, error) {
	tmpl, err := template.New("mail").Funcs(template.FuncMap{
		"date": func(t *time.Time) string {
			if t == nil {
				return ""
			}
			return t.UTC().Format("Jan 2, 2006")
		},
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("mailer: parse templates: %w", err)
	}
	return &Mailer{sender: sender, storeName: storeName, clientURL: strings.TrimRight(clientURL, "/"), tmpl: tmpl}, nil
}

func (m *Mailer) render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := m.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("mailer: render %s: %w", name, err)
	}
	return buf.String(), nil
}

func (m *Mailer) send(ctx context.Context, u *models.User, subject, tmpl string, data map[string]any) error {
	data["Store"] = m.storeName
	data["User"] = u
	html, err := m.render(tmpl, data)
	if err != nil {
		return err
	}
	return m.sender.Send(ctx, Message{
		To:      u.Email,
		ToName:  u.FullName(),
		Subject: subject,
		HTML:    html,
		Text:    subject,
	})
}

func (m *Mailer) Welcome(ctx context.Context, u *models.User) error {
	return m.send(ctx, u, fmt.Sprintf("Welcome to %s", m.storeName), "welcome.html", map[string]any{})
}

func (m *Mailer) OrderConfirmation(ctx context.Context, u *models.User, o *models.Order) error {
	return m.send(ctx, u, fmt.Sprintf("Order confirmation %s", o.OrderNumber), "order_confirmation.html",
		map[string]any{"Order": o})
}

func (m *Mailer) OrderStatusUpdate(ctx context.Context, u *models.User, o *models.Order) error {
	return m.send(ctx, u, fmt.Sprintf("Order %s is now %s", o.OrderNumber, o.OrderStatus), "order_status.html",
		map[string]any{"Order": o})
}

func humanDuration(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		if h := int(d.Hours()); h != 1 {
			return fmt.Sprintf("%d hours", h)
		}
		return "1 hour"
	case d >= time.Minute && d%time.Minute == 0:
		return fmt.Sprintf("%d minutes", int(d.Minutes()))
	}
	return d.String()
}

func (m *Mailer) link(path, token string) string {
	return m.clientURL + path + url.PathEscape(token)
}

func (m *Mailer) PasswordReset(ctx context.Context, u *models.User, token string, ttl time.Duration) error {
	return m.send(ctx, u, "Password reset request", "password_reset.html", map[string]any{
		"Link":    m.link("/reset-password/", token),
		"Expires": humanDuration(ttl),
	})
}

func (m *Mailer) EmailVerification(ctx context.Context, u *models.User, token string) error {
	return m.send(ctx, u, fmt.Sprintf("Verify your email for %s", m.storeName), "verify_email.html", map[string]any{
		"Link": m.link("/verify-email/", token),
	})
}
