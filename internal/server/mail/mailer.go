package mail

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/idkeeper/internal/common"
	"github.com/dmitrijs2005/idkeeper/internal/server/models"
	"github.com/dustin/go-humanize"
)

const (
	subjectForgotUsername = "Find your Username"
	subjectForgotPassword = "Find your Password"
	subjectResetPassword  = "Password reset"
)

// Mailer composes the account emails and sends them. Delivery failures
// are returned wrapped in common.ErrDeliveryFailed.
type Mailer struct {
	sender        Sender
	templates     *Templates
	resetLinkBase string
}

func NewMailer(sender Sender, templates *Templates, resetLinkBase string) *Mailer {
	return &Mailer{sender: sender, templates: templates, resetLinkBase: resetLinkBase}
}

func (m *Mailer) SendUsername(ctx context.Context, u *models.User) error {
	return m.send(ctx, u, TemplateForgotUsername, subjectForgotUsername, nil)
}

// SendResetLink mails a link embedding token, valid for ttl.
func (m *Mailer) SendResetLink(ctx context.Context, u *models.User, token string, ttl time.Duration) error {
	return m.send(ctx, u, TemplateForgotPassword, subjectForgotPassword, map[string]any{
		"reset_link": m.ResetLink(token),
		"expires_in": expiresIn(ttl),
	})
}

func (m *Mailer) SendResetConfirmation(ctx context.Context, u *models.User) error {
	return m.send(ctx, u, TemplateResetPassword, subjectResetPassword, nil)
}

// ResetLink returns the reset URL carrying token as the "token" query parameter.
func (m *Mailer) ResetLink(token string) string {
	q := url.Values{"token": {token}}
	return m.resetLinkBase + "?" + q.Encode()
}

func (m *Mailer) send(ctx context.Context, u *models.User, tpl, subject string, extra map[string]any) error {
	data := map[string]any{
		"username":   u.UserName,
		"first_name": u.FirstName,
	}
	for k, v := range extra {
		data[k] = v
	}
	body, err := m.templates.Render(tpl, data)
	if err != nil {
		return fmt.Errorf("render %s: %w", tpl, err)
	}
	if err := m.sender.Send(ctx, Message{To: u.Email, Subject: subject, HTMLBody: body}); err != nil {
		return fmt.Errorf("%w: %w", common.ErrDeliveryFailed, err)
	}
	return nil
}

// expiresIn renders ttl for people, e.g. "2 hours" or "15 minutes".
func expiresIn(ttl time.Duration) string {
	now := time.Now()
	return strings.TrimSpace(humanize.RelTime(now, now.Add(ttl), "", ""))
}
