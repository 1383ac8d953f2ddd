// Package email delivers operational alert emails over SMTP.
package email

import (
	"context"
	"fmt"
	"html"
	"net"
	"strings"
	"time"

	gomail "github.com/wneessen/go-mail"

	"fsbo_finder_backend/platform/config"
)

// RefreshFailure is one tenant whose token refresh failed during a sweep.
type RefreshFailure struct {
	LocationID string
	Reason     string
}

// AlertSender sends refresh-failure summaries to the operations mailbox.
type AlertSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
	toEmail   string
}

// NewAlertSender builds a sender from the alert config, or nil when alerts
// are disabled. Callers treat a nil sender as "don't alert".
func NewAlertSender(cfg config.AlertConfig) *AlertSender {
	if !cfg.GetAlertsEnabled() {
		return nil
	}
	return &AlertSender{
		host:      cfg.GetSMTPHost(),
		port:      cfg.GetSMTPPort(),
		username:  cfg.GetSMTPUsername(),
		password:  cfg.GetSMTPPassword(),
		fromName:  cfg.GetAlertFromName(),
		fromEmail: cfg.GetAlertFromAddress(),
		toEmail:   cfg.GetAlertToAddress(),
	}
}

// SendRefreshAlert reports a token refresh sweep that left tenants behind.
func (s *AlertSender) SendRefreshAlert(ctx context.Context, refreshed int, failures []RefreshFailure) error {
	subject := fmt.Sprintf("Token refresh sweep: %d failure(s)", len(failures))
	return s.send(ctx, subject, refreshAlertBody(refreshed, failures))
}

// refreshAlertBody renders the HTML summary. Failure reasons come straight
// from upstream OAuth error bodies, so they are escaped before interpolation.
func refreshAlertBody(refreshed int, failures []RefreshFailure) string {
	var body strings.Builder
	fmt.Fprintf(&body, "<p>The token refresh sweep finished with %d refreshed and %d failed.</p>", refreshed, len(failures))
	body.WriteString("<ul>")
	for _, f := range failures {
		fmt.Fprintf(&body, "<li><strong>%s</strong>: %s</li>", html.EscapeString(f.LocationID), html.EscapeString(f.Reason))
	}
	body.WriteString("</ul>")
	body.WriteString("<p>Affected tenants must reconnect through the marketplace OAuth flow if refresh keeps failing.</p>")
	return body.String()
}

func (s *AlertSender) send(ctx context.Context, subject, htmlContent string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("alert from: %w", err)
	}
	if err := msg.To(s.toEmail); err != nil {
		return fmt.Errorf("alert to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("alert client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("alert send: %w", err)
	}
	return nil
}
