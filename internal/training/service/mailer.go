package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
)

// Mailer delivers invitation and notification mail. Delivery is always
// best-effort: callers log failures and carry on, so a broken mail pipeline
// never blocks an invitation from being created.
type Mailer interface {
	// SendAdminInvitation mails a system-admin invitation link.
	SendAdminInvitation(ctx context.Context, email, token string) error

	// SendOrgInvitation mails an org-scoped invitation link for the given
	// role ("administrator" or "trainer").
	SendOrgInvitation(ctx context.Context, email, orgName, role, token string) error

	// SendRoleGranted notifies an existing user they were added to an
	// organization without a token step.
	SendRoleGranted(ctx context.Context, email, orgName, role string) error
}

// LogMailer is the default Mailer. It writes the mail that would be sent to
// the log, including the accept link, which is enough for development and for
// operators running without an SMTP relay.
type LogMailer struct {
	Logger *slog.Logger

	// BaseURL is the client origin invitation links point at (DOMAIN_CLIENT).
	BaseURL string

	// AppTitle brands the mail subject lines (APP_TITLE).
	AppTitle string
}

func (m *LogMailer) acceptLink(email, token string) string {
	// Addresses may contain characters with query-string meaning ("+" most
	// commonly); the link must decode back to the exact invited address.
	return fmt.Sprintf("%s/invitations/accept?email=%s&token=%s",
		m.BaseURL, url.QueryEscape(email), url.QueryEscape(token))
}

func (m *LogMailer) SendAdminInvitation(ctx context.Context, email, token string) error {
	m.Logger.Info("mail: admin invitation",
		slog.String("to", email),
		slog.String("subject", m.AppTitle+" admin invitation"),
		slog.String("link", m.acceptLink(email, token)),
	)
	return nil
}

func (m *LogMailer) SendOrgInvitation(ctx context.Context, email, orgName, role, token string) error {
	m.Logger.Info("mail: organization invitation",
		slog.String("to", email),
		slog.String("subject", fmt.Sprintf("%s: join %s as %s", m.AppTitle, orgName, role)),
		slog.String("link", m.acceptLink(email, token)),
	)
	return nil
}

func (m *LogMailer) SendRoleGranted(ctx context.Context, email, orgName, role string) error {
	m.Logger.Info("mail: role granted",
		slog.String("to", email),
		slog.String("subject", fmt.Sprintf("%s: you are now a %s of %s", m.AppTitle, role, orgName)),
	)
	return nil
}

var _ Mailer = (*LogMailer)(nil)
