// Package mail delivers invitation messages. Delivery is best effort: the
// invitation row in storage is the source of truth and a failed send is
// recovered by resending.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
	"time"
)

// SMTPSender sends invitation mail through a plain SMTP relay.
type SMTPSender struct {
	addr    string
	from    string
	baseURL string
	logger  *slog.Logger
	send    func(addr, from string, to []string, msg []byte) error
}

// NewSMTPSender constructs a sender for the given relay address. baseURL is
// the externally reachable root used to build acceptance links.
func NewSMTPSender(addr, from, baseURL string, logger *slog.Logger) *SMTPSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &SMTPSender{
		addr:    addr,
		from:    from,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
		send: func(addr, from string, to []string, msg []byte) error {
			return smtp.SendMail(addr, nil, from, to, msg)
		},
	}
}

// SendInvitation delivers an invitation with the acceptance link.
func (s *SMTPSender) SendInvitation(ctx context.Context, email, displayName, token string, expiresAt time.Time) error {
	if s == nil {
		return fmt.Errorf("mail sender is nil")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	link := fmt.Sprintf("%s/invitations/accept?token=%s", s.baseURL, token)

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.from)
	fmt.Fprintf(&b, "To: %s\r\n", email)
	fmt.Fprintf(&b, "Subject: You have been invited\r\n")
	fmt.Fprintf(&b, "\r\n")
	fmt.Fprintf(&b, "Hello %s,\r\n\r\n", displayName)
	fmt.Fprintf(&b, "An account has been created for you. Set your password here:\r\n\r\n")
	fmt.Fprintf(&b, "  %s\r\n\r\n", link)
	fmt.Fprintf(&b, "The link expires on %s.\r\n", expiresAt.Format("2006-01-02 15:04 MST"))

	if err := s.send(s.addr, s.from, []string{email}, []byte(b.String())); err != nil {
		return fmt.Errorf("send invitation mail: %w", err)
	}
	s.logger.InfoContext(ctx, "invitation mail sent", "email", email)
	return nil
}

// LogSender records invitations to the log instead of sending mail. Used when
// no SMTP relay is configured, typically in development.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender constructs a log-only sender.
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

// SendInvitation logs the invitation instead of delivering it.
func (s *LogSender) SendInvitation(ctx context.Context, email, displayName, token string, expiresAt time.Time) error {
	s.logger.InfoContext(ctx, "invitation mail (log only)",
		"email", email,
		"display_name", displayName,
		"token", token,
		"expires_at", expiresAt.Format(time.RFC3339),
	)
	return nil
}
