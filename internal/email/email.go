// Package email delivers messages to users. The only hard implementation
// is SMTP; LogSender stands in wherever a mailer is not configured.
package email

import (
	"github.com/tastebase/auth/internal/observability/logger"
)

// Sender delivers one message to one recipient.
type Sender interface {
	Send(to, subject, htmlBody, textBody string) error
}

// LogSender writes the message to the log instead of delivering it.
// Used in dev and as the stand-in for channels without a provider (SMS).
type LogSender struct{}

func (LogSender) Send(to, subject, _ string, textBody string) error {
	logger.L().Info("email echo (no sender configured)",
		logger.String("to", to),
		logger.String("subject", subject),
		logger.String("body", textBody),
	)
	return nil
}
