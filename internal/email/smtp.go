package email

import (
	"crypto/tls"
	"fmt"

	mail "github.com/go-mail/mail"

	"github.com/tastebase/auth/internal/observability/logger"
)

// SMTPOptions configures outbound SMTP delivery. TLS accepts "auto"
// (STARTTLS when the server offers it), "ssl" (implicit TLS on connect)
// or "none"; an empty value means "auto".
type SMTPOptions struct {
	Host               string
	Port               int
	From               string
	Username           string
	Password           string
	TLS                string
	InsecureSkipVerify bool
}

// SMTPSender delivers messages through a single SMTP account.
type SMTPSender struct {
	opts SMTPOptions
}

func NewSMTPSender(opts SMTPOptions) *SMTPSender {
	if opts.TLS == "" {
		opts.TLS = "auto"
	}
	return &SMTPSender{opts: opts}
}

// Send delivers one message. When both bodies are given the mail goes
// out as multipart/alternative with the HTML part preferred.
func (s *SMTPSender) Send(to, subject, htmlBody, textBody string) error {
	msg := s.compose(to, subject, htmlBody, textBody)
	if err := s.dialer().DialAndSend(msg); err != nil {
		logger.L().Error("smtp send failed",
			logger.Component("email.smtp"),
			logger.String("host", s.opts.Host),
			logger.Int("port", s.opts.Port),
			logger.Err(err),
		)
		return fmt.Errorf("smtp send: %w", err)
	}
	logger.L().Debug("email sent",
		logger.Component("email.smtp"),
		logger.String("subject", subject),
	)
	return nil
}

func (s *SMTPSender) compose(to, subject, htmlBody, textBody string) *mail.Message {
	m := mail.NewMessage()
	m.SetHeader("From", s.opts.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)

	switch {
	case htmlBody != "" && textBody != "":
		m.SetBody("text/plain", textBody)
		m.AddAlternative("text/html", htmlBody)
	case htmlBody != "":
		m.SetBody("text/html", htmlBody)
	case textBody != "":
		m.SetBody("text/plain", textBody)
	}
	return m
}

func (s *SMTPSender) dialer() *mail.Dialer {
	d := mail.NewDialer(s.opts.Host, s.opts.Port, s.opts.Username, s.opts.Password)
	switch s.opts.TLS {
	case "ssl":
		d.SSL = true
		d.TLSConfig = &tls.Config{
			ServerName:         s.opts.Host,
			InsecureSkipVerify: s.opts.InsecureSkipVerify,
		}
	case "none":
		// plaintext transport; the config still applies if the server
		// forces STARTTLS on us
		d.TLSConfig = &tls.Config{InsecureSkipVerify: s.opts.InsecureSkipVerify}
	default:
		d.TLSConfig = &tls.Config{
			ServerName:         s.opts.Host,
			InsecureSkipVerify: s.opts.InsecureSkipVerify,
		}
	}
	return d
}
