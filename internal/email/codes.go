package email

import (
	"fmt"
	"time"

	"github.com/tastebase/auth/internal/domain/repository"
)

// CodeMessage renders the subject and bodies for a verification code.
func CodeMessage(codeType repository.CodeType, code string, ttl time.Duration) (subject, htmlBody, textBody string) {
	minutes := int(ttl.Minutes())
	switch codeType {
	case repository.CodeTypePasswordReset:
		subject = "Your password reset code"
	default:
		subject = "Your verification code"
	}
	textBody = fmt.Sprintf(
		"Your code is %s. It expires in %d minutes.\n\nIf you did not request this, ignore this message.",
		code, minutes,
	)
	htmlBody = fmt.Sprintf(
		`<p>Your code is <strong style="font-size:1.4em;letter-spacing:0.2em">%s</strong>.</p>`+
			`<p>It expires in %d minutes.</p>`+
			`<p>If you did not request this, ignore this message.</p>`,
		code, minutes,
	)
	return subject, htmlBody, textBody
}
