// Package audit emits the security event trail. Every transition an
// operator needs to reconstruct after an incident (logins, lockouts,
// replayed tokens, password and session changes) lands here as one
// structured line tagged audit=true, so the trail can be filtered and
// shipped separately from debug logging.
package audit

import (
	"context"

	"go.uber.org/zap"

	"github.com/tastebase/auth/internal/observability/logger"
)

// Event names one auditable transition.
type Event string

const (
	LoginSucceeded  Event = "auth.login.succeeded"
	LoginFailed     Event = "auth.login.failed"
	AccountLocked   Event = "auth.account.locked"
	AccountCreated  Event = "auth.account.created"
	TokenReuse      Event = "auth.token.reuse"
	SessionRevoked  Event = "auth.session.revoked"
	SessionsWiped   Event = "auth.sessions.revoked_all"
	PasswordChanged Event = "auth.password.changed"
	PasswordReset   Event = "auth.password.reset"
)

// Record writes one audit line. Request-scoped fields, like the request
// id, ride along through ctx; identifiers must already be masked, which
// logger.Identifier takes care of.
func Record(ctx context.Context, event Event, fields ...zap.Field) {
	logger.From(ctx).Info(string(event),
		append([]zap.Field{logger.Bool("audit", true)}, fields...)...,
	)
}
