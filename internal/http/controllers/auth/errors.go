package auth

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tastebase/auth/internal/credential"
	httperrors "github.com/tastebase/auth/internal/http/errors"
	svc "github.com/tastebase/auth/internal/http/services/auth"
	"github.com/tastebase/auth/internal/observability/logger"
	"github.com/tastebase/auth/internal/session"
	"github.com/tastebase/auth/internal/verification"
)

// writeServiceError translates service sentinels to the wire. Timed
// rejections (lockout, cooldown) carry a Retry-After header.
func writeServiceError(w http.ResponseWriter, log *zap.Logger, err error) {
	var locked *credential.LockedError
	var cooldown *verification.CooldownError
	var weak *svc.WeakPasswordError

	switch {
	case errors.As(err, &locked):
		w.Header().Set("Retry-After", retryAfter(time.Until(locked.Until)))
		httperrors.WriteError(w, httperrors.ErrAccountLocked.WithDetail(
			"locked until "+locked.Until.UTC().Format(time.RFC3339)))

	case errors.As(err, &cooldown):
		w.Header().Set("Retry-After", retryAfter(cooldown.RetryAfter))
		httperrors.WriteError(w, httperrors.ErrTooManyRequests.WithDetail("resend cooldown active"))

	case errors.As(err, &weak):
		httperrors.WriteError(w, httperrors.ErrWeakPassword.WithDetail(strings.Join(weak.Reasons, ", ")))

	case errors.Is(err, svc.ErrMissingFields), errors.Is(err, credential.ErrMissingFields):
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail(err.Error()))

	case errors.Is(err, svc.ErrInvalidIdentifier):
		httperrors.WriteError(w, httperrors.ErrInvalidFormat.WithDetail(err.Error()))

	case errors.Is(err, svc.ErrCodeRequired):
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("verification_code"))

	case errors.Is(err, svc.ErrPasswordMismatch):
		httperrors.WriteError(w, httperrors.ErrPasswordMismatch)

	case errors.Is(err, svc.ErrDuplicateIdentifier):
		httperrors.WriteError(w, httperrors.ErrDuplicateIdentifier)

	case errors.Is(err, svc.ErrInvalidOldPassword),
		errors.Is(err, credential.ErrInvalidCredentials):
		httperrors.WriteError(w, httperrors.ErrInvalidCredentials)

	case errors.Is(err, verification.ErrCodeInvalid):
		httperrors.WriteError(w, httperrors.ErrCodeInvalid)

	case errors.Is(err, verification.ErrInvalidTarget):
		httperrors.WriteError(w, httperrors.ErrInvalidFormat.WithDetail("identifier must be an email or phone"))

	case errors.Is(err, verification.ErrUnknownType):
		httperrors.WriteError(w, httperrors.ErrInvalidFormat.WithDetail("unknown code_type"))

	case errors.Is(err, verification.ErrCooldown):
		// CooldownError carries the wait; a bare sentinel means "soon"
		httperrors.WriteError(w, httperrors.ErrTooManyRequests)

	case errors.Is(err, session.ErrTokenReuse):
		httperrors.WriteError(w, httperrors.ErrTokenReuse)

	case errors.Is(err, session.ErrSessionRevoked):
		httperrors.WriteError(w, httperrors.ErrSessionRevoked)

	case errors.Is(err, session.ErrSessionExpired):
		// on the refresh endpoint an expired session reads as an expired
		// refresh token
		httperrors.WriteError(w, httperrors.ErrTokenExpired)

	case errors.Is(err, session.ErrTokenInvalid):
		httperrors.WriteError(w, httperrors.ErrTokenInvalid)

	case errors.Is(err, svc.ErrTokenIssueFailed):
		httperrors.WriteError(w, httperrors.ErrInternalServerError.WithDetail("failed to issue tokens"))

	default:
		log.Error("unmapped service error", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternalServerError)
	}
}

// retryAfter renders a duration as whole seconds, never below 1.
func retryAfter(d time.Duration) string {
	secs := int(d.Seconds())
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
