package integration

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tastebase/auth/client"
	"github.com/tastebase/auth/internal/domain/repository"
)

func TestVerifiedRegistration(t *testing.T) {
	w := boot(t, verifiedSignupConfig)
	ctx := context.Background()
	c := w.client(nil)

	// no code yet: the server demands one before touching the account
	_, err := c.Register(ctx, client.RegisterRequest{
		Username: "maria",
		Email:    "maria@example.com",
		Password: "correct horse battery",
	})
	require.Equal(t, "MISSING_FIELDS", client.ErrorCode(err))

	sent, err := c.SendVerificationCode(ctx, "maria@example.com", "register", "")
	require.NoError(t, err)
	require.False(t, sent.ExpiresAt.IsZero())

	st, err := c.VerificationStatus(ctx, "maria@example.com", "register")
	require.NoError(t, err)
	require.True(t, st.Pending)

	// a wrong guess burns an attempt, not the pending code
	_, err = c.Register(ctx, client.RegisterRequest{
		Username:         "maria",
		Email:            "maria@example.com",
		Password:         "correct horse battery",
		VerificationCode: "no-such-code",
	})
	require.Equal(t, "CODE_INVALID", client.ErrorCode(err))

	code := w.code("maria@example.com", repository.CodeTypeRegister)
	reg, err := c.Register(ctx, client.RegisterRequest{
		Username:         "maria",
		Email:            "maria@example.com",
		Password:         "correct horse battery",
		VerificationCode: code,
	})
	require.NoError(t, err)
	require.True(t, reg.User.IsVerified)
	require.Empty(t, reg.AccessToken, "auto-login is off in this deployment")

	// the code is single-use: a second signup cannot ride the same one
	_, err = c.Register(ctx, client.RegisterRequest{
		Username:         "marta",
		Email:            "maria@example.com",
		Password:         "correct horse battery",
		VerificationCode: code,
	})
	require.Equal(t, "CODE_INVALID", client.ErrorCode(err))

	login := w.login(c, "maria@example.com", "correct horse battery", "")
	require.NotEmpty(t, login.AccessToken)
}

func TestLockoutAfterRepeatedFailures(t *testing.T) {
	w := boot(t, baseConfig)
	ctx := context.Background()

	a := w.client(nil)
	_, err := a.Register(ctx, client.RegisterRequest{
		Username: "maria",
		Email:    "maria@example.com",
		Password: "correct horse battery",
	})
	require.NoError(t, err)

	attacker := w.client(nil)
	for i := 0; i < 2; i++ {
		_, err = attacker.Login(ctx, client.LoginRequest{Identifier: "maria", Password: "wrong"})
		require.Equal(t, "INVALID_CREDENTIALS", client.ErrorCode(err))
	}

	// third strike locks the account and says so on the locking attempt
	_, err = attacker.Login(ctx, client.LoginRequest{Identifier: "maria", Password: "wrong"})
	require.Equal(t, "ACCOUNT_LOCKED", client.ErrorCode(err))
	require.Equal(t, http.StatusLocked, apiStatus(err))

	st, err := attacker.AccountStatus(ctx, "maria")
	require.NoError(t, err)
	require.True(t, st.Locked)
	require.NotNil(t, st.LockedUntil)
	require.True(t, st.LockedUntil.After(time.Now()))

	// the right password does not open a locked account
	_, err = attacker.Login(ctx, client.LoginRequest{Identifier: "maria", Password: "correct horse battery"})
	require.Equal(t, "ACCOUNT_LOCKED", client.ErrorCode(err))
}

func TestForgotPasswordResetRevokesSessions(t *testing.T) {
	w := boot(t, baseConfig)
	ctx := context.Background()

	var lost atomic.Int32
	a := w.client(&lost)
	_, err := a.Register(ctx, client.RegisterRequest{
		Username:   "maria",
		Email:      "maria@example.com",
		Password:   "correct horse battery",
		DeviceInfo: "laptop",
	})
	require.NoError(t, err)

	b := w.client(nil)
	w.login(b, "maria", "correct horse battery", "phone")

	// the same accepted answer whether or not the account exists
	require.NoError(t, a.ForgotPassword(ctx, "maria@example.com", ""))
	require.NoError(t, a.ForgotPassword(ctx, "nobody@example.com", ""))

	code := w.code("maria@example.com", repository.CodeTypePasswordReset)
	anon := w.client(nil)
	res, err := anon.ResetPassword(ctx, "maria@example.com", code, "brand new passphrase")
	require.NoError(t, err)
	require.Equal(t, 2, res.SessionsRevoked)

	// both devices are signed out: their refresh tokens are dead
	err = a.Refresh(ctx)
	require.Equal(t, "SESSION_REVOKED", client.ErrorCode(err))
	require.EqualValues(t, 1, lost.Load())

	// the old password is gone, the new one works
	_, err = anon.Login(ctx, client.LoginRequest{Identifier: "maria", Password: "correct horse battery"})
	require.Equal(t, "INVALID_CREDENTIALS", client.ErrorCode(err))
	w.login(anon, "maria", "brand new passphrase", "")
}

func TestChangePasswordKeepsCallingSession(t *testing.T) {
	w := boot(t, baseConfig)
	ctx := context.Background()

	a := w.client(nil)
	reg, err := a.Register(ctx, client.RegisterRequest{
		Username:   "maria",
		Email:      "maria@example.com",
		Password:   "correct horse battery",
		DeviceInfo: "laptop",
	})
	require.NoError(t, err)

	var lost atomic.Int32
	b := w.client(&lost)
	w.login(b, "maria", "correct horse battery", "phone")

	res, err := a.ChangePassword(ctx, "correct horse battery", "brand new passphrase")
	require.NoError(t, err)
	require.Equal(t, 1, res.SessionsRevoked)
	require.NotEmpty(t, res.AccessToken)
	require.Equal(t, reg.SessionID, res.SessionID, "the calling session rotates in place")
	require.NotEqual(t, reg.RefreshToken, res.RefreshToken)

	// the caller keeps working on the rotated pair
	devices, err := a.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	require.True(t, devices[0].Current)

	// the phone session is out: its pair no longer renews
	err = b.Refresh(ctx)
	require.Equal(t, "SESSION_REVOKED", client.ErrorCode(err))
	require.EqualValues(t, 1, lost.Load())

	_, err = b.Login(ctx, client.LoginRequest{Identifier: "maria", Password: "correct horse battery"})
	require.Equal(t, "INVALID_CREDENTIALS", client.ErrorCode(err))
	w.login(b, "maria", "brand new passphrase", "phone")
}

func TestCodeResendCooldown(t *testing.T) {
	w := boot(t, resendCooldownConfig)
	ctx := context.Background()
	c := w.client(nil)

	sent, err := c.SendVerificationCode(ctx, "maria@example.com", "register", "")
	require.NoError(t, err)
	require.Equal(t, 3600, sent.ResendAfterSeconds)

	_, err = c.SendVerificationCode(ctx, "maria@example.com", "register", "")
	require.Equal(t, "TOO_MANY_REQUESTS", client.ErrorCode(err))
	require.Equal(t, http.StatusTooManyRequests, apiStatus(err))

	st, err := c.VerificationStatus(ctx, "maria@example.com", "register")
	require.NoError(t, err)
	require.True(t, st.Pending)
	require.Greater(t, st.ResendAfterSeconds, 0)
}
