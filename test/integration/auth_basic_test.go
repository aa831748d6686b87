package integration

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tastebase/auth/client"
)

func TestRegisterAutoLoginAndSessions(t *testing.T) {
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
	require.Equal(t, "maria", reg.User.Username)
	require.False(t, reg.User.IsVerified)
	require.NotEmpty(t, reg.AccessToken, "auto-login returns a pair")
	require.NotEmpty(t, reg.RefreshToken)
	require.NotEmpty(t, reg.SessionID)

	devices, err := a.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	require.True(t, devices[0].Current)
	require.Equal(t, "laptop", devices[0].DeviceInfo)
	require.Equal(t, reg.SessionID, devices[0].SessionID)

	// a second login opens a second, distinct session
	b := w.client(nil)
	login := w.login(b, "maria@example.com", "correct horse battery", "phone")
	require.NotEqual(t, reg.SessionID, login.SessionID)

	devices, err = a.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, devices, 2)
}

func TestRefreshRotatesAndHonorsGraceReplay(t *testing.T) {
	w := boot(t, baseConfig)
	ctx := context.Background()

	a := w.client(nil)
	reg, err := a.Register(ctx, client.RegisterRequest{
		Username: "maria",
		Email:    "maria@example.com",
		Password: "correct horse battery",
	})
	require.NoError(t, err)
	first := reg.TokenPair

	status, second, _ := w.refresh(first.RefreshToken)
	require.Equal(t, http.StatusOK, status)
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)
	require.Equal(t, first.SessionID, second.SessionID)
	require.NotEmpty(t, second.AccessToken)

	// replaying the pre-rotation token inside the grace window converges
	// on the current pair instead of treating the retry as theft
	status, replayed, _ := w.refresh(first.RefreshToken)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, second.RefreshToken, replayed.RefreshToken)
	require.NotEmpty(t, replayed.AccessToken)

	// the current token still rotates normally afterwards
	status, third, _ := w.refresh(second.RefreshToken)
	require.Equal(t, http.StatusOK, status)
	require.NotEqual(t, second.RefreshToken, third.RefreshToken)
}

func TestRefreshRejectsUnknownToken(t *testing.T) {
	w := boot(t, baseConfig)

	status, _, code := w.refresh("never-issued-token")
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "TOKEN_REUSE", code)

	status, _, code = w.refresh("   ")
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "MISSING_FIELDS", code)
}

func TestReplayOutsideGraceRevokesSession(t *testing.T) {
	w := boot(t, shortGraceConfig)
	ctx := context.Background()

	var lost atomic.Int32
	a := w.client(&lost)
	reg, err := a.Register(ctx, client.RegisterRequest{
		Username: "maria",
		Email:    "maria@example.com",
		Password: "correct horse battery",
	})
	require.NoError(t, err)
	first := reg.TokenPair

	status, second, _ := w.refresh(first.RefreshToken)
	require.Equal(t, http.StatusOK, status)

	time.Sleep(200 * time.Millisecond) // past the 50ms grace window

	status, _, code := w.refresh(first.RefreshToken)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "TOKEN_REUSE", code)

	// the lineage is dead: whoever holds the current token is out too
	status, _, code = w.refresh(second.RefreshToken)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "SESSION_REVOKED", code)

	// the client's unexpired access token keeps answering reads: the dead
	// session just no longer shows up
	devices, err := a.Sessions(ctx)
	require.NoError(t, err)
	require.Empty(t, devices)

	// the revocation lands when the client tries to renew
	err = a.Refresh(ctx)
	require.Equal(t, "SESSION_REVOKED", client.ErrorCode(err))
	require.EqualValues(t, 1, lost.Load())
	require.Empty(t, a.AccessToken())
}

func TestReplayRevokesEverySessionWhenConfigured(t *testing.T) {
	w := boot(t, revokeAllConfig)
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
	w.login(b, "maria@example.com", "correct horse battery", "phone")

	status, _, _ := w.refresh(reg.RefreshToken)
	require.Equal(t, http.StatusOK, status)

	time.Sleep(200 * time.Millisecond)

	status, _, code := w.refresh(reg.RefreshToken)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "TOKEN_REUSE", code)

	// the phone session is collateral under replay_revokes_all: its next
	// renewal is refused
	err = b.Refresh(ctx)
	require.Equal(t, "SESSION_REVOKED", client.ErrorCode(err))
	require.EqualValues(t, 1, lost.Load())
}

func TestLogoutCurrentDeviceOnly(t *testing.T) {
	w := boot(t, baseConfig)
	ctx := context.Background()

	a := w.client(nil)
	_, err := a.Register(ctx, client.RegisterRequest{
		Username:   "maria",
		Email:      "maria@example.com",
		Password:   "correct horse battery",
		DeviceInfo: "laptop",
	})
	require.NoError(t, err)

	b := w.client(nil)
	w.login(b, "maria", "correct horse battery", "phone")

	require.NoError(t, b.Logout(ctx, false))
	require.Empty(t, b.AccessToken())

	// the laptop session never notices
	devices, err := a.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	require.Equal(t, "laptop", devices[0].DeviceInfo)
}

func TestLogoutAllDevices(t *testing.T) {
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

	require.NoError(t, b.Logout(ctx, true))
	require.Empty(t, b.AccessToken())

	err = a.Refresh(ctx)
	require.Equal(t, "SESSION_REVOKED", client.ErrorCode(err))
	require.EqualValues(t, 1, lost.Load())
}
