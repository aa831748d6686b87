package client

import (
	"context"
	"net/http"
	"net/url"
)

// Login authenticates with an identifier (username, email or phone) and
// stores the returned pair and profile on the client.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.call(ctx, http.MethodPost, pathLogin, req, &out, false); err != nil {
		return nil, err
	}
	c.storeAuth(out.TokenPair, out.User)
	return &out, nil
}

// Register creates an account. When the server auto-logs new accounts
// in, the returned pair is stored like a login; otherwise only the
// profile comes back and the client stays logged out.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.call(ctx, http.MethodPost, pathRegister, req, &out, false); err != nil {
		return nil, err
	}
	if out.AccessToken != "" {
		c.storeAuth(out.TokenPair, out.User)
	}
	return &out, nil
}

// Refresh forces a rotation now instead of waiting for the next 401. It
// shares the transport's single flight, so calling it while a refresh
// is already running just waits for that one.
func (c *Client) Refresh(ctx context.Context) error {
	_, err := c.refreshShared(ctx)
	return err
}

// Logout revokes the current session server-side, or every session when
// allDevices is set, and clears local state. Local state is cleared
// even when the server call fails; the error comes back for logging but
// must not keep the caller signed in.
func (c *Client) Logout(ctx context.Context, allDevices bool) error {
	err := c.call(ctx, http.MethodPost, pathLogout, logoutRequest{AllDevices: allDevices}, nil, true)
	c.ClearAuth()
	return err
}

// SendVerificationCode asks for a one-time code to be delivered to
// identifier. An empty codeType means registration.
func (c *Client) SendVerificationCode(ctx context.Context, identifier, codeType, region string) (*SendCodeResponse, error) {
	in := sendCodeRequest{Identifier: identifier, CodeType: codeType, Region: region}
	var out SendCodeResponse
	if err := c.call(ctx, http.MethodPost, pathSendCode, in, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

// ForgotPassword starts a password reset. The server answers accepted
// whether or not an account exists, so success carries no information.
func (c *Client) ForgotPassword(ctx context.Context, identifier, region string) error {
	in := forgotPasswordRequest{Identifier: identifier, Region: region}
	return c.call(ctx, http.MethodPost, pathForgotPassword, in, nil, false)
}

// ResetPassword completes a forgot-password flow with the delivered
// code. Every session for the account is revoked server-side. The
// confirmation field the wire wants is filled from newPassword; the
// double-entry check is a form concern.
func (c *Client) ResetPassword(ctx context.Context, identifier, resetCode, newPassword string) (*ResetPasswordResponse, error) {
	in := resetPasswordRequest{
		Identifier:      identifier,
		ResetCode:       resetCode,
		NewPassword:     newPassword,
		ConfirmPassword: newPassword,
	}
	var out ResetPasswordResponse
	if err := c.call(ctx, http.MethodPost, pathResetPassword, in, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

// ChangePassword re-verifies the old password before changing it. All
// other sessions are revoked; the calling session is rotated and the
// fresh pair replaces the stored one, so the caller stays signed in.
func (c *Client) ChangePassword(ctx context.Context, oldPassword, newPassword string) (*ChangePasswordResponse, error) {
	in := changePasswordRequest{
		OldPassword:     oldPassword,
		NewPassword:     newPassword,
		ConfirmPassword: newPassword,
	}
	var out ChangePasswordResponse
	if err := c.call(ctx, http.MethodPost, pathChangePassword, in, &out, true); err != nil {
		return nil, err
	}
	if out.AccessToken != "" {
		c.storeTokens(out.TokenPair)
	}
	return &out, nil
}

// Sessions lists the account's live sessions, the current one flagged.
func (c *Client) Sessions(ctx context.Context) ([]Device, error) {
	var out deviceList
	if err := c.call(ctx, http.MethodGet, pathSessions, nil, &out, true); err != nil {
		return nil, err
	}
	return out.Devices, nil
}

// RevokeSession kills one session by id, e.g. from a manage-devices
// screen. Revoking the current session is allowed and works out to a
// logout on that device.
func (c *Client) RevokeSession(ctx context.Context, sessionID string) error {
	return c.call(ctx, http.MethodDelete, pathSessions+"/"+url.PathEscape(sessionID), nil, nil, true)
}

// VerificationStatus reports whether a code is pending for identifier.
func (c *Client) VerificationStatus(ctx context.Context, identifier, codeType string) (*VerificationStatus, error) {
	q := url.Values{"identifier": {identifier}}
	if codeType != "" {
		q.Set("code_type", codeType)
	}
	var out VerificationStatus
	if err := c.call(ctx, http.MethodGet, pathVerificationStatus+"?"+q.Encode(), nil, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

// AccountStatus reports whether an account is currently locked out.
func (c *Client) AccountStatus(ctx context.Context, identifier string) (*AccountStatus, error) {
	q := url.Values{"identifier": {identifier}}
	var out AccountStatus
	if err := c.call(ctx, http.MethodGet, pathAccountStatus+"?"+q.Encode(), nil, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}
