package client

import (
	"errors"
	"fmt"
	"time"
)

// TokenPair is the flat token envelope returned by login, register,
// refresh-token and change-password.
type TokenPair struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	// ExpiresIn is seconds until the access token expires, measured at
	// the moment the server answered.
	ExpiresIn        int64     `json:"expires_in"`
	RefreshToken     string    `json:"refresh_token"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
	SessionID        string    `json:"session_id"`
}

// User is the public profile attached to login and register answers.
type User struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	Region     string    `json:"region,omitempty"`
	IsVerified bool      `json:"is_verified"`
	IsPaid     bool      `json:"is_paid"`
	CreatedAt  time.Time `json:"created_at"`
}

// LoginRequest is the body for POST /v1/auth/login. IdentifierType
// (username|email|phone) may be left empty; the server classifies the
// identifier itself.
type LoginRequest struct {
	Identifier     string `json:"identifier"`
	IdentifierType string `json:"identifier_type,omitempty"`
	Password       string `json:"password"`
	Region         string `json:"region,omitempty"`
	DeviceInfo     string `json:"device_info,omitempty"`
}

// RegisterRequest is the body for POST /v1/auth/register.
type RegisterRequest struct {
	Username         string `json:"username"`
	Password         string `json:"password"`
	Email            string `json:"email,omitempty"`
	Phone            string `json:"phone,omitempty"`
	VerificationCode string `json:"verification_code,omitempty"`
	Region           string `json:"region,omitempty"`
	DeviceInfo       string `json:"device_info,omitempty"`
}

// AuthResponse is what login and register answer with. After a register
// on a server that does not auto-login, the token fields are zero and
// only User is populated.
type AuthResponse struct {
	TokenPair
	User User `json:"user"`
}

// SendCodeResponse acknowledges a verification-code send.
type SendCodeResponse struct {
	Message            string    `json:"message"`
	ExpiresAt          time.Time `json:"expires_at"`
	ResendAfterSeconds int       `json:"resend_after_seconds"`
}

// VerificationStatus reports whether a code is pending for a target.
type VerificationStatus struct {
	Pending            bool       `json:"pending"`
	ExpiresAt          *time.Time `json:"expires_at,omitempty"`
	ResendAfterSeconds int        `json:"resend_after_seconds"`
}

// AccountStatus reports the lockout state of an account.
type AccountStatus struct {
	Locked      bool       `json:"locked"`
	LockedUntil *time.Time `json:"locked_until,omitempty"`
}

// ResetPasswordResponse confirms a completed password reset.
type ResetPasswordResponse struct {
	Message         string `json:"message"`
	SessionsRevoked int    `json:"sessions_revoked"`
}

// ChangePasswordResponse confirms a password change. The embedded pair
// replaces the caller's tokens: the server rotates the calling session
// and revokes every other one.
type ChangePasswordResponse struct {
	TokenPair
	Message         string `json:"message"`
	SessionsRevoked int    `json:"sessions_revoked"`
}

// Device is one entry in the active-session listing.
type Device struct {
	SessionID     string     `json:"session_id"`
	DeviceInfo    string     `json:"device_info,omitempty"`
	IPAddress     string     `json:"ip_address,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	LastRefreshAt *time.Time `json:"last_refresh_at,omitempty"`
	ExpiresAt     time.Time  `json:"expires_at"`
	Current       bool       `json:"current"`
}

type deviceList struct {
	Devices []Device `json:"devices"`
	Total   int      `json:"total"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type logoutRequest struct {
	AllDevices bool `json:"logout_all_devices,omitempty"`
}

type forgotPasswordRequest struct {
	Identifier string `json:"identifier"`
	Region     string `json:"region,omitempty"`
}

type resetPasswordRequest struct {
	Identifier      string `json:"identifier"`
	ResetCode       string `json:"reset_code"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

type changePasswordRequest struct {
	OldPassword     string `json:"old_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

type sendCodeRequest struct {
	Identifier string `json:"identifier"`
	CodeType   string `json:"code_type,omitempty"`
	Region     string `json:"region,omitempty"`
}

// APIError is a non-2xx answer decoded from the server's error body.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// ErrorCode extracts the server error code from err, or "" when err is
// not an APIError.
func ErrorCode(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}
