package auth

import (
	"time"

	"github.com/tastebase/auth/internal/session"
)

// TokenResponse carries a token pair to the client. Endpoints that return
// tokens embed it so the envelope stays flat:
// {access_token, token_type, expires_in, refresh_token, ...}.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"` // always "Bearer"
	// ExpiresIn is seconds until the access token expires.
	ExpiresIn        int64     `json:"expires_in"`
	RefreshToken     string    `json:"refresh_token"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
	SessionID        string    `json:"session_id"`
}

// NewTokenResponse maps a session pair into the wire shape.
func NewTokenResponse(pair *session.TokenPair) TokenResponse {
	expiresIn := int64(time.Until(pair.AccessExpiresAt).Seconds())
	if expiresIn < 0 {
		expiresIn = 0
	}
	return TokenResponse{
		AccessToken:      pair.AccessToken,
		TokenType:        pair.TokenType,
		ExpiresIn:        expiresIn,
		RefreshToken:     pair.RefreshToken,
		RefreshExpiresAt: pair.RefreshExpiresAt,
		SessionID:        pair.SessionID,
	}
}

// RefreshRequest represents the request body for POST /v1/auth/refresh-token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RefreshResponse is the rotated (or grace-replayed) pair.
type RefreshResponse struct {
	TokenResponse
}

// LogoutRequest represents the request body for POST /v1/auth/logout. The
// endpoint is authenticated; by default only the calling session dies.
type LogoutRequest struct {
	AllDevices bool `json:"logout_all_devices,omitempty"`
}

// LogoutResponse reports how many sessions died.
type LogoutResponse struct {
	Revoked int `json:"revoked"`
}
