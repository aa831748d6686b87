package jwt

import (
	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// AccessClaims is the payload of an access token. Tokens are validated
// purely from signature and expiry; no storage lookup happens on the hot
// path, which is why the session id rides inside the token.
type AccessClaims struct {
	jwtv5.RegisteredClaims

	SessionID string `json:"sid"`
	Region    string `json:"region,omitempty"`
	IsPaid    bool   `json:"is_paid,omitempty"`
}

// UserID is the subject claim under its domain name.
func (c *AccessClaims) UserID() string {
	return c.Subject
}
