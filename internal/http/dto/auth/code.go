package auth

import "time"

// SendCodeRequest represents the request body for
// POST /v1/auth/send-verification-code.
type SendCodeRequest struct {
	Identifier string `json:"identifier"` // email or phone
	// CodeType is register (default) or password_reset.
	CodeType string `json:"code_type,omitempty"`
	Region   string `json:"region,omitempty"`
}

// SendCodeResponse tells the client when the code dies and when it may
// ask for another one.
type SendCodeResponse struct {
	Message            string    `json:"message"`
	ExpiresAt          time.Time `json:"expires_at"`
	ResendAfterSeconds int       `json:"resend_after_seconds"`
}

// VerificationStatusResponse reports whether a live code is pending for
// an identifier (GET /v1/auth/verification-status).
type VerificationStatusResponse struct {
	Pending            bool       `json:"pending"`
	ExpiresAt          *time.Time `json:"expires_at,omitempty"`
	ResendAfterSeconds int        `json:"resend_after_seconds"`
}
