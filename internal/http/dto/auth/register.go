// Package auth contains DTOs for authentication endpoints.
package auth

// RegisterRequest represents the request body for POST /v1/auth/register.
// Email and phone are both optional; when registration verification is
// enabled at least one must be present, along with a code sent to it.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	// VerificationCode is the code sent to the email/phone being claimed.
	VerificationCode string `json:"verification_code,omitempty"`
	Region           string `json:"region,omitempty"`
	DeviceInfo       string `json:"device_info,omitempty"`
}

// RegisterResponse is returned on successful registration. The token
// fields are only present when auto-login is enabled.
type RegisterResponse struct {
	*TokenResponse
	User UserResponse `json:"user"`
}
