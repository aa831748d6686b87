package auth

// ForgotPasswordRequest represents the request body for
// POST /v1/auth/forgot-password.
type ForgotPasswordRequest struct {
	Identifier string `json:"identifier"` // email or phone
	Region     string `json:"region,omitempty"`
}

// ForgotPasswordResponse is deliberately generic: it reads the same
// whether or not an account exists for the identifier.
type ForgotPasswordResponse struct {
	Message string `json:"message"`
}

// ResetPasswordRequest represents the request body for
// POST /v1/auth/reset-password.
type ResetPasswordRequest struct {
	Identifier      string `json:"identifier"`
	ResetCode       string `json:"reset_code"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

// ResetPasswordResponse confirms the reset and how many sessions died.
type ResetPasswordResponse struct {
	Message         string `json:"message"`
	SessionsRevoked int    `json:"sessions_revoked"`
}

// ChangePasswordRequest represents the request body for
// POST /v1/auth/change-password (authenticated).
type ChangePasswordRequest struct {
	OldPassword     string `json:"old_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

// ChangePasswordResponse confirms the change. Every other session is
// revoked; the calling session is rotated in place, so the response
// carries a fresh pair for it.
type ChangePasswordResponse struct {
	TokenResponse
	Message         string `json:"message"`
	SessionsRevoked int    `json:"sessions_revoked"`
}
