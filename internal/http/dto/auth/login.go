package auth

// LoginRequest represents the request body for POST /v1/auth/login.
// Identifier is a username, email or phone number. IdentifierType
// (username|email|phone) is optional; when absent the server classifies
// the identifier itself.
type LoginRequest struct {
	Identifier     string `json:"identifier"`
	IdentifierType string `json:"identifier_type,omitempty"`
	Password       string `json:"password"`
	// Region is accepted for wire compatibility; the stored profile
	// region is what ends up in the token claims.
	Region     string `json:"region,omitempty"`
	DeviceInfo string `json:"device_info,omitempty"`
}

// LoginResponse is the flat token envelope plus the user it belongs to.
type LoginResponse struct {
	TokenResponse
	User UserResponse `json:"user"`
}
