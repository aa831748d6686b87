package session

import (
	"time"

	sess "github.com/tastebase/auth/internal/session"
)

// DeviceResponse is one entry in the device list for an account.
type DeviceResponse struct {
	SessionID     string     `json:"session_id"`
	DeviceInfo    string     `json:"device_info,omitempty"`
	IPAddress     string     `json:"ip_address,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	LastRefreshAt *time.Time `json:"last_refresh_at,omitempty"`
	ExpiresAt     time.Time  `json:"expires_at"`
	Current       bool       `json:"current"`
}

// DevicesResponse wraps the full device list.
type DevicesResponse struct {
	Devices []DeviceResponse `json:"devices"`
	Total   int              `json:"total"`
}

// NewDevicesResponse converts the service view into the wire shape.
func NewDevicesResponse(devices []sess.Device) *DevicesResponse {
	out := make([]DeviceResponse, 0, len(devices))
	for _, d := range devices {
		out = append(out, DeviceResponse{
			SessionID:     d.SessionID,
			DeviceInfo:    d.DeviceInfo,
			IPAddress:     d.IPAddress,
			CreatedAt:     d.CreatedAt,
			LastRefreshAt: d.LastRefreshAt,
			ExpiresAt:     d.ExpiresAt,
			Current:       d.Current,
		})
	}
	return &DevicesResponse{Devices: out, Total: len(out)}
}

// RevokeDeviceResponse confirms a single-session revocation.
type RevokeDeviceResponse struct {
	SessionID string `json:"session_id"`
	Revoked   bool   `json:"revoked"`
}
