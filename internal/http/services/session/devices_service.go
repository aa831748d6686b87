// Package session contains the service behind the device-management
// endpoints: listing a user's sessions and revoking them one by one.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/tastebase/auth/internal/audit"
	"github.com/tastebase/auth/internal/domain/repository"
	dto "github.com/tastebase/auth/internal/http/dto/session"
	"github.com/tastebase/auth/internal/observability/logger"
	sess "github.com/tastebase/auth/internal/session"
	"github.com/tastebase/auth/internal/store"
)

// ErrDeviceNotFound covers both sessions that do not exist and sessions
// that belong to someone else; callers cannot tell the two apart.
var ErrDeviceNotFound = errors.New("device session not found")

// DevicesService manages a user's own sessions.
type DevicesService interface {
	// List returns the caller's live sessions, flagging the one the
	// request came from.
	List(ctx context.Context, userID, currentSessionID string) (*dto.DevicesResponse, error)

	// RevokeOne kills one of the caller's sessions. Revoking a session
	// the caller does not own reads as not found.
	RevokeOne(ctx context.Context, userID, sessionID string) error
}

// DevicesDeps contains dependencies for the devices service.
type DevicesDeps struct {
	DAL      store.DataAccessLayer
	Sessions sess.Manager
}

type devicesService struct {
	deps DevicesDeps
}

// NewDevicesService creates a new devices service.
func NewDevicesService(deps DevicesDeps) DevicesService {
	return &devicesService{deps: deps}
}

func (s *devicesService) List(ctx context.Context, userID, currentSessionID string) (*dto.DevicesResponse, error) {
	devices, err := s.deps.Sessions.Devices(ctx, userID, currentSessionID)
	if err != nil {
		return nil, fmt.Errorf("devices: %w", err)
	}
	return dto.NewDevicesResponse(devices), nil
}

func (s *devicesService) RevokeOne(ctx context.Context, userID, sessionID string) error {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("session.devices"),
		logger.Op("RevokeOne"),
		logger.UserID(userID),
	)

	target, err := s.deps.DAL.Sessions().GetByID(ctx, sessionID)
	if err != nil {
		if repository.IsNotFound(err) {
			return ErrDeviceNotFound
		}
		return fmt.Errorf("devices: lookup: %w", err)
	}
	if target.UserID != userID {
		// someone probing other users' session ids gets the same answer
		// as a miss
		log.Warn("cross-user session revoke attempt", logger.SessionID(sessionID))
		return ErrDeviceNotFound
	}
	if !target.IsActive {
		return ErrDeviceNotFound
	}

	if err := s.deps.Sessions.Revoke(ctx, sessionID); err != nil {
		if errors.Is(err, sess.ErrSessionRevoked) {
			return ErrDeviceNotFound
		}
		return fmt.Errorf("devices: revoke: %w", err)
	}
	audit.Record(ctx, audit.SessionRevoked,
		logger.UserID(userID), logger.SessionID(sessionID),
		logger.String("cause", "device_revoke"))
	return nil
}
