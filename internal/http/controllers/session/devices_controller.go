// Package session contains the HTTP controllers for device/session
// management.
package session

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	dto "github.com/tastebase/auth/internal/http/dto/session"
	httperrors "github.com/tastebase/auth/internal/http/errors"
	"github.com/tastebase/auth/internal/http/helpers"
	"github.com/tastebase/auth/internal/http/middlewares"
	svc "github.com/tastebase/auth/internal/http/services/session"
	"github.com/tastebase/auth/internal/observability/logger"
)

// DevicesController serves the per-account device list and single-device
// revocation.
type DevicesController struct {
	service svc.DevicesService
}

func NewDevicesController(service svc.DevicesService) *DevicesController {
	return &DevicesController{service: service}
}

// List handles GET /v1/auth/sessions.
func (c *DevicesController) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(
		logger.Layer("controller"),
		logger.Op("DevicesController.List"),
	)

	claims := middlewares.GetClaims(ctx)
	if claims == nil {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}

	resp, err := c.service.List(ctx, claims.UserID(), claims.SessionID)
	if err != nil {
		writeDevicesError(w, log, err)
		return
	}

	helpers.NoStore(w)
	helpers.WriteJSON(w, http.StatusOK, resp)
}

// RevokeOne handles DELETE /v1/auth/sessions/{id}. Sessions of other
// accounts read as not found.
func (c *DevicesController) RevokeOne(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(
		logger.Layer("controller"),
		logger.Op("DevicesController.RevokeOne"),
	)

	claims := middlewares.GetClaims(ctx)
	if claims == nil {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}

	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("session id"))
		return
	}

	if err := c.service.RevokeOne(ctx, claims.UserID(), id); err != nil {
		writeDevicesError(w, log, err)
		return
	}

	helpers.WriteJSON(w, http.StatusOK, dto.RevokeDeviceResponse{SessionID: id, Revoked: true})
}

func writeDevicesError(w http.ResponseWriter, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, svc.ErrDeviceNotFound):
		httperrors.WriteError(w, httperrors.ErrNotFound.WithDetail("no active session with that id"))
	default:
		log.Error("unmapped service error", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternalServerError)
	}
}
