package auth

import (
	"net/http"

	dto "github.com/tastebase/auth/internal/http/dto/auth"
	httperrors "github.com/tastebase/auth/internal/http/errors"
	"github.com/tastebase/auth/internal/http/helpers"
	"github.com/tastebase/auth/internal/http/middlewares"
	svc "github.com/tastebase/auth/internal/http/services/auth"
	"github.com/tastebase/auth/internal/observability/logger"
)

// LogoutController handles POST /v1/auth/logout (authenticated).
type LogoutController struct {
	service svc.LogoutService
}

// NewLogoutController creates a new logout controller.
func NewLogoutController(service svc.LogoutService) *LogoutController {
	return &LogoutController{service: service}
}

// Logout handles POST /v1/auth/logout. The body is optional; an empty one
// means "this session only".
func (c *LogoutController) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("LogoutController.Logout"))

	claims := middlewares.GetClaims(ctx)
	if claims == nil {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}

	var req dto.LogoutRequest
	if r.ContentLength != 0 {
		if !helpers.ReadJSON(w, r, &req) {
			return
		}
	}

	revoked, err := c.service.Logout(ctx, svc.LogoutInput{
		UserID:     claims.UserID(),
		SessionID:  claims.SessionID,
		AllDevices: req.AllDevices,
	})
	if err != nil {
		log.Error("logout failed", logger.Err(err))
		writeServiceError(w, log, err)
		return
	}

	helpers.NoStore(w)
	helpers.WriteJSON(w, http.StatusOK, dto.LogoutResponse{Revoked: revoked})
}
