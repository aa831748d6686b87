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

// ChangePasswordController handles POST /v1/auth/change-password
// (authenticated).
type ChangePasswordController struct {
	service svc.ChangePasswordService
}

// NewChangePasswordController creates a new change-password controller.
func NewChangePasswordController(service svc.ChangePasswordService) *ChangePasswordController {
	return &ChangePasswordController{service: service}
}

// Change handles POST /v1/auth/change-password.
func (c *ChangePasswordController) Change(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("ChangePasswordController.Change"))

	claims := middlewares.GetClaims(ctx)
	if claims == nil {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}

	var req dto.ChangePasswordRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if req.OldPassword == "" || req.NewPassword == "" || req.ConfirmPassword == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail(
			"old_password, new_password, confirm_password"))
		return
	}

	resp, err := c.service.Change(ctx, claims.UserID(), claims.SessionID, req)
	if err != nil {
		log.Debug("change password failed", logger.Err(err))
		writeServiceError(w, log, err)
		return
	}

	helpers.NoStore(w)
	helpers.WriteJSON(w, http.StatusOK, resp)
}
