package auth

import (
	"net/http"
	"strings"

	dto "github.com/tastebase/auth/internal/http/dto/auth"
	httperrors "github.com/tastebase/auth/internal/http/errors"
	"github.com/tastebase/auth/internal/http/helpers"
	svc "github.com/tastebase/auth/internal/http/services/auth"
	"github.com/tastebase/auth/internal/observability/logger"
)

// ResetPasswordController handles POST /v1/auth/reset-password.
type ResetPasswordController struct {
	service svc.ResetService
}

// NewResetPasswordController creates a new reset-password controller.
func NewResetPasswordController(service svc.ResetService) *ResetPasswordController {
	return &ResetPasswordController{service: service}
}

// Reset handles POST /v1/auth/reset-password.
func (c *ResetPasswordController) Reset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("ResetPasswordController.Reset"))

	var req dto.ResetPasswordRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Identifier) == "" || strings.TrimSpace(req.ResetCode) == "" ||
		req.NewPassword == "" || req.ConfirmPassword == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail(
			"identifier, reset_code, new_password, confirm_password"))
		return
	}

	resp, err := c.service.Reset(ctx, req)
	if err != nil {
		log.Debug("reset failed", logger.Err(err))
		writeServiceError(w, log, err)
		return
	}

	helpers.NoStore(w)
	helpers.WriteJSON(w, http.StatusOK, resp)
}
