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

// ForgotPasswordController handles POST /v1/auth/forgot-password.
type ForgotPasswordController struct {
	service svc.ForgotService
}

// NewForgotPasswordController creates a new forgot-password controller.
func NewForgotPasswordController(service svc.ForgotService) *ForgotPasswordController {
	return &ForgotPasswordController{service: service}
}

// Forgot handles POST /v1/auth/forgot-password. Every well-formed request
// is answered 202 regardless of whether the identifier is registered.
func (c *ForgotPasswordController) Forgot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("ForgotPasswordController.Forgot"))

	var req dto.ForgotPasswordRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Identifier) == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("identifier"))
		return
	}

	if err := c.service.Forgot(ctx, req.Identifier); err != nil {
		writeServiceError(w, log, err)
		return
	}

	helpers.WriteJSON(w, http.StatusAccepted, dto.ForgotPasswordResponse{
		Message: "If the identifier is registered, a reset code is on its way.",
	})
}
