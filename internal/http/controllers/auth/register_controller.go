package auth

import (
	"net/http"
	"strings"

	dto "github.com/tastebase/auth/internal/http/dto/auth"
	httperrors "github.com/tastebase/auth/internal/http/errors"
	"github.com/tastebase/auth/internal/http/helpers"
	"github.com/tastebase/auth/internal/http/middlewares"
	svc "github.com/tastebase/auth/internal/http/services/auth"
	"github.com/tastebase/auth/internal/observability/logger"
)

// RegisterController handles POST /v1/auth/register.
type RegisterController struct {
	service svc.RegisterService
}

// NewRegisterController creates a new register controller.
func NewRegisterController(service svc.RegisterService) *RegisterController {
	return &RegisterController{service: service}
}

// Register handles POST /v1/auth/register.
func (c *RegisterController) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("RegisterController.Register"))

	var req dto.RegisterRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("username, password"))
		return
	}

	resp, err := c.service.Register(ctx, req, middlewares.ClientIP(r))
	if err != nil {
		log.Debug("register failed", logger.Err(err))
		writeServiceError(w, log, err)
		return
	}

	helpers.NoStore(w)
	helpers.WriteJSON(w, http.StatusCreated, resp)
}
