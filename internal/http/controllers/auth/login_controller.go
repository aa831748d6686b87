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

// LoginController handles POST /v1/auth/login and the account-status probe.
type LoginController struct {
	service svc.LoginService
}

// NewLoginController creates a new login controller.
func NewLoginController(service svc.LoginService) *LoginController {
	return &LoginController{service: service}
}

// Login handles POST /v1/auth/login.
func (c *LoginController) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("LoginController.Login"))

	var req dto.LoginRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Identifier) == "" || req.Password == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("identifier, password"))
		return
	}

	resp, err := c.service.Login(ctx, req, middlewares.ClientIP(r))
	if err != nil {
		log.Debug("login failed", logger.Err(err))
		writeServiceError(w, log, err)
		return
	}

	helpers.NoStore(w)
	helpers.WriteJSON(w, http.StatusOK, resp)
}

// AccountStatus handles GET /v1/auth/account-status?identifier=...
// The answer has the same shape for every identifier, known or not.
func (c *LoginController) AccountStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("LoginController.AccountStatus"))

	identifier := strings.TrimSpace(r.URL.Query().Get("identifier"))
	if identifier == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("identifier"))
		return
	}

	resp, err := c.service.Status(ctx, identifier)
	if err != nil {
		writeServiceError(w, log, err)
		return
	}
	helpers.NoStore(w)
	helpers.WriteJSON(w, http.StatusOK, resp)
}
