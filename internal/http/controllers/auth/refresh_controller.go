package auth

import (
	"net/http"
	"strings"

	dto "github.com/tastebase/auth/internal/http/dto/auth"
	httperrors "github.com/tastebase/auth/internal/http/errors"
	"github.com/tastebase/auth/internal/http/helpers"
	"github.com/tastebase/auth/internal/observability/logger"
	"github.com/tastebase/auth/internal/session"
)

// RefreshController handles POST /v1/auth/refresh-token. It talks to the
// session manager directly; rotation needs no orchestration of its own.
type RefreshController struct {
	sessions session.Manager
}

// NewRefreshController creates a new refresh controller.
func NewRefreshController(sessions session.Manager) *RefreshController {
	return &RefreshController{sessions: sessions}
}

// Refresh handles POST /v1/auth/refresh-token.
func (c *RefreshController) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("RefreshController.Refresh"))

	var req dto.RefreshRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	req.RefreshToken = strings.TrimSpace(req.RefreshToken)
	if req.RefreshToken == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("refresh_token"))
		return
	}

	pair, err := c.sessions.Refresh(ctx, req.RefreshToken)
	if err != nil {
		log.Debug("refresh failed", logger.Err(err))
		writeServiceError(w, log, err)
		return
	}

	helpers.NoStore(w)
	helpers.WriteJSON(w, http.StatusOK, dto.RefreshResponse{TokenResponse: dto.NewTokenResponse(pair)})
}
