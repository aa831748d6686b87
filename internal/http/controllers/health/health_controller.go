// Package health contains the liveness and readiness endpoints.
package health

import (
	"context"
	"net/http"

	httperrors "github.com/tastebase/auth/internal/http/errors"
	"github.com/tastebase/auth/internal/jwt"
	"github.com/tastebase/auth/internal/observability/logger"
	"github.com/tastebase/auth/internal/store"
)

// HealthController answers /healthz and /readyz. Liveness is
// unconditional; readiness proves the store is reachable and the signing
// key round-trips.
type HealthController struct {
	dal        store.DataAccessLayer
	issuer     *jwt.Issuer
	checkCache func(ctx context.Context) error // optional, nil when rate limiting is in-process
}

func NewHealthController(dal store.DataAccessLayer, issuer *jwt.Issuer, checkCache func(ctx context.Context) error) *HealthController {
	return &HealthController{dal: dal, issuer: issuer, checkCache: checkCache}
}

// Healthz handles GET /healthz.
func (c *HealthController) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Readyz handles GET /readyz.
func (c *HealthController) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(
		logger.Layer("controller"),
		logger.Op("HealthController.Readyz"),
	)

	if err := c.dal.Ping(ctx); err != nil {
		log.Error("store unavailable", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrServiceUnavailable.WithDetail("store unavailable"))
		return
	}

	// Sign and parse an ephemeral token so a bad key surfaces here
	// instead of on the first login after a deploy.
	token, _, err := c.issuer.IssueAccess("selfcheck", "selfcheck", "", false)
	if err != nil {
		log.Error("self-check sign failed", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrServiceUnavailable.WithDetail("token signing unavailable"))
		return
	}
	claims, err := c.issuer.ParseAccess(token)
	if err != nil || claims.Subject != "selfcheck" {
		log.Error("self-check verify failed", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrServiceUnavailable.WithDetail("token verification failed"))
		return
	}

	if c.checkCache != nil {
		if err := c.checkCache(ctx); err != nil {
			log.Error("cache unavailable", logger.Err(err))
			httperrors.WriteError(w, httperrors.ErrServiceUnavailable.WithDetail("cache unavailable"))
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
