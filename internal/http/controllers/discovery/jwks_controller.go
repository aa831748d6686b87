// Package discovery serves the key-discovery endpoint other services use
// to validate access tokens locally.
package discovery

import (
	"net/http"

	"github.com/tastebase/auth/internal/jwt"
)

// JWKSController serves GET /.well-known/jwks.json. The document is
// rendered once; the active key does not rotate within a process
// lifetime.
type JWKSController struct {
	doc []byte
}

func NewJWKSController(issuer *jwt.Issuer) *JWKSController {
	return &JWKSController{doc: issuer.JWKSJSON()}
}

func (c *JWKSController) JWKS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(c.doc)
}
