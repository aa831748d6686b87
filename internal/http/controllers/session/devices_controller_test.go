package session_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	ctrl "github.com/tastebase/auth/internal/http/controllers/session"
	dto "github.com/tastebase/auth/internal/http/dto/session"
	"github.com/tastebase/auth/internal/http/middlewares"
	svc "github.com/tastebase/auth/internal/http/services/session"
	"github.com/tastebase/auth/internal/jwt"
)

type stubDevices struct {
	list *dto.DevicesResponse
	err  error

	gotUserID    string
	gotSessionID string
}

func (s *stubDevices) List(_ context.Context, userID, currentSessionID string) (*dto.DevicesResponse, error) {
	s.gotUserID, s.gotSessionID = userID, currentSessionID
	if s.err != nil {
		return nil, s.err
	}
	return s.list, nil
}

func (s *stubDevices) RevokeOne(_ context.Context, userID, sessionID string) error {
	s.gotUserID, s.gotSessionID = userID, sessionID
	return s.err
}

// mount wires the controller through a chi router with canned claims, the
// same shape the real route group has.
func mount(c *ctrl.DevicesController, userID, sessionID string) http.Handler {
	r := chi.NewRouter()
	if userID != "" {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				claims := &jwt.AccessClaims{SessionID: sessionID}
				claims.Subject = userID
				next.ServeHTTP(w, req.WithContext(middlewares.WithClaims(req.Context(), claims)))
			})
		})
	}
	r.Get("/v1/auth/sessions", c.List)
	r.Delete("/v1/auth/sessions/{id}", c.RevokeOne)
	return r
}

func TestListDevices(t *testing.T) {
	now := time.Now().UTC()
	stub := &stubDevices{list: &dto.DevicesResponse{
		Devices: []dto.DeviceResponse{
			{SessionID: "sess-1", DeviceInfo: "laptop", CreatedAt: now, ExpiresAt: now.Add(time.Hour), Current: true},
			{SessionID: "sess-2", DeviceInfo: "phone", CreatedAt: now, ExpiresAt: now.Add(time.Hour)},
		},
		Total: 2,
	}}
	h := mount(ctrl.NewDevicesController(stub), "u1", "sess-1")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/auth/sessions", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "u1", stub.gotUserID)
	require.Equal(t, "sess-1", stub.gotSessionID)
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var resp dto.DevicesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.Total)
	require.True(t, resp.Devices[0].Current)
	require.False(t, resp.Devices[1].Current)
}

func TestListWithoutClaims(t *testing.T) {
	h := mount(ctrl.NewDevicesController(&stubDevices{}), "", "")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/auth/sessions", nil))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRevokeDevice(t *testing.T) {
	stub := &stubDevices{}
	h := mount(ctrl.NewDevicesController(stub), "u1", "sess-1")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/v1/auth/sessions/sess-2", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "sess-2", stub.gotSessionID)

	var resp dto.RevokeDeviceResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Revoked)
	require.Equal(t, "sess-2", resp.SessionID)
}

func TestRevokeUnknownDevice(t *testing.T) {
	h := mount(ctrl.NewDevicesController(&stubDevices{err: svc.ErrDeviceNotFound}), "u1", "sess-1")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/v1/auth/sessions/ghost", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)

	var body struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "NOT_FOUND", body.Code)
}
