package client_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tastebase/auth/client"
)

func sendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func sendErr(w http.ResponseWriter, status int, code string) {
	sendJSON(w, status, map[string]string{"code": code, "message": code})
}

// pairBody is the wire envelope for generation n: access-n / refresh-n.
func pairBody(n int) map[string]any {
	return map[string]any{
		"access_token":       fmt.Sprintf("access-%d", n),
		"token_type":         "Bearer",
		"expires_in":         900,
		"refresh_token":      fmt.Sprintf("refresh-%d", n),
		"refresh_expires_at": time.Now().Add(30 * 24 * time.Hour),
		"session_id":         "sess-1",
	}
}

func seeded(t *testing.T, baseURL string, opts ...func(*client.Options)) *client.Client {
	t.Helper()
	o := client.Options{BaseURL: baseURL}
	for _, fn := range opts {
		fn(&o)
	}
	c, err := client.New(o)
	require.NoError(t, err)
	c.SetTokens(client.TokenPair{AccessToken: "access-0", RefreshToken: "refresh-0"})
	return c
}

func TestLoginStoresSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/auth/login" {
			http.NotFound(w, r)
			return
		}
		var in client.LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Password != "hunter2!" {
			sendErr(w, http.StatusUnauthorized, "INVALID_CREDENTIALS")
			return
		}
		body := pairBody(0)
		body["user"] = map[string]any{"id": "u1", "username": "maria", "is_verified": true}
		sendJSON(w, http.StatusOK, body)
	}))
	defer srv.Close()

	c, err := client.New(client.Options{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = c.Login(context.Background(), client.LoginRequest{Identifier: "maria", Password: "wrong"})
	require.Error(t, err)
	require.Equal(t, "INVALID_CREDENTIALS", client.ErrorCode(err))
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.Status)
	require.Empty(t, c.AccessToken())

	resp, err := c.Login(context.Background(), client.LoginRequest{Identifier: "maria", Password: "hunter2!"})
	require.NoError(t, err)
	require.Equal(t, "maria", resp.User.Username)
	require.Equal(t, "access-0", c.AccessToken())
	require.Equal(t, "refresh-0", c.Tokens().RefreshToken)
	require.NotNil(t, c.CurrentUser())
	require.Equal(t, "u1", c.CurrentUser().ID)
}

func TestRegisterWithoutAutoLoginStaysLoggedOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sendJSON(w, http.StatusCreated, map[string]any{
			"user": map[string]any{"id": "u2", "username": "nora", "is_verified": false},
		})
	}))
	defer srv.Close()

	c, err := client.New(client.Options{BaseURL: srv.URL})
	require.NoError(t, err)

	resp, err := c.Register(context.Background(), client.RegisterRequest{Username: "nora", Password: "hunter2!"})
	require.NoError(t, err)
	require.Equal(t, "nora", resp.User.Username)
	require.Empty(t, resp.AccessToken)
	require.Empty(t, c.AccessToken())
	require.Nil(t, c.CurrentUser())
}

// Ten calls failing on the same expired token must produce exactly one
// refresh-token call, and every caller must end up succeeding.
func TestSingleFlightRefresh(t *testing.T) {
	var (
		mu           sync.Mutex
		refreshCalls int
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/auth/refresh-token":
			var in struct {
				RefreshToken string `json:"refresh_token"`
			}
			_ = json.NewDecoder(r.Body).Decode(&in)
			mu.Lock()
			refreshCalls++
			mu.Unlock()
			if in.RefreshToken != "refresh-0" {
				sendErr(w, http.StatusUnauthorized, "TOKEN_REUSE")
				return
			}
			// widen the window so the failing calls pile onto this flight
			time.Sleep(50 * time.Millisecond)
			sendJSON(w, http.StatusOK, pairBody(1))
		case "/v1/ping":
			if r.Header.Get("Authorization") == "Bearer access-1" {
				w.WriteHeader(http.StatusOK)
				return
			}
			sendErr(w, http.StatusUnauthorized, "TOKEN_EXPIRED")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := seeded(t, srv.URL)
	hc := &http.Client{Transport: c.Transport()}

	const callers = 10
	var wg sync.WaitGroup
	errs := make([]error, callers)
	codes := make([]int, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := hc.Get(srv.URL + "/v1/ping")
			if err != nil {
				errs[i] = err
				return
			}
			codes[i] = resp.StatusCode
			resp.Body.Close()
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i], "caller %d", i)
		require.Equal(t, http.StatusOK, codes[i], "caller %d", i)
	}
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1, refreshCalls)
	require.Equal(t, "access-1", c.AccessToken())
	require.Equal(t, "refresh-1", c.Tokens().RefreshToken)
}

// A request is retried at most once even when the server keeps
// answering 401; the second 401 comes back to the caller untouched.
func TestRetryExactlyOnce(t *testing.T) {
	var (
		mu        sync.Mutex
		pings     int
		refreshes int
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/auth/refresh-token":
			mu.Lock()
			refreshes++
			n := refreshes
			mu.Unlock()
			sendJSON(w, http.StatusOK, pairBody(n))
		case "/v1/ping":
			mu.Lock()
			pings++
			mu.Unlock()
			sendErr(w, http.StatusUnauthorized, "TOKEN_EXPIRED")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := seeded(t, srv.URL)
	hc := &http.Client{Transport: c.Transport()}

	resp, err := hc.Get(srv.URL + "/v1/ping")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	mu.Lock()
	require.Equal(t, 2, pings, "original call plus exactly one retry")
	require.Equal(t, 1, refreshes)
	mu.Unlock()

	// the refreshed pair survives; only the one request failed
	require.Equal(t, "access-1", c.AccessToken())
}

// A failing refresh clears local state and fires OnAuthExpired exactly
// once, no matter how many callers were waiting on the flight.
func TestRefreshFailureClearsAuth(t *testing.T) {
	var (
		mu        sync.Mutex
		refreshes int
		hooks     int
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/auth/refresh-token":
			mu.Lock()
			refreshes++
			mu.Unlock()
			time.Sleep(20 * time.Millisecond)
			sendErr(w, http.StatusUnauthorized, "TOKEN_REUSE")
		case "/v1/ping":
			sendErr(w, http.StatusUnauthorized, "TOKEN_EXPIRED")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := seeded(t, srv.URL, func(o *client.Options) {
		o.OnAuthExpired = func() {
			mu.Lock()
			hooks++
			mu.Unlock()
		}
	})
	hc := &http.Client{Transport: c.Transport()}

	const callers = 5
	var wg sync.WaitGroup
	codes := make([]string, callers)
	statuses := make([]int, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := hc.Get(srv.URL + "/v1/ping")
			if err != nil {
				return
			}
			defer resp.Body.Close()
			statuses[i] = resp.StatusCode
			var env struct {
				Code string `json:"code"`
			}
			_ = json.NewDecoder(resp.Body).Decode(&env)
			codes[i] = env.Code
		}(i)
	}
	wg.Wait()

	// every caller gets the original 401 back, body intact
	for i := 0; i < callers; i++ {
		require.Equal(t, http.StatusUnauthorized, statuses[i], "caller %d", i)
		require.Equal(t, "TOKEN_EXPIRED", codes[i], "caller %d", i)
	}

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1, refreshes, "one shared flight for all waiters")
	require.Equal(t, 1, hooks)
	require.Empty(t, c.AccessToken())
	require.Empty(t, c.Tokens().RefreshToken)
}

// A 401 that names a dead session clears state without attempting a
// refresh at all.
func TestSessionRevokedClearsWithoutRefresh(t *testing.T) {
	var (
		mu        sync.Mutex
		refreshes int
		hooks     int
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/auth/refresh-token":
			mu.Lock()
			refreshes++
			mu.Unlock()
			sendJSON(w, http.StatusOK, pairBody(1))
		case "/v1/ping":
			sendErr(w, http.StatusUnauthorized, "SESSION_REVOKED")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := seeded(t, srv.URL, func(o *client.Options) {
		o.OnAuthExpired = func() {
			mu.Lock()
			hooks++
			mu.Unlock()
		}
	})
	hc := &http.Client{Transport: c.Transport()}

	resp, err := hc.Get(srv.URL + "/v1/ping")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 0, refreshes)
	require.Equal(t, 1, hooks)
	require.Empty(t, c.AccessToken())
}

// A caller that gives up while waiting on the flight gets its context
// error, but the refresh still completes and updates shared state.
func TestAbandonedWaiterDoesNotCancelRefresh(t *testing.T) {
	inFlight := make(chan struct{})
	release := make(chan struct{})
	var entered sync.Once

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/auth/refresh-token":
			entered.Do(func() { close(inFlight) })
			<-release
			sendJSON(w, http.StatusOK, pairBody(1))
		case "/v1/ping":
			sendErr(w, http.StatusUnauthorized, "TOKEN_EXPIRED")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := seeded(t, srv.URL)
	hc := &http.Client{Transport: c.Transport()}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/ping", nil)
		_, err := hc.Do(req)
		done <- err
	}()

	<-inFlight
	cancel()
	err := <-done
	require.ErrorIs(t, err, context.Canceled)

	// nobody is listening anymore; the flight must still land
	close(release)
	require.Eventually(t, func() bool {
		return c.AccessToken() == "access-1"
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, "refresh-1", c.Tokens().RefreshToken)
}

// Requests whose body cannot be rewound are never retried, and no
// refresh is spent on them.
func TestNonReplayableBodyNotRetried(t *testing.T) {
	var (
		mu        sync.Mutex
		refreshes int
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/auth/refresh-token":
			mu.Lock()
			refreshes++
			mu.Unlock()
			sendJSON(w, http.StatusOK, pairBody(1))
		default:
			sendErr(w, http.StatusUnauthorized, "TOKEN_EXPIRED")
		}
	}))
	defer srv.Close()

	c := seeded(t, srv.URL)
	hc := &http.Client{Transport: c.Transport()}

	// wrapping the reader hides its type, so NewRequest cannot set GetBody
	body := struct{ io.Reader }{strings.NewReader(`{"note":"one-shot"}`)}
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/v1/upload", body)
	require.NoError(t, err)
	require.Nil(t, req.GetBody)

	resp, err := hc.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 0, refreshes)
}

// A client resumed with only a refresh token mints an access token
// before the first request instead of burning a guaranteed 401.
func TestResumeFromRefreshTokenOnly(t *testing.T) {
	var (
		mu    sync.Mutex
		pings int
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/auth/refresh-token":
			sendJSON(w, http.StatusOK, pairBody(1))
		case "/v1/ping":
			mu.Lock()
			pings++
			mu.Unlock()
			if r.Header.Get("Authorization") == "Bearer access-1" {
				w.WriteHeader(http.StatusOK)
				return
			}
			sendErr(w, http.StatusUnauthorized, "TOKEN_EXPIRED")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c, err := client.New(client.Options{BaseURL: srv.URL})
	require.NoError(t, err)
	c.SetTokens(client.TokenPair{RefreshToken: "refresh-0"})
	hc := &http.Client{Transport: c.Transport()}

	resp, err := hc.Get(srv.URL + "/v1/ping")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1, pings)
}

func TestLogoutClearsStateEvenWhenServerFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/auth/logout" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer access-0" {
			t.Errorf("unexpected Authorization %q", got)
		}
		sendErr(w, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR")
	}))
	defer srv.Close()

	c := seeded(t, srv.URL)
	err := c.Logout(context.Background(), false)
	require.Error(t, err)
	require.Empty(t, c.AccessToken())
	require.Empty(t, c.Tokens().RefreshToken)
}

func TestChangePasswordSwapsPair(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			OldPassword     string `json:"old_password"`
			NewPassword     string `json:"new_password"`
			ConfirmPassword string `json:"confirm_password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Errorf("decode change-password body: %v", err)
		}
		if in.NewPassword != in.ConfirmPassword {
			t.Errorf("confirm %q does not echo new password %q", in.ConfirmPassword, in.NewPassword)
		}

		body := pairBody(7)
		body["message"] = "password changed"
		body["sessions_revoked"] = 3
		sendJSON(w, http.StatusOK, body)
	}))
	defer srv.Close()

	c := seeded(t, srv.URL)
	resp, err := c.ChangePassword(context.Background(), "old-pass-1!", "new-pass-2!")
	require.NoError(t, err)
	require.Equal(t, 3, resp.SessionsRevoked)
	require.Equal(t, "access-7", c.AccessToken())
	require.Equal(t, "refresh-7", c.Tokens().RefreshToken)
}

func TestSessionsListAndRevoke(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/v1/auth/sessions":
			sendJSON(w, http.StatusOK, map[string]any{
				"devices": []map[string]any{
					{"session_id": "s1", "device_info": "iPhone", "current": true, "created_at": time.Now(), "expires_at": time.Now().Add(time.Hour)},
					{"session_id": "s2", "device_info": "Firefox on Linux", "created_at": time.Now(), "expires_at": time.Now().Add(time.Hour)},
				},
				"total": 2,
			})
		case r.Method == http.MethodDelete && r.URL.Path == "/v1/auth/sessions/s2":
			sendJSON(w, http.StatusOK, map[string]any{"session_id": "s2", "revoked": true})
		case r.Method == http.MethodDelete:
			sendErr(w, http.StatusNotFound, "NOT_FOUND")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := seeded(t, srv.URL)

	devices, err := c.Sessions(context.Background())
	require.NoError(t, err)
	require.Len(t, devices, 2)
	require.True(t, devices[0].Current)
	require.Equal(t, "Firefox on Linux", devices[1].DeviceInfo)

	require.NoError(t, c.RevokeSession(context.Background(), "s2"))

	err = c.RevokeSession(context.Background(), "s3")
	require.Equal(t, "NOT_FOUND", client.ErrorCode(err))
}

func TestRefreshWithoutTokens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should reach the server")
	}))
	defer srv.Close()

	c, err := client.New(client.Options{BaseURL: srv.URL})
	require.NoError(t, err)
	require.ErrorIs(t, c.Refresh(context.Background()), client.ErrNotAuthenticated)
}
