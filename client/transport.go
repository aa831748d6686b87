package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Transport returns an http.RoundTripper that injects "Authorization:
// Bearer <access token>" into every request and recovers from expiry: a
// 401 TOKEN_EXPIRED answer triggers one single-flight refresh and one
// retry with the new token, never more. Requests whose bodies cannot be
// replayed (Body set, GetBody nil) are sent once and get the raw 401.
// A 401 that means the session is gone (TOKEN_INVALID, TOKEN_REUSE,
// SESSION_REVOKED) clears local state and fires OnAuthExpired instead
// of retrying. The transport owns the Authorization header.
func (c *Client) Transport() http.RoundTripper {
	base := c.http.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	return &authTransport{c: c, base: base}
}

type authTransport struct {
	c    *Client
	base http.RoundTripper
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token := t.c.AccessToken()
	if token == "" && t.c.refreshToken() != "" {
		// Resumed session that persisted only the refresh token. Mint an
		// access token before the first attempt instead of burning it on
		// a guaranteed 401.
		if fresh, err := t.c.ensureFresh(req.Context(), ""); err == nil {
			token = fresh
		}
	}

	replayable := req.Body == nil || req.GetBody != nil

	attempt := req.Clone(req.Context())
	if token != "" {
		attempt.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := t.base.RoundTrip(attempt)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	code, body := readErrorCode(resp)
	resp.Body = io.NopCloser(bytes.NewReader(body))

	switch code {
	case "TOKEN_EXPIRED":
		// recoverable, handled below
	case "TOKEN_INVALID", "TOKEN_REUSE", "SESSION_REVOKED":
		t.c.authLost()
		return resp, nil
	default:
		return resp, nil
	}
	if !replayable {
		return resp, nil
	}

	fresh, rerr := t.c.ensureFresh(req.Context(), token)
	if rerr != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			// the caller abandoned the request while the refresh was in
			// flight; the flight itself carries on
			return nil, ctxErr
		}
		// refresh definitively failed, local state is already cleared;
		// hand back the original 401
		return resp, nil
	}

	retry := req.Clone(req.Context())
	if req.GetBody != nil {
		rb, gerr := req.GetBody()
		if gerr != nil {
			return resp, nil
		}
		retry.Body = rb
	}
	retry.Header.Set("Authorization", "Bearer "+fresh)
	return t.base.RoundTrip(retry)
}

// readErrorCode drains a 401 body far enough to classify it. The bytes
// are returned so the response can be handed back readable.
func readErrorCode(resp *http.Response) (string, []byte) {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	_ = resp.Body.Close()

	var env struct {
		Code string `json:"code"`
	}
	_ = json.Unmarshal(b, &env)
	return env.Code, b
}

// ensureFresh returns an access token that is not the stale one the
// caller just got rejected with, refreshing only when nobody else
// already has. stale may be "" to force the refresh path.
func (c *Client) ensureFresh(ctx context.Context, stale string) (string, error) {
	c.mu.RLock()
	cur := c.pair.AccessToken
	c.mu.RUnlock()
	if cur != "" && cur != stale {
		// someone rotated while this request was on the wire
		return cur, nil
	}
	return c.refreshShared(ctx)
}

// refreshShared funnels concurrent callers into one refresh. Waiters
// whose context dies stop waiting; the flight keeps running and updates
// shared state for whoever is still interested.
func (c *Client) refreshShared(ctx context.Context) (string, error) {
	ch := c.sf.DoChan("refresh", func() (any, error) {
		return c.runRefresh()
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// runRefresh is the flight body. It deliberately ignores the waiters'
// contexts: once started, the rotation finishes on its own bounded
// context no matter who is still listening.
func (c *Client) runRefresh() (string, error) {
	refresh := c.refreshToken()
	if refresh == "" {
		return "", ErrNotAuthenticated
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.refreshTimeout)
	defer cancel()

	var pair TokenPair
	if err := c.call(ctx, http.MethodPost, pathRefresh, refreshRequest{RefreshToken: refresh}, &pair, false); err != nil {
		// A rejected or unreachable refresh ends the session: whatever
		// happened server-side, this pair is no longer trustworthy.
		c.authLost()
		return "", fmt.Errorf("client: refresh: %w", err)
	}
	c.storeTokens(pair)
	return pair.AccessToken, nil
}
