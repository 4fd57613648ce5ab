// Package backend is the REST client for the password manager backend.
// Protected calls carry the client's bearer token; a 401 triggers exactly
// one token refresh and one retry.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/biopass-web/internal/domain"
	"golang.org/x/sync/singleflight"
)

const maxBodyBytes = 4 << 20

// HTTPDoer is the minimal interface needed from an HTTP client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient HTTPDoer
}

type Client struct {
	baseURL string
	http    HTTPDoer
	tokens  *Tokens
	refresh singleflight.Group
}

func NewClient(cfg Config, tokens *Tokens) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	doer := cfg.HTTPClient
	if doer == nil {
		doer = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{baseURL: cfg.BaseURL, http: doer, tokens: tokens}
}

// request describes one backend call. body is either JSON-encoded or, when
// image is set, sent as a multipart form with an "image" file field.
type request struct {
	method string
	path   string
	query  url.Values
	body   any
	image  []byte
}

func (c *Client) newHTTPRequest(ctx context.Context, r request, bearer string) (*http.Request, error) {
	u := c.baseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}

	var (
		body        io.Reader
		contentType string
	)
	switch {
	case r.image != nil:
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		part, err := mw.CreateFormFile("image", "face.png")
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(r.image); err != nil {
			return nil, err
		}
		if err := mw.Close(); err != nil {
			return nil, err
		}
		body, contentType = &buf, mw.FormDataContentType()
	case r.body != nil:
		b, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body, contentType = bytes.NewReader(b), "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return req, nil
}

// send executes r and returns the status and body. Transport failures wrap
// domain.ErrRemoteCallFailed.
func (c *Client) send(ctx context.Context, r request, bearer string) (int, []byte, error) {
	req, err := c.newHTTPRequest(ctx, r, bearer)
	if err != nil {
		return 0, nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %v: %w", r.method, r.path, err, domain.ErrRemoteCallFailed)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("read %s: %v: %w", r.path, err, domain.ErrRemoteCallFailed)
	}
	return resp.StatusCode, body, nil
}

// public performs an unauthenticated call and decodes a 2xx body into out.
func (c *Client) public(ctx context.Context, r request, out any) error {
	status, body, err := c.send(ctx, r, "")
	if err != nil {
		return err
	}
	return decode(status, body, out)
}

// protected performs an authenticated call. A 401 refreshes the access token
// once and retries once; a second 401 or a rejected refresh clears the stored
// tokens and yields domain.ErrTokenExpired.
func (c *Client) protected(ctx context.Context, clientID string, r request, out any) error {
	access, err := c.tokens.Access(ctx, clientID)
	if err != nil {
		return err
	}
	status, body, err := c.send(ctx, r, access)
	if err != nil {
		return err
	}
	if status != http.StatusUnauthorized {
		return decode(status, body, out)
	}

	access, err = c.refreshAccess(ctx, clientID, access)
	if err != nil {
		if refreshRejected(err) {
			return c.expire(ctx, clientID, err)
		}
		return err
	}
	status, body, err = c.send(ctx, r, access)
	if err != nil {
		return err
	}
	if status == http.StatusUnauthorized {
		return c.expire(ctx, clientID, errors.New("retry after refresh was rejected"))
	}
	return decode(status, body, out)
}

type refreshResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// refreshAccess exchanges the refresh token for a new access token. Concurrent
// refreshes for one client share a single call.
func (c *Client) refreshAccess(ctx context.Context, clientID, stale string) (string, error) {
	v, err, _ := c.refresh.Do(clientID, func() (any, error) {
		// Another caller may have refreshed while this one waited.
		if current, err := c.tokens.Access(ctx, clientID); err == nil && current != stale {
			return current, nil
		}
		refresh, err := c.tokens.Refresh(ctx, clientID)
		if err != nil {
			return "", err
		}
		var out refreshResponse
		err = c.public(ctx, request{
			method: http.MethodPost,
			path:   "/token/refresh/",
			body:   map[string]string{"refresh": refresh},
		}, &out)
		if err != nil {
			return "", err
		}
		if out.Access == "" {
			return "", fmt.Errorf("refresh response without access token: %w", domain.ErrRemoteCallFailed)
		}
		if err := c.tokens.Save(ctx, clientID, out.Access, out.Refresh); err != nil {
			return "", err
		}
		slog.Debug("backend token refreshed", "client_id", clientID)
		return out.Access, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Client) expire(ctx context.Context, clientID string, cause error) error {
	slog.Info("backend session expired", "client_id", clientID, "cause", cause)
	if err := c.tokens.Clear(ctx, clientID); err != nil {
		slog.Warn("clearing backend tokens", "client_id", clientID, "err", err)
	}
	return fmt.Errorf("%v: %w", cause, domain.ErrTokenExpired)
}

// refreshRejected reports an explicit refusal: the refresh token is missing
// or unreadable, or the backend answered 401/400. Store and transport
// failures are not refusals and leave the tokens in place.
func refreshRejected(err error) bool {
	if errors.Is(err, domain.ErrTokenExpired) {
		return true
	}
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Status == http.StatusUnauthorized || re.Status == http.StatusBadRequest
	}
	return false
}

func decode(status int, body []byte, out any) error {
	if status < 200 || status > 299 {
		return &RemoteError{Status: status, Message: remoteMessage(status, body)}
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %v: %w", err, domain.ErrRemoteCallFailed)
	}
	return nil
}
