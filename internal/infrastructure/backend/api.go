package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/biopass-web/internal/domain"
)

type loginResponse struct {
	Message string         `json:"message"`
	Token   string         `json:"token"`
	Refresh string         `json:"refresh"`
	User    domain.Account `json:"user"`
}

// Login authenticates against the backend and stores the issued tokens under clientID.
func (c *Client) Login(ctx context.Context, clientID string, req domain.LoginRequest) (*domain.Account, error) {
	var out loginResponse
	if err := c.public(ctx, request{
		method: http.MethodPost,
		path:   "/users/login/",
		body:   req,
	}, &out); err != nil {
		return nil, err
	}
	if out.Token == "" {
		return nil, fmt.Errorf("login response without token: %w", domain.ErrRemoteCallFailed)
	}
	if err := c.tokens.Save(ctx, clientID, out.Token, out.Refresh); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// Signup registers a new account. When the backend issues tokens with the
// new account they are stored under clientID. Field errors come back as a
// RemoteError message.
func (c *Client) Signup(ctx context.Context, clientID string, req domain.SignupRequest) (*domain.Account, bool, error) {
	var out loginResponse
	if err := c.public(ctx, request{
		method: http.MethodPost,
		path:   "/users/signup/",
		body:   req,
	}, &out); err != nil {
		return nil, false, err
	}
	if out.User.Username == "" {
		out.User.Username = req.Username
		out.User.Email = req.Email
	}
	if out.Token == "" {
		return &out.User, false, nil
	}
	if err := c.tokens.Save(ctx, clientID, out.Token, out.Refresh); err != nil {
		return nil, false, err
	}
	return &out.User, true, nil
}

// Logout forgets the client's backend tokens.
func (c *Client) Logout(ctx context.Context, clientID string) error {
	return c.tokens.Clear(ctx, clientID)
}

func (c *Client) Me(ctx context.Context, clientID string) (*domain.Account, error) {
	var out domain.Account
	if err := c.protected(ctx, clientID, request{method: http.MethodGet, path: "/users/me/"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FaceRegistered reports whether the account has an enrolled face template.
func (c *Client) FaceRegistered(ctx context.Context, clientID string) (bool, error) {
	err := c.protected(ctx, clientID, request{method: http.MethodGet, path: "/users/image/"}, nil)
	var re *RemoteError
	switch {
	case err == nil:
		return true, nil
	case errors.As(err, &re) && re.Status == http.StatusNotFound:
		return false, nil
	default:
		return false, err
	}
}

// UploadFace enrolls png as the account's face template.
func (c *Client) UploadFace(ctx context.Context, clientID string, png []byte) error {
	return c.protected(ctx, clientID, request{
		method: http.MethodPost,
		path:   "/users/image-upload/",
		image:  png,
	}, nil)
}

// VerifyFace matches png against the enrolled template.
func (c *Client) VerifyFace(ctx context.Context, clientID string, png []byte) error {
	return c.protected(ctx, clientID, request{
		method: http.MethodPost,
		path:   "/users/verify-face-id/",
		image:  png,
	}, nil)
}

type sendOTPResponse struct {
	Message string `json:"message"`
	User    struct {
		Email string `json:"email"`
	} `json:"user"`
}

// SendOTP issues a code to the account email and returns that address.
func (c *Client) SendOTP(ctx context.Context, clientID string) (string, error) {
	var out sendOTPResponse
	if err := c.protected(ctx, clientID, request{method: http.MethodGet, path: "/users/send-otp-email/"}, &out); err != nil {
		return "", err
	}
	return out.User.Email, nil
}

// VerifyOTP checks code and returns the credential list it unlocks.
func (c *Client) VerifyOTP(ctx context.Context, clientID, code string) ([]domain.CredentialEntry, error) {
	var out entryList
	err := c.protected(ctx, clientID, request{
		method: http.MethodGet,
		path:   "/users/verify-otp/",
		query:  url.Values{"otp": {code}},
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.entries(), nil
}

func (c *Client) ListPasswords(ctx context.Context, clientID string) ([]domain.CredentialEntry, error) {
	var out entryList
	if err := c.protected(ctx, clientID, request{method: http.MethodGet, path: "/users/add_password/"}, &out); err != nil {
		return nil, err
	}
	return out.entries(), nil
}

func (c *Client) AddPassword(ctx context.Context, clientID string, entry domain.CredentialEntry) error {
	return c.protected(ctx, clientID, request{
		method: http.MethodPost,
		path:   "/users/add_password/",
		body:   entry,
	}, nil)
}

// entryList accepts a bare array or {"passwords": [...]}.
type entryList []domain.CredentialEntry

func (l *entryList) UnmarshalJSON(b []byte) error {
	var list []domain.CredentialEntry
	if err := json.Unmarshal(b, &list); err == nil {
		*l = list
		return nil
	}
	var wrapped struct {
		Passwords []domain.CredentialEntry `json:"passwords"`
	}
	if err := json.Unmarshal(b, &wrapped); err != nil {
		return err
	}
	*l = wrapped.Passwords
	return nil
}

func (l entryList) entries() []domain.CredentialEntry {
	if l == nil {
		return []domain.CredentialEntry{}
	}
	return []domain.CredentialEntry(l)
}
