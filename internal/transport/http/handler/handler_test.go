package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/biopass-web/internal/application/facecapture"
	"github.com/biopass-web/internal/application/stepup"
	"github.com/biopass-web/internal/domain"
	"github.com/biopass-web/internal/infrastructure/backend"
	jwtinfra "github.com/biopass-web/internal/infrastructure/jwt"
	"github.com/biopass-web/internal/transport/http/middleware"
	"github.com/stretchr/testify/assert"
)

// --- helpers ---

// asClient attaches claims for clientID, as middleware.Auth would.
func asClient(r *http.Request, clientID string) *http.Request {
	return r.WithContext(middleware.WithClaims(r.Context(), &jwtinfra.Claims{ClientID: clientID}))
}

func jsonReq(method, target, body string) *http.Request {
	r := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	r.Header.Set("Content-Type", "application/json")
	return r
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, string, string, string) {}

// --- error mapping ---

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.ErrInvalidOtpFormat, http.StatusBadRequest},
		{domain.ErrNoFace, http.StatusBadRequest},
		{fmt.Errorf("%w: email required", domain.ErrBadRequest), http.StatusBadRequest},
		{fmt.Errorf("%w: eof", facecapture.ErrBadFrame), http.StatusBadRequest},
		{fmt.Errorf("open camera: %w", domain.ErrCameraAccessDenied), http.StatusForbidden},
		{domain.ErrLocked, http.StatusForbidden},
		{domain.ErrTokenExpired, http.StatusUnauthorized},
		{stepup.ErrBusy, http.StatusConflict},
		{facecapture.ErrNotOpen, http.StatusConflict},
		{&backend.RemoteError{Status: 400, Message: "bad otp"}, http.StatusBadGateway},
		{fmt.Errorf("%w: timeout", facecapture.ErrDetectorUnavailable), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}

func TestWriteServiceError_RemoteMessagePassedThrough(t *testing.T) {
	rr := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/v1/stepup/face", nil)
	writeServiceError(rr, r, fmt.Errorf("verify face: %w", &backend.RemoteError{Status: 400, Message: "Face does not match"}))

	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.JSONEq(t, `{"error":"Face does not match","error_code":502}`, rr.Body.String())
}

func TestHealthPing(t *testing.T) {
	h := NewHealthHandler()
	rr := httptest.NewRecorder()
	h.Ping(rr, withURLParam(httptest.NewRequest(http.MethodGet, "/v1/health-check/ping", nil), "action", "ping"))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	h.Ping(rr, withURLParam(httptest.NewRequest(http.MethodGet, "/v1/health-check/x", nil), "action", "x"))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
