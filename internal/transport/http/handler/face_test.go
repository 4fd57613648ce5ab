package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/biopass-web/internal/application/audit"
	"github.com/biopass-web/internal/domain"
	"github.com/biopass-web/internal/infrastructure/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mock ---

type mockFaceSvc struct{ mock.Mock }

func (m *mockFaceSvc) Status(ctx context.Context, clientID string) (bool, error) {
	args := m.Called(ctx, clientID)
	return args.Bool(0), args.Error(1)
}

func (m *mockFaceSvc) Enroll(ctx context.Context, clientID string, r io.Reader) error {
	b, _ := io.ReadAll(r)
	return m.Called(ctx, clientID, b).Error(0)
}

func multipartImage(t *testing.T, field string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, "face.png")
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	r := httptest.NewRequest(http.MethodPost, "/v1/face", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return r
}

func TestFaceStatus(t *testing.T) {
	svc := &mockFaceSvc{}
	svc.On("Status", mock.Anything, "c1").Return(true, nil)
	h := NewFaceHandler(svc)

	rr := serve(h.Status, httptest.NewRequest(http.MethodGet, "/v1/face", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"registered":true}`, rr.Body.String())
}

func TestFaceEnroll_MissingField(t *testing.T) {
	h := NewFaceHandler(&mockFaceSvc{})
	rr := serve(h.Enroll, multipartImage(t, "file", []byte("x")))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestFaceEnroll_HappyPath(t *testing.T) {
	data := pngFrame(t)
	svc := &mockFaceSvc{}
	svc.On("Enroll", mock.Anything, "c1", data).Return(nil)
	h := NewFaceHandler(svc)

	rr := serve(h.Enroll, multipartImage(t, "image", data))

	assert.Equal(t, http.StatusCreated, rr.Code)
	svc.AssertExpectations(t)
}

func TestAuditList_NewestFirst(t *testing.T) {
	svc := audit.NewService(memstore.NewAuditLog(), nil)
	ctx := context.Background()
	svc.Record(ctx, "c1", domain.AuditLogin, "")
	svc.Record(ctx, "c1", domain.AuditOTPSent, "alice@example.com")
	svc.Record(ctx, "c2", domain.AuditLogin, "")
	h := NewAuditHandler(svc)

	rr := serve(h.List, httptest.NewRequest(http.MethodGet, "/v1/audit?limit=10", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Events []domain.AuditEvent `json:"events"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Events, 2)
	assert.Equal(t, domain.AuditOTPSent, body.Events[0].Action)
}
