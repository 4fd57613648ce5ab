package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "3000", cfg.AppPort)
	assert.Equal(t, "http://127.0.0.1:8000/api", cfg.BackendBaseURL)
	assert.Equal(t, 500*time.Millisecond, cfg.FacePollInterval)
	assert.Equal(t, 5*time.Minute, cfg.VerificationTTL)
	assert.Equal(t, 30*time.Minute, cfg.StepUpIdleTimeout)
	assert.InDelta(t, 0.2, cfg.FaceCropPadding, 1e-9)
	assert.InDelta(t, 0.5, cfg.DetectorScoreThreshold, 1e-9)
	assert.Equal(t, "client_state", cfg.DynamoTables.ClientState)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("BACKEND_BASE_URL", "https://api.example.com/api/")
	t.Setenv("VERIFICATION_TTL", "90s")
	t.Setenv("STEPUP_IDLE_TIMEOUT", "10m")
	t.Setenv("FACE_CROP_PADDING", "0.1")
	t.Setenv("JWT_EXPIRY_HOURS", "2")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg := Load()

	assert.Equal(t, "https://api.example.com/api", cfg.BackendBaseURL)
	assert.Equal(t, 90*time.Second, cfg.VerificationTTL)
	assert.Equal(t, 10*time.Minute, cfg.StepUpIdleTimeout)
	assert.InDelta(t, 0.1, cfg.FaceCropPadding, 1e-9)
	assert.Equal(t, 2*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("FACE_POLL_INTERVAL", "soon")
	t.Setenv("JWT_EXPIRY_HOURS", "many")

	cfg := Load()

	assert.Equal(t, 500*time.Millisecond, cfg.FacePollInterval)
	assert.Equal(t, 12*time.Hour, cfg.JWTExpiry)
}
