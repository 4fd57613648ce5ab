package http

import (
	"github.com/biopass-web/internal/application/audit"
	"github.com/biopass-web/internal/application/face"
	"github.com/biopass-web/internal/application/session"
	"github.com/biopass-web/internal/application/stepup"
	"github.com/biopass-web/internal/application/user"
	"github.com/biopass-web/internal/application/vault"
	jwtinfra "github.com/biopass-web/internal/infrastructure/jwt"
	"github.com/biopass-web/internal/infrastructure/metrics"
)

// Deps holds the services the router exposes.
type Deps struct {
	Sessions    session.Service
	Users       user.Service
	Faces       face.Service
	StepUp      *stepup.Manager
	Vault       *vault.Service
	Audit       *audit.Service
	Metrics     *metrics.Metrics
	JWTProvider *jwtinfra.Provider
}
