package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/biopass-web/internal/application/audit"
	"github.com/biopass-web/internal/application/credcache"
	"github.com/biopass-web/internal/application/face"
	"github.com/biopass-web/internal/application/facecapture"
	"github.com/biopass-web/internal/application/session"
	"github.com/biopass-web/internal/application/stepup"
	"github.com/biopass-web/internal/application/user"
	"github.com/biopass-web/internal/application/vault"
	"github.com/biopass-web/internal/config"
	"github.com/biopass-web/internal/infrastructure/backend"
	"github.com/biopass-web/internal/infrastructure/detector"
	"github.com/biopass-web/internal/infrastructure/dynamo"
	jwtinfra "github.com/biopass-web/internal/infrastructure/jwt"
	"github.com/biopass-web/internal/infrastructure/memstore"
	"github.com/biopass-web/internal/infrastructure/metrics"
	s3infra "github.com/biopass-web/internal/infrastructure/s3"
	"github.com/biopass-web/internal/infrastructure/sns"
	"github.com/biopass-web/internal/pkg/seal"
	transporthttp "github.com/biopass-web/internal/transport/http"
	"github.com/joho/godotenv"
)

// clientState is the per-client key/value store shared by the token store,
// the verification cache and logout.
type clientState interface {
	Get(ctx context.Context, clientID, key string) (string, bool, error)
	Put(ctx context.Context, clientID, key, value string, expiresAt time.Time) error
	Delete(ctx context.Context, clientID, key string) error
	DeleteAll(ctx context.Context, clientID string) error
}

func main() {
	envErr := godotenv.Load()

	cfg := config.Load()
	setupLogger(cfg)
	if envErr != nil {
		slog.Info("no .env file found, reading from environment")
	}

	ctx := context.Background()
	states, auditStore := openStores(ctx, cfg)

	sealer, ephemeral, err := seal.FromHex(cfg.TokenSealKey)
	if err != nil {
		slog.Error("token seal key invalid", "err", err)
		os.Exit(1)
	}
	if ephemeral {
		slog.Warn("TOKEN_SEAL_KEY not set, stored backend tokens will not survive a restart")
	}

	// JWT provider: key files when present, otherwise an in-memory key pair.
	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		slog.Warn("JWT key files not available, using an ephemeral key pair", "err", err)
		if jwtProvider, err = jwtinfra.NewEphemeralProvider(cfg.JWTExpiry); err != nil {
			slog.Error("JWT provider unavailable", "err", err)
			os.Exit(1)
		}
	}

	m := metrics.New()
	auditSvc := audit.NewService(auditStore, newAuditPublisher(cfg))
	cache := credcache.New(states, cfg.VerificationTTL)
	api := backend.NewClient(backend.Config{
		BaseURL: cfg.BackendBaseURL,
		Timeout: cfg.BackendTimeout,
	}, backend.NewTokens(states, sealer, cfg.JWTExpiry))

	faces := detector.NewClient(detector.Config{
		BaseURL:   cfg.DetectorBaseURL,
		Threshold: cfg.DetectorScoreThreshold,
	})
	models := facecapture.NewModelLoader(faces)
	captureOpts := facecapture.Options{PollInterval: cfg.FacePollInterval, Padding: cfg.FaceCropPadding}

	stepupDeps := stepup.Deps{
		Remote: api,
		Cache:  cache,
		NewCapture: func() (stepup.Capturer, stepup.FrameSink) {
			cam := facecapture.NewBrowserCamera()
			det := facecapture.LoadingDetector{Loader: models, Detector: faces}
			return facecapture.NewController(cam, det, captureOpts), cam
		},
		Audit:   auditSvc,
		Metrics: m,
	}
	if diag := newDiagnosticsStore(cfg); diag != nil {
		stepupDeps.Diagnostics = diag
	}
	stepupMgr := stepup.NewManager(stepupDeps)
	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	defer stopJanitor()
	go stepupMgr.RunJanitor(janitorCtx, time.Minute, cfg.StepUpIdleTimeout)

	deps := &transporthttp.Deps{
		Sessions: session.NewService(api, jwtProvider, stepupMgr, cache, auditSvc, states),
		Users: user.NewService(user.ServiceDeps{
			Backend:     api,
			JWTProvider: jwtProvider,
			Audit:       auditSvc,
		}),
		Faces:       face.NewService(api, auditSvc),
		StepUp:      stepupMgr,
		Vault:       vault.NewService(api, stepupMgr, cache, auditSvc).WithObserver(m),
		Audit:       auditSvc,
		Metrics:     m,
		JWTProvider: jwtProvider,
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	stopJanitor()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "err", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func setupLogger(cfg *config.Config) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler = slog.NewJSONHandler(os.Stdout, opts)
	if !cfg.IsProduction() {
		h = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(h))
}

// openStores returns the client-state and audit stores. CLIENT_STATE_BACKEND=memory
// keeps everything in process memory.
func openStores(ctx context.Context, cfg *config.Config) (clientState, audit.Store) {
	if cfg.ClientStateBackend == "memory" {
		slog.Warn("using in-memory client state, sessions are lost on restart")
		return memstore.New(), memstore.NewAuditLog()
	}
	// Bootstrap DynamoDB tables (creates them if they don't exist).
	client := dynamo.NewClient(cfg)
	dynamo.Bootstrap(ctx, client, cfg.DynamoTables)
	return dynamo.NewClientStateRepo(client, cfg.DynamoTables.ClientState),
		dynamo.NewAuditRepo(client, cfg.DynamoTables.AuditEvents)
}

// newAuditPublisher returns nil when AUDIT_TOPIC_ARN is unset or SNS is unreachable.
func newAuditPublisher(cfg *config.Config) audit.Publisher {
	if cfg.AuditTopicARN == "" {
		return nil
	}
	client, err := sns.NewClient(cfg)
	if err != nil {
		slog.Warn("SNS audit publisher not available", "err", err)
		return nil
	}
	return sns.NewAuditPublisher(client, cfg.AuditTopicARN)
}

func newDiagnosticsStore(cfg *config.Config) *s3infra.DiagnosticsStore {
	if cfg.S3BucketName == "" {
		return nil
	}
	client, err := s3infra.NewClient(cfg)
	if err != nil {
		slog.Warn("S3 diagnostics store not available", "err", err)
		return nil
	}
	return s3infra.NewDiagnosticsStore(client, cfg.S3BucketName)
}
