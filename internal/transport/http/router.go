package http

import (
	"net/http"

	"github.com/biopass-web/internal/config"
	"github.com/biopass-web/internal/transport/http/handler"
	appmiddleware "github.com/biopass-web/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// 5 requests/second, burst of 10, on endpoints that hit backend credentials.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	healthH := handler.NewHealthHandler()
	sessionH := handler.NewSessionHandler(deps.Sessions)
	userH := handler.NewUserHandler(deps.Users)
	faceH := handler.NewFaceHandler(deps.Faces)
	stepupH := handler.NewStepUpHandler(deps.StepUp, deps.Metrics)
	passwordH := handler.NewPasswordHandler(deps.Vault)
	auditH := handler.NewAuditHandler(deps.Audit)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.With(sensitiveRL.Limit).Post("/sessions/login", sessionH.Login)
		r.With(sensitiveRL.Limit).Post("/users", userH.Signup)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(appmiddleware.Auth(deps.JWTProvider))

			r.Get("/me", sessionH.Me)
			r.Post("/sessions/logout", sessionH.Logout)

			r.Get("/face", faceH.Status)
			r.Post("/face", faceH.Enroll)

			r.Route("/stepup", func(r chi.Router) {
				r.Get("/", stepupH.State)
				r.Post("/reset", stepupH.Reset)
				r.Post("/capture/start", stepupH.StartCapture)
				r.Post("/capture/frames", stepupH.PushFrame)
				r.Post("/capture", stepupH.Capture)
				r.Delete("/capture", stepupH.CancelCapture)
				r.Post("/face", stepupH.SubmitFace)
				r.Post("/face/retry", stepupH.Retry)
				r.Post("/otp/send", stepupH.SendOTP)
				r.With(sensitiveRL.Limit).Post("/otp/verify", stepupH.VerifyOTP)
			})

			r.Get("/passwords", passwordH.List)
			r.Post("/passwords", passwordH.Add)
			r.Get("/audit", auditH.List)
		})
	})

	return r
}
