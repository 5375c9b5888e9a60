package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	companyapp "github.com/corpdeals-api/internal/application/company"
	"github.com/corpdeals-api/internal/application/identity"
	"github.com/corpdeals-api/internal/application/verification"
	"github.com/corpdeals-api/internal/config"
	"github.com/corpdeals-api/internal/domain"
	jwtinfra "github.com/corpdeals-api/internal/infrastructure/jwt"
	"github.com/corpdeals-api/internal/infrastructure/smtp"
	"github.com/corpdeals-api/internal/infrastructure/sns"
	"github.com/corpdeals-api/internal/transport/http/handler"
	appmiddleware "github.com/corpdeals-api/internal/transport/http/middleware"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	VerificationRepo VerificationRepository
	UserRepo         UserRepository
	CompanyRepo      CompanyRepository
	AssetStore       ObjectStore
	Mailer           smtp.Mailer
	AlertPublisher   sns.AlertPublisher // optional
	JWTProvider      *jwtinfra.Provider
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	var signer verification.TokenSigner
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
		signer = deps.JWTProvider
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}

	// 5 requests/second, burst of 10 — applied to sensitive public endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	binder := identity.NewBinder(deps.UserRepo)
	verificationSvc := verification.NewService(verification.ServiceDeps{
		VerificationRepo: deps.VerificationRepo,
		CompanyRepo:      deps.CompanyRepo,
		UserRepo:         deps.UserRepo,
		Binder:           binder,
		Mailer:           deps.Mailer,
		Signer:           signer,
		Alerts:           deps.AlertPublisher,
		Options: verification.Options{
			CodeTTL:             cfg.VerificationCodeTTL,
			MaxAttempts:         cfg.VerificationMaxAttempts,
			AllowPersonalEmails: cfg.AllowPersonalEmails,
			ReturnDevCode:       cfg.ReturnDevCode,
			Production:          cfg.IsProduction(),
		},
	})
	companySvc := companyapp.NewService(deps.CompanyRepo, deps.AssetStore)

	healthH := handler.NewHealthHandler()
	verificationH := handler.NewEmployeeVerificationHandler(verificationSvc)
	companyH := handler.NewCompanyHandler(companySvc)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.Post("/health-check/{action}", healthH.Ping)
		r.Get("/test", healthH.Test)
		r.Post("/test", healthH.Test)

		r.With(sensitiveRL.Limit).Post("/employee-verifications/start", verificationH.Start)
		r.With(sensitiveRL.Limit).Post("/employee-verifications/verify", verificationH.Verify)

		r.Get("/companies", companyH.List)
		r.Get("/companies/{idOrSlug}", companyH.Get)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/employee-verifications/status", verificationH.Status)

			// Admin-only routes
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(domain.RoleAdmin))

				r.Post("/companies", companyH.Create)
				r.Patch("/companies/{id}", companyH.Update)
				r.Post("/companies/{id}/logo", companyH.UploadLogo)
			})
		})
	})

	return r
}
