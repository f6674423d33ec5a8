package router

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okravchuk/contacts-api/internal/transport/http/middleware"
)

type HealthHandler interface {
	Healthz(w http.ResponseWriter, r *http.Request)
	Readyz(w http.ResponseWriter, r *http.Request)
}

type AuthHandler interface {
	// Core auth
	Register(w http.ResponseWriter, r *http.Request)
	Login(w http.ResponseWriter, r *http.Request)
	Refresh(w http.ResponseWriter, r *http.Request)
	LogoutAll(w http.ResponseWriter, r *http.Request)
	Me(w http.ResponseWriter, r *http.Request)

	// Email verification
	VerifyEmailRequest(w http.ResponseWriter, r *http.Request)
	VerifyEmailConfirm(w http.ResponseWriter, r *http.Request)
	VerifyEmailConfirmQuery(w http.ResponseWriter, r *http.Request)

	// Account management
	ChangePassword(w http.ResponseWriter, r *http.Request)
	UploadAvatar(w http.ResponseWriter, r *http.Request)

	// Admin
	AdminSetUserRole(w http.ResponseWriter, r *http.Request)
}

type Deps struct {
	Health HealthHandler
	Auth   AuthHandler

	AuthMW     func(http.Handler) http.Handler
	VerifiedMW func(http.Handler) http.Handler
	AdminMW    func(http.Handler) http.Handler

	// RequestTimeout bounds in-handler work; zero disables the limit.
	RequestTimeout time.Duration
}

func New(deps Deps) (http.Handler, error) {
	if deps.Health == nil {
		return nil, fmt.Errorf("nil Health handler")
	}
	if deps.Auth == nil {
		return nil, fmt.Errorf("nil Auth handler")
	}
	if deps.AuthMW == nil {
		return nil, fmt.Errorf("nil Auth middleware")
	}
	if deps.VerifiedMW == nil {
		return nil, fmt.Errorf("nil Verified middleware")
	}
	if deps.AdminMW == nil {
		return nil, fmt.Errorf("nil Admin middleware")
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Metrics)
	r.Use(chimw.Recoverer)
	if deps.RequestTimeout > 0 {
		r.Use(chimw.Timeout(deps.RequestTimeout))
	}

	r.Get("/healthz", deps.Health.Healthz)
	r.Get("/readyz", deps.Health.Readyz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/auth/v1", func(r chi.Router) {
		// --- Core auth ---
		r.Post("/register", deps.Auth.Register)
		r.Post("/login", deps.Auth.Login)
		r.Post("/refresh", deps.Auth.Refresh)
		r.With(deps.AuthMW).Post("/logout-all", deps.Auth.LogoutAll)
		r.With(deps.AuthMW).Get("/me", deps.Auth.Me)

		// --- Email verification ---
		r.Post("/verify-email/request", deps.Auth.VerifyEmailRequest)
		r.Get("/verify-email/confirm", deps.Auth.VerifyEmailConfirmQuery) // ?token=...
		r.Post("/verify-email/{token}", deps.Auth.VerifyEmailConfirm)

		// --- Account management ---
		r.With(deps.AuthMW).Post("/password/change", deps.Auth.ChangePassword)
		r.With(deps.AuthMW).Put("/me/avatar", deps.Auth.UploadAvatar)

		// --- Admin (privileged) ---
		r.Route("/admin", func(r chi.Router) {
			r.Use(deps.AuthMW)
			r.Use(deps.VerifiedMW)
			r.Use(deps.AdminMW)

			r.Post("/users/{id}/role", deps.Auth.AdminSetUserRole)
		})
	})

	return r, nil
}
