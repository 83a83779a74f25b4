package handler

import (
	"net/http"
	"time"

	"github.com/distro-app/gateway/internal/domain"
	"github.com/distro-app/gateway/internal/guard"
	"github.com/distro-app/gateway/internal/identity"
	"github.com/distro-app/gateway/internal/infra/observability"
	"github.com/distro-app/gateway/internal/port"
	"github.com/distro-app/gateway/internal/service"
	"github.com/distro-app/gateway/internal/tenant"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Deps bundles everything the router needs. Constructed once in main.
type Deps struct {
	Resolver    *tenant.Resolver
	Manager     *identity.Manager
	Issuer      *identity.TokenIssuer
	Guard       *guard.Guard
	Directory   *service.Directory
	Invitations *service.Invitations
	API         port.DirectoryAPI
	Metrics     *observability.Metrics
	Logger      *zap.Logger
	SessionTTL  time.Duration
}

// NewRouter creates the HTTP router with all routes and middleware. The
// middleware order matters: tenant resolution runs before session handling
// so that login handlers see the surface they are serving.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(d.Logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(tenant.Middleware(d.Resolver, d.Metrics, d.Logger))
	r.Use(SessionMiddleware(d.Issuer, d.Logger))

	r.Get("/healthz", healthzHandler())
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(d.Metrics.Registry, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {

		// Public: auth entry points and invitation redemption.
		r.Post("/auth/login", loginHandler(d.Manager, d.Issuer, d.SessionTTL, d.Logger))
		r.Post("/auth/logout", logoutHandler(d.Manager, d.Logger))
		r.Get("/auth/session", sessionHandler(d.Manager, d.Logger))
		r.Post("/invitations/accept", acceptInvitationHandler(d.Invitations, d.Issuer, d.SessionTTL, d.Logger))

		// Any authenticated session.
		r.Group(func(r chi.Router) {
			r.Use(d.Guard.Require(guard.RequireAuth))
			r.Post("/auth/refresh", refreshHandler(d.Manager, d.Logger))
			r.Get("/profile", getProfileHandler(d.Manager, d.Logger))
			r.Patch("/profile", updateProfileHandler(d.Manager, d.API, d.Logger))
			r.Get("/navigation", navigationHandler(d.Manager, d.Logger))
			r.Get("/users", listUsersHandler(d.Directory, d.Manager, d.Logger))
			r.Post("/users/location", updateLocationHandler(d.Manager, d.API, d.Logger))
		})

		// Staff management.
		r.Group(func(r chi.Router) {
			r.Use(d.Guard.Require(guard.Permission("create_user")))
			r.Post("/users", createUserHandler(d.Directory, d.Manager, d.Logger))
			r.Get("/invitations", listInvitationsHandler(d.Invitations, d.Manager, d.Logger))
			r.Post("/invitations/{invitationId}/resend", resendInvitationHandler(d.Invitations, d.Manager, d.Logger))
		})

		// Analytics-grade views.
		r.Group(func(r chi.Router) {
			r.Use(d.Guard.Require(guard.Permission("view_analytics")))
			r.Get("/dashboard/summary", dashboardSummaryHandler(d.Directory, d.Manager, d.Logger))
		})

		// Platform administration.
		r.Group(func(r chi.Router) {
			r.Use(d.Guard.Require(guard.Role(domain.RoleAdmin)))
			r.Get("/tenants", listTenantsHandler(d.Directory, d.Manager, d.Logger))
		})
	})

	return r
}

func healthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
