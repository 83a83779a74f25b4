package handler

import (
	"net/http"

	"github.com/distro-app/gateway/internal/guard"
	"github.com/distro-app/gateway/internal/identity"
	"github.com/distro-app/gateway/internal/service"

	"go.uber.org/zap"
)

func dashboardSummaryHandler(dir *service.Directory, manager *identity.Manager, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/dashboard/summary")
		defer span.End()

		sid := guard.SessionID(ctx)
		summary, err := dir.DashboardSummary(ctx, sid, manager.AccessToken(sid))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

func listTenantsHandler(dir *service.Directory, manager *identity.Manager, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/tenants")
		defer span.End()

		tenants, err := dir.ListTenants(ctx, manager.AccessToken(guard.SessionID(ctx)))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"tenants": tenants})
	}
}
