package handler

import (
	"net/http"

	"github.com/distro-app/gateway/internal/domain"
	"github.com/distro-app/gateway/internal/guard"
	"github.com/distro-app/gateway/internal/identity"
	"github.com/distro-app/gateway/internal/nav"

	"go.uber.org/zap"
)

// navigationHandler computes the navigation tree for the caller's identity
// and current location (?path=). Recomputed per request, never cached: it
// must always agree with the identity snapshot the guards see.
func navigationHandler(manager *identity.Manager, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "GET /v1/navigation")
		defer span.End()

		currentPath := r.URL.Query().Get("path")
		if currentPath == "" {
			currentPath = "/"
		}

		ident := manager.Identity(guard.SessionID(r.Context()))
		entries := nav.Build(ident, currentPath)
		if entries == nil {
			entries = []domain.NavigationEntry{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"navigation": entries})
	}
}
