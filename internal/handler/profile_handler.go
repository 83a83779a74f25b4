package handler

import (
	"encoding/json"
	"net/http"

	"github.com/distro-app/gateway/internal/domain"
	"github.com/distro-app/gateway/internal/guard"
	"github.com/distro-app/gateway/internal/identity"
	"github.com/distro-app/gateway/internal/port"

	"go.uber.org/zap"
)

func getProfileHandler(manager *identity.Manager, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "GET /v1/profile")
		defer span.End()

		ident := manager.Identity(guard.SessionID(r.Context()))
		if ident == nil {
			writeError(w, http.StatusUnauthorized, "no authenticated session")
			return
		}
		writeJSON(w, http.StatusOK, ident)
	}
}

func updateProfileHandler(manager *identity.Manager, api port.DirectoryAPI, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/profile")
		defer span.End()

		var req domain.ProfileUpdate
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		sid := guard.SessionID(ctx)
		ident, err := api.UpdateProfile(ctx, manager.AccessToken(sid), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		// The snapshot changed upstream; the next refresh picks it up. Serve
		// the fresh copy now so the caller does not see stale data.
		if refreshed, refreshErr := manager.RefreshIdentity(ctx, sid); refreshErr == nil {
			ident = refreshed
		}
		writeJSON(w, http.StatusOK, ident)
	}
}

func updateLocationHandler(manager *identity.Manager, api port.DirectoryAPI, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/users/location")
		defer span.End()

		sid := guard.SessionID(ctx)
		ident := manager.Identity(sid)
		if ident != nil && !ident.LocationTrackingConsent {
			writeError(w, http.StatusForbidden, "location tracking consent not granted")
			return
		}

		var loc domain.Location
		if err := json.NewDecoder(r.Body).Decode(&loc); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if loc.Latitude < -90 || loc.Latitude > 90 || loc.Longitude < -180 || loc.Longitude > 180 {
			writeError(w, http.StatusBadRequest, "coordinates out of range")
			return
		}

		if err := api.UpdateLocation(ctx, manager.AccessToken(sid), loc); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
