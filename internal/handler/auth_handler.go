package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/distro-app/gateway/internal/domain"
	"github.com/distro-app/gateway/internal/guard"
	"github.com/distro-app/gateway/internal/identity"
	"github.com/distro-app/gateway/internal/tenant"

	"go.uber.org/zap"
)

// loginResponse is the login/accept success payload: the gateway's own
// session token, never the upstream credential pair.
type loginResponse struct {
	Token    string           `json:"token"`
	User     *domain.Identity `json:"user"`
	Redirect string           `json:"redirect"`
}

func loginHandler(manager *identity.Manager, issuer *identity.TokenIssuer, sessionTTL time.Duration, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/auth/login")
		defer span.End()

		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Email == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "email and password are required")
			return
		}

		// Login needs a resolved surface to pick the post-login redirect and
		// scope the session token.
		tc, ok := tenant.FromContext(ctx)
		if !ok {
			handleServiceError(w, &domain.ErrTenantUnknown{Host: r.Host}, logger)
			return
		}

		sid, ident, redirect, err := manager.Login(ctx, tc, req.Email, req.Password)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		token, err := issuer.Mint(sid, tc.Identifier)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		setSessionCookie(w, r, token, int(sessionTTL.Seconds()))
		writeJSON(w, http.StatusOK, loginResponse{Token: token, User: ident, Redirect: redirect})
	}
}

func logoutHandler(manager *identity.Manager, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/auth/logout")
		defer span.End()

		sid := guard.SessionID(ctx)
		if sid != "" {
			manager.Logout(ctx, sid)
		}

		clearSessionCookie(w, r)
		w.WriteHeader(http.StatusNoContent)
	}
}

// sessionHandler reports the caller's resolved identity state. Unlike the
// guarded routes it never redirects: anonymous is a valid answer here.
func sessionHandler(manager *identity.Manager, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/auth/session")
		defer span.End()

		sid := guard.SessionID(ctx)

		state := identity.Anonymous
		var ident *domain.Identity
		if sid != "" {
			state, ident = manager.Bootstrap(ctx, sid)
		}

		resp := map[string]any{"state": state.String()}
		if ident != nil {
			resp["user"] = ident
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// refreshHandler forces a fresh identity snapshot for the session.
func refreshHandler(manager *identity.Manager, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/auth/refresh")
		defer span.End()

		sid := guard.SessionID(ctx)
		ident, err := manager.RefreshIdentity(ctx, sid)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"user": ident})
	}
}
