package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/distro-app/gateway/internal/domain"
	"github.com/distro-app/gateway/internal/guard"
	"github.com/distro-app/gateway/internal/identity"
	"github.com/distro-app/gateway/internal/service"
	"github.com/distro-app/gateway/internal/tenant"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func listInvitationsHandler(inv *service.Invitations, manager *identity.Manager, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/invitations")
		defer span.End()

		status := r.URL.Query().Get("status")
		invitations, err := inv.List(ctx, manager.AccessToken(guard.SessionID(ctx)), status)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"invitations": invitations})
	}
}

func resendInvitationHandler(inv *service.Invitations, manager *identity.Manager, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/invitations/{invitationId}/resend")
		defer span.End()

		invitationID := chi.URLParam(r, "invitationId")
		invitation, err := inv.Resend(ctx, manager.AccessToken(guard.SessionID(ctx)), invitationID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, invitation)
	}
}

// acceptInvitationHandler is a public endpoint: the invitation token is the
// credential. On success the caller walks away with a live session, same as
// a login.
func acceptInvitationHandler(inv *service.Invitations, issuer *identity.TokenIssuer, sessionTTL time.Duration, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/invitations/accept")
		defer span.End()

		// Acceptance ends in a live session, so it needs a resolved surface
		// just like login does.
		tc, ok := tenant.FromContext(ctx)
		if !ok {
			handleServiceError(w, &domain.ErrTenantUnknown{Host: r.Host}, logger)
			return
		}

		var req domain.AcceptInvitationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		sid, ident, err := inv.Accept(ctx, &req)
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
		writeJSON(w, http.StatusCreated, loginResponse{
			Token:    token,
			User:     ident,
			Redirect: identity.PostLoginRedirect(tc, ident.Role),
		})
	}
}
