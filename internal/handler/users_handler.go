package handler

import (
	"encoding/json"
	"net/http"

	"github.com/distro-app/gateway/internal/domain"
	"github.com/distro-app/gateway/internal/guard"
	"github.com/distro-app/gateway/internal/identity"
	"github.com/distro-app/gateway/internal/service"

	"go.uber.org/zap"
)

// listUsersHandler serves the roster. Either roster permission grants access;
// the route guard cannot express a disjunction, so the check lives here.
func listUsersHandler(dir *service.Directory, manager *identity.Manager, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/users")
		defer span.End()

		sid := guard.SessionID(ctx)
		if !manager.HasPermission(sid, "view_all_users") && !manager.HasPermission(sid, "view_team_users") {
			writeError(w, http.StatusForbidden, "viewing the roster requires a user-view permission")
			return
		}

		users, err := dir.ListUsers(ctx, manager.AccessToken(sid))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"users": users})
	}
}

func createUserHandler(dir *service.Directory, manager *identity.Manager, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/users")
		defer span.End()

		var req domain.Identity
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		user, err := dir.CreateUser(ctx, manager.AccessToken(guard.SessionID(ctx)), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, user)
	}
}
