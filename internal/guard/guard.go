// Package guard gates protected routes on the session's resolved identity
// state. Guards nest: a page-level guard inside a layout-level guard composes
// by intersection of requirements, never by weakening an ancestor.
package guard

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/distro-app/gateway/internal/identity"
	"github.com/distro-app/gateway/internal/infra/observability"
	"github.com/distro-app/gateway/internal/tenant"

	"go.uber.org/zap"
)

type contextKey string

const (
	sessionIDKey    contextKey = "sessionID"
	requirementsKey contextKey = "guardRequirements"
)

// Requirements declares what a route demands of the caller. Permissions are
// conjunctive: every listed permission must be held. Roles accumulate across
// nested guards; each must match exactly.
type Requirements struct {
	Auth        bool
	Permissions []string
	Roles       []string
}

// RequireAuth is the minimal requirement set for a protected route.
var RequireAuth = Requirements{Auth: true}

// Permission builds an authenticated requirement for the given permissions.
func Permission(names ...string) Requirements {
	return Requirements{Auth: true, Permissions: names}
}

// Role builds an authenticated requirement for an exact role.
func Role(role string) Requirements {
	return Requirements{Auth: true, Roles: []string{role}}
}

// merge intersects an inner guard's requirements with its ancestors'.
func merge(outer, inner Requirements) Requirements {
	return Requirements{
		Auth:        outer.Auth || inner.Auth,
		Permissions: append(append([]string{}, outer.Permissions...), inner.Permissions...),
		Roles:       append(append([]string{}, outer.Roles...), inner.Roles...),
	}
}

// WithSession attaches the validated session ID for downstream guards and
// handlers. An empty sid means no session token was presented.
func WithSession(ctx context.Context, sid string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sid)
}

// SessionID extracts the session ID attached by the session middleware.
func SessionID(ctx context.Context) string {
	sid, _ := ctx.Value(sessionIDKey).(string)
	return sid
}

// Guard evaluates requirements against the identity manager.
type Guard struct {
	manager *identity.Manager
	metrics *observability.Metrics
	logger  *zap.Logger
}

// New creates a route guard.
func New(manager *identity.Manager, metrics *observability.Metrics, logger *zap.Logger) *Guard {
	return &Guard{manager: manager, metrics: metrics, logger: logger}
}

// Require returns a middleware enforcing the given requirements, intersected
// with any requirements already imposed by an enclosing guard.
func (g *Guard) Require(req Requirements) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			merged := req
			if outer, ok := r.Context().Value(requirementsKey).(Requirements); ok {
				merged = merge(outer, req)
			}
			ctx := context.WithValue(r.Context(), requirementsKey, merged)
			r = r.WithContext(ctx)

			sid := SessionID(ctx)

			var state identity.State = identity.Anonymous
			if sid != "" {
				state, _ = g.manager.Bootstrap(ctx, sid)
			}

			// A session mid-bootstrap renders a neutral loading state: never
			// the protected content, never a premature redirect.
			if state == identity.Bootstrapping {
				w.Header().Set("Retry-After", "1")
				writeState(w, http.StatusAccepted, "loading")
				return
			}

			if merged.Auth && state != identity.Authenticated && state != identity.Refreshing {
				g.metrics.IncrGuardDenial("unauthenticated")
				g.redirectToLogin(w, r)
				return
			}

			for _, p := range merged.Permissions {
				if !g.manager.HasPermission(sid, p) {
					g.deny(w, r, "missing permission: "+p)
					return
				}
			}
			for _, role := range merged.Roles {
				if !g.manager.HasRole(sid, role) {
					g.deny(w, r, "role not permitted")
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// redirectToLogin is the unauthenticated branch: browsers get sent to the
// tenant-appropriate login entry point, API callers get a 401.
func (g *Guard) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	if wantsJSON(r) {
		writeState(w, http.StatusUnauthorized, "unauthenticated")
		return
	}
	tc, ok := tenant.FromContext(r.Context())
	http.Redirect(w, r, tenant.LoginTarget(tc, ok), http.StatusTemporaryRedirect)
}

// deny is the authorization branch, deliberately distinct from the
// unauthenticated one: the caller is known, just not allowed.
func (g *Guard) deny(w http.ResponseWriter, r *http.Request, reason string) {
	g.metrics.IncrGuardDenial("forbidden")
	g.logger.Warn("route guard denial",
		zap.String("path", r.URL.Path),
		zap.String("reason", reason),
	)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	json.NewEncoder(w).Encode(map[string]string{"state": "forbidden", "error": reason})
}

func writeState(w http.ResponseWriter, status int, state string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"state": state})
}

func wantsJSON(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/v1") ||
		strings.Contains(r.Header.Get("Accept"), "application/json")
}
