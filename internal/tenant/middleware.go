package tenant

import (
	"context"
	"net/http"
	"strings"

	"github.com/distro-app/gateway/internal/domain"
	"github.com/distro-app/gateway/internal/infra/observability"

	"go.uber.org/zap"
)

type contextKey string

const tenantContextKey contextKey = "tenantContext"

// Paths the edge serves directly regardless of surface; the page-level
// redirect rules below never apply to them.
var passthroughPrefixes = []string{"/v1", "/healthz", "/readyz", "/metrics", "/ping"}

// AdminPrefix is the only page prefix servable on the public surface.
const AdminPrefix = "/admin"

// AdminDashboardPath is the public admin landing page.
const AdminDashboardPath = "/admin/dashboard"

// LoginPath is the tenant login entry point.
const LoginPath = "/login"

// Middleware resolves the tenant from the Host header, attaches the result to
// the request context and response headers, and applies the edge redirect
// rules. Unknown hosts pass through untouched; absence of tenant metadata is
// handled downstream.
func Middleware(resolver *Resolver, metrics *observability.Metrics, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tc := resolver.Resolve(r.Host)
			metrics.IncrTenantResolution(tc.Kind.String())

			if !tc.Resolved() {
				logger.Debug("tenant: unrecognized host, passing through",
					zap.String("host", r.Host),
					zap.String("path", r.URL.Path),
				)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-Tenant-Kind", tc.Kind.String())
			w.Header().Set("X-Tenant-ID", tc.Identifier)

			if target, ok := redirectTarget(tc, r.URL.Path); ok {
				logger.Debug("tenant: edge redirect",
					zap.String("host", r.Host),
					zap.String("path", r.URL.Path),
					zap.String("target", target),
				)
				http.Redirect(w, r, target, http.StatusTemporaryRedirect)
				return
			}

			ctx := context.WithValue(r.Context(), tenantContextKey, tc)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// redirectTarget applies the page-level routing rules layered on top of
// classification. These are unauthenticated checks; session state is
// validated deeper in the stack.
func redirectTarget(tc domain.TenantContext, path string) (string, bool) {
	for _, p := range passthroughPrefixes {
		if strings.HasPrefix(path, p) {
			return "", false
		}
	}

	switch tc.Kind {
	case domain.TenantPublic:
		// Only admin-prefixed pages are servable on the public surface.
		if !strings.HasPrefix(path, AdminPrefix) {
			return AdminDashboardPath, true
		}
	case domain.TenantScoped:
		if path == "/" {
			return LoginPath, true
		}
	}
	return "", false
}

// FromContext extracts the tenant context attached by Middleware.
// The second return is false when the host was unrecognized.
func FromContext(ctx context.Context) (domain.TenantContext, bool) {
	tc, ok := ctx.Value(tenantContextKey).(domain.TenantContext)
	return tc, ok
}

// NewContext attaches a tenant context; used by tests and internal callers.
func NewContext(ctx context.Context, tc domain.TenantContext) context.Context {
	return context.WithValue(ctx, tenantContextKey, tc)
}

// LoginTarget returns the login entry point appropriate for the surface.
func LoginTarget(tc domain.TenantContext, ok bool) string {
	if ok && tc.Kind == domain.TenantPublic {
		return AdminPrefix + LoginPath
	}
	return LoginPath
}
