package tenant

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/distro-app/gateway/internal/domain"
	"github.com/distro-app/gateway/internal/infra/observability"

	"go.uber.org/zap"
)

func serveWith(t *testing.T, host, path string) (*httptest.ResponseRecorder, domain.TenantContext, bool) {
	t.Helper()

	var gotTC domain.TenantContext
	var gotOK bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTC, gotOK = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	mw := Middleware(NewResolver("localhost"), observability.NewMetrics(), zap.NewNop())
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Host = host
	rec := httptest.NewRecorder()
	mw(next).ServeHTTP(rec, req)
	return rec, gotTC, gotOK
}

func TestMiddleware_PublicRootRedirectsToAdminDashboard(t *testing.T) {
	rec, _, _ := serveWith(t, "localhost:3000", "/")

	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want 307", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != AdminDashboardPath {
		t.Errorf("Location = %q, want %q", loc, AdminDashboardPath)
	}
	if kind := rec.Header().Get("X-Tenant-Kind"); kind != "public" {
		t.Errorf("X-Tenant-Kind = %q, want public", kind)
	}
}

func TestMiddleware_TenantRootRedirectsToLogin(t *testing.T) {
	rec, _, _ := serveWith(t, "demo.localhost:3000", "/")

	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want 307", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != LoginPath {
		t.Errorf("Location = %q, want %q", loc, LoginPath)
	}
	if id := rec.Header().Get("X-Tenant-ID"); id != "demo" {
		t.Errorf("X-Tenant-ID = %q, want demo", id)
	}
}

func TestMiddleware_TenantPageServedWithContext(t *testing.T) {
	rec, tc, ok := serveWith(t, "demo.localhost", "/dashboard")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !ok || tc.Kind != domain.TenantScoped || tc.Identifier != "demo" {
		t.Errorf("tenant context not attached: ok=%v tc=%+v", ok, tc)
	}
}

func TestMiddleware_UnknownHostPassesThroughUntouched(t *testing.T) {
	rec, _, ok := serveWith(t, "other.example.com", "/")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 passthrough", rec.Code)
	}
	if ok {
		t.Error("unknown host must not attach a tenant context")
	}
	if rec.Header().Get("X-Tenant-Kind") != "" || rec.Header().Get("X-Tenant-ID") != "" {
		t.Error("unknown host must not set tenant headers")
	}
}

func TestMiddleware_APIPathsSkipRedirects(t *testing.T) {
	for _, path := range []string{"/v1/profile", "/healthz", "/metrics"} {
		rec, _, _ := serveWith(t, "localhost", path)
		if rec.Code != http.StatusOK {
			t.Errorf("path %q: status = %d, want 200 (no edge redirect)", path, rec.Code)
		}
	}
}

func TestLoginTarget_BySurface(t *testing.T) {
	public := domain.TenantContext{Kind: domain.TenantPublic, Identifier: domain.PublicIdentifier}
	scoped := domain.TenantContext{Kind: domain.TenantScoped, Identifier: "demo"}

	if got := LoginTarget(public, true); got != "/admin/login" {
		t.Errorf("public login target = %q, want /admin/login", got)
	}
	if got := LoginTarget(scoped, true); got != "/login" {
		t.Errorf("tenant login target = %q, want /login", got)
	}
	if got := LoginTarget(domain.TenantContext{}, false); got != "/login" {
		t.Errorf("fallback login target = %q, want /login", got)
	}
}
