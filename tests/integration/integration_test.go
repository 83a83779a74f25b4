package integration_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/distro-app/gateway/internal/domain"
	"github.com/distro-app/gateway/internal/guard"
	"github.com/distro-app/gateway/internal/handler"
	"github.com/distro-app/gateway/internal/identity"
	"github.com/distro-app/gateway/internal/infra/cache"
	"github.com/distro-app/gateway/internal/infra/client"
	"github.com/distro-app/gateway/internal/infra/observability"
	"github.com/distro-app/gateway/internal/infra/resilience"
	"github.com/distro-app/gateway/internal/service"
	"github.com/distro-app/gateway/internal/session"
	"github.com/distro-app/gateway/internal/tenant"

	"go.uber.org/zap"
)

// newBackend fakes the distro REST API: login issues a token pair, the
// remaining endpoints require the access token and answer in the backend's
// assorted collection envelopes.
func newBackend(t *testing.T) *httptest.Server {
	t.Helper()

	adminUser := map[string]any{
		"id":         1,
		"email":      "ana@demo-water.example",
		"first_name": "Ana",
		"last_name":  "Souza",
		"full_name":  "Ana Souza",
		"role":       "admin",
		"permissions": []string{
			"view_analytics", "create_user", "view_all_users",
			"manage_settings", "view_assets",
		},
		"is_active": true,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login/", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.Email != "ana@demo-water.example" || req.Password != "s3cret" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "Invalid email or password."})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"tokens":  map[string]string{"access": "acc-1", "refresh": "ref-1"},
			"user":    adminUser,
		})
	})
	mux.HandleFunc("POST /api/auth/logout/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	})

	authed := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer acc-1" {
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{"detail": "Token invalid."})
				return
			}
			next(w, r)
		}
	}
	mux.HandleFunc("GET /api/users/profile/", authed(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": true, "data": adminUser})
	}))
	mux.HandleFunc("GET /api/users/", authed(func(w http.ResponseWriter, r *http.Request) {
		// DRF-style results envelope.
		json.NewEncoder(w).Encode(map[string]any{"results": []map[string]any{
			adminUser,
			{"id": 2, "email": "tech@demo-water.example", "role": "field_tech", "is_active": true},
		}})
	}))
	mux.HandleFunc("GET /api/assets/", authed(func(w http.ResponseWriter, r *http.Request) {
		// Bare array shape.
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": 1, "name": "Pump A"}, {"id": 2, "name": "Pump B"}, {"id": 3, "name": "Valve C"},
		})
	}))
	mux.HandleFunc("GET /api/zones/", authed(func(w http.ResponseWriter, r *http.Request) {
		// Success/data envelope shape.
		json.NewEncoder(w).Encode(map[string]any{"success": true, "data": []map[string]any{
			{"id": 1, "name": "North"}, {"id": 2, "name": "South"},
		}})
	}))
	mux.HandleFunc("GET /api/tenants/", authed(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": 1, "name": "Demo Water", "domain": "demo", "is_active": true},
		})
	}))

	return httptest.NewServer(mux)
}

// newGateway assembles the full stack against the fake backend, exactly as
// main does, minus tracing export.
func newGateway(backendURL string) http.Handler {
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	cfg := resilience.Config{MaxRetries: 1, InitialBackoff: 10 * time.Millisecond, MaxConcurrency: 10}
	cb := resilience.NewCircuitBreaker("integration")
	httpClient := &http.Client{Timeout: 5 * time.Second}

	api := client.NewClient(httpClient, backendURL, cb, cfg, metrics, logger)
	store := session.NewMemory(time.Minute)
	manager := identity.NewManager(api, store, resilience.NewBulkhead(10), metrics, logger, time.Hour, 24*time.Hour)
	issuer := identity.NewTokenIssuer("integration-secret", 24*time.Hour)

	directory := service.NewDirectory(
		api,
		cache.New[*domain.DashboardSummary](time.Minute),
		cache.New[[]domain.Utility](time.Minute),
		metrics,
		logger,
		time.Minute,
	)

	return handler.NewRouter(handler.Deps{
		Resolver:    tenant.NewResolver("localhost"),
		Manager:     manager,
		Issuer:      issuer,
		Guard:       guard.New(manager, metrics, logger),
		Directory:   directory,
		Invitations: service.NewInvitations(api, manager, logger),
		API:         api,
		Metrics:     metrics,
		Logger:      logger,
		SessionTTL:  24 * time.Hour,
	})
}

// TestIntegration_LoginProfileDashboard walks the happy path end to end:
// login on a utility subdomain, read the profile back, then pull the
// aggregated dashboard, all through the real client against the fake backend.
func TestIntegration_LoginProfileDashboard(t *testing.T) {
	backend := newBackend(t)
	defer backend.Close()

	router := newGateway(backend.URL)

	// --- Login ---
	body, _ := json.Marshal(map[string]string{
		"email":    "ana@demo-water.example",
		"password": "s3cret",
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", bytes.NewReader(body))
	req.Host = "demo.localhost:3000"
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d. Body: %s", rec.Code, rec.Body.String())
	}
	var login struct {
		Token    string           `json:"token"`
		User     *domain.Identity `json:"user"`
		Redirect string           `json:"redirect"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&login); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if login.Token == "" {
		t.Fatal("expected a session token")
	}
	if login.Redirect != "/dashboard" {
		t.Errorf("expected redirect /dashboard, got %q", login.Redirect)
	}
	if login.User == nil || login.User.FullName != "Ana Souza" {
		t.Fatalf("unexpected user in login response: %+v", login.User)
	}

	// --- Profile ---
	req = httptest.NewRequest(http.MethodGet, "/v1/profile", nil)
	req.Host = "demo.localhost:3000"
	req.Header.Set("Authorization", "Bearer "+login.Token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("profile: expected 200, got %d. Body: %s", rec.Code, rec.Body.String())
	}
	var profile domain.Identity
	if err := json.NewDecoder(rec.Body).Decode(&profile); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if profile.Email != "ana@demo-water.example" {
		t.Errorf("unexpected profile email %q", profile.Email)
	}

	// --- Dashboard summary ---
	req = httptest.NewRequest(http.MethodGet, "/v1/dashboard/summary", nil)
	req.Host = "demo.localhost:3000"
	req.Header.Set("Authorization", "Bearer "+login.Token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard: expected 200, got %d. Body: %s", rec.Code, rec.Body.String())
	}
	var summary domain.DashboardSummary
	if err := json.NewDecoder(rec.Body).Decode(&summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.TotalUsers != 2 {
		t.Errorf("expected 2 users, got %d", summary.TotalUsers)
	}
	if summary.TotalAssets != 3 {
		t.Errorf("expected 3 assets, got %d", summary.TotalAssets)
	}
	if summary.TotalZones != 2 {
		t.Errorf("expected 2 zones, got %d", summary.TotalZones)
	}
	if summary.UsersByRole["admin"] != 1 || summary.UsersByRole["field_tech"] != 1 {
		t.Errorf("unexpected role breakdown: %v", summary.UsersByRole)
	}

	// --- Logout invalidates the session ---
	req = httptest.NewRequest(http.MethodPost, "/v1/auth/logout", nil)
	req.Host = "demo.localhost:3000"
	req.Header.Set("Authorization", "Bearer "+login.Token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout: expected 204, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/profile", nil)
	req.Host = "demo.localhost:3000"
	req.Header.Set("Authorization", "Bearer "+login.Token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("profile after logout: expected 401, got %d", rec.Code)
	}
}

// TestIntegration_BadCredentials checks that the backend's rejection message
// travels through the whole stack verbatim.
func TestIntegration_BadCredentials(t *testing.T) {
	backend := newBackend(t)
	defer backend.Close()

	router := newGateway(backend.URL)

	body, _ := json.Marshal(map[string]string{
		"email":    "ana@demo-water.example",
		"password": "wrong",
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", bytes.NewReader(body))
	req.Host = "demo.localhost:3000"
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d. Body: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Error string `json:"error"`
	}
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Error != "Invalid email or password." {
		t.Errorf("expected the backend's message verbatim, got %q", resp.Error)
	}
}

// TestIntegration_BackendUnavailable maps upstream 5xx failures to 502.
func TestIntegration_BackendUnavailable(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer backend.Close()

	router := newGateway(backend.URL)

	body, _ := json.Marshal(map[string]string{"email": "a@b.c", "password": "x"})
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", bytes.NewReader(body))
	req.Host = "demo.localhost:3000"
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d. Body: %s", rec.Code, rec.Body.String())
	}
}
