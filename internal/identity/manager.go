// Package identity manages the authenticated identity lifecycle for every
// gateway session: login, logout, cache-first bootstrapping with background
// revalidation, and the permission/role predicates the route guard consults.
package identity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/distro-app/gateway/internal/domain"
	"github.com/distro-app/gateway/internal/infra/observability"
	"github.com/distro-app/gateway/internal/infra/resilience"
	"github.com/distro-app/gateway/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("identity")

const revalidateTimeout = 15 * time.Second

// session is the per-session lifecycle record. Transitions are serialized by
// the mutex; the generation counter lets slow async results detect that the
// session moved on without them (e.g. a revalidation finishing after logout).
type session struct {
	mu         sync.Mutex
	state      State
	identity   *domain.Identity
	generation uint64
}

// Manager is the identity context for all sessions. Constructed once in main
// and injected through the call graph; never a package global.
type Manager struct {
	api      port.DirectoryAPI
	store    port.SessionStore
	bulkhead *resilience.Bulkhead
	metrics  *observability.Metrics
	logger   *zap.Logger

	accessTTL  time.Duration
	refreshTTL time.Duration

	mu       sync.Mutex
	sessions map[string]*session
}

// NewManager creates the identity manager with all dependencies injected.
func NewManager(
	api port.DirectoryAPI,
	store port.SessionStore,
	bulkhead *resilience.Bulkhead,
	metrics *observability.Metrics,
	logger *zap.Logger,
	accessTTL, refreshTTL time.Duration,
) *Manager {
	return &Manager{
		api:        api,
		store:      store,
		bulkhead:   bulkhead,
		metrics:    metrics,
		logger:     logger,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		sessions:   make(map[string]*session),
	}
}

func (m *Manager) session(sid string) *session {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sid]
	if !ok {
		s = &session{state: Uninitialized}
		m.sessions[sid] = s
	}
	return s
}

// peek returns the session record without creating one. Read paths use it
// so probing an unknown session ID leaves no trace in the map.
func (m *Manager) peek(sid string) *session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[sid]
}

// drop forgets a session record. Anonymous records hold nothing worth
// keeping, and the store no longer has credentials for them; re-presenting
// the session ID later recreates a fresh record via session(). The caller
// must have bumped the generation first so in-flight async results against
// the orphaned record discard themselves.
func (m *Manager) drop(sid string) {
	m.mu.Lock()
	delete(m.sessions, sid)
	m.mu.Unlock()
}

// sessionCount reports the number of live session records.
func (m *Manager) sessionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Login authenticates against the backend. On success it atomically stores
// the credential pair and the identity snapshot under a fresh session ID and
// settles the session as Authenticated. On failure the upstream message is
// surfaced verbatim and no session is created.
func (m *Manager) Login(ctx context.Context, tc domain.TenantContext, email, password string) (string, *domain.Identity, string, error) {
	ctx, span := tracer.Start(ctx, "Manager.Login")
	defer span.End()
	span.SetAttributes(attribute.String("tenant", tc.Identifier))

	creds, ident, err := m.api.Login(ctx, email, password)
	if err != nil {
		m.metrics.IncrLogin("failure")
		m.logger.Warn("login failed",
			zap.String("tenant", tc.Identifier),
			zap.String("email", email),
			zap.Error(err),
		)
		return "", nil, "", err
	}

	sid := uuid.New().String()
	if err := m.store.Save(sid, *creds, m.accessTTL, m.refreshTTL); err != nil {
		return "", nil, "", fmt.Errorf("save credentials: %w", err)
	}
	m.store.SaveIdentity(sid, ident, m.accessTTL)

	s := m.session(sid)
	s.mu.Lock()
	s.state = Authenticated
	s.identity = ident
	s.generation++
	s.mu.Unlock()

	m.metrics.IncrLogin("success")
	m.logger.Info("user logged in",
		zap.String("tenant", tc.Identifier),
		zap.String("user_id", ident.ID),
		zap.String("role", ident.Role),
	)

	return sid, ident, PostLoginRedirect(tc, ident.Role), nil
}

// Logout notifies the backend on a best-effort basis, then unconditionally
// tears down the local session. Network failures are swallowed: local
// teardown must proceed regardless.
func (m *Manager) Logout(ctx context.Context, sid string) {
	ctx, span := tracer.Start(ctx, "Manager.Logout")
	defer span.End()

	if creds, ok := m.store.Load(sid); ok && creds.RefreshToken != "" {
		if err := m.api.Logout(ctx, creds.RefreshToken); err != nil {
			m.logger.Warn("logout notification failed, proceeding with local teardown",
				zap.Error(err),
			)
		}
	}

	m.store.Clear(sid)

	if s := m.peek(sid); s != nil {
		s.mu.Lock()
		s.state = Anonymous
		s.identity = nil
		s.generation++
		s.mu.Unlock()
		m.drop(sid)
	}

	m.logger.Info("session logged out", zap.String("sid", sid))
}

// Bootstrap settles a session's identity state:
//
//   - no access token → Anonymous;
//   - token plus cached snapshot → Authenticated immediately on the snapshot,
//     with a background revalidation that demotes to Anonymous on failure;
//   - token only → a blocking identity fetch decides.
//
// Already-settled sessions return their current state without I/O.
func (m *Manager) Bootstrap(ctx context.Context, sid string) (State, *domain.Identity) {
	ctx, span := tracer.Start(ctx, "Manager.Bootstrap")
	defer span.End()

	s := m.session(sid)
	s.mu.Lock()

	switch s.state {
	case Authenticated, Refreshing, Bootstrapping:
		state, ident := s.state, s.identity
		s.mu.Unlock()
		return state, ident
	}

	s.state = Bootstrapping
	s.generation++
	gen := s.generation

	creds, ok := m.store.Load(sid)
	if !ok || creds.AccessToken == "" {
		s.state = Anonymous
		s.identity = nil
		s.mu.Unlock()
		m.drop(sid)
		return Anonymous, nil
	}

	if cached, ok := m.store.LoadIdentity(sid); ok {
		// Optimistic display from the cached snapshot, then revalidate in the
		// background; stale optimistic state must not live indefinitely.
		s.state = Authenticated
		s.identity = cached
		s.mu.Unlock()

		go m.revalidate(sid, s, gen, creds.AccessToken)
		return Authenticated, cached
	}
	s.mu.Unlock()

	ident, err := m.api.FetchProfile(ctx, creds.AccessToken)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		// Someone logged in or out while we were fetching; their result wins.
		return s.state, s.identity
	}
	if err != nil {
		m.store.Clear(sid)
		s.state = Anonymous
		s.identity = nil
		s.generation++
		m.drop(sid)
		m.logger.Warn("bootstrap identity fetch failed, session cleared",
			zap.String("sid", sid),
			zap.Error(err),
		)
		return Anonymous, nil
	}

	m.store.SaveIdentity(sid, ident, m.accessTTL)
	s.state = Authenticated
	s.identity = ident
	return Authenticated, ident
}

// revalidate re-fetches the identity behind an optimistic bootstrap. Results
// whose generation no longer matches are discarded untouched.
func (m *Manager) revalidate(sid string, s *session, gen uint64, accessToken string) {
	ctx, cancel := context.WithTimeout(context.Background(), revalidateTimeout)
	defer cancel()

	if err := m.bulkhead.Acquire(ctx); err != nil {
		return
	}
	defer m.bulkhead.Release()

	ident, err := m.api.FetchProfile(ctx, accessToken)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generation != gen {
		m.metrics.IncrRevalidation("stale")
		return
	}

	if err != nil {
		m.metrics.IncrRevalidation("demoted")
		m.store.Clear(sid)
		s.state = Anonymous
		s.identity = nil
		s.generation++
		m.drop(sid)
		m.logger.Warn("revalidation failed, session demoted to anonymous",
			zap.String("sid", sid),
			zap.Error(err),
		)
		return
	}

	m.metrics.IncrRevalidation("confirmed")
	m.store.SaveIdentity(sid, ident, m.accessTTL)
	s.identity = ident
}

// RefreshIdentity re-fetches the identity snapshot with the current access
// token. On failure the session is torn down and the error returned, so
// callers relying on freshness can react.
func (m *Manager) RefreshIdentity(ctx context.Context, sid string) (*domain.Identity, error) {
	ctx, span := tracer.Start(ctx, "Manager.RefreshIdentity")
	defer span.End()

	s := m.peek(sid)
	if s == nil {
		return nil, &domain.ErrUnauthorized{Message: "no authenticated session"}
	}
	s.mu.Lock()
	if s.state != Authenticated {
		s.mu.Unlock()
		return nil, &domain.ErrUnauthorized{Message: "no authenticated session"}
	}
	s.state = Refreshing
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	creds, ok := m.store.Load(sid)
	if !ok || creds.AccessToken == "" {
		return nil, m.teardown(sid, s, gen, &domain.ErrUnauthorized{Message: "session expired"})
	}

	ident, err := m.api.FetchProfile(ctx, creds.AccessToken)
	if err != nil {
		return nil, m.teardown(sid, s, gen, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return nil, &domain.ErrUnauthorized{Message: "session superseded"}
	}
	m.store.SaveIdentity(sid, ident, m.accessTTL)
	s.state = Authenticated
	s.identity = ident
	return ident, nil
}

func (m *Manager) teardown(sid string, s *session, gen uint64, cause error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation == gen {
		m.store.Clear(sid)
		s.state = Anonymous
		s.identity = nil
		s.generation++
		m.drop(sid)
	}
	return cause
}

// Identity returns the session's current identity snapshot, nil unless
// Authenticated or Refreshing.
func (m *Manager) Identity(sid string) *domain.Identity {
	s := m.peek(sid)
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Authenticated && s.state != Refreshing {
		return nil
	}
	return s.identity
}

// HasPermission is false for anything but an authenticated session; otherwise
// a membership test against the snapshot's permission set.
func (m *Manager) HasPermission(sid, name string) bool {
	return m.Identity(sid).HasPermission(name)
}

// HasRole is false for anything but an authenticated session; otherwise an
// exact role match.
func (m *Manager) HasRole(sid, role string) bool {
	ident := m.Identity(sid)
	return ident != nil && ident.HasRole(role)
}

// AccessToken exposes the session's current access token for handlers that
// proxy authenticated upstream calls. Empty when absent or expired.
func (m *Manager) AccessToken(sid string) string {
	creds, ok := m.store.Load(sid)
	if !ok {
		return ""
	}
	return creds.AccessToken
}

// Adopt installs an externally obtained credential pair and identity under a
// fresh session, used by invitation acceptance which returns the same token
// shape as login.
func (m *Manager) Adopt(creds *domain.Credentials, ident *domain.Identity) (string, error) {
	sid := uuid.New().String()
	if err := m.store.Save(sid, *creds, m.accessTTL, m.refreshTTL); err != nil {
		return "", fmt.Errorf("save credentials: %w", err)
	}
	m.store.SaveIdentity(sid, ident, m.accessTTL)

	s := m.session(sid)
	s.mu.Lock()
	s.state = Authenticated
	s.identity = ident
	s.generation++
	s.mu.Unlock()
	return sid, nil
}
