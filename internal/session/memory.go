// Package session provides durable storage for a session's credential pair
// and its cached identity snapshot. Tokens expire independently; clearing a
// session removes everything under one lock so no concurrent reader can
// observe half a session.
package session

import (
	"sync"
	"time"

	"github.com/distro-app/gateway/internal/domain"
)

type tokenEntry struct {
	value     string
	expiresAt time.Time
}

type record struct {
	access   tokenEntry
	refresh  tokenEntry
	identity *domain.Identity
	identExp time.Time
}

// Memory is the in-process SessionStore implementation. The medium is
// pluggable behind port.SessionStore; concurrent writers to the same session
// are last-writer-wins, matching the shared, unsynchronized nature of the
// underlying browser store this models.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string]*record
}

// NewMemory creates an empty in-memory session store and starts its
// cleanup loop.
func NewMemory(sweep time.Duration) *Memory {
	m := &Memory{sessions: make(map[string]*record)}
	go m.cleanup(sweep)
	return m
}

// Save stores both tokens for a session. The access token's durability is
// capped at the refresh token's: it must never outlive it.
func (m *Memory) Save(sid string, creds domain.Credentials, accessTTL, refreshTTL time.Duration) error {
	if accessTTL > refreshTTL {
		accessTTL = refreshTTL
	}
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	rec := m.sessions[sid]
	if rec == nil {
		rec = &record{}
		m.sessions[sid] = rec
	}
	rec.access = tokenEntry{value: creds.AccessToken, expiresAt: now.Add(accessTTL)}
	rec.refresh = tokenEntry{value: creds.RefreshToken, expiresAt: now.Add(refreshTTL)}
	return nil
}

// Load returns the session's credentials. Expired tokens come back empty;
// a session whose refresh token has lapsed is reported as absent.
func (m *Memory) Load(sid string) (domain.Credentials, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.sessions[sid]
	if !ok {
		return domain.Credentials{}, false
	}
	now := time.Now()

	var creds domain.Credentials
	if now.Before(rec.access.expiresAt) {
		creds.AccessToken = rec.access.value
	}
	if now.Before(rec.refresh.expiresAt) {
		creds.RefreshToken = rec.refresh.value
	}
	if creds.AccessToken == "" && creds.RefreshToken == "" {
		return domain.Credentials{}, false
	}
	return creds, true
}

// Clear removes tokens and identity snapshot atomically from the caller's
// point of view.
func (m *Memory) Clear(sid string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, sid)
}

// SaveIdentity caches the identity snapshot, keyed independently of the
// credentials: clearing credentials always clears it, but an expired snapshot
// never invalidates the tokens.
func (m *Memory) SaveIdentity(sid string, identity *domain.Identity, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := m.sessions[sid]
	if rec == nil {
		rec = &record{}
		m.sessions[sid] = rec
	}
	rec.identity = identity
	rec.identExp = time.Now().Add(ttl)
}

// LoadIdentity returns the cached identity snapshot if present and fresh.
func (m *Memory) LoadIdentity(sid string) (*domain.Identity, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.sessions[sid]
	if !ok || rec.identity == nil || time.Now().After(rec.identExp) {
		return nil, false
	}
	return rec.identity, true
}

// cleanup drops sessions whose refresh token has lapsed.
func (m *Memory) cleanup(sweep time.Duration) {
	ticker := time.NewTicker(sweep)
	defer ticker.Stop()

	for range ticker.C {
		m.mu.Lock()
		now := time.Now()
		for sid, rec := range m.sessions {
			if now.After(rec.refresh.expiresAt) {
				delete(m.sessions, sid)
			}
		}
		m.mu.Unlock()
	}
}
