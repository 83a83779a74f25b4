// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the identity and
// service layers from concrete implementations.
package port

import (
	"context"
	"time"

	"github.com/distro-app/gateway/internal/domain"
)

// DirectoryAPI is the authoritative identity and directory source: the distro
// backend's REST API. Login/Logout/Profile power the identity lifecycle; the
// collection calls feed the dashboard and roster views.
type DirectoryAPI interface {
	// Auth
	Login(ctx context.Context, email, password string) (*domain.Credentials, *domain.Identity, error)
	Logout(ctx context.Context, refreshToken string) error

	// Profile (bearer access token)
	FetchProfile(ctx context.Context, accessToken string) (*domain.Identity, error)
	UpdateProfile(ctx context.Context, accessToken string, update *domain.ProfileUpdate) (*domain.Identity, error)
	UpdateLocation(ctx context.Context, accessToken string, loc domain.Location) error

	// Invitations
	AcceptInvitation(ctx context.Context, req *domain.AcceptInvitationRequest) (*domain.Credentials, *domain.Identity, error)
	ListInvitations(ctx context.Context, accessToken string) ([]domain.Invitation, error)
	ResendInvitation(ctx context.Context, accessToken, invitationID string) (*domain.Invitation, error)

	// Directory collections
	ListUsers(ctx context.Context, accessToken string) ([]domain.Identity, error)
	CreateUser(ctx context.Context, accessToken string, user *domain.Identity) (*domain.Identity, error)
	ListAssets(ctx context.Context, accessToken string) ([]map[string]any, error)
	ListZones(ctx context.Context, accessToken string) ([]map[string]any, error)
	ListTenants(ctx context.Context, accessToken string) ([]domain.Utility, error)
}

// SessionStore persists the credential pair and the cached identity snapshot
// for a session, with independent expirations per token. The medium is
// pluggable (in-memory here; a cookie jar or keystore in other deployments).
type SessionStore interface {
	// Save stores both tokens. The access token's durability must be shorter
	// than or equal to the refresh token's.
	Save(sid string, creds domain.Credentials, accessTTL, refreshTTL time.Duration) error
	// Load returns the credentials; missing or expired tokens come back empty.
	Load(sid string) (domain.Credentials, bool)
	// Clear removes tokens and snapshot atomically from the caller's view.
	Clear(sid string)

	SaveIdentity(sid string, identity *domain.Identity, ttl time.Duration)
	LoadIdentity(sid string) (*domain.Identity, bool)
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	SetWithTTL(key string, value T, ttl time.Duration)
	Delete(key string)
}
