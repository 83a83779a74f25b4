package identity

import (
	"fmt"
	"time"

	"github.com/distro-app/gateway/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims are the custom claims in the gateway's own session token.
// The token only names a session; the upstream credential pair never leaves
// the session store.
type SessionClaims struct {
	SID    string `json:"sid"`
	Tenant string `json:"tenant"`
	jwt.RegisteredClaims
}

// TokenIssuer mints and validates the HS256 session tokens handed to
// browsers as cookie or bearer value.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenIssuer creates a token issuer. The TTL should match the refresh
// token's durability: the gateway session is useless once the upstream
// refresh token has lapsed.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl}
}

// Mint signs a session token for the given session and tenant.
func (t *TokenIssuer) Mint(sid, tenantID string) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		SID:    sid,
		Tenant: tenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
			Issuer:    "distro-gateway",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Validate parses and verifies a session token.
func (t *TokenIssuer) Validate(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		return nil, &domain.ErrUnauthorized{Message: "invalid or expired session token"}
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.SID == "" {
		return nil, &domain.ErrUnauthorized{Message: "invalid session token"}
	}
	return claims, nil
}
