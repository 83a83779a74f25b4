package handler

import (
	"net/http"
	"strings"

	"github.com/distro-app/gateway/internal/guard"
	"github.com/distro-app/gateway/internal/identity"

	"go.uber.org/zap"
)

// SessionCookie carries the gateway's session token for browser callers;
// API callers use the Authorization header instead.
const SessionCookie = "distro_session"

// SessionMiddleware validates the session token, when one is presented, and
// attaches the session ID to the context. An absent or invalid token is not
// an error here: the request continues anonymously and the route guard
// decides whether that matters.
func SessionMiddleware(issuer *identity.TokenIssuer, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				if c, err := r.Cookie(SessionCookie); err == nil {
					token = c.Value
				}
			}

			sid := ""
			if token != "" {
				claims, err := issuer.Validate(token)
				if err != nil {
					logger.Debug("session token rejected", zap.Error(err))
				} else {
					sid = claims.SID
				}
			}

			next.ServeHTTP(w, r.WithContext(guard.WithSession(r.Context(), sid)))
		})
	}
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// setSessionCookie installs the session token as an HTTP-only cookie scoped
// to the current host. MaxAge mirrors the refresh token's durability. Secure
// follows the request's transport so the token is never replayable over
// plaintext in production, while plain-HTTP local development keeps working.
func setSessionCookie(w http.ResponseWriter, r *http.Request, token string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   isTLS(r),
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   isTLS(r),
		SameSite: http.SameSiteLaxMode,
	})
}

// isTLS reports whether the request arrived over HTTPS, directly or behind a
// terminating proxy.
func isTLS(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
