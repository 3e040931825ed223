package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/felixgeelhaar/finplan/internal/api/respond"
	"github.com/felixgeelhaar/finplan/internal/auth"
	"github.com/felixgeelhaar/finplan/internal/domain"
)

// Sessions adapts the Authenticator to HTTP: it reads the session cookie,
// applies the cookie action and attaches the identity to the request context.
type Sessions struct {
	auth   *auth.Authenticator
	secure bool
	logger *slog.Logger
}

// NewSessions creates the session middleware. secure sets the Secure cookie
// attribute.
func NewSessions(a *auth.Authenticator, secure bool, logger *slog.Logger) *Sessions {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sessions{auth: a, secure: secure, logger: logger}
}

// Require rejects requests without a valid session. Authentication failures
// are 401s with a message per cause; infrastructure faults are 500s.
func (s *Sessions) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		out, err := s.auth.AuthenticateRequired(r.Context(), token(r))
		s.apply(w, out)

		if err != nil {
			if auth.IsAuthFailure(err) {
				respond.Unauthorized(w, r, failureMessage(err), nil)
				return
			}
			respond.Internal(w, r, "Authentication failed (server)", err)
			return
		}

		next.ServeHTTP(w, r.WithContext(withSession(r.Context(), out)))
	})
}

// Optional resolves the caller when possible and otherwise proceeds
// anonymously. Stale cookies are still cleared.
func (s *Sessions) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		out := s.auth.AuthenticateOptional(r.Context(), token(r))
		s.apply(w, out)

		ctx := r.Context()
		if out.Authenticated() {
			ctx = withSession(ctx, out)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Issue sets a fresh session cookie carrying sessionID
func (s *Sessions) Issue(w http.ResponseWriter, sessionID string) {
	setCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   int(auth.IdleTimeout.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear removes the session cookie from the client
func (s *Sessions) Clear(w http.ResponseWriter) {
	setCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Sessions) apply(w http.ResponseWriter, out auth.Outcome) {
	switch out.Cookie {
	case auth.CookieRefresh:
		s.Issue(w, out.SessionID)
	case auth.CookieClear:
		s.Clear(w)
	}
}

// setCookie replaces any Set-Cookie already queued for the same name so a
// handler's decision overrides the middleware's.
func setCookie(w http.ResponseWriter, c *http.Cookie) {
	h := w.Header()
	prefix := c.Name + "="
	var kept []string
	for _, v := range h.Values("Set-Cookie") {
		if !strings.HasPrefix(v, prefix) {
			kept = append(kept, v)
		}
	}
	h.Del("Set-Cookie")
	for _, v := range kept {
		h.Add("Set-Cookie", v)
	}
	http.SetCookie(w, c)
}

func token(r *http.Request) string {
	c, err := r.Cookie(auth.CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

func failureMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrSessionExpired):
		return "Session expired"
	case errors.Is(err, auth.ErrIdleTimeout):
		return "Session idle timeout"
	case errors.Is(err, auth.ErrUserNotFound):
		return "User not found"
	default:
		return "Not authenticated"
	}
}

func withSession(ctx context.Context, out auth.Outcome) context.Context {
	ctx = context.WithValue(ctx, identityKey, out.Identity)
	return context.WithValue(ctx, sessionKey, out.SessionID)
}

// IdentityFrom returns the authenticated caller, if any
func IdentityFrom(ctx context.Context) (*domain.Identity, bool) {
	id, ok := ctx.Value(identityKey).(*domain.Identity)
	return id, ok && id != nil
}

// SessionIDFrom returns the session id of the authenticated caller
func SessionIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey).(string)
	return id
}
