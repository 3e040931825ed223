package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/finplan/internal/domain"
)

// IdleTimeout is how long a session may go unused before it is reaped.
// Every successful validation restarts the window.
const IdleTimeout = time.Hour

// CookieName is the cookie carrying the session token
const CookieName = "sid"

// Authentication failures. All four are client-facing 401s in required mode.
var (
	ErrUnauthenticated = errors.New("not authenticated")
	ErrSessionExpired  = errors.New("session expired")
	ErrIdleTimeout     = errors.New("session idle timeout")
	ErrUserNotFound    = errors.New("session owner not found")
)

// IsAuthFailure reports whether err is one of the expected authentication
// failures, as opposed to an infrastructure fault.
func IsAuthFailure(err error) bool {
	return errors.Is(err, ErrUnauthenticated) ||
		errors.Is(err, ErrSessionExpired) ||
		errors.Is(err, ErrIdleTimeout) ||
		errors.Is(err, ErrUserNotFound)
}

// CookieAction tells the transport what to do with the session cookie
type CookieAction int

const (
	// CookieKeep leaves the cookie untouched
	CookieKeep CookieAction = iota
	// CookieRefresh re-issues the cookie with a full IdleTimeout max-age
	CookieRefresh
	// CookieClear removes the cookie from the client
	CookieClear
)

func (a CookieAction) String() string {
	switch a {
	case CookieRefresh:
		return "refresh"
	case CookieClear:
		return "clear"
	default:
		return "keep"
	}
}

// Outcome is the result of validating a session token
type Outcome struct {
	Identity  *domain.Identity
	SessionID string
	Cookie    CookieAction
}

// Authenticated reports whether an identity was resolved
func (o Outcome) Authenticated() bool {
	return o.Identity != nil
}

// Authenticator validates session tokens against the session and credential stores
type Authenticator struct {
	users    UserStore
	sessions SessionStore
	opts     options
}

// NewAuthenticator creates an authenticator over the given stores
func NewAuthenticator(users UserStore, sessions SessionStore, opts ...Option) *Authenticator {
	return &Authenticator{
		users:    users,
		sessions: sessions,
		opts:     buildOptions(opts),
	}
}

// Authenticate resolves token to an identity. It performs the store reads and
// writes but leaves the cookie side effect to the caller, described by
// Outcome.Cookie. Returned errors are either one of the authentication
// failures or a wrapped infrastructure fault.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (Outcome, error) {
	if token == "" {
		return Outcome{}, ErrUnauthenticated
	}

	sess, err := a.sessions.GetSession(ctx, token)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return Outcome{Cookie: CookieClear}, ErrSessionExpired
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("load session: %w", err)
	}

	now := a.opts.now()
	if sess.IsIdle(now, IdleTimeout) {
		if err := a.sessions.DeleteSession(ctx, sess.ID); err != nil {
			return Outcome{}, fmt.Errorf("delete idle session: %w", err)
		}
		return Outcome{Cookie: CookieClear}, ErrIdleTimeout
	}

	identity, err := a.users.FindIdentity(ctx, sess.UserID)
	if errors.Is(err, domain.ErrUserNotFound) {
		// Sessions are not removed with their owner; reap the orphan now.
		if err := a.sessions.DeleteSession(ctx, sess.ID); err != nil {
			return Outcome{}, fmt.Errorf("delete orphaned session: %w", err)
		}
		return Outcome{Cookie: CookieClear}, ErrUserNotFound
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("load session owner: %w", err)
	}

	// Renewal only updates; a logout that raced this request wins.
	err = a.sessions.TouchSession(ctx, sess.ID, now)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return Outcome{Cookie: CookieClear}, ErrSessionExpired
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("renew session: %w", err)
	}

	return Outcome{
		Identity:  identity,
		SessionID: sess.ID,
		Cookie:    CookieRefresh,
	}, nil
}

// AuthenticateRequired validates token and fails on any problem
func (a *Authenticator) AuthenticateRequired(ctx context.Context, token string) (Outcome, error) {
	out, err := a.Authenticate(ctx, token)
	a.opts.observer("required", resultOf(err))
	return out, err
}

// AuthenticateOptional validates token but never fails: every problem yields an
// anonymous outcome. Infrastructure faults are logged before being dropped.
// The cookie action of a failed attempt is preserved so stale cookies still get cleared.
func (a *Authenticator) AuthenticateOptional(ctx context.Context, token string) Outcome {
	out, err := a.Authenticate(ctx, token)
	a.opts.observer("optional", resultOf(err))
	if err == nil {
		return out
	}

	if !IsAuthFailure(err) {
		a.opts.logger.WarnContext(ctx, "optional session lookup failed, continuing anonymously",
			"error", err,
		)
	}
	return Outcome{Cookie: out.Cookie}
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, ErrUnauthenticated):
		return ResultUnauthenticated
	case errors.Is(err, ErrSessionExpired):
		return ResultSessionExpired
	case errors.Is(err, ErrIdleTimeout):
		return ResultIdleTimeout
	case errors.Is(err, ErrUserNotFound):
		return ResultUserNotFound
	default:
		return ResultError
	}
}
