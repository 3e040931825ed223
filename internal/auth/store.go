package auth

import (
	"context"
	"time"

	"github.com/felixgeelhaar/finplan/internal/domain"
)

// UserStore is the credential store. Implementations return domain.ErrUserNotFound
// for unknown users and domain.ErrEmailExists when CreateUser hits a taken email.
type UserStore interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)

	// FindIdentity loads the lightweight projection of a user, without the password hash.
	FindIdentity(ctx context.Context, id string) (*domain.Identity, error)
}

// SessionStore holds login sessions keyed by their token.
type SessionStore interface {
	// GetSession returns domain.ErrSessionNotFound when no session has the id.
	GetSession(ctx context.Context, id string) (*domain.Session, error)

	// SaveSession inserts or replaces the session. Only used to open sessions.
	SaveSession(ctx context.Context, session *domain.Session) error

	// TouchSession sets LastActivity on an existing session. It never
	// recreates a deleted one: a missing session is domain.ErrSessionNotFound.
	TouchSession(ctx context.Context, id string, at time.Time) error

	// DeleteSession removes the session. Deleting a missing session is not an error.
	DeleteSession(ctx context.Context, id string) error
}
