package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/felixgeelhaar/finplan/internal/domain"
)

// MinPasswordLength is the shortest accepted password
const MinPasswordLength = 6

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailExists        = domain.ErrEmailExists
)

// Service handles registration, login and logout
type Service struct {
	users    UserStore
	sessions SessionStore
	opts     options
}

// NewService creates a new auth service
func NewService(users UserStore, sessions SessionStore, opts ...Option) *Service {
	return &Service{
		users:    users,
		sessions: sessions,
		opts:     buildOptions(opts),
	}
}

// RegisterRequest contains registration data
type RegisterRequest struct {
	Email    string
	Name     string
	Password string
}

// LoginRequest contains login credentials
type LoginRequest struct {
	Email    string
	Password string
}

// LoginResponse contains the user and the freshly opened session
type LoginResponse struct {
	User    *domain.User
	Session *domain.Session
}

// Token returns the value to place in the session cookie
func (r *LoginResponse) Token() string {
	return r.Session.ID
}

// Register creates a new account and opens a session for it
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*LoginResponse, error) {
	email := strings.TrimSpace(req.Email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if len(req.Password) < MinPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidInput, MinPasswordLength)
	}

	existing, err := s.users.GetUserByEmail(ctx, email)
	if err == nil && existing != nil {
		return nil, ErrEmailExists
	}
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("lookup email: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.opts.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}

	now := s.opts.now()
	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: string(hashed),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, domain.ErrEmailExists) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	if err := s.opts.publisher.Publish(ctx, domain.NewEvent(domain.EventUserRegistered, user.ID, user.ID)); err != nil {
		s.opts.logger.WarnContext(ctx, "failed to publish event", "type", domain.EventUserRegistered, "error", err)
	}

	sess, err := s.openSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &LoginResponse{User: user, Session: sess}, nil
}

// Login checks credentials and opens a session
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	email := strings.TrimSpace(req.Email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if len(req.Password) < MinPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidInput, MinPasswordLength)
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("lookup email: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	sess, err := s.openSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &LoginResponse{User: user, Session: sess}, nil
}

// Logout deletes the session. The token is unusable afterwards.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.sessions.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *Service) openSession(ctx context.Context, userID string) (*domain.Session, error) {
	token, err := generateToken(32)
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}

	now := s.opts.now()
	sess := &domain.Session{
		ID:           token,
		UserID:       userID,
		LastActivity: now,
		CreatedAt:    now,
	}
	if err := s.sessions.SaveSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("%w: invalid email address", domain.ErrInvalidInput)
	}
	return nil
}

// generateToken creates a cryptographically secure random token
func generateToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
