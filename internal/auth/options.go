package auth

import (
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/felixgeelhaar/finplan/internal/events"
)

// Observer is notified of every authentication decision. mode is "required" or
// "optional"; result is one of the Result* constants.
type Observer func(mode, result string)

// Authentication results reported to an Observer
const (
	ResultOK              = "ok"
	ResultUnauthenticated = "unauthenticated"
	ResultSessionExpired  = "session_expired"
	ResultIdleTimeout     = "idle_timeout"
	ResultUserNotFound    = "user_not_found"
	ResultError           = "error"
)

type options struct {
	now        func() time.Time
	logger     *slog.Logger
	observer   Observer
	bcryptCost int
	publisher  events.Publisher
}

// Option configures a Service or an Authenticator
type Option func(*options)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLogger sets the logger used for infrastructure faults
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithObserver registers a callback for authentication outcomes
func WithObserver(fn Observer) Option {
	return func(o *options) { o.observer = fn }
}

// WithBcryptCost sets the password hashing cost
func WithBcryptCost(cost int) Option {
	return func(o *options) { o.bcryptCost = cost }
}

// WithPublisher sets where user.registered events go
func WithPublisher(p events.Publisher) Option {
	return func(o *options) { o.publisher = p }
}

func buildOptions(opts []Option) options {
	o := options{
		now:        time.Now,
		logger:     slog.Default(),
		observer:   func(string, string) {},
		bcryptCost: 10,
		publisher:  events.Discard,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.bcryptCost < bcrypt.MinCost || o.bcryptCost > bcrypt.MaxCost {
		o.bcryptCost = bcrypt.DefaultCost
	}
	if o.publisher == nil {
		o.publisher = events.Discard
	}
	return o
}
