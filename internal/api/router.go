package api

import (
	"net/http"

	"github.com/felixgeelhaar/finplan/internal/api/handlers"
	"github.com/felixgeelhaar/finplan/internal/api/middleware"
)

// Router wraps the HTTP multiplexer with middleware and handlers
type Router struct {
	mux      *http.ServeMux
	app      *App
	sessions *middleware.Sessions
	auth     *handlers.AuthHandler
	expenses *handlers.ExpenseHandler
	plans    *handlers.PlanHandler
	ai       *handlers.AIHandler
	health   *handlers.HealthHandler
}

// NewRouter creates a new API router with all routes configured
func NewRouter(app *App) http.Handler {
	sessions := middleware.NewSessions(app.Authenticator, app.Config.CookieSecure, app.Logger)
	r := &Router{
		mux:      http.NewServeMux(),
		app:      app,
		sessions: sessions,
		auth:     handlers.NewAuthHandler(app.Auth, sessions),
		expenses: handlers.NewExpenseHandler(app.Expenses),
		plans:    handlers.NewPlanHandler(app.Plans),
		ai:       handlers.NewAIHandler(app.Advisor),
		health:   handlers.NewHealthHandler(app.Store),
	}

	r.registerRoutes()
	return r.buildMiddlewareChain(r.mux)
}

func (r *Router) registerRoutes() {
	r.mux.HandleFunc("GET /api/health", r.health.Health)
	r.mux.HandleFunc("GET /api/ready", r.health.Ready)
	r.mux.Handle("GET /metrics", r.app.Metrics.Handler())

	// Auth
	r.mux.HandleFunc("POST /api/auth/register", r.auth.Register)
	r.mux.HandleFunc("POST /api/auth/login", r.auth.Login)
	r.mux.Handle("POST /api/auth/logout", r.requireAuth(r.auth.Logout))
	r.mux.Handle("GET /api/auth/me", r.sessions.Optional(http.HandlerFunc(r.auth.Me)))

	// Expenses
	r.mux.Handle("GET /api/expenses", r.requireAuth(r.expenses.List))
	r.mux.Handle("POST /api/expenses", r.requireAuth(r.expenses.Create))
	r.mux.Handle("GET /api/expenses/summary", r.requireAuth(r.expenses.Summary))
	r.mux.Handle("DELETE /api/expenses/{id}", r.requireAuth(r.expenses.Delete))

	// Plans
	r.mux.Handle("GET /api/plans", r.requireAuth(r.plans.List))
	r.mux.Handle("POST /api/plans", r.requireAuth(r.plans.Create))
	r.mux.Handle("PUT /api/plans/{id}", r.requireAuth(r.plans.Update))
	r.mux.Handle("DELETE /api/plans/{id}", r.requireAuth(r.plans.Delete))

	// AI
	r.mux.Handle("POST /api/ai/budget-advice", r.requireAuth(r.ai.BudgetAdvice))
	r.mux.Handle("POST /api/ai/chat", r.requireAuth(r.ai.Chat))
}

func (r *Router) buildMiddlewareChain(handler http.Handler) http.Handler {
	cfg := r.app.Config

	// Apply middleware in reverse order (last applied = first executed)
	handler = middleware.Recovery(handler)
	handler = middleware.Logger(handler)

	// Skip rate limiting in debug mode for easier development
	if !cfg.Debug {
		// Validated at load time; an invalid entry only trusts fewer peers.
		proxies, _ := cfg.TrustedProxyPrefixes()
		handler = middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
			TrustedProxies:    proxies,
		})(handler)
	}

	handler = r.app.Metrics.Instrument(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.CORS(cfg.CORSOrigins)(handler)

	return handler
}

func (r *Router) requireAuth(next http.HandlerFunc) http.Handler {
	return r.sessions.Require(next)
}
