package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/felixgeelhaar/finplan/internal/api/middleware"
	"github.com/felixgeelhaar/finplan/internal/auth"
	"github.com/felixgeelhaar/finplan/internal/domain"
	"github.com/felixgeelhaar/finplan/internal/storage/memory"
)

var t0 = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

type sessionFixture struct {
	store    *memory.Store
	now      time.Time
	sessions *middleware.Sessions
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	f := &sessionFixture{store: memory.New(), now: t0}
	a := auth.NewAuthenticator(f.store, f.store, auth.WithClock(func() time.Time { return f.now }))
	f.sessions = middleware.NewSessions(a, true, nil)

	ctx := context.Background()
	f.store.CreateUser(ctx, &domain.User{ID: "u1", Email: "kim@example.com", Name: "kim", CreatedAt: t0})
	f.store.SaveSession(ctx, &domain.Session{ID: "tok", UserID: "u1", LastActivity: t0, CreatedAt: t0})
	return f
}

func echoIdentity(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		w.Write([]byte("anonymous"))
		return
	}
	w.Write([]byte(id.UserID + "/" + middleware.SessionIDFrom(r.Context())))
}

func request(cookie string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/expenses", nil)
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: cookie})
	}
	return req
}

func TestSessions_Require(t *testing.T) {
	tests := []struct {
		name       string
		cookie     string
		advance    time.Duration
		setup      func(f *sessionFixture)
		wantStatus int
		wantBody   string
		wantCookie string
	}{
		{"no cookie", "", 0, nil, 401, `{"error":"Not authenticated"}`, ""},
		{"unknown token", "nope", 0, nil, 401, `{"error":"Session expired"}`, "Max-Age=0"},
		{"idle", "tok", time.Hour + time.Millisecond, nil, 401, `{"error":"Session idle timeout"}`, "Max-Age=0"},
		{"orphan", "tok", 0, func(f *sessionFixture) { f.store.DeleteUser(context.Background(), "u1") }, 401, `{"error":"User not found"}`, "Max-Age=0"},
		{"valid", "tok", 30 * time.Minute, nil, 200, "u1/tok", "Max-Age=3600"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSessionFixture(t)
			if tt.setup != nil {
				tt.setup(f)
			}
			f.now = t0.Add(tt.advance)

			rec := httptest.NewRecorder()
			f.sessions.Require(http.HandlerFunc(echoIdentity)).ServeHTTP(rec, request(tt.cookie))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d; want %d", rec.Code, tt.wantStatus)
			}
			if body := strings.TrimSpace(rec.Body.String()); body != tt.wantBody {
				t.Errorf("body = %s; want %s", body, tt.wantBody)
			}

			setCookie := rec.Header().Get("Set-Cookie")
			if tt.wantCookie == "" {
				if setCookie != "" {
					t.Errorf("Set-Cookie = %q; want none", setCookie)
				}
				return
			}
			for _, want := range []string{"sid=", tt.wantCookie, "HttpOnly", "SameSite=Lax", "Secure", "Path=/"} {
				if !strings.Contains(setCookie, want) {
					t.Errorf("Set-Cookie = %q; missing %q", setCookie, want)
				}
			}
		})
	}
}

type failingSessions struct{ *memory.Store }

func (failingSessions) GetSession(context.Context, string) (*domain.Session, error) {
	return nil, errors.New("connection reset")
}

func TestSessions_InfrastructureFault(t *testing.T) {
	store := memory.New()
	a := auth.NewAuthenticator(store, failingSessions{store})
	s := middleware.NewSessions(a, false, nil)

	rec := httptest.NewRecorder()
	s.Require(http.HandlerFunc(echoIdentity)).ServeHTTP(rec, request("tok"))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("required status = %d; want 500", rec.Code)
	}

	rec = httptest.NewRecorder()
	s.Optional(http.HandlerFunc(echoIdentity)).ServeHTTP(rec, request("tok"))
	if rec.Code != http.StatusOK || rec.Body.String() != "anonymous" {
		t.Errorf("optional = %d %q; want 200 anonymous", rec.Code, rec.Body.String())
	}
}

func TestSessions_Optional(t *testing.T) {
	f := newSessionFixture(t)
	handler := f.sessions.Optional(http.HandlerFunc(echoIdentity))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, request(""))
	if rec.Body.String() != "anonymous" || rec.Header().Get("Set-Cookie") != "" {
		t.Errorf("no cookie: body %q, Set-Cookie %q", rec.Body.String(), rec.Header().Get("Set-Cookie"))
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, request("stale"))
	if rec.Body.String() != "anonymous" || !strings.Contains(rec.Header().Get("Set-Cookie"), "Max-Age=0") {
		t.Errorf("stale cookie: body %q, Set-Cookie %q", rec.Body.String(), rec.Header().Get("Set-Cookie"))
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, request("tok"))
	if rec.Body.String() != "u1/tok" || !strings.Contains(rec.Header().Get("Set-Cookie"), "Max-Age=3600") {
		t.Errorf("valid cookie: body %q, Set-Cookie %q", rec.Body.String(), rec.Header().Get("Set-Cookie"))
	}
}

func TestSessions_ClearOverridesRefresh(t *testing.T) {
	f := newSessionFixture(t)
	rec := httptest.NewRecorder()
	rec.Header().Add("Set-Cookie", "other=1")

	f.sessions.Issue(rec, "tok")
	f.sessions.Clear(rec)

	cookies := rec.Header().Values("Set-Cookie")
	if len(cookies) != 2 {
		t.Fatalf("Set-Cookie = %q; want the unrelated cookie and one sid", cookies)
	}
	if cookies[0] != "other=1" || !strings.Contains(cookies[1], "Max-Age=0") {
		t.Errorf("Set-Cookie = %q", cookies)
	}
}
