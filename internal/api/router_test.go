package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/felixgeelhaar/finplan/internal/api"
	"github.com/felixgeelhaar/finplan/internal/config"
	"github.com/felixgeelhaar/finplan/internal/domain"
	"github.com/felixgeelhaar/finplan/internal/events"
	"github.com/felixgeelhaar/finplan/internal/llm"
	"github.com/felixgeelhaar/finplan/internal/storage"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type stubProvider struct {
	mu   sync.Mutex
	last *llm.Request
	err  error
}

func (p *stubProvider) fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Generate(_ context.Context, req *llm.Request) (*llm.Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = req
	if p.err != nil {
		return nil, p.err
	}
	return &llm.Response{Content: "- spend less"}, nil
}

type eventLog struct {
	mu    sync.Mutex
	types []string
}

func (l *eventLog) Publish(_ context.Context, ev domain.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.types = append(l.types, ev.Type)
	return nil
}

func (l *eventLog) Types() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.types...)
}

type testServer struct {
	*httptest.Server
	clock    *clock
	provider *stubProvider
	events   *eventLog
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &config.Config{
		Debug:          true,
		Timezone:       "Asia/Seoul",
		StoreBackend:   config.BackendMemory,
		SessionBackend: config.SessionsInStore,
		BcryptCost:     4,
		CORSOrigins:    []string{"http://localhost:5173"},
	}
	backend, err := storage.Open(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("storage.Open() error = %v", err)
	}

	ts := &testServer{
		clock:    &clock{now: time.Date(2025, 5, 10, 6, 0, 0, 0, time.UTC)},
		provider: &stubProvider{},
		events:   &eventLog{},
	}
	app, err := api.NewApp(context.Background(), api.AppConfig{
		Config:    cfg,
		Backend:   backend,
		Provider:  ts.provider,
		Publisher: ts.events,
		Clock:     ts.clock.Now,
	})
	if err != nil {
		t.Fatalf("NewApp() error = %v", err)
	}
	t.Cleanup(func() { app.Close() })

	ts.Server = httptest.NewServer(api.NewRouter(app))
	t.Cleanup(ts.Close)
	return ts
}

// client returns an HTTP client with its own cookie jar
func (ts *testServer) client(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar.New() error = %v", err)
	}
	return &http.Client{Jar: jar}
}

func (ts *testServer) do(t *testing.T, c *http.Client, method, path string, body any) (int, map[string]any, string) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, ts.URL+path, r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	var obj map[string]any
	json.Unmarshal(raw, &obj)
	return resp.StatusCode, obj, strings.TrimSpace(string(raw))
}

func (ts *testServer) register(t *testing.T, c *http.Client, email string) string {
	t.Helper()
	status, body, raw := ts.do(t, c, http.MethodPost, "/api/auth/register", map[string]string{
		"email": email, "password": "secret1",
	})
	if status != http.StatusOK {
		t.Fatalf("register status = %d; body %s", status, raw)
	}
	return body["user"].(map[string]any)["id"].(string)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	c := ts.client(t)

	if status, _, raw := ts.do(t, c, http.MethodGet, "/api/health", nil); status != 200 || raw != `{"ok":true}` {
		t.Errorf("health = %d %s", status, raw)
	}
	if status, _, raw := ts.do(t, c, http.MethodGet, "/api/ready", nil); status != 200 || raw != `{"ok":true}` {
		t.Errorf("ready = %d %s", status, raw)
	}
}

func TestAuthFlow(t *testing.T) {
	ts := newTestServer(t)
	c := ts.client(t)

	if _, _, raw := ts.do(t, c, http.MethodGet, "/api/auth/me", nil); raw != `{"user":null}` {
		t.Errorf("anonymous me = %s; want {\"user\":null}", raw)
	}

	id := ts.register(t, c, "kim@example.com")

	status, body, _ := ts.do(t, c, http.MethodGet, "/api/auth/me", nil)
	user, _ := body["user"].(map[string]any)
	if status != 200 || user["id"] != id || user["name"] != "kim" || user["email"] != "kim@example.com" {
		t.Errorf("me = %d %v", status, body)
	}

	if status, _, raw := ts.do(t, ts.client(t), http.MethodPost, "/api/auth/register", map[string]string{
		"email": "kim@example.com", "password": "secret1",
	}); status != http.StatusConflict || raw != `{"error":"Email already registered"}` {
		t.Errorf("duplicate register = %d %s", status, raw)
	}

	if status, _, raw := ts.do(t, c, http.MethodPost, "/api/auth/logout", nil); status != 200 || raw != `{"ok":true}` {
		t.Errorf("logout = %d %s", status, raw)
	}
	if _, _, raw := ts.do(t, c, http.MethodGet, "/api/auth/me", nil); raw != `{"user":null}` {
		t.Errorf("me after logout = %s", raw)
	}
	if status, _, raw := ts.do(t, c, http.MethodPost, "/api/auth/logout", nil); status != 401 || raw != `{"error":"Not authenticated"}` {
		t.Errorf("second logout = %d %s", status, raw)
	}

	if got := ts.events.Types(); len(got) != 1 || got[0] != domain.EventUserRegistered {
		t.Errorf("events = %v; want [user.registered]", got)
	}
}

func TestLogin(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, ts.client(t), "lee@example.com")

	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantBody   string
	}{
		{"wrong password", map[string]string{"email": "lee@example.com", "password": "wrong-pw"}, 401, `{"error":"Invalid credentials"}`},
		{"unknown email", map[string]string{"email": "nobody@example.com", "password": "secret1"}, 401, `{"error":"Invalid credentials"}`},
		{"short password", map[string]string{"email": "lee@example.com", "password": "123"}, 400, `{"error":"Invalid body"}`},
		{"bad email", map[string]string{"email": "lee", "password": "secret1"}, 400, `{"error":"Invalid body"}`},
		{"not json", "oops", 400, `{"error":"Invalid body"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _, raw := ts.do(t, ts.client(t), http.MethodPost, "/api/auth/login", tt.body)
			if status != tt.wantStatus || raw != tt.wantBody {
				t.Errorf("login = %d %s; want %d %s", status, raw, tt.wantStatus, tt.wantBody)
			}
		})
	}

	c := ts.client(t)
	status, body, _ := ts.do(t, c, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "lee@example.com", "password": "secret1",
	})
	if status != 200 || body["user"] == nil {
		t.Fatalf("login = %d %v", status, body)
	}
	if status, _, _ := ts.do(t, c, http.MethodGet, "/api/expenses", nil); status != 200 {
		t.Errorf("expenses after login = %d; want 200", status)
	}
}

func TestIdleTimeout(t *testing.T) {
	ts := newTestServer(t)
	c := ts.client(t)
	ts.register(t, c, "park@example.com")

	ts.clock.Advance(59 * time.Minute)
	if status, _, _ := ts.do(t, c, http.MethodGet, "/api/plans", nil); status != 200 {
		t.Fatalf("request within window = %d; want 200", status)
	}

	ts.clock.Advance(59 * time.Minute)
	if status, _, _ := ts.do(t, c, http.MethodGet, "/api/plans", nil); status != 200 {
		t.Fatalf("renewed request = %d; want 200", status)
	}

	ts.clock.Advance(61 * time.Minute)
	status, _, raw := ts.do(t, c, http.MethodGet, "/api/plans", nil)
	if status != 401 || raw != `{"error":"Session idle timeout"}` {
		t.Errorf("idle request = %d %s", status, raw)
	}

	_, _, raw = ts.do(t, c, http.MethodGet, "/api/plans", nil)
	if raw != `{"error":"Not authenticated"}` {
		t.Errorf("after idle timeout = %s; want cookie cleared", raw)
	}
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	ts := newTestServer(t)
	c := ts.client(t)

	routes := []struct{ method, path string }{
		{http.MethodGet, "/api/expenses"},
		{http.MethodPost, "/api/expenses"},
		{http.MethodGet, "/api/expenses/summary"},
		{http.MethodDelete, "/api/expenses/x"},
		{http.MethodGet, "/api/plans"},
		{http.MethodPut, "/api/plans/x"},
		{http.MethodPost, "/api/ai/chat"},
		{http.MethodPost, "/api/ai/budget-advice"},
	}
	for _, rt := range routes {
		status, _, raw := ts.do(t, c, rt.method, rt.path, nil)
		if status != 401 || raw != `{"error":"Not authenticated"}` {
			t.Errorf("%s %s = %d %s", rt.method, rt.path, status, raw)
		}
	}
}

func TestExpenses(t *testing.T) {
	ts := newTestServer(t)
	c := ts.client(t)
	ts.register(t, c, "choi@example.com")

	for _, e := range []map[string]any{
		{"date": "2025-05-08", "category": "food", "amount": 12000},
		{"date": "2025-05-09", "category": "transport", "amount": 3000, "memo": "bus"},
		{"date": "2025-05-09", "category": "food", "amount": 8000},
		{"date": "2025-04-01", "category": "rent", "amount": 500000},
	} {
		if status, _, raw := ts.do(t, c, http.MethodPost, "/api/expenses", e); status != 200 {
			t.Fatalf("create %v = %d %s", e, status, raw)
		}
	}

	invalid := []map[string]any{
		{"date": "2025-05-08", "category": "", "amount": 1},
		{"date": "2025-05-08", "category": "food", "amount": -1},
		{"date": "2025-05-08", "category": "food", "amount": 1.5},
		{"date": "yesterday", "category": "food", "amount": 1},
		{"category": "food", "amount": 1},
	}
	for _, e := range invalid {
		if status, _, raw := ts.do(t, c, http.MethodPost, "/api/expenses", e); status != 400 || raw != `{"error":"Invalid body"}` {
			t.Errorf("create %v = %d %s; want 400", e, status, raw)
		}
	}

	// default window is the last seven days in Asia/Seoul
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/expenses", nil)
	resp, err := c.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	var list []domain.Expense
	json.NewDecoder(resp.Body).Decode(&list)
	resp.Body.Close()
	if len(list) != 3 {
		t.Fatalf("default list len = %d; want 3", len(list))
	}
	for i := 1; i < len(list); i++ {
		if list[i].Date.After(list[i-1].Date) {
			t.Errorf("list[%d] is newer than list[%d]; want date descending", i, i-1)
		}
	}

	status, body, _ := ts.do(t, c, http.MethodGet, "/api/expenses/summary?from=2025-05-01&to=2025-05-10", nil)
	if status != 200 {
		t.Fatalf("summary status = %d", status)
	}
	byCategory := body["byCategory"].([]any)
	first := byCategory[0].(map[string]any)
	if first["category"] != "food" || first["total"] != float64(20000) {
		t.Errorf("byCategory[0] = %v; want food 20000", first)
	}
	if n := len(body["byDay"].([]any)); n != 2 {
		t.Errorf("byDay len = %d; want 2", n)
	}

	if status, _, raw := ts.do(t, c, http.MethodGet, "/api/expenses?from=2025-13-01&to=2025-05-10", nil); status != 400 || raw != `{"error":"Invalid range"}` {
		t.Errorf("invalid range = %d %s", status, raw)
	}

	if status, _, raw := ts.do(t, c, http.MethodDelete, "/api/expenses/"+list[0].ID, nil); status != 200 || raw != `{"ok":true}` {
		t.Errorf("delete = %d %s", status, raw)
	}
	if status, _, raw := ts.do(t, c, http.MethodDelete, "/api/expenses/"+list[0].ID, nil); status != 200 || raw != `{"ok":true}` {
		t.Errorf("repeat delete = %d %s", status, raw)
	}
}

func TestExpenses_OwnerIsolation(t *testing.T) {
	ts := newTestServer(t)
	alice, bob := ts.client(t), ts.client(t)
	ts.register(t, alice, "alice@example.com")
	ts.register(t, bob, "bob@example.com")

	_, created, _ := ts.do(t, alice, http.MethodPost, "/api/expenses", map[string]any{
		"date": "2025-05-10", "category": "food", "amount": 1000,
	})
	id := created["_id"].(string)

	ts.do(t, bob, http.MethodDelete, "/api/expenses/"+id, nil)

	_, _, raw := ts.do(t, alice, http.MethodGet, "/api/expenses", nil)
	if !strings.Contains(raw, id) {
		t.Errorf("alice's expense was deleted by bob")
	}
	if _, _, raw := ts.do(t, bob, http.MethodGet, "/api/expenses", nil); raw != "[]" {
		t.Errorf("bob sees %s; want []", raw)
	}
}

func TestPlans(t *testing.T) {
	ts := newTestServer(t)
	owner, other := ts.client(t), ts.client(t)
	ts.register(t, owner, "owner@example.com")
	ts.register(t, other, "other@example.com")

	status, created, raw := ts.do(t, owner, http.MethodPost, "/api/plans", map[string]any{
		"title": "Emergency fund",
		"targets": []map[string]any{
			{"name": "3 months", "amount": 9000000, "dueDate": "2025-12-31"},
		},
	})
	if status != 200 {
		t.Fatalf("create plan = %d %s", status, raw)
	}
	id := created["_id"].(string)

	if status, _, _ := ts.do(t, owner, http.MethodPost, "/api/plans", map[string]any{"title": ""}); status != 400 {
		t.Errorf("empty title status = %d; want 400", status)
	}

	status, updated, _ := ts.do(t, owner, http.MethodPut, "/api/plans/"+id, map[string]any{"title": "Rainy day"})
	if status != 200 || updated["title"] != "Rainy day" || len(updated["targets"].([]any)) != 1 {
		t.Errorf("update = %d %v", status, updated)
	}

	if status, _, raw := ts.do(t, other, http.MethodPut, "/api/plans/"+id, map[string]any{"title": "mine"}); status != 404 || raw != `{"error":"Plan not found"}` {
		t.Errorf("foreign update = %d %s", status, raw)
	}
	if _, _, raw := ts.do(t, other, http.MethodGet, "/api/plans", nil); raw != "[]" {
		t.Errorf("other's plans = %s; want []", raw)
	}

	if status, _, raw := ts.do(t, owner, http.MethodDelete, "/api/plans/"+id, nil); status != 200 || raw != `{"ok":true}` {
		t.Errorf("delete = %d %s", status, raw)
	}
	if _, _, raw := ts.do(t, owner, http.MethodGet, "/api/plans", nil); raw != "[]" {
		t.Errorf("plans after delete = %s", raw)
	}
}

func TestAI(t *testing.T) {
	ts := newTestServer(t)
	c := ts.client(t)
	ts.register(t, c, "jung@example.com")

	status, _, raw := ts.do(t, c, http.MethodPost, "/api/ai/budget-advice", map[string]any{
		"monthlyIncome": 3000000, "fixedCosts": 1000000, "savingsGoal": 500000,
	})
	if status != 200 || raw != `{"advice":"- spend less"}` {
		t.Errorf("budget advice = %d %s", status, raw)
	}

	if status, _, _ := ts.do(t, c, http.MethodPost, "/api/ai/budget-advice", map[string]any{"monthlyIncome": 1}); status != 400 {
		t.Errorf("partial advice body = %d; want 400", status)
	}

	status, _, raw = ts.do(t, c, http.MethodPost, "/api/ai/chat", map[string]any{
		"messages": []map[string]string{{"role": "user", "content": "hi"}},
		"context":  map[string]any{"monthlyIncome": 2500000},
	})
	if status != 200 || raw != `{"reply":"- spend less"}` {
		t.Errorf("chat = %d %s", status, raw)
	}
	if !strings.Contains(ts.provider.last.System, "₩2,500,000") {
		t.Errorf("system prompt = %q", ts.provider.last.System)
	}

	if status, _, _ := ts.do(t, c, http.MethodPost, "/api/ai/chat", map[string]any{
		"messages": []map[string]string{{"role": "robot", "content": "hi"}},
	}); status != 400 {
		t.Errorf("bad role = %d; want 400", status)
	}

	ts.provider.fail(errors.New("upstream 503"))
	if status, _, raw := ts.do(t, c, http.MethodPost, "/api/ai/chat", map[string]any{
		"messages": []map[string]string{{"role": "user", "content": "hi"}},
	}); status != 500 || raw != `{"error":"AI chat failed"}` {
		t.Errorf("chat failure = %d %s", status, raw)
	}
	if status, _, raw := ts.do(t, c, http.MethodPost, "/api/ai/budget-advice", map[string]any{
		"monthlyIncome": 1, "fixedCosts": 1, "savingsGoal": 1,
	}); status != 500 || raw != `{"error":"OpenAI request failed"}` {
		t.Errorf("advice failure = %d %s", status, raw)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	c := ts.client(t)
	ts.do(t, c, http.MethodGet, "/api/plans", nil)

	resp, err := c.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)

	for _, want := range []string{
		`finplan_auth_outcomes_total{mode="required",result="unauthenticated"} 1`,
		`finplan_http_requests_total{method="GET",route="GET /api/plans",status="401"} 1`,
	} {
		if !strings.Contains(string(raw), want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

var _ events.Publisher = (*eventLog)(nil)
