package daemon

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/felixgeelhaar/finplan/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:           0,
		Debug:          true,
		Timezone:       "Asia/Seoul",
		StoreBackend:   config.BackendMemory,
		SessionBackend: config.SessionsInStore,
		BcryptCost:     4,
		LLMProvider:    "openai",
		LLMModel:       "gpt-4o-mini",
	}
}

func TestNewServer(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := NewServer(context.Background(), ServerConfig{Config: testConfig(), Logger: logger})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	defer s.Shutdown(context.Background())

	if s.server.Addr != ":0" {
		t.Errorf("Addr = %q; want :0", s.server.Addr)
	}
	if s.Handler() == nil {
		t.Error("Handler() = nil")
	}
}

func TestNewServer_InvalidProvider(t *testing.T) {
	cfg := testConfig()
	cfg.LLMProvider = "claude"

	if _, err := NewServer(context.Background(), ServerConfig{Config: cfg}); err == nil {
		t.Error("NewServer() error = nil; want unknown provider error")
	}
}

func TestServer_ServeAndShutdown(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := NewServer(context.Background(), ServerConfig{Config: testConfig(), Logger: logger})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	served := make(chan error, 1)
	go func() { served <- s.Serve(ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/api/health")
	if err != nil {
		t.Fatalf("GET /api/health: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != "{\"ok\":true}\n" {
		t.Errorf("health = %d %q", resp.StatusCode, body)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}

	select {
	case err := <-served:
		if !errors.Is(err, http.ErrServerClosed) {
			t.Errorf("Serve() error = %v; want ErrServerClosed", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve() did not return after Shutdown")
	}
}
