package infra

import (
	"net/http"
	"testing"
	"time"
)

func TestHTTPServerUsesConfiguredReadHeaderTimeout(t *testing.T) {
	cfg := &Config{Port: "8080", HTTPReadHeaderTimeout: 2 * time.Second}
	srv := NewHTTPServer(cfg, http.NewServeMux())
	if srv.server.ReadHeaderTimeout != 2*time.Second {
		t.Fatalf("read header timeout = %v", srv.server.ReadHeaderTimeout)
	}
}

func TestHTTPServerReadHeaderTimeoutFallback(t *testing.T) {
	cfg := &Config{Port: "8080"}
	srv := NewHTTPServer(cfg, http.NewServeMux())
	if srv.server.ReadHeaderTimeout != 5*time.Second {
		t.Fatalf("read header timeout = %v", srv.server.ReadHeaderTimeout)
	}
}
