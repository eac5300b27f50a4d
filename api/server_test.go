package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/b0bbywan/go-odio-players/backend"
	"github.com/b0bbywan/go-odio-players/config"
)

func testApiConfig(sse bool) *config.ApiConfig {
	return &config.ApiConfig{
		Enabled: true,
		Port:    8019,
		Listens: []string{"127.0.0.1:8019"},
		SSE:     sse,
	}
}

// TestServerDisabled verifies that NewServer returns nil when API is disabled
func TestServerDisabled(t *testing.T) {
	cfg := testApiConfig(false)
	cfg.Enabled = false

	if server := NewServer(cfg, &backend.Backend{}); server != nil {
		t.Error("NewServer should return nil when API is disabled")
	}
	if server := NewServer(nil, &backend.Backend{}); server != nil {
		t.Error("NewServer should return nil without config")
	}
}

// TestServerEnabled verifies that NewServer returns a valid server when enabled
func TestServerEnabled(t *testing.T) {
	server := NewServer(testApiConfig(false), &backend.Backend{})
	if server == nil {
		t.Fatal("NewServer should return a non-nil server when API is enabled")
	}
	if server.mux == nil {
		t.Error("Server mux should be initialized")
	}
	if server.broadcaster != nil {
		t.Error("broadcaster should only be created with SSE enabled")
	}
}

// TestRoutesWithDisabledBackends verifies that player routes are absent without MPRIS
func TestRoutesWithDisabledBackends(t *testing.T) {
	server := NewServer(testApiConfig(false), &backend.Backend{})
	if server == nil {
		t.Fatal("NewServer should return a non-nil server")
	}

	tests := []struct {
		name           string
		method         string
		path           string
		expectedStatus int
	}{
		{"server route exists", http.MethodGet, "/server", http.StatusOK},
		{"root is not found", http.MethodGet, "/", http.StatusNotFound},
		{"players route disabled", http.MethodGet, "/players", http.StatusNotFound},
		{"active route disabled", http.MethodGet, "/players/active", http.StatusNotFound},
		{"player play route disabled", http.MethodPost, "/players/org.mpris.MediaPlayer2.vlc/play", http.StatusNotFound},
		{"art route disabled", http.MethodGet, "/players/org.mpris.MediaPlayer2.vlc/art", http.StatusNotFound},
		{"events disabled without sse", http.MethodGet, "/events", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			w := httptest.NewRecorder()
			server.mux.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("got status %d, want %d", w.Code, tt.expectedStatus)
			}
		})
	}
}

// TestNilBackendHandling verifies server handles nil backend gracefully
func TestNilBackendHandling(t *testing.T) {
	server := NewServer(testApiConfig(true), nil)
	if server == nil {
		t.Fatal("NewServer should return a non-nil server even with nil backend")
	}

	req := httptest.NewRequest(http.MethodGet, "/server", nil)
	w := httptest.NewRecorder()
	server.mux.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("GET /server without backend = %d, want 404", w.Code)
	}
}

func TestServerRouteMethodRestrictions(t *testing.T) {
	server := NewServer(testApiConfig(false), &backend.Backend{})

	tests := []struct {
		name           string
		method         string
		expectedStatus int
	}{
		{"GET /server allowed", http.MethodGet, http.StatusOK},
		// the root catch-all answers every other method
		{"POST /server not found", http.MethodPost, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/server", nil)
			w := httptest.NewRecorder()
			server.mux.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("got status %d, want %d", w.Code, tt.expectedStatus)
			}
		})
	}
}

func TestSSERouteRegistered(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b, err := backend.New(ctx, nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	server := NewServer(testApiConfig(true), b)
	if server.broadcaster == nil {
		t.Fatal("broadcaster should be created with SSE enabled")
	}

	// invalid keepalive answers before streaming starts
	req := httptest.NewRequest(http.MethodGet, "/events?keepalive=1", nil)
	w := httptest.NewRecorder()
	server.mux.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("GET /events?keepalive=1 = %d, want 400", w.Code)
	}
}
