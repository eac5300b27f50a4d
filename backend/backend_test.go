package backend

import (
	"context"
	"net"
	"os"
	"testing"

	"github.com/b0bbywan/go-odio-players/config"
)

func TestBackendDisabled(t *testing.T) {
	tests := []struct {
		name            string
		artworkEnabled  bool
		zeroconfEnabled bool
	}{
		{name: "all backends disabled"},
		{name: "only artwork enabled", artworkEnabled: true},
		{name: "zeroconf on loopback", zeroconfEnabled: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			backend, err := New(
				ctx,
				&config.MPRISConfig{Enabled: false},
				&config.ArtworkConfig{Enabled: tt.artworkEnabled, MaxSize: 1024},
				&config.ZeroConfig{Enabled: tt.zeroconfEnabled, Listen: []net.Interface{}},
			)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if backend == nil {
				t.Fatal("New() should return a non-nil Backend struct")
			}
			if backend.MPRIS != nil {
				t.Error("MPRIS should be nil when disabled")
			}
			if (backend.Artwork != nil) != tt.artworkEnabled {
				t.Errorf("Artwork = %v, enabled %v", backend.Artwork, tt.artworkEnabled)
			}
			if backend.Zeroconf != nil {
				t.Error("Zeroconf should be nil without interfaces")
			}

			if err := backend.Start(); err != nil {
				t.Errorf("Start() error = %v", err)
			}
			backend.Close()
		})
	}
}

func TestBackendCloseWithNilBackends(t *testing.T) {
	backend := &Backend{}
	backend.Close()
}

func TestEnsureSessionBus(t *testing.T) {
	t.Run("keeps existing address", func(t *testing.T) {
		t.Setenv(SESSION_BUS_ENV, "unix:path=/tmp/custom")
		ensureSessionBus()
		if got, _ := os.LookupEnv(SESSION_BUS_ENV); got != "unix:path=/tmp/custom" {
			t.Errorf("%s = %q", SESSION_BUS_ENV, got)
		}
	})

	t.Run("derives from runtime dir", func(t *testing.T) {
		t.Setenv(SESSION_BUS_ENV, "")
		if err := os.Unsetenv(SESSION_BUS_ENV); err != nil {
			t.Fatal(err)
		}
		t.Setenv("XDG_RUNTIME_DIR", "/run/user/1234")
		ensureSessionBus()
		if got, _ := os.LookupEnv(SESSION_BUS_ENV); got != "unix:path=/run/user/1234/bus" {
			t.Errorf("%s = %q", SESSION_BUS_ENV, got)
		}
	})
}
