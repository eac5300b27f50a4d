package backend

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/b0bbywan/go-odio-players/logger"
)

const SESSION_BUS_ENV = "DBUS_SESSION_BUS_ADDRESS"

// GetXDGRuntimeDir returns the XDG_RUNTIME_DIR for the current user.
// It first checks the XDG_RUNTIME_DIR environment variable, and if not set,
// falls back to the standard /run/user/{uid} path.
func GetXDGRuntimeDir() string {
	if xdgRuntimeDir, ok := os.LookupEnv("XDG_RUNTIME_DIR"); ok {
		return xdgRuntimeDir
	}
	return fmt.Sprintf("/run/user/%d", os.Getuid())
}

// sessionBusAddress returns the user bus socket of the runtime dir.
func sessionBusAddress() string {
	return "unix:path=" + filepath.Join(GetXDGRuntimeDir(), "bus")
}

// ensureSessionBus points the bus client at the user bus when started outside
// a graphical session (a systemd user unit without imported environment).
func ensureSessionBus() {
	if _, ok := os.LookupEnv(SESSION_BUS_ENV); ok {
		return
	}
	addr := sessionBusAddress()
	if err := os.Setenv(SESSION_BUS_ENV, addr); err != nil {
		logger.Warn("[backend] failed to set %s: %v", SESSION_BUS_ENV, err)
		return
	}
	logger.Debug("[backend] %s unset, using %s", SESSION_BUS_ENV, addr)
}
