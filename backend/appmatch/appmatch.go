// Package appmatch finds the process behind an MPRIS player, best effort.
package appmatch

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/b0bbywan/go-odio-players/backend/mpris"
	"github.com/b0bbywan/go-odio-players/logger"
)

const PROC_ROOT = "/proc"

// ErrActivateUnsupported is returned by Activate: without a window manager
// there is no window to raise, callers fall back to the protocol Raise.
var ErrActivateUnsupported = errors.New("appmatch: activate not supported")

// ProcessMatcher matches players to processes through procfs.
type ProcessMatcher struct {
	procRoot string
	kill     func(pid int, sig unix.Signal) error
}

func New() *ProcessMatcher {
	return &ProcessMatcher{procRoot: PROC_ROOT, kill: unix.Kill}
}

// FindApp returns a handle on the process owning the player when its command
// name agrees with the desktop entry or the identity.
func (m *ProcessMatcher) FindApp(desktopEntry, displayName string, pid uint32, busOwner string) (mpris.AppHandle, bool) {
	if pid == 0 {
		return nil, false
	}
	names, err := m.processNames(int(pid))
	if err != nil {
		logger.Debug("[appmatch] no process %d for %s: %v", pid, busOwner, err)
		return nil, false
	}

	hints := candidateNames(desktopEntry, displayName)
	for _, name := range names {
		for _, hint := range hints {
			if strings.Contains(name, hint) || strings.Contains(hint, name) {
				logger.Debug("[appmatch] %s matched process %d (%s)", busOwner, pid, name)
				return &processApp{pid: int(pid), name: name, kill: m.kill}, true
			}
		}
	}
	return nil, false
}

// processNames returns the lowercased comm and argv[0] basename of pid.
func (m *ProcessMatcher) processNames(pid int) ([]string, error) {
	dir := filepath.Join(m.procRoot, strconv.Itoa(pid))

	comm, err := os.ReadFile(filepath.Join(dir, "comm"))
	if err != nil {
		return nil, err
	}
	names := []string{strings.ToLower(strings.TrimSpace(string(comm)))}

	if cmdline, err := os.ReadFile(filepath.Join(dir, "cmdline")); err == nil {
		argv0, _, _ := bytes.Cut(cmdline, []byte{0})
		if base := filepath.Base(string(argv0)); base != "." && base != "/" {
			names = append(names, strings.ToLower(base))
		}
	}

	out := names[:0]
	for _, n := range names {
		if n != "" {
			out = append(out, n)
		}
	}
	return out, nil
}

// candidateNames derives lowercase names from "org.videolan.vlc" style desktop
// entries and display names.
func candidateNames(desktopEntry, displayName string) []string {
	var out []string
	add := func(s string) {
		s = strings.ToLower(strings.TrimSpace(s))
		if len(s) < 2 {
			return
		}
		for _, o := range out {
			if o == s {
				return
			}
		}
		out = append(out, s)
	}

	entry := strings.TrimSuffix(desktopEntry, ".desktop")
	add(entry)
	if i := strings.LastIndex(entry, "."); i >= 0 {
		add(entry[i+1:])
	}
	add(displayName)
	add(strings.ReplaceAll(displayName, " ", ""))
	if first, _, ok := strings.Cut(displayName, " "); ok {
		add(first)
	}
	return out
}

// processApp is a matched process. It has no window so it is never focused.
type processApp struct {
	pid  int
	name string
	kill func(pid int, sig unix.Signal) error
}

func (a *processApp) Focused() bool {
	return false
}

func (a *processApp) Activate() error {
	return ErrActivateUnsupported
}

// Quit asks the process to terminate.
func (a *processApp) Quit() error {
	logger.Info("[appmatch] sending SIGTERM to %s (%d)", a.name, a.pid)
	return a.kill(a.pid, unix.SIGTERM)
}
