package mpris

import (
	"context"
	"sort"
	"strings"

	"github.com/godbus/dbus/v5"

	idbus "github.com/b0bbywan/go-odio-players/backend/internal/dbus"
	"github.com/b0bbywan/go-odio-players/logger"
)

// watcher turns the bus directory into player discovery and removal events.
type watcher struct {
	conn         idbus.Conn
	match        []dbus.MatchOption
	unsubscribed bool

	Discovered emitter[string]
	Removed    emitter[string]
}

func newWatcher(conn idbus.Conn) *watcher {
	return &watcher{
		conn: conn,
		match: []dbus.MatchOption{
			dbus.WithMatchSender(idbus.DBUS_INTERFACE),
			dbus.WithMatchInterface(idbus.DBUS_INTERFACE),
			dbus.WithMatchMember("NameOwnerChanged"),
			dbus.WithMatchOption("arg0namespace", MPRIS_PREFIX),
		},
	}
}

// start subscribes to ownership changes, then returns the players already on
// the bus sorted case-insensitively.
func (w *watcher) start(ctx context.Context) ([]string, error) {
	if err := w.conn.AddMatchSignal(w.match...); err != nil {
		return nil, err
	}

	names, err := idbus.ListNames(ctx, w.conn)
	if err != nil {
		// the listener may already be delivering to the handlers; they are
		// cleared on the loop by stop
		w.unsubscribe()
		return nil, err
	}

	players := make([]string, 0, len(names))
	for _, name := range names {
		if isPlayerName(name) {
			players = append(players, name)
		}
	}
	sort.SliceStable(players, func(i, j int) bool {
		return strings.ToLower(players[i]) < strings.ToLower(players[j])
	})
	return players, nil
}

// handle dispatches one NameOwnerChanged signal. An owner handover is a
// removal followed by a discovery.
func (w *watcher) handle(sig *dbus.Signal) {
	name, oldOwner, newOwner, err := idbus.ParseNameOwnerChanged(sig)
	if err != nil {
		logger.Debug("[mpris] ignoring NameOwnerChanged: %v", err)
		return
	}
	if !isPlayerName(name) {
		return
	}

	switch {
	case oldOwner == "" && newOwner != "":
		logger.Info("[mpris] new player detected: %s", name)
		w.Discovered.emit(name)
	case oldOwner != "" && newOwner == "":
		logger.Info("[mpris] player removed: %s", name)
		w.Removed.emit(name)
	case oldOwner != "" && newOwner != "":
		logger.Info("[mpris] player %s changed owner %s -> %s", name, oldOwner, newOwner)
		w.Removed.emit(name)
		w.Discovered.emit(name)
	}
}

func (w *watcher) unsubscribe() {
	if w.unsubscribed {
		return
	}
	w.unsubscribed = true
	if err := w.conn.RemoveMatchSignal(w.match...); err != nil {
		logger.Debug("[mpris] failed to remove NameOwnerChanged match: %v", err)
	}
}

// stop unsubscribes and drops the handlers. Runs on the loop.
func (w *watcher) stop() {
	w.unsubscribe()
	w.Discovered.clear()
	w.Removed.clear()
}

func isPlayerName(name string) bool {
	return strings.HasPrefix(name, MPRIS_PREFIX+".")
}
