package mpris

import (
	"context"
	"slices"

	"github.com/godbus/dbus/v5"

	idbus "github.com/b0bbywan/go-odio-players/backend/internal/dbus"
	"github.com/b0bbywan/go-odio-players/logger"
)

// PlaylistTracker mirrors the Playlists interface of one player.
type PlaylistTracker struct {
	busName string
	proxy   *proxy
	sched   scheduler
	ctx     context.Context

	list       *orderedList[PlaylistEntry]
	activeID   string
	title      string
	generation uint64
	closed     bool

	Changed      emitter[PlaylistsInfo]
	EntryChanged emitter[PlaylistEntryChange]
}

func newPlaylistTracker(ctx context.Context, sched scheduler, px *proxy, busName string) *PlaylistTracker {
	return &PlaylistTracker{
		busName: busName,
		proxy:   px,
		sched:   sched,
		ctx:     ctx,
		list:    newOrderedList(func(p PlaylistEntry) string { return p.ID }),
		title:   DEFAULT_PLAYLISTS_TITLE,
	}
}

func (t *PlaylistTracker) info() PlaylistsInfo {
	return PlaylistsInfo{
		BusName:   t.busName,
		Title:     t.title,
		Active:    t.activeID,
		Playlists: t.list.Items(),
	}
}

// Title is the active playlist's title, or the generic label.
func (t *PlaylistTracker) Title() string {
	return t.title
}

// ActiveID is the active playlist id, empty when none resolves.
func (t *PlaylistTracker) ActiveID() string {
	return t.activeID
}

// Refresh reloads the whole playlist set using the preferred ordering.
func (t *PlaylistTracker) Refresh() {
	if t.closed {
		return
	}
	t.generation++
	gen := t.generation

	var count int64
	if v, ok := t.proxy.value(PROP_PLAYLIST_COUNT); ok {
		count, _ = idbus.ExtractInt64(v)
	}
	var orderings []string
	if v, ok := t.proxy.value(PROP_ORDERINGS); ok {
		orderings, _ = idbus.ExtractStringSlice(v)
	}
	if count <= 0 || len(orderings) == 0 {
		t.apply(nil)
		return
	}

	ordering := orderings[0]
	if slices.Contains(orderings, ORDERING_ALPHABETICAL) {
		ordering = ORDERING_ALPHABETICAL
	}

	t.sched.async(t.ctx, func(ctx context.Context) func() {
		body, err := t.proxy.call(ctx, MPRIS_METHOD_GET_PLAYLISTS, uint32(0), uint32(count), ordering, false)
		return func() {
			if t.closed || gen != t.generation {
				return
			}
			if err != nil {
				if !idbus.IsCancelled(err) {
					logger.Debug("[mpris] failed to list playlists of %s: %v", t.busName, err)
				}
				return
			}
			entries, ok := parsePlaylistBatch(body)
			if !ok {
				logger.Debug("[mpris] malformed playlist batch from %s", t.busName)
			}
			t.apply(entries)
		}
	})
}

// apply replaces the set and re-resolves the active playlist.
func (t *PlaylistTracker) apply(entries []PlaylistEntry) {
	var changed bool
	if len(entries) == 0 {
		changed = t.list.clear()
	} else {
		changed = t.list.replace(entries)
	}
	if t.resolveActive() || changed {
		t.Changed.emit(t.info())
	}
}

// resolveActive derives the active id and display title from ActivePlaylist.
// It reports whether either changed.
func (t *PlaylistTracker) resolveActive() bool {
	activeID := ""
	if v, ok := t.proxy.value(PROP_ACTIVE_PLAYLIST); ok {
		if id, valid := parseActivePlaylist(v.Value()); valid && t.list.has(id) {
			activeID = id
		}
	}

	title := DEFAULT_PLAYLISTS_TITLE
	if entry, ok := t.list.get(activeID); ok && activeID != "" {
		title = entry.Title
	}

	if activeID == t.activeID && title == t.title {
		return false
	}
	t.activeID, t.title = activeID, title
	return true
}

// Renamed patches one playlist's title in place.
func (t *PlaylistTracker) Renamed(entry PlaylistEntry) {
	if t.closed || !t.list.has(entry.ID) {
		return
	}
	if !t.list.patch(entry.ID, entry) {
		return
	}
	t.EntryChanged.emit(PlaylistEntryChange{BusName: t.busName, Entry: entry})
	if t.resolveActive() {
		t.Changed.emit(t.info())
	}
}

// Activate starts playlist id. Unknown ids are rejected.
func (t *PlaylistTracker) Activate(id string) error {
	if !t.list.has(id) {
		return &ValidationError{Field: "playlist_id", Message: "unknown playlist " + id}
	}
	t.sched.async(t.ctx, func(ctx context.Context) func() {
		if _, err := t.proxy.call(ctx, MPRIS_METHOD_ACTIVATE_PLAYLIST, dbus.ObjectPath(id)); err != nil {
			return func() { logCallError(t.busName, MPRIS_METHOD_ACTIVATE_PLAYLIST, err) }
		}
		return nil
	})
	return nil
}

func (t *PlaylistTracker) handleProperties(changed map[string]dbus.Variant) {
	_, count := changed[PROP_PLAYLIST_COUNT]
	_, orderings := changed[PROP_ORDERINGS]
	if count || orderings {
		t.Refresh()
		return
	}
	if _, ok := changed[PROP_ACTIVE_PLAYLIST]; ok {
		if t.resolveActive() {
			t.Changed.emit(t.info())
		}
	}
}

func (t *PlaylistTracker) handleSignal(sig *dbus.Signal) {
	if sig.Name != MPRIS_SIGNAL_PLAYLIST_CHANGED || len(sig.Body) < 1 {
		return
	}
	if entry, ok := parsePlaylistEntry(sig.Body[0]); ok {
		t.Renamed(entry)
	}
}

func (t *PlaylistTracker) close() {
	t.closed = true
	t.Changed.clear()
	t.EntryChanged.clear()
}

// parsePlaylistEntry decodes one (oss) struct.
func parsePlaylistEntry(v interface{}) (PlaylistEntry, bool) {
	fields, ok := v.([]interface{})
	if !ok || len(fields) < 2 {
		return PlaylistEntry{}, false
	}
	id := objectPath(fields[0])
	title, ok := fields[1].(string)
	if !ok || !dbus.ObjectPath(id).IsValid() {
		return PlaylistEntry{}, false
	}
	return PlaylistEntry{ID: id, Title: title}, true
}

// parsePlaylistBatch decodes a GetPlaylists reply. One bad entry or a
// repeated id rejects the batch.
func parsePlaylistBatch(body []interface{}) ([]PlaylistEntry, bool) {
	if len(body) < 1 {
		return nil, false
	}
	var items []interface{}
	switch list := body[0].(type) {
	case [][]interface{}:
		items = make([]interface{}, len(list))
		for i, item := range list {
			items[i] = item
		}
	case []interface{}:
		items = list
	default:
		return nil, false
	}

	entries := make([]PlaylistEntry, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		entry, ok := parsePlaylistEntry(item)
		if !ok {
			return nil, false
		}
		if _, dup := seen[entry.ID]; dup {
			return nil, false
		}
		seen[entry.ID] = struct{}{}
		entries = append(entries, entry)
	}
	return entries, true
}

// parseActivePlaylist decodes the (b(oss)) ActivePlaylist value.
func parseActivePlaylist(v interface{}) (string, bool) {
	fields, ok := v.([]interface{})
	if !ok || len(fields) < 2 {
		return "", false
	}
	valid, ok := fields[0].(bool)
	if !ok || !valid {
		return "", false
	}
	entry, ok := parsePlaylistEntry(fields[1])
	if !ok {
		return "", false
	}
	return entry.ID, true
}
