package mpris

import (
	"context"
	"slices"

	"github.com/godbus/dbus/v5"

	idbus "github.com/b0bbywan/go-odio-players/backend/internal/dbus"
	"github.com/b0bbywan/go-odio-players/logger"
)

// TrackListTracker mirrors the TrackList interface of one player.
//
// ids is the latest requested id sequence. Incremental signals edit it and
// re-run Replace; the visible list only changes once the metadata fetch for a
// sequence comes back consistent.
type TrackListTracker struct {
	busName    string
	playerName func() string
	proxy      *proxy
	sched      scheduler
	ctx        context.Context

	ids        []string
	list       *orderedList[TrackMetadata]
	generation uint64
	closed     bool

	Changed      emitter[TrackListInfo]
	EntryChanged emitter[TrackEntryChange]
}

func newTrackListTracker(ctx context.Context, sched scheduler, px *proxy, busName string, playerName func() string) *TrackListTracker {
	return &TrackListTracker{
		busName:    busName,
		playerName: playerName,
		proxy:      px,
		sched:      sched,
		ctx:        ctx,
		list:       newOrderedList(func(t TrackMetadata) string { return t.ID }),
	}
}

// start loads the initial Tracks property.
func (t *TrackListTracker) start() {
	if v, ok := t.proxy.value(PROP_TRACKS); ok {
		t.Replace(objectPaths(v.Value()))
	}
}

// Populated reports whether the visible list holds at least one track.
func (t *TrackListTracker) Populated() bool {
	return t.list.Len() > 0
}

// Tracks returns the visible tracks in playback order.
func (t *TrackListTracker) Tracks() []TrackMetadata {
	return t.list.Items()
}

func (t *TrackListTracker) info() TrackListInfo {
	return TrackListInfo{BusName: t.busName, Tracks: t.list.Items()}
}

// Replace is the authoritative update: the visible list becomes the metadata
// fetched for ids, or empty if the player answers inconsistently.
func (t *TrackListTracker) Replace(ids []string) {
	if t.closed {
		return
	}
	cleaned := dedupeIDs(ids, validTrackID)
	t.ids = cleaned
	t.generation++
	gen := t.generation

	if len(cleaned) == 0 {
		t.clear()
		return
	}

	paths := make([]dbus.ObjectPath, len(cleaned))
	for i, id := range cleaned {
		paths[i] = dbus.ObjectPath(id)
	}
	t.sched.async(t.ctx, func(ctx context.Context) func() {
		body, err := t.proxy.call(ctx, MPRIS_METHOD_GET_TRACKS_METADATA, paths)
		return func() { t.adopt(gen, len(cleaned), body, err) }
	})
}

func (t *TrackListTracker) adopt(gen uint64, requested int, body []interface{}, err error) {
	if t.closed || gen != t.generation {
		return
	}
	if err != nil {
		if !idbus.IsCancelled(err) {
			logger.Debug("[mpris] failed to fetch tracks of %s: %v", t.busName, err)
		}
		return
	}

	var raw []map[string]dbus.Variant
	if err := dbus.Store(body, &raw); err != nil {
		logger.Warn("[mpris] malformed tracks metadata from %s: %v", t.busName, err)
		t.reject()
		return
	}

	name := t.playerName()
	tracks := make([]TrackMetadata, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, m := range raw {
		md := Normalize(m, name)
		if !validTrackID(md.ID) {
			continue
		}
		if _, dup := seen[md.ID]; dup {
			continue
		}
		seen[md.ID] = struct{}{}
		tracks = append(tracks, md)
	}

	if requested != len(raw) || len(raw) != len(tracks) {
		logger.Debug("[mpris] discarding tracks of %s: asked %d, got %d, kept %d", t.busName, requested, len(raw), len(tracks))
		t.reject()
		return
	}

	t.ids = make([]string, len(tracks))
	for i, md := range tracks {
		t.ids[i] = md.ID
	}
	if t.list.replace(tracks) {
		t.Changed.emit(t.info())
	}
}

// reject drops a sequence the player could not answer for. Later signals
// must not anchor against ids that never became visible.
func (t *TrackListTracker) reject() {
	t.ids = nil
	t.clear()
}

func (t *TrackListTracker) clear() {
	if t.list.clear() {
		t.Changed.emit(t.info())
	}
}

// Added inserts a track after afterID, or first when afterID is the no-track
// sentinel. Unanchored or unknown anchors are ignored.
func (t *TrackListTracker) Added(raw map[string]dbus.Variant, afterID string) {
	if t.closed || afterID == "" {
		return
	}
	md := Normalize(raw, t.playerName())
	if !validTrackID(md.ID) || slices.Contains(t.ids, md.ID) {
		return
	}
	ids, ok := insertAfter(t.ids, afterID, md.ID)
	if !ok {
		return
	}
	t.Replace(ids)
}

// Removed drops id and refetches the shortened sequence.
func (t *TrackListTracker) Removed(id string) {
	if t.closed || !slices.Contains(t.ids, id) {
		return
	}
	t.Replace(without(t.ids, id))
}

// MetadataChanged patches one visible entry in place without refetching.
func (t *TrackListTracker) MetadataChanged(oldID string, raw map[string]dbus.Variant) {
	if t.closed || !t.list.has(oldID) {
		return
	}
	md := Normalize(raw, t.playerName())
	if !validTrackID(md.ID) {
		return
	}
	if !t.list.patch(oldID, md) {
		return
	}
	if i := slices.Index(t.ids, oldID); i >= 0 {
		t.ids[i] = md.ID
	}
	t.EntryChanged.emit(TrackEntryChange{BusName: t.busName, OldID: oldID, Track: md})
}

// GoTo asks the player to jump to id. Ids not in the visible list are ignored.
func (t *TrackListTracker) GoTo(id string) {
	if t.closed || !t.list.has(id) {
		return
	}
	t.sched.async(t.ctx, func(ctx context.Context) func() {
		if _, err := t.proxy.call(ctx, MPRIS_METHOD_GOTO, dbus.ObjectPath(id)); err != nil {
			return func() { logCallError(t.busName, MPRIS_METHOD_GOTO, err) }
		}
		return nil
	})
}

func (t *TrackListTracker) handleProperties(changed map[string]dbus.Variant) {
	if v, ok := changed[PROP_TRACKS]; ok {
		t.Replace(objectPaths(v.Value()))
	}
}

func (t *TrackListTracker) handleSignal(sig *dbus.Signal) {
	switch sig.Name {
	case MPRIS_SIGNAL_TRACKLIST_REPLACED:
		if len(sig.Body) < 1 {
			return
		}
		t.Replace(objectPaths(sig.Body[0]))
	case MPRIS_SIGNAL_TRACK_ADDED:
		if len(sig.Body) < 2 {
			return
		}
		raw, _ := sig.Body[0].(map[string]dbus.Variant)
		t.Added(raw, objectPath(sig.Body[1]))
	case MPRIS_SIGNAL_TRACK_REMOVED:
		if len(sig.Body) < 1 {
			return
		}
		t.Removed(objectPath(sig.Body[0]))
	case MPRIS_SIGNAL_TRACK_META_CHANGED:
		if len(sig.Body) < 2 {
			return
		}
		raw, _ := sig.Body[1].(map[string]dbus.Variant)
		t.MetadataChanged(objectPath(sig.Body[0]), raw)
	}
}

func (t *TrackListTracker) close() {
	t.closed = true
	t.Changed.clear()
	t.EntryChanged.clear()
}

func objectPath(v interface{}) string {
	switch p := v.(type) {
	case dbus.ObjectPath:
		return string(p)
	case string:
		return p
	default:
		return ""
	}
}

func objectPaths(v interface{}) []string {
	switch list := v.(type) {
	case []dbus.ObjectPath:
		out := make([]string, len(list))
		for i, p := range list {
			out[i] = string(p)
		}
		return out
	case []string:
		return list
	case []interface{}:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if p := objectPath(item); p != "" {
				out = append(out, p)
			}
		}
		return out
	default:
		return nil
	}
}
