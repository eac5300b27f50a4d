package events

const (
	TypeServerInfo = "server.info"

	TypePlayerAdded   = "player.added"
	TypePlayerRemoved = "player.removed"
	TypePlayerUpdated = "player.updated"
	TypePlayerActive  = "player.active"

	TypeTrackListChanged = "tracklist.changed"
	TypeTrackListEntry   = "tracklist.entry"

	TypePlaylistsChanged = "playlists.changed"
	TypePlaylistsEntry   = "playlists.entry"
)

// BackendTypes groups event types by the backend producing them, for ?backend= filtering.
var BackendTypes = map[string][]string{
	"mpris": {
		TypePlayerAdded,
		TypePlayerRemoved,
		TypePlayerUpdated,
		TypePlayerActive,
	},
	"tracklist": {
		TypeTrackListChanged,
		TypeTrackListEntry,
	},
	"playlists": {
		TypePlaylistsChanged,
		TypePlaylistsEntry,
	},
}

type Event struct {
	Type string
	Data any
}

// FilterTypes returns a filter passing only the given types, or nil (pass-all) when empty.
func FilterTypes(types []string) func(Event) bool {
	if len(types) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(types))
	for _, t := range types {
		set[t] = struct{}{}
	}
	return func(e Event) bool {
		_, ok := set[e.Type]
		return ok
	}
}

// FilterBackend returns a filter passing the event types of the named backends.
// Unknown names are ignored; nil is returned when nothing is known.
func FilterBackend(names []string) func(Event) bool {
	var types []string
	for _, name := range names {
		types = append(types, BackendTypes[name]...)
	}
	return FilterTypes(types)
}

// NewFilter combines an include list and an exclude list. Empty include means all.
func NewFilter(include, exclude []string) func(Event) bool {
	inc := FilterTypes(include)
	exc := FilterTypes(exclude)
	if inc == nil && exc == nil {
		return nil
	}
	return func(e Event) bool {
		if exc != nil && exc(e) {
			return false
		}
		return inc == nil || inc(e)
	}
}
