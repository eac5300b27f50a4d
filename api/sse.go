package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/b0bbywan/go-odio-players/backend"
	"github.com/b0bbywan/go-odio-players/backend/mpris"
	"github.com/b0bbywan/go-odio-players/events"
	"github.com/b0bbywan/go-odio-players/logger"
)

const (
	defaultKeepAlive = 30 * time.Second
	minKeepAlive     = 10 * time.Second
	maxKeepAlive     = 120 * time.Second
)

// streamOptions are the per-client settings read from the /events query.
type streamOptions struct {
	filter    func(events.Event) bool
	keepAlive time.Duration
	player    string
}

// accepts reports whether e goes to this client.
func (o streamOptions) accepts(e events.Event) bool {
	if o.filter != nil && !o.filter(e) {
		return false
	}
	if o.player == "" {
		return true
	}
	busName, scoped := playerOf(e)
	return !scoped || busName == o.player
}

// playerOf returns the player an event is about. player.active and
// server.info concern every client and are not scoped.
func playerOf(e events.Event) (string, bool) {
	switch d := e.Data.(type) {
	case mpris.PlayerInfo:
		return d.BusName, true
	case mpris.PlayerRemoved:
		return d.BusName, true
	case mpris.TrackListInfo:
		return d.BusName, true
	case mpris.TrackEntryChange:
		return d.BusName, true
	case mpris.PlaylistsInfo:
		return d.BusName, true
	case mpris.PlaylistEntryChange:
		return d.BusName, true
	default:
		return "", false
	}
}

// eventStream writes events in the text/event-stream format.
type eventStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newEventStream(w http.ResponseWriter) (*eventStream, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	return &eventStream{w: w, flusher: flusher}, true
}

func (s *eventStream) send(e events.Event) error {
	data, err := json.Marshal(e.Data)
	if err != nil {
		logger.Warn("[sse] failed to marshal %s event: %v", e.Type, err)
		return err
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", e.Type, data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func (s *eventStream) info(message string) error {
	return s.send(events.Event{Type: events.TypeServerInfo, Data: message})
}

// ping writes a comment line, ignored by EventSource clients.
func (s *eventStream) ping() error {
	if _, err := fmt.Fprint(s.w, ": keepalive\n\n"); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// sseHandler streams backend events. A new client first gets the current
// active player, so it does not have to wait for the next change. players
// may be nil when the players backend is disabled.
func sseHandler(b *backend.Broadcaster, players PlayerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts, err := parseStreamOptions(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		stream, ok := newEventStream(w)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		// subscribe before the snapshot so no change slips in between
		ch := b.SubscribeFunc(opts.accepts)
		defer b.Unsubscribe(ch)

		if err := stream.info("connected"); err != nil {
			return
		}
		if players != nil {
			summary, _ := players.ActivePlayer()
			current := events.Event{Type: events.TypePlayerActive, Data: summary}
			if opts.accepts(current) {
				if err := stream.send(current); err != nil {
					return
				}
			}
		}

		keepAlive := time.NewTimer(opts.keepAlive)
		defer keepAlive.Stop()

		for {
			select {
			case <-r.Context().Done():
				if err := stream.info("bye"); err != nil {
					logger.Debug("[sse] client gone before bye: %v", err)
				}
				return
			case <-keepAlive.C:
				if err := stream.ping(); err != nil {
					logger.Debug("[sse] keepalive failed, closing: %v", err)
					return
				}
				keepAlive.Reset(opts.keepAlive)
			case e, ok := <-ch:
				if !ok {
					return
				}
				if err := stream.send(e); err != nil {
					return
				}
				keepAlive.Reset(opts.keepAlive)
			}
		}
	}
}

// parseStreamOptions reads the /events query:
//   - ?types=player.updated,player.added  event types to include
//   - ?backend=mpris,tracklist            event groups to include, see events.BackendTypes
//   - ?exclude=tracklist.entry            event types to drop
//   - ?player=org.mpris.MediaPlayer2.vlc  only the events about this player
//   - ?keepalive=<seconds>                between 10 and 120, 30 by default
//
// server.info is always delivered and cannot be excluded.
func parseStreamOptions(r *http.Request) (streamOptions, error) {
	q := r.URL.Query()

	filter, err := parseFilter(q.Get("types"), q.Get("backend"), q.Get("exclude"))
	if err != nil {
		return streamOptions{}, err
	}
	keepAlive, err := parseKeepAlive(q.Get("keepalive"))
	if err != nil {
		return streamOptions{}, err
	}
	player := q.Get("player")
	if player != "" {
		if err := mpris.ValidateBusName(player); err != nil {
			return streamOptions{}, err
		}
	}
	return streamOptions{filter: filter, keepAlive: keepAlive, player: player}, nil
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseFilter(types, groups, exclude string) (func(events.Event) bool, error) {
	include := splitList(types)
	for _, name := range splitList(groups) {
		include = append(include, events.BackendTypes[name]...)
	}
	if len(include) > 0 && !slices.Contains(include, events.TypeServerInfo) {
		include = append(include, events.TypeServerInfo)
	}

	excluded := splitList(exclude)
	if slices.Contains(excluded, events.TypeServerInfo) {
		return nil, errors.New("server.info cannot be excluded")
	}
	return events.NewFilter(include, excluded), nil
}

func parseKeepAlive(raw string) (time.Duration, error) {
	if raw == "" {
		return defaultKeepAlive, nil
	}
	secs, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("keepalive must be an integer (seconds)")
	}
	d := time.Duration(secs) * time.Second
	if d < minKeepAlive || d > maxKeepAlive {
		return 0, fmt.Errorf("keepalive must be between %d and %d seconds", int(minKeepAlive.Seconds()), int(maxKeepAlive.Seconds()))
	}
	return d, nil
}
