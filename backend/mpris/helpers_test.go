package mpris

import (
	"context"
	"maps"
	"sync"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"

	idbus "github.com/b0bbywan/go-odio-players/backend/internal/dbus"
	"github.com/b0bbywan/go-odio-players/events"
)

// manualSched is a scheduler stepped by the test goroutine.
type manualSched struct {
	posted []func()
	jobs   []func()
	timers []*manualTimer
	// hold keeps async jobs queued until runJob is called.
	hold bool
}

type manualTimer struct {
	d       time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (s *manualSched) post(fn func()) {
	s.posted = append(s.posted, fn)
}

func (s *manualSched) async(ctx context.Context, work func(ctx context.Context) func()) {
	s.jobs = append(s.jobs, func() {
		if cont := work(ctx); cont != nil {
			s.post(cont)
		}
	})
}

func (s *manualSched) after(d time.Duration, fn func()) func() {
	t := &manualTimer{d: d, fn: fn}
	s.timers = append(s.timers, t)
	return func() { t.stopped = true }
}

// drain runs posted functions and, unless held, async jobs until both queues are empty.
func (s *manualSched) drain() {
	for {
		if len(s.posted) > 0 {
			fn := s.posted[0]
			s.posted = s.posted[1:]
			fn()
			continue
		}
		if s.hold || len(s.jobs) == 0 {
			return
		}
		job := s.jobs[0]
		s.jobs = s.jobs[1:]
		job()
	}
}

// runJob runs the i-th queued job and its continuation.
func (s *manualSched) runJob(i int) {
	job := s.jobs[i]
	s.jobs = append(s.jobs[:i:i], s.jobs[i+1:]...)
	job()
	hold := s.hold
	s.hold = true
	s.drain()
	s.hold = hold
}

// fireTimers fires every armed timer, then drains.
func (s *manualSched) fireTimers() {
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			t.fired = true
			s.post(t.fn)
		}
	}
	s.drain()
}

func (s *manualSched) armedTimers() int {
	n := 0
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time {
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.t = c.t.Add(d)
}

// fakePlayer is the bus-side state of one MPRIS player.
type fakePlayer struct {
	owner     string
	props     map[string]map[string]dbus.Variant
	getAllErr map[string]error
	tracks    map[string]map[string]dbus.Variant
	playlists [][]interface{}
}

func newFakePlayer(owner, identity string) *fakePlayer {
	return &fakePlayer{
		owner: owner,
		props: map[string]map[string]dbus.Variant{
			MPRIS_INTERFACE: {
				PROP_IDENTITY:      dbus.MakeVariant(identity),
				PROP_DESKTOP_ENTRY: dbus.MakeVariant("player"),
				PROP_CAN_QUIT:      dbus.MakeVariant(true),
				PROP_CAN_RAISE:     dbus.MakeVariant(true),
			},
			MPRIS_PLAYER_IFACE: {
				PROP_CAN_CONTROL:     dbus.MakeVariant(true),
				PROP_CAN_PLAY:        dbus.MakeVariant(true),
				PROP_CAN_PAUSE:       dbus.MakeVariant(true),
				PROP_CAN_GO_NEXT:     dbus.MakeVariant(true),
				PROP_CAN_GO_PREVIOUS: dbus.MakeVariant(true),
				PROP_PLAYBACK_STATUS: dbus.MakeVariant(string(StatusStopped)),
				PROP_SHUFFLE:         dbus.MakeVariant(false),
				PROP_LOOP_STATUS:     dbus.MakeVariant(string(LoopNone)),
				PROP_VOLUME:          dbus.MakeVariant(0.5),
				PROP_METADATA:        dbus.MakeVariant(map[string]dbus.Variant{}),
			},
		},
		getAllErr: map[string]error{},
		tracks:    map[string]map[string]dbus.Variant{},
	}
}

func (p *fakePlayer) withTrackList(ids ...string) *fakePlayer {
	paths := make([]dbus.ObjectPath, len(ids))
	for i, id := range ids {
		paths[i] = dbus.ObjectPath(id)
		p.tracks[id] = trackMeta(id, "Title "+id)
	}
	p.props[MPRIS_TRACKLIST_IFACE] = map[string]dbus.Variant{
		PROP_TRACKS: dbus.MakeVariant(paths),
	}
	return p
}

func (p *fakePlayer) withPlaylists(entries ...PlaylistEntry) *fakePlayer {
	p.playlists = nil
	for _, e := range entries {
		p.playlists = append(p.playlists, []interface{}{dbus.ObjectPath(e.ID), e.Title, ""})
	}
	p.props[MPRIS_PLAYLISTS_IFACE] = map[string]dbus.Variant{
		PROP_PLAYLIST_COUNT: dbus.MakeVariant(uint32(len(entries))),
		PROP_ORDERINGS:      dbus.MakeVariant([]string{"UserDefined", ORDERING_ALPHABETICAL}),
		PROP_ACTIVE_PLAYLIST: dbus.MakeVariant([]interface{}{
			false, []interface{}{dbus.ObjectPath("/"), "", ""},
		}),
	}
	return p
}

func trackMeta(id, title string) map[string]dbus.Variant {
	return map[string]dbus.Variant{
		META_TRACK_ID: dbus.MakeVariant(dbus.ObjectPath(id)),
		META_TITLE:    dbus.MakeVariant(title),
		META_ARTIST:   dbus.MakeVariant([]string{"Artist"}),
	}
}

type recordedCall struct {
	dest   string
	method string
	args   []interface{}
}

// fakeConn is an in-memory session bus serving fakePlayers.
type fakeConn struct {
	mu      sync.Mutex
	players map[string]*fakePlayer
	extra   []string
	calls   []recordedCall
	matches int
	listErr error
	// blockIface makes GetAll on that interface wait for cancellation.
	blockIface string
	closed     bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{players: map[string]*fakePlayer{}}
}

func (c *fakeConn) add(busName string, p *fakePlayer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.players[busName] = p
}

func (c *fakeConn) drop(busName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.players, busName)
}

func (c *fakeConn) activeMatches() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.matches
}

// called returns the recorded calls of method on dest.
func (c *fakeConn) called(dest, method string) []recordedCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []recordedCall
	for _, call := range c.calls {
		if call.dest == dest && call.method == method {
			out = append(out, call)
		}
	}
	return out
}

func noOwner(name string) error {
	return dbus.NewError(idbus.ERR_NAME_HAS_NO_OWNER, []interface{}{"no owner for " + name})
}

func (c *fakeConn) Call(ctx context.Context, dest, path, method string, args ...interface{}) ([]interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.calls = append(c.calls, recordedCall{dest: dest, method: method, args: args})

	if dest == idbus.DBUS_INTERFACE {
		defer c.mu.Unlock()
		switch method {
		case idbus.BUS_LIST_NAMES:
			if c.listErr != nil {
				return nil, c.listErr
			}
			names := append([]string{":1.1", idbus.DBUS_INTERFACE}, c.extra...)
			for name := range c.players {
				names = append(names, name)
			}
			return []interface{}{names}, nil
		case idbus.BUS_GET_NAME_OWNER:
			p, ok := c.players[args[0].(string)]
			if !ok {
				return nil, noOwner(args[0].(string))
			}
			return []interface{}{p.owner}, nil
		case idbus.BUS_GET_CONNECTION_PID:
			if _, ok := c.players[args[0].(string)]; !ok {
				return nil, noOwner(args[0].(string))
			}
			return []interface{}{uint32(4242)}, nil
		}
		return nil, dbus.NewError(idbus.ERR_UNKNOWN_METHOD, nil)
	}

	p, ok := c.players[dest]
	if !ok {
		c.mu.Unlock()
		return nil, noOwner(dest)
	}

	switch method {
	case idbus.PROP_GET_ALL:
		iface := args[0].(string)
		if iface == c.blockIface {
			c.mu.Unlock()
			<-ctx.Done()
			return nil, ctx.Err()
		}
		defer c.mu.Unlock()
		if err := p.getAllErr[iface]; err != nil {
			return nil, err
		}
		props, ok := p.props[iface]
		if !ok {
			return nil, dbus.NewError(idbus.ERR_UNKNOWN_INTERFACE, nil)
		}
		return []interface{}{maps.Clone(props)}, nil
	case idbus.PROP_GET:
		defer c.mu.Unlock()
		v, ok := p.props[args[0].(string)][args[1].(string)]
		if !ok {
			return nil, dbus.NewError(idbus.ERR_UNKNOWN_PROPERTY, nil)
		}
		return []interface{}{v}, nil
	case idbus.PROP_SET:
		defer c.mu.Unlock()
		iface, prop := args[0].(string), args[1].(string)
		p.props[iface][prop] = args[2].(dbus.Variant)
		return nil, nil
	case MPRIS_METHOD_GET_TRACKS_METADATA:
		defer c.mu.Unlock()
		var out []map[string]dbus.Variant
		for _, id := range args[0].([]dbus.ObjectPath) {
			if md, ok := p.tracks[string(id)]; ok {
				out = append(out, md)
			}
		}
		return []interface{}{out}, nil
	case MPRIS_METHOD_GET_PLAYLISTS:
		defer c.mu.Unlock()
		return []interface{}{p.playlists}, nil
	}
	c.mu.Unlock()
	return nil, nil
}

func (c *fakeConn) AddMatchSignal(options ...dbus.MatchOption) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.matches++
	return nil
}

func (c *fakeConn) RemoveMatchSignal(options ...dbus.MatchOption) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.matches--
	return nil
}

func (c *fakeConn) Signal(ch chan<- *dbus.Signal)       {}
func (c *fakeConn) RemoveSignal(ch chan<- *dbus.Signal) {}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// propsChanged builds a PropertiesChanged signal as sent by owner.
func propsChanged(owner, iface string, changed map[string]dbus.Variant, invalidated ...string) *dbus.Signal {
	if invalidated == nil {
		invalidated = []string{}
	}
	return &dbus.Signal{
		Sender: owner,
		Path:   MPRIS_PATH,
		Name:   idbus.SIGNAL_PROPERTIES_CHANGED,
		Body:   []interface{}{iface, changed, invalidated},
	}
}

func nameOwnerChanged(name, oldOwner, newOwner string) *dbus.Signal {
	return &dbus.Signal{
		Sender: idbus.DBUS_INTERFACE,
		Path:   idbus.DBUS_PATH,
		Name:   idbus.SIGNAL_NAME_OWNER_CHANGED,
		Body:   []interface{}{name, oldOwner, newOwner},
	}
}

type testEnv struct {
	conn  *fakeConn
	sched *manualSched
	clock *fakeClock
}

func newTestEnv() *testEnv {
	return &testEnv{conn: newFakeConn(), sched: &manualSched{}, clock: newFakeClock()}
}

func (e *testEnv) deps() playerDeps {
	return playerDeps{
		sched:           e.sched,
		now:             e.clock.now,
		selfTest:        false,
		selfTestTimeout: time.Second,
	}
}

// player negotiates busName against the fake bus and builds a started Player.
func (e *testEnv) player(t *testing.T, busName string, order uint64, deps playerDeps) *Player {
	t.Helper()
	n, err := negotiate(context.Background(), e.conn, busName)
	if err != nil {
		t.Fatalf("negotiate(%s): %v", busName, err)
	}
	p := newPlayer(context.Background(), n, order, deps)
	p.start()
	e.sched.drain()
	t.Cleanup(func() {
		p.close()
		e.sched.drain()
	})
	return p
}

// backend builds a backend on the fake bus without a real loop.
func (e *testEnv) backend(t *testing.T) *MPRISBackend {
	t.Helper()
	m := newBackend(context.Background(), e.conn, e.sched, e.deps())
	t.Cleanup(func() {
		m.shutdown()
		e.sched.drain()
		m.listener.Stop()
		m.cancel()
	})
	return m
}

// drainEvents returns every queued event.
func drainEvents(m *MPRISBackend) []events.Event {
	var out []events.Event
	for {
		select {
		case e := <-m.eventsC:
			out = append(out, e)
		default:
			return out
		}
	}
}

func countEvents(evs []events.Event, typ string) int {
	n := 0
	for _, e := range evs {
		if e.Type == typ {
			n++
		}
	}
	return n
}

// lastEvent returns the data of the last event of type typ.
func lastEvent(evs []events.Event, typ string) (any, bool) {
	for i := len(evs) - 1; i >= 0; i-- {
		if evs[i].Type == typ {
			return evs[i].Data, true
		}
	}
	return nil, false
}
