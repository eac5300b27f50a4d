package mpris

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"

	idbus "github.com/b0bbywan/go-odio-players/backend/internal/dbus"
	"github.com/b0bbywan/go-odio-players/cache"
	"github.com/b0bbywan/go-odio-players/config"
	"github.com/b0bbywan/go-odio-players/events"
	"github.com/b0bbywan/go-odio-players/logger"
)

// MPRISBackend discovers the MPRIS players of the session bus and keeps a
// live model of them. All player state lives on one loop goroutine; the
// exported methods are safe for concurrent use.
type MPRISBackend struct {
	conn   idbus.Conn
	ctx    context.Context
	cancel context.CancelFunc
	sched  scheduler
	loop   *loop
	deps   playerDeps

	watcher  *watcher
	listener *Listener

	// owned by the loop
	players   map[string]*Player
	pending   map[string]*negotiating
	nextOrder uint64
	selector  selector
	closed    bool

	// published snapshots, read from any goroutine
	cache     *cache.Cache[[]PlayerInfo]
	tracks    *cache.Cache[TrackListInfo]
	playlists *cache.Cache[PlaylistsInfo]
	active    *cache.Cache[Summary]

	eventsC   chan events.Event
	stopped   chan struct{}
	closeOnce sync.Once
	started   bool
}

// negotiating is the token of an in-flight negotiation. early holds the
// player signals received meanwhile, replayed on adoption.
type negotiating struct {
	order  uint64
	cancel context.CancelFunc
	early  []*dbus.Signal
}

// maxEarlySignals bounds the signals held for one negotiation.
const maxEarlySignals = 256

// New connects to the session bus. It returns nil when the backend is disabled.
func New(ctx context.Context, cfg *config.MPRISConfig, apps AppMatcher) (*MPRISBackend, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}
	if cfg.Timeout > 0 {
		idbus.DefaultTimeout = cfg.Timeout
	}

	conn, err := idbus.ConnectSession()
	if err != nil {
		return nil, err
	}

	l := newLoop()
	m := newBackend(ctx, conn, l, playerDeps{
		sched:           l,
		apps:            apps,
		now:             time.Now,
		selfTest:        cfg.SelfTest,
		selfTestTimeout: cfg.SelfTestTimeout,
	})
	m.loop = l
	logger.Info("[mpris] backend initialized")
	return m, nil
}

func newBackend(ctx context.Context, conn idbus.Conn, sched scheduler, deps playerDeps) *MPRISBackend {
	ctx, cancel := context.WithCancel(ctx)
	m := &MPRISBackend{
		conn:      conn,
		ctx:       ctx,
		cancel:    cancel,
		sched:     sched,
		deps:      deps,
		watcher:   newWatcher(conn),
		players:   make(map[string]*Player),
		pending:   make(map[string]*negotiating),
		cache:     cache.New[[]PlayerInfo](0),
		tracks:    cache.New[TrackListInfo](0),
		playlists: cache.New[PlaylistsInfo](0),
		active:    cache.New[Summary](0),
		eventsC:   make(chan events.Event, 64),
		stopped:   make(chan struct{}),
	}
	m.cache.Set(CACHE_KEY, []PlayerInfo{})
	m.watcher.Discovered.On(m.discover)
	m.watcher.Removed.On(m.remove)
	m.selector.Changed.On(func(s Summary) {
		if s.BusName == "" {
			m.active.Delete(CACHE_KEY)
		} else {
			m.active.Set(CACHE_KEY, s)
		}
		m.notify(events.TypePlayerActive, s)
	})
	m.listener = NewListener(ctx, conn, sched, m.route)
	return m
}

// Start runs the loop, then discovers the players already on the bus.
func (m *MPRISBackend) Start() error {
	logger.Debug("[mpris] starting backend")

	if m.loop != nil {
		go m.loop.run(m.ctx)
	}
	m.started = true
	m.listener.Start()

	start := time.Now()
	names, err := m.watcher.start(m.ctx)
	if err != nil {
		m.listener.Stop()
		return err
	}
	logger.Debug("[mpris] listed %d players in %s", len(names), time.Since(start))

	m.sched.post(func() {
		for _, name := range names {
			m.discover(name)
		}
	})

	logger.Info("[mpris] backend started successfully")
	return nil
}

// Events returns the channel of player events.
func (m *MPRISBackend) Events() <-chan events.Event {
	return m.eventsC
}

func (m *MPRISBackend) notify(typ string, data any) {
	e := events.Event{Type: typ, Data: data}
	select {
	case m.eventsC <- e:
	default:
		logger.Warn("[mpris] event channel full, dropping %s event", typ)
	}
}

// route handles one bus signal on the loop.
func (m *MPRISBackend) route(sig *dbus.Signal) {
	if m.closed {
		return
	}
	switch sig.Name {
	case idbus.SIGNAL_NAME_OWNER_CHANGED:
		m.watcher.handle(sig)
	case idbus.SIGNAL_PROPERTIES_CHANGED:
		if sig.Path != MPRIS_PATH {
			return
		}
		changed, invalidated, iface, err := idbus.FilterSignal(sig)
		if err != nil {
			logger.Debug("[mpris] ignoring PropertiesChanged from %s: %v", sig.Sender, err)
			return
		}
		m.holdEarly(sig)
		for _, p := range m.playersOwnedBy(sig.Sender) {
			p.handleProperties(iface, changed, invalidated)
		}
	default:
		if sig.Path != MPRIS_PATH {
			return
		}
		m.holdEarly(sig)
		for _, p := range m.playersOwnedBy(sig.Sender) {
			p.handleSignal(sig)
		}
	}
}

// holdEarly keeps sig for every running negotiation. Which player sent it is
// only known once the owner lookup completes, so adopt does the sorting.
func (m *MPRISBackend) holdEarly(sig *dbus.Signal) {
	for busName, token := range m.pending {
		if len(token.early) >= maxEarlySignals {
			logger.Warn("[mpris] too many signals while negotiating %s, dropping %s", busName, sig.Name)
			continue
		}
		token.early = append(token.early, sig)
	}
}

// playersOwnedBy returns the players whose bus name is owned by the unique
// name sender. Signals carry the unique name, not the well-known one.
func (m *MPRISBackend) playersOwnedBy(sender string) []*Player {
	var out []*Player
	for name, p := range m.players {
		if p.identity.NameOwner == sender || name == sender {
			out = append(out, p)
		}
	}
	return out
}

// discover starts negotiating busName unless it is already known.
func (m *MPRISBackend) discover(busName string) {
	if m.closed {
		return
	}
	if _, ok := m.players[busName]; ok {
		return
	}
	if _, ok := m.pending[busName]; ok {
		return
	}

	ctx, cancel := context.WithCancel(m.ctx)
	token := &negotiating{order: m.nextOrder, cancel: cancel}
	m.nextOrder++
	m.pending[busName] = token

	conn := m.conn
	m.sched.async(ctx, func(ctx context.Context) func() {
		n, err := negotiate(ctx, conn, busName)
		return func() { m.adopt(busName, token, n, err) }
	})
}

// adopt finishes a negotiation. Superseded results are released silently; a
// failed negotiation publishes exactly one removal.
func (m *MPRISBackend) adopt(busName string, token *negotiating, n *negotiation, err error) {
	token.cancel()
	if m.closed || m.pending[busName] != token {
		if n != nil {
			m.releaseAsync(n.caps)
		}
		return
	}
	delete(m.pending, busName)

	if err != nil {
		if !idbus.IsCancelled(err) {
			logger.Warn("[mpris] failed to add player %s: %v", busName, err)
		}
		m.notify(events.TypePlayerRemoved, PlayerRemoved{BusName: busName})
		return
	}
	m.addPlayer(n, token.order, token.early)
}

// addPlayer builds the player from n. Property changes received during the
// negotiation are merged into its proxies first; TrackList and Playlists
// signals are replayed once the trackers hold their initial state.
func (m *MPRISBackend) addPlayer(n *negotiation, order uint64, early []*dbus.Signal) {
	busName := n.identity.BusName

	var replay []*dbus.Signal
	for _, sig := range early {
		if sig.Sender != n.identity.NameOwner && sig.Sender != busName {
			continue
		}
		if sig.Name == idbus.SIGNAL_PROPERTIES_CHANGED {
			n.apply(sig)
			continue
		}
		replay = append(replay, sig)
	}

	p := newPlayer(m.ctx, n, order, m.deps)

	p.Changed.On(func(p *Player) {
		m.publish()
		m.notify(events.TypePlayerUpdated, m.infoOf(p))
	})
	if t := p.TrackList(); t != nil {
		m.tracks.Set(busName, t.info())
		t.Changed.On(func(info TrackListInfo) {
			m.tracks.Set(busName, info)
			m.notify(events.TypeTrackListChanged, info)
		})
		t.EntryChanged.On(func(c TrackEntryChange) {
			m.tracks.Set(busName, t.info())
			m.notify(events.TypeTrackListEntry, c)
		})
	}
	if pl := p.Playlists(); pl != nil {
		m.playlists.Set(busName, pl.info())
		pl.Changed.On(func(info PlaylistsInfo) {
			m.playlists.Set(busName, info)
			m.notify(events.TypePlaylistsChanged, info)
		})
		pl.EntryChanged.On(func(c PlaylistEntryChange) {
			m.playlists.Set(busName, pl.info())
			m.notify(events.TypePlaylistsEntry, c)
		})
	}

	m.players[busName] = p
	logger.Info("[mpris] player %s (%s) ready", busName, p.Name())
	m.publish()
	m.notify(events.TypePlayerAdded, m.infoOf(p))
	p.start()
	for _, sig := range replay {
		p.handleSignal(sig)
	}
}

// remove drops busName, cancelling its negotiation if one is running.
func (m *MPRISBackend) remove(busName string) {
	if token, ok := m.pending[busName]; ok {
		delete(m.pending, busName)
		token.cancel()
		m.notify(events.TypePlayerRemoved, PlayerRemoved{BusName: busName})
		return
	}

	p, ok := m.players[busName]
	if !ok {
		return
	}
	delete(m.players, busName)
	p.close()
	m.tracks.Delete(busName)
	m.playlists.Delete(busName)
	m.publish()
	m.notify(events.TypePlayerRemoved, PlayerRemoved{BusName: busName})
}

func (m *MPRISBackend) releaseAsync(caps capabilitySet) {
	m.sched.async(context.Background(), func(context.Context) func() {
		caps.release()
		return nil
	})
}

// publish recomputes the active player and refreshes the player snapshot.
func (m *MPRISBackend) publish() {
	winner := m.selector.update(m.players)

	players := make([]*Player, 0, len(m.players))
	for _, p := range m.players {
		players = append(players, p)
	}
	sort.Slice(players, func(i, j int) bool { return players[i].order < players[j].order })

	// the marker only means something among peers
	marked := len(players) > 1
	infos := make([]PlayerInfo, len(players))
	for i, p := range players {
		infos[i] = p.Info()
		infos[i].Active = marked && p == winner
	}
	m.cache.Set(CACHE_KEY, infos)
}

func (m *MPRISBackend) infoOf(p *Player) PlayerInfo {
	info := p.Info()
	info.Active = len(m.players) > 1 && m.selector.active == p.BusName()
	return info
}

// SelfTestSettings returns the self-test configuration shared by every player.
func (m *MPRISBackend) SelfTestSettings() SelfTestSettings {
	return SelfTestSettings{Enabled: m.deps.selfTest, Timeout: m.deps.selfTestTimeout.String()}
}

// ListPlayers returns every ready player in discovery order.
func (m *MPRISBackend) ListPlayers() []PlayerInfo {
	players, _ := m.cache.Get(CACHE_KEY)
	return players
}

// GetPlayer returns one player.
func (m *MPRISBackend) GetPlayer(busName string) (*PlayerInfo, error) {
	if err := ValidateBusName(busName); err != nil {
		return nil, err
	}
	players, _ := m.cache.Get(CACHE_KEY)
	for _, player := range players {
		if player.BusName == busName {
			return &player, nil
		}
	}
	return nil, &PlayerNotFoundError{BusName: busName}
}

// ActivePlayer returns the summary of the active player, false when there is none.
func (m *MPRISBackend) ActivePlayer() (Summary, bool) {
	return m.active.Get(CACHE_KEY)
}

// TrackList returns the track list of busName.
func (m *MPRISBackend) TrackList(busName string) (TrackListInfo, error) {
	if _, err := m.GetPlayer(busName); err != nil {
		return TrackListInfo{}, err
	}
	info, ok := m.tracks.Get(busName)
	if !ok {
		return TrackListInfo{}, &FeatureUnavailableError{BusName: busName, Feature: "tracklist"}
	}
	return info, nil
}

// Playlists returns the playlists of busName.
func (m *MPRISBackend) Playlists(busName string) (PlaylistsInfo, error) {
	if _, err := m.GetPlayer(busName); err != nil {
		return PlaylistsInfo{}, err
	}
	info, ok := m.playlists.Get(busName)
	if !ok {
		return PlaylistsInfo{}, &FeatureUnavailableError{BusName: busName, Feature: "playlists"}
	}
	return info, nil
}

// CoverURL returns the cover of the current track, or of trackID in the
// player's track list when given.
func (m *MPRISBackend) CoverURL(busName, trackID string) (string, error) {
	player, err := m.GetPlayer(busName)
	if err != nil {
		return "", err
	}
	if trackID == "" || trackID == player.Track.ID {
		return player.Track.CoverURL, nil
	}
	tracks, err := m.TrackList(busName)
	if err != nil {
		return "", err
	}
	for _, t := range tracks.Tracks {
		if t.ID == trackID {
			return t.CoverURL, nil
		}
	}
	return "", &ValidationError{Field: "track", Message: "unknown track " + trackID}
}

// dispatch runs fn against the live player on the loop and waits for its result.
func (m *MPRISBackend) dispatch(ctx context.Context, busName string, fn func(*Player) error) error {
	if err := ValidateBusName(busName); err != nil {
		return err
	}
	done := make(chan error, 1)
	m.sched.post(func() {
		if m.closed {
			done <- &BackendClosedError{}
			return
		}
		p, ok := m.players[busName]
		if !ok {
			done <- &PlayerNotFoundError{BusName: busName}
			return
		}
		done <- fn(p)
	})

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-m.stopped:
		return &BackendClosedError{}
	}
}

func (m *MPRISBackend) PlayPause(ctx context.Context, busName string) error {
	return m.dispatch(ctx, busName, (*Player).PlayPause)
}

func (m *MPRISBackend) Play(ctx context.Context, busName string) error {
	return m.dispatch(ctx, busName, (*Player).Play)
}

func (m *MPRISBackend) Stop(ctx context.Context, busName string) error {
	return m.dispatch(ctx, busName, (*Player).Stop)
}

func (m *MPRISBackend) Next(ctx context.Context, busName string) error {
	return m.dispatch(ctx, busName, (*Player).Next)
}

func (m *MPRISBackend) Previous(ctx context.Context, busName string) error {
	return m.dispatch(ctx, busName, (*Player).Previous)
}

func (m *MPRISBackend) Raise(ctx context.Context, busName string) error {
	return m.dispatch(ctx, busName, (*Player).Raise)
}

func (m *MPRISBackend) Quit(ctx context.Context, busName string) error {
	return m.dispatch(ctx, busName, (*Player).Quit)
}

func (m *MPRISBackend) SetVolume(ctx context.Context, busName string, volume float64) error {
	return m.dispatch(ctx, busName, func(p *Player) error { return p.SetVolume(volume) })
}

func (m *MPRISBackend) SetShuffle(ctx context.Context, busName string, shuffle bool) error {
	return m.dispatch(ctx, busName, func(p *Player) error { return p.SetShuffle(shuffle) })
}

func (m *MPRISBackend) SetLoopStatus(ctx context.Context, busName string, status LoopStatus) error {
	if !status.valid() {
		return &ValidationError{Field: "loop", Message: "must be None, Track, or Playlist"}
	}
	return m.dispatch(ctx, busName, func(p *Player) error { return p.SetLoopStatus(status) })
}

func (m *MPRISBackend) SetFocused(ctx context.Context, busName string, focused bool) error {
	return m.dispatch(ctx, busName, func(p *Player) error {
		p.SetFocused(focused)
		return nil
	})
}

func (m *MPRISBackend) GoTo(ctx context.Context, busName, trackID string) error {
	return m.dispatch(ctx, busName, func(p *Player) error { return p.GoTo(trackID) })
}

func (m *MPRISBackend) ActivatePlaylist(ctx context.Context, busName, playlistID string) error {
	if playlistID == "" {
		return &ValidationError{Field: "playlist_id", Message: "cannot be empty"}
	}
	return m.dispatch(ctx, busName, func(p *Player) error { return p.ActivatePlaylist(playlistID) })
}

// shutdown closes every player and pending negotiation. Runs on the loop.
func (m *MPRISBackend) shutdown() {
	if m.closed {
		return
	}
	m.closed = true
	for name, token := range m.pending {
		token.cancel()
		delete(m.pending, name)
	}
	for name, p := range m.players {
		p.close()
		delete(m.players, name)
	}
	m.watcher.stop()
}

// Close stops the backend and closes the bus connection.
func (m *MPRISBackend) Close() {
	m.closeOnce.Do(func() {
		if m.started && m.loop != nil {
			done := make(chan struct{})
			m.sched.post(func() {
				m.shutdown()
				close(done)
			})
			select {
			case <-done:
			case <-m.loop.done:
			case <-time.After(2 * time.Second):
				logger.Warn("[mpris] timed out waiting for players to close")
			}
		} else {
			m.shutdown()
		}
		close(m.stopped)
		m.listener.Stop()
		m.cancel()
		if err := m.conn.Close(); err != nil {
			logger.Error("[mpris] failed to close D-Bus connection: %v", err)
		}
		logger.Info("[mpris] backend closed")
	})
}
