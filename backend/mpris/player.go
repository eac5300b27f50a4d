package mpris

import (
	"context"
	"time"

	"github.com/godbus/dbus/v5"

	idbus "github.com/b0bbywan/go-odio-players/backend/internal/dbus"
	"github.com/b0bbywan/go-odio-players/logger"
)

// playerDeps are the collaborators shared by every player of a backend.
type playerDeps struct {
	sched           scheduler
	apps            AppMatcher
	now             func() time.Time
	selfTest        bool
	selfTestTimeout time.Duration
}

// Player is the state machine of one negotiated MPRIS player. It is owned by
// the backend loop: every method must run there.
type Player struct {
	identity PlayerIdentity
	order    uint64
	caps     capabilitySet

	sched  scheduler
	ctx    context.Context
	cancel context.CancelFunc
	apps   AppMatcher
	app    AppHandle
	now    func() time.Time

	selfTestEnabled  bool
	selfTestTimeout  time.Duration
	selfTestsStarted bool
	selfTests        map[string]*selfTest

	name         string
	desktopEntry string
	capabilities Capabilities
	status       PlaybackStatus
	shuffle      bool
	loopStatus   LoopStatus
	volume       float64
	track        TrackMetadata
	controls     Controls
	features     Features

	focused          bool
	lastStatusChange time.Time
	lastInteraction  time.Time

	tracks    *TrackListTracker
	playlists *PlaylistTracker

	published PlayerInfo
	closed    bool

	// Changed fires whenever the published view of the player changes.
	Changed emitter[*Player]
}

func newPlayer(parent context.Context, n *negotiation, order uint64, deps playerDeps) *Player {
	ctx, cancel := context.WithCancel(parent)
	now := deps.now
	if now == nil {
		now = time.Now
	}
	p := &Player{
		identity:        n.identity,
		order:           order,
		caps:            n.caps,
		sched:           deps.sched,
		ctx:             ctx,
		cancel:          cancel,
		apps:            deps.apps,
		now:             now,
		selfTestEnabled: deps.selfTest,
		selfTestTimeout: deps.selfTestTimeout,
		selfTests:       make(map[string]*selfTest),
	}
	p.refresh()

	if n.caps.trackList != nil {
		p.tracks = newTrackListTracker(ctx, deps.sched, n.caps.trackList, p.identity.BusName, p.Name)
		p.tracks.Changed.On(func(TrackListInfo) { p.sync() })
	}
	if n.caps.playlists != nil {
		p.playlists = newPlaylistTracker(ctx, deps.sched, n.caps.playlists, p.identity.BusName)
		p.playlists.Changed.On(func(PlaylistsInfo) { p.sync() })
	}
	p.published = p.Info()
	return p
}

// start loads the trackers, starts the self-tests and looks up the matching app.
// Subscribers must be registered before.
func (p *Player) start() {
	if p.tracks != nil {
		p.tracks.start()
	}
	if p.playlists != nil {
		p.playlists.Refresh()
	}
	p.startSelfTests()
	p.lookupApp()
	p.sync()
}

// refresh re-derives every field from the cached properties.
func (p *Player) refresh() {
	base := p.caps.base
	p.name = base.str(PROP_IDENTITY)
	p.desktopEntry = base.str(PROP_DESKTOP_ENTRY)
	p.capabilities.CanQuit = base.boolean(PROP_CAN_QUIT)
	p.capabilities.CanRaise = base.boolean(PROP_CAN_RAISE)

	px := p.caps.player
	p.capabilities.CanControl = px.boolean(PROP_CAN_CONTROL)
	p.capabilities.CanPlay = px.boolean(PROP_CAN_PLAY)
	p.capabilities.CanPause = px.boolean(PROP_CAN_PAUSE)
	p.capabilities.CanGoNext = px.boolean(PROP_CAN_GO_NEXT)
	p.capabilities.CanGoPrevious = px.boolean(PROP_CAN_GO_PREVIOUS)

	if status := parsePlaybackStatus(px.str(PROP_PLAYBACK_STATUS)); status != p.status {
		p.status = status
		p.lastStatusChange = p.now()
	}

	p.shuffle = px.boolean(PROP_SHUFFLE)
	p.loopStatus = LoopStatus(px.str(PROP_LOOP_STATUS))
	if !p.loopStatus.valid() {
		p.loopStatus = LoopNone
	}
	if v, ok := px.value(PROP_VOLUME); ok {
		if f, ok := idbus.ExtractFloat64(v); ok {
			p.volume = normalizeVolume(f)
		}
	}

	var raw map[string]dbus.Variant
	if v, ok := px.value(PROP_METADATA); ok {
		raw, _ = idbus.ExtractVariantMap(v)
	}
	p.track = Normalize(raw, p.name)

	p.rederive()
}

func (p *Player) rederive() {
	p.controls = deriveControls(p.capabilities, p.status, p.shuffle, p.loopStatus, p.features)
}

// sync emits Changed if the published view moved since the last emission.
func (p *Player) sync() {
	if p.closed {
		return
	}
	info := p.Info()
	if info == p.published {
		return
	}
	p.published = info
	p.Changed.emit(p)
}

// handleProperties applies one PropertiesChanged batch of interface iface.
func (p *Player) handleProperties(iface string, changed map[string]dbus.Variant, invalidated []string) {
	if p.closed {
		return
	}
	switch iface {
	case MPRIS_INTERFACE:
		p.caps.base.update(changed, invalidated)
		p.refresh()
		if _, ok := changed[PROP_DESKTOP_ENTRY]; ok {
			p.lookupApp()
		}
	case MPRIS_PLAYER_IFACE:
		p.caps.player.update(changed, invalidated)
		p.observeSelfTests(changed)
		p.refresh()
		p.startSelfTests()
	case MPRIS_TRACKLIST_IFACE:
		if p.tracks == nil {
			return
		}
		p.caps.trackList.update(changed, invalidated)
		p.tracks.handleProperties(changed)
	case MPRIS_PLAYLISTS_IFACE:
		if p.playlists == nil {
			return
		}
		p.caps.playlists.update(changed, invalidated)
		p.playlists.handleProperties(changed)
	default:
		return
	}
	p.sync()
}

// handleSignal routes TrackList and Playlists signals to their tracker.
func (p *Player) handleSignal(sig *dbus.Signal) {
	if p.closed {
		return
	}
	switch sig.Name {
	case MPRIS_SIGNAL_TRACKLIST_REPLACED, MPRIS_SIGNAL_TRACK_ADDED, MPRIS_SIGNAL_TRACK_REMOVED, MPRIS_SIGNAL_TRACK_META_CHANGED:
		if p.tracks != nil {
			p.tracks.handleSignal(sig)
		}
	case MPRIS_SIGNAL_PLAYLIST_CHANGED:
		if p.playlists != nil {
			p.playlists.handleSignal(sig)
		}
	}
}

func (p *Player) lookupApp() {
	if p.apps == nil {
		return
	}
	apps := p.apps
	desktop, name := p.desktopEntry, p.name
	pid, owner := p.identity.ProcessID, p.identity.NameOwner
	p.sched.async(p.ctx, func(ctx context.Context) func() {
		app, ok := apps.FindApp(desktop, name, pid, owner)
		return func() {
			if p.closed {
				return
			}
			if !ok {
				app = nil
			}
			p.app = app
			p.sync()
		}
	})
}

// BusName returns the well-known bus name of the player.
func (p *Player) BusName() string {
	return p.identity.BusName
}

// Name returns the player's display name (its Identity).
func (p *Player) Name() string {
	return p.name
}

func (p *Player) Status() PlaybackStatus {
	return p.status
}

func (p *Player) Track() TrackMetadata {
	return p.track
}

// Focused is true when the API marked the player focused or its matched app
// window has the focus.
func (p *Player) Focused() bool {
	return p.focused || (p.app != nil && p.app.Focused())
}

func (p *Player) LastInteraction() time.Time {
	return p.lastInteraction
}

func (p *Player) LastStatusChange() time.Time {
	return p.lastStatusChange
}

// TrackList returns the track list tracker, nil when the player has none.
func (p *Player) TrackList() *TrackListTracker {
	return p.tracks
}

// Playlists returns the playlist tracker, nil when the player has none.
func (p *Player) Playlists() *PlaylistTracker {
	return p.playlists
}

// Info returns the read-only view of the player. Active is set by the backend.
func (p *Player) Info() PlayerInfo {
	info := PlayerInfo{
		BusName:          p.identity.BusName,
		Identity:         p.name,
		DesktopEntry:     p.desktopEntry,
		ProcessID:        p.identity.ProcessID,
		PlaybackStatus:   p.status,
		LoopStatus:       p.loopStatus,
		Shuffle:          p.shuffle,
		Volume:           p.volume,
		Track:            p.track,
		Capabilities:     p.capabilities,
		Controls:         p.controls,
		Features:         p.features,
		Focused:          p.Focused(),
		LastStatusChange: p.lastStatusChange,
		LastInteraction:  p.lastInteraction,
	}
	if p.tracks != nil {
		info.HasTrackList = p.tracks.Populated()
	}
	if p.playlists != nil {
		info.HasPlaylists = p.playlists.list.Len() > 0
		info.PlaylistsTitle = p.playlists.Title()
	}
	return info
}

func (p *Player) touch() {
	p.lastInteraction = p.now()
}

// callAsync issues method on px off the loop. Failures are logged only.
func (p *Player) callAsync(px *proxy, method string, args ...interface{}) {
	busName := p.identity.BusName
	p.sched.async(p.ctx, func(ctx context.Context) func() {
		if _, err := px.call(ctx, method, args...); err != nil {
			return func() { logCallError(busName, method, err) }
		}
		return nil
	})
}

func (p *Player) setAsync(prop string, value interface{}) {
	busName, px := p.identity.BusName, p.caps.player
	p.sched.async(p.ctx, func(ctx context.Context) func() {
		if err := px.set(ctx, prop, value); err != nil {
			return func() { logCallError(busName, "set "+prop, err) }
		}
		return nil
	})
}

// PlayPause triggers the main transport button: a toggle, or play/stop for
// players that cannot pause.
func (p *Player) PlayPause() error {
	if !p.controls.PlayReactive {
		return &CapabilityError{Required: "CanPlay"}
	}
	method := MPRIS_METHOD_PLAY_PAUSE
	switch p.controls.PlayAction {
	case ActionPlay:
		method = MPRIS_METHOD_PLAY
	case ActionStop:
		method = MPRIS_METHOD_STOP
	}
	logger.Debug("[mpris] %s on %s", p.controls.PlayAction, p.identity.BusName)
	p.touch()
	p.callAsync(p.caps.player, method)
	p.sync()
	return nil
}

func (p *Player) Play() error {
	if !p.capabilities.CanControl || !p.capabilities.CanPlay {
		return &CapabilityError{Required: "CanPlay"}
	}
	logger.Debug("[mpris] playing %s", p.identity.BusName)
	p.touch()
	p.callAsync(p.caps.player, MPRIS_METHOD_PLAY)
	p.sync()
	return nil
}

func (p *Player) Stop() error {
	if !p.capabilities.CanControl {
		return &CapabilityError{Required: "CanControl"}
	}
	logger.Debug("[mpris] stopping %s", p.identity.BusName)
	p.touch()
	p.callAsync(p.caps.player, MPRIS_METHOD_STOP)
	p.sync()
	return nil
}

func (p *Player) Next() error {
	if !p.controls.NextReactive {
		return &CapabilityError{Required: "CanGoNext"}
	}
	logger.Debug("[mpris] next track for %s", p.identity.BusName)
	p.touch()
	p.callAsync(p.caps.player, MPRIS_METHOD_NEXT)
	p.sync()
	return nil
}

func (p *Player) Previous() error {
	if !p.controls.PreviousReactive {
		return &CapabilityError{Required: "CanGoPrevious"}
	}
	logger.Debug("[mpris] previous track for %s", p.identity.BusName)
	p.touch()
	p.callAsync(p.caps.player, MPRIS_METHOD_PREVIOUS)
	p.sync()
	return nil
}

// SetVolume writes the clamped volume. Writes are refused unless the player
// can be controlled.
func (p *Player) SetVolume(volume float64) error {
	if !p.capabilities.CanControl {
		return &CapabilityError{Required: "CanControl"}
	}
	volume = normalizeVolume(volume)
	logger.Debug("[mpris] setting volume to %.2f for %s", volume, p.identity.BusName)
	p.setAsync(PROP_VOLUME, volume)
	return nil
}

func (p *Player) SetShuffle(shuffle bool) error {
	if !p.capabilities.CanControl {
		return &CapabilityError{Required: "CanControl"}
	}
	logger.Debug("[mpris] setting shuffle to %v for %s", shuffle, p.identity.BusName)
	p.setAsync(PROP_SHUFFLE, shuffle)
	return nil
}

func (p *Player) SetLoopStatus(status LoopStatus) error {
	if !status.valid() {
		return &ValidationError{Field: "loop", Message: "must be None, Track, or Playlist"}
	}
	if !p.capabilities.CanControl {
		return &CapabilityError{Required: "CanControl"}
	}
	logger.Debug("[mpris] setting loop status to %s for %s", status, p.identity.BusName)
	p.setAsync(PROP_LOOP_STATUS, string(status))
	return nil
}

// Raise brings the player to front, through its app when one matched.
func (p *Player) Raise() error {
	if p.app == nil && !p.capabilities.CanRaise {
		return &CapabilityError{Required: "CanRaise"}
	}
	p.touch()
	p.appOrProtocol(p.app, "raise", p.capabilities.CanRaise, MPRIS_METHOD_RAISE, AppHandle.Activate)
	p.sync()
	return nil
}

// Quit closes the player, through its app when one matched.
func (p *Player) Quit() error {
	if p.app == nil && !p.capabilities.CanQuit {
		return &CapabilityError{Required: "CanQuit"}
	}
	p.appOrProtocol(p.app, "quit", p.capabilities.CanQuit, MPRIS_METHOD_QUIT, AppHandle.Quit)
	return nil
}

func (p *Player) appOrProtocol(app AppHandle, action string, allowed bool, method string, do func(AppHandle) error) {
	busName, base := p.identity.BusName, p.caps.base
	p.sched.async(p.ctx, func(ctx context.Context) func() {
		if app != nil {
			err := do(app)
			if err == nil {
				return nil
			}
			logger.Debug("[mpris] app %s failed for %s, falling back: %v", action, busName, err)
		}
		if !allowed {
			return nil
		}
		if _, err := base.call(ctx, method); err != nil {
			return func() { logCallError(busName, method, err) }
		}
		return nil
	})
}

// SetFocused marks the player focused from outside. Gaining focus counts as
// an interaction.
func (p *Player) SetFocused(focused bool) {
	if focused && !p.focused {
		p.touch()
	}
	p.focused = focused
	p.sync()
}

// GoTo jumps to a track of the track list.
func (p *Player) GoTo(trackID string) error {
	if p.tracks == nil {
		return &FeatureUnavailableError{BusName: p.identity.BusName, Feature: "tracklist"}
	}
	if trackID == "" {
		return &ValidationError{Field: "track_id", Message: "cannot be empty"}
	}
	p.touch()
	p.tracks.GoTo(trackID)
	p.sync()
	return nil
}

// ActivatePlaylist starts one of the player's playlists.
func (p *Player) ActivatePlaylist(id string) error {
	if p.playlists == nil {
		return &FeatureUnavailableError{BusName: p.identity.BusName, Feature: "playlists"}
	}
	if err := p.playlists.Activate(id); err != nil {
		return err
	}
	p.touch()
	p.sync()
	return nil
}

// close releases every resource of the player. Pending continuations become no-ops.
func (p *Player) close() {
	if p.closed {
		return
	}
	p.closed = true
	p.stopSelfTests()
	p.cancel()
	if p.tracks != nil {
		p.tracks.close()
	}
	if p.playlists != nil {
		p.playlists.close()
	}
	p.Changed.clear()

	caps := p.caps
	p.sched.async(context.Background(), func(context.Context) func() {
		caps.release()
		return nil
	})
}

// logCallError logs a failed bus call. Cancellation is silent and vanished
// peers are expected: their removal comes from NameOwnerChanged.
func logCallError(busName, method string, err error) {
	switch {
	case idbus.IsCancelled(err):
	case idbus.IsVanished(err):
		logger.Debug("[mpris] %s on %s: player vanished: %v", method, busName, err)
	default:
		logger.Warn("[mpris] %s on %s failed: %v", method, busName, err)
	}
}
