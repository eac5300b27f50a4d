package mpris

import (
	"context"

	"github.com/godbus/dbus/v5"

	idbus "github.com/b0bbywan/go-odio-players/backend/internal/dbus"
	"github.com/b0bbywan/go-odio-players/logger"
)

// proxy is a capability handle on one MPRIS interface of one player. It owns
// the match rules routing that interface's signals to us until released.
type proxy struct {
	conn     idbus.Conn
	busName  string
	iface    string
	props    map[string]dbus.Variant
	matches  [][]dbus.MatchOption
	released bool
}

// acquireProxy subscribes to the interface's signals, then loads its properties.
// Changes sent after GetAll therefore reach the listener; the backend holds
// them until the player is adopted.
func acquireProxy(ctx context.Context, conn idbus.Conn, busName, iface string, withSignals bool) (*proxy, error) {
	p := &proxy{conn: conn, busName: busName, iface: iface}

	p.matches = append(p.matches, []dbus.MatchOption{
		dbus.WithMatchSender(busName),
		dbus.WithMatchObjectPath(MPRIS_PATH),
		dbus.WithMatchInterface(idbus.DBUS_PROP_IFACE),
		dbus.WithMatchMember("PropertiesChanged"),
		dbus.WithMatchArg(0, iface),
	})
	if withSignals {
		p.matches = append(p.matches, []dbus.MatchOption{
			dbus.WithMatchSender(busName),
			dbus.WithMatchObjectPath(MPRIS_PATH),
			dbus.WithMatchInterface(iface),
		})
	}

	for i, match := range p.matches {
		if err := conn.AddMatchSignal(match...); err != nil {
			p.matches = p.matches[:i]
			p.release()
			return nil, err
		}
	}

	props, err := idbus.GetAllProperties(ctx, conn, busName, MPRIS_PATH, iface)
	if err != nil {
		p.release()
		return nil, err
	}
	p.props = props
	return p, nil
}

// release drops the match rules. Safe to call more than once.
func (p *proxy) release() {
	if p == nil || p.released {
		return
	}
	p.released = true
	for _, match := range p.matches {
		if err := p.conn.RemoveMatchSignal(match...); err != nil && !idbus.IsVanished(err) {
			logger.Debug("[mpris] failed to remove match for %s %s: %v", p.busName, p.iface, err)
		}
	}
}

// update merges a PropertiesChanged batch into the cached properties.
func (p *proxy) update(changed map[string]dbus.Variant, invalidated []string) {
	for k, v := range changed {
		p.props[k] = v
	}
	for _, k := range invalidated {
		delete(p.props, k)
	}
}

func (p *proxy) value(key string) (dbus.Variant, bool) {
	v, ok := p.props[key]
	return v, ok
}

func (p *proxy) str(key string) string {
	return idbus.MapString(p.props, key)
}

func (p *proxy) boolean(key string) bool {
	return idbus.MapBool(p.props, key)
}

func (p *proxy) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	return p.conn.Call(ctx, p.busName, MPRIS_PATH, method, args...)
}

func (p *proxy) get(ctx context.Context, prop string) (dbus.Variant, error) {
	return idbus.GetProperty(ctx, p.conn, p.busName, MPRIS_PATH, p.iface, prop)
}

func (p *proxy) set(ctx context.Context, prop string, value interface{}) error {
	return idbus.SetProperty(ctx, p.conn, p.busName, MPRIS_PATH, p.iface, prop, value)
}

// capabilitySet holds the proxies of one player. base and player are mandatory.
type capabilitySet struct {
	base      *proxy
	player    *proxy
	trackList *proxy
	playlists *proxy
}

func (c *capabilitySet) byInterface(iface string) *proxy {
	switch iface {
	case MPRIS_INTERFACE:
		return c.base
	case MPRIS_PLAYER_IFACE:
		return c.player
	case MPRIS_TRACKLIST_IFACE:
		return c.trackList
	case MPRIS_PLAYLISTS_IFACE:
		return c.playlists
	}
	return nil
}

func (c *capabilitySet) release() {
	c.base.release()
	c.player.release()
	c.trackList.release()
	c.playlists.release()
}
