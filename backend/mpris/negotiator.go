package mpris

import (
	"context"

	"github.com/godbus/dbus/v5"
	"golang.org/x/sync/errgroup"

	idbus "github.com/b0bbywan/go-odio-players/backend/internal/dbus"
	"github.com/b0bbywan/go-odio-players/logger"
)

// negotiation is the outcome of a successful capability negotiation.
type negotiation struct {
	identity PlayerIdentity
	caps     capabilitySet
}

// negotiate acquires the four MPRIS proxies of busName concurrently. A failure
// of the base or player proxy, or of the owner lookup, fails the whole
// negotiation and cancels the remaining acquisitions. The optional proxies
// fail independently. Every acquired proxy is released on failure.
func negotiate(ctx context.Context, conn idbus.Conn, busName string) (*negotiation, error) {
	n := &negotiation{identity: PlayerIdentity{BusName: busName}}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		owner, err := idbus.GetNameOwner(gctx, conn, busName)
		if err != nil {
			return &NegotiationError{BusName: busName, Interface: "owner", Err: err}
		}
		n.identity.NameOwner = owner

		pid, err := idbus.GetConnectionPID(gctx, conn, busName)
		if err != nil {
			logger.Debug("[mpris] no pid for %s: %v", busName, err)
			return nil
		}
		n.identity.ProcessID = pid
		return nil
	})

	mandatory := func(dst **proxy, iface string) func() error {
		return func() error {
			p, err := acquireProxy(gctx, conn, busName, iface, false)
			if err != nil {
				return &NegotiationError{BusName: busName, Interface: iface, Err: err}
			}
			*dst = p
			return nil
		}
	}
	optional := func(dst **proxy, iface string) func() error {
		return func() error {
			p, err := acquireProxy(gctx, conn, busName, iface, true)
			if err != nil {
				if !idbus.IsCancelled(err) {
					logger.Debug("[mpris] %s has no %s: %v", busName, iface, err)
				}
				return nil
			}
			// some players answer GetAll on interfaces they do not implement
			if len(p.props) == 0 {
				p.release()
				return nil
			}
			*dst = p
			return nil
		}
	}

	g.Go(mandatory(&n.caps.base, MPRIS_INTERFACE))
	g.Go(mandatory(&n.caps.player, MPRIS_PLAYER_IFACE))
	g.Go(optional(&n.caps.trackList, MPRIS_TRACKLIST_IFACE))
	g.Go(optional(&n.caps.playlists, MPRIS_PLAYLISTS_IFACE))

	if err := g.Wait(); err != nil {
		n.caps.release()
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		n.caps.release()
		return nil, err
	}
	return n, nil
}

// apply merges a PropertiesChanged signal received before adoption into the
// matching proxy.
func (n *negotiation) apply(sig *dbus.Signal) {
	changed, invalidated, iface, err := idbus.FilterSignal(sig)
	if err != nil {
		return
	}
	if px := n.caps.byInterface(iface); px != nil {
		px.update(changed, invalidated)
	}
}
