package backend

import (
	"context"

	"github.com/b0bbywan/go-odio-players/backend/appmatch"
	"github.com/b0bbywan/go-odio-players/backend/artwork"
	"github.com/b0bbywan/go-odio-players/backend/mpris"
	"github.com/b0bbywan/go-odio-players/backend/zeroconf"
	"github.com/b0bbywan/go-odio-players/config"
	"github.com/b0bbywan/go-odio-players/events"
)

// Backend groups the services of one process. A disabled service is nil.
type Backend struct {
	MPRIS    *mpris.MPRISBackend
	Artwork  *artwork.Fetcher
	Zeroconf *zeroconf.ZeroConfBackend

	events *Broadcaster
}

// zeroconfEvents are the events changing the advertised TXT records.
var zeroconfEvents = []string{
	events.TypePlayerAdded,
	events.TypePlayerRemoved,
	events.TypePlayerActive,
}

func New(ctx context.Context, mpriscfg *config.MPRISConfig, artcfg *config.ArtworkConfig, zerocfg *config.ZeroConfig) (*Backend, error) {
	b := &Backend{}

	if mpriscfg != nil && mpriscfg.Enabled {
		ensureSessionBus()
	}
	m, err := mpris.New(ctx, mpriscfg, appmatch.New())
	if err != nil {
		return nil, err
	}
	b.MPRIS = m
	// drained whether or not anyone subscribes
	var upstream <-chan events.Event
	if m != nil {
		upstream = m.Events()
	}
	b.events = NewBroadcaster(ctx, upstream)

	b.Artwork = artwork.New(ctx, artcfg)

	z, err := zeroconf.New(ctx, zerocfg)
	if err != nil {
		b.Close()
		return nil, err
	}
	b.Zeroconf = z

	return b, nil
}

// Events returns the player event broadcaster. It stays silent when the
// players backend is disabled.
func (b *Backend) Events() *Broadcaster {
	return b.events
}

func (b *Backend) Start() error {
	// subscribed first so no early player event is missed
	var txt chan events.Event
	if b.Zeroconf != nil && b.MPRIS != nil {
		txt = b.events.SubscribeFunc(events.FilterTypes(zeroconfEvents))
	}

	if b.MPRIS != nil {
		if err := b.MPRIS.Start(); err != nil {
			b.unsubscribe(txt)
			return err
		}
	}

	if b.Zeroconf == nil {
		return nil
	}
	if err := b.Zeroconf.Start(); err != nil {
		b.unsubscribe(txt)
		return err
	}
	if txt != nil {
		go func() {
			defer b.events.Unsubscribe(txt)
			b.Zeroconf.Follow(txt)
		}()
	}
	return nil
}

func (b *Backend) unsubscribe(ch chan events.Event) {
	if ch != nil {
		b.events.Unsubscribe(ch)
	}
}

func (b *Backend) Close() {
	if b.Zeroconf != nil {
		b.Zeroconf.Close()
	}
	if b.MPRIS != nil {
		b.MPRIS.Close()
	}
}
