package zeroconf

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"sync"

	"github.com/grandcat/zeroconf"

	"github.com/b0bbywan/go-odio-players/backend/mpris"
	"github.com/b0bbywan/go-odio-players/config"
	"github.com/b0bbywan/go-odio-players/events"
	"github.com/b0bbywan/go-odio-players/logger"
)

// ZeroConfBackend advertises the players API over mDNS. Besides the
// configured TXT records it publishes how many players are up and which one
// is active, so a remote can pick the right host without an API call.
type ZeroConfBackend struct {
	Config *config.ZeroConfig

	server *zeroconf.Server
	text   []string
	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
}

// New returns nil when advertising is disabled or when the API only listens
// on loopback (no interface to publish on).
func New(ctx context.Context, cfg *config.ZeroConfig) (*ZeroConfBackend, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}
	if len(cfg.Listen) == 0 {
		logger.Info("[zeroconf] no interface to publish on, advertising disabled")
		return nil, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	return &ZeroConfBackend{Config: cfg, ctx: ctx, cancel: cancel}, nil
}

// Start registers the service with no player yet. It is withdrawn when the
// parent context ends or on Close.
func (z *ZeroConfBackend) Start() error {
	z.mu.Lock()
	defer z.mu.Unlock()

	if z.server != nil {
		return errors.New("zeroconf service already published")
	}

	text := z.records(playerRecords{})
	server, err := zeroconf.Register(
		z.Config.InstanceName,
		z.Config.ServiceType,
		z.Config.Domain,
		z.Config.Port,
		text,
		z.Config.Listen,
	)
	if err != nil {
		return err
	}
	z.server = server
	z.text = text
	logger.Info("[zeroconf] published '%s' (type: %s, port: %d)",
		z.Config.InstanceName, z.Config.ServiceType, z.Config.Port)

	go func() {
		<-z.ctx.Done()
		z.Close()
	}()
	return nil
}

// Follow republishes the TXT records on every player change read from ch.
// It returns when ch closes or the service is closed.
func (z *ZeroConfBackend) Follow(ch <-chan events.Event) {
	state := newPlayerRecords()
	for {
		select {
		case <-z.ctx.Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			if state.apply(e) {
				z.setText(z.records(state))
			}
		}
	}
}

func (z *ZeroConfBackend) records(state playerRecords) []string {
	return append(slices.Clone(z.Config.TxtRecords), state.records()...)
}

func (z *ZeroConfBackend) setText(text []string) {
	z.mu.Lock()
	defer z.mu.Unlock()
	if z.server == nil || slices.Equal(text, z.text) {
		return
	}
	z.server.SetText(text)
	z.text = text
	logger.Debug("[zeroconf] TXT records now %v", text)
}

// Close withdraws the service. Safe to call more than once.
func (z *ZeroConfBackend) Close() {
	z.mu.Lock()
	defer z.mu.Unlock()

	if z.server != nil {
		z.server.Shutdown()
		z.server = nil
		logger.Debug("[zeroconf] service '%s' withdrawn", z.Config.InstanceName)
	}
	if z.cancel != nil {
		z.cancel()
		z.cancel = nil
	}
}

// playerRecords is the player side of the TXT records.
type playerRecords struct {
	players map[string]struct{}
	active  string
}

func newPlayerRecords() playerRecords {
	return playerRecords{players: make(map[string]struct{})}
}

// apply folds one player event in and reports whether the records changed.
func (r *playerRecords) apply(e events.Event) bool {
	before := len(r.players)
	switch d := e.Data.(type) {
	case mpris.PlayerInfo:
		if e.Type != events.TypePlayerAdded {
			return false
		}
		r.players[d.BusName] = struct{}{}
	case mpris.PlayerRemoved:
		delete(r.players, d.BusName)
	case mpris.Summary:
		if d.BusName == r.active {
			return false
		}
		r.active = d.BusName
		return true
	default:
		return false
	}
	return len(r.players) != before
}

func (r playerRecords) records() []string {
	out := []string{"players=" + strconv.Itoa(len(r.players))}
	if r.active != "" {
		out = append(out, "active="+r.active)
	}
	return out
}
