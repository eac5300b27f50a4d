package mpris

import (
	"context"

	"github.com/godbus/dbus/v5"

	idbus "github.com/b0bbywan/go-odio-players/backend/internal/dbus"
	"github.com/b0bbywan/go-odio-players/logger"
)

// Listener forwards D-Bus signals from the connection to the backend loop.
type Listener struct {
	conn   idbus.Conn
	sched  scheduler
	route  func(*dbus.Signal)
	ctx    context.Context
	cancel context.CancelFunc
	ch     chan *dbus.Signal
}

// NewListener creates a listener posting every received signal to route on sched.
func NewListener(ctx context.Context, conn idbus.Conn, sched scheduler, route func(*dbus.Signal)) *Listener {
	ctx, cancel := context.WithCancel(ctx)
	return &Listener{
		conn:   conn,
		sched:  sched,
		route:  route,
		ctx:    ctx,
		cancel: cancel,
		ch:     make(chan *dbus.Signal, 64),
	}
}

// Start registers the signal channel and starts forwarding.
func (l *Listener) Start() {
	l.conn.Signal(l.ch)
	go l.listen()
	logger.Info("[mpris] listener started (D-Bus signal-based)")
}

func (l *Listener) listen() {
	for {
		select {
		case <-l.ctx.Done():
			return
		case sig, ok := <-l.ch:
			if !ok {
				logger.Warn("[mpris] signal channel closed")
				return
			}
			l.sched.post(func() { l.route(sig) })
		}
	}
}

// Stop stops forwarding and unregisters the channel.
func (l *Listener) Stop() {
	logger.Info("[mpris] stopping listener")
	l.cancel()
	l.conn.RemoveSignal(l.ch)
	logger.Debug("[mpris] listener stopped")
}
