package backend

import (
	"context"
	"sync"

	"github.com/b0bbywan/go-odio-players/events"
	"github.com/b0bbywan/go-odio-players/logger"
)

// subscriberBuffer is the channel size of each subscriber.
const subscriberBuffer = 32

type subscriber struct {
	accept  func(events.Event) bool
	dropped int
}

// Broadcaster copies every player event to its subscribers. A subscriber that
// does not keep up loses events; it never slows the others down.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[chan events.Event]*subscriber
}

// NewBroadcaster reads upstream until it closes or ctx ends.
func NewBroadcaster(ctx context.Context, upstream <-chan events.Event) *Broadcaster {
	b := &Broadcaster{subs: make(map[chan events.Event]*subscriber)}
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-upstream:
				if !ok {
					return
				}
				b.publish(e)
			}
		}
	}()
	return b
}

// Subscribe returns a channel receiving every event.
func (b *Broadcaster) Subscribe() chan events.Event {
	return b.SubscribeFunc(nil)
}

// SubscribeFunc returns a channel receiving the events accept lets through,
// every event when accept is nil.
func (b *Broadcaster) SubscribeFunc(accept func(events.Event) bool) chan events.Event {
	ch := make(chan events.Event, subscriberBuffer)
	b.mu.Lock()
	b.subs[ch] = &subscriber{accept: accept}
	b.mu.Unlock()
	return ch
}

// Unsubscribe closes ch. Unknown or already closed channels are ignored.
func (b *Broadcaster) Unsubscribe(ch chan events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub, ok := b.subs[ch]
	if !ok {
		return
	}
	delete(b.subs, ch)
	close(ch)
	if sub.dropped > 0 {
		logger.Debug("[events] subscriber left after losing %d events", sub.dropped)
	}
}

func (b *Broadcaster) publish(e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch, sub := range b.subs {
		if sub.accept != nil && !sub.accept(e) {
			continue
		}
		select {
		case ch <- e:
		default:
			// warn once per burst, not once per event
			if sub.dropped%100 == 0 {
				logger.Warn("[events] subscriber full, dropping %s event", e.Type)
			}
			sub.dropped++
		}
	}
}
