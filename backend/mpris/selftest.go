package mpris

import (
	"context"

	"github.com/godbus/dbus/v5"

	idbus "github.com/b0bbywan/go-odio-players/backend/internal/dbus"
	"github.com/b0bbywan/go-odio-players/logger"
)

// roundTrip describes the round trip used to check that an optional writable
// property actually works: write a different value, then restore the original.
type roundTrip struct {
	feature string
	prop    string
	away    func(v dbus.Variant) (away, original interface{}, ok bool)
}

var roundTrips = []roundTrip{
	{
		feature: FeatureShuffle,
		prop:    PROP_SHUFFLE,
		away: func(v dbus.Variant) (interface{}, interface{}, bool) {
			b, ok := idbus.ExtractBool(v)
			return !b, b, ok
		},
	},
	{
		feature: FeatureLoop,
		prop:    PROP_LOOP_STATUS,
		away: func(v dbus.Variant) (interface{}, interface{}, bool) {
			s, ok := idbus.ExtractString(v)
			if !ok {
				return nil, nil, false
			}
			away := string(LoopNone)
			if LoopStatus(s) == LoopNone {
				away = string(LoopPlaylist)
			}
			return away, s, true
		},
	},
	{
		feature: FeatureVolume,
		prop:    PROP_VOLUME,
		away: func(v dbus.Variant) (interface{}, interface{}, bool) {
			f, ok := idbus.ExtractFloat64(v)
			if !ok {
				return nil, nil, false
			}
			away := f + 0.1
			if f >= 0.5 {
				away = f - 0.1
			}
			return away, f, true
		},
	},
}

// selfTest is one pending feature check.
type selfTest struct {
	feature string
	stop    func()
	done    bool
}

// startSelfTests runs once, as soon as the player can be controlled. A feature is
// supported only if its round trip produces a PropertiesChanged for the
// property before the self-test timeout.
func (p *Player) startSelfTests() {
	if p.selfTestsStarted || !p.capabilities.CanControl {
		return
	}
	p.selfTestsStarted = true

	if !p.selfTestEnabled {
		for _, rt := range roundTrips {
			if _, ok := p.caps.player.value(rt.prop); ok {
				p.setFeature(rt.feature, true)
			}
		}
		p.rederive()
		return
	}

	for _, rt := range roundTrips {
		p.selfTests[rt.prop] = &selfTest{feature: rt.feature}
		px := p.caps.player
		p.sched.async(p.ctx, func(ctx context.Context) func() {
			v, err := px.get(ctx, rt.prop)
			if err != nil || v.Value() == nil {
				return func() { p.finishSelfTest(rt.prop, false) }
			}
			away, original, ok := rt.away(v)
			if !ok {
				return func() { p.finishSelfTest(rt.prop, false) }
			}
			if err := px.set(ctx, rt.prop, away); err != nil {
				return func() { p.finishSelfTest(rt.prop, false) }
			}
			if err := px.set(ctx, rt.prop, original); err != nil {
				logger.Debug("[mpris] failed to restore %s on %s: %v", rt.prop, p.identity.BusName, err)
			}
			return func() { p.armSelfTest(rt.prop) }
		})
	}
}

func (p *Player) armSelfTest(prop string) {
	pr, ok := p.selfTests[prop]
	if p.closed || !ok || pr.done {
		return
	}
	pr.stop = p.sched.after(p.selfTestTimeout, func() { p.finishSelfTest(prop, false) })
}

// observeSelfTests resolves pending self-tests whose property just changed. The
// caller publishes the resulting state.
func (p *Player) observeSelfTests(changed map[string]dbus.Variant) {
	for prop := range changed {
		if pr, ok := p.selfTests[prop]; ok && !pr.done {
			p.finishSelfTest(prop, true)
		}
	}
}

func (p *Player) finishSelfTest(prop string, supported bool) {
	pr, ok := p.selfTests[prop]
	if p.closed || !ok || pr.done {
		return
	}
	pr.done = true
	if pr.stop != nil {
		pr.stop()
	}
	logger.Debug("[mpris] %s %s supported: %v", p.identity.BusName, pr.feature, supported)
	if !supported {
		return
	}
	p.setFeature(pr.feature, true)
	p.rederive()
}

func (p *Player) setFeature(feature string, supported bool) {
	switch feature {
	case FeatureShuffle:
		p.features.Shuffle = supported
	case FeatureLoop:
		p.features.Loop = supported
	case FeatureVolume:
		p.features.Volume = supported
	}
}

func (p *Player) stopSelfTests() {
	for _, pr := range p.selfTests {
		if pr.stop != nil {
			pr.stop()
		}
		pr.done = true
	}
}
