package mpris

import (
	"context"
	"errors"
	"slices"
	"testing"
)

func TestWatcherStart(t *testing.T) {
	conn := newFakeConn()
	conn.add("org.mpris.MediaPlayer2.vlc", newFakePlayer(":1.2", "VLC"))
	conn.add("org.mpris.MediaPlayer2.Spotify", newFakePlayer(":1.3", "Spotify"))
	conn.add("org.mpris.MediaPlayer2.audacious", newFakePlayer(":1.4", "Audacious"))
	conn.extra = []string{"org.mpris.MediaPlayer2", "org.mpris.MediaPlayer2Extra.x", "org.freedesktop.Notifications"}

	w := newWatcher(conn)
	names, err := w.start(context.Background())
	if err != nil {
		t.Fatalf("start() error = %v", err)
	}

	want := []string{
		"org.mpris.MediaPlayer2.audacious",
		"org.mpris.MediaPlayer2.Spotify",
		"org.mpris.MediaPlayer2.vlc",
	}
	if !slices.Equal(names, want) {
		t.Errorf("names = %v, want %v", names, want)
	}
	if got := conn.activeMatches(); got != 1 {
		t.Errorf("active matches = %d, want 1", got)
	}

	w.stop()
	if got := conn.activeMatches(); got != 0 {
		t.Errorf("active matches after stop = %d", got)
	}
}

func TestWatcherStartListFailure(t *testing.T) {
	conn := newFakeConn()
	conn.listErr = errors.New("bus unavailable")

	w := newWatcher(conn)
	var found []string
	w.Discovered.On(func(name string) { found = append(found, name) })

	if _, err := w.start(context.Background()); err == nil {
		t.Fatal("start() error = nil")
	}
	if got := conn.activeMatches(); got != 0 {
		t.Errorf("active matches = %d, want 0", got)
	}

	// handlers stay registered until stop runs on the loop
	w.handle(nameOwnerChanged(testBus, "", ":1.9"))
	if !slices.Equal(found, []string{testBus}) {
		t.Errorf("discovered = %v", found)
	}

	w.stop()
	if got := conn.activeMatches(); got != 0 {
		t.Errorf("active matches after stop = %d, want 0", got)
	}
	w.handle(nameOwnerChanged(otherBus, "", ":1.10"))
	if len(found) != 1 {
		t.Errorf("discovered after stop = %v", found)
	}
}

func TestWatcherHandle(t *testing.T) {
	tests := []struct {
		name string
		sig  [3]string
		want []string
	}{
		{name: "appear", sig: [3]string{testBus, "", ":1.9"}, want: []string{"+" + testBus}},
		{name: "vanish", sig: [3]string{testBus, ":1.9", ""}, want: []string{"-" + testBus}},
		{name: "handover", sig: [3]string{testBus, ":1.9", ":1.10"}, want: []string{"-" + testBus, "+" + testBus}},
		{name: "not a player", sig: [3]string{"org.freedesktop.Notifications", "", ":1.9"}},
		{name: "prefix without separator", sig: [3]string{"org.mpris.MediaPlayer2Extra", "", ":1.9"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newWatcher(newFakeConn())
			var got []string
			w.Discovered.On(func(name string) { got = append(got, "+"+name) })
			w.Removed.On(func(name string) { got = append(got, "-"+name) })

			w.handle(nameOwnerChanged(tt.sig[0], tt.sig[1], tt.sig[2]))

			if !slices.Equal(got, tt.want) {
				t.Errorf("events = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWatcherIgnoresMalformedSignal(t *testing.T) {
	w := newWatcher(newFakeConn())
	fired := false
	w.Discovered.On(func(string) { fired = true })

	sig := nameOwnerChanged(testBus, "", ":1.9")
	sig.Body = sig.Body[:1]
	w.handle(sig)

	if fired {
		t.Error("malformed signal produced a discovery")
	}
}

func TestValidateBusName(t *testing.T) {
	tests := []struct {
		name    string
		busName string
		wantErr bool
	}{
		{"valid", "org.mpris.MediaPlayer2.vlc", false},
		{"instance suffix", "org.mpris.MediaPlayer2.vlc.instance_1234", false},
		{"dash", "org.mpris.MediaPlayer2.my-player", false},
		{"empty", "", true},
		{"wrong prefix", "org.freedesktop.Notifications", true},
		{"bare prefix", "org.mpris.MediaPlayer2", true},
		{"empty element", "org.mpris.MediaPlayer2..vlc", true},
		{"trailing dot", "org.mpris.MediaPlayer2.vlc.", true},
		{"illegal character", "org.mpris.MediaPlayer2.vlc/1", true},
		{"space", "org.mpris.MediaPlayer2.my player", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBusName(tt.busName)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateBusName(%q) error = %v, wantErr %v", tt.busName, err, tt.wantErr)
			}
		})
	}
}
