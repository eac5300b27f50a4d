package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/b0bbywan/go-odio-players/backend/mpris"
	"github.com/b0bbywan/go-odio-players/config"
	"github.com/b0bbywan/go-odio-players/events"
)

func TestRenderPlayers(t *testing.T) {
	if got := renderPlayers(nil); !strings.Contains(got, "no players") {
		t.Errorf("renderPlayers(nil) = %q", got)
	}

	got := renderPlayers([]mpris.PlayerInfo{
		{
			BusName:        "org.mpris.MediaPlayer2.vlc",
			Identity:       "VLC media player",
			PlaybackStatus: mpris.StatusPlaying,
			Track:          mpris.TrackMetadata{Artist: "Daft Punk", Title: "Da Funk"},
			Active:         true,
		},
		{
			BusName:        "org.mpris.MediaPlayer2.mpv",
			PlaybackStatus: mpris.StatusStopped,
		},
	})

	for _, want := range []string{
		"* ",
		"VLC media player",
		"org.mpris.MediaPlayer2.vlc",
		"Daft Punk - Da Funk",
		"org.mpris.MediaPlayer2.mpv",
		"nothing playing",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("renderPlayers() missing %q in:\n%s", want, got)
		}
	}
	if strings.Index(got, "vlc") > strings.Index(got, "mpv") {
		t.Error("players must keep their order")
	}
}

func TestRenderSummary(t *testing.T) {
	tests := []struct {
		name    string
		summary mpris.Summary
		want    []string
	}{
		{
			name: "no active player",
			want: []string{"no active player"},
		},
		{
			name: "title only",
			summary: mpris.Summary{
				BusName:        "org.mpris.MediaPlayer2.vlc",
				Title:          "Da Funk",
				PlaybackStatus: mpris.StatusPaused,
			},
			want: []string{"Paused", "Da Funk", "org.mpris.MediaPlayer2.vlc"},
		},
		{
			name: "focused and marked",
			summary: mpris.Summary{
				BusName:        "org.mpris.MediaPlayer2.vlc",
				Artist:         "Daft Punk",
				Title:          "Da Funk",
				PlaybackStatus: mpris.StatusPlaying,
				Focused:        true,
				Marked:         true,
			},
			want: []string{"Daft Punk - Da Funk", "[focused]", "(+)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := renderSummary(tt.summary)
			for _, want := range tt.want {
				if !strings.Contains(got, want) {
					t.Errorf("renderSummary() = %q, missing %q", got, want)
				}
			}
		})
	}
}

func TestWaitSettled(t *testing.T) {
	ch := make(chan events.Event, 8)
	for i := 0; i < 3; i++ {
		ch <- events.Event{Type: events.TypePlayerAdded}
	}

	start := time.Now()
	waitSettled(context.Background(), ch, 20*time.Millisecond, time.Second)
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("waitSettled took %v on a quiet channel", elapsed)
	}
	if len(ch) != 0 {
		t.Errorf("%d events left undrained", len(ch))
	}

	// a noisy channel is cut by the limit
	noisy := make(chan events.Event)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		for {
			select {
			case noisy <- events.Event{Type: events.TypePlayerUpdated}:
				time.Sleep(time.Millisecond)
			case <-ctx.Done():
				return
			}
		}
	}()
	start = time.Now()
	waitSettled(ctx, noisy, 50*time.Millisecond, 100*time.Millisecond)
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("waitSettled ignored its limit: %v", elapsed)
	}
}

func TestWatchActive(t *testing.T) {
	ch := make(chan events.Event, 3)
	ch <- events.Event{Type: events.TypePlayerActive, Data: mpris.Summary{BusName: "org.mpris.MediaPlayer2.vlc", Title: "Da Funk"}}
	ch <- events.Event{Type: events.TypePlayerActive, Data: "not a summary"}
	ch <- events.Event{Type: events.TypePlayerActive, Data: mpris.Summary{}}
	close(ch)

	var out bytes.Buffer
	if err := watchActive(context.Background(), ch, &out); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %q, want 2", lines)
	}
	if !strings.Contains(lines[0], "Da Funk") || !strings.Contains(lines[1], "no active player") {
		t.Errorf("output = %q", lines)
	}
}

func TestPlayersBackendDisabled(t *testing.T) {
	cfg := &config.Config{MPRIS: &config.MPRISConfig{Enabled: false}}
	if _, err := playersBackend(context.Background(), cfg); err == nil {
		t.Error("expected an error with mpris disabled")
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	if err := rootCmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if got, want := out.String(), config.AppName+" "+config.AppVersion+"\n"; got != want {
		t.Errorf("version output = %q, want %q", got, want)
	}
}
