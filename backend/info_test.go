package backend

import (
	"testing"

	"github.com/b0bbywan/go-odio-players/backend/mpris"
	"github.com/b0bbywan/go-odio-players/config"
)

func TestServerInfoWithoutPlayers(t *testing.T) {
	info := (&Backend{}).ServerInfo()

	if info.App != config.AppName || info.Version != config.AppVersion {
		t.Errorf("app = %s %s", info.App, info.Version)
	}
	if info.Hostname == "" || info.Platform == "" {
		t.Errorf("host info = %+v", info)
	}
	if info.Backends != (Backends{}) {
		t.Errorf("Backends = %+v, want none", info.Backends)
	}
	if info.Players != nil {
		t.Errorf("Players = %+v, want nil with the players backend disabled", info.Players)
	}
}

func TestNewPlayersReport(t *testing.T) {
	selfTest := mpris.SelfTestSettings{Enabled: true, Timeout: "1s"}

	tests := []struct {
		name    string
		players []mpris.PlayerInfo
		active  string
		want    PlayersReport
	}{
		{
			name: "no players",
			want: PlayersReport{SelfTest: selfTest},
		},
		{
			name: "mixed players",
			players: []mpris.PlayerInfo{
				{BusName: "org.mpris.MediaPlayer2.vlc", PlaybackStatus: mpris.StatusPlaying, HasTrackList: true},
				{BusName: "org.mpris.MediaPlayer2.mpv", PlaybackStatus: mpris.StatusPaused},
				{BusName: "org.mpris.MediaPlayer2.audacious", PlaybackStatus: mpris.StatusStopped, HasTrackList: true, HasPlaylists: true},
			},
			active: "org.mpris.MediaPlayer2.vlc",
			want: PlayersReport{
				Count:      3,
				Playing:    1,
				Paused:     1,
				TrackLists: 2,
				Playlists:  1,
				Active:     "org.mpris.MediaPlayer2.vlc",
				SelfTest:   selfTest,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := newPlayersReport(tt.players, tt.active, selfTest); *got != tt.want {
				t.Errorf("newPlayersReport() = %+v, want %+v", *got, tt.want)
			}
		})
	}
}
