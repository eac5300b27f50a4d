package backend

import (
	"os"
	"runtime"

	"github.com/b0bbywan/go-odio-players/backend/mpris"
	"github.com/b0bbywan/go-odio-players/config"
	"github.com/b0bbywan/go-odio-players/logger"
)

const UNKNOWN = "unknown"

// ServerInfo is the answer of GET /server.
type ServerInfo struct {
	Hostname string         `json:"hostname"`
	Platform string         `json:"platform"`
	App      string         `json:"app"`
	Version  string         `json:"version"`
	Backends Backends       `json:"backends"`
	Players  *PlayersReport `json:"players,omitempty"`
}

type Backends struct {
	MPRIS    bool `json:"mpris"`
	Artwork  bool `json:"artwork"`
	Zeroconf bool `json:"zeroconf"`
}

// PlayersReport counts the players currently published. Absent when the
// players backend is disabled.
type PlayersReport struct {
	Count      int                    `json:"count"`
	Playing    int                    `json:"playing"`
	Paused     int                    `json:"paused"`
	TrackLists int                    `json:"tracklists"`
	Playlists  int                    `json:"playlists"`
	Active     string                 `json:"active,omitempty"`
	SelfTest   mpris.SelfTestSettings `json:"selftest"`
}

func newPlayersReport(players []mpris.PlayerInfo, active string, selfTest mpris.SelfTestSettings) *PlayersReport {
	r := &PlayersReport{Count: len(players), Active: active, SelfTest: selfTest}
	for _, p := range players {
		switch p.PlaybackStatus {
		case mpris.StatusPlaying:
			r.Playing++
		case mpris.StatusPaused:
			r.Paused++
		}
		if p.HasTrackList {
			r.TrackLists++
		}
		if p.HasPlaylists {
			r.Playlists++
		}
	}
	return r
}

func (b *Backend) ServerInfo() ServerInfo {
	hostname, err := os.Hostname()
	if err != nil {
		logger.Debug("[backend] failed to get hostname: %v", err)
		hostname = UNKNOWN
	}

	info := ServerInfo{
		Hostname: hostname,
		Platform: runtime.GOOS + "/" + runtime.GOARCH,
		App:      config.AppName,
		Version:  config.AppVersion,
		Backends: Backends{
			MPRIS:    b.MPRIS != nil,
			Artwork:  b.Artwork != nil,
			Zeroconf: b.Zeroconf != nil,
		},
	}
	if b.MPRIS != nil {
		active, _ := b.MPRIS.ActivePlayer()
		info.Players = newPlayersReport(b.MPRIS.ListPlayers(), active.BusName, b.MPRIS.SelfTestSettings())
	}
	return info
}
