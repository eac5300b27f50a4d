package mpris

import "time"

// PlaybackStatus represents the current playback state
type PlaybackStatus string

// Rank orders statuses for active player selection: Stopped < Paused < Playing.
func (s PlaybackStatus) Rank() int {
	switch s {
	case StatusPlaying:
		return 2
	case StatusPaused:
		return 1
	default:
		return 0
	}
}

func parsePlaybackStatus(s string) PlaybackStatus {
	switch PlaybackStatus(s) {
	case StatusPlaying, StatusPaused:
		return PlaybackStatus(s)
	default:
		return StatusStopped
	}
}

// LoopStatus represents the current loop/repeat state
type LoopStatus string

func (l LoopStatus) valid() bool {
	switch l {
	case LoopNone, LoopTrack, LoopPlaylist:
		return true
	}
	return false
}

// MimeClass tells whether a track is audio-like or video-like.
type MimeClass string

// PlayerIdentity identifies a discovered player.
type PlayerIdentity struct {
	BusName   string `json:"bus_name"`
	ProcessID uint32 `json:"pid,omitempty"`
	NameOwner string `json:"name_owner"`
}

// TrackMetadata is the canonical form of a track's metadata.
type TrackMetadata struct {
	ID       string    `json:"id"`
	CoverURL string    `json:"cover_url"`
	Artist   string    `json:"artist"`
	Title    string    `json:"title"`
	Mime     MimeClass `json:"mime"`
}

// Icon returns the generic icon matching the track's mime class.
func (t TrackMetadata) Icon() string {
	if t.Mime == MimeVideo {
		return ICON_VIDEO_GENERIC
	}
	return ICON_AUDIO_GENERIC
}

// PlaylistEntry is one playlist exposed by a player.
type PlaylistEntry struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Capabilities represents the actions supported by a player
type Capabilities struct {
	CanPlay       bool `json:"can_play"`
	CanPause      bool `json:"can_pause"`
	CanGoNext     bool `json:"can_go_next"`
	CanGoPrevious bool `json:"can_go_previous"`
	CanControl    bool `json:"can_control"`
	CanQuit       bool `json:"can_quit"`
	CanRaise      bool `json:"can_raise"`
}

// Controls is the UI-facing state derived from raw properties.
type Controls struct {
	PlayAction       string `json:"play_action,omitempty"`
	PlayIcon         string `json:"play_icon"`
	PlayReactive     bool   `json:"play_reactive"`
	NextReactive     bool   `json:"next_reactive"`
	PreviousReactive bool   `json:"previous_reactive"`
	StatusIcon       string `json:"status_icon"`
	ShuffleIcon      string `json:"shuffle_icon,omitempty"`
	LoopIcon         string `json:"loop_icon,omitempty"`
}

// Features lists which optional properties passed their self-test.
type Features struct {
	Shuffle bool `json:"shuffle"`
	Loop    bool `json:"loop"`
	Volume  bool `json:"volume"`
}

// PlayerInfo is the read-only view of a player published to the API.
type PlayerInfo struct {
	BusName          string         `json:"bus_name"`
	Identity         string         `json:"identity"`
	DesktopEntry     string         `json:"desktop_entry,omitempty"`
	ProcessID        uint32         `json:"pid,omitempty"`
	PlaybackStatus   PlaybackStatus `json:"playback_status"`
	LoopStatus       LoopStatus     `json:"loop_status,omitempty"`
	Shuffle          bool           `json:"shuffle"`
	Volume           float64        `json:"volume"`
	Track            TrackMetadata  `json:"track"`
	Capabilities     Capabilities   `json:"capabilities"`
	Controls         Controls       `json:"controls"`
	Features         Features       `json:"features"`
	HasTrackList     bool           `json:"has_tracklist"`
	HasPlaylists     bool           `json:"has_playlists"`
	PlaylistsTitle   string         `json:"playlists_title,omitempty"`
	Focused          bool           `json:"focused"`
	Active           bool           `json:"active"`
	LastStatusChange time.Time      `json:"last_status_change"`
	LastInteraction  time.Time      `json:"last_interaction,omitempty"`
}

// Summary describes the currently active player.
type Summary struct {
	BusName        string         `json:"bus_name"`
	Artist         string         `json:"artist"`
	Title          string         `json:"title"`
	Focused        bool           `json:"focused"`
	PlaybackStatus PlaybackStatus `json:"playback_status"`
	Marked         bool           `json:"marked"`
}

// TrackListInfo is the published track list of a player.
type TrackListInfo struct {
	BusName string          `json:"bus_name"`
	Tracks  []TrackMetadata `json:"tracks"`
}

// TrackEntryChange is published when one track's metadata is patched in place.
type TrackEntryChange struct {
	BusName string        `json:"bus_name"`
	OldID   string        `json:"old_id"`
	Track   TrackMetadata `json:"track"`
}

// PlaylistsInfo is the published playlist set of a player.
type PlaylistsInfo struct {
	BusName   string          `json:"bus_name"`
	Title     string          `json:"title"`
	Active    string          `json:"active,omitempty"`
	Playlists []PlaylistEntry `json:"playlists"`
}

// PlaylistEntryChange is published when a playlist is renamed.
type PlaylistEntryChange struct {
	BusName string        `json:"bus_name"`
	Entry   PlaylistEntry `json:"entry"`
}

// SelfTestSettings reports how capabilities a player does not advertise are self-tested.
type SelfTestSettings struct {
	Enabled bool   `json:"enabled"`
	Timeout string `json:"timeout"`
}

// PlayerRemoved is the payload of a removal event.
type PlayerRemoved struct {
	BusName string `json:"bus_name"`
}

// AppHandle is a running application matched to a player.
type AppHandle interface {
	Focused() bool
	Activate() error
	Quit() error
}

// AppMatcher finds the running application behind a player, if any.
type AppMatcher interface {
	FindApp(desktopEntry, displayName string, pid uint32, busOwner string) (AppHandle, bool)
}

// Request types for the API

type VolumeRequest struct {
	Volume float64 `json:"volume"`
}

type LoopRequest struct {
	Loop string `json:"loop"`
}

type ShuffleRequest struct {
	Shuffle bool `json:"shuffle"`
}

type FocusRequest struct {
	Focused bool `json:"focused"`
}

type GoToRequest struct {
	TrackID string `json:"track_id"`
}

type ActivatePlaylistRequest struct {
	PlaylistID string `json:"playlist_id"`
}
