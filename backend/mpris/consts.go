package mpris

const (
	CACHE_KEY = "players"

	// MPRIS D-Bus constants
	MPRIS_PREFIX          = "org.mpris.MediaPlayer2"
	MPRIS_PATH            = "/org/mpris/MediaPlayer2"
	MPRIS_INTERFACE       = "org.mpris.MediaPlayer2"
	MPRIS_PLAYER_IFACE    = MPRIS_INTERFACE + ".Player"
	MPRIS_TRACKLIST_IFACE = MPRIS_INTERFACE + ".TrackList"
	MPRIS_PLAYLISTS_IFACE = MPRIS_INTERFACE + ".Playlists"

	// MPRIS base methods
	MPRIS_METHOD_RAISE = MPRIS_INTERFACE + ".Raise"
	MPRIS_METHOD_QUIT  = MPRIS_INTERFACE + ".Quit"

	// MPRIS Player methods
	MPRIS_METHOD_PLAY       = MPRIS_PLAYER_IFACE + ".Play"
	MPRIS_METHOD_PLAY_PAUSE = MPRIS_PLAYER_IFACE + ".PlayPause"
	MPRIS_METHOD_STOP       = MPRIS_PLAYER_IFACE + ".Stop"
	MPRIS_METHOD_NEXT       = MPRIS_PLAYER_IFACE + ".Next"
	MPRIS_METHOD_PREVIOUS   = MPRIS_PLAYER_IFACE + ".Previous"

	// MPRIS TrackList methods and signals
	MPRIS_METHOD_GET_TRACKS_METADATA = MPRIS_TRACKLIST_IFACE + ".GetTracksMetadata"
	MPRIS_METHOD_GOTO                = MPRIS_TRACKLIST_IFACE + ".GoTo"
	MPRIS_SIGNAL_TRACKLIST_REPLACED  = MPRIS_TRACKLIST_IFACE + ".TrackListReplaced"
	MPRIS_SIGNAL_TRACK_ADDED         = MPRIS_TRACKLIST_IFACE + ".TrackAdded"
	MPRIS_SIGNAL_TRACK_REMOVED       = MPRIS_TRACKLIST_IFACE + ".TrackRemoved"
	MPRIS_SIGNAL_TRACK_META_CHANGED  = MPRIS_TRACKLIST_IFACE + ".TrackMetadataChanged"

	// MPRIS Playlists methods and signals
	MPRIS_METHOD_ACTIVATE_PLAYLIST = MPRIS_PLAYLISTS_IFACE + ".ActivatePlaylist"
	MPRIS_METHOD_GET_PLAYLISTS     = MPRIS_PLAYLISTS_IFACE + ".GetPlaylists"
	MPRIS_SIGNAL_PLAYLIST_CHANGED  = MPRIS_PLAYLISTS_IFACE + ".PlaylistChanged"
)

// Property names
const (
	PROP_CAN_QUIT      = "CanQuit"
	PROP_CAN_RAISE     = "CanRaise"
	PROP_IDENTITY      = "Identity"
	PROP_DESKTOP_ENTRY = "DesktopEntry"

	PROP_CAN_CONTROL     = "CanControl"
	PROP_CAN_GO_NEXT     = "CanGoNext"
	PROP_CAN_GO_PREVIOUS = "CanGoPrevious"
	PROP_CAN_PLAY        = "CanPlay"
	PROP_CAN_PAUSE       = "CanPause"
	PROP_METADATA        = "Metadata"
	PROP_PLAYBACK_STATUS = "PlaybackStatus"
	PROP_SHUFFLE         = "Shuffle"
	PROP_LOOP_STATUS     = "LoopStatus"
	PROP_VOLUME          = "Volume"

	PROP_TRACKS = "Tracks"

	PROP_PLAYLIST_COUNT  = "PlaylistCount"
	PROP_ORDERINGS       = "Orderings"
	PROP_ACTIVE_PLAYLIST = "ActivePlaylist"
)

// MPRIS_NO_TRACK is the well-known track ID meaning "no current track".
const MPRIS_NO_TRACK = "/org/mpris/MediaPlayer2/TrackList/NoTrack"

// MPRIS_RESERVED_PREFIX is reserved by the protocol; track ids starting with it are invalid.
const MPRIS_RESERVED_PREFIX = "/org/mpris/"

// Preferred ordering when listing playlists.
const ORDERING_ALPHABETICAL = "Alphabetical"

// Fallback display title of the playlist tracker.
const DEFAULT_PLAYLISTS_TITLE = "Playlists"

// Metadata keys
const (
	META_TRACK_ID     = "mpris:trackid"
	META_ART_URL      = "mpris:artUrl"
	META_ARTIST       = "xesam:artist"
	META_ALBUM_ARTIST = "xesam:albumArtist"
	META_COMPOSER     = "xesam:composer"
	META_LYRICIST     = "xesam:lyricist"
	META_STREAM_TITLE = "rhythmbox:streamTitle"
	META_TITLE        = "xesam:title"
	META_TRACK_NUMBER = "xesam:trackNumber"
	META_ALBUM        = "xesam:album"
	META_DISC_NUMBER  = "xesam:discNumber"
	META_URL          = "xesam:url"
)

const (
	StatusPlaying PlaybackStatus = "Playing"
	StatusPaused  PlaybackStatus = "Paused"
	StatusStopped PlaybackStatus = "Stopped"
)

const (
	LoopNone     LoopStatus = "None"
	LoopTrack    LoopStatus = "Track"
	LoopPlaylist LoopStatus = "Playlist"
)

const (
	MimeAudio MimeClass = "audio"
	MimeVideo MimeClass = "video"
)

// Icon names derived from player state.
const (
	ICON_PLAY          = "media-playback-start-symbolic"
	ICON_PAUSE         = "media-playback-pause-symbolic"
	ICON_STOP          = "media-playback-stop-symbolic"
	ICON_REPEAT        = "media-playlist-repeat-symbolic"
	ICON_REPEAT_SONG   = "media-playlist-repeat-song-symbolic"
	ICON_REPEAT_OFF    = "media-playlist-consecutive-symbolic"
	ICON_SHUFFLE       = "media-playlist-shuffle-symbolic"
	ICON_SHUFFLE_OFF   = "media-playlist-consecutive-symbolic"
	ICON_AUDIO_GENERIC = "audio-x-generic-symbolic"
	ICON_VIDEO_GENERIC = "video-x-generic-symbolic"
)

// Actions of the main transport button.
const (
	ActionPlayPause = "play_pause"
	ActionPlay      = "play"
	ActionStop      = "stop"
)

// Names of optionally supported features.
const (
	FeatureShuffle = "shuffle"
	FeatureLoop    = "loop"
	FeatureVolume  = "volume"
)
