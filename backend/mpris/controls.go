package mpris

import "math"

// deriveControls computes the UI-facing control state from raw properties.
func deriveControls(caps Capabilities, status PlaybackStatus, shuffle bool, loop LoopStatus, features Features) Controls {
	ctl := Controls{
		PlayIcon:   ICON_PLAY,
		StatusIcon: statusIcon(status),
	}

	switch {
	case !caps.CanControl:
	case caps.CanPlay && caps.CanPause:
		ctl.PlayAction = ActionPlayPause
		ctl.PlayReactive = true
		if status == StatusPlaying {
			ctl.PlayIcon = ICON_PAUSE
		}
	case caps.CanPlay:
		ctl.PlayReactive = true
		ctl.PlayAction = ActionPlay
		if status == StatusPlaying {
			ctl.PlayAction = ActionStop
			ctl.PlayIcon = ICON_STOP
		}
	}

	ctl.NextReactive = caps.CanControl && caps.CanGoNext
	ctl.PreviousReactive = caps.CanControl && caps.CanGoPrevious

	if features.Shuffle {
		ctl.ShuffleIcon = ICON_SHUFFLE_OFF
		if shuffle {
			ctl.ShuffleIcon = ICON_SHUFFLE
		}
	}
	if features.Loop {
		ctl.LoopIcon = loopIcon(loop)
	}
	return ctl
}

func statusIcon(status PlaybackStatus) string {
	switch status {
	case StatusPlaying:
		return ICON_PLAY
	case StatusPaused:
		return ICON_PAUSE
	default:
		return ICON_STOP
	}
}

func loopIcon(loop LoopStatus) string {
	switch loop {
	case LoopTrack:
		return ICON_REPEAT_SONG
	case LoopPlaylist:
		return ICON_REPEAT
	default:
		return ICON_REPEAT_OFF
	}
}

// normalizeVolume clamps to [0,1] and rounds to two decimals.
func normalizeVolume(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	v = math.Max(0, math.Min(1, v))
	return math.Round(v*100) / 100
}
