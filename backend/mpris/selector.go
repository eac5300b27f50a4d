package mpris

// outranks reports whether a should be the active player rather than b.
// Priority: focus, playback status, last interaction, last status change,
// then the most recently discovered player.
func outranks(a, b *Player) bool {
	if af, bf := a.Focused(), b.Focused(); af != bf {
		return af
	}
	if ar, br := a.status.Rank(), b.status.Rank(); ar != br {
		return ar > br
	}
	if !a.lastInteraction.Equal(b.lastInteraction) {
		return a.lastInteraction.After(b.lastInteraction)
	}
	if !a.lastStatusChange.Equal(b.lastStatusChange) {
		return a.lastStatusChange.After(b.lastStatusChange)
	}
	return a.order > b.order
}

// selectActive returns the highest ranked player, nil when there is none.
func selectActive(players map[string]*Player) *Player {
	var best *Player
	for _, p := range players {
		if best == nil || outranks(p, best) {
			best = p
		}
	}
	return best
}

// selector keeps the published summary of the active player.
type selector struct {
	active  string
	summary Summary

	// Changed fires with the new summary, or the zero Summary once no
	// player is left.
	Changed emitter[Summary]
}

// update recomputes the active player and emits only when the summary changed.
func (s *selector) update(players map[string]*Player) *Player {
	winner := selectActive(players)

	var summary Summary
	if winner != nil {
		track := winner.Track()
		summary = Summary{
			BusName:        winner.BusName(),
			Artist:         track.Artist,
			Title:          track.Title,
			Focused:        winner.Focused(),
			PlaybackStatus: winner.Status(),
			Marked:         len(players) > 1,
		}
	}

	s.active = summary.BusName
	if summary == s.summary {
		return winner
	}
	s.summary = summary
	s.Changed.emit(summary)
	return winner
}
