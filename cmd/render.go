package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/b0bbywan/go-odio-players/backend/mpris"
)

var (
	colorAccent  = lipgloss.Color("#7C3AED")
	colorPlaying = lipgloss.Color("#10B981")
	colorPaused  = lipgloss.Color("#F59E0B")
	colorMuted   = lipgloss.Color("#9CA3AF")
)

var (
	identityStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle    = lipgloss.NewStyle().Foreground(colorMuted)
	activeStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	playingStyle  = lipgloss.NewStyle().Foreground(colorPlaying)
	pausedStyle   = lipgloss.NewStyle().Foreground(colorPaused)
	trackStyle    = lipgloss.NewStyle().PaddingLeft(4)
)

func statusStyle(status mpris.PlaybackStatus) lipgloss.Style {
	switch status {
	case mpris.StatusPlaying:
		return playingStyle
	case mpris.StatusPaused:
		return pausedStyle
	default:
		return mutedStyle
	}
}

func trackLine(artist, title string) string {
	parts := make([]string, 0, 2)
	for _, s := range []string{artist, title} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return mutedStyle.Render("nothing playing")
	}
	return strings.Join(parts, " - ")
}

// renderPlayers lists the players in discovery order, the active one marked.
func renderPlayers(players []mpris.PlayerInfo) string {
	if len(players) == 0 {
		return mutedStyle.Render("no players")
	}

	rows := make([]string, 0, 2*len(players))
	for _, p := range players {
		marker := "  "
		if p.Active {
			marker = activeStyle.Render("* ")
		}
		name := p.Identity
		if name == "" {
			name = p.BusName
		}
		rows = append(rows,
			marker+identityStyle.Render(name)+" "+mutedStyle.Render(p.BusName),
			trackStyle.Render(
				statusStyle(p.PlaybackStatus).Render(fmt.Sprintf("%-8s", p.PlaybackStatus))+
					" "+trackLine(p.Track.Artist, p.Track.Title),
			),
		)
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// renderSummary renders one active-player summary on a single line.
func renderSummary(s mpris.Summary) string {
	if s.BusName == "" {
		return mutedStyle.Render("no active player")
	}
	line := statusStyle(s.PlaybackStatus).Render(string(s.PlaybackStatus)) +
		" " + trackLine(s.Artist, s.Title) +
		" " + mutedStyle.Render(s.BusName)
	if s.Focused {
		line += " " + activeStyle.Render("[focused]")
	}
	if s.Marked {
		line += " " + mutedStyle.Render("(+)")
	}
	return line
}
