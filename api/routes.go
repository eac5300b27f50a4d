package api

import (
	"net/http"

	"github.com/b0bbywan/go-odio-players/backend"
	"github.com/b0bbywan/go-odio-players/logger"
)

func (s *Server) registerServerRoutes(b *backend.Backend) {
	s.mux.HandleFunc(
		"GET /server",
		JSONHandler(func(w http.ResponseWriter, r *http.Request) (any, error) {
			return b.ServerInfo(), nil
		}),
	)

	if s.sse && s.broadcaster != nil {
		// a nil *MPRISBackend must not become a non-nil PlayerService
		var players PlayerService
		if b.MPRIS != nil {
			players = b.MPRIS
		}
		s.mux.HandleFunc("GET /events", sseHandler(s.broadcaster, players))
		logger.Info("[api] SSE route registered at /events")
	}
}

func (s *Server) registerMPRISRoutes(m PlayerService) {
	s.mux.HandleFunc("GET /players", ListPlayersHandler(m))
	s.mux.HandleFunc("GET /players/active", ActivePlayerHandler(m))
	s.mux.HandleFunc("GET /players/{player}", GetPlayerHandler(m))
	s.mux.HandleFunc("GET /players/{player}/tracks", TrackListHandler(m))
	s.mux.HandleFunc("GET /players/{player}/playlists", PlaylistsHandler(m))

	actions := map[string]http.HandlerFunc{
		"play_pause": withAction(m.PlayPause),
		"play":       withAction(m.Play),
		"stop":       withAction(m.Stop),
		"next":       withAction(m.Next),
		"previous":   withAction(m.Previous),
		"raise":      withAction(m.Raise),
		"quit":       withAction(m.Quit),

		"volume":             SetVolumeHandler(m),
		"loop":               SetLoopHandler(m),
		"shuffle":            SetShuffleHandler(m),
		"focus":              SetFocusHandler(m),
		"tracks/goto":        GoToHandler(m),
		"playlists/activate": ActivatePlaylistHandler(m),
	}
	for name, h := range actions {
		s.mux.HandleFunc("POST /players/{player}/"+name, h)
	}
}

func (s *Server) registerArtRoutes(m PlayerService, f ArtFetcher) {
	s.mux.HandleFunc("GET /players/{player}/art", ArtHandler(m, f))
	logger.Info("[api] artwork route registered at /players/{player}/art")
}
