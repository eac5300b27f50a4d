package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/b0bbywan/go-odio-players/backend/artwork"
	"github.com/b0bbywan/go-odio-players/backend/mpris"
)

// PlayerService is the player surface exposed over HTTP.
type PlayerService interface {
	ListPlayers() []mpris.PlayerInfo
	GetPlayer(busName string) (*mpris.PlayerInfo, error)
	ActivePlayer() (mpris.Summary, bool)
	TrackList(busName string) (mpris.TrackListInfo, error)
	Playlists(busName string) (mpris.PlaylistsInfo, error)
	CoverURL(busName, trackID string) (string, error)

	PlayPause(ctx context.Context, busName string) error
	Play(ctx context.Context, busName string) error
	Stop(ctx context.Context, busName string) error
	Next(ctx context.Context, busName string) error
	Previous(ctx context.Context, busName string) error
	Raise(ctx context.Context, busName string) error
	Quit(ctx context.Context, busName string) error
	SetVolume(ctx context.Context, busName string, volume float64) error
	SetShuffle(ctx context.Context, busName string, shuffle bool) error
	SetLoopStatus(ctx context.Context, busName string, status mpris.LoopStatus) error
	SetFocused(ctx context.Context, busName string, focused bool) error
	GoTo(ctx context.Context, busName, trackID string) error
	ActivatePlaylist(ctx context.Context, busName, playlistID string) error
}

// ArtFetcher loads cover art bytes.
type ArtFetcher interface {
	Fetch(ctx context.Context, rawURL string) (artwork.Image, error)
}

// ListPlayersHandler returns every known player.
func ListPlayersHandler(m PlayerService) http.HandlerFunc {
	return JSONHandler(func(w http.ResponseWriter, r *http.Request) (any, error) {
		players := m.ListPlayers()
		if players == nil {
			players = []mpris.PlayerInfo{}
		}
		return players, nil
	})
}

// ActivePlayerHandler returns the active player summary, 204 when there is none.
func ActivePlayerHandler(m PlayerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, ok := m.ActivePlayer()
		if !ok {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		JSONHandler(func(w http.ResponseWriter, r *http.Request) (any, error) {
			return summary, nil
		})(w, r)
	}
}

func GetPlayerHandler(m PlayerService) http.HandlerFunc {
	return JSONHandler(func(w http.ResponseWriter, r *http.Request) (any, error) {
		return m.GetPlayer(r.PathValue("player"))
	})
}

func TrackListHandler(m PlayerService) http.HandlerFunc {
	return JSONHandler(func(w http.ResponseWriter, r *http.Request) (any, error) {
		return m.TrackList(r.PathValue("player"))
	})
}

func PlaylistsHandler(m PlayerService) http.HandlerFunc {
	return JSONHandler(func(w http.ResponseWriter, r *http.Request) (any, error) {
		return m.Playlists(r.PathValue("player"))
	})
}

// ArtHandler serves the cover of the current track, or of ?track= when given.
func ArtHandler(m PlayerService, f ArtFetcher) http.HandlerFunc {
	return withPlayer(func(w http.ResponseWriter, r *http.Request, busName string) {
		coverURL, err := m.CoverURL(busName, r.URL.Query().Get("track"))
		if err != nil {
			writeError(w, err)
			return
		}
		if coverURL == "" {
			http.Error(w, "no artwork for "+busName, http.StatusNotFound)
			return
		}

		img, err := f.Fetch(r.Context(), coverURL)
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", img.ContentType)
		w.Header().Set("Cache-Control", "private, max-age=300")
		_, _ = w.Write(img.Data)
	})
}

// withPlayer extracts the bus name and calls next.
func withPlayer(
	next func(w http.ResponseWriter, r *http.Request, busName string),
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		busName := r.PathValue("player")
		next(w, r, busName)
	}
}

// withBody decodes and validates the JSON body, then calls next.
func withBody[T any](
	validate func(*T) error,
	next func(w http.ResponseWriter, r *http.Request, req *T),
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()

		var req T
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid JSON payload", http.StatusBadRequest)
			return
		}

		if validate != nil {
			if err := validate(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		}

		next(w, r, &req)
	}
}

// withAction runs a body-less player action.
func withAction(action func(ctx context.Context, busName string) error) http.HandlerFunc {
	return withPlayer(func(w http.ResponseWriter, r *http.Request, busName string) {
		handleMPRISError(w, action(r.Context(), busName))
	})
}

func SetVolumeHandler(m PlayerService) http.HandlerFunc {
	return withPlayer(func(w http.ResponseWriter, r *http.Request, busName string) {
		withBody(nil, func(w http.ResponseWriter, r *http.Request, req *mpris.VolumeRequest) {
			handleMPRISError(w, m.SetVolume(r.Context(), busName, req.Volume))
		})(w, r)
	})
}

func SetLoopHandler(m PlayerService) http.HandlerFunc {
	return withPlayer(func(w http.ResponseWriter, r *http.Request, busName string) {
		withBody(nil, func(w http.ResponseWriter, r *http.Request, req *mpris.LoopRequest) {
			handleMPRISError(w, m.SetLoopStatus(r.Context(), busName, mpris.LoopStatus(req.Loop)))
		})(w, r)
	})
}

func SetShuffleHandler(m PlayerService) http.HandlerFunc {
	return withPlayer(func(w http.ResponseWriter, r *http.Request, busName string) {
		withBody(nil, func(w http.ResponseWriter, r *http.Request, req *mpris.ShuffleRequest) {
			handleMPRISError(w, m.SetShuffle(r.Context(), busName, req.Shuffle))
		})(w, r)
	})
}

func SetFocusHandler(m PlayerService) http.HandlerFunc {
	return withPlayer(func(w http.ResponseWriter, r *http.Request, busName string) {
		withBody(nil, func(w http.ResponseWriter, r *http.Request, req *mpris.FocusRequest) {
			handleMPRISError(w, m.SetFocused(r.Context(), busName, req.Focused))
		})(w, r)
	})
}

func GoToHandler(m PlayerService) http.HandlerFunc {
	return withPlayer(func(w http.ResponseWriter, r *http.Request, busName string) {
		withBody(
			func(req *mpris.GoToRequest) error {
				if req.TrackID == "" {
					return &mpris.ValidationError{Field: "track_id", Message: "cannot be empty"}
				}
				return nil
			},
			func(w http.ResponseWriter, r *http.Request, req *mpris.GoToRequest) {
				handleMPRISError(w, m.GoTo(r.Context(), busName, req.TrackID))
			},
		)(w, r)
	})
}

func ActivatePlaylistHandler(m PlayerService) http.HandlerFunc {
	return withPlayer(func(w http.ResponseWriter, r *http.Request, busName string) {
		withBody(nil, func(w http.ResponseWriter, r *http.Request, req *mpris.ActivatePlaylistRequest) {
			handleMPRISError(w, m.ActivatePlaylist(r.Context(), busName, req.PlaylistID))
		})(w, r)
	})
}
