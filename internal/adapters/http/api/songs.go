package api

import (
	"context"
	"net/http"
)

// SongDependencies defines the interface for listing stored ratings.
type SongDependencies interface {
	Songs(ctx context.Context) ([]Song, error)
	Reload(ctx context.Context) (int, error)
}

// SongsHandler handles the song list.
type SongsHandler struct {
	deps SongDependencies
}

// NewSongsHandler creates a new songs handler.
func NewSongsHandler(deps SongDependencies) *SongsHandler {
	return &SongsHandler{deps: deps}
}

type songsResponse struct {
	Count int    `json:"count"`
	Songs []Song `json:"songs"`
}

// HandleGetSongs handles GET /songs requests.
func (h *SongsHandler) HandleGetSongs(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_songs"
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	songs, err := h.deps.Songs(r.Context())
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	if songs == nil {
		songs = []Song{}
	}
	writeJSON(w, http.StatusOK, songsResponse{Count: len(songs), Songs: songs})
}

type reloadResponse struct {
	Records int `json:"records"`
}

// HandleReload handles POST /reload requests, rereading the store at once.
func (h *SongsHandler) HandleReload(w http.ResponseWriter, r *http.Request) {
	const op = "api.reload"
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	n, err := h.deps.Reload(r.Context())
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, reloadResponse{Records: n})
}
