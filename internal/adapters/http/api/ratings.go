package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/okian/farbklang/internal/domain/model"
	"github.com/okian/farbklang/internal/domain/palette"
	"github.com/okian/farbklang/internal/domain/rating"
)

// maxRatingBody bounds POST /ratings payloads.
const maxRatingBody = 64 << 10

// RatingDependencies defines the interface for saving ratings.
type RatingDependencies interface {
	Save(ctx context.Context, id string, form rating.Form) (SaveResult, error)
}

// RatingsHandler handles rating submissions.
type RatingsHandler struct {
	deps RatingDependencies
}

// NewRatingsHandler creates a new ratings handler.
func NewRatingsHandler(deps RatingDependencies) *RatingsHandler {
	return &RatingsHandler{deps: deps}
}

// ratingRequest mirrors the OpenAPI schema for POST /ratings.
type ratingRequest struct {
	SubmissionID string       `json:"submission_id"`
	Song         string       `json:"song"`
	Colors       []string     `json:"colors"`
	Mood         *moodRequest `json:"mood"`
	Emotions     []string     `json:"emotions"`
}

// moodRequest lets clients send only the sliders they moved.
type moodRequest struct {
	ColdWarm         *float64 `json:"cold_warm"`
	GarishPastel     *float64 `json:"garish_pastel"`
	RoundPointy      *float64 `json:"round_pointy"`
	ShapeDynamics    *float64 `json:"shape_dynamics"`
	ColorTransitions *float64 `json:"color_transitions"`
	VisualDensity    *float64 `json:"visual_density"`
}

func (m *moodRequest) mood() *model.Mood {
	if m == nil {
		return nil
	}
	out := model.DefaultMood()
	set := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}
	set(&out.ColdWarm, m.ColdWarm)
	set(&out.GarishPastel, m.GarishPastel)
	set(&out.RoundPointy, m.RoundPointy)
	set(&out.ShapeDynamics, m.ShapeDynamics)
	set(&out.ColorTransitions, m.ColorTransitions)
	set(&out.VisualDensity, m.VisualDensity)
	return &out
}

func (r ratingRequest) form() (rating.Form, error) {
	f := rating.Form{
		Song:     r.Song,
		Mood:     r.Mood.mood(),
		Emotions: r.Emotions,
		Colors:   palette.Defaults,
	}
	switch len(r.Colors) {
	case 0:
	case palette.Slots:
		copy(f.Colors[:], r.Colors)
	default:
		return rating.Form{}, fmt.Errorf("%w: got %d colors", palette.ErrSlotCount, len(r.Colors))
	}
	return f, nil
}

type ratingResponse struct {
	Status string `json:"status"`
	SaveResult
}

// HandlePostRating handles POST /ratings requests. The submission id comes
// from the body or the Idempotency-Key header.
func (h *RatingsHandler) HandlePostRating(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_rating"
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var req ratingRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRatingBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("empty body")
		}
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	form, err := req.form()
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	id := strings.TrimSpace(req.SubmissionID)
	if id == "" {
		id = strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	}

	res, err := h.deps.Save(r.Context(), id, form)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	if res.Duplicate {
		writeJSON(w, http.StatusOK, ratingResponse{Status: "duplicate", SaveResult: res})
		return
	}
	writeJSON(w, http.StatusAccepted, ratingResponse{Status: "accepted", SaveResult: res})
}
