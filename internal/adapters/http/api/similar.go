package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/farbklang/internal/domain/palette"
)

// SimilarDependencies defines the interface for similarity queries.
type SimilarDependencies interface {
	Similar(ctx context.Context, colors [palette.Slots]string, k int) (Similar, error)
	SimilarLimit() int
	MaxSimilarLimit() int
}

// SimilarHandler handles similarity queries.
type SimilarHandler struct {
	deps SimilarDependencies
}

// NewSimilarHandler creates a new similar handler.
func NewSimilarHandler(deps SimilarDependencies) *SimilarHandler {
	return &SimilarHandler{deps: deps}
}

// HandleGetSimilar handles GET /similar?c1=&c2=&c3=&limit= requests.
// Colors may omit the leading '#'.
func (h *SimilarHandler) HandleGetSimilar(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_similar"
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	q := r.URL.Query()

	var colors [palette.Slots]string
	for i := range colors {
		key := "c" + strconv.Itoa(i+1)
		colors[i] = strings.TrimSpace(q.Get(key))
		if colors[i] == "" {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, fmt.Errorf("missing %s", key)))
			return
		}
	}

	k := h.deps.SimilarLimit()
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, fmt.Errorf("invalid limit %q", raw)))
			return
		}
		if n > h.deps.MaxSimilarLimit() {
			writeError(w, http.StatusBadRequest, "limit_exceeded",
				WrapKind(op, ErrLimitExceeded, fmt.Errorf("limit %d > %d", n, h.deps.MaxSimilarLimit())))
			return
		}
		k = n
	}

	res, err := h.deps.Similar(r.Context(), colors, k)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
