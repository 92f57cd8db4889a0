package api

import (
	"context"
	"net/http"
)

// OptionDependencies defines the interface for form options.
type OptionDependencies interface {
	Options(ctx context.Context) Options
}

// OptionsHandler serves the form description.
type OptionsHandler struct {
	deps OptionDependencies
}

// NewOptionsHandler creates a new options handler.
func NewOptionsHandler(deps OptionDependencies) *OptionsHandler {
	return &OptionsHandler{deps: deps}
}

// HandleGetOptions handles GET /options requests.
func (h *OptionsHandler) HandleGetOptions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Options(r.Context()))
}
