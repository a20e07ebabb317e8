package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	service "github.com/okian/ourabridge/internal/app"
	"github.com/okian/ourabridge/internal/domain/model"
)

// RefreshHandler triggers an immediate poll cycle.
type RefreshHandler struct {
	deps Dependencies
}

// NewRefreshHandler creates a new refresh handler.
func NewRefreshHandler(deps Dependencies) *RefreshHandler {
	return &RefreshHandler{deps: deps}
}

type refreshResponse struct {
	CycleID   string                       `json:"cycle_id"`
	FetchedAt time.Time                    `json:"fetched_at"`
	Metrics   []string                     `json:"metrics"`
	Outcomes  map[model.Kind]model.Outcome `json:"outcomes"`
}

// HandleRefresh handles POST /refresh. A cycle already in flight yields
// 409 and a failed cycle yields 502 with the previous snapshot left in place.
// The cycle outlives a client that disconnects; the server write timeout
// bounds the wait.
func (h *RefreshHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	snap, err := h.deps.RunCycle(context.WithoutCancel(r.Context()))
	switch {
	case errors.Is(err, service.ErrCycleBusy):
		writeError(w, http.StatusConflict, "cycle_busy", err)
		return
	case err != nil:
		writeError(w, http.StatusBadGateway, "cycle_failed", err)
		return
	}
	writeJSON(w, http.StatusOK, refreshResponse{
		CycleID:   snap.CycleID,
		FetchedAt: snap.FetchedAt,
		Metrics:   model.MetricNames(snap.Kinds()),
		Outcomes:  snap.Outcomes,
	})
}
