package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	service "github.com/okian/ourabridge/internal/app"
	"github.com/okian/ourabridge/internal/domain/model"
)

// SnapshotHandler serves the current snapshot and single records from it.
type SnapshotHandler struct {
	deps Dependencies
}

// NewSnapshotHandler creates a new snapshot handler.
func NewSnapshotHandler(deps Dependencies) *SnapshotHandler {
	return &SnapshotHandler{deps: deps}
}

type snapshotResponse struct {
	model.Snapshot
	Stale bool `json:"stale"`
}

type recordResponse struct {
	Metric  string       `json:"metric"`
	CycleID string       `json:"cycle_id"`
	Stale   bool         `json:"stale"`
	Record  model.Record `json:"record"`
}

// HandleSnapshot handles GET /snapshot requests.
func (h *SnapshotHandler) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	snap, ok := h.current(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, snapshotResponse{Snapshot: snap, Stale: h.deps.Status().Stale})
}

// HandleRecord handles GET /records/{metric} requests.
func (h *SnapshotHandler) HandleRecord(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/records/")
	if name == "" || strings.Contains(name, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	kind, ok := model.ParseKind(name)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown_metric", fmt.Errorf("%w: %s", ErrUnknownMetric, name))
		return
	}
	snap, ok := h.current(w)
	if !ok {
		return
	}
	rec, ok := snap.Get(kind)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", fmt.Errorf("%w: %s", ErrMetricAbsent, name))
		return
	}
	writeJSON(w, http.StatusOK, recordResponse{
		Metric:  kind.String(),
		CycleID: snap.CycleID,
		Stale:   h.deps.Status().Stale,
		Record:  rec,
	})
}

func (h *SnapshotHandler) current(w http.ResponseWriter) (model.Snapshot, bool) {
	snap, err := h.deps.Snapshot()
	switch {
	case errors.Is(err, service.ErrNoSnapshot):
		writeError(w, http.StatusServiceUnavailable, "no_snapshot", err)
		return model.Snapshot{}, false
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return model.Snapshot{}, false
	}
	return snap, true
}
