// Package api exposes the bridge's read and control routes over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	service "github.com/okian/ourabridge/internal/app"
	"github.com/okian/ourabridge/internal/domain/model"
	"github.com/okian/ourabridge/internal/domain/sensor"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the poller.
type Dependencies interface {
	// Snapshot returns the last successful snapshot or service.ErrNoSnapshot.
	Snapshot() (model.Snapshot, error)
	Status() service.Status
	Sensors() []sensor.State
	Device(name string) sensor.Device

	// RunCycle triggers an immediate poll cycle.
	RunCycle(ctx context.Context) (model.Snapshot, error)
}

// Server wires HTTP routes for the bridge API.
type Server struct {
	healthHandler   *HealthHandler
	statusHandler   *StatusHandler
	snapshotHandler *SnapshotHandler
	sensorsHandler  *SensorsHandler
	refreshHandler  *RefreshHandler
}

// NewServer creates a new API server with all handlers. deviceName labels
// the device block of GET /sensors.
func NewServer(deps Dependencies, deviceName string) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(deps),
		statusHandler:   NewStatusHandler(deps),
		snapshotHandler: NewSnapshotHandler(deps),
		sensorsHandler:  NewSensorsHandler(deps, deviceName),
		refreshHandler:  NewRefreshHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.Handle("/metrics", s.healthHandler.MetricsHandler())
	mux.HandleFunc("/status", MetricsMiddleware(s.statusHandler.HandleStatus, "status"))
	mux.HandleFunc("/snapshot", MetricsMiddleware(s.snapshotHandler.HandleSnapshot, "snapshot"))
	mux.HandleFunc("/records/", MetricsMiddleware(s.snapshotHandler.HandleRecord, "records"))
	mux.HandleFunc("/sensors", MetricsMiddleware(s.sensorsHandler.HandleSensors, "sensors"))
	mux.HandleFunc("/refresh", MetricsMiddleware(s.refreshHandler.HandleRefresh, "refresh"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
}
