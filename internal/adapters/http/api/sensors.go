package api

import (
	"net/http"

	"github.com/okian/ourabridge/internal/domain/sensor"
)

// SensorsHandler serves the sensor view of the current snapshot.
type SensorsHandler struct {
	deps       Dependencies
	deviceName string
}

// NewSensorsHandler creates a new sensors handler.
func NewSensorsHandler(deps Dependencies, deviceName string) *SensorsHandler {
	return &SensorsHandler{deps: deps, deviceName: deviceName}
}

type sensorsResponse struct {
	Device      sensor.Device  `json:"device"`
	Attribution string         `json:"attribution"`
	Sensors     []sensor.State `json:"sensors"`
}

// HandleSensors handles GET /sensors requests. Sensors whose metric is
// missing from the snapshot are listed as unavailable.
func (h *SensorsHandler) HandleSensors(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, sensorsResponse{
		Device:      h.deps.Device(h.deviceName),
		Attribution: sensor.Attribution,
		Sensors:     h.deps.Sensors(),
	})
}
