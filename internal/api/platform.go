package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"simmotion/pkg/activation"
	"simmotion/pkg/core"
	"simmotion/pkg/sim"
)

// submitTimeout bounds how long a request waits for the tick to apply it.
const submitTimeout = 2 * time.Second

// Pipeline is the part of the control loop the API drives.
type Pipeline interface {
	Submit(ctx context.Context, cmd core.Command) error
	Snapshot() core.SimUpdate
}

// PlatformHandler serves platform status and operator commands.
type PlatformHandler struct {
	pipeline Pipeline
}

// NewPlatformHandler creates a new PlatformHandler.
func NewPlatformHandler(p Pipeline) *PlatformHandler {
	return &PlatformHandler{pipeline: p}
}

// StateRequest asks for a platform state.
type StateRequest struct {
	State string `json:"state"`
}

// GainsBody carries the axis and master gains.
type GainsBody struct {
	Axis   *[6]float64 `json:"axis,omitempty"`
	Master *float64    `json:"master,omitempty"`
}

// ValueRequest carries a single integer setting.
type ValueRequest struct {
	Value *int `json:"value"`
}

// HandleStatus returns the last pipeline snapshot.
func (h *PlatformHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.pipeline.Snapshot())
}

// HandleState requests a platform state change.
func (h *PlatformHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	var req StateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	state, err := activation.ParseState(req.State)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !h.submit(w, r, core.RequestState(state)) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"state":   state,
		"targets": activation.Targets(state),
	})
}

// HandleGetGains returns the active gains.
func (h *PlatformHandler) HandleGetGains(w http.ResponseWriter, r *http.Request) {
	u := h.pipeline.Snapshot()
	writeJSON(w, http.StatusOK, GainsBody{Axis: &u.Gains, Master: &u.MasterGain})
}

// HandleSetGains updates the axis gains, the master gain, or both.
func (h *PlatformHandler) HandleSetGains(w http.ResponseWriter, r *http.Request) {
	var req GainsBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Axis == nil && req.Master == nil {
		http.Error(w, "axis or master required", http.StatusBadRequest)
		return
	}
	if req.Axis != nil {
		for _, g := range req.Axis {
			if g < 0 {
				http.Error(w, "gains must not be negative", http.StatusBadRequest)
				return
			}
		}
		if !h.submit(w, r, core.SetGains(*req.Axis)) {
			return
		}
	}
	if req.Master != nil && !h.submit(w, r, core.SetMasterGain(*req.Master)) {
		return
	}
	h.HandleGetGains(w, r)
}

// HandleIntensity sets the motion intensity in percent.
func (h *PlatformHandler) HandleIntensity(w http.ResponseWriter, r *http.Request) {
	h.handleValue(w, r, core.SetIntensity)
}

// HandleLoad selects the payload weight index.
func (h *PlatformHandler) HandleLoad(w http.ResponseWriter, r *http.Request) {
	h.handleValue(w, r, core.SetLoadLevel)
}

// HandleFlightMode loads a flight situation in the simulator.
func (h *PlatformHandler) HandleFlightMode(w http.ResponseWriter, r *http.Request) {
	h.handleValue(w, r, core.SetFlightMode)
}

// HandleAssist sets the simulator's pilot assist level.
func (h *PlatformHandler) HandleAssist(w http.ResponseWriter, r *http.Request) {
	h.handleValue(w, r, core.SetAssistLevel)
}

func (h *PlatformHandler) handleValue(w http.ResponseWriter, r *http.Request, cmd func(int) core.Command) {
	var req ValueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Value == nil {
		http.Error(w, "Invalid JSON: value required", http.StatusBadRequest)
		return
	}
	if !h.submit(w, r, cmd(*req.Value)) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"value": *req.Value})
}

// submit writes the error response itself and reports whether cmd was applied.
func (h *PlatformHandler) submit(w http.ResponseWriter, r *http.Request, cmd core.Command) bool {
	ctx, cancel := context.WithTimeout(r.Context(), submitTimeout)
	defer cancel()

	err := h.pipeline.Submit(ctx, cmd)
	if err == nil {
		return true
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, activation.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, core.ErrOutOfRange):
		status = http.StatusBadRequest
	case errors.Is(err, core.ErrQueueFull), errors.Is(err, sim.ErrNotConnected):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	slog.Debug("Command rejected", "command", cmd.Kind, "status", status, "error", err)
	http.Error(w, err.Error(), status)
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
