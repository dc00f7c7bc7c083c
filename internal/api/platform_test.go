package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simmotion/pkg/activation"
	"simmotion/pkg/core"
	"simmotion/pkg/sim"
)

type fakePipeline struct {
	snapshot core.SimUpdate
	got      []core.Command
	err      error
}

func (f *fakePipeline) Submit(_ context.Context, cmd core.Command) error {
	f.got = append(f.got, cmd)
	if f.err != nil {
		return f.err
	}
	switch cmd.Kind {
	case core.CmdSetGains:
		f.snapshot.Gains = cmd.Gains
	case core.CmdSetMasterGain:
		f.snapshot.MasterGain = cmd.Value
	}
	return nil
}

func (f *fakePipeline) Snapshot() core.SimUpdate { return f.snapshot }

func newTestServer(p *fakePipeline) http.Handler {
	return NewServer("", NewPlatformHandler(p), nil, nil, func() {}).Handler
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestPlatformState(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantState  activation.State
	}{
		{"Enable", `{"state":"enabled"}`, nil, http.StatusOK, activation.StateEnabled},
		{"Unknown state", `{"state":"flying"}`, nil, http.StatusBadRequest, ""},
		{"Bad JSON", `{`, nil, http.StatusBadRequest, ""},
		{"Rejected transition", `{"state":"running"}`, fmt.Errorf("%w: deactivated -> running", activation.ErrInvalidTransition), http.StatusConflict, activation.StateRunning},
		{"Queue full", `{"state":"paused"}`, core.ErrQueueFull, http.StatusServiceUnavailable, activation.StatePaused},
		{"Timed out", `{"state":"paused"}`, context.DeadlineExceeded, http.StatusGatewayTimeout, activation.StatePaused},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakePipeline{err: tt.err}
			rec := do(t, newTestServer(p), http.MethodPost, "/api/platform/state", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)

			if tt.wantState == "" {
				assert.Empty(t, p.got)
				return
			}
			require.Len(t, p.got, 1)
			assert.Equal(t, core.CmdRequestState, p.got[0].Kind)
			assert.Equal(t, tt.wantState, p.got[0].State)
		})
	}
}

func TestGains(t *testing.T) {
	p := &fakePipeline{snapshot: core.SimUpdate{Gains: [6]float64{1, 1, 1, 1, 1, 1}, MasterGain: 1}}
	h := newTestServer(p)

	rec := do(t, h, http.MethodPut, "/api/gains", `{"axis":[0.5,1,1,1,1,2],"master":0.8}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body GainsBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, [6]float64{0.5, 1, 1, 1, 1, 2}, *body.Axis)
	assert.Equal(t, 0.8, *body.Master)
	require.Len(t, p.got, 2)
	assert.Equal(t, core.CmdSetGains, p.got[0].Kind)
	assert.Equal(t, core.CmdSetMasterGain, p.got[1].Kind)

	rec = do(t, h, http.MethodGet, "/api/gains", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"master":0.8`)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPut, "/api/gains", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPut, "/api/gains", `{"axis":[-1,1,1,1,1,1]}`).Code)
}

func TestValueEndpoints(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		body       string
		err        error
		wantStatus int
		wantKind   core.CommandKind
	}{
		{"Intensity", "/api/intensity", `{"value":80}`, nil, http.StatusOK, core.CmdSetIntensity},
		{"Intensity out of range", "/api/intensity", `{"value":200}`, fmt.Errorf("%w: intensity 200", core.ErrOutOfRange), http.StatusBadRequest, core.CmdSetIntensity},
		{"Missing value", "/api/intensity", `{}`, nil, http.StatusBadRequest, ""},
		{"Load level", "/api/load", `{"value":2}`, nil, http.StatusOK, core.CmdSetLoadLevel},
		{"Flight mode", "/api/sim/flight-mode", `{"value":1}`, nil, http.StatusOK, core.CmdSetFlightMode},
		{"Flight mode offline", "/api/sim/flight-mode", `{"value":1}`, sim.ErrNotConnected, http.StatusServiceUnavailable, core.CmdSetFlightMode},
		{"Assist", "/api/sim/assist", `{"value":0}`, nil, http.StatusOK, core.CmdSetAssistLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakePipeline{err: tt.err}
			rec := do(t, newTestServer(p), http.MethodPut, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantKind == "" {
				assert.Empty(t, p.got)
				return
			}
			require.Len(t, p.got, 1)
			assert.Equal(t, tt.wantKind, p.got[0].Kind)
		})
	}
}

func TestStatusAndVersion(t *testing.T) {
	p := &fakePipeline{snapshot: core.SimUpdate{PlatformState: activation.StateRunning, Intensity: 90}}
	h := newTestServer(p)

	rec := do(t, h, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var u core.SimUpdate
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&u))
	assert.Equal(t, activation.StateRunning, u.PlatformState)
	assert.Equal(t, 90, u.Intensity)

	assert.Equal(t, "OK", do(t, h, http.MethodGet, "/health", "").Body.String())

	rec = do(t, h, http.MethodGet, "/api/version", "")
	var v map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	assert.NotEmpty(t, v["version"])

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/metrics", "").Code)
}
