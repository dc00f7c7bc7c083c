package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"simmotion/pkg/logging"
	"simmotion/pkg/version"
)

// NewServer creates and configures the HTTP server.
// metrics may be nil to leave /metrics unrouted.
func NewServer(addr string, platform *PlatformHandler, hub *Hub, metrics http.Handler, shutdown func()) *http.Server {
	mux := http.NewServeMux()

	// 1. Health and version
	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("GET /api/version", handleVersion)

	// 2. Platform status and operator commands
	mux.HandleFunc("GET /api/status", platform.HandleStatus)
	mux.HandleFunc("POST /api/platform/state", platform.HandleState)
	mux.HandleFunc("GET /api/gains", platform.HandleGetGains)
	mux.HandleFunc("PUT /api/gains", platform.HandleSetGains)
	mux.HandleFunc("PUT /api/intensity", platform.HandleIntensity)
	mux.HandleFunc("PUT /api/load", platform.HandleLoad)
	mux.HandleFunc("PUT /api/sim/flight-mode", platform.HandleFlightMode)
	mux.HandleFunc("PUT /api/sim/assist", platform.HandleAssist)

	// 3. Logs
	mux.HandleFunc("GET /api/log", handleLog)
	mux.HandleFunc("GET /api/log/latest", handleLatestLog)
	mux.HandleFunc("GET /api/events", handleEvents)

	// 4. Streams and metrics
	if hub != nil {
		mux.Handle("GET /ws", hub)
	}
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}

	// 5. Shutdown
	mux.HandleFunc("POST /api/shutdown", func(w http.ResponseWriter, r *http.Request) {
		slog.Info("Graceful shutdown initiated via API")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("Shutting down...")); err != nil {
			slog.Error("Failed to write shutdown response", "error", err)
		}
		// Let the response flush before the server goes away.
		go func() {
			time.Sleep(100 * time.Millisecond)
			shutdown()
		}()
	})

	return &http.Server{
		Addr:        addr,
		Handler:     logRequests(mux),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		if logging.RequestLogger != nil {
			logging.RequestLogger.Info("Request Processed", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
		}
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Failed to write health response", "error", err)
	}
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := fmt.Fprintf(w, `{"version": %q}`, version.Version); err != nil {
		slog.Error("Failed to write version response", "error", err)
	}
}
