package net

import (
	"encoding/json"
	"log"
	nethttp "net/http"
	"time"

	server "armada/server"
	"armada/server/internal/metrics"
	"armada/server/internal/net/ws"
)

// HTTPHandlerConfig wires the diagnostics mux.
type HTTPHandlerConfig struct {
	Logger   *log.Logger
	Observer *ws.Hub
}

// NewHTTPHandler serves /health, /diagnostics, /metrics, and the /observe
// WebSocket endpoint.
func NewHTTPHandler(srv *server.Server, cfg HTTPHandlerConfig) nethttp.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	mux := nethttp.NewServeMux()

	mux.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		payload := struct {
			Status     string                     `json:"status"`
			ServerTime int64                      `json:"serverTime"`
			Observers  int                        `json:"observers"`
			Match      server.DiagnosticsSnapshot `json:"match"`
		}{
			Status:     "ok",
			ServerTime: time.Now().UnixMilli(),
			Match:      srv.Diagnostics(),
		}
		if cfg.Observer != nil {
			payload.Observers = cfg.Observer.ObserverCount()
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			logger.Printf("diagnostics encode failed: %v", err)
		}
	})

	mux.Handle("/metrics", metrics.Handler())

	if cfg.Observer != nil {
		mux.Handle("/observe", cfg.Observer.Handler())
	}

	return mux
}
