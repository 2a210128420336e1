// Package app wires configuration, logging, metrics, the match engine, and
// its transports into a running process.
package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"

	server "armada/server"
	servernet "armada/server/internal/net"
	"armada/server/internal/net/ws"
	"armada/server/internal/proto"
	"armada/server/internal/telemetry"
	"armada/server/logging"
	loggingSinks "armada/server/logging/sinks"
)

// Config carries process-level settings. Env vars override each field:
// ARMADA_PORT, ARMADA_MAX_PLAYERS, ARMADA_DISCOVERY, ARMADA_HTTP_ADDR,
// LOG_JSON_PATH.
type Config struct {
	Logger     telemetry.Logger
	Port       int
	MaxPlayers int
	Discovery  bool
	HTTPAddr   string
	JSONLog    string
}

// DefaultConfig is the LAN-play configuration.
func DefaultConfig() Config {
	return Config{
		Port:       server.DefaultPort,
		MaxPlayers: proto.MaxPlayers,
		Discovery:  true,
		HTTPAddr:   ":8081",
	}
}

func (c Config) normalized(logger telemetry.Logger) Config {
	if raw := os.Getenv("ARMADA_PORT"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil {
			c.Port = value
		} else {
			logger.Printf("invalid ARMADA_PORT=%q: %v", raw, err)
		}
	}
	if raw := os.Getenv("ARMADA_MAX_PLAYERS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil {
			c.MaxPlayers = value
		} else {
			logger.Printf("invalid ARMADA_MAX_PLAYERS=%q: %v", raw, err)
		}
	}
	if raw := os.Getenv("ARMADA_DISCOVERY"); raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			c.Discovery = value
		} else {
			logger.Printf("invalid ARMADA_DISCOVERY=%q: %v", raw, err)
		}
	}
	if raw := os.Getenv("ARMADA_HTTP_ADDR"); raw != "" {
		c.HTTPAddr = raw
	}
	if raw := os.Getenv("LOG_JSON_PATH"); raw != "" {
		c.JSONLog = raw
	}
	return c
}

// Run starts the match server and blocks until ctx is cancelled or a fatal
// error occurs.
func Run(ctx context.Context, cfg Config) error {
	telemetryLogger := cfg.Logger
	if telemetryLogger == nil {
		telemetryLogger = telemetry.WrapLogger(log.Default())
	}
	cfg = cfg.normalized(telemetryLogger)

	logConfig := logging.DefaultConfig()
	namedSinks := []logging.NamedSink{
		{Name: "console", Sink: loggingSinks.NewConsole(os.Stdout)},
	}
	if cfg.JSONLog != "" {
		file, err := os.OpenFile(cfg.JSONLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open json log %s: %w", cfg.JSONLog, err)
		}
		logConfig.EnabledSinks = append(logConfig.EnabledSinks, "json")
		namedSinks = append(namedSinks, logging.NamedSink{
			Name: "json",
			Sink: loggingSinks.NewJSON(file, logConfig.JSON.FlushInterval),
		})
	}

	router := logging.NewRouter(logConfig, logging.SystemClock{}, namedSinks)
	defer func() {
		if cerr := router.Close(context.Background()); cerr != nil {
			telemetryLogger.Printf("failed to close logging router: %v", cerr)
		}
	}()

	observer := ws.NewHub(telemetryLogger)
	defer observer.Close()

	srv := server.New(server.Options{
		Port:      cfg.Port,
		Listen:    servernet.Listen,
		Logger:    telemetryLogger,
		Publisher: router,
		Observer:  observer,
	})
	if err := srv.Init(cfg.MaxPlayers); err != nil {
		return fmt.Errorf("init server: %w", err)
	}
	if err := srv.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	defer func() {
		if serr := srv.Stop(); serr != nil {
			telemetryLogger.Printf("failed to stop server: %v", serr)
		}
	}()

	if cfg.Discovery {
		discovery := servernet.NewDiscovery(cfg.Port, srv.PlayerCounts, telemetryLogger, router)
		if err := discovery.Start(); err != nil {
			return fmt.Errorf("start discovery: %w", err)
		}
		defer discovery.Stop()
	}

	handler := servernet.NewHTTPHandler(srv, servernet.HTTPHandlerConfig{
		Logger:   log.Default(),
		Observer: observer,
	})
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: handler}

	errCh := make(chan error, 1)
	go func() {
		telemetryLogger.Printf("diagnostics listening on %s", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		if serr := httpSrv.Shutdown(context.Background()); serr != nil {
			telemetryLogger.Printf("diagnostics shutdown failed: %v", serr)
		}
		return nil
	case err := <-errCh:
		return fmt.Errorf("diagnostics server failed: %w", err)
	}
}
