package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/life-stream-dev/mqttbroker/internal/broker"
	"github.com/life-stream-dev/mqttbroker/internal/config"
	"github.com/life-stream-dev/mqttbroker/internal/logger"
	"github.com/life-stream-dev/mqttbroker/internal/status"
	"github.com/life-stream-dev/mqttbroker/internal/transport"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the broker configuration file")
	logPath := flag.String("logs", "logs", "directory for daily log files")
	flag.Parse()

	opts, err := config.Load(*configPath)
	if err != nil {
		// Load writes a default config when none exists; either way the
		// operator needs to intervene before the broker serves traffic.
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	logShutdown := logger.Init(*logPath, opts.DebugMode)
	defer logShutdown.Close()
	logger.Debug("broker initializing", "config", *configPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var listeners []transport.Listener
	tcp, err := transport.NewTCP("tcp", opts.MQTTAddress)
	if err != nil {
		logger.Fatal("cannot bind mqtt listener", "address", opts.MQTTAddress, "err", err)
		return
	}
	listeners = append(listeners, tcp)

	if opts.WebSocketAddress != "" {
		ws, err := transport.NewWebsocket("ws", opts.WebSocketAddress)
		if err != nil {
			logger.Fatal("cannot bind websocket listener", "address", opts.WebSocketAddress, "err", err)
			return
		}
		listeners = append(listeners, ws)
	}

	b := broker.New(opts)
	registry := prometheus.NewRegistry()
	b.Info().RegisterPrometheusMetrics(registry)

	holder := &broker.SnapshotHolder{}
	statusServer := status.New(opts, holder, b.Info(), registry)
	go func() {
		if err := statusServer.Serve(); err != nil {
			logger.Error("status server failed", "err", err)
		}
	}()

	b.Run(ctx, listeners, holder)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := statusServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("status server shutdown failed", "err", err)
	}
	logger.Info("broker stopped")
}
