//go:build linux

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nidsd/nidsd/internal/config"
	"github.com/nidsd/nidsd/internal/core"
)

var (
	configFile  = flag.String("f", "/etc/nidsd/nidsd.json", "path to nidsd configuration file")
	versionFlag = flag.Bool("version", false, "print build version")
	verboseFlag = flag.Bool("v", false, "enable verbose logging")
	metricsAddr = flag.String("metrics-addr", "", "address to listen on for prometheus metrics (disabled when empty)")

	// set by LDFLAGS
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	flag.Parse()

	if *versionFlag {
		fmt.Printf("build: %s\n", commit)
		fmt.Printf("version: %s\n", version)
		fmt.Printf("date: %s\n", date)
		os.Exit(0)
	}

	level := slog.LevelInfo
	if *verboseFlag {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: level}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	c, err := core.New(logger, cfg)
	if err != nil {
		logger.Error("failed to initialize sensor", "error", err)
		os.Exit(1)
	}
	c.Metrics().BuildInfo.WithLabelValues(version, commit, date).Set(1)

	if *metricsAddr != "" {
		go func() {
			listener, err := net.Listen("tcp", *metricsAddr)
			if err != nil {
				logger.Error("failed to start prometheus metrics listener", "error", err)
				os.Exit(1)
			}
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())

			logger.Info("prometheus metrics server started", "address", listener.Addr().String())
			if err := http.Serve(listener, mux); err != nil {
				log.Printf("prometheus metrics server stopped: %v", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("nidsd starting", "interfaces", len(cfg.Interfaces()))
	if err := c.Run(ctx); err != nil {
		logger.Error("sensor exited with error", "error", err)
		os.Exit(1)
	}
}
