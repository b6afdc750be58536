// layoutd serves force-directed graph layouts over a rep socket. It owns one
// engine, speaks the binary framing protocol, and exposes health and
// Prometheus metrics on an HTTP admin port.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/dd0wney/cluso-layout/pkg/logging"
	"github.com/dd0wney/cluso-layout/pkg/metrics"
	"github.com/dd0wney/cluso-layout/pkg/server"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	listen := flag.String("listen", "", "Socket address to serve on (e.g. tcp://127.0.0.1:9800)")
	admin := flag.String("admin", "", "HTTP admin address for health and metrics (empty disables)")
	transport := flag.String("transport", "", "Messaging backend: mangos or zmq")
	workers := flag.Int("workers", 0, "Concurrent request loops")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error")
	flag.Parse()

	cfg := server.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = server.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "layoutd: %v\n", err)
			os.Exit(1)
		}
	}

	// Flags override the file, but only the ones actually given, so
	// "--admin=" can still disable the admin endpoint.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "listen":
			cfg.ListenAddr = *listen
		case "admin":
			cfg.AdminAddr = *admin
		case "transport":
			cfg.Transport = *transport
		case "workers":
			cfg.Workers = *workers
		case "log-level":
			cfg.LogLevel = *logLevel
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "layoutd: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewJSONLogger(os.Stdout, logging.ParseLevel(cfg.LogLevel))
	logger.Info("layoutd starting",
		logging.Addr(cfg.ListenAddr),
		logging.String("transport", cfg.Transport),
		logging.Int("workers", cfg.Workers),
		logging.String("admin", cfg.AdminAddr),
		logging.Int("max_sessions", cfg.MaxSessions))

	srv := server.New(cfg, logger, metrics.NewRegistry())

	gs := server.NewGracefulServer(srv, logger)
	gs.SetConfigReloadFunc(func() error {
		if *configPath == "" {
			logger.Warn("reload requested but no config file was given")
			return nil
		}
		next, err := server.LoadConfig(*configPath)
		if err != nil {
			return err
		}
		// Only the log level can change while running; socket and engine
		// settings need a restart.
		logger.SetLevel(logging.ParseLevel(next.LogLevel))
		logger.Info("log level reloaded", logging.String("level", next.LogLevel))
		return nil
	})

	if err := gs.Start(); err != nil {
		logger.Error("daemon exited with error", logging.Err(err))
		os.Exit(1)
	}
	logger.Info("daemon exited")
}
