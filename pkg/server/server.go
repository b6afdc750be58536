// Package server implements layoutd: a rep-socket daemon that owns one
// engine and answers wire-framed create/compute/destroy/stats/ping requests.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/dd0wney/cluso-layout/pkg/engine"
	"github.com/dd0wney/cluso-layout/pkg/health"
	"github.com/dd0wney/cluso-layout/pkg/layout"
	"github.com/dd0wney/cluso-layout/pkg/logging"
	"github.com/dd0wney/cluso-layout/pkg/metrics"
	"github.com/dd0wney/cluso-layout/pkg/pools"
	"github.com/dd0wney/cluso-layout/pkg/transport"
)

// Server drives the engine from a rep socket and an optional HTTP admin
// listener. Run blocks until Shutdown is called or a loop fails.
type Server struct {
	cfg      Config
	logger   logging.Logger
	engine   *engine.Engine
	registry *metrics.Registry
	checker  *health.Checker

	started time.Time

	// computeCtx outlives the request loops so in-flight computes drain
	// during shutdown; cancelComputes cuts them loose when the drain
	// deadline passes.
	computeCtx     context.Context
	cancelComputes context.CancelFunc

	stopCh   chan struct{}
	stopOnce sync.Once
	doneCh   chan struct{}
}

// New builds a server from a validated config. The registry may be nil, in
// which case the process-wide default is used.
func New(cfg Config, logger logging.Logger, registry *metrics.Registry) *Server {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if registry == nil {
		registry = metrics.DefaultRegistry()
	}

	eng := engine.NewWithConfig(engine.Config{
		MaxSessions:        cfg.MaxSessions,
		MaxNodesPerSession: cfg.MaxNodesPerSession,
		MaxEdgesPerSession: cfg.MaxEdgesPerSession,
		Workers:            runtime.GOMAXPROCS(0),
		Logger:             logger,
	})

	computeCtx, cancel := context.WithCancel(context.Background())

	s := &Server{
		cfg:            cfg,
		logger:         logger.With(logging.Component("server")),
		engine:         eng,
		registry:       registry,
		checker:        health.NewChecker(),
		started:        time.Now(),
		computeCtx:     computeCtx,
		cancelComputes: cancel,
		stopCh:         make(chan struct{}),
		doneCh:         make(chan struct{}),
	}
	s.registerHealthChecks()
	return s
}

// Engine exposes the engine for health probes and tests.
func (s *Server) Engine() *engine.Engine {
	return s.engine
}

func (s *Server) registerHealthChecks() {
	s.checker.RegisterLivenessCheck("daemon", func() health.Check {
		return health.SimpleCheck("daemon")
	})

	s.checker.RegisterReadinessCheck("engine", health.EngineCheck(computeProbe))
	s.checker.RegisterCheck("engine", health.EngineCheck(computeProbe))

	s.checker.RegisterCheck("session_capacity", health.SessionCapacityCheck(func() (int, int) {
		return s.engine.Stats().ActiveSessions, s.cfg.MaxSessions
	}))

	s.checker.RegisterCheck("memory", health.MemoryCheck(func() (uint64, uint64) {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		return m.Alloc, m.Sys
	}))
}

// computeProbe runs a tiny layout through the library directly, so the probe
// works even when the handle table is at its session limit.
func computeProbe() error {
	nodes := []layout.Node{{ID: 1}, {ID: 2}, {ID: 3}}
	edges := []layout.Edge{{From: 1, To: 2, Intensity: 50}}

	sess, err := layout.New(nodes, edges, 100, 100)
	if err != nil {
		return err
	}
	defer sess.Close()

	out := make([]layout.Position, len(nodes))
	_, err = sess.ComputeInto(context.Background(), layout.ComputeOptions{
		MaxIterations:      5,
		InitialTemperature: 1,
	}, out)
	return err
}

// Run binds the rep socket and serves until Shutdown. It returns the first
// loop failure, or nil on a clean shutdown.
func (s *Server) Run() error {
	defer close(s.doneCh)

	factory, err := transport.NewFactory(s.cfg.Transport)
	if err != nil {
		return err
	}
	sock, err := factory.NewRepSocket()
	if err != nil {
		return fmt.Errorf("create rep socket: %w", err)
	}
	if err := sock.Listen(s.cfg.ListenAddr); err != nil {
		sock.Close()
		return fmt.Errorf("listen on %s: %w", s.cfg.ListenAddr, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-s.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	g, ctx := errgroup.WithContext(ctx)

	// The rep protocol multiplexes contexts over one bound socket; backends
	// without that run a single loop on the socket itself.
	workers := s.cfg.Workers
	opener, multiplexed := sock.(transport.ContextOpener)
	if !multiplexed {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		loopSock := transport.Socket(sock)
		if multiplexed {
			c, err := opener.OpenContext()
			if err != nil {
				sock.Close()
				return fmt.Errorf("open socket context: %w", err)
			}
			loopSock = c
		}
		worker := i
		g.Go(func() error { return s.serveLoop(ctx, loopSock, worker) })
	}

	g.Go(func() error { return s.janitor(ctx) })

	if s.cfg.AdminAddr != "" {
		admin := s.newAdminServer()
		g.Go(func() error {
			s.logger.Info("admin endpoint listening", logging.Addr(s.cfg.AdminAddr))
			if err := admin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("admin listener: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return admin.Shutdown(shutdownCtx)
		})
	}

	// Closing the socket unblocks every loop the moment shutdown starts.
	g.Go(func() error {
		<-ctx.Done()
		return sock.Close()
	})

	s.logger.Info("daemon listening",
		logging.Addr(s.cfg.ListenAddr),
		logging.String("transport", s.cfg.Transport),
		logging.Int("workers", workers))

	err = g.Wait()

	drainErr := s.engine.Close()
	s.cancelComputes()

	s.logger.Info("daemon stopped", logging.Duration("uptime", time.Since(s.started)))

	if err != nil && !errors.Is(err, transport.ErrClosed) {
		return err
	}
	return drainErr
}

// Shutdown stops the server and waits for in-flight work to drain. When ctx
// expires first, running computes are cancelled and Shutdown keeps waiting
// for Run to return.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stopCh) })

	select {
	case <-s.doneCh:
		return nil
	case <-ctx.Done():
		s.cancelComputes()
		<-s.doneCh
		return ctx.Err()
	}
}

func (s *Server) serveLoop(ctx context.Context, sock transport.Socket, worker int) error {
	logger := s.logger.With(logging.Int("worker", worker))

	if err := sock.SetRecvDeadline(s.cfg.RecvTimeout); err != nil {
		return fmt.Errorf("set recv deadline: %w", err)
	}
	if err := sock.SetSendDeadline(s.cfg.SendTimeout); err != nil {
		return fmt.Errorf("set send deadline: %w", err)
	}

	for {
		raw, err := sock.Recv()
		if err != nil {
			if errors.Is(err, transport.ErrTimeout) {
				select {
				case <-ctx.Done():
					return nil
				default:
					continue
				}
			}
			if errors.Is(err, transport.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			logger.Error("receive failed", logging.Err(err))
			return err
		}

		resp := s.handleMessage(raw)
		if err := sock.Send(resp); err != nil {
			pools.PutBytes(resp)
			if errors.Is(err, transport.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			// The rep state machine resets on the next Recv; the peer sees
			// a timeout instead of a reply.
			logger.Warn("send failed, dropping response", logging.Err(err))
			continue
		}
		pools.PutBytes(resp)
	}
}

// janitor evicts idle sessions and refreshes the gauge-style metrics.
func (s *Server) janitor(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if s.cfg.SessionTTL > 0 {
				if n := s.engine.EvictIdle(s.cfg.SessionTTL); n > 0 {
					s.registry.RecordSessionsEvicted(n)
				}
			}
			s.registry.SetActiveSessions(s.engine.Stats().ActiveSessions)
			s.registry.UpdateSystemMetrics(s.started)
		}
	}
}

func (s *Server) newAdminServer() *http.Server {
	mux := http.NewServeMux()
	s.checker.Routes(mux)
	mux.Handle("/metrics", promhttp.HandlerFor(
		s.registry.GetPrometheusRegistry(),
		promhttp.HandlerOpts{},
	))

	return &http.Server{
		Addr:           s.cfg.AdminAddr,
		Handler:        mux,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
}
