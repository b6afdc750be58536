// Package engine exposes the layout library through the handle-based
// create/compute/destroy contract the host application calls. Handles are
// opaque and never reused; every failure is one of the closed set of layout
// sentinels, and no panic escapes across the boundary.
package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dd0wney/cluso-layout/pkg/layout"
	"github.com/dd0wney/cluso-layout/pkg/logging"
)

// Handle identifies a live session. Zero is never issued.
type Handle uint64

// NilHandle is the invalid zero handle.
const NilHandle Handle = 0

// Config bounds what a single engine will hold. Zero values mean unlimited,
// except Workers, where values below 2 keep the repulsion pass serial.
type Config struct {
	// MaxSessions caps concurrently live handles.
	MaxSessions int

	// MaxNodesPerSession and MaxEdgesPerSession cap a single create call,
	// measured before duplicate and dangling-reference filtering.
	MaxNodesPerSession int
	MaxEdgesPerSession int

	// Workers shards the repulsion pass on large sessions.
	Workers int

	// Logger receives per-operation debug logs. Nil means silent.
	Logger logging.Logger
}

// DefaultConfig returns the limits used by the daemon when its config file
// does not say otherwise.
func DefaultConfig() Config {
	return Config{
		MaxSessions:        256,
		MaxNodesPerSession: 100_000,
		MaxEdgesPerSession: 1_000_000,
	}
}

// Stats is a snapshot of engine counters.
type Stats struct {
	ActiveSessions int    `json:"active_sessions"`
	Created        uint64 `json:"created_total"`
	Destroyed      uint64 `json:"destroyed_total"`
	Computes       uint64 `json:"computes_total"`
	Evicted        uint64 `json:"evicted_total"`
}

type entry struct {
	sess     *layout.Session
	lastUsed atomic.Int64 // unix nanos, refreshed by create and compute
}

func (e *entry) touch() {
	e.lastUsed.Store(time.Now().UnixNano())
}

// Engine owns the handle table. Handles from different engines are
// unrelated; a daemon runs exactly one.
//
// All methods are safe for concurrent use. Distinct handles compute in
// parallel; calls against one handle serialize on its session.
type Engine struct {
	mu       sync.RWMutex
	cfg      Config
	logger   logging.Logger
	sessions map[Handle]*entry
	next     Handle
	closed   bool

	created   atomic.Uint64
	destroyed atomic.Uint64
	computes  atomic.Uint64
	evicted   atomic.Uint64
}

// New creates an engine with DefaultConfig.
func New() *Engine {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates an engine with explicit limits.
func NewWithConfig(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Engine{
		cfg:      cfg,
		logger:   logger.With(logging.Component("engine")),
		sessions: make(map[Handle]*entry),
	}
}

// Create validates dimensions, copies the inputs into a new session, and
// returns its handle. Dangling edges are dropped, not fatal. A panic during
// construction is reported as an allocation failure instead of crossing the
// boundary.
func (e *Engine) Create(nodes []layout.Node, edges []layout.Edge, width, height float64) (h Handle, err error) {
	defer func() {
		if r := recover(); r != nil {
			h = NilHandle
			err = layout.NewError("create").
				Context("panic during construction: %v", r).
				Cause(layout.ErrAllocationFailure).
				Err()
		}
	}()

	if e.cfg.MaxNodesPerSession > 0 && len(nodes) > e.cfg.MaxNodesPerSession {
		return NilHandle, layout.NewError("create").
			Context("%d nodes exceeds session limit %d", len(nodes), e.cfg.MaxNodesPerSession).
			Cause(layout.ErrAllocationFailure).
			Err()
	}
	if e.cfg.MaxEdgesPerSession > 0 && len(edges) > e.cfg.MaxEdgesPerSession {
		return NilHandle, layout.NewError("create").
			Context("%d edges exceeds session limit %d", len(edges), e.cfg.MaxEdgesPerSession).
			Cause(layout.ErrAllocationFailure).
			Err()
	}

	sess, err := layout.New(nodes, edges, width, height)
	if err != nil {
		return NilHandle, err
	}
	if e.cfg.Workers > 1 {
		sess.SetParallelism(e.cfg.Workers)
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		sess.Close()
		return NilHandle, layout.NewError("create").
			Context("engine closed").
			Cause(layout.ErrAllocationFailure).
			Err()
	}
	if e.cfg.MaxSessions > 0 && len(e.sessions) >= e.cfg.MaxSessions {
		e.mu.Unlock()
		sess.Close()
		return NilHandle, layout.NewError("create").
			Context("session limit %d reached", e.cfg.MaxSessions).
			Cause(layout.ErrAllocationFailure).
			Err()
	}

	e.next++
	h = e.next
	ent := &entry{sess: sess}
	ent.touch()
	e.sessions[h] = ent
	e.mu.Unlock()

	e.created.Add(1)
	sess.SetLogger(e.logger.With(logging.HandleID(uint64(h))))

	e.logger.Debug("session created",
		logging.HandleID(uint64(h)),
		logging.NodeCount(sess.NodeCount()),
		logging.EdgeCount(sess.EdgeCount()),
		logging.Dimensions(width, height))

	return h, nil
}

// Compute runs the simulation for the handle's session and writes one
// position per accepted node into out. It fails with ErrInvalidHandle for
// unknown or destroyed handles and ErrInsufficientBuffer when out is
// shorter than the session's node count.
func (e *Engine) Compute(ctx context.Context, h Handle, opts layout.ComputeOptions, out []layout.Position) (int, error) {
	ent, err := e.lookup("compute", h)
	if err != nil {
		return 0, err
	}
	ent.touch()

	if len(out) < ent.sess.NodeCount() {
		return 0, layout.NewError("compute").
			Handle(uint64(h)).
			Context("need %d slots, have %d", ent.sess.NodeCount(), len(out)).
			Cause(layout.ErrInsufficientBuffer).
			Err()
	}

	timer := logging.StartTimer(e.logger, "compute finished",
		logging.HandleID(uint64(h)),
		logging.NodeCount(ent.sess.NodeCount()),
		logging.Iterations(opts.MaxIterations))

	n, err := ent.sess.ComputeInto(ctx, opts, out)
	if err != nil {
		timer.EndError(err)
		return 0, err
	}
	timer.End()
	e.computes.Add(1)
	return n, nil
}

// NodeCount reports how many nodes the handle's session accepted, which is
// the output capacity a compute caller must supply.
func (e *Engine) NodeCount(h Handle) (int, error) {
	ent, err := e.lookup("node_count", h)
	if err != nil {
		return 0, err
	}
	return ent.sess.NodeCount(), nil
}

// EdgeCount reports how many edges survived endpoint resolution.
func (e *Engine) EdgeCount(h Handle) (int, error) {
	ent, err := e.lookup("edge_count", h)
	if err != nil {
		return 0, err
	}
	return ent.sess.EdgeCount(), nil
}

// Destroy releases the handle's session. The handle is invalid from the
// moment Destroy returns; destroying it again reports ErrInvalidHandle
// rather than corrupting another session.
func (e *Engine) Destroy(h Handle) error {
	e.mu.Lock()
	ent, ok := e.sessions[h]
	if ok {
		delete(e.sessions, h)
	}
	e.mu.Unlock()

	if !ok {
		return layout.NewError("destroy").
			Handle(uint64(h)).
			Cause(layout.ErrInvalidHandle).
			Err()
	}

	// Close blocks until an in-flight compute on this session finishes.
	ent.sess.Close()
	e.destroyed.Add(1)
	e.logger.Debug("session destroyed", logging.HandleID(uint64(h)))
	return nil
}

// EvictIdle destroys sessions untouched for at least the given duration and
// reports how many were evicted. The daemon's janitor calls this to defend
// against clients that create handles and never destroy them.
func (e *Engine) EvictIdle(idle time.Duration) int {
	cutoff := time.Now().Add(-idle).UnixNano()

	e.mu.Lock()
	var stale []Handle
	for h, ent := range e.sessions {
		if ent.lastUsed.Load() < cutoff {
			stale = append(stale, h)
		}
	}
	e.mu.Unlock()

	evicted := 0
	for _, h := range stale {
		// A client may have destroyed the handle between the scan and
		// here; only count the ones this sweep actually reclaimed.
		if err := e.Destroy(h); err == nil {
			evicted++
			e.evicted.Add(1)
			e.logger.Warn("idle session evicted",
				logging.HandleID(uint64(h)),
				logging.Duration("idle_limit", idle))
		}
	}
	return evicted
}

// Stats snapshots the engine counters.
func (e *Engine) Stats() Stats {
	e.mu.RLock()
	active := len(e.sessions)
	e.mu.RUnlock()

	return Stats{
		ActiveSessions: active,
		Created:        e.created.Load(),
		Destroyed:      e.destroyed.Load(),
		Computes:       e.computes.Load(),
		Evicted:        e.evicted.Load(),
	}
}

// Close destroys every live session and refuses further creates. Destroy
// and Compute on surviving handles report ErrInvalidHandle afterwards.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	remaining := make([]*entry, 0, len(e.sessions))
	for h, ent := range e.sessions {
		remaining = append(remaining, ent)
		delete(e.sessions, h)
	}
	e.mu.Unlock()

	for _, ent := range remaining {
		ent.sess.Close()
		e.destroyed.Add(1)
	}
	return nil
}

func (e *Engine) lookup(op string, h Handle) (*entry, error) {
	e.mu.RLock()
	ent, ok := e.sessions[h]
	e.mu.RUnlock()

	if !ok {
		return nil, layout.NewError(op).
			Handle(uint64(h)).
			Cause(layout.ErrInvalidHandle).
			Err()
	}
	return ent, nil
}
