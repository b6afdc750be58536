package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dd0wney/cluso-layout/pkg/layout"
)

func triangle() ([]layout.Node, []layout.Edge) {
	nodes := []layout.Node{
		{ID: 1, X: -10, Y: 0},
		{ID: 2, X: 10, Y: 0},
		{ID: 3, X: 0, Y: 10},
	}
	edges := []layout.Edge{
		{From: 1, To: 2, Intensity: 50},
		{From: 2, To: 3, Intensity: 50},
		{From: 3, To: 1, Intensity: 50},
	}
	return nodes, edges
}

func mustCreate(t *testing.T, e *Engine) Handle {
	t.Helper()
	nodes, edges := triangle()
	h, err := e.Create(nodes, edges, 400, 300)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return h
}

func TestLifecycle(t *testing.T) {
	e := New()
	defer e.Close()

	h := mustCreate(t, e)
	if h == NilHandle {
		t.Fatal("Create returned the nil handle")
	}

	n, err := e.NodeCount(h)
	if err != nil {
		t.Fatalf("NodeCount failed: %v", err)
	}
	if n != 3 {
		t.Errorf("NodeCount = %d, want 3", n)
	}

	out := make([]layout.Position, n)
	written, err := e.Compute(context.Background(), h, layout.DefaultComputeOptions(), out)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if written != 3 {
		t.Errorf("Compute wrote %d positions, want 3", written)
	}

	if err := e.Destroy(h); err != nil {
		t.Fatalf("Destroy failed: %v", err)
	}

	if _, err := e.Compute(context.Background(), h, layout.DefaultComputeOptions(), out); !errors.Is(err, layout.ErrInvalidHandle) {
		t.Errorf("Compute after Destroy = %v, want ErrInvalidHandle", err)
	}
}

func TestDoubleDestroy(t *testing.T) {
	e := New()
	defer e.Close()

	h := mustCreate(t, e)
	if err := e.Destroy(h); err != nil {
		t.Fatalf("first Destroy failed: %v", err)
	}
	err := e.Destroy(h)
	if !errors.Is(err, layout.ErrInvalidHandle) {
		t.Errorf("second Destroy = %v, want ErrInvalidHandle", err)
	}

	var lerr *layout.LayoutError
	if !errors.As(err, &lerr) {
		t.Fatalf("second Destroy error is not a *LayoutError: %v", err)
	}
	if lerr.Handle != uint64(h) {
		t.Errorf("error handle = %d, want %d", lerr.Handle, h)
	}
}

func TestUnknownHandle(t *testing.T) {
	e := New()
	defer e.Close()

	out := make([]layout.Position, 8)
	if _, err := e.Compute(context.Background(), Handle(42), layout.DefaultComputeOptions(), out); !errors.Is(err, layout.ErrInvalidHandle) {
		t.Errorf("Compute(42) = %v, want ErrInvalidHandle", err)
	}
	if _, err := e.NodeCount(Handle(42)); !errors.Is(err, layout.ErrInvalidHandle) {
		t.Errorf("NodeCount(42) = %v, want ErrInvalidHandle", err)
	}
	if err := e.Destroy(Handle(42)); !errors.Is(err, layout.ErrInvalidHandle) {
		t.Errorf("Destroy(42) = %v, want ErrInvalidHandle", err)
	}
}

func TestCreateRejectsBadDimensions(t *testing.T) {
	e := New()
	defer e.Close()
	nodes, edges := triangle()

	tests := []struct {
		name          string
		width, height float64
	}{
		{"zero width", 0, 300},
		{"zero height", 400, 0},
		{"negative width", -400, 300},
		{"negative height", 400, -300},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Create(nodes, edges, tt.width, tt.height)
			if !errors.Is(err, layout.ErrInvalidDimensions) {
				t.Errorf("Create(%v, %v) = %v, want ErrInvalidDimensions", tt.width, tt.height, err)
			}
		})
	}

	if got := e.Stats().Created; got != 0 {
		t.Errorf("created counter = %d after failed creates, want 0", got)
	}
}

func TestCreateEnforcesLimits(t *testing.T) {
	nodes, edges := triangle()

	t.Run("node limit", func(t *testing.T) {
		e := NewWithConfig(Config{MaxNodesPerSession: 2})
		defer e.Close()
		_, err := e.Create(nodes, edges, 400, 300)
		if !errors.Is(err, layout.ErrAllocationFailure) {
			t.Errorf("Create = %v, want ErrAllocationFailure", err)
		}
	})

	t.Run("edge limit", func(t *testing.T) {
		e := NewWithConfig(Config{MaxEdgesPerSession: 2})
		defer e.Close()
		_, err := e.Create(nodes, edges, 400, 300)
		if !errors.Is(err, layout.ErrAllocationFailure) {
			t.Errorf("Create = %v, want ErrAllocationFailure", err)
		}
	})

	t.Run("session limit", func(t *testing.T) {
		e := NewWithConfig(Config{MaxSessions: 2})
		defer e.Close()
		for i := 0; i < 2; i++ {
			if _, err := e.Create(nodes, edges, 400, 300); err != nil {
				t.Fatalf("Create %d failed: %v", i, err)
			}
		}
		_, err := e.Create(nodes, edges, 400, 300)
		if !errors.Is(err, layout.ErrAllocationFailure) {
			t.Errorf("Create past limit = %v, want ErrAllocationFailure", err)
		}
	})

	t.Run("limit frees after destroy", func(t *testing.T) {
		e := NewWithConfig(Config{MaxSessions: 1})
		defer e.Close()
		h, err := e.Create(nodes, edges, 400, 300)
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if err := e.Destroy(h); err != nil {
			t.Fatalf("Destroy failed: %v", err)
		}
		if _, err := e.Create(nodes, edges, 400, 300); err != nil {
			t.Errorf("Create after Destroy failed: %v", err)
		}
	})
}

func TestHandlesNeverReused(t *testing.T) {
	e := New()
	defer e.Close()

	seen := make(map[Handle]bool)
	for i := 0; i < 100; i++ {
		h := mustCreate(t, e)
		if seen[h] {
			t.Fatalf("handle %d issued twice", h)
		}
		seen[h] = true
		if err := e.Destroy(h); err != nil {
			t.Fatalf("Destroy failed: %v", err)
		}
	}
}

func TestComputeBufferTooSmall(t *testing.T) {
	e := New()
	defer e.Close()

	h := mustCreate(t, e)
	out := make([]layout.Position, 2) // session holds 3 nodes
	_, err := e.Compute(context.Background(), h, layout.DefaultComputeOptions(), out)
	if !errors.Is(err, layout.ErrInsufficientBuffer) {
		t.Fatalf("Compute = %v, want ErrInsufficientBuffer", err)
	}

	var lerr *layout.LayoutError
	if !errors.As(err, &lerr) {
		t.Fatalf("error is not a *LayoutError: %v", err)
	}
	if lerr.Handle != uint64(h) {
		t.Errorf("error handle = %d, want %d", lerr.Handle, h)
	}

	// The session must still be usable after a rejected compute.
	out = make([]layout.Position, 3)
	if _, err := e.Compute(context.Background(), h, layout.DefaultComputeOptions(), out); err != nil {
		t.Errorf("Compute with adequate buffer failed: %v", err)
	}
}

func TestDestroyIsolation(t *testing.T) {
	e := New()
	defer e.Close()

	h1 := mustCreate(t, e)
	h2 := mustCreate(t, e)

	if err := e.Destroy(h1); err != nil {
		t.Fatalf("Destroy(h1) failed: %v", err)
	}

	out := make([]layout.Position, 3)
	if _, err := e.Compute(context.Background(), h2, layout.DefaultComputeOptions(), out); err != nil {
		t.Errorf("Compute on surviving handle failed: %v", err)
	}
}

func TestConcurrentSessions(t *testing.T) {
	e := New()
	defer e.Close()

	var g errgroup.Group
	for w := 0; w < 8; w++ {
		g.Go(func() error {
			for i := 0; i < 20; i++ {
				nodes, edges := triangle()
				h, err := e.Create(nodes, edges, 400, 300)
				if err != nil {
					return fmt.Errorf("create: %w", err)
				}
				out := make([]layout.Position, len(nodes))
				if _, err := e.Compute(context.Background(), h, layout.ComputeOptions{MaxIterations: 10, InitialTemperature: 5}, out); err != nil {
					return fmt.Errorf("compute: %w", err)
				}
				if err := e.Destroy(h); err != nil {
					return fmt.Errorf("destroy: %w", err)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	stats := e.Stats()
	if stats.ActiveSessions != 0 {
		t.Errorf("active sessions = %d after all destroys, want 0", stats.ActiveSessions)
	}
	if stats.Created != 160 || stats.Destroyed != 160 {
		t.Errorf("created/destroyed = %d/%d, want 160/160", stats.Created, stats.Destroyed)
	}
	if stats.Computes != 160 {
		t.Errorf("computes = %d, want 160", stats.Computes)
	}
}

func TestEvictIdle(t *testing.T) {
	e := New()
	defer e.Close()

	stale := mustCreate(t, e)
	fresh := mustCreate(t, e)

	time.Sleep(60 * time.Millisecond)

	// Computing refreshes the fresh session's last-used time.
	out := make([]layout.Position, 3)
	if _, err := e.Compute(context.Background(), fresh, layout.DefaultComputeOptions(), out); err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	evicted := e.EvictIdle(50 * time.Millisecond)
	if evicted != 1 {
		t.Fatalf("EvictIdle = %d, want 1", evicted)
	}

	if _, err := e.NodeCount(stale); !errors.Is(err, layout.ErrInvalidHandle) {
		t.Errorf("stale handle still alive: %v", err)
	}
	if _, err := e.NodeCount(fresh); err != nil {
		t.Errorf("fresh handle evicted: %v", err)
	}
	if got := e.Stats().Evicted; got != 1 {
		t.Errorf("evicted counter = %d, want 1", got)
	}
}

func TestCloseDestroysEverything(t *testing.T) {
	e := New()

	h := mustCreate(t, e)
	if err := e.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, err := e.NodeCount(h); !errors.Is(err, layout.ErrInvalidHandle) {
		t.Errorf("handle survived Close: %v", err)
	}

	nodes, edges := triangle()
	if _, err := e.Create(nodes, edges, 400, 300); !errors.Is(err, layout.ErrAllocationFailure) {
		t.Errorf("Create after Close = %v, want ErrAllocationFailure", err)
	}

	// Closing twice is harmless.
	if err := e.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}

func TestStatsSnapshot(t *testing.T) {
	e := New()
	defer e.Close()

	h1 := mustCreate(t, e)
	h2 := mustCreate(t, e)

	out := make([]layout.Position, 3)
	if _, err := e.Compute(context.Background(), h1, layout.DefaultComputeOptions(), out); err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if err := e.Destroy(h2); err != nil {
		t.Fatalf("Destroy failed: %v", err)
	}

	stats := e.Stats()
	if stats.ActiveSessions != 1 {
		t.Errorf("active = %d, want 1", stats.ActiveSessions)
	}
	if stats.Created != 2 {
		t.Errorf("created = %d, want 2", stats.Created)
	}
	if stats.Destroyed != 1 {
		t.Errorf("destroyed = %d, want 1", stats.Destroyed)
	}
	if stats.Computes != 1 {
		t.Errorf("computes = %d, want 1", stats.Computes)
	}
}
