package layout

import (
	"math"
	"sync"

	"github.com/dd0wney/cluso-layout/pkg/logging"
)

// Session holds one immutable graph snapshot plus the bounding box it will
// be arranged in. Construction copies and validates the inputs once; Compute
// may then run repeatedly (or not at all) without touching caller memory.
//
// A Session is safe to share only through its own mutex discipline: every
// exported method locks, but a single compute run is serialized, so two
// concurrent Compute calls on one session simply queue.
type Session struct {
	mu sync.Mutex

	nodes []Node    // accepted nodes, input order, duplicates removed
	refs  []edgeRef // accepted edges resolved to node indices
	index map[int32]int

	width  float64
	height float64
	k      float64 // ideal spacing sqrt(width*height/n)

	workers int
	logger  logging.Logger

	droppedNodes int // duplicate ids discarded at construction
	droppedEdges int // dangling edges discarded at construction

	closed bool
}

// edgeRef is an accepted edge with endpoints resolved to node slice indices
// and its intensity normalized against DefaultIntensity.
type edgeRef struct {
	a, b  int
	scale float64
}

// New builds a session from a graph snapshot and a bounding box. The node
// and edge slices are copied; the caller may reuse them immediately.
//
// Width and height must be positive and finite. Duplicate node ids keep the
// first occurrence. Edges referencing unknown ids are dropped silently, per
// the host application's tolerance for views rendered mid-edit.
func New(nodes []Node, edges []Edge, width, height float64) (*Session, error) {
	if err := validateDimensions(width, height); err != nil {
		return nil, err
	}

	s := &Session{
		width:  width,
		height: height,
		index:  make(map[int32]int, len(nodes)),
		logger: logging.NewNopLogger(),
	}

	s.nodes = make([]Node, 0, len(nodes))
	for _, n := range nodes {
		if _, dup := s.index[n.ID]; dup {
			s.droppedNodes++
			continue
		}
		s.index[n.ID] = len(s.nodes)
		s.nodes = append(s.nodes, n)
	}

	s.refs = make([]edgeRef, 0, len(edges))
	for _, e := range edges {
		a, okA := s.index[e.From]
		b, okB := s.index[e.To]
		if !okA || !okB {
			s.droppedEdges++
			continue
		}
		intensity := e.Intensity
		if intensity == 0 {
			intensity = DefaultIntensity
		}
		s.refs = append(s.refs, edgeRef{a: a, b: b, scale: intensity / DefaultIntensity})
	}

	s.k = idealSpacing(width, height, len(s.nodes))
	return s, nil
}

// validateDimensions rejects bounding boxes the force model cannot center.
func validateDimensions(width, height float64) error {
	if width <= 0 || height <= 0 || math.IsInf(width, 0) || math.IsInf(height, 0) ||
		math.IsNaN(width) || math.IsNaN(height) {
		return NewError("create").
			Context("width=%v height=%v", width, height).
			Cause(ErrInvalidDimensions).
			Err()
	}
	return nil
}

// idealSpacing is the Fruchterman-Reingold constant k: the edge length at
// which repulsion and unit attraction balance. Empty graphs use 1 so force
// terms stay finite.
func idealSpacing(width, height float64, n int) float64 {
	if n == 0 {
		return 1.0
	}
	return math.Sqrt(width * height / float64(n))
}

// SetLogger replaces the session's logger. Call before Compute.
func (s *Session) SetLogger(logger logging.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if logger != nil {
		s.logger = logger
	}
}

// SetParallelism chooses how many workers share the repulsion pass. Values
// below 2 keep the pass serial. Results are identical at any setting.
func (s *Session) SetParallelism(workers int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workers = workers
}

// Close releases the session. Further Compute calls fail with
// ErrSessionClosed. Close is idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// NodeCount reports how many nodes were accepted at construction.
func (s *Session) NodeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.nodes)
}

// EdgeCount reports how many edges survived endpoint resolution.
func (s *Session) EdgeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.refs)
}

// DroppedNodes reports duplicate ids discarded at construction.
func (s *Session) DroppedNodes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.droppedNodes
}

// DroppedEdges reports dangling edges discarded at construction.
func (s *Session) DroppedEdges() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.droppedEdges
}

// Spacing exposes the ideal edge length k for the session's box and node
// count.
func (s *Session) Spacing() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.k
}

// Width returns the bounding box width.
func (s *Session) Width() float64 {
	return s.width
}

// Height returns the bounding box height.
func (s *Session) Height() float64 {
	return s.height
}
