// Package layout computes force-directed 2D positions for graphs of
// integer-id nodes and weighted undirected edges, Fruchterman-Reingold
// style: all pairs repel, edge endpoints attract in proportion to edge
// intensity, and a cooling schedule settles the system inside a bounded
// area. Runs are deterministic: there is no randomness anywhere, and the
// simulation refines the caller-supplied starting positions instead of
// scattering nodes, so repeated runs preserve the user's mental map.
package layout

// Node is a simulation input: a caller-assigned id, a starting position in
// the session's origin-centered coordinate space, and a pin flag. Fixed
// nodes never move but still exert forces on others.
type Node struct {
	ID    int32   `json:"id"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Fixed bool    `json:"fixed,omitempty"`
}

// Edge is an undirected relationship between two nodes. Intensity scales
// attraction only, never repulsion; the nominal range is roughly 1-100 and
// a zero value means DefaultIntensity.
type Edge struct {
	From      int32   `json:"from"`
	To        int32   `json:"to"`
	Intensity float64 `json:"intensity"`
}

// Position is one output record: the final coordinates for an accepted node.
type Position struct {
	ID int32   `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

const (
	// DefaultMaxIterations matches the host application's auto-layout calls.
	DefaultMaxIterations = 100

	// DefaultInitialTemperature bounds the largest single-step displacement
	// at iteration 0.
	DefaultInitialTemperature = 5.0

	// DefaultIntensity is the neutral edge weight: an edge at this intensity
	// attracts exactly as strongly as the standard Fruchterman-Reingold
	// attraction term.
	DefaultIntensity = 50.0

	// minDistance is the epsilon floor applied when two points coincide, so
	// force magnitudes stay finite.
	minDistance = 0.01

	// parallelThreshold is the node count below which the sharded repulsion
	// pass is not worth its coordination cost.
	parallelThreshold = 256
)

// ComputeOptions configures a single compute run. The zero value runs zero
// iterations; use DefaultComputeOptions for the standard settings.
type ComputeOptions struct {
	// MaxIterations is run exactly; there is no convergence early-exit, so
	// cost is bounded and predictable. Values <= 0 run no iterations and
	// pass the input positions through.
	MaxIterations int

	// InitialTemperature caps the per-node displacement at iteration 0 and
	// decays linearly to near zero by the final iteration. Values <= 0
	// freeze all free nodes.
	InitialTemperature float64
}

// DefaultComputeOptions returns the options used by the host application
// when the caller does not choose its own.
func DefaultComputeOptions() ComputeOptions {
	return ComputeOptions{
		MaxIterations:      DefaultMaxIterations,
		InitialTemperature: DefaultInitialTemperature,
	}
}
