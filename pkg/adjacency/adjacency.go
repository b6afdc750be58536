// Package adjacency builds layout inputs from adjacency matrices and CSV
// edge lists. Matrix weights symmetrize to undirected edges by midpoint;
// both loaders emit nodes in ascending id order so downstream layouts are
// reproducible.
package adjacency

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/dd0wney/cluso-layout/pkg/layout"
)

var (
	// ErrEmptyMatrix reports a matrix with no rows or columns.
	ErrEmptyMatrix = errors.New("adjacency: matrix is empty")

	// ErrNotSquare reports a matrix whose row and column counts differ.
	ErrNotSquare = errors.New("adjacency: matrix is not square")
)

// FromMatrix converts a square adjacency matrix into one node per row and
// one undirected edge per connected pair. The weights at (i,j) and (j,i)
// are symmetrized to their midpoint, which becomes the edge intensity; the
// diagonal and pairs whose weights are both non-positive produce no edge.
//
// Weights pass through unscaled. A binary 0/1 matrix therefore yields
// intensity 1, much weaker than the engine's default of 50; scale the
// matrix first if equal-and-strong attraction is wanted.
func FromMatrix(m mat.Matrix) ([]layout.Node, []layout.Edge, error) {
	r, c := m.Dims()
	if r == 0 || c == 0 {
		return nil, nil, ErrEmptyMatrix
	}
	if r != c {
		return nil, nil, fmt.Errorf("%w: %dx%d", ErrNotSquare, r, c)
	}

	nodes := make([]layout.Node, r)
	for i := range nodes {
		nodes[i].ID = int32(i)
	}

	var edges []layout.Edge
	for i := 0; i < r; i++ {
		for j := 0; j < i; j++ {
			v1 := m.At(i, j)
			v2 := m.At(j, i)
			if v1 <= 0 && v2 <= 0 {
				continue
			}
			edges = append(edges, layout.Edge{
				From:      int32(j),
				To:        int32(i),
				Intensity: (v1 + v2) / 2,
			})
		}
	}
	return nodes, edges, nil
}

// SeedCircle spreads free nodes evenly around a circle centered on the
// origin, radius a quarter of the shorter extent. Angles derive from slice
// order alone, so reseeding the same slice is bit-identical. Fixed nodes
// keep their coordinates.
func SeedCircle(nodes []layout.Node, width, height float64) {
	if len(nodes) == 0 {
		return
	}
	radius := math.Min(width, height) / 4
	step := 2 * math.Pi / float64(len(nodes))
	for i := range nodes {
		if nodes[i].Fixed {
			continue
		}
		angle := step * float64(i)
		nodes[i].X = radius * math.Cos(angle)
		nodes[i].Y = radius * math.Sin(angle)
	}
}
