package layout

import (
	"context"
	"math"
	"time"

	"github.com/dd0wney/cluso-layout/pkg/logging"
	"github.com/dd0wney/cluso-layout/pkg/parallel"
	"github.com/dd0wney/cluso-layout/pkg/pools"
)

// Compute runs the force simulation and returns one Position per accepted
// node, in acceptance order. The session's stored coordinates are never
// modified, so repeated runs with equal options return equal results.
func (s *Session) Compute(ctx context.Context, opts ComputeOptions) ([]Position, error) {
	out := make([]Position, s.NodeCount())
	n, err := s.ComputeInto(ctx, opts, out)
	if err != nil {
		return nil, err
	}
	return out[:n], nil
}

// ComputeInto is Compute with a caller-owned output buffer. It writes one
// Position per accepted node into out and returns how many were written.
// len(out) must be at least NodeCount.
func (s *Session) ComputeInto(ctx context.Context, opts ComputeOptions, out []Position) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, NewError("compute").Cause(ErrSessionClosed).Err()
	}

	n := len(s.nodes)
	if len(out) < n {
		return 0, NewError("compute").
			Context("need %d slots, have %d", n, len(out)).
			Cause(ErrInsufficientBuffer).
			Err()
	}
	if n == 0 {
		return 0, nil
	}

	start := time.Now()

	posX := pools.GetFloat64s(n)
	defer pools.PutFloat64s(posX)
	posY := pools.GetFloat64s(n)
	defer pools.PutFloat64s(posY)
	dispX := pools.GetFloat64s(n)
	defer pools.PutFloat64s(dispX)
	dispY := pools.GetFloat64s(n)
	defer pools.PutFloat64s(dispY)

	for i := range s.nodes {
		posX[i] = s.nodes[i].X
		posY[i] = s.nodes[i].Y
	}

	var pool *parallel.WorkerPool
	if s.workers > 1 && n >= parallelThreshold {
		p, err := parallel.NewWorkerPool(s.workers)
		if err == nil {
			pool = p
			defer pool.Close()
		}
	}

	initial := opts.InitialTemperature
	if initial < 0 || math.IsNaN(initial) {
		initial = 0
	}
	total := opts.MaxIterations

	for iter := 0; iter < total; iter++ {
		if err := ctx.Err(); err != nil {
			return 0, NewError("compute").
				Context("iteration %d of %d: %v", iter, total, err).
				Cause(ErrComputeCancelled).
				Err()
		}

		temp := cool(initial, iter, total)
		s.repulsionPass(posX, posY, dispX, dispY, pool)
		s.attractionPass(posX, posY, dispX, dispY)
		s.applyPass(posX, posY, dispX, dispY, temp)
	}

	for i := range s.nodes {
		out[i] = Position{ID: s.nodes[i].ID, X: posX[i], Y: posY[i]}
	}

	s.logger.Debug("layout pass complete",
		logging.NodeCount(n),
		logging.EdgeCount(len(s.refs)),
		logging.Iterations(total),
		logging.Latency(time.Since(start)))

	return n, nil
}

// repulsionPass accumulates k^2/d repulsion between every node pair. Each
// node owns its displacement slot and sums contributions over all others in
// index order, so shard boundaries cannot change the result.
func (s *Session) repulsionPass(posX, posY, dispX, dispY []float64, pool *parallel.WorkerPool) {
	n := len(posX)
	if pool != nil {
		parallel.RunRanges(pool, n, pool.Workers(), func(start, end int) {
			s.repulsionRange(posX, posY, dispX, dispY, start, end)
		})
		return
	}
	s.repulsionRange(posX, posY, dispX, dispY, 0, n)
}

// repulsionRange sums repulsion onto nodes in [start, end).
func (s *Session) repulsionRange(posX, posY, dispX, dispY []float64, start, end int) {
	n := len(posX)
	for i := start; i < end; i++ {
		var fx, fy float64
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			dx := posX[i] - posX[j]
			dy := posY[i] - posY[j]
			dist := math.Sqrt(dx*dx + dy*dy)
			if dist < minDistance {
				// Coincident pile: pick a stable direction so the pair
				// separates instead of pushing with zero magnitude.
				ux, uy := separationDir(i, j)
				dx, dy = ux*minDistance, uy*minDistance
				dist = minDistance
			}
			f := repulsionForce(s.k, dist)
			fx += (dx / dist) * f
			fy += (dy / dist) * f
		}
		dispX[i] += fx
		dispY[i] += fy
	}
}

// attractionPass pulls edge endpoints together with d^2/k scaled by edge
// intensity. It walks edges in acceptance order on one goroutine; edges are
// few relative to node pairs, and a fixed order keeps sums reproducible.
func (s *Session) attractionPass(posX, posY, dispX, dispY []float64) {
	for _, e := range s.refs {
		dx := posX[e.a] - posX[e.b]
		dy := posY[e.a] - posY[e.b]
		dist := math.Sqrt(dx*dx + dy*dy)
		if dist < minDistance {
			// Coincident endpoints have nothing to pull; repulsion will
			// separate them first.
			continue
		}
		f := attractionForce(s.k, dist) * e.scale
		ux := dx / dist
		uy := dy / dist
		dispX[e.a] -= ux * f
		dispY[e.a] -= uy * f
		dispX[e.b] += ux * f
		dispY[e.b] += uy * f
	}
}

// applyPass moves each free node along its net displacement, capped by the
// iteration temperature, then clamps it into the centered bounding box.
// Fixed nodes stay exactly where the caller put them, even outside the box.
// Displacement slots are reset for the next iteration.
func (s *Session) applyPass(posX, posY, dispX, dispY []float64, temp float64) {
	halfW := s.width / 2
	halfH := s.height / 2
	for i := range posX {
		dx, dy := dispX[i], dispY[i]
		dispX[i], dispY[i] = 0, 0

		if s.nodes[i].Fixed {
			continue
		}

		dist := math.Sqrt(dx*dx + dy*dy)
		if dist == 0 {
			continue
		}
		step := math.Min(dist, temp)
		posX[i] = clamp(posX[i]+(dx/dist)*step, -halfW, halfW)
		posY[i] = clamp(posY[i]+(dy/dist)*step, -halfH, halfH)
	}
}
