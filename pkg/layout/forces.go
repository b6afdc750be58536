package layout

import "math"

// goldenAngle in radians. Multiples of it never repeat modulo 2*pi, which
// spreads separation directions evenly around the circle.
const goldenAngle = 2.399963229728653

// repulsionForce is the Fruchterman-Reingold repulsion magnitude k^2/d.
// Every node pair repels regardless of edges.
func repulsionForce(k, dist float64) float64 {
	return k * k / dist
}

// attractionForce is the Fruchterman-Reingold attraction magnitude d^2/k.
// Only edge endpoints attract; the caller scales it by edge intensity.
func attractionForce(k, dist float64) float64 {
	return dist * dist / k
}

// separationDir returns a unit vector used to push apart two coincident
// nodes. The direction depends only on the pair's slice indices, so repeated
// runs separate the same pile the same way, and it is antisymmetric so the
// two nodes move in opposite directions.
func separationDir(i, j int) (float64, float64) {
	sign := 1.0
	if i > j {
		i, j = j, i
		sign = -1.0
	}
	theta := goldenAngle * float64((i+1)*(j+2))
	return sign * math.Cos(theta), sign * math.Sin(theta)
}

// clamp pins v into [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
