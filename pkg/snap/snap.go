// Package snap moves tendon endpoints onto the slab boundary when they land
// within the snap tolerance of an edge.
package snap

import (
	"github.com/paulmach/orb"

	"github.com/threedaro/ptdetail/pkg/geom"
	"github.com/threedaro/ptdetail/pkg/ptd"
)

// Ends snaps every tendon endpoint within tol of the boundary onto its
// perpendicular projection and returns the number of endpoints moved.
// Endpoints farther than tol stay where they are. The set is modified in
// place; alignment has already produced the working copy.
func Ends(ts ptd.TendonSet, b *geom.Boundary, tol float64) int {
	if tol <= 0 {
		return 0
	}
	moved := 0
	for _, t := range ts {
		if snapPoint(&t.Start, b, tol) {
			moved++
		}
		if snapPoint(&t.End, b, tol) {
			moved++
		}
	}
	return moved
}

func snapPoint(p *orb.Point, b *geom.Boundary, tol float64) bool {
	edge, d := b.Nearest(*p)
	if d > tol {
		return false
	}
	proj := edge.Project(*p)
	if geom.Distance(*p, proj) < geom.Epsilon {
		// Already on the boundary, count it as untouched.
		return false
	}
	*p = proj
	return true
}
