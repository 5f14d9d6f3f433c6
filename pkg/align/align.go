// Package align fits a parsed tendon batch onto the slab boundary with a
// rigid transform: rotation plus translation, never scaling or reflection.
//
// The automatic strategy orients the batch's dominant tendon direction
// along the longest boundary edge and anchors the rotated batch's bounding
// box to that edge's lexicographically smallest endpoint. The 180 degree
// ambiguity is resolved by comparing fit quality of both candidates.
package align

import (
	"fmt"
	"math"
	"sort"

	"github.com/paulmach/orb"

	"github.com/threedaro/ptdetail/pkg/errors"
	"github.com/threedaro/ptdetail/pkg/geom"
	"github.com/threedaro/ptdetail/pkg/ptd"
)

// ResidualAcceptance scales the snap tolerance into the maximum residual an
// automatic fit may have before it is rejected.
const ResidualAcceptance = 4.0

// symmetricEpsilon is the coordinate tolerance, in millimetres, for deciding
// that two candidate fits produce the same endpoint set.
const symmetricEpsilon = 1e-3

// Transform is a rigid planar transform: rotation about the origin followed
// by translation.
type Transform struct {
	Angle       float64 // radians, counter-clockwise
	Translation orb.Point
}

// Apply returns p transformed.
func (t Transform) Apply(p orb.Point) orb.Point {
	return geom.Add(geom.Rotate(p, t.Angle, orb.Point{}), t.Translation)
}

// Invert returns the inverse transform.
func (t Transform) Invert() Transform {
	inv := geom.Rotate(geom.Scale(t.Translation, -1), -t.Angle, orb.Point{})
	return Transform{Angle: -t.Angle, Translation: inv}
}

// ApplyTendons returns a transformed deep copy of the set. Endpoints move;
// profile stations are distances along the tendon and are unaffected by a
// rigid transform.
func (t Transform) ApplyTendons(ts ptd.TendonSet) ptd.TendonSet {
	out := ts.Clone()
	for _, tendon := range out {
		tendon.Start = t.Apply(tendon.Start)
		tendon.End = t.Apply(tendon.End)
	}
	return out
}

// Error reports a failed automatic fit.
type Error struct {
	Residual float64 // best residual achieved, mm
	Reason   string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Residual > 0 {
		return fmt.Sprintf("alignment failed: %s (best residual %.1fmm)", e.Reason, e.Residual)
	}
	return fmt.Sprintf("alignment failed: %s", e.Reason)
}

// Code implements errors.Coder.
func (e *Error) Code() errors.Code {
	return errors.ErrCodeAlignment
}

// FromPointPairs builds a rigid transform from two manually picked point
// correspondences: a maps to aTo and b maps to bTo. The pair distances must
// agree to within one percent, otherwise no rigid transform exists.
func FromPointPairs(a, aTo, b, bTo orb.Point) (Transform, error) {
	src := geom.Sub(b, a)
	dst := geom.Sub(bTo, aTo)
	srcLen := geom.Length(src)
	dstLen := geom.Length(dst)
	if srcLen < geom.Epsilon || dstLen < geom.Epsilon {
		return Transform{}, &Error{Reason: "picked points are coincident"}
	}
	if math.Abs(srcLen-dstLen)/srcLen > 0.01 {
		return Transform{}, &Error{Reason: fmt.Sprintf(
			"picked point distances differ: %.1fmm vs %.1fmm", srcLen, dstLen)}
	}
	angle := geom.Angle(dst) - geom.Angle(src)
	rotated := geom.Rotate(a, angle, orb.Point{})
	return Transform{Angle: angle, Translation: geom.Sub(aTo, rotated)}, nil
}

// Residual returns the fit residual of a tendon set against the boundary:
// the largest distance from any endpoint to its nearest boundary edge.
func Residual(ts ptd.TendonSet, b *geom.Boundary) float64 {
	worst := 0.0
	for _, p := range ts.Endpoints() {
		if _, d := b.Nearest(p); d > worst {
			worst = d
		}
	}
	return worst
}

// Auto fits the batch to the boundary automatically. It returns the chosen
// transform and its residual, or an *Error when no acceptable fit exists.
// The acceptance threshold is ResidualAcceptance times snapTol.
func Auto(ts ptd.TendonSet, b *geom.Boundary, snapTol float64) (Transform, float64, error) {
	if len(ts) == 0 {
		return Transform{}, 0, &Error{Reason: "empty tendon set"}
	}

	ref := b.LongestEdge()
	refDir := ref.Direction()
	batchDir := dominantDirection(ts)
	if geom.Length(batchDir) < geom.Epsilon {
		return Transform{}, 0, &Error{Reason: "tendon batch has no dominant direction"}
	}
	anchor := lexicographicMin(ref.A, ref.B)

	base := geom.Angle(refDir) - geom.Angle(batchDir)
	cands := []candidate{
		buildCandidate(ts, base, anchor, b),
		buildCandidate(ts, base+math.Pi, anchor, b),
	}

	pick, ok := choose(cands)
	if !ok {
		return Transform{}, cands[0].residual, &Error{
			Residual: math.Min(cands[0].residual, cands[1].residual),
			Reason:   "both orientations fit equally and differ, manual alignment required",
		}
	}
	limit := ResidualAcceptance * snapTol
	if pick.residual > limit {
		return Transform{}, pick.residual, &Error{
			Residual: pick.residual,
			Reason:   fmt.Sprintf("best fit residual %.1fmm exceeds limit %.1fmm", pick.residual, limit),
		}
	}
	return pick.transform, pick.residual, nil
}

type candidate struct {
	transform Transform
	points    []orb.Point
	offset    float64 // distance from the anchor-nearest endpoint to the boundary
	residual  float64
}

// buildCandidate rotates the batch by angle, translates its bounding-box
// min corner onto the anchor vertex, and measures the fit.
func buildCandidate(ts ptd.TendonSet, angle float64, anchor orb.Point, b *geom.Boundary) candidate {
	pts := ts.Endpoints()
	rotated := make([]orb.Point, len(pts))
	for i, p := range pts {
		rotated[i] = geom.Rotate(p, angle, orb.Point{})
	}
	min, _ := geom.Bounds(rotated)
	translation := geom.Sub(anchor, min)

	moved := make([]orb.Point, len(rotated))
	for i, p := range rotated {
		moved[i] = geom.Add(p, translation)
	}

	nearest := moved[0]
	nearestDist := geom.Distance(nearest, anchor)
	residual := 0.0
	for _, p := range moved {
		if d := geom.Distance(p, anchor); d < nearestDist {
			nearest, nearestDist = p, d
		}
		if _, d := b.Nearest(p); d > residual {
			residual = d
		}
	}
	_, offset := b.Nearest(nearest)

	return candidate{
		transform: Transform{Angle: angle, Translation: translation},
		points:    moved,
		offset:    offset,
		residual:  residual,
	}
}

// choose picks between the two orientation candidates: smaller anchor offset
// wins, then smaller residual. An exact tie is acceptable only when both
// candidates produce the same endpoint set, in which case the orientation is
// immaterial and the first candidate is used.
func choose(cands []candidate) (candidate, bool) {
	a, b := cands[0], cands[1]
	if math.Abs(a.offset-b.offset) > geom.Epsilon {
		if a.offset < b.offset {
			return a, true
		}
		return b, true
	}
	if math.Abs(a.residual-b.residual) > geom.Epsilon {
		if a.residual < b.residual {
			return a, true
		}
		return b, true
	}
	if samePointSet(a.points, b.points) {
		return a, true
	}
	return candidate{}, false
}

// dominantDirection returns the direction of the longest tendon. When
// several non-parallel tendons share the maximum length, the orientation
// carrying the greatest total tendon length across the batch wins.
func dominantDirection(ts ptd.TendonSet) orb.Point {
	longest := ts[0]
	for _, t := range ts[1:] {
		if t.PlanLength() > longest.PlanLength()+geom.Epsilon {
			longest = t
		}
	}
	dir := longest.Direction()

	tied := false
	for _, t := range ts {
		if math.Abs(t.PlanLength()-longest.PlanLength()) < geom.Epsilon &&
			geom.FoldParallel(geom.AngleBetween(t.Direction(), dir)) > geom.Epsilon {
			tied = true
			break
		}
	}
	if !tied {
		return dir
	}

	// Competing orientations among the equally-long tendons: bucket the
	// whole batch by orientation and take the heaviest bucket.
	type bucket struct {
		dir   orb.Point
		total float64
	}
	var buckets []bucket
	for _, t := range ts {
		d := t.Direction()
		placed := false
		for i := range buckets {
			if geom.FoldParallel(geom.AngleBetween(buckets[i].dir, d)) < geom.Epsilon {
				buckets[i].total += t.PlanLength()
				placed = true
				break
			}
		}
		if !placed {
			buckets = append(buckets, bucket{dir: d, total: t.PlanLength()})
		}
	}
	best := buckets[0]
	for _, bk := range buckets[1:] {
		if bk.total > best.total+geom.Epsilon {
			best = bk
		}
	}
	return best.dir
}

func lexicographicMin(a, b orb.Point) orb.Point {
	if a[0] < b[0] || (a[0] == b[0] && a[1] <= b[1]) {
		return a
	}
	return b
}

// samePointSet reports whether two point slices contain the same points,
// ignoring order, within symmetricEpsilon.
func samePointSet(a, b []orb.Point) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]orb.Point(nil), a...)
	bs := append([]orb.Point(nil), b...)
	less := func(pts []orb.Point) func(i, j int) bool {
		return func(i, j int) bool {
			if pts[i][0] != pts[j][0] {
				return pts[i][0] < pts[j][0]
			}
			return pts[i][1] < pts[j][1]
		}
	}
	sort.Slice(as, less(as))
	sort.Slice(bs, less(bs))
	for i := range as {
		if math.Abs(as[i][0]-bs[i][0]) > symmetricEpsilon ||
			math.Abs(as[i][1]-bs[i][1]) > symmetricEpsilon {
			return false
		}
	}
	return true
}
