// Package group clusters similar tendons so one representative can stand
// for the whole run on the drawing.
//
// Partitioning is greedy first-match: tendons are visited in import order
// and join the first existing group whose representative they match within
// the tolerances, otherwise they found a new group. The outcome is fully
// deterministic for a given input order.
package group

import (
	"math"

	"github.com/threedaro/ptdetail/pkg/geom"
	"github.com/threedaro/ptdetail/pkg/ptd"
)

// Tolerances bound how far a tendon may deviate from a group representative
// and still join the group. Distances in millimetres, angle in degrees.
type Tolerances struct {
	Angle         float64 // orientation difference, folded so opposite runs match
	Length        float64 // reported length difference
	Spacing       float64 // perpendicular distance between the parallel runs
	Shift         float64 // longitudinal offset along the run
	DrapeDistance float64 // profile station difference, point by point
	DrapeHeight   float64 // profile height difference, point by point
}

// Group is one cluster of similar tendons. The representative is the first
// member in import order and carries the annotations for the whole group.
type Group struct {
	Representative *ptd.Tendon
	Members        []*ptd.Tendon // representative first, then joiners in import order
}

// Size returns the number of members including the representative.
func (g *Group) Size() int {
	return len(g.Members)
}

// Partition clusters the set under tol. Every tendon lands in exactly one
// group; group order follows the representatives' import order.
func Partition(ts ptd.TendonSet, tol Tolerances) []*Group {
	var groups []*Group
	for _, t := range ts {
		placed := false
		for _, g := range groups {
			if matches(g.Representative, t, tol) {
				g.Members = append(g.Members, t)
				placed = true
				break
			}
		}
		if !placed {
			groups = append(groups, &Group{Representative: t, Members: []*ptd.Tendon{t}})
		}
	}
	return groups
}

// Singletons wraps every tendon in its own group, for imports with grouping
// disabled.
func Singletons(ts ptd.TendonSet) []*Group {
	groups := make([]*Group, len(ts))
	for i, t := range ts {
		groups[i] = &Group{Representative: t, Members: []*ptd.Tendon{t}}
	}
	return groups
}

// matches reports whether t can join the group represented by rep. Checks
// run cheapest first; any failure disqualifies.
func matches(rep, t *ptd.Tendon, tol Tolerances) bool {
	repDir := rep.Direction()
	angle := geom.FoldParallel(geom.AngleBetween(repDir, t.Direction()))
	if geom.Degrees(angle) > tol.Angle {
		return false
	}

	diff := geom.Sub(t.Midpoint(), rep.Midpoint())
	if math.Abs(geom.Cross(repDir, diff)) > tol.Spacing {
		return false
	}
	if math.Abs(geom.Dot(repDir, diff)) > tol.Shift {
		return false
	}

	if math.Abs(lengthOf(rep)-lengthOf(t)) > tol.Length {
		return false
	}

	return profilesMatch(rep.Profile, t.Profile, tol)
}

// lengthOf prefers the reported tendon length and falls back to the plan
// distance when the export omitted it.
func lengthOf(t *ptd.Tendon) float64 {
	if t.Length > 0 {
		return t.Length
	}
	return t.PlanLength()
}

func profilesMatch(a, b []ptd.ProfilePoint, tol Tolerances) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i].Distance-b[i].Distance) > tol.DrapeDistance {
			return false
		}
		if math.Abs(a[i].Height-b[i].Height) > tol.DrapeHeight {
			return false
		}
	}
	return true
}
