package group

import (
	"math"
	"sort"

	"github.com/paulmach/orb"

	"github.com/threedaro/ptdetail/pkg/geom"
)

// AnchorOffset is the perpendicular distance, in millimetres, from the
// representative to the group's annotation anchor.
const AnchorOffset = 500.0

// uniformSpacingTol is the spread, in millimetres, under which member
// spacings count as uniform and collapse into a single centres leader.
const uniformSpacingTol = 30.0

// Leader is one leader line drawn across a group of tendons, annotated with
// the centre-to-centre spacing when it is uniform.
type Leader struct {
	A, B    orb.Point
	Centres float64 // uniform spacing, 0 when the leader spans one gap only
}

// LeaderAnchor returns the point where group annotations attach: offset
// perpendicular from the representative's midpoint, away from the run.
func (g *Group) LeaderAnchor() orb.Point {
	rep := g.Representative
	perp := geom.Perp(rep.Direction())
	return geom.Add(rep.Midpoint(), geom.Scale(perp, AnchorOffset))
}

// Leaders returns the leader lines for the group. Groups with fewer than
// two members need none. Members at uniform spacing share a single leader
// across the whole run carrying the centres value; otherwise each adjacent
// pair gets its own leader.
func (g *Group) Leaders() []Leader {
	if len(g.Members) < 2 {
		return nil
	}

	rep := g.Representative
	dir := rep.Direction()
	perp := geom.Perp(dir)

	// Leader station: one third along the representative's run.
	along := rep.PlanLength() / 3
	base := geom.Add(rep.Start, geom.Scale(dir, along))

	offsets := make([]float64, len(g.Members))
	for i, m := range g.Members {
		offsets[i] = geom.Dot(perp, geom.Sub(m.Midpoint(), rep.Midpoint()))
	}
	sort.Float64s(offsets)

	at := func(offset float64) orb.Point {
		return geom.Add(base, geom.Scale(perp, offset))
	}

	if spacing, uniform := uniformSpacing(offsets); uniform {
		return []Leader{{A: at(offsets[0]), B: at(offsets[len(offsets)-1]), Centres: spacing}}
	}

	leaders := make([]Leader, 0, len(offsets)-1)
	for i := 1; i < len(offsets); i++ {
		leaders = append(leaders, Leader{A: at(offsets[i-1]), B: at(offsets[i])})
	}
	return leaders
}

// uniformSpacing reports whether sorted offsets are evenly spaced and
// returns the common spacing.
func uniformSpacing(offsets []float64) (float64, bool) {
	if len(offsets) < 2 {
		return 0, false
	}
	first := offsets[1] - offsets[0]
	for i := 2; i < len(offsets); i++ {
		if math.Abs((offsets[i]-offsets[i-1])-first) > uniformSpacingTol {
			return 0, false
		}
	}
	return first, true
}
