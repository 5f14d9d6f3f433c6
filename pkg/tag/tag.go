// Package tag derives the annotation points for tendon ends and drapes:
// which ends are live, where the strand tag sits, and where drape height
// marks go.
package tag

import (
	"github.com/paulmach/orb"

	"github.com/threedaro/ptdetail/pkg/geom"
	"github.com/threedaro/ptdetail/pkg/group"
	"github.com/threedaro/ptdetail/pkg/ptd"
)

// anchorNudge is how far, in millimetres, the tag anchor sits beyond the
// tendon end along its axis so the tag clears the anchorage symbol.
const anchorNudge = 900.0

// End identifies which end of a tendon an annotation refers to.
type End int

const (
	StartEnd End = iota
	EndEnd
)

func (e End) String() string {
	if e == StartEnd {
		return "start"
	}
	return "end"
}

// IsLive reports whether an end type is stressed. Both ordinary stressing
// ends and pan-stressed ends are live.
func IsLive(et ptd.EndType) bool {
	return et == ptd.EndStress || et == ptd.EndPan
}

// LiveEnd is one stressed tendon end.
type LiveEnd struct {
	Tendon      *ptd.Tendon
	End         End
	Point       orb.Point
	Type        ptd.EndType
	StrandCount int
	PanOffset   float64 // applied offset for pan ends, 0 otherwise
}

// Classify returns the live ends of a tendon. Pan ends carry panOffset so
// downstream placement can push the anchorage back from the edge.
func Classify(t *ptd.Tendon, panOffset float64) []LiveEnd {
	var ends []LiveEnd
	if IsLive(t.StartType) {
		ends = append(ends, liveEnd(t, StartEnd, t.StartType, panOffset))
	}
	if IsLive(t.EndType) {
		ends = append(ends, liveEnd(t, EndEnd, t.EndType, panOffset))
	}
	return ends
}

func liveEnd(t *ptd.Tendon, which End, et ptd.EndType, panOffset float64) LiveEnd {
	le := LiveEnd{
		Tendon:      t,
		End:         which,
		Type:        et,
		StrandCount: t.StrandCount,
	}
	if which == StartEnd {
		le.Point = t.Start
	} else {
		le.Point = t.End
	}
	if et == ptd.EndPan {
		le.PanOffset = panOffset
	}
	return le
}

// Placement is one strand tag: the live end it annotates and the anchor
// point where the tag is placed.
type Placement struct {
	LiveEnd
	Anchor orb.Point
}

// Placements returns the strand tag placements for a set of groups. Only
// group representatives are tagged; members repeat the representative's
// strand layout and would only clutter the sheet. The anchor sits past the
// end along the tendon axis, pulled back by the pan offset on pan ends.
func Placements(groups []*group.Group, panOffset float64) []Placement {
	var out []Placement
	for _, g := range groups {
		t := g.Representative
		dir := t.Direction()
		for _, le := range Classify(t, panOffset) {
			outward := dir
			if le.End == StartEnd {
				outward = geom.Scale(dir, -1)
			}
			anchor := geom.Add(le.Point, geom.Scale(outward, anchorNudge-le.PanOffset))
			out = append(out, Placement{LiveEnd: le, Anchor: anchor})
		}
	}
	return out
}
