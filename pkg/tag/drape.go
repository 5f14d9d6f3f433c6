package tag

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/threedaro/ptdetail/pkg/geom"
	"github.com/threedaro/ptdetail/pkg/ptd"
)

// DrapeKind distinguishes interior drape marks from the ones at the tendon
// ends, which most drawings omit.
type DrapeKind int

const (
	DrapeMid DrapeKind = iota
	DrapeStart
	DrapeEnd
)

func (k DrapeKind) String() string {
	switch k {
	case DrapeStart:
		return "start"
	case DrapeEnd:
		return "end"
	}
	return "mid"
}

// DrapeMark is one drape height annotation: where it goes, the duct height
// it reports, and the symbol rotation.
type DrapeMark struct {
	Kind     DrapeKind
	Point    orb.Point
	Height   float64 // duct elevation at the station, mm
	Rotation float64 // radians, perpendicular to the tendon run
}

// DrapeMarks returns the drape annotations for one tendon, in profile
// order. End stations are skipped unless includeEnds is set.
func DrapeMarks(t *ptd.Tendon, includeEnds bool) []DrapeMark {
	if len(t.Profile) == 0 {
		return nil
	}
	dir := t.Direction()
	rotation := geom.Angle(dir) - math.Pi/2
	last := len(t.Profile) - 1

	var out []DrapeMark
	for i, p := range t.Profile {
		kind := DrapeMid
		switch i {
		case 0:
			kind = DrapeStart
		case last:
			kind = DrapeEnd
		}
		if kind != DrapeMid && !includeEnds {
			continue
		}
		out = append(out, DrapeMark{
			Kind:     kind,
			Point:    geom.Add(t.Start, geom.Scale(dir, p.Distance)),
			Height:   p.Height,
			Rotation: rotation,
		})
	}
	return out
}
