// Package ptd parses INDUCTA PTD export text files into tendon domain models.
//
// The models are host-agnostic and expressed in millimetres. Parsing is
// total: the first structural error aborts the whole import with a
// ParseError carrying the offending line, because silently dropping
// geometry is worse than failing loudly.
package ptd

import (
	"github.com/paulmach/orb"

	"github.com/threedaro/ptdetail/pkg/geom"
)

// EndType describes the condition of one tendon end. The numeric values
// match the PTD export's end-display codes.
type EndType int

const (
	// EndStress is a live stressing end.
	EndStress EndType = 1
	// EndDead is an inert dead end.
	EndDead EndType = 2
	// EndPan is a pan-stressed live end; it carries an extra offset when
	// written to the host element.
	EndPan EndType = 3
)

// String returns the marker name used in the export.
func (e EndType) String() string {
	switch e {
	case EndStress:
		return "stress"
	case EndDead:
		return "dead"
	case EndPan:
		return "pan"
	}
	return "unknown"
}

// ProfilePoint is one drape profile point: a distance along the tendon's
// plan path and the duct elevation at that station. Both in millimetres.
type ProfilePoint struct {
	Distance float64
	Height   float64
}

// Point3 is a 3D tendon point: plan position plus drape elevation.
type Point3 struct {
	X, Y, Z float64
}

// Tendon is one tendon record extracted from a PTD export. Coordinates are
// rewritten by the alignment engine (as a new copy) and by the snapper
// (endpoints only); the record is never merged or split after parsing.
type Tendon struct {
	ID          int       // source identifier, import order index
	Length      float64   // reported tendon length, mm
	Start       orb.Point // plan start, mm
	End         orb.Point // plan end, mm
	TendonType  int       // raw export type code (2 = pan-stressed)
	StrandType  float64   // strand diameter, mm
	StrandCount int
	StartType   EndType
	EndType     EndType
	Profile     []ProfilePoint // ordered first to last, defines the drape
}

// Clone returns a deep copy of the tendon.
func (t *Tendon) Clone() *Tendon {
	c := *t
	c.Profile = make([]ProfilePoint, len(t.Profile))
	copy(c.Profile, t.Profile)
	return &c
}

// Direction returns the unit plan direction from start to end.
// Zero for degenerate tendons.
func (t *Tendon) Direction() orb.Point {
	return geom.Unit(geom.Sub(t.End, t.Start))
}

// PlanLength returns the plan distance between the endpoints.
func (t *Tendon) PlanLength() float64 {
	return geom.Distance(t.Start, t.End)
}

// Midpoint returns the plan midpoint of the tendon.
func (t *Tendon) Midpoint() orb.Point {
	return orb.Point{(t.Start[0] + t.End[0]) / 2, (t.Start[1] + t.End[1]) / 2}
}

// Points returns the tendon's ordered 3D points: each profile station
// positioned along the plan path with the profile height as elevation.
func (t *Tendon) Points() []Point3 {
	dir := t.Direction()
	out := make([]Point3, len(t.Profile))
	for i, p := range t.Profile {
		pos := geom.Add(t.Start, geom.Scale(dir, p.Distance))
		out[i] = Point3{X: pos[0], Y: pos[1], Z: p.Height}
	}
	return out
}

// TendonSet is an ordered import batch of tendons.
type TendonSet []*Tendon

// Clone returns a deep copy of the set.
func (ts TendonSet) Clone() TendonSet {
	out := make(TendonSet, len(ts))
	for i, t := range ts {
		out[i] = t.Clone()
	}
	return out
}

// Endpoints returns every tendon's start and end point, in import order.
func (ts TendonSet) Endpoints() []orb.Point {
	out := make([]orb.Point, 0, 2*len(ts))
	for _, t := range ts {
		out = append(out, t.Start, t.End)
	}
	return out
}
