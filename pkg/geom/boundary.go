package geom

import (
	"fmt"
	"math"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"

	"github.com/threedaro/ptdetail/pkg/errors"
)

// Edge is one directed segment of the slab boundary.
type Edge struct {
	A, B orb.Point
}

// Length returns the edge length.
func (e Edge) Length() float64 {
	return planar.Distance(e.A, e.B)
}

// Vector returns B - A.
func (e Edge) Vector() orb.Point {
	return Sub(e.B, e.A)
}

// Direction returns the unit direction of the edge.
func (e Edge) Direction() orb.Point {
	return Unit(Sub(e.B, e.A))
}

// Distance returns the perpendicular distance from p to the edge segment.
func (e Edge) Distance(p orb.Point) float64 {
	return planar.DistanceFromSegment(e.A, e.B, p)
}

// Project returns the closest point to p on the edge segment.
func (e Edge) Project(p orb.Point) orb.Point {
	v := Sub(e.B, e.A)
	len2 := Dot(v, v)
	if len2 == 0 {
		return e.A
	}
	t := Dot(Sub(p, e.A), v) / len2
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return Add(e.A, Scale(v, t))
}

// Boundary is the slab outline as an ordered, closed sequence of edges.
// It is read-only for the duration of an import.
type Boundary struct {
	edges []Edge
}

// NewBoundary builds a Boundary from a polygon ring. A trailing point equal
// to the first is dropped; at least 3 distinct vertices are required.
func NewBoundary(ring orb.Ring) (*Boundary, error) {
	pts := []orb.Point(ring)
	if len(pts) > 1 && pts[0] == pts[len(pts)-1] {
		pts = pts[:len(pts)-1]
	}
	if len(pts) < 3 {
		return nil, errors.New(errors.ErrCodeInvalidBoundary,
			"boundary polygon needs at least 3 vertices, got %d", len(pts))
	}
	edges := make([]Edge, len(pts))
	for i := range pts {
		edges[i] = Edge{A: pts[i], B: pts[(i+1)%len(pts)]}
	}
	return &Boundary{edges: edges}, nil
}

// Edges returns the boundary edges in ring order.
func (b *Boundary) Edges() []Edge {
	return b.edges
}

// LongestEdge returns the edge with the greatest length. Ties resolve to the
// first such edge in ring order, which keeps alignment deterministic.
func (b *Boundary) LongestEdge() Edge {
	best := b.edges[0]
	bestLen := best.Length()
	for _, e := range b.edges[1:] {
		if l := e.Length(); l > bestLen {
			best, bestLen = e, l
		}
	}
	return best
}

// Nearest returns the boundary edge closest to p and the perpendicular
// distance to it.
func (b *Boundary) Nearest(p orb.Point) (Edge, float64) {
	best := b.edges[0]
	bestDist := math.Inf(1)
	for _, e := range b.edges {
		if d := e.Distance(p); d < bestDist {
			best, bestDist = e, d
		}
	}
	return best, bestDist
}

// Vertices returns the boundary vertices in ring order.
func (b *Boundary) Vertices() []orb.Point {
	out := make([]orb.Point, len(b.edges))
	for i, e := range b.edges {
		out[i] = e.A
	}
	return out
}

// LoadGeoJSON reads a slab outline from a GeoJSON file. The first Polygon
// (or the outer ring of the first MultiPolygon) found is used; other
// features are ignored.
func LoadGeoJSON(path string) (*Boundary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidBoundary, err, "read boundary file %s", path)
	}
	ring, err := outerRing(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidBoundary, err, "parse boundary file %s", path)
	}
	return NewBoundary(ring)
}

// outerRing extracts the first polygon's outer ring from GeoJSON data.
// Both FeatureCollection documents and bare geometries are accepted.
func outerRing(data []byte) (orb.Ring, error) {
	if fc, err := geojson.UnmarshalFeatureCollection(data); err == nil {
		for _, f := range fc.Features {
			if r, ok := ringOf(f.Geometry); ok {
				return r, nil
			}
		}
		return nil, fmt.Errorf("no polygon feature found")
	}
	g, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return nil, err
	}
	if r, ok := ringOf(g.Geometry()); ok {
		return r, nil
	}
	return nil, fmt.Errorf("geometry is not a polygon")
}

func ringOf(g orb.Geometry) (orb.Ring, bool) {
	switch geo := g.(type) {
	case orb.Polygon:
		if len(geo) > 0 {
			return geo[0], true
		}
	case orb.MultiPolygon:
		if len(geo) > 0 && len(geo[0]) > 0 {
			return geo[0][0], true
		}
	case orb.Ring:
		return geo, true
	}
	return nil, false
}
