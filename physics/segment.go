package physics

import (
	"math"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/rigid/common"
)

// Segment is a line segment between two body-local points, thickened by a
// radius into a capsule.
type Segment struct {
	a, b   cp.Vector
	radius float64
	normal cp.Vector
}

// NewSegment attaches a segment from a to b (body coordinates) to body. The
// endpoints must differ and the radius must be finite and not negative.
func NewSegment(body *Body, a, b cp.Vector, radius float64) *Shape {
	assertHard(body != nil, "segment needs a body")
	assertHard(radius >= 0 && common.IsFinite(radius), "segment radius %v must not be negative", radius)
	assertHard(a != b, "segment endpoints must differ")

	seg := &Segment{a: a, b: b, radius: radius, normal: edgeNormal(a, b)}
	return newShape(body, cp.NewSegment(body.kernel, a, b, radius), seg)
}

func (seg *Segment) A() cp.Vector {
	return seg.a
}

func (seg *Segment) B() cp.Vector {
	return seg.b
}

func (seg *Segment) Radius() float64 {
	return seg.radius
}

// Normal is the unit normal to the right of a->b, in body coordinates.
func (seg *Segment) Normal() cp.Vector {
	return seg.normal
}

func (seg *Segment) kind() ShapeKind {
	return SegmentKind
}

func (seg *Segment) world(body *Body) (cp.Vector, cp.Vector) {
	return body.LocalToWorld(seg.a), body.LocalToWorld(seg.b)
}

func (seg *Segment) boundingBox(body *Body) cp.BB {
	ta, tb := seg.world(body)
	r := seg.radius
	return cp.BB{
		L: math.Min(ta.X, tb.X) - r,
		B: math.Min(ta.Y, tb.Y) - r,
		R: math.Max(ta.X, tb.X) + r,
		T: math.Max(ta.Y, tb.Y) + r,
	}
}

func (seg *Segment) nearestPoint(body *Body, p cp.Vector) (cp.Vector, float64, cp.Vector) {
	ta, tb := seg.world(body)
	q := closestOnSegment(p, ta, tb)
	delta := p.Sub(q)
	d := delta.Length()
	g := edgeNormal(ta, tb)
	if d > 0 {
		g = cp.Vector{X: delta.X / d, Y: delta.Y / d}
	}
	return q.Add(g.Mult(seg.radius)), d - seg.radius, g
}

// segmentQuery treats the capsule as two flat sides plus two end discs and
// keeps the earliest entry among them.
func (seg *Segment) segmentQuery(body *Body, a, b cp.Vector) (float64, cp.Vector, bool) {
	ta, tb := seg.world(body)
	r := seg.radius
	if r > 0 && a.Sub(closestOnSegment(a, ta, tb)).LengthSq() < r*r {
		return 0, cp.Vector{}, false
	}

	best := math.Inf(1)
	var bestN cp.Vector

	e := tb.Sub(ta)
	d := b.Sub(a)
	n := edgeNormal(ta, tb)
	ha := a.Sub(ta).Dot(n)
	if ha < 0 || (ha == 0 && d.Dot(n) > 0) {
		n = n.Neg()
		ha = -ha
	}
	// a sits ha above the line on the n side; that side's face is at height r.
	hb := b.Sub(ta).Dot(n)
	if ha >= r && hb <= r && ha != hb {
		t := (ha - r) / (ha - hb)
		u := a.Lerp(b, t).Sub(ta).Dot(e) / e.Dot(e)
		if u >= 0 && u <= 1 {
			best, bestN = t, n
		}
	}

	if r > 0 {
		for _, end := range [2]cp.Vector{ta, tb} {
			if t, cn, ok := discEntry(end, r, a, b); ok && t < best {
				best, bestN = t, cn
			}
		}
	}

	if math.IsInf(best, 1) {
		return 0, cp.Vector{}, false
	}
	return best, bestN, true
}

func closestOnSegment(p, a, b cp.Vector) cp.Vector {
	e := b.Sub(a)
	t := common.Clamp01(p.Sub(a).Dot(e) / e.Dot(e))
	return a.Lerp(b, t)
}

// edgeNormal is the unit normal to the right of a->b; for counter-clockwise
// polygons it points outward.
func edgeNormal(a, b cp.Vector) cp.Vector {
	e := b.Sub(a)
	l := e.Length()
	return cp.Vector{X: e.Y / l, Y: -e.X / l}
}
