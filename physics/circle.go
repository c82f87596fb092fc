package physics

import (
	"math"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/rigid/common"
)

// Circle is a disc of fixed radius centered at an offset from its body.
type Circle struct {
	radius float64
	offset cp.Vector
}

// NewCircle attaches a circle of the given radius to body, centered at offset
// in body coordinates. The radius must be finite and not negative.
func NewCircle(body *Body, radius float64, offset cp.Vector) *Shape {
	assertHard(body != nil, "circle needs a body")
	assertHard(radius >= 0 && common.IsFinite(radius), "circle radius %v must not be negative", radius)

	c := &Circle{radius: radius, offset: offset}
	return newShape(body, cp.NewCircle(body.kernel, radius, offset), c)
}

func (c *Circle) Radius() float64 {
	return c.radius
}

// Offset is the center in body coordinates.
func (c *Circle) Offset() cp.Vector {
	return c.offset
}

func (c *Circle) kind() ShapeKind {
	return CircleKind
}

func (c *Circle) center(body *Body) cp.Vector {
	return body.LocalToWorld(c.offset)
}

func (c *Circle) boundingBox(body *Body) cp.BB {
	return discBB(c.center(body), c.radius)
}

func (c *Circle) nearestPoint(body *Body, p cp.Vector) (cp.Vector, float64, cp.Vector) {
	return discNearest(c.center(body), c.radius, p)
}

func (c *Circle) segmentQuery(body *Body, a, b cp.Vector) (float64, cp.Vector, bool) {
	return discEntry(c.center(body), c.radius, a, b)
}

func discBB(center cp.Vector, r float64) cp.BB {
	return cp.BB{L: center.X - r, B: center.Y - r, R: center.X + r, T: center.Y + r}
}

// discNearest is exact on both sides of the rim. At the very center every
// rim point is equally close; the one straight up is reported.
func discNearest(center cp.Vector, r float64, p cp.Vector) (cp.Vector, float64, cp.Vector) {
	delta := p.Sub(center)
	d := delta.Length()
	g := cp.Vector{X: 0, Y: 1}
	if d > 0 {
		g = cp.Vector{X: delta.X / d, Y: delta.Y / d}
	}
	return center.Add(g.Mult(r)), d - r, g
}

// discEntry solves |a + t(b-a) - center| = r for the smaller root.
func discEntry(center cp.Vector, r float64, a, b cp.Vector) (float64, cp.Vector, bool) {
	d := b.Sub(a)
	f := a.Sub(center)

	qa := d.Dot(d)
	qb := 2 * f.Dot(d)
	qc := f.Dot(f) - r*r
	if qc < 0 || qa == 0 {
		return 0, cp.Vector{}, false
	}

	disc := qb*qb - 4*qa*qc
	if disc < 0 {
		return 0, cp.Vector{}, false
	}

	t := (-qb - math.Sqrt(disc)) / (2 * qa)
	if t < 0 || t > 1 {
		return 0, cp.Vector{}, false
	}

	hit := a.Lerp(b, t)
	n := hit.Sub(center)
	if l := n.Length(); l > 0 {
		n = cp.Vector{X: n.X / l, Y: n.Y / l}
	} else {
		n = d.Neg().Normalize()
	}
	return t, n, true
}
