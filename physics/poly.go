package physics

import (
	"math"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/rigid/common"
)

// Poly is a convex polygon with counter-clockwise vertices in body
// coordinates.
type Poly struct {
	verts []cp.Vector
}

// NewPoly attaches a convex polygon to body. It needs at least three
// vertices forming a strictly convex loop; clockwise input is reversed.
func NewPoly(body *Body, verts []cp.Vector) *Shape {
	assertHard(body != nil, "poly needs a body")
	assertHard(len(verts) >= 3, "poly needs at least 3 vertices, got %d", len(verts))

	vs := append([]cp.Vector(nil), verts...)
	area := 0.0
	for i := range vs {
		area += vs[i].Cross(vs[(i+1)%len(vs)])
	}
	assertHard(area != 0, "poly vertices are degenerate")
	if area < 0 {
		for i, j := 0, len(vs)-1; i < j; i, j = i+1, j-1 {
			vs[i], vs[j] = vs[j], vs[i]
		}
	}
	for i := range vs {
		e0 := vs[(i+1)%len(vs)].Sub(vs[i])
		e1 := vs[(i+2)%len(vs)].Sub(vs[(i+1)%len(vs)])
		assertHard(e0.Cross(e1) > 0, "poly must be strictly convex (vertex %d)", (i+1)%len(vs))
	}

	p := &Poly{verts: vs}
	return newShape(body, cp.NewPolyShapeRaw(body.kernel, len(vs), vs, 0), p)
}

// NewBox attaches a width x height box centered on the body.
func NewBox(body *Body, width, height float64) *Shape {
	assertHard(width > 0 && height > 0 && common.IsFinite(width) && common.IsFinite(height),
		"box size %vx%v must be positive", width, height)
	hw, hh := width/2, height/2
	return NewPoly(body, []cp.Vector{
		{X: -hw, Y: -hh},
		{X: hw, Y: -hh},
		{X: hw, Y: hh},
		{X: -hw, Y: hh},
	})
}

func (p *Poly) Count() int {
	return len(p.verts)
}

// Vert returns vertex i in body coordinates.
func (p *Poly) Vert(i int) cp.Vector {
	return p.verts[i]
}

func (p *Poly) kind() ShapeKind {
	return PolyKind
}

func (p *Poly) world(body *Body) []cp.Vector {
	out := make([]cp.Vector, len(p.verts))
	for i, v := range p.verts {
		out[i] = body.LocalToWorld(v)
	}
	return out
}

func (p *Poly) boundingBox(body *Body) cp.BB {
	wv := p.world(body)
	bb := cp.BB{L: wv[0].X, B: wv[0].Y, R: wv[0].X, T: wv[0].Y}
	for _, v := range wv[1:] {
		bb.L = math.Min(bb.L, v.X)
		bb.B = math.Min(bb.B, v.Y)
		bb.R = math.Max(bb.R, v.X)
		bb.T = math.Max(bb.T, v.Y)
	}
	return bb
}

func (p *Poly) nearestPoint(body *Body, pt cp.Vector) (cp.Vector, float64, cp.Vector) {
	wv := p.world(body)
	count := len(wv)

	// Inside (or on) the polygon the nearest boundary point is the foot on
	// the closest edge line.
	maxS := math.Inf(-1)
	var maxN cp.Vector
	for i := range wv {
		n := edgeNormal(wv[i], wv[(i+1)%count])
		if s := pt.Sub(wv[i]).Dot(n); s > maxS {
			maxS, maxN = s, n
		}
	}
	if maxS <= 0 {
		return pt.Sub(maxN.Mult(maxS)), maxS, maxN
	}

	best := math.Inf(1)
	var q cp.Vector
	for i := range wv {
		c := closestOnSegment(pt, wv[i], wv[(i+1)%count])
		if d2 := pt.Sub(c).LengthSq(); d2 < best {
			best, q = d2, c
		}
	}
	d := math.Sqrt(best)
	delta := pt.Sub(q)
	return q, d, cp.Vector{X: delta.X / d, Y: delta.Y / d}
}

// segmentQuery clips a->b against every edge half-plane (Cyrus-Beck); the
// last entering edge is where the segment enters the polygon.
func (p *Poly) segmentQuery(body *Body, a, b cp.Vector) (float64, cp.Vector, bool) {
	wv := p.world(body)
	count := len(wv)
	d := b.Sub(a)

	tEnter, tExit := math.Inf(-1), math.Inf(1)
	var enterN cp.Vector
	for i := range wv {
		n := edgeNormal(wv[i], wv[(i+1)%count])
		num := a.Sub(wv[i]).Dot(n)
		den := d.Dot(n)
		if den == 0 {
			if num > 0 {
				return 0, cp.Vector{}, false
			}
			continue
		}
		t := -num / den
		if den < 0 {
			if t > tEnter {
				tEnter, enterN = t, n
			}
		} else if t < tExit {
			tExit = t
		}
	}

	if tEnter < 0 || tEnter > 1 || tEnter > tExit {
		return 0, cp.Vector{}, false
	}
	return tEnter, enterN, true
}
