package physics

import (
	"github.com/jakecoffman/cp"
	"github.com/milk9111/rigid/config"
)

// ShapeKind enumerates the supported geometries.
type ShapeKind int

const (
	CircleKind ShapeKind = iota
	SegmentKind
	PolyKind
)

func (k ShapeKind) String() string {
	switch k {
	case CircleKind:
		return "circle"
	case SegmentKind:
		return "segment"
	case PolyKind:
		return "poly"
	default:
		return "unknown"
	}
}

// AllLayers is the default layer mask: the shape is on every layer.
const AllLayers = ^uint(0)

// geometry is the per-kind math behind a Shape. Every method works in world
// coordinates using body's current transform.
type geometry interface {
	kind() ShapeKind
	boundingBox(body *Body) cp.BB
	// nearestPoint returns the closest surface point, the signed distance
	// (negative inside) and the unit gradient of the distance field.
	nearestPoint(body *Body, p cp.Vector) (cp.Vector, float64, cp.Vector)
	// segmentQuery returns where a->b first enters the shape.
	segmentQuery(body *Body, a, b cp.Vector) (float64, cp.Vector, bool)
}

// Shape is a collision geometry attached to exactly one Body. The wrapper is
// installed as the kernel shape's UserData; use ShapeFromKernel to get it
// back from kernel callbacks.
type Shape struct {
	kernel *cp.Shape
	body   *Body
	space  *Space
	geom   geometry
	bb     cp.BB

	sensor          bool
	elasticity      float64
	friction        float64
	surfaceVelocity cp.Vector
	collisionType   cp.CollisionType
	group           uint
	layers          uint
	data            any
}

func newShape(body *Body, ks *cp.Shape, geom geometry) *Shape {
	s := &Shape{
		kernel: ks,
		body:   body,
		geom:   geom,
		layers: AllLayers,
	}
	ks.UserData = s
	body.shapes = append(body.shapes, s)
	s.cacheBB()
	return s
}

// ShapeFromKernel returns the wrapper that owns ks, or nil for a nil handle.
// It panics when ks carries user data that is not a *Shape.
func ShapeFromKernel(ks *cp.Shape) *Shape {
	if ks == nil {
		return nil
	}
	s, ok := ks.UserData.(*Shape)
	assertHard(ok, "kernel shape user data is %T, not a *physics.Shape", ks.UserData)
	return s
}

// Destroy removes the shape from its space and its body and clears the
// kernel back-reference.
func (s *Shape) Destroy() {
	if s.space != nil {
		s.space.RemoveShape(s)
	}
	for i, other := range s.body.shapes {
		if other == s {
			s.body.shapes = append(s.body.shapes[:i], s.body.shapes[i+1:]...)
			break
		}
	}
	s.kernel.UserData = nil
}

func (s *Shape) Kind() ShapeKind {
	return s.geom.kind()
}

func (s *Shape) Body() *Body {
	return s.body
}

// Space returns the space the shape was added to, if any.
func (s *Shape) Space() *Space {
	return s.space
}

func (s *Shape) Kernel() *cp.Shape {
	return s.kernel
}

// AsCircle returns the circle geometry when the shape is a circle.
func (s *Shape) AsCircle() (*Circle, bool) {
	c, ok := s.geom.(*Circle)
	return c, ok
}

func (s *Shape) AsSegment() (*Segment, bool) {
	seg, ok := s.geom.(*Segment)
	return seg, ok
}

func (s *Shape) AsPoly() (*Poly, bool) {
	p, ok := s.geom.(*Poly)
	return p, ok
}

// BoundingBox returns the box cached by the last RefreshBoundingBox. It is
// stale after the body or geometry moves until the cache is refreshed.
func (s *Shape) BoundingBox() cp.BB {
	return s.bb
}

// RefreshBoundingBox recomputes the box from the current geometry and body
// transform, caches it and returns it. A shape in a space is also reindexed
// in the kernel, which space queries and collision detection search.
func (s *Shape) RefreshBoundingBox() cp.BB {
	s.cacheBB()
	if s.space != nil {
		s.space.reindex(s)
	}
	return s.bb
}

func (s *Shape) cacheBB() cp.BB {
	s.bb = s.geom.boundingBox(s.body)
	return s.bb
}

// NearestPointQuery finds the point on the shape's surface closest to p.
// The distance is negative when p is inside the shape.
func (s *Shape) NearestPointQuery(p cp.Vector) NearestPointResult {
	point, dist, gradient := s.geom.nearestPoint(s.body, p)
	return NearestPointResult{
		shape:    s,
		point:    point,
		distance: dist,
		gradient: gradient,
	}
}

// SegmentQuery finds where the segment from start to end first enters the
// shape. Only entries count: a segment starting strictly inside the shape
// misses, one starting on the boundary and heading inward hits at t = 0, and
// a zero-length segment always misses.
func (s *Shape) SegmentQuery(start, end cp.Vector) SegmentQueryResult {
	res := missedSegment(start, end)
	if start == end {
		return res
	}
	t, n, ok := s.geom.segmentQuery(s.body, start, end)
	if !ok {
		return res
	}
	res.shape = s
	res.t = t
	res.normal = n
	return res
}

// Sensor shapes report contacts but get no collision response. They are
// still visible to queries.
func (s *Shape) Sensor() bool {
	return s.sensor
}

func (s *Shape) SetSensor(sensor bool) {
	s.body.Activate()
	s.sensor = sensor
	s.kernel.SetSensor(sensor)
}

func (s *Shape) Elasticity() float64 {
	return s.elasticity
}

func (s *Shape) SetElasticity(e float64) {
	assertHard(e >= 0, "elasticity %v must not be negative", e)
	s.body.Activate()
	s.elasticity = e
	s.kernel.SetElasticity(e)
}

func (s *Shape) Friction() float64 {
	return s.friction
}

func (s *Shape) SetFriction(u float64) {
	assertHard(u >= 0, "friction %v must not be negative", u)
	s.body.Activate()
	s.friction = u
	s.kernel.SetFriction(u)
}

// SurfaceVelocity only affects friction in the solver.
func (s *Shape) SurfaceVelocity() cp.Vector {
	return s.surfaceVelocity
}

func (s *Shape) SetSurfaceVelocity(v cp.Vector) {
	s.body.Activate()
	s.surfaceVelocity = v
	s.kernel.SetSurfaceV(v)
}

// CollisionType selects the contact handlers registered with Space.OnContact.
func (s *Shape) CollisionType() cp.CollisionType {
	return s.collisionType
}

func (s *Shape) SetCollisionType(t cp.CollisionType) {
	s.body.Activate()
	s.collisionType = t
	s.kernel.SetCollisionType(t)
}

// Group is the collision group; shapes sharing a non-zero group never
// collide with each other.
func (s *Shape) Group() uint {
	return s.group
}

func (s *Shape) SetGroup(group uint) {
	s.body.Activate()
	s.group = group
	s.syncFilter()
}

// Layers is the bitmask of layers the shape lives on. Two shapes only
// collide when their masks intersect.
func (s *Shape) Layers() uint {
	return s.layers
}

func (s *Shape) SetLayers(layers uint) {
	s.body.Activate()
	s.layers = layers
	s.syncFilter()
}

func (s *Shape) UserData() any {
	return s.data
}

func (s *Shape) SetUserData(data any) {
	s.data = data
}

// ApplyMaterial copies a configured elasticity/friction preset.
func (s *Shape) ApplyMaterial(m config.Material) {
	s.SetElasticity(m.Elasticity)
	s.SetFriction(m.Friction)
}

func (s *Shape) syncFilter() {
	s.kernel.SetFilter(cp.NewShapeFilter(s.group, s.layers, s.layers))
}
