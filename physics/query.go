package physics

import "github.com/jakecoffman/cp"

// NearestPointResult is a snapshot of one nearest-point query.
type NearestPointResult struct {
	shape    *Shape
	point    cp.Vector
	distance float64
	gradient cp.Vector
}

// Shape is the shape found, or nil when nothing was in range.
func (r NearestPointResult) Shape() *Shape {
	return r.shape
}

func (r NearestPointResult) Hit() bool {
	return r.shape != nil
}

// Point is the closest point on the shape's surface.
func (r NearestPointResult) Point() cp.Vector {
	return r.point
}

// Distance from the query point to the surface; negative means the query
// point is that deep inside the shape.
func (r NearestPointResult) Distance() float64 {
	return r.distance
}

// Gradient is the unit direction in which the distance grows fastest.
func (r NearestPointResult) Gradient() cp.Vector {
	return r.gradient
}

// SegmentQueryResult is a snapshot of one segment query.
type SegmentQueryResult struct {
	shape      *Shape
	start, end cp.Vector
	t          float64
	normal     cp.Vector
}

func missedSegment(start, end cp.Vector) SegmentQueryResult {
	return SegmentQueryResult{start: start, end: end, t: 1}
}

// Shape is the shape hit, or nil on a miss.
func (r SegmentQueryResult) Shape() *Shape {
	return r.shape
}

func (r SegmentQueryResult) Hit() bool {
	return r.shape != nil
}

func (r SegmentQueryResult) Start() cp.Vector {
	return r.start
}

func (r SegmentQueryResult) End() cp.Vector {
	return r.end
}

// T is the fraction along start->end where the hit happened; 1 on a miss.
func (r SegmentQueryResult) T() float64 {
	return r.t
}

// Normal is the surface normal at the hit point.
func (r SegmentQueryResult) Normal() cp.Vector {
	return r.normal
}

// Point is the hit point in world coordinates.
func (r SegmentQueryResult) Point() cp.Vector {
	return r.start.Lerp(r.end, r.t)
}

// Distance from start to the hit point.
func (r SegmentQueryResult) Distance() float64 {
	return r.start.Distance(r.end) * r.t
}
