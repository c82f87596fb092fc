package physics

import (
	"math"
	"sort"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/rigid/config"
	"go.uber.org/zap"
)

var nopLogger = zap.NewNop()

// Space owns the kernel space and the bodies and shapes attached to it. It
// also keeps the sleep group table its bodies index into.
type Space struct {
	kernel *cp.Space
	static *Body
	bodies []*Body
	shapes []*Shape
	sleep  sleepTable

	// stepping is set while the kernel steps; reindexing then waits in
	// pending until the step returns.
	stepping bool
	pending  []*Shape

	cfg    config.Space
	logger *zap.Logger
}

// NewSpace creates a space configured from cfg. A nil logger discards output.
func NewSpace(cfg config.Space, logger *zap.Logger) *Space {
	if logger == nil {
		logger = nopLogger
	}
	s := &Space{
		kernel: cp.NewSpace(),
		logger: logger,
	}
	s.static = bind(s.kernel.StaticBody)
	s.static.space = s
	s.Configure(cfg)
	return s
}

// Configure applies gravity, solver iterations, damping and sleep thresholds.
// Zero iterations or damping keep the current values.
func (s *Space) Configure(cfg config.Space) {
	s.cfg = cfg
	s.kernel.SetGravity(cp.Vector{X: cfg.Gravity.X, Y: cfg.Gravity.Y})
	if cfg.Iterations > 0 {
		s.kernel.Iterations = cfg.Iterations
	}
	if cfg.Damping > 0 {
		s.kernel.SetDamping(cfg.Damping)
	}
	s.logger.Debug("space configured",
		zap.Float64("gravity_x", cfg.Gravity.X),
		zap.Float64("gravity_y", cfg.Gravity.Y),
		zap.Uint("iterations", cfg.Iterations),
		zap.Bool("sleep", cfg.SleepEnabled()))
}

// Config returns the configuration last applied.
func (s *Space) Config() config.Space {
	return s.cfg
}

// Kernel returns the underlying kernel space.
func (s *Space) Kernel() *cp.Space {
	return s.kernel
}

// StaticBody is the space's built-in static body. Shapes on it can be added
// without adding the body.
func (s *Space) StaticBody() *Body {
	return s.static
}

func (s *Space) Bodies() []*Body {
	return append([]*Body(nil), s.bodies...)
}

func (s *Space) Shapes() []*Shape {
	return append([]*Shape(nil), s.shapes...)
}

// AddBody attaches b to the space and wakes it.
func (s *Space) AddBody(b *Body) {
	assertHard(b != nil, "cannot add a nil body")
	assertHard(b.space == nil, "body is already added to a space")

	s.kernel.AddBody(b.kernel)
	s.bodies = append(s.bodies, b)
	b.space = s
	b.Activate()
	s.logger.Debug("body added", zap.Bool("static", b.IsStatic()), zap.Int("bodies", len(s.bodies)))
}

// RemoveBody detaches b and every shape of b that was added to the space.
func (s *Space) RemoveBody(b *Body) {
	assertHard(b != s.static, "cannot remove the space's static body")
	assertHard(b.space == s, "body is not in this space")

	b.Activate()
	for _, sh := range b.shapes {
		if sh.space == s {
			s.RemoveShape(sh)
		}
	}
	s.kernel.RemoveBody(b.kernel)
	for i, other := range s.bodies {
		if other == b {
			s.bodies = append(s.bodies[:i], s.bodies[i+1:]...)
			break
		}
	}
	b.space = nil
	b.idleTime = 0
	s.logger.Debug("body removed", zap.Int("bodies", len(s.bodies)))
}

// AddShape attaches sh. Its body must already be in this space.
func (s *Space) AddShape(sh *Shape) {
	assertHard(sh != nil, "cannot add a nil shape")
	assertHard(sh.space == nil, "shape is already added to a space")
	assertHard(sh.body.space == s, "shape's body is not in this space")

	sh.body.Activate()
	s.kernel.AddShape(sh.kernel)
	s.shapes = append(s.shapes, sh)
	sh.space = s
	sh.cacheBB()
	s.logger.Debug("shape added", zap.Stringer("kind", sh.Kind()), zap.Int("shapes", len(s.shapes)))
}

// RemoveShape detaches sh. Its body and every sleeping body touching sh
// wake up.
func (s *Space) RemoveShape(sh *Shape) {
	assertHard(sh.space == s, "shape is not in this space")

	sh.body.Activate()
	sh.body.wakeContacts(sh.kernel)
	s.kernel.RemoveShape(sh.kernel)
	for i, other := range s.shapes {
		if other == sh {
			s.shapes = append(s.shapes[:i], s.shapes[i+1:]...)
			break
		}
	}
	sh.space = nil
	s.logger.Debug("shape removed", zap.Stringer("kind", sh.Kind()), zap.Int("shapes", len(s.shapes)))
}

func (s *Space) wakeGroup(id int) {
	members := s.sleep.release(id)
	for _, b := range members {
		b.sleepGroup = noGroup
		b.idleTime = 0
		b.thaw()
	}
	s.logger.Debug("sleep group woke", zap.Int("group", id), zap.Int("members", len(members)))
}

// Step advances the simulation by dt seconds.
func (s *Space) Step(dt float64) {
	s.stepping = true
	s.kernel.Step(dt)
	s.stepping = false
	for _, sh := range s.pending {
		if sh.space == s {
			s.kernel.ReindexShape(sh.kernel)
		}
	}
	s.pending = s.pending[:0]

	s.wakeDisturbed(dt)

	// The kernel has already reindexed dynamic shapes during the step.
	for _, b := range s.bodies {
		if b.IsStatic() || b.IsSleeping() {
			continue
		}
		for _, sh := range b.shapes {
			if sh.space == s {
				sh.cacheBB()
			}
		}
	}

	if s.cfg.SleepEnabled() {
		s.sleepIdle(dt)
	}
}

// idleEnergy is the kinetic energy below which b counts as resting.
func (s *Space) idleEnergy(b *Body, dt float64) float64 {
	speed := s.cfg.IdleSpeedThreshold
	if speed <= 0 {
		speed = math.Hypot(s.cfg.Gravity.X, s.cfg.Gravity.Y) * dt
	}
	return b.Mass() * speed * speed
}

// motionEnergy is the kinetic energy of velocity v and angular velocity w.
// Bodies with infinite moment contribute no rotational term.
func motionEnergy(b *Body, v cp.Vector, w float64) float64 {
	e := b.Mass() * v.LengthSq()
	if m := b.Moment(); !math.IsInf(m, 1) && w != 0 {
		e += m * w * w
	}
	return e
}

// wakeDisturbed wakes every sleeping group whose members the solver pushed
// harder than the idle threshold. The other sleepers get their frozen
// velocities back.
func (s *Space) wakeDisturbed(dt float64) {
	for _, id := range s.sleep.live() {
		members := s.sleep.members(id)
		disturbed := false
		for _, b := range members {
			dv := b.kernel.Velocity().Sub(b.frozenVel)
			dw := b.kernel.AngularVelocity() - b.frozenAngVel
			if motionEnergy(b, dv, dw) > s.idleEnergy(b, dt) {
				disturbed = true
				break
			}
		}
		if disturbed {
			s.wakeGroup(id)
			continue
		}
		for _, b := range members {
			b.kernel.SetVelocityVector(b.frozenVel)
			b.kernel.SetAngularVelocity(b.frozenAngVel)
		}
	}
}

// reindex refreshes the kernel's spatial index entry for sh.
func (s *Space) reindex(sh *Shape) {
	if s.stepping {
		s.pending = append(s.pending, sh)
		return
	}
	s.kernel.ReindexShape(sh.kernel)
}

// sleepIdle puts bodies to sleep once they have rested for the configured
// time. Bodies touching each other fall asleep together, in one group, once
// every one of them is idle.
func (s *Space) sleepIdle(dt float64) {
	for _, b := range s.bodies {
		if b.IsStatic() || b.IsSleeping() {
			continue
		}
		if b.neverSleep || motionEnergy(b, b.Velocity(), b.AngularVelocity()) > s.idleEnergy(b, dt) {
			b.idleTime = 0
			continue
		}
		b.idleTime += dt
	}
	for _, b := range s.bodies {
		if b.IsStatic() || b.IsSleeping() || b.idleTime < s.cfg.SleepTimeThreshold {
			continue
		}
		s.sleepComponent(s.contactComponent(b))
	}
}

// contactComponent returns b and every non-static body connected to it
// through contacts from the last step. Static bodies do not connect.
func (s *Space) contactComponent(b *Body) []*Body {
	seen := map[*Body]bool{b: true}
	component := []*Body{b}
	for i := 0; i < len(component); i++ {
		component[i].kernel.EachArbiter(func(arb *cp.Arbiter) {
			_, other := arb.Shapes()
			ob := BodyFromKernel(other.Body())
			if ob == nil || ob.IsStatic() || seen[ob] {
				return
			}
			seen[ob] = true
			component = append(component, ob)
		})
	}
	return component
}

// sleepComponent puts the awake members of component to sleep in one group.
// Members already asleep bring their groups along. Nothing happens while any
// awake member has not been idle long enough.
func (s *Space) sleepComponent(component []*Body) {
	var anchor *Body
	for _, b := range component {
		if b.IsSleeping() {
			if anchor == nil {
				anchor = b
			}
			continue
		}
		if b.idleTime < s.cfg.SleepTimeThreshold {
			return
		}
	}

	for _, b := range component {
		switch {
		case b.IsSleeping():
			if b.sleepGroup != anchor.sleepGroup {
				from := b.sleepGroup
				s.sleep.merge(anchor.sleepGroup, from)
				s.logger.Debug("sleep groups merged", zap.Int("group", anchor.sleepGroup), zap.Int("from", from))
			}
		case anchor == nil:
			b.Sleep()
			anchor = b
		default:
			b.SleepWithGroup(anchor)
		}
	}
}

// QueryFilter limits which shapes a space query considers.
type QueryFilter struct {
	// Layers the query runs on; 0 means all layers.
	Layers uint
	// Group excludes shapes in the same non-zero group.
	Group uint
}

func (f QueryFilter) rejects(sh *Shape) bool {
	layers := f.Layers
	if layers == 0 {
		layers = AllLayers
	}
	if sh.layers&layers == 0 {
		return true
	}
	return f.Group != 0 && sh.group == f.Group
}

// NearestPointQuery returns the closest shape within maxDistance of p. The
// result misses when nothing is in range.
func (s *Space) NearestPointQuery(p cp.Vector, maxDistance float64, filter QueryFilter) NearestPointResult {
	best := NearestPointResult{distance: maxDistance}
	for _, res := range s.pointQuery(p, maxDistance, filter) {
		if !best.Hit() || res.distance < best.distance {
			best = res
		}
	}
	return best
}

// PointQueryAll returns every shape within maxDistance of p, closest first.
func (s *Space) PointQueryAll(p cp.Vector, maxDistance float64, filter QueryFilter) []NearestPointResult {
	out := s.pointQuery(p, maxDistance, filter)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].distance < out[j].distance
	})
	return out
}

func (s *Space) pointQuery(p cp.Vector, maxDistance float64, filter QueryFilter) []NearestPointResult {
	var out []NearestPointResult
	bb := cp.BB{L: p.X - maxDistance, B: p.Y - maxDistance, R: p.X + maxDistance, T: p.Y + maxDistance}
	s.candidates(bb, filter, func(sh *Shape) {
		if res := sh.NearestPointQuery(p); res.distance <= maxDistance {
			out = append(out, res)
		}
	})
	return out
}

// SegmentQueryFirst returns the earliest entry of a->b into any shape.
func (s *Space) SegmentQueryFirst(a, b cp.Vector, filter QueryFilter) SegmentQueryResult {
	best := missedSegment(a, b)
	for _, res := range s.segmentQuery(a, b, filter) {
		if !best.Hit() || res.t < best.t {
			best = res
		}
	}
	return best
}

// SegmentQueryAll returns every shape a->b enters, ordered by t.
func (s *Space) SegmentQueryAll(a, b cp.Vector, filter QueryFilter) []SegmentQueryResult {
	out := s.segmentQuery(a, b, filter)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].t < out[j].t
	})
	return out
}

func (s *Space) segmentQuery(a, b cp.Vector, filter QueryFilter) []SegmentQueryResult {
	var out []SegmentQueryResult
	bb := cp.BB{L: math.Min(a.X, b.X), B: math.Min(a.Y, b.Y), R: math.Max(a.X, b.X), T: math.Max(a.Y, b.Y)}
	s.candidates(bb, filter, func(sh *Shape) {
		if !segmentTouchesBB(a, b, sh.bb) {
			return
		}
		if res := sh.SegmentQuery(a, b); res.Hit() {
			out = append(out, res)
		}
	})
	return out
}

// candidates calls fn for every shape the kernel's spatial index holds
// within bb that filter accepts. Exact tests are left to fn.
func (s *Space) candidates(bb cp.BB, filter QueryFilter, fn func(sh *Shape)) {
	s.kernel.BBQuery(bb, cp.NewShapeFilter(0, AllLayers, AllLayers), func(ks *cp.Shape, _ interface{}) {
		if sh := ShapeFromKernel(ks); !filter.rejects(sh) {
			fn(sh)
		}
	}, nil)
}

// OnContact calls fn when shapes of collision types a and b start touching.
// The shapes are passed in (a, b) order. Returning false makes the kernel
// ignore the contact until they separate.
func (s *Space) OnContact(a, b cp.CollisionType, fn func(a, b *Shape) bool) {
	handler := s.kernel.NewCollisionHandler(a, b)
	handler.BeginFunc = func(arb *cp.Arbiter, space *cp.Space, userData interface{}) bool {
		shapeA, shapeB := arb.Shapes()
		return fn(ShapeFromKernel(shapeA), ShapeFromKernel(shapeB))
	}
}

// segmentTouchesBB is a slab test for a->b against bb.
func segmentTouchesBB(a, b cp.Vector, bb cp.BB) bool {
	tmin, tmax := 0.0, 1.0
	d := b.Sub(a)

	slab := func(p, dp, lo, hi float64) bool {
		if dp == 0 {
			return p >= lo && p <= hi
		}
		t1 := (lo - p) / dp
		t2 := (hi - p) / dp
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
		return tmin <= tmax
	}
	return slab(a.X, d.X, bb.L, bb.R) && slab(a.Y, d.Y, bb.B, bb.T)
}
