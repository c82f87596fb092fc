package physics

import (
	"math"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/rigid/common"
	"go.uber.org/zap"
)

// MomentInfinity passed as a body's moment locks its rotation.
var MomentInfinity = math.Inf(1)

const noGroup = -1

// Body wraps one kernel body. The wrapper owns the kernel record and installs
// itself as the record's UserData, so BodyFromKernel can recover it from any
// kernel callback.
type Body struct {
	kernel *cp.Body
	space  *Space
	shapes []*Shape

	velocityLimit        float64
	angularVelocityLimit float64
	neverSleep           bool
	data                 any

	sleepGroup   int
	idleTime     float64
	frozenVel    cp.Vector
	frozenAngVel float64
}

// NewBody creates a dynamic body. Mass must be positive and finite; moment
// must be positive and may be MomentInfinity.
func NewBody(mass, moment float64) *Body {
	checkMass(mass)
	checkMoment(moment)
	return bind(cp.NewBody(mass, moment))
}

// NewStaticBody creates an immovable body. It can own shapes but ignores
// velocity, force and impulse changes.
func NewStaticBody() *Body {
	return bind(cp.NewStaticBody())
}

func bind(kb *cp.Body) *Body {
	b := &Body{
		kernel:               kb,
		velocityLimit:        math.Inf(1),
		angularVelocityLimit: math.Inf(1),
		sleepGroup:           noGroup,
	}
	kb.UserData = b
	if !b.IsStatic() {
		b.thaw()
	}
	return b
}

// BodyFromKernel returns the wrapper that owns kb, or nil for a nil handle.
// It panics when kb carries user data that is not a *Body.
func BodyFromKernel(kb *cp.Body) *Body {
	if kb == nil {
		return nil
	}
	b, ok := kb.UserData.(*Body)
	assertHard(ok, "kernel body user data is %T, not a *physics.Body", kb.UserData)
	return b
}

func checkMass(mass float64) {
	assertHard(mass > 0 && common.IsFinite(mass), "body mass %v must be positive and finite", mass)
}

func checkMoment(moment float64) {
	assertHard(moment > 0, "body moment %v must be positive", moment)
}

// Destroy detaches the body and its shapes from their space and clears the
// kernel back-reference. The body must not be used afterwards.
func (b *Body) Destroy() {
	for _, s := range append([]*Shape(nil), b.shapes...) {
		s.Destroy()
	}
	if b.space != nil {
		b.space.RemoveBody(b)
	}
	b.kernel.UserData = nil
}

// Kernel returns the underlying kernel body.
func (b *Body) Kernel() *cp.Body {
	return b.kernel
}

// Space returns the space the body was added to, or nil for a rogue body.
func (b *Body) Space() *Space {
	return b.space
}

// Shapes returns the shapes built on this body.
func (b *Body) Shapes() []*Shape {
	return append([]*Shape(nil), b.shapes...)
}

func (b *Body) IsStatic() bool {
	return b.kernel.GetType() == cp.BODY_STATIC
}

// IsRogue reports whether the body is not owned by any space.
func (b *Body) IsRogue() bool {
	return b.space == nil
}

func (b *Body) IsSleeping() bool {
	return b.sleepGroup != noGroup
}

func (b *Body) Mass() float64 {
	return b.kernel.Mass()
}

func (b *Body) SetMass(mass float64) {
	assertHard(!b.IsStatic(), "cannot set the mass of a static body")
	checkMass(mass)
	b.Activate()
	b.kernel.SetMass(mass)
}

func (b *Body) Moment() float64 {
	return b.kernel.Moment()
}

func (b *Body) SetMoment(moment float64) {
	assertHard(!b.IsStatic(), "cannot set the moment of a static body")
	checkMoment(moment)
	b.Activate()
	b.kernel.SetMoment(moment)
}

func (b *Body) Position() cp.Vector {
	return b.kernel.Position()
}

// SetPosition moves the body and wakes the sleeping bodies touching it.
// Cached bounding boxes of its shapes go stale until RefreshBoundingBox is
// called.
func (b *Body) SetPosition(pos cp.Vector) {
	b.Activate()
	b.wakeContacts(nil)
	b.kernel.SetPosition(pos)
}

func (b *Body) Velocity() cp.Vector {
	return b.kernel.Velocity()
}

func (b *Body) SetVelocity(vel cp.Vector) {
	if b.IsStatic() {
		return
	}
	b.Activate()
	b.kernel.SetVelocityVector(vel)
}

func (b *Body) Force() cp.Vector {
	return b.kernel.Force()
}

func (b *Body) SetForce(force cp.Vector) {
	if b.IsStatic() {
		return
	}
	b.Activate()
	b.kernel.SetForce(force)
}

// Angle is the rotation in radians.
func (b *Body) Angle() float64 {
	return b.kernel.Angle()
}

func (b *Body) SetAngle(angle float64) {
	b.Activate()
	b.wakeContacts(nil)
	b.kernel.SetAngle(angle)
}

func (b *Body) AngularVelocity() float64 {
	return b.kernel.AngularVelocity()
}

func (b *Body) SetAngularVelocity(w float64) {
	if b.IsStatic() {
		return
	}
	b.Activate()
	b.kernel.SetAngularVelocity(w)
}

func (b *Body) Torque() float64 {
	return b.kernel.Torque()
}

func (b *Body) SetTorque(torque float64) {
	if b.IsStatic() {
		return
	}
	b.Activate()
	b.kernel.SetTorque(torque)
}

// VelocityLimit caps the linear speed after each integration step.
func (b *Body) VelocityLimit() float64 {
	return b.velocityLimit
}

func (b *Body) SetVelocityLimit(limit float64) {
	assertHard(limit >= 0, "velocity limit %v must not be negative", limit)
	b.Activate()
	b.velocityLimit = limit
}

func (b *Body) AngularVelocityLimit() float64 {
	return b.angularVelocityLimit
}

func (b *Body) SetAngularVelocityLimit(limit float64) {
	assertHard(limit >= 0, "angular velocity limit %v must not be negative", limit)
	b.Activate()
	b.angularVelocityLimit = limit
}

// NeverSleep keeps the space from putting an idle body to sleep. Explicit
// Sleep calls are still honored.
func (b *Body) NeverSleep() bool {
	return b.neverSleep
}

func (b *Body) SetNeverSleep(never bool) {
	b.Activate()
	b.neverSleep = never
}

func (b *Body) UserData() any {
	return b.data
}

func (b *Body) SetUserData(data any) {
	b.data = data
}

// Rotation is the unit vector (cos a, sin a) of the current angle.
func (b *Body) Rotation() cp.Vector {
	return b.kernel.Rotation()
}

func (b *Body) KineticEnergy() float64 {
	return b.kernel.KineticEnergy()
}

// LocalToWorld converts a point in body coordinates to world coordinates.
func (b *Body) LocalToWorld(p cp.Vector) cp.Vector {
	return b.kernel.LocalToWorld(p)
}

// WorldToLocal converts a point in world coordinates to body coordinates.
func (b *Body) WorldToLocal(p cp.Vector) cp.Vector {
	return b.kernel.WorldToLocal(p)
}

// ResetForces zeroes the accumulated force and torque. Velocity is untouched.
func (b *Body) ResetForces() {
	b.Activate()
	b.kernel.SetForce(cp.Vector{})
	b.kernel.SetTorque(0)
}

// ApplyForce adds force to the accumulated force and offset×force to the
// torque. The offset is relative to the body's position but expressed in
// world orientation.
func (b *Body) ApplyForce(force, offset cp.Vector) {
	if b.IsStatic() {
		return
	}
	b.Activate()
	b.kernel.ApplyForceAtWorldPoint(force, b.kernel.Position().Add(offset))
}

// ApplyImpulse changes velocity by impulse/mass and angular velocity by
// (offset×impulse)/moment. The offset is in world orientation.
func (b *Body) ApplyImpulse(impulse, offset cp.Vector) {
	if b.IsStatic() {
		return
	}
	b.Activate()
	b.kernel.ApplyImpulseAtWorldPoint(impulse, b.kernel.Position().Add(offset))
}

// integrateVelocity is installed as the kernel velocity function while the
// body is awake.
func (b *Body) integrateVelocity(kb *cp.Body, gravity cp.Vector, damping, dt float64) {
	cp.BodyUpdateVelocity(kb, gravity, damping, dt)

	if v := kb.Velocity(); v.Length() > b.velocityLimit {
		kb.SetVelocityVector(v.Mult(b.velocityLimit / v.Length()))
	}
	if w := kb.AngularVelocity(); math.Abs(w) > b.angularVelocityLimit {
		kb.SetAngularVelocity(common.Clamp(w, -b.angularVelocityLimit, b.angularVelocityLimit))
	}
}

func (b *Body) thaw() {
	b.kernel.SetVelocityUpdateFunc(b.integrateVelocity)
	b.kernel.SetPositionUpdateFunc(cp.BodyUpdatePosition)
}

// freeze stops the kernel from integrating the body and remembers its
// velocities so the space can tell when the solver disturbs it.
func (b *Body) freeze() {
	b.frozenVel = b.kernel.Velocity()
	b.frozenAngVel = b.kernel.AngularVelocity()
	b.kernel.SetVelocityUpdateFunc(func(*cp.Body, cp.Vector, float64, float64) {})
	b.kernel.SetPositionUpdateFunc(frozenPosition)
}

// frozenPosition lets the kernel clear its bias velocities but puts the pose
// back where it was.
func frozenPosition(kb *cp.Body, dt float64) {
	pos, angle := kb.Position(), kb.Angle()
	cp.BodyUpdatePosition(kb, dt)
	kb.SetAngle(angle)
	kb.SetPosition(pos)
}

func (b *Body) logger() *zap.Logger {
	if b.space == nil {
		return nopLogger
	}
	return b.space.logger
}
