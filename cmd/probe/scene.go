package main

import (
	"github.com/jakecoffman/cp"
	"github.com/milk9111/rigid/config"
	"github.com/milk9111/rigid/physics"
	"go.uber.org/zap"
)

const (
	collisionTypeGround cp.CollisionType = iota + 1
	collisionTypeProp
)

// scene is a ground line with a ball and a crate dropped onto it.
type scene struct {
	space  *physics.Space
	ground *physics.Shape
	ball   *physics.Body
	crate  *physics.Body

	landings int
}

func newScene(space *physics.Space, cfg config.Space, logger *zap.Logger) *scene {
	sc := &scene{space: space}

	sc.ground = physics.NewSegment(space.StaticBody(), cp.Vector{X: -200, Y: 0}, cp.Vector{X: 200, Y: 0}, 0)
	sc.ground.SetCollisionType(collisionTypeGround)
	sc.ground.SetUserData("ground")
	applyMaterial(sc.ground, cfg, "ground")
	space.AddShape(sc.ground)

	sc.ball = physics.NewBody(1, cp.MomentForCircle(1, 0, 5, cp.Vector{}))
	sc.ball.SetPosition(cp.Vector{X: -20, Y: 50})
	sc.ball.SetUserData("ball")
	space.AddBody(sc.ball)
	ballShape := physics.NewCircle(sc.ball, 5, cp.Vector{})
	ballShape.SetCollisionType(collisionTypeProp)
	applyMaterial(ballShape, cfg, "ball")
	space.AddShape(ballShape)

	sc.crate = physics.NewBody(2, physics.MomentInfinity)
	sc.crate.SetPosition(cp.Vector{X: 20, Y: 30})
	sc.crate.SetUserData("crate")
	space.AddBody(sc.crate)
	crateShape := physics.NewBox(sc.crate, 10, 10)
	crateShape.SetCollisionType(collisionTypeProp)
	applyMaterial(crateShape, cfg, "crate")
	space.AddShape(crateShape)

	space.OnContact(collisionTypeProp, collisionTypeGround, func(prop, ground *physics.Shape) bool {
		sc.landings++
		logger.Debug("prop touched ground",
			zap.Any("prop", prop.Body().UserData()),
			zap.Any("ground", ground.UserData()),
			zap.Float64("speed", prop.Body().Velocity().Length()))
		return true
	})

	return sc
}

// applyMaterial uses the named material when configured and falls back to
// "default".
func applyMaterial(sh *physics.Shape, cfg config.Space, name string) {
	if m, ok := cfg.Material(name); ok {
		sh.ApplyMaterial(m)
		return
	}
	if m, ok := cfg.Material("default"); ok {
		sh.ApplyMaterial(m)
	}
}

func (sc *scene) report(logger *zap.Logger) {
	for _, b := range []*physics.Body{sc.ball, sc.crate} {
		pos := b.Position()
		logger.Info("body",
			zap.Any("name", b.UserData()),
			zap.Float64("x", pos.X),
			zap.Float64("y", pos.Y),
			zap.Bool("sleeping", b.IsSleeping()),
			zap.Float64("kinetic_energy", b.KineticEnergy()))
	}

	probe := cp.Vector{X: -20, Y: 100}
	ray := sc.space.SegmentQueryFirst(probe, cp.Vector{X: -20, Y: -100}, physics.QueryFilter{})
	if ray.Hit() {
		hit := ray.Point()
		logger.Info("ray hit",
			zap.Any("shape", ray.Shape().Body().UserData()),
			zap.Float64("t", ray.T()),
			zap.Float64("x", hit.X),
			zap.Float64("y", hit.Y))
	} else {
		logger.Info("ray missed")
	}

	near := sc.space.NearestPointQuery(cp.Vector{}, 100, physics.QueryFilter{})
	if near.Hit() {
		logger.Info("nearest to origin",
			zap.Any("shape", near.Shape().UserData()),
			zap.Stringer("kind", near.Shape().Kind()),
			zap.Float64("distance", near.Distance()))
	}

	logger.Info("contacts", zap.Int("landings", sc.landings))
}
