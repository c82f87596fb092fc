package main

import (
	"testing"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/rigid/config"
	"github.com/milk9111/rigid/physics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSceneSettles(t *testing.T) {
	cases := []struct {
		name       string
		sleepAfter float64
	}{
		{"no_idle_sleep", 0},
		{"idle_sleep", 0.5},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.SleepTimeThreshold = c.sleepAfter
			space := physics.NewSpace(cfg, zap.NewNop())
			sc := newScene(space, cfg, zap.NewNop())

			for i := 0; i < 600; i++ {
				space.Step(1.0 / 60.0)
			}

			assert.InDelta(t, 5, sc.ball.Position().Y, 0.5)
			assert.InDelta(t, 5, sc.crate.Position().Y, 0.5)
			assert.GreaterOrEqual(t, sc.landings, 2)

			ray := space.SegmentQueryFirst(sc.ball.Position().Add(cp.Vector{X: 0, Y: 50}), sc.ball.Position(), physics.QueryFilter{})
			require.True(t, ray.Hit())
			assert.Same(t, sc.ball, ray.Shape().Body())

			wantSleep := c.sleepAfter > 0
			assert.Equal(t, wantSleep, sc.ball.IsSleeping())
			assert.Equal(t, wantSleep, sc.crate.IsSleeping())
		})
	}
}

func TestApplyMaterialFallsBack(t *testing.T) {
	cfg := config.Default()
	cfg.Materials["ball"] = config.Material{Elasticity: 0.9, Friction: 0.1}

	space := physics.NewSpace(cfg, nil)
	sc := newScene(space, cfg, zap.NewNop())

	ballShape := sc.ball.Shapes()[0]
	assert.Equal(t, 0.9, ballShape.Elasticity())
	crateShape := sc.crate.Shapes()[0]
	assert.Equal(t, cfg.Materials["default"].Friction, crateShape.Friction())
	assert.Equal(t, "ground", sc.ground.UserData())
}
