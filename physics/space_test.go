package physics

import (
	"math"
	"testing"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/rigid/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewSpaceAppliesConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Gravity = config.Vec{X: 1, Y: -9}
	cfg.Iterations = 25
	cfg.Damping = 0.5

	space := NewSpace(cfg, nil)
	assert.Equal(t, uint(25), space.Kernel().Iterations)
	assert.Equal(t, cfg, space.Config())

	static := space.StaticBody()
	require.NotNil(t, static)
	assert.True(t, static.IsStatic())
	assert.Same(t, space, static.Space())
	assert.Same(t, static, BodyFromKernel(space.Kernel().StaticBody))

	cfg.Iterations = 0
	space.Configure(cfg)
	assert.Equal(t, uint(25), space.Kernel().Iterations, "zero iterations keeps the current value")
}

func TestSpaceMembership(t *testing.T) {
	space := NewSpace(config.Default(), nil)
	other := NewSpace(config.Default(), nil)

	b := NewBody(1, 1)
	sh := NewCircle(b, 1, cp.Vector{})
	require.PanicsWithError(t, "physics: shape's body is not in this space", func() { space.AddShape(sh) })

	space.AddBody(b)
	space.AddShape(sh)
	assert.Same(t, space, b.Space())
	assert.Same(t, space, sh.Space())
	assert.Equal(t, []*Body{b}, space.Bodies())
	assert.Equal(t, []*Shape{sh}, space.Shapes())

	require.PanicsWithError(t, "physics: body is already added to a space", func() { other.AddBody(b) })
	require.PanicsWithError(t, "physics: shape is already added to a space", func() { space.AddShape(sh) })
	require.PanicsWithError(t, "physics: cannot remove the space's static body", func() {
		space.RemoveBody(space.StaticBody())
	})

	space.RemoveBody(b)
	assert.True(t, b.IsRogue())
	assert.Nil(t, sh.Space(), "removing a body removes its shapes")
	assert.Empty(t, space.Bodies())
	assert.Empty(t, space.Shapes())
	assert.Len(t, b.Shapes(), 1, "the shape still belongs to the body")

	other.AddBody(b)
	other.AddShape(sh)
	assert.Same(t, other, sh.Space())
}

func TestStaticShapesOnSpaceBody(t *testing.T) {
	space := NewSpace(config.Default(), nil)
	ground := NewSegment(space.StaticBody(), v(-100, 0), v(100, 0), 0)
	require.NotPanics(t, func() { space.AddShape(ground) })

	res := space.SegmentQueryFirst(v(0, 10), v(0, -10), QueryFilter{})
	require.True(t, res.Hit())
	assert.Same(t, ground, res.Shape())
}

func newQueryScene(t *testing.T) (*Space, map[string]*Shape) {
	t.Helper()
	space := NewSpace(config.Default(), nil)
	static := space.StaticBody()

	shapes := map[string]*Shape{
		"near":   NewCircle(static, 1, v(5, 0)),
		"middle": NewBox(static, 2, 2),
		"far":    NewCircle(static, 1, v(-6, 0)),
	}
	for _, name := range []string{"far", "middle", "near"} {
		space.AddShape(shapes[name])
	}
	return space, shapes
}

func TestSpaceSegmentQueries(t *testing.T) {
	space, shapes := newQueryScene(t)

	first := space.SegmentQueryFirst(v(10, 0), v(-10, 0), QueryFilter{})
	require.True(t, first.Hit())
	assert.Same(t, shapes["near"], first.Shape())
	assert.InDelta(t, 0.2, first.T(), 1e-9)
	assertVec(t, v(1, 0), first.Normal())

	all := space.SegmentQueryAll(v(10, 0), v(-10, 0), QueryFilter{})
	require.Len(t, all, 3)
	assert.Same(t, shapes["near"], all[0].Shape())
	assert.Same(t, shapes["middle"], all[1].Shape())
	assert.Same(t, shapes["far"], all[2].Shape())
	assert.InDelta(t, 0.45, all[1].T(), 1e-9)
	assert.InDelta(t, 0.75, all[2].T(), 1e-9)

	miss := space.SegmentQueryFirst(v(10, 5), v(-10, 5), QueryFilter{})
	assert.False(t, miss.Hit())
	assert.Equal(t, 1.0, miss.T())
	assert.Empty(t, space.SegmentQueryAll(v(10, 5), v(-10, 5), QueryFilter{}))
}

func TestSpacePointQueries(t *testing.T) {
	space, shapes := newQueryScene(t)

	nearest := space.NearestPointQuery(v(3, 0), math.Inf(1), QueryFilter{})
	require.True(t, nearest.Hit())
	assert.Same(t, shapes["near"], nearest.Shape())
	assert.InDelta(t, 1, nearest.Distance(), 1e-9)

	inside := space.NearestPointQuery(v(0.5, 0), 10, QueryFilter{})
	assert.Same(t, shapes["middle"], inside.Shape())
	assert.InDelta(t, -0.5, inside.Distance(), 1e-9)

	none := space.NearestPointQuery(v(0, 50), 10, QueryFilter{})
	assert.False(t, none.Hit())
	assert.Nil(t, none.Shape())

	all := space.PointQueryAll(v(3, 0), 3, QueryFilter{})
	require.Len(t, all, 2)
	assert.Same(t, shapes["near"], all[0].Shape())
	assert.Same(t, shapes["middle"], all[1].Shape())
	assert.InDelta(t, 2, all[1].Distance(), 1e-9)
}

func TestQueryFilter(t *testing.T) {
	cases := []struct {
		name     string
		layers   uint
		group    uint
		filter   QueryFilter
		wantSeen bool
	}{
		{"default_sees_all", AllLayers, 0, QueryFilter{}, true},
		{"layer_match", 0b10, 0, QueryFilter{Layers: 0b11}, true},
		{"layer_mismatch", 0b10, 0, QueryFilter{Layers: 0b01}, false},
		{"zero_layers_means_all", 0b100, 0, QueryFilter{Layers: 0}, true},
		{"same_group", AllLayers, 7, QueryFilter{Group: 7}, false},
		{"other_group", AllLayers, 7, QueryFilter{Group: 8}, true},
		{"no_group", AllLayers, 0, QueryFilter{Group: 0}, true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			space := NewSpace(config.Default(), nil)
			sh := NewCircle(space.StaticBody(), 1, cp.Vector{})
			sh.SetLayers(c.layers)
			sh.SetGroup(c.group)
			space.AddShape(sh)

			seg := space.SegmentQueryFirst(v(-5, 0), v(5, 0), c.filter)
			assert.Equal(t, c.wantSeen, seg.Hit())
			pt := space.NearestPointQuery(v(3, 0), 5, c.filter)
			assert.Equal(t, c.wantSeen, pt.Hit())
		})
	}
}

func TestSensorsAreQueryable(t *testing.T) {
	space := NewSpace(config.Default(), nil)
	sh := NewCircle(space.StaticBody(), 2, cp.Vector{})
	sh.SetSensor(true)
	space.AddShape(sh)

	assert.True(t, space.SegmentQueryFirst(v(-5, 0), v(5, 0), QueryFilter{}).Hit())
	assert.True(t, space.NearestPointQuery(v(0, 0), 0, QueryFilter{}).Hit())
}

func TestStepRefreshesAwakeBoundingBoxes(t *testing.T) {
	cfg := config.Default()
	cfg.Gravity = config.Vec{}
	space := NewSpace(cfg, nil)

	b := NewBody(1, MomentInfinity)
	space.AddBody(b)
	sh := NewCircle(b, 1, cp.Vector{})
	space.AddShape(sh)
	b.SetVelocity(v(60, 0))

	space.Step(0.5)
	space.Step(0.5)

	x := b.Position().X
	assert.InDelta(t, 60, x, 1e-9)
	assert.InDelta(t, x-1, sh.BoundingBox().L, 1e-9)
	assert.Same(t, sh, space.SegmentQueryFirst(v(x, 10), v(x, -10), QueryFilter{}).Shape())
}

func TestOnContact(t *testing.T) {
	const (
		ballType cp.CollisionType = iota + 1
		wallType
	)
	cfg := config.Default()
	cfg.Gravity = config.Vec{}

	cases := []struct {
		name    string
		accept  bool
		wantHit bool
	}{
		{"accepted", true, true},
		{"rejected", false, false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			space := NewSpace(cfg, nil)
			wall := NewBox(space.StaticBody(), 2, 20)
			wall.SetCollisionType(wallType)
			space.AddShape(wall)

			ball := NewBody(1, MomentInfinity)
			ball.SetPosition(v(-2.5, 0))
			space.AddBody(ball)
			ballShape := NewCircle(ball, 1, cp.Vector{})
			ballShape.SetCollisionType(ballType)
			space.AddShape(ballShape)
			ball.SetVelocity(v(60, 0))

			var calls int
			space.OnContact(ballType, wallType, func(a, b *Shape) bool {
				calls++
				assert.Same(t, ballShape, a)
				assert.Same(t, wall, b)
				return c.accept
			})

			space.Step(1.0 / 60.0)

			assert.Equal(t, 1, calls)
			if c.wantHit {
				assert.Less(t, ball.Velocity().X, 60.0)
			} else {
				assert.Equal(t, 60.0, ball.Velocity().X)
			}
		})
	}
}

func TestSpaceLogsSleepTransitions(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	space := NewSpace(config.Default(), zap.New(core))

	b := NewBody(1, 1)
	space.AddBody(b)
	b.Sleep()
	b.Activate()

	assert.Equal(t, 1, logs.FilterMessage("body fell asleep").Len())
	woke := logs.FilterMessage("sleep group woke").All()
	require.Len(t, woke, 1)
	assert.Equal(t, int64(1), woke[0].ContextMap()["members"])
}

func TestQueriesFollowRefreshedStaticShapes(t *testing.T) {
	space := NewSpace(config.Default(), nil)
	ground := NewStaticBody()
	space.AddBody(ground)
	wall := NewBox(ground, 2, 2)
	space.AddShape(wall)

	ground.SetPosition(v(20, 0))
	assert.False(t, space.SegmentQueryFirst(v(10, 0), v(30, 0), QueryFilter{}).Hit(), "index is stale until refreshed")

	wall.RefreshBoundingBox()
	assert.False(t, space.SegmentQueryFirst(v(-5, 0), v(5, 0), QueryFilter{}).Hit())
	res := space.SegmentQueryFirst(v(10, 0), v(30, 0), QueryFilter{})
	require.True(t, res.Hit())
	assert.InDelta(t, 0.45, res.T(), 1e-9)
}
