package lightsengine

import (
	"context"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudorandom/donation-lights/pkg/geo"
)

func TestInitialLoadPlacesRegularPoints(t *testing.T) {
	e, _, clock := testEngine()
	e.SetMap(testMap())

	e.SetAmount(49000)
	r, n := e.Pending()
	assert.Equal(t, 980, r)
	assert.Zero(t, n)

	drain(e, clock, 10)
	require.Equal(t, 980, e.Count())
	for _, p := range e.Points() {
		assert.False(t, p.IsNew())
	}
	r, n = e.Pending()
	assert.Zero(t, r+n)
	assert.Equal(t, LoopIdle, e.SchedulerState())

	pts := e.Points()
	for i := range pts {
		for j := i + 1; j < len(pts); j++ {
			dx, dy := pts[i].X-pts[j].X, pts[i].Y-pts[j].Y
			require.GreaterOrEqual(t, dx*dx+dy*dy, 0.25)
		}
	}
}

func TestDonationHighlightsAndReverts(t *testing.T) {
	e, _, clock := testEngine()
	e.SetMap(testMap())
	e.SetAmount(49000)
	drain(e, clock, 10)
	require.Equal(t, 980, e.Count())

	e.SetAmount(49150)
	r, n := e.Pending()
	assert.Zero(t, r)
	assert.Equal(t, 3, n)

	start := clock.Now()
	e.Tick(start)
	require.Equal(t, 983, e.Count())
	fresh := e.Points()[980:]
	for _, p := range fresh {
		assert.True(t, p.IsNew())
	}

	e.Tick(start.Add(19 * time.Second))
	for _, p := range fresh {
		assert.True(t, p.IsNew())
	}

	e.Tick(start.Add(20 * time.Second))
	for _, p := range fresh {
		assert.False(t, p.IsNew())
	}
	e.Tick(start.Add(time.Hour))
	for _, p := range fresh {
		assert.False(t, p.IsNew())
	}
}

func TestNoMapKeepsPending(t *testing.T) {
	e, _, clock := testEngine()
	e.SetAmount(1000)
	e.Tick(clock.Now())

	assert.Zero(t, e.Count())
	r, _ := e.Pending()
	assert.Equal(t, 20, r)
	assert.Equal(t, LoopIdle, e.SchedulerState())

	e.Maps() <- testMap()
	require.NoError(t, e.Update())
	assert.Equal(t, 20, e.Count())
}

func TestEmptyBucketsKeepPending(t *testing.T) {
	e, _, clock := testEngine()
	degenerate := geo.NewMap([]*geo.Country{
		geo.NewCountry(map[string]string{"id": "SE"}, nil),
		geo.NewCountry(map[string]string{"fill": "#000"}, square(0, 0, 10)),
	})
	e.SetMap(degenerate)
	e.SetAmount(500)

	for i := 0; i < 3; i++ {
		e.Tick(clock.Now())
	}
	assert.Zero(t, e.Count())
	r, n := e.Pending()
	assert.Equal(t, 10, r)
	assert.Zero(t, n)

	e.SetMap(testMap())
	drain(e, clock, 5)
	assert.Equal(t, 10, e.Count())
}

func TestCountIsMonotonic(t *testing.T) {
	e, _, clock := testEngine()
	e.SetMap(testMap())
	rng := rand.New(rand.NewSource(5))

	total := 0.0
	last := 0
	for i := 0; i < 40; i++ {
		total += float64(rng.Intn(400))
		e.SetAmount(total)
		e.Tick(clock.Now())
		clock.Advance(time.Second)

		assert.GreaterOrEqual(t, e.Count(), last)
		assert.LessOrEqual(t, e.Count(), int(math.Floor(total/50)))
		last = e.Count()
	}
	drain(e, clock, 10)
	assert.Equal(t, int(math.Floor(total/50)), e.Count())
}

func TestAmountsChannel(t *testing.T) {
	e, _, _ := testEngine()
	e.SetMap(testMap())
	e.Amounts() <- 500
	e.Amounts() <- 600
	require.NoError(t, e.Update())

	assert.Equal(t, 12, e.Count())
	highlighted := 0
	for _, p := range e.Points() {
		if p.IsNew() {
			highlighted++
		}
	}
	assert.Equal(t, 2, highlighted)
}

func TestUpdateStopsWhenContextDone(t *testing.T) {
	e, _, _ := testEngine()
	e.SetMap(testMap())

	ctx, cancel := context.WithCancel(context.Background())
	e.StopOn(ctx)
	e.Amounts() <- 500
	require.NoError(t, e.Update())
	assert.Equal(t, 10, e.Count())

	cancel()
	e.Amounts() <- 600
	assert.ErrorIs(t, e.Update(), ebiten.Termination)
	assert.Equal(t, 10, e.Count(), "no work after stop")
}

func TestAddDonation(t *testing.T) {
	e, _, clock := testEngine()
	e.SetMap(testMap())
	e.SetAmount(1000)
	e.AddDonation(100)
	_, n := e.Pending()
	assert.Equal(t, 2, n)
	drain(e, clock, 5)
	assert.Equal(t, 22, e.Count())
}

func TestTickDrawsIncrementallyAndRedraws(t *testing.T) {
	e, s, clock := testEngine()
	e.renderer.BlinkEnabled = false
	e.animator = NewAnimator(e.renderer)

	e.Tick(clock.Now())
	assert.Equal(t, 1, s.clears, "surface change forces a full redraw")

	e.SetMap(testMap())
	e.SetAmount(500)
	e.Tick(clock.Now())
	assert.Equal(t, 1, s.clears)
	assert.Equal(t, 10, s.count(SpriteRegular))

	e.AddDonation(50)
	e.Tick(clock.Now())
	assert.Equal(t, 1, s.clears)
	assert.Equal(t, 1, s.count(SpriteHighlighted))

	clock.Advance(21 * time.Second)
	e.Tick(clock.Now())
	assert.Equal(t, 2, s.clears, "expiry redraws once while idle")
	assert.Equal(t, 11, s.count(SpriteRegular))
	assert.Zero(t, s.count(SpriteHighlighted))

	e.Tick(clock.Now())
	assert.Equal(t, 2, s.clears)
}

func TestAnimationRunsWhileBlinking(t *testing.T) {
	e, s, clock := testEngine()
	e.SetMap(testMap())
	e.SetAmount(500)
	e.Tick(clock.Now())
	assert.Equal(t, LoopRunning, e.AnimationState())

	before := s.clears
	e.Tick(clock.Now())
	e.Tick(clock.Now())
	assert.Equal(t, before+2, s.clears)

	e.renderer.MaxPointsForBlink = 5
	e.Tick(clock.Now())
	assert.Equal(t, before+3, s.clears, "final redraw")
	assert.Equal(t, LoopIdle, e.AnimationState())
	e.Tick(clock.Now())
	assert.Equal(t, before+3, s.clears)
}

func TestResizeReprojects(t *testing.T) {
	e, _, clock := testEngine()
	e.SetMap(testMap())
	e.SetAmount(1000)
	drain(e, clock, 5)

	type pos struct{ x, y, lng, lat float64 }
	var before []pos
	for _, p := range e.Points() {
		lng, lat := p.Geo()
		before = append(before, pos{p.X, p.Y, lng, lat})
	}

	e.Resize(400, 200)
	for i, p := range e.Points() {
		lng, lat := p.Geo()
		assert.Equal(t, before[i].lng, lng)
		assert.Equal(t, before[i].lat, lat)
		assert.InDelta(t, before[i].x/2, p.X, 1e-6)
		assert.InDelta(t, before[i].y/2, p.Y, 1e-6)
	}
	w, h := e.Layout(1000, 1000)
	assert.Equal(t, 400, w)
	assert.Equal(t, 200, h)
}

func TestLayoutFollowsWindow(t *testing.T) {
	e, _, _ := testEngine()
	e.opts.FollowWindow = true
	w, h := e.Layout(1600, 800)
	assert.Equal(t, 1600, w)
	assert.Equal(t, 800, h)
	assert.InDelta(t, 320, e.proj.Scale(), 1e-9)
}

func TestBoundary(t *testing.T) {
	e, _, _ := testEngine()
	c := e.Boundary()
	assert.InDelta(t, 360, c.CenterX, 1e-9)
	assert.InDelta(t, 268, c.CenterY, 1e-9)
	assert.InDelta(t, 160, c.Radius, 1e-9)
}

func TestBoundaryRestrictsPlacement(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	opts := DefaultOptions()
	opts.Width, opts.Height, opts.Scale = 800, 400, 160
	opts.Seed = 2
	opts.Now = clock.Now
	opts.Boundary.Enabled = true
	opts.RegionPercentage = 100
	e := NewEngine(opts)
	e.SetSurface(&fakeSurface{w: 800, h: 400})
	e.SetMap(testMap())

	e.SetAmount(2500)
	drain(e, clock, 20)
	c := e.Boundary()
	require.NotZero(t, e.Count())
	for _, p := range e.Points() {
		require.True(t, c.Contains(p.X, p.Y))
	}
}
