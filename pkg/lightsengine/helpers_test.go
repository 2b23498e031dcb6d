package lightsengine

import (
	"time"

	"github.com/paulmach/orb"

	"github.com/sudorandom/donation-lights/pkg/geo"
	"github.com/sudorandom/donation-lights/pkg/placement"
)

type drawCall struct {
	sprite  Sprite
	x, y    float64
	size    float64
	opacity float64
}

type fakeSurface struct {
	w, h       int
	clears     int
	calls      []drawCall
	boundaries []placement.Circle
}

func (s *fakeSurface) Size() (int, int) { return s.w, s.h }

func (s *fakeSurface) Clear() {
	s.clears++
	s.calls = s.calls[:0]
	s.boundaries = s.boundaries[:0]
}

func (s *fakeSurface) DrawSprite(kind Sprite, x, y, size, opacity float64) {
	s.calls = append(s.calls, drawCall{kind, x, y, size, opacity})
}

func (s *fakeSurface) DrawBoundary(c placement.Circle) {
	s.boundaries = append(s.boundaries, c)
}

func (s *fakeSurface) count(kind Sprite) int {
	n := 0
	for _, c := range s.calls {
		if c.sprite == kind {
			n++
		}
	}
	return n
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func square(x0, y0, size float64) orb.MultiPolygon {
	return orb.MultiPolygon{{{
		{x0, y0}, {x0 + size, y0}, {x0 + size, y0 + size}, {x0, y0 + size}, {x0, y0},
	}}}
}

func testMap() *geo.Map {
	c := func(id string, shape orb.MultiPolygon) *geo.Country {
		return geo.NewCountry(map[string]string{"id": id}, shape)
	}
	return geo.NewMap([]*geo.Country{
		c("BR", square(-70, -30, 35)),
		c("ZA", square(15, -35, 20)),
		c("US", square(-120, 25, 40)),
		c("SE", square(10, 45, 30)),
		c("AU", square(115, -40, 35)),
	})
}

func testEngine() (*Engine, *fakeSurface, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	opts := DefaultOptions()
	opts.Width, opts.Height, opts.Scale = 800, 400, 160
	opts.Seed = 1
	opts.Now = clock.Now

	e := NewEngine(opts)
	s := &fakeSurface{w: 800, h: 400}
	e.SetSurface(s)
	return e, s, clock
}

// drain ticks until the scheduler goes idle or the frame budget runs out.
func drain(e *Engine, clock *fakeClock, frames int) {
	for i := 0; i < frames; i++ {
		e.Tick(clock.Now())
		clock.Advance(16 * time.Millisecond)
		if e.SchedulerState() == LoopIdle {
			return
		}
	}
}
