package lightsengine

import (
	"math"
	"time"

	"github.com/sudorandom/donation-lights/pkg/placement"
)

const (
	DefaultMaxPointsForBlink   = 18000
	DefaultLeanRenderThreshold = 5000
	DefaultRegularSize         = 8
	DefaultHighlightedSize     = 24

	highlightMinOpacity = 0.7
	highlightMaxOpacity = 1.0

	glowScale   = 1.8
	glowOpacity = 0.5
)

// Sprite selects the texture and tint used for a draw.
type Sprite uint8

const (
	SpriteRegular Sprite = iota
	SpriteHighlighted
	SpriteGlow
	spriteCount
)

// Surface is the persistent layer points are composited onto. Sprites are
// blended additively so overlapping lights brighten.
type Surface interface {
	Size() (width, height int)
	Clear()
	DrawSprite(s Sprite, x, y, size, opacity float64)
	DrawBoundary(c placement.Circle)
}

// Renderer draws points onto a Surface.
type Renderer struct {
	BlinkEnabled      bool
	MaxPointsForBlink int
	LeanThreshold     int
	RegularSize       float64
	HighlightedSize   float64
	Boundary          placement.CircleBoundary
}

func NewRenderer() *Renderer {
	return &Renderer{
		BlinkEnabled:      true,
		MaxPointsForBlink: DefaultMaxPointsForBlink,
		LeanThreshold:     DefaultLeanRenderThreshold,
		RegularSize:       DefaultRegularSize,
		HighlightedSize:   DefaultHighlightedSize,
		Boundary:          placement.DefaultCircleBoundary,
	}
}

// Blinking reports whether points animate at this population.
func (r *Renderer) Blinking(population int) bool {
	return r.BlinkEnabled && population <= r.MaxPointsForBlink
}

// Opacity returns the point's brightness at now. Regular points stay within
// their own band, highlighted points within [0.7, 1.0]. Without blinking the
// band midpoint is used.
func (r *Renderer) Opacity(p *placement.Point, population int, now time.Time) float64 {
	lo, hi := p.BlinkMinOpacity, p.BlinkMaxOpacity
	if p.IsNew() {
		lo, hi = highlightMinOpacity, highlightMaxOpacity
	}
	if !r.Blinking(population) {
		return (lo + hi) / 2
	}
	speed := p.BlinkSpeed
	if speed <= 0 {
		speed = 1
	}
	t := float64(now.UnixNano()) / float64(time.Second)
	v := math.Sin(t*2*math.Pi/speed + p.BlinkPhase)
	return lo + (v+1)/2*(hi-lo)
}

// FullRedraw clears the surface and draws every point, regular ones first.
func (r *Renderer) FullRedraw(s Surface, points []*placement.Point, now time.Time) {
	s.Clear()
	if r.Boundary.Enabled && r.Boundary.ShowVisual {
		if c, ok := r.Boundary.Resolve(s.Size()); ok {
			s.DrawBoundary(c)
		}
	}
	r.draw(s, points, len(points), now)
}

// DrawIncremental draws only the given points on top of what is there.
func (r *Renderer) DrawIncremental(s Surface, added []*placement.Point, population int, now time.Time) {
	r.draw(s, added, population, now)
}

func (r *Renderer) draw(s Surface, points []*placement.Point, population int, now time.Time) {
	lean := population > r.LeanThreshold
	for _, p := range points {
		if p.IsNew() {
			continue
		}
		s.DrawSprite(SpriteRegular, p.X, p.Y, r.RegularSize*p.SizeJitter, r.Opacity(p, population, now))
	}
	for _, p := range points {
		if !p.IsNew() {
			continue
		}
		size := r.HighlightedSize * p.SizeJitter
		opacity := r.Opacity(p, population, now)
		if !lean {
			s.DrawSprite(SpriteGlow, p.X, p.Y, size*glowScale, opacity*glowOpacity)
		}
		s.DrawSprite(SpriteHighlighted, p.X, p.Y, size, opacity)
	}
}
