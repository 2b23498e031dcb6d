// Package placement decides where new lights go: it classifies countries into
// region and global buckets, weights them by area and density, and samples
// locations that respect the minimum spacing and the optional circle boundary.
package placement

import (
	"math"
	"math/rand"
	"time"
)

// Kind distinguishes the two ways a point is drawn.
type Kind uint8

const (
	Regular Kind = iota
	Highlighted
)

func (k Kind) String() string {
	if k == Highlighted {
		return "highlighted"
	}
	return "regular"
}

// Point is one light on the map. The geographic coordinate is fixed at
// creation; X and Y follow the current projection.
type Point struct {
	X, Y      float64
	Country   string
	CreatedAt time.Time

	SizeJitter      float64
	BlinkPhase      float64
	BlinkSpeed      float64
	BlinkMinOpacity float64
	BlinkMaxOpacity float64

	Kind           Kind
	HighlightUntil time.Time

	lng, lat   float64
	wasHighlit bool
}

func newPoint(x, y, lng, lat float64, country string, now time.Time, rng *rand.Rand) *Point {
	return &Point{
		X:               x,
		Y:               y,
		Country:         country,
		CreatedAt:       now,
		SizeJitter:      0.8 + rng.Float64()*0.6,
		BlinkPhase:      rng.Float64() * math.Pi * 2,
		BlinkSpeed:      0.5 + rng.Float64()*1.5,
		BlinkMinOpacity: 0.2 + rng.Float64()*0.3,
		BlinkMaxOpacity: 0.7 + rng.Float64()*0.3,
		lng:             lng,
		lat:             lat,
	}
}

// Geo returns the source coordinate.
func (p *Point) Geo() (lng, lat float64) { return p.lng, p.lat }

func (p *Point) IsNew() bool { return p.Kind == Highlighted }

// Highlight marks the point as recent until now+d. A point is highlighted at
// most once; after it expires it stays regular.
func (p *Point) Highlight(now time.Time, d time.Duration) bool {
	if p.wasHighlit {
		return false
	}
	p.wasHighlit = true
	p.Kind = Highlighted
	p.CreatedAt = now
	p.HighlightUntil = now.Add(d)
	return true
}

// Expire reverts a highlighted point once its window has passed.
func (p *Point) Expire(now time.Time) bool {
	if p.Kind != Highlighted || now.Before(p.HighlightUntil) {
		return false
	}
	p.Kind = Regular
	return true
}
