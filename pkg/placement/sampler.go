package placement

import (
	"math/rand"
	"time"

	"github.com/sudorandom/donation-lights/pkg/geo"
)

// DefaultSampleAttempts bounds rejection sampling inside a single country.
const DefaultSampleAttempts = 500

// Projector is the projection the sampler places points with.
type Projector interface {
	Project(lat, lng float64) (x, y float64)
	Size() (width, height int)
}

// Sampler draws uniformly from a country's bounding box and keeps the first
// location that is on land, far enough from existing points and inside the
// boundary.
type Sampler struct {
	Proj        Projector
	Points      *PointSet
	MinDistance float64
	Boundary    CircleBoundary
	Rand        *rand.Rand
	Now         func() time.Time
}

// Sample returns nil when no acceptable location was found within
// maxAttempts.
func (s *Sampler) Sample(c *geo.Country, maxAttempts int) *Point {
	if c == nil || c.Area() <= 0 {
		return nil
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultSampleAttempts
	}
	circle, checkCircle := s.Boundary.Resolve(s.Proj.Size())
	checkCircle = checkCircle && s.Boundary.Enabled

	b := c.Bound()
	w, h := b.Max.X()-b.Min.X(), b.Max.Y()-b.Min.Y()
	for i := 0; i < maxAttempts; i++ {
		lng := b.Min.X() + s.Rand.Float64()*w
		lat := b.Min.Y() + s.Rand.Float64()*h
		if !c.Contains(lng, lat) {
			continue
		}
		x, y := s.Proj.Project(lat, lng)
		if s.Points.Near(x, y, s.MinDistance) {
			continue
		}
		if checkCircle && !circle.Contains(x, y) {
			continue
		}
		return newPoint(x, y, lng, lat, c.ID(), s.now(), s.Rand)
	}
	return nil
}

func (s *Sampler) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}
