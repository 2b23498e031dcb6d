package placement

import (
	"math"
	"time"
)

// minCellSize keeps the spatial grid from degenerating into one cell per pixel.
const minCellSize = 4.0

type cellKey struct{ x, y int }

// PointSet owns every placed point. It only grows.
type PointSet struct {
	points      []*Point
	byCountry   map[string]int
	highlighted []*Point

	cell float64
	grid map[cellKey][]*Point
}

func NewPointSet(minDistance float64) *PointSet {
	return &PointSet{
		byCountry: make(map[string]int),
		cell:      math.Max(minDistance, minCellSize),
		grid:      make(map[cellKey][]*Point),
	}
}

func (s *PointSet) Len() int { return len(s.points) }

// Points returns the backing slice. Callers must not modify it.
func (s *PointSet) Points() []*Point { return s.points }

func (s *PointSet) CountIn(country string) int { return s.byCountry[country] }

func (s *PointSet) Append(p *Point) {
	s.points = append(s.points, p)
	s.byCountry[p.Country]++
	k := s.key(p.X, p.Y)
	s.grid[k] = append(s.grid[k], p)
}

// Highlight marks p as recent and tracks it for expiry.
func (s *PointSet) Highlight(p *Point, now time.Time, d time.Duration) {
	if p.Highlight(now, d) {
		s.highlighted = append(s.highlighted, p)
	}
}

func (s *PointSet) HighlightedCount() int { return len(s.highlighted) }

// ExpireHighlights reverts every highlight whose window has passed and
// returns how many changed.
func (s *PointSet) ExpireHighlights(now time.Time) int {
	if len(s.highlighted) == 0 {
		return 0
	}
	expired := 0
	remaining := s.highlighted[:0]
	for _, p := range s.highlighted {
		if p.Expire(now) {
			expired++
			continue
		}
		remaining = append(remaining, p)
	}
	for i := len(remaining); i < len(s.highlighted); i++ {
		s.highlighted[i] = nil
	}
	s.highlighted = remaining
	return expired
}

// Near reports whether any point lies closer than minDistance to (x, y).
func (s *PointSet) Near(x, y, minDistance float64) bool {
	if minDistance <= 0 || len(s.points) == 0 {
		return false
	}
	minSq := minDistance * minDistance
	reach := int(math.Ceil(minDistance / s.cell))
	c := s.key(x, y)
	for gx := c.x - reach; gx <= c.x+reach; gx++ {
		for gy := c.y - reach; gy <= c.y+reach; gy++ {
			for _, p := range s.grid[cellKey{gx, gy}] {
				dx, dy := x-p.X, y-p.Y
				if dx*dx+dy*dy < minSq {
					return true
				}
			}
		}
	}
	return false
}

// Reproject recomputes screen coordinates from the stored geographic ones.
func (s *PointSet) Reproject(proj interface {
	Project(lat, lng float64) (x, y float64)
}) {
	s.grid = make(map[cellKey][]*Point, len(s.grid))
	for _, p := range s.points {
		p.X, p.Y = proj.Project(p.lat, p.lng)
		k := s.key(p.X, p.Y)
		s.grid[k] = append(s.grid[k], p)
	}
}

func (s *PointSet) key(x, y float64) cellKey {
	return cellKey{int(math.Floor(x / s.cell)), int(math.Floor(y / s.cell))}
}
