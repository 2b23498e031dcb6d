package placement

import "math"

// CircleBoundary optionally restricts placement to a disc. Center and radius
// are fractions of the surface; the radius is relative to the smaller side.
type CircleBoundary struct {
	Enabled    bool
	CenterX    float64
	CenterY    float64
	Radius     float64
	ShowVisual bool
}

// DefaultCircleBoundary is disabled and centred on southern Africa and
// South America in the default projection.
var DefaultCircleBoundary = CircleBoundary{
	CenterX:    0.45,
	CenterY:    0.67,
	Radius:     0.40,
	ShowVisual: true,
}

// Circle is a boundary resolved to pixels.
type Circle struct {
	CenterX, CenterY, Radius float64
}

// Resolve converts the boundary to pixel space. ok is false when the surface
// has no area yet.
func (b CircleBoundary) Resolve(width, height int) (c Circle, ok bool) {
	if width <= 0 || height <= 0 {
		return Circle{}, false
	}
	return Circle{
		CenterX: float64(width) * b.CenterX,
		CenterY: float64(height) * b.CenterY,
		Radius:  math.Min(float64(width), float64(height)) * b.Radius,
	}, true
}

func (c Circle) Contains(x, y float64) bool {
	dx, dy := x-c.CenterX, y-c.CenterY
	return math.Sqrt(dx*dx+dy*dy) <= c.Radius
}
