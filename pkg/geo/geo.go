// Package geo holds the map side of the lights engine: country polygons,
// GeoJSON loading, the screen projection and the background raster.
package geo

import "math"

// Projector maps geographic coordinates to screen coordinates.
type Projector interface {
	Project(lat, lng float64) (x, y float64)
}

// Projection is a Mollweide projection centered on the render surface.
type Projection struct {
	width, height int
	scale         float64
}

func NewProjection(width, height int, scale float64) *Projection {
	return &Projection{width: width, height: height, scale: scale}
}

func (p *Projection) Size() (int, int) { return p.width, p.height }

func (p *Projection) Scale() float64 { return p.scale }

// Resize keeps the map at the same relative size when the surface changes.
func (p *Projection) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	if p.width > 0 {
		p.scale *= float64(width) / float64(p.width)
	}
	p.width, p.height = width, height
}

func (p *Projection) Project(lat, lng float64) (x, y float64) {
	if lat > 89.5 {
		lat = 89.5
	}
	if lat < -89.5 {
		lat = -89.5
	}

	latRad, lngRad := lat*math.Pi/180, lng*math.Pi/180
	theta := latRad
	for i := 0; i < 10; i++ {
		denom := 2 + 2*math.Cos(2*theta)
		if math.Abs(denom) < 1e-9 {
			break
		}
		delta := (2*theta + math.Sin(2*theta) - math.Pi*math.Sin(latRad)) / denom
		theta -= delta
		if math.Abs(delta) < 1e-7 {
			break
		}
	}
	r := p.scale
	x = (float64(p.width) / 2) + r*(2*math.Sqrt(2)/math.Pi)*lngRad*math.Cos(theta)
	y = (float64(p.height) / 2) - r*math.Sqrt(2)*math.Sin(theta)
	return x, y
}
