package geo

import (
	"math"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// identityKeys are checked in order; the first non-empty value names the country.
var identityKeys = []string{"class", "category", "id", "name", "code", "iso_a2"}

// Country is one closed region on the map. Coordinates are lng/lat.
type Country struct {
	attrs map[string]string
	shape orb.MultiPolygon
	bound orb.Bound
	valid bool
}

func NewCountry(attrs map[string]string, shape orb.MultiPolygon) *Country {
	c := &Country{attrs: make(map[string]string, len(attrs)), shape: shape}
	for k, v := range attrs {
		c.attrs[strings.ToLower(k)] = strings.TrimSpace(v)
	}
	c.bound, c.valid = safeBound(shape)
	return c
}

func safeBound(shape orb.MultiPolygon) (b orb.Bound, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			b, ok = orb.Bound{}, false
		}
	}()
	if len(shape) == 0 {
		return orb.Bound{}, false
	}
	b = shape.Bound()
	return b, true
}

// ID returns the identity attribute, or "" when none is present.
func (c *Country) ID() string {
	for _, k := range identityKeys {
		if v := c.attrs[k]; v != "" {
			return v
		}
	}
	return ""
}

func (c *Country) Attr(key string) string { return c.attrs[strings.ToLower(key)] }

func (c *Country) Shape() orb.MultiPolygon { return c.shape }

func (c *Country) Bound() orb.Bound { return c.bound }

// Area is the bounding-box area. Malformed geometry reports zero.
func (c *Country) Area() float64 {
	if !c.valid {
		return 0
	}
	w := c.bound.Max.X() - c.bound.Min.X()
	h := c.bound.Max.Y() - c.bound.Min.Y()
	a := w * h
	if w <= 0 || h <= 0 || math.IsNaN(a) || math.IsInf(a, 0) {
		return 0
	}
	return a
}

// Contains reports whether the coordinate is inside the fill region.
func (c *Country) Contains(lng, lat float64) (inside bool) {
	if !c.valid {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			inside = false
		}
	}()
	return planar.MultiPolygonContains(c.shape, orb.Point{lng, lat})
}
