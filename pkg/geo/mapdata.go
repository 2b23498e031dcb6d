package geo

import (
	"fmt"
	"sync/atomic"

	"github.com/paulmach/orb"
	geojson "github.com/paulmach/go.geojson"
)

var generations atomic.Uint64

// Map is an immutable set of countries. Each Map gets its own generation so
// caches keyed on it notice when the polygon set is replaced.
type Map struct {
	countries  []*Country
	generation uint64
}

func NewMap(countries []*Country) *Map {
	return &Map{countries: countries, generation: generations.Add(1)}
}

func (m *Map) Countries() []*Country { return m.countries }

func (m *Map) Generation() uint64 { return m.generation }

// LoadMap parses a GeoJSON FeatureCollection.
func LoadMap(data []byte) (*Map, error) {
	countries, err := LoadCountries(data)
	if err != nil {
		return nil, err
	}
	return NewMap(countries), nil
}

func LoadCountries(data []byte) ([]*Country, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse map geojson: %w", err)
	}
	var out []*Country
	for _, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}
		var shape orb.MultiPolygon
		switch {
		case f.Geometry.IsPolygon():
			shape = orb.MultiPolygon{toPolygon(f.Geometry.Polygon)}
		case f.Geometry.IsMultiPolygon():
			for _, poly := range f.Geometry.MultiPolygon {
				shape = append(shape, toPolygon(poly))
			}
		default:
			continue
		}
		out = append(out, NewCountry(featureAttrs(f), shape))
	}
	return out, nil
}

func featureAttrs(f *geojson.Feature) map[string]string {
	attrs := make(map[string]string)
	for k, v := range f.Properties {
		if s, ok := v.(string); ok {
			attrs[k] = s
		}
	}
	if f.ID != nil {
		if _, ok := attrs["id"]; !ok {
			attrs["id"] = fmt.Sprint(f.ID)
		}
	}
	return attrs
}

func toPolygon(rings [][][]float64) orb.Polygon {
	poly := make(orb.Polygon, 0, len(rings))
	for _, ring := range rings {
		r := make(orb.Ring, 0, len(ring))
		for _, p := range ring {
			if len(p) < 2 {
				continue
			}
			r = append(r, orb.Point{p[0], p[1]})
		}
		poly = append(poly, r)
	}
	return poly
}
