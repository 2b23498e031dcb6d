package geo

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"sort"

	"github.com/paulmach/orb"
)

// BackgroundStyle holds the colors used to rasterize the land mass.
type BackgroundStyle struct {
	Sea, Land, Outline color.RGBA
}

// RenderBackground rasterizes every country onto a width x height image.
func RenderBackground(width, height int, countries []*Country, proj Projector, style BackgroundStyle) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{style.Sea}, image.Point{}, draw.Src)
	r := rasterizer{img: img, width: width, height: height, proj: proj}
	for _, c := range countries {
		for _, poly := range c.Shape() {
			r.fillPolygon(poly, style.Land)
			for _, ring := range poly {
				r.drawRing(ring, style.Outline)
			}
		}
	}
	return img
}

type rasterizer struct {
	img           *image.RGBA
	width, height int
	proj          Projector
}

func (r *rasterizer) fillPolygon(rings orb.Polygon, c color.RGBA) {
	if len(rings) == 0 {
		return
	}
	type point struct{ x, y float64 }
	projected := make([][]point, len(rings))
	minY, maxY := float64(r.height), 0.0
	for i, ring := range rings {
		projected[i] = make([]point, len(ring))
		for j, p := range ring {
			x, y := r.proj.Project(p.Y(), p.X())
			projected[i][j] = point{x, y}
			minY = math.Min(minY, y)
			maxY = math.Max(maxY, y)
		}
	}
	var nodes []int
	for y := int(minY); y <= int(maxY); y++ {
		if y < 0 || y >= r.height {
			continue
		}
		nodes = nodes[:0]
		fy := float64(y)
		for _, ring := range projected {
			for i := 0; i < len(ring); i++ {
				j := (i + 1) % len(ring)
				if (ring[i].y < fy && ring[j].y >= fy) || (ring[j].y < fy && ring[i].y >= fy) {
					nodeX := ring[i].x + (fy-ring[i].y)/(ring[j].y-ring[i].y)*(ring[j].x-ring[i].x)
					nodes = append(nodes, int(nodeX))
				}
			}
		}
		sort.Ints(nodes)
		for i := 0; i < len(nodes)-1; i += 2 {
			xs, xe := max(nodes[i], 0), min(nodes[i+1], r.width-1)
			for x := xs; x < xe; x++ {
				r.set(x, y, c)
			}
		}
	}
}

func (r *rasterizer) drawRing(ring orb.Ring, c color.RGBA) {
	for i := 0; i < len(ring)-1; i++ {
		x1, y1 := r.proj.Project(ring[i].Y(), ring[i].X())
		x2, y2 := r.proj.Project(ring[i+1].Y(), ring[i+1].X())
		r.drawLine(int(x1), int(y1), int(x2), int(y2), c)
	}
}

// drawLine is Bresenham without anti-aliasing.
func (r *rasterizer) drawLine(x1, y1, x2, y2 int, c color.RGBA) {
	dx, dy := math.Abs(float64(x2-x1)), math.Abs(float64(y2-y1))
	sx, sy := -1, -1
	if x1 < x2 {
		sx = 1
	}
	if y1 < y2 {
		sy = 1
	}
	err := dx - dy
	for {
		r.set(x1, y1, c)
		if x1 == x2 && y1 == y2 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

func (r *rasterizer) set(x, y int, c color.RGBA) {
	if x < 0 || x >= r.width || y < 0 || y >= r.height {
		return
	}
	off := y*r.img.Stride + x*4
	r.img.Pix[off], r.img.Pix[off+1], r.img.Pix[off+2], r.img.Pix[off+3] = c.R, c.G, c.B, 255
}
