package lightsengine

import (
	"image/color"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
)

var (
	ColorRegular     = color.RGBA{255, 223, 128, 255}
	ColorHighlighted = color.RGBA{255, 60, 38, 255}
	ColorGlow        = color.RGBA{255, 100, 50, 255}
)

// glowPixels renders a white radial light of the given size into
// premultiplied RGBA bytes.
// falloff shapes the edge: higher values give a tighter core.
func glowPixels(size int, falloff float64) []byte {
	pixels := make([]byte, size*size*4)
	center, maxDist := float64(size)/2.0, float64(size)/2.0
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx, dy := float64(x)+0.5-center, float64(y)+0.5-center
			dist := math.Sqrt(dx*dx + dy*dy)
			if dist >= maxDist {
				continue
			}
			v := uint8(math.Pow(1-dist/maxDist, falloff) * 255)
			i := (y*size + x) * 4
			pixels[i+0], pixels[i+1], pixels[i+2], pixels[i+3] = v, v, v, v
		}
	}
	return pixels
}

func newSpriteTexture(size int, falloff float64) *ebiten.Image {
	img := ebiten.NewImage(size, size)
	img.WritePixels(glowPixels(size, falloff))
	return img
}

func (e *Engine) initSprites() {
	size := 64
	if w, _ := e.proj.Size(); w > 2000 {
		size = 128
	}
	e.sprites[SpriteRegular] = newSpriteTexture(size, 1.6)
	e.sprites[SpriteHighlighted] = newSpriteTexture(size, 1.2)
	e.sprites[SpriteGlow] = newSpriteTexture(size, 2.5)
}
