package lightsengine

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/sudorandom/donation-lights/pkg/placement"
)

var (
	boundaryStroke = color.NRGBA{255, 255, 255, 77}
	boundaryFill   = color.NRGBA{255, 255, 255, 13}
)

// ebitenSurface is an offscreen layer that survives between frames, so an
// incremental draw only has to touch the new points.
type ebitenSurface struct {
	img     *ebiten.Image
	sprites [spriteCount]*ebiten.Image
	tints   [spriteCount]color.RGBA
	op      ebiten.DrawImageOptions
}

func newEbitenSurface(width, height int, sprites [spriteCount]*ebiten.Image) *ebitenSurface {
	s := &ebitenSurface{
		img:     ebiten.NewImage(width, height),
		sprites: sprites,
	}
	s.tints[SpriteRegular] = ColorRegular
	s.tints[SpriteHighlighted] = ColorHighlighted
	s.tints[SpriteGlow] = ColorGlow
	s.op.Blend = ebiten.BlendLighter
	return s
}

func (s *ebitenSurface) Size() (int, int) {
	b := s.img.Bounds()
	return b.Dx(), b.Dy()
}

func (s *ebitenSurface) Clear() { s.img.Clear() }

func (s *ebitenSurface) DrawSprite(kind Sprite, x, y, size, opacity float64) {
	tex := s.sprites[kind]
	if tex == nil || size <= 0 || opacity <= 0 {
		return
	}
	texW := float64(tex.Bounds().Dx())
	half := texW / 2
	scale := size / texW

	c := s.tints[kind]
	r, g, b := float64(c.R)/255.0, float64(c.G)/255.0, float64(c.B)/255.0

	s.op.GeoM.Reset()
	s.op.GeoM.Translate(-half, -half)
	s.op.GeoM.Scale(scale, scale)
	s.op.GeoM.Translate(x, y)
	s.op.ColorScale.Reset()
	s.op.ColorScale.Scale(float32(r*opacity), float32(g*opacity), float32(b*opacity), float32(opacity))
	s.img.DrawImage(tex, &s.op)
}

func (s *ebitenSurface) DrawBoundary(c placement.Circle) {
	cx, cy, r := float32(c.CenterX), float32(c.CenterY), float32(c.Radius)
	vector.DrawFilledCircle(s.img, cx, cy, r, boundaryFill, true)
	vector.StrokeCircle(s.img, cx, cy, r, 2, boundaryStroke, true)
}

func (s *ebitenSurface) Deallocate() { s.img.Deallocate() }
