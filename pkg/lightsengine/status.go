package lightsengine

import (
	"image/color"

	"github.com/dustin/go-humanize"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

func counterLabel(n int) string {
	if n == 1 {
		return "1 light"
	}
	return humanize.Comma(int64(n)) + " lights"
}

// drawCounter shows the number of placed points in the bottom-left corner.
func (e *Engine) drawCounter(screen *ebiten.Image) {
	if e.fontSource == nil {
		return
	}
	width, height := e.proj.Size()
	margin, fontSize := 40.0, 28.0
	if width > 2000 {
		margin, fontSize = 80.0, 56.0
	}

	face := &text.GoTextFace{Source: e.fontSource, Size: fontSize}
	label := counterLabel(e.Count())
	tw, th := text.Measure(label, face, 0)

	x, y := margin, float64(height)-margin-th
	vector.DrawFilledRect(screen, float32(x-12), float32(y-8), float32(tw+24), float32(th+16), color.RGBA{0, 0, 0, 100}, false)
	vector.DrawFilledRect(screen, float32(x-12), float32(y-8), 4, float32(th+16), ColorHighlighted, false)

	op := &text.DrawOptions{}
	op.GeoM.Translate(x, y)
	op.ColorScale.ScaleWithColor(ColorRegular)
	op.ColorScale.ScaleAlpha(0.9)
	text.Draw(screen, label, face, op)
}
