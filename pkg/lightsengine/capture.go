package lightsengine

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/rs/zerolog/log"
)

// captureFrame writes the composed frame as a PNG. Pixels are copied on the
// game goroutine and encoded on another.
func (e *Engine) captureFrame(img *ebiten.Image, timestamp time.Time) {
	dir := e.opts.CaptureDir
	if dir == "" {
		return
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Error().Err(err).Str("dir", dir).Msg("Error creating capture directory")
		return
	}

	path := filepath.Join(dir, captureName(timestamp, e.points.Len()))
	rgba := image.NewRGBA(img.Bounds())
	img.ReadPixels(rgba.Pix)

	go func() {
		if err := writePNG(path, rgba); err != nil {
			log.Error().Err(err).Str("path", path).Msg("Error writing capture")
			return
		}
		log.Debug().Str("path", path).Msg("Captured frame")
	}()
}

func captureName(timestamp time.Time, count int) string {
	return fmt.Sprintf("lights-%s-%d.png", timestamp.Format("20060102-150405"), count)
}

func writePNG(path string, img image.Image) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating capture file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encoding capture: %w", err)
	}
	return nil
}
