package lightsengine

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dhowden/tag"
	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/go-mp3"
	"github.com/rs/zerolog/log"
)

const (
	audioSampleRate    = 44100
	DefaultChimeGap    = 2 * time.Second
	defaultChimeVolume = 0.6
)

// Chime is a short sound played when highlighted points land.
type Chime struct {
	Title       string
	MinInterval time.Duration
	Volume      float64

	ctx    *audio.Context
	pcm    []byte
	player *audio.Player
	last   time.Time
}

// LoadChime decodes an mp3 into memory.
func LoadChime(ctx *audio.Context, path string) (*Chime, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening chime: %w", err)
	}
	defer f.Close()

	title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if m, err := tag.ReadFrom(f); err == nil && m.Title() != "" {
		title = m.Title()
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	d, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, fmt.Errorf("decoding chime: %w", err)
	}
	if d.SampleRate() != ctx.SampleRate() {
		return nil, fmt.Errorf("chime sample rate %d does not match audio context %d", d.SampleRate(), ctx.SampleRate())
	}
	pcm, err := io.ReadAll(d)
	if err != nil {
		return nil, fmt.Errorf("reading chime: %w", err)
	}
	return &Chime{
		Title:       title,
		MinInterval: DefaultChimeGap,
		Volume:      defaultChimeVolume,
		ctx:         ctx,
		pcm:         pcm,
	}, nil
}

// due reports whether enough time has passed since the last play and, if
// so, records now as the last play.
func (c *Chime) due(now time.Time) bool {
	if !c.last.IsZero() && now.Sub(c.last) < c.MinInterval {
		return false
	}
	c.last = now
	return true
}

// Play starts the chime unless it played within MinInterval.
func (c *Chime) Play(now time.Time) bool {
	if c == nil || !c.due(now) {
		return false
	}
	p := c.ctx.NewPlayerFromBytes(c.pcm)
	p.SetVolume(c.Volume)
	p.Play()
	c.player = p
	return true
}

// InitChime loads the chime at path. Failures are logged and leave the
// engine silent.
func (e *Engine) InitChime(path string) {
	if path == "" {
		return
	}
	if e.audioContext == nil {
		e.audioContext = audio.NewContext(audioSampleRate)
	}
	c, err := LoadChime(e.audioContext, path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Chime disabled")
		return
	}
	log.Info().Str("title", c.Title).Msg("Loaded chime")
	e.chime = c
}
