package lightsengine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGlowPixels(t *testing.T) {
	const size = 32
	px := glowPixels(size, 1.5)
	at := func(x, y int) byte { return px[(y*size+x)*4+3] }

	assert.Len(t, px, size*size*4)
	assert.Greater(t, at(16, 16), byte(200))
	assert.Zero(t, at(0, 0))
	assert.Greater(t, at(16, 16), at(16, 24))
	i := (16*size + 16) * 4
	assert.Equal(t, px[i+3], px[i], "premultiplied")
}

func TestCounterLabel(t *testing.T) {
	tests := map[int]string{
		0:     "0 lights",
		1:     "1 light",
		980:   "980 lights",
		49000: "49,000 lights",
	}
	for n, want := range tests {
		if got := counterLabel(n); got != want {
			t.Errorf("counterLabel(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestCaptureName(t *testing.T) {
	ts := time.Date(2024, 12, 24, 18, 30, 5, 0, time.UTC)
	assert.Equal(t, "lights-20241224-183005-980.png", captureName(ts, 980))
}

func TestChimeRateLimit(t *testing.T) {
	c := &Chime{MinInterval: 2 * time.Second}
	start := time.Unix(100, 0)
	assert.True(t, c.due(start))
	assert.False(t, c.due(start.Add(time.Second)))
	assert.True(t, c.due(start.Add(2*time.Second)))

	var nilChime *Chime
	assert.False(t, nilChime.Play(start))
}
