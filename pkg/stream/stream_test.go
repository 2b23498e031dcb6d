package stream

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveOutput(t *testing.T) {
	tests := []struct {
		output, key, want string
	}{
		{"out.mp4", "abc", "out.mp4"},
		{"", "abc", "rtmp://a.rtmp.youtube.com/live2/abc"},
		{"", "", "lights.flv"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ResolveOutput(tt.output, tt.key))
	}
}

func TestArgsSoftware(t *testing.T) {
	opts := Options{Quality: Qualities["1080p"], FPS: 30, StreamKey: "key"}
	args := Args(opts, software)
	line := strings.Join(args, " ")

	assert.Contains(t, line, "-video_size 1920x1080")
	assert.Contains(t, line, "-framerate 30 -i pipe:0")
	assert.Contains(t, line, "-c:v libx264")
	assert.Contains(t, line, "-b:v 9000k")
	assert.Contains(t, line, "-pix_fmt yuv420p")
	assert.Contains(t, line, "keyint=60:min-keyint=60")
	assert.Equal(t, "rtmp://a.rtmp.youtube.com/live2/key", args[len(args)-1])
	assert.Equal(t, "flv", args[len(args)-2])
	assert.NotContains(t, line, "-loglevel")
}

func TestArgsVAAPI(t *testing.T) {
	enc := Encoder{
		Codec:      "h264_vaapi",
		GlobalArgs: []string{"-vaapi_device", "/dev/dri/renderD128"},
		OutputArgs: []string{"-vf", "format=nv12,hwupload"},
	}
	args := Args(Options{Quality: Qualities["4k"], FPS: 30, Output: "out.mp4", Debug: true}, enc)
	line := strings.Join(args, " ")

	assert.Equal(t, []string{"-loglevel", "debug", "-vaapi_device", "/dev/dri/renderD128"}, args[:4])
	assert.NotContains(t, line, "-pix_fmt")
	assert.NotContains(t, line, "-f flv")
	assert.Contains(t, line, "-vf format=nv12,hwupload")
	assert.Equal(t, "out.mp4", args[len(args)-1])
}

func TestSelectEncoderSoftware(t *testing.T) {
	assert.Equal(t, "libx264", SelectEncoder(Options{Software: true}).Codec)
}

type syncBuffer struct {
	mu sync.Mutex
	bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.Buffer.Write(p)
}

func TestStreamerWritesFrames(t *testing.T) {
	var out syncBuffer
	s := NewStreamer(&out, 2, 1)

	frame := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	require.True(t, s.Submit(frame))
	require.NoError(t, s.Close())
	assert.Equal(t, frame, out.Bytes())
}

type blockingWriter struct {
	release chan struct{}
}

func (w *blockingWriter) Write(p []byte) (int, error) {
	<-w.release
	return len(p), nil
}

func TestStreamerDropsWhenBehind(t *testing.T) {
	w := &blockingWriter{release: make(chan struct{})}
	s := NewStreamer(w, 1, 1)

	frame := []byte{0, 0, 0, 255}
	accepted := 0
	for range 10 {
		if s.Submit(frame) {
			accepted++
		}
	}
	// One frame in the writer plus two buffered, at most.
	assert.LessOrEqual(t, accepted, 3)
	assert.GreaterOrEqual(t, accepted, 2)

	close(w.release)
	require.NoError(t, s.Close())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestStreamerStopsAfterError(t *testing.T) {
	s := NewStreamer(failingWriter{}, 1, 1)
	s.Submit([]byte{0, 0, 0, 0})
	err := s.Close()
	require.Error(t, err)
	assert.False(t, s.Submit([]byte{0, 0, 0, 0}))
}
