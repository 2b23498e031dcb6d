// Package stream pipes rendered frames into ffmpeg for live broadcast or
// recording.
package stream

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/rs/zerolog/log"
)

const youtubeIngest = "rtmp://a.rtmp.youtube.com/live2/"

type Quality struct {
	Width, Height int
	Scale         float64
	Bitrate       string
	MaxBitrate    string
}

var Qualities = map[string]Quality{
	"720p":  {1280, 720, 253, "4500k", "6000k"},
	"1080p": {1920, 1080, 380, "9000k", "15000k"},
	"4k":    {3840, 2160, 760, "18000k", "25000k"},
}

type Options struct {
	Quality
	FPS         int
	Output      string
	StreamKey   string
	Software    bool
	Device      string
	VAAPIDriver string
	Debug       bool
}

// Encoder is the video codec with its hardware arguments.
type Encoder struct {
	Codec      string
	GlobalArgs []string
	OutputArgs []string
}

var software = Encoder{Codec: "libx264"}

// SelectEncoder prefers VideoToolbox on macOS and VA-API on Linux when the
// render device is usable, falling back to libx264.
func SelectEncoder(opts Options) Encoder {
	if opts.Software {
		return software
	}
	switch runtime.GOOS {
	case "darwin":
		return Encoder{
			Codec:      "h264_videotoolbox",
			OutputArgs: []string{"-realtime", "true", "-q:v", "65", "-color_range", "1"},
		}
	case "linux":
		if opts.Device == "" {
			return software
		}
		f, err := os.OpenFile(opts.Device, os.O_RDWR, 0)
		if err != nil {
			log.Debug().Err(err).Str("device", opts.Device).Msg("VA-API device unusable, using software encoding")
			return software
		}
		f.Close()
		return Encoder{
			Codec:      "h264_vaapi",
			GlobalArgs: []string{"-vaapi_device", opts.Device},
			OutputArgs: []string{"-vf", "format=nv12,hwupload", "-color_range", "1"},
		}
	}
	return software
}

// ResolveOutput picks the destination: an explicit output wins, then the
// YouTube ingest for a stream key, then a local file.
func ResolveOutput(output, streamKey string) string {
	switch {
	case output != "":
		return output
	case streamKey != "":
		return youtubeIngest + streamKey
	default:
		return "lights.flv"
	}
}

// Args builds the ffmpeg command line. Video arrives as raw RGBA on stdin;
// a silent audio track is generated since most ingests require one.
func Args(opts Options, enc Encoder) []string {
	var args []string
	if opts.Debug {
		args = append(args, "-loglevel", "debug")
	}
	args = append(args, enc.GlobalArgs...)
	args = append(args,
		"-thread_queue_size", "1024",
		"-f", "rawvideo", "-pixel_format", "rgba", "-video_size", fmt.Sprintf("%dx%d", opts.Width, opts.Height),
		"-framerate", fmt.Sprint(opts.FPS), "-i", "pipe:0",
		"-f", "lavfi", "-i", "anullsrc=channel_layout=stereo:sample_rate=44100",
		"-c:v", enc.Codec,
		"-b:v", opts.Bitrate,
		"-maxrate", opts.MaxBitrate,
		"-bufsize", "30000k",
		"-g", fmt.Sprint(opts.FPS*2),
	)
	if enc.Codec != "h264_vaapi" {
		args = append(args, "-pix_fmt", "yuv420p")
	}
	if enc.Codec == "libx264" {
		keyint := opts.FPS * 2
		args = append(args, "-preset", "veryfast", "-crf", "18",
			"-x264-params", fmt.Sprintf("keyint=%d:min-keyint=%d:scenecut=0:bframes=2", keyint, keyint),
			"-color_range", "1")
	}
	args = append(args, enc.OutputArgs...)
	args = append(args, "-c:a", "aac", "-b:a", "128k", "-shortest")

	output := ResolveOutput(opts.Output, opts.StreamKey)
	if isFLV(output) {
		args = append(args, "-f", "flv")
	}
	return append(args, output)
}

func isFLV(output string) bool {
	return strings.HasPrefix(output, "rtmp://") || strings.HasPrefix(output, "rtmps://") || strings.HasSuffix(output, ".flv")
}

// Streamer copies frames into a writer, normally ffmpeg's stdin. Frames are
// dropped rather than queued when the writer falls behind. After a write
// error every later frame is discarded.
type Streamer struct {
	frames chan []byte
	pool   sync.Pool
	done   chan struct{}

	mu  sync.Mutex
	err error
}

func NewStreamer(w io.Writer, width, height int) *Streamer {
	size := width * height * 4
	s := &Streamer{
		frames: make(chan []byte, 2),
		done:   make(chan struct{}),
	}
	s.pool.New = func() any { return make([]byte, size) }
	go s.run(w)
	return s
}

func (s *Streamer) run(w io.Writer) {
	defer close(s.done)
	for buf := range s.frames {
		if s.Err() == nil {
			if _, err := w.Write(buf); err != nil {
				log.Error().Err(err).Msg("Stream write failed")
				s.mu.Lock()
				s.err = err
				s.mu.Unlock()
			}
		}
		s.pool.Put(buf)
	}
}

// Err returns the first write error.
func (s *Streamer) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Submit queues a copy of pix. It reports false when the frame was dropped.
func (s *Streamer) Submit(pix []byte) bool {
	if s.Err() != nil {
		return false
	}
	buf := s.pool.Get().([]byte)
	copy(buf, pix)
	return s.enqueue(buf)
}

// OnFrame reads the screen and submits it. Use it as the engine's frame hook.
func (s *Streamer) OnFrame(screen *ebiten.Image) {
	if s.Err() != nil {
		return
	}
	buf := s.pool.Get().([]byte)
	screen.ReadPixels(buf)
	s.enqueue(buf)
}

func (s *Streamer) enqueue(buf []byte) bool {
	select {
	case s.frames <- buf:
		return true
	default:
		s.pool.Put(buf)
		return false
	}
}

// Close stops accepting frames and waits for queued ones to be written.
func (s *Streamer) Close() error {
	close(s.frames)
	<-s.done
	return s.Err()
}

// StartFFmpeg launches ffmpeg with args and returns its stdin. The process is
// killed when ctx is done; wait reports its exit.
func StartFFmpeg(ctx context.Context, args []string, vaapiDriver string) (stdin io.WriteCloser, wait func() error, err error) {
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	cmd.Env = append(os.Environ(), "LIBVA_MESSAGES=1")
	if vaapiDriver != "" {
		cmd.Env = append(cmd.Env, "LIBVA_DRIVER_NAME="+vaapiDriver)
	}
	cmd.Stderr = os.Stderr

	stdin, err = cmd.StdinPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("ffmpeg stdin: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, nil, fmt.Errorf("starting ffmpeg: %w", err)
	}
	return stdin, cmd.Wait, nil
}
