package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/rs/zerolog/log"
	_ "github.com/silbinarywolf/preferdiscretegpu"

	"github.com/sudorandom/donation-lights/pkg/app"
	"github.com/sudorandom/donation-lights/pkg/config"
	"github.com/sudorandom/donation-lights/pkg/lightsengine"
	"github.com/sudorandom/donation-lights/pkg/stream"
)

var cli struct {
	app.ConfigFlags `embed:""`

	Quality     string `help:"Stream quality." enum:"720p,1080p,4k" default:"1080p"`
	FPS         int    `name:"fps" help:"Frames per second." default:"30"`
	Headless    bool   `help:"Run without a local window."`
	Output      string `help:"Output file or RTMP URL. Overrides YOUTUBE_STREAM_KEY."`
	StreamKey   string `help:"YouTube stream key." env:"YOUTUBE_STREAM_KEY"`
	Software    bool   `help:"Force software encoding (libx264)."`
	Device      string `help:"VA-API render device (Linux only)." default:"/dev/dri/renderD128"`
	VAAPIDriver string `name:"vaapi-driver" help:"Force a VA-API driver (e.g. iHD, i965, radeonsi)."`
	Debug       bool   `help:"Verbose ffmpeg logging."`
}

func main() {
	kong.Parse(&cli,
		kong.Name("lights-streamer"),
		kong.Description("Renders the donation map headlessly and pipes it to ffmpeg."),
		kong.UsageOnError(),
	)

	cfg, err := cli.Load()
	app.SetupLogging(os.Stderr, cfg.LogLevel)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	os.Exit(run(cfg))
}

// run streams until a signal arrives or ffmpeg goes away and returns the
// process exit code.
func run(cfg *config.Config) int {
	q := stream.Qualities[cli.Quality]
	cfg.Window.Width, cfg.Window.Height, cfg.Window.Scale = q.Width, q.Height, q.Scale
	cfg.Window.FollowWindow = false

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics, err := app.SetupMetrics(cfg.Metrics)
	if err != nil {
		log.Error().Err(err).Msg("Failed to set up metrics")
		return 1
	}
	defer func() {
		if err := metrics.Shutdown(context.Background()); err != nil {
			log.Warn().Err(err).Msg("Flushing metrics")
		}
	}()

	engOpts := app.EngineOptions(cfg)
	engOpts.MeterProvider = metrics.MeterProvider()
	engine := lightsengine.NewEngine(engOpts)
	engine.StopOn(ctx)
	closeSources := app.Start(ctx, cfg, engine)
	defer closeSources()

	opts := stream.Options{
		Quality:     q,
		FPS:         cli.FPS,
		Output:      cli.Output,
		StreamKey:   cli.StreamKey,
		Software:    cli.Software,
		Device:      cli.Device,
		VAAPIDriver: cli.VAAPIDriver,
		Debug:       cli.Debug,
	}
	enc := stream.SelectEncoder(opts)
	stdin, wait, err := stream.StartFFmpeg(ctx, stream.Args(opts, enc), opts.VAAPIDriver)
	if err != nil {
		log.Error().Err(err).Msg("Failed to start ffmpeg")
		return 1
	}
	streamer := stream.NewStreamer(stdin, q.Width, q.Height)
	engine.OnFrame = streamer.OnFrame

	var exitCode atomic.Int32
	go func() {
		if err := wait(); err != nil {
			log.Error().Err(err).Msg("ffmpeg exited")
		} else {
			log.Info().Msg("ffmpeg exited normally")
		}
		if ctx.Err() != nil {
			return
		}
		log.Warn().Msg("Stream connection lost. Exiting in 10s...")
		select {
		case <-time.After(10 * time.Second):
		case <-ctx.Done():
		}
		exitCode.Store(1)
		stop()
	}()

	log.Info().
		Str("codec", enc.Codec).
		Str("output", stream.ResolveOutput(opts.Output, opts.StreamKey)).
		Str("quality", cli.Quality).
		Msg("Streaming")

	ebiten.SetTPS(cli.FPS)
	if !cli.Headless {
		ebiten.SetWindowSize(1280, 720)
		ebiten.SetWindowTitle(fmt.Sprintf("Donation Lights stream (%s)", cli.Quality))
	}
	if err := ebiten.RunGame(engine); err != nil {
		log.Error().Err(err).Msg("Game loop exited")
		exitCode.Store(1)
	}
	if err := streamer.Close(); err != nil {
		log.Warn().Err(err).Msg("Stream ended with error")
	}
	stdin.Close()
	return int(exitCode.Load())
}
