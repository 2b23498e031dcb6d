package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/rs/zerolog/log"
	_ "github.com/silbinarywolf/preferdiscretegpu"

	"github.com/sudorandom/donation-lights/pkg/app"
	"github.com/sudorandom/donation-lights/pkg/lightsengine"
)

var cli struct {
	app.ConfigFlags `embed:""`

	Width        int     `help:"Internal rendering width."`
	Height       int     `help:"Internal rendering height."`
	Scale        float64 `help:"Internal rendering scale."`
	FollowWindow bool    `help:"Resize the canvas with the window."`
	WindowWidth  int     `help:"Initial window width." default:"1280"`
	WindowHeight int     `help:"Initial window height." default:"720"`
	TPS          int     `name:"tps" help:"Ticks per second." default:"60"`
	Chime        string  `help:"MP3 played when a new donation lands." type:"path"`
}

func main() {
	kong.Parse(&cli,
		kong.Name("donation-lights"),
		kong.Description("Lights a world map with one point per donation."),
		kong.UsageOnError(),
	)

	cfg, err := cli.Load()
	app.SetupLogging(os.Stderr, cfg.LogLevel)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	if cli.Width > 0 {
		cfg.Window.Width = cli.Width
	}
	if cli.Height > 0 {
		cfg.Window.Height = cli.Height
	}
	if cli.Scale > 0 {
		cfg.Window.Scale = cli.Scale
	}
	if cli.FollowWindow {
		cfg.Window.FollowWindow = true
	}
	if cli.Chime != "" {
		cfg.ChimePath = cli.Chime
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics, err := app.SetupMetrics(cfg.Metrics)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up metrics")
	}
	defer func() {
		if err := metrics.Shutdown(context.Background()); err != nil {
			log.Warn().Err(err).Msg("Flushing metrics")
		}
	}()

	opts := app.EngineOptions(cfg)
	opts.MeterProvider = metrics.MeterProvider()
	engine := lightsengine.NewEngine(opts)
	engine.InitChime(cfg.ChimePath)
	engine.StopOn(ctx)

	closeSources := app.Start(ctx, cfg, engine)
	defer closeSources()

	ebiten.SetTPS(cli.TPS)
	ebiten.SetWindowSize(cli.WindowWidth, cli.WindowHeight)
	ebiten.SetWindowTitle("Donation Lights")
	if cfg.Window.FollowWindow {
		ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	}
	if err := ebiten.RunGame(engine); err != nil {
		log.Error().Err(err).Msg("Game loop exited")
	}
}
