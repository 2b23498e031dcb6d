// Package app wires configuration, logging and the data sources into a
// lights engine. It is shared by the window and streaming commands.
package app

import (
	"context"
	"image/color"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sudorandom/donation-lights/pkg/config"
	"github.com/sudorandom/donation-lights/pkg/lightsengine"
	"github.com/sudorandom/donation-lights/pkg/placement"
	"github.com/sudorandom/donation-lights/pkg/sources"
	"github.com/sudorandom/donation-lights/pkg/utils"
)

// SetupLogging points the global logger at a console writer on w. Unknown
// levels fall back to info.
func SetupLogging(w io.Writer, level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: "15:04:05.000",
	}).With().Timestamp().Logger()
}

// Mode selects the amount source. ModeAuto follows useMockData.
const (
	ModeAuto = "auto"
	ModeHTTP = "http"
	ModeMock = "mock"
)

// ApplyMode overrides useMockData from a command line mode.
func ApplyMode(cfg *config.Config, mode string) {
	switch mode {
	case ModeMock:
		cfg.UseMockData = true
	case ModeHTTP:
		cfg.UseMockData = false
	}
}

// AmountSources returns the primary source and the fallback used when it
// fails. The mock source has no fallback.
func AmountSources(cfg *config.Config) (sources.Source, sources.Source) {
	mock := sources.NewMockSource(cfg.PricePerPoint, time.Now().UnixNano())
	if cfg.UseMockData {
		log.Info().Msg("Using mock donation data")
		return mock, nil
	}
	log.Info().Str("url", cfg.APIURL).Msg("Polling campaign total")
	return sources.NewHTTPSource(cfg.APIURL), mock
}

// EngineOptions converts the configuration into engine options.
func EngineOptions(cfg *config.Config) lightsengine.Options {
	opts := lightsengine.DefaultOptions()
	opts.Width = cfg.Window.Width
	opts.Height = cfg.Window.Height
	opts.Scale = cfg.Window.Scale
	opts.FollowWindow = cfg.Window.FollowWindow

	opts.PricePerPoint = cfg.PricePerPoint
	opts.RegionPercentage = cfg.RegionPercentage
	opts.MinDistance = cfg.MinDistance
	opts.MaxPointsPerBatch = cfg.MaxPointsPerBatch
	opts.BulkThreshold = cfg.BulkThreshold
	opts.HighlightDuration = cfg.NewDonationDuration

	opts.BlinkEnabled = cfg.ImageBlinkEnabled
	opts.MaxPointsForBlink = cfg.MaxPointsForBlink
	opts.LeanRenderThreshold = cfg.LeanRenderThreshold
	opts.RegularSize = cfg.ImageSizes.Regular
	opts.HighlightedSize = cfg.ImageSizes.NewDonation

	opts.Boundary = placement.CircleBoundary{
		Enabled:    cfg.CircleBoundary.Enabled,
		CenterX:    cfg.CircleBoundary.CenterX,
		CenterY:    cfg.CircleBoundary.CenterY,
		Radius:     cfg.CircleBoundary.Radius,
		ShowVisual: cfg.CircleBoundary.ShowVisual,
	}
	opts.RegionCountries = cfg.RegionCountries
	opts.LowPriorityCountries = cfg.LowPriorityCountries
	opts.ExcludedCountries = cfg.ExcludedCountries

	for _, c := range []struct {
		hex string
		dst *color.RGBA
	}{
		{cfg.MapColors.Sea, &opts.Background.Sea},
		{cfg.MapColors.Fill, &opts.Background.Land},
		{cfg.MapColors.Stroke, &opts.Background.Outline},
	} {
		if c.hex == "" {
			continue
		}
		rgba, err := config.ParseHexColor(c.hex)
		if err != nil {
			log.Warn().Err(err).Msg("Ignoring map colour")
			continue
		}
		*c.dst = rgba
	}

	opts.CaptureDir = cfg.Capture.Dir
	if cfg.Capture.Interval > 0 {
		opts.CaptureInterval = cfg.Capture.Interval
	}
	return opts
}

// Start opens the download cache and launches the map loader, the amount
// poller and the optional websocket feed. All of them stop with ctx. The
// returned function closes the cache.
func Start(ctx context.Context, cfg *config.Config, engine *lightsengine.Engine) (closeFn func()) {
	cache, err := utils.OpenDiskCache(cfg.Map.CacheDir)
	if err != nil {
		log.Warn().Err(err).Str("dir", cfg.Map.CacheDir).Msg("Download cache unavailable")
	}

	go func() {
		m, err := sources.LoadWorldMap(ctx, cache, cfg.Map.URL, cfg.Map.TTL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load world map")
		}
		log.Info().Int("countries", len(m.Countries())).Msg("World map loaded")
		select {
		case engine.Maps() <- m:
		case <-ctx.Done():
		}
	}()

	src, fallback := AmountSources(cfg)
	go func() {
		if err := sources.Poll(ctx, src, cfg.UpdateInterval, fallback, engine.Amounts()); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("Amount polling stopped")
		}
	}()

	if cfg.FeedURL != "" {
		feed := &sources.WebsocketFeed{URL: cfg.FeedURL}
		go func() {
			if err := feed.Run(ctx, engine.Amounts()); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("Websocket feed stopped")
			}
		}()
	}

	return func() {
		if cache != nil {
			if err := cache.Close(); err != nil {
				log.Warn().Err(err).Msg("Closing download cache")
			}
		}
	}
}

// ConfigFlags are the command line overrides shared by both commands. Embed
// them in a kong CLI struct.
type ConfigFlags struct {
	Config    string `help:"Config file. Defaults to donation-lights.{json,yaml} in --config-dir." type:"path"`
	ConfigDir string `help:"Directory searched for donation-lights.{json,yaml}." default:"."`
	LogLevel  string `help:"Log level (trace, debug, info, warn, error)."`

	Source   string        `help:"Amount source." enum:"auto,http,mock" default:"auto"`
	APIURL   string        `name:"api-url" help:"Campaign total endpoint."`
	FeedURL  string        `name:"feed-url" help:"Websocket endpoint pushing campaign totals."`
	Interval time.Duration `help:"Polling interval."`
	MapURL   string        `name:"map" help:"World map GeoJSON, URL or local path."`

	Boundary    bool   `help:"Restrict lights to the circle boundary."`
	CaptureDir  string `help:"Write a PNG of the canvas here every capture interval." type:"path"`
	Metrics     bool   `help:"Export OpenTelemetry metrics to stderr or --metrics-file."`
	MetricsFile string `name:"metrics-file" help:"Append exported metrics to this file." type:"path"`
}

// Load reads the configuration and applies the flags on top. On error the
// returned config still carries the flag log level so the caller can log.
func (f ConfigFlags) Load() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if f.Config != "" {
		cfg, err = config.LoadFile(f.Config)
	} else {
		cfg, err = config.Load(f.ConfigDir)
	}
	if err != nil {
		return &config.Config{LogLevel: f.LogLevel}, err
	}

	if f.LogLevel != "" {
		cfg.LogLevel = f.LogLevel
	}
	ApplyMode(cfg, f.Source)
	if f.APIURL != "" {
		cfg.APIURL = f.APIURL
	}
	if f.FeedURL != "" {
		cfg.FeedURL = f.FeedURL
	}
	if f.Interval > 0 {
		cfg.UpdateInterval = f.Interval
	}
	if f.MapURL != "" {
		cfg.Map.URL = f.MapURL
	}
	if f.Boundary {
		cfg.CircleBoundary.Enabled = true
	}
	if f.CaptureDir != "" {
		cfg.Capture.Dir = f.CaptureDir
	}
	if f.Metrics || f.MetricsFile != "" {
		cfg.Metrics.Enabled = true
	}
	if f.MetricsFile != "" {
		cfg.Metrics.File = f.MetricsFile
	}
	return cfg, nil
}
