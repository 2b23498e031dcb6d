package config

import (
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sudorandom/donation-lights/pkg/placement"
	"github.com/sudorandom/donation-lights/pkg/sources"
)

// CircleConfig restricts placement to a circle given as fractions of the
// canvas.
type CircleConfig struct {
	Enabled    bool    `json:"enabled" mapstructure:"enabled"`
	CenterX    float64 `json:"centerX" mapstructure:"centerX"`
	CenterY    float64 `json:"centerY" mapstructure:"centerY"`
	Radius     float64 `json:"radius" mapstructure:"radius"`
	ShowVisual bool    `json:"showVisual" mapstructure:"showVisual"`
}

type ImageSizes struct {
	Regular     float64 `json:"regular" mapstructure:"regular"`
	NewDonation float64 `json:"newDonation" mapstructure:"newDonation"`
}

type MapColors struct {
	Fill   string `json:"fill" mapstructure:"fill"`
	Stroke string `json:"stroke" mapstructure:"stroke"`
	Sea    string `json:"sea" mapstructure:"sea"`
}

type MapConfig struct {
	URL      string        `json:"url" mapstructure:"url"`
	CacheDir string        `json:"cacheDir" mapstructure:"cacheDir"`
	TTL      time.Duration `json:"ttl" mapstructure:"ttl"`
}

type WindowConfig struct {
	Width        int     `json:"width" mapstructure:"width"`
	Height       int     `json:"height" mapstructure:"height"`
	Scale        float64 `json:"scale" mapstructure:"scale"`
	FollowWindow bool    `json:"followWindow" mapstructure:"followWindow"`
}

type CaptureConfig struct {
	Dir      string        `json:"dir" mapstructure:"dir"`
	Interval time.Duration `json:"interval" mapstructure:"interval"`
}

// MetricsConfig controls the OpenTelemetry meter provider. Metrics are
// written as JSON to File, or stderr when File is empty.
type MetricsConfig struct {
	Enabled  bool          `json:"enabled" mapstructure:"enabled"`
	File     string        `json:"file" mapstructure:"file"`
	Interval time.Duration `json:"interval" mapstructure:"interval"`
}

// Config is the fully resolved application configuration.
type Config struct {
	LogLevel string `json:"logLevel" mapstructure:"logLevel"`

	PricePerPoint       float64       `json:"pricePerPoint" mapstructure:"pricePerPoint"`
	RegionPercentage    float64       `json:"regionPercentage" mapstructure:"regionPercentage"`
	UpdateInterval      time.Duration `json:"updateInterval" mapstructure:"updateInterval"`
	MinDistance         float64       `json:"minDistance" mapstructure:"minDistance"`
	NewDonationDuration time.Duration `json:"newDonationDuration" mapstructure:"newDonationDuration"`

	APIURL      string `json:"apiUrl" mapstructure:"apiUrl"`
	UseMockData bool   `json:"useMockData" mapstructure:"useMockData"`
	FeedURL     string `json:"feedUrl" mapstructure:"feedUrl"`

	MaxPointsPerBatch   int `json:"maxPointsPerBatch" mapstructure:"maxPointsPerBatch"`
	BulkThreshold       int `json:"bulkThreshold" mapstructure:"bulkThreshold"`
	MaxPointsForBlink   int `json:"maxPointsForBlink" mapstructure:"maxPointsForBlink"`
	LeanRenderThreshold int `json:"leanRenderThreshold" mapstructure:"leanRenderThreshold"`

	CircleBoundary    CircleConfig `json:"circleBoundary" mapstructure:"circleBoundary"`
	ImageBlinkEnabled bool         `json:"imageBlinkEnabled" mapstructure:"imageBlinkEnabled"`
	ImageSizes        ImageSizes   `json:"imageSizes" mapstructure:"imageSizes"`
	MapColors         MapColors    `json:"mapColors" mapstructure:"mapColors"`

	RegionCountries      []string `json:"regionCountries" mapstructure:"regionCountries"`
	LowPriorityCountries []string `json:"lowPriorityCountries" mapstructure:"lowPriorityCountries"`
	ExcludedCountries    []string `json:"excludedCountries" mapstructure:"excludedCountries"`

	Map     MapConfig     `json:"map" mapstructure:"map"`
	Window  WindowConfig  `json:"window" mapstructure:"window"`
	Capture CaptureConfig `json:"capture" mapstructure:"capture"`
	Metrics MetricsConfig `json:"metrics" mapstructure:"metrics"`

	ChimePath string `json:"chimePath" mapstructure:"chimePath"`
}

// SetDefaults registers the default value of every key.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")

	viper.SetDefault("pricePerPoint", 50)
	viper.SetDefault("regionPercentage", 10)
	viper.SetDefault("updateInterval", "30s")
	viper.SetDefault("minDistance", 0.5)
	viper.SetDefault("newDonationDuration", "20s")

	viper.SetDefault("apiUrl", sources.DefaultAmountURL)
	viper.SetDefault("useMockData", true)
	viper.SetDefault("feedUrl", "")

	viper.SetDefault("maxPointsPerBatch", 2000)
	viper.SetDefault("bulkThreshold", 5000)
	viper.SetDefault("maxPointsForBlink", 18000)
	viper.SetDefault("leanRenderThreshold", 5000)

	viper.SetDefault("circleBoundary.enabled", false)
	viper.SetDefault("circleBoundary.centerX", 0.45)
	viper.SetDefault("circleBoundary.centerY", 0.67)
	viper.SetDefault("circleBoundary.radius", 0.40)
	viper.SetDefault("circleBoundary.showVisual", true)

	viper.SetDefault("imageBlinkEnabled", true)
	viper.SetDefault("imageSizes.regular", 8)
	viper.SetDefault("imageSizes.newDonation", 24)

	viper.SetDefault("mapColors.fill", "#928884")
	viper.SetDefault("mapColors.stroke", "#beb8b8")
	viper.SetDefault("mapColors.sea", "#080a0f")

	viper.SetDefault("regionCountries", placement.DefaultRegionCountries)
	viper.SetDefault("lowPriorityCountries", placement.DefaultLowPriorityCountries)
	viper.SetDefault("excludedCountries", []string{})

	viper.SetDefault("map.url", sources.WorldMapURL)
	viper.SetDefault("map.cacheDir", "data/cache")
	viper.SetDefault("map.ttl", "168h")

	viper.SetDefault("window.width", 1920)
	viper.SetDefault("window.height", 1080)
	viper.SetDefault("window.scale", 380)
	viper.SetDefault("window.followWindow", false)

	viper.SetDefault("capture.dir", "")
	viper.SetDefault("capture.interval", "1m")

	viper.SetDefault("metrics.enabled", false)
	viper.SetDefault("metrics.file", "")
	viper.SetDefault("metrics.interval", "1m")

	viper.SetDefault("chimePath", "")
}

// Load sets defaults, reads donation-lights.json (or .yaml) from configDir
// when present and overlays LIGHTS_* environment variables. A missing file
// is not an error.
func Load(configDir string) (*Config, error) {
	SetDefaults()

	viper.SetConfigName("donation-lights")
	viper.AddConfigPath(configDir)
	viper.SetEnvPrefix("LIGHTS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return Current()
}

// LoadFile reads an explicit config file. Unlike Load, the file must exist.
func LoadFile(path string) (*Config, error) {
	SetDefaults()

	viper.SetConfigFile(path)
	viper.SetEnvPrefix("LIGHTS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	return Current()
}

// Current unmarshals the values viper holds right now.
func Current() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if cfg.PricePerPoint <= 0 {
		return nil, fmt.Errorf("pricePerPoint must be positive, got %v", cfg.PricePerPoint)
	}
	if cfg.RegionPercentage < 0 || cfg.RegionPercentage > 100 {
		return nil, fmt.Errorf("regionPercentage must be within [0,100], got %v", cfg.RegionPercentage)
	}
	if cfg.MaxPointsPerBatch <= 0 {
		return nil, fmt.Errorf("maxPointsPerBatch must be positive, got %d", cfg.MaxPointsPerBatch)
	}
	if cfg.BulkThreshold <= 0 {
		return nil, fmt.Errorf("bulkThreshold must be positive, got %d", cfg.BulkThreshold)
	}
	return &cfg, nil
}

// ParseHexColor parses #rgb or #rrggbb.
func ParseHexColor(s string) (color.RGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid colour %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}
