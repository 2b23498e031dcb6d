// Package lightsengine runs the donation map: it turns donation totals into
// pending points, drains them into the placement engine a batch per frame,
// and composites the lights onto the world map with ebiten.
package lightsengine

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"math/rand"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/sudorandom/donation-lights/pkg/geo"
	"github.com/sudorandom/donation-lights/pkg/placement"
)

// DefaultBackground mirrors the campaign map colours on a dark sea.
var DefaultBackground = geo.BackgroundStyle{
	Sea:     color.RGBA{8, 10, 15, 255},
	Land:    color.RGBA{146, 136, 132, 255},
	Outline: color.RGBA{190, 184, 184, 255},
}

// Options configures an Engine. Zero values are not defaults; start from
// DefaultOptions.
type Options struct {
	Width, Height int
	Scale         float64
	FollowWindow  bool

	PricePerPoint    float64
	RegionPercentage float64
	MinDistance      float64

	MaxPointsPerBatch int
	BulkThreshold     int
	HighlightDuration time.Duration

	BlinkEnabled        bool
	MaxPointsForBlink   int
	LeanRenderThreshold int
	RegularSize         float64
	HighlightedSize     float64

	Boundary             placement.CircleBoundary
	RegionCountries      []string
	LowPriorityCountries []string
	ExcludedCountries    []string
	Background           geo.BackgroundStyle

	CaptureDir      string
	CaptureInterval time.Duration

	// MeterProvider receives the engine metrics. Nil uses the global
	// provider.
	MeterProvider metric.MeterProvider

	Seed int64
	Now  func() time.Time
}

func DefaultOptions() Options {
	return Options{
		Width:                1920,
		Height:               1080,
		Scale:                380,
		PricePerPoint:        DefaultPricePerPoint,
		RegionPercentage:     placement.DefaultRegionPercentage,
		MinDistance:          0.5,
		MaxPointsPerBatch:    DefaultMaxPointsPerBatch,
		BulkThreshold:        DefaultBulkThreshold,
		HighlightDuration:    DefaultHighlightDuration,
		BlinkEnabled:         true,
		MaxPointsForBlink:    DefaultMaxPointsForBlink,
		LeanRenderThreshold:  DefaultLeanRenderThreshold,
		RegularSize:          DefaultRegularSize,
		HighlightedSize:      DefaultHighlightedSize,
		Boundary:             placement.DefaultCircleBoundary,
		RegionCountries:      placement.DefaultRegionCountries,
		LowPriorityCountries: placement.DefaultLowPriorityCountries,
		Background:           DefaultBackground,
		CaptureInterval:      time.Minute,
		Seed:                 time.Now().UnixNano(),
	}
}

// Engine implements ebiten.Game. All state is owned by the game goroutine;
// other goroutines talk to it through Amounts and Maps.
type Engine struct {
	opts Options
	now  func() time.Time

	proj       *geo.Projection
	worldMap   *geo.Map
	classifier *placement.Classifier
	points     *placement.PointSet
	placer     *placement.Engine
	scheduler  *Scheduler
	renderer   *Renderer
	animator   *Animator
	tracker    *AmountTracker

	amounts chan float64
	maps    chan *geo.Map
	ctx     context.Context

	surface     Surface
	layer       *ebitenSurface
	sprites     [spriteCount]*ebiten.Image
	background  *image.RGBA
	bgImage     *ebiten.Image
	bgDirty     bool
	needsRedraw bool
	captureDue  bool
	lastCapture time.Time

	fontSource   *text.GoTextFaceSource
	audioContext *audio.Context
	chime        *Chime
	metrics      *engineMetrics

	// OnFrame, when set, is called with every composed frame. It runs on the
	// game goroutine and must not retain screen.
	OnFrame func(screen *ebiten.Image)
}

func NewEngine(opts Options) *Engine {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	rng := rand.New(rand.NewSource(opts.Seed))

	e := &Engine{
		opts:    opts,
		now:     now,
		proj:    geo.NewProjection(opts.Width, opts.Height, opts.Scale),
		points:  placement.NewPointSet(opts.MinDistance),
		tracker: NewAmountTracker(opts.PricePerPoint),
		amounts: make(chan float64, 16),
		maps:    make(chan *geo.Map, 1),
	}

	e.classifier = placement.NewClassifier(opts.RegionCountries, opts.LowPriorityCountries, opts.ExcludedCountries)
	e.classifier.Now = now

	sampler := &placement.Sampler{
		Proj:        e.proj,
		Points:      e.points,
		MinDistance: opts.MinDistance,
		Boundary:    opts.Boundary,
		Rand:        rng,
		Now:         now,
	}
	e.placer = placement.NewEngine(sampler, e.classifier)
	e.placer.RegionPercentage = opts.RegionPercentage

	e.scheduler = NewScheduler(e.placer, e.points, e.buckets)
	e.scheduler.MaxPointsPerBatch = opts.MaxPointsPerBatch
	e.scheduler.BulkThreshold = opts.BulkThreshold
	e.scheduler.HighlightDuration = opts.HighlightDuration

	e.renderer = &Renderer{
		BlinkEnabled:      opts.BlinkEnabled,
		MaxPointsForBlink: opts.MaxPointsForBlink,
		LeanThreshold:     opts.LeanRenderThreshold,
		RegularSize:       opts.RegularSize,
		HighlightedSize:   opts.HighlightedSize,
		Boundary:          opts.Boundary,
	}
	e.animator = NewAnimator(e.renderer)

	if s, err := text.NewGoTextFaceSource(bytes.NewReader(goregular.TTF)); err == nil {
		e.fontSource = s
	}
	if m, err := newEngineMetrics(opts.MeterProvider); err != nil {
		log.Warn().Err(err).Msg("Metrics disabled")
	} else {
		e.metrics = m
	}
	return e
}

// Amounts accepts donation totals from source goroutines.
func (e *Engine) Amounts() chan<- float64 { return e.amounts }

// Maps accepts a loaded world map from a loader goroutine.
func (e *Engine) Maps() chan<- *geo.Map { return e.maps }

// Count is the number of lights on the map.
func (e *Engine) Count() int { return e.points.Len() }

// Points exposes the placed points read-only.
func (e *Engine) Points() []*placement.Point { return e.points.Points() }

func (e *Engine) Pending() (regular, highlighted int) { return e.scheduler.Pending() }

func (e *Engine) SchedulerState() LoopState { return e.scheduler.State() }

func (e *Engine) AnimationState() LoopState { return e.animator.State() }

// Boundary returns the inclusion circle in screen space.
func (e *Engine) Boundary() placement.Circle {
	c, _ := e.opts.Boundary.Resolve(e.proj.Size())
	return c
}

// SetSurface replaces the layer points are drawn onto.
func (e *Engine) SetSurface(s Surface) {
	e.surface = s
	e.needsRedraw = true
}

// SetMap installs a world map and resumes any placement that was waiting
// for one.
func (e *Engine) SetMap(m *geo.Map) {
	if m == nil {
		return
	}
	e.worldMap = m
	e.classifier.Invalidate()
	e.renderBackground()
	b := e.classifier.Classify(m)
	log.Info().
		Int("countries", len(m.Countries())).
		Int("region", len(b.Region)).
		Int("global", len(b.Global)).
		Msg("Map loaded")
	e.scheduler.Resume()
}

func (e *Engine) buckets() (placement.Buckets, bool) {
	if e.worldMap == nil {
		return placement.Buckets{}, false
	}
	return e.classifier.Classify(e.worldMap), true
}

// SetAmount records a new donation total and queues the points it implies.
func (e *Engine) SetAmount(total float64) {
	pr, pn := e.scheduler.Pending()
	regular, highlighted := e.tracker.Observe(total, e.points.Len()+pr+pn)
	log.Debug().
		Float64("total", total).
		Int("regular", regular).
		Int("highlighted", highlighted).
		Msg("Amount updated")
	e.scheduler.RequestRegular(regular)
	e.scheduler.RequestNew(highlighted)
}

// AddDonation adds amount to the current total.
func (e *Engine) AddDonation(amount float64) {
	e.SetAmount(e.tracker.Current() + amount)
}

func (e *Engine) drainInputs() {
	for {
		select {
		case m := <-e.maps:
			e.SetMap(m)
		case total := <-e.amounts:
			e.SetAmount(total)
		default:
			return
		}
	}
}

// StopOn makes Update end the game loop once ctx is done.
func (e *Engine) StopOn(ctx context.Context) { e.ctx = ctx }

func (e *Engine) Update() error {
	if e.ctx != nil && e.ctx.Err() != nil {
		log.Info().Int("points", e.points.Len()).Msg("Stopping game loop")
		return ebiten.Termination
	}
	e.drainInputs()
	e.Tick(e.now())
	return nil
}

// Tick advances placement, highlight expiry and animation by one frame.
func (e *Engine) Tick(now time.Time) {
	res := e.scheduler.Step(now)
	pr, pn := e.scheduler.Pending()
	e.metrics.record(res, pr+pn)

	if len(res.Added) > 0 {
		e.draw(func(s Surface) {
			e.renderer.DrawIncremental(s, res.Added, e.points.Len(), now)
		})
		for _, p := range res.Added {
			if p.IsNew() {
				e.chime.Play(now)
				break
			}
		}
		e.animator.Start(e.points.Len())
	}
	if res.Idle {
		log.Info().Int("points", e.points.Len()).Msg("Placement drained")
		e.animator.Start(e.points.Len())
	}

	if e.points.ExpireHighlights(now) > 0 {
		if !e.animator.Start(e.points.Len()) && e.animator.State() == LoopIdle {
			e.needsRedraw = true
		}
	}
	if e.animator.Step(e.points.Len()) {
		e.needsRedraw = true
	}
	if e.needsRedraw && e.surface != nil {
		e.fullRedraw(now)
	}
}

func (e *Engine) draw(fn func(Surface)) {
	if e.surface == nil {
		e.needsRedraw = true
		return
	}
	fn(e.surface)
}

func (e *Engine) fullRedraw(now time.Time) {
	e.needsRedraw = false
	e.renderer.FullRedraw(e.surface, e.points.Points(), now)
	e.captureDue = true
}

func (e *Engine) Draw(screen *ebiten.Image) {
	e.ensureGraphics()
	if e.needsRedraw {
		e.fullRedraw(e.now())
	}

	if e.bgImage != nil {
		screen.DrawImage(e.bgImage, nil)
	} else {
		screen.Fill(e.opts.Background.Sea)
	}
	if e.layer != nil {
		screen.DrawImage(e.layer.img, nil)
	}
	e.drawCounter(screen)

	if e.captureDue && e.opts.CaptureDir != "" {
		now := e.now()
		if e.lastCapture.IsZero() || now.Sub(e.lastCapture) >= e.opts.CaptureInterval {
			e.lastCapture = now
			e.captureFrame(screen, now)
		}
		e.captureDue = false
	}
	if e.OnFrame != nil {
		e.OnFrame(screen)
	}
}

func (e *Engine) ensureGraphics() {
	if e.sprites[SpriteRegular] == nil {
		e.initSprites()
	}
	w, h := e.proj.Size()
	if e.layer == nil || !sameSize(e.layer, w, h) {
		if e.layer != nil {
			e.layer.Deallocate()
		}
		e.layer = newEbitenSurface(w, h, e.sprites)
		e.SetSurface(e.layer)
	}
	if e.bgDirty && e.background != nil {
		if e.bgImage != nil {
			e.bgImage.Deallocate()
		}
		e.bgImage = ebiten.NewImageFromImage(e.background)
		e.bgDirty = false
	}
}

func sameSize(s Surface, w, h int) bool {
	sw, sh := s.Size()
	return sw == w && sh == h
}

func (e *Engine) Layout(outsideWidth, outsideHeight int) (int, int) {
	if e.opts.FollowWindow && outsideWidth > 0 && outsideHeight > 0 {
		if w, h := e.proj.Size(); w != outsideWidth || h != outsideHeight {
			e.Resize(outsideWidth, outsideHeight)
		}
	}
	return e.proj.Size()
}

// Resize changes the render size. Points keep their geographic position and
// are reprojected.
func (e *Engine) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	e.proj.Resize(width, height)
	e.points.Reproject(e.proj)
	e.renderBackground()
	e.needsRedraw = true
	log.Debug().Int("width", width).Int("height", height).Float64("scale", e.proj.Scale()).Msg("Resized")
}

func (e *Engine) renderBackground() {
	if e.worldMap == nil {
		return
	}
	w, h := e.proj.Size()
	e.background = geo.RenderBackground(w, h, e.worldMap.Countries(), e.proj, e.opts.Background)
	e.bgDirty = true
}
