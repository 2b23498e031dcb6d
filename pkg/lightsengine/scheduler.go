package lightsengine

import (
	"time"

	"github.com/sudorandom/donation-lights/pkg/placement"
)

const (
	DefaultMaxPointsPerBatch = 2000
	// DefaultBulkThreshold is the pending total above which batches double.
	// It is a throughput heuristic for the initial load.
	DefaultBulkThreshold     = 5000
	DefaultHighlightDuration = 20 * time.Second
)

// LoopState is the run state of the scheduler and animation loops.
type LoopState uint8

const (
	LoopIdle LoopState = iota
	LoopRunning
)

func (s LoopState) String() string {
	if s == LoopRunning {
		return "running"
	}
	return "idle"
}

// Placer places up to count points and returns the ones it added.
type Placer interface {
	Place(b placement.Buckets, count int) []*placement.Point
}

// StepResult describes one scheduler pass.
type StepResult struct {
	Added     []*placement.Point
	Requested int
	// Idle is set on the pass that drained both counters.
	Idle bool
}

// Scheduler holds pending work and drains it in bounded batches, one pass
// per frame.
type Scheduler struct {
	MaxPointsPerBatch int
	BulkThreshold     int
	HighlightDuration time.Duration

	placer  Placer
	points  *placement.PointSet
	buckets func() (placement.Buckets, bool)

	pendingRegular int
	pendingNew     int
	state          LoopState
}

// NewScheduler builds a scheduler. buckets reports false while no map is
// loaded.
func NewScheduler(placer Placer, points *placement.PointSet, buckets func() (placement.Buckets, bool)) *Scheduler {
	return &Scheduler{
		MaxPointsPerBatch: DefaultMaxPointsPerBatch,
		BulkThreshold:     DefaultBulkThreshold,
		HighlightDuration: DefaultHighlightDuration,
		placer:            placer,
		points:            points,
		buckets:           buckets,
	}
}

func (s *Scheduler) RequestRegular(n int) {
	if n <= 0 {
		return
	}
	s.pendingRegular += n
	s.ensureRunning()
}

func (s *Scheduler) RequestNew(n int) {
	if n <= 0 {
		return
	}
	s.pendingNew += n
	s.ensureRunning()
}

// Resume restarts the drain loop if work is waiting, for example after a map
// arrives.
func (s *Scheduler) Resume() { s.ensureRunning() }

func (s *Scheduler) ensureRunning() {
	if s.pendingRegular+s.pendingNew > 0 {
		s.state = LoopRunning
	}
}

func (s *Scheduler) Pending() (regular, highlighted int) { return s.pendingRegular, s.pendingNew }

func (s *Scheduler) State() LoopState { return s.state }

// BatchSize is the per-pass cap for each counter.
func (s *Scheduler) BatchSize() int {
	total := s.pendingRegular + s.pendingNew
	if total > s.BulkThreshold {
		return min(2*s.MaxPointsPerBatch, total)
	}
	return s.MaxPointsPerBatch
}

// Step runs one pass. Regular work drains before highlighted work, and the
// counters only drop by what was actually placed.
func (s *Scheduler) Step(now time.Time) StepResult {
	var res StepResult
	if s.state != LoopRunning {
		return res
	}
	b, ok := s.buckets()
	if !ok {
		s.state = LoopIdle
		return res
	}

	batch := s.BatchSize()
	if s.pendingRegular > 0 {
		n := min(batch, s.pendingRegular)
		placed := s.placer.Place(b, n)
		s.pendingRegular = max(0, s.pendingRegular-len(placed))
		res.Requested += n
		res.Added = append(res.Added, placed...)
	}
	if s.pendingNew > 0 {
		n := min(batch, s.pendingNew)
		placed := s.placer.Place(b, n)
		for _, p := range placed {
			s.points.Highlight(p, now, s.HighlightDuration)
		}
		s.pendingNew = max(0, s.pendingNew-len(placed))
		res.Requested += n
		res.Added = append(res.Added, placed...)
	}

	if s.pendingRegular == 0 && s.pendingNew == 0 {
		s.state = LoopIdle
		res.Idle = true
	}
	return res
}
