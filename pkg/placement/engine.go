package placement

import (
	"math"
	"math/rand"

	"github.com/sudorandom/donation-lights/pkg/geo"
)

const (
	DefaultRegionPercentage = 10
	DefaultAttemptsPerPoint = 20
	// DefaultFailureFactor caps total failures at count times this factor.
	DefaultFailureFactor = 20

	sequenceLength = 100
)

// Bucket is one slot of the placement sequence.
type Bucket uint8

const (
	BucketGlobal Bucket = iota
	BucketRegion
)

// Sequence returns a shuffled run of 100 bucket tokens with
// round(regionPercentage) region tokens.
func Sequence(regionPercentage float64, rng *rand.Rand) []Bucket {
	n := int(math.Round(regionPercentage))
	n = max(0, min(n, sequenceLength))
	seq := make([]Bucket, sequenceLength)
	for i := 0; i < n; i++ {
		seq[i] = BucketRegion
	}
	rng.Shuffle(len(seq), func(i, j int) { seq[i], seq[j] = seq[j], seq[i] })
	return seq
}

// Engine places batches of points into the shared PointSet.
type Engine struct {
	Sampler    *Sampler
	Classifier *Classifier

	RegionPercentage float64
	AttemptsPerPoint int
	SampleAttempts   int
	FailureFactor    int
}

func NewEngine(sampler *Sampler, classifier *Classifier) *Engine {
	return &Engine{
		Sampler:          sampler,
		Classifier:       classifier,
		RegionPercentage: DefaultRegionPercentage,
		AttemptsPerPoint: DefaultAttemptsPerPoint,
		SampleAttempts:   DefaultSampleAttempts,
		FailureFactor:    DefaultFailureFactor,
	}
}

// Place tries to add count points, interleaving region and global picks in
// the configured ratio. It returns the points that were added, which may be
// fewer than count.
func (e *Engine) Place(b Buckets, count int) []*Point {
	if count <= 0 || b.Empty() {
		return nil
	}
	region := e.candidates(b.Region)
	global := e.candidates(b.Global)
	regionArea, globalArea := totalArea(region), totalArea(global)

	rng := e.Sampler.Rand
	seq := Sequence(e.RegionPercentage, rng)
	attempts := max(e.AttemptsPerPoint, 1)
	maxFailed := count * max(e.FailureFactor, 1)

	placed := make([]*Point, 0, count)
	failed := 0
	for idx := 0; len(placed) < count && failed <= maxFailed; idx++ {
		cands, area := global, globalArea
		if seq[idx%len(seq)] == BucketRegion {
			cands, area = region, regionArea
		}

		var p *Point
		for try := 0; p == nil && try < attempts; try++ {
			i := SelectCountry(cands, area, rng)
			if i < 0 {
				break
			}
			if p = e.Sampler.Sample(cands[i].Country, e.SampleAttempts); p != nil {
				cands[i].Points++
			} else {
				failed++
			}
		}
		if p == nil {
			failed++
			continue
		}
		e.Sampler.Points.Append(p)
		placed = append(placed, p)
	}
	return placed
}

func (e *Engine) candidates(countries []*geo.Country) []*Candidate {
	cands := make([]*Candidate, 0, len(countries))
	for _, c := range countries {
		area := c.Area()
		if area <= 0 {
			continue
		}
		cands = append(cands, &Candidate{
			Country:     c,
			Area:        area,
			Points:      e.Sampler.Points.CountIn(c.ID()),
			LowPriority: e.Classifier != nil && e.Classifier.IsLowPriority(c),
		})
	}
	return cands
}
