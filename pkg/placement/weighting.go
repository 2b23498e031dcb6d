package placement

import (
	"math/rand"

	"github.com/sudorandom/donation-lights/pkg/geo"
)

// LowPriorityMultiplier scales the weight of low-priority countries.
const LowPriorityMultiplier = 0.5

// Candidate is a country considered for the next point.
type Candidate struct {
	Country     *geo.Country
	Area        float64
	Points      int
	LowPriority bool
}

// Weight favours large countries that hold few points so far.
func (c *Candidate) Weight(totalArea float64) float64 {
	if totalArea <= 0 || c.Area <= 0 {
		return 0
	}
	w := (c.Area / totalArea) / float64(c.Points+1)
	if c.LowPriority {
		w *= LowPriorityMultiplier
	}
	return w
}

// SelectCountry picks a candidate index in proportion to its weight. It
// returns -1 for an empty slice or non-positive totalArea. When every weight
// is zero the pick is uniform.
func SelectCountry(cands []*Candidate, totalArea float64, rng *rand.Rand) int {
	if len(cands) == 0 || totalArea <= 0 {
		return -1
	}
	weights := make([]float64, len(cands))
	var total float64
	for i, c := range cands {
		weights[i] = c.Weight(totalArea)
		total += weights[i]
	}
	if total <= 0 {
		return rng.Intn(len(cands))
	}

	r := rng.Float64() * total
	for i, w := range weights {
		r -= w
		if r <= 0 {
			return i
		}
	}
	return len(cands) - 1
}

func totalArea(cands []*Candidate) float64 {
	var sum float64
	for _, c := range cands {
		sum += c.Area
	}
	return sum
}
