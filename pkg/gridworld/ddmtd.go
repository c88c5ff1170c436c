package gridworld

import (
	"fmt"
	"math"
	"math/rand"
)

// DDMTD is the discrete stochastic actuation model of one actor: the
// probabilities that the chosen action, the action 90° to its right, the
// opposite action, or the action 90° to its left actually executes.
// Directions are relative to the chosen action, not to a fixed compass.
type DDMTD struct {
	dist [NumActions]float64 // indexed by (actual - chosen) mod 4
}

// NewDDMTD validates the four probabilities and builds the model.
func NewDDMTD(chosen, right, opposite, left float64) (DDMTD, error) {
	d := DDMTD{dist: [NumActions]float64{chosen, right, opposite, left}}
	sum := 0.0
	for _, p := range d.dist {
		if p < 0 {
			return DDMTD{}, fmt.Errorf("ddmtd probabilities must be non-negative, got %v/%v/%v/%v",
				chosen, right, opposite, left)
		}
		sum += p
	}
	if math.Abs(sum-1) > 1e-9 {
		return DDMTD{}, fmt.Errorf("ddmtd probabilities must sum to 1, got %v/%v/%v/%v (sum %v)",
			chosen, right, opposite, left, sum)
	}
	return d, nil
}

// DefaultDDMTD returns the 0.9/0.05/0.0/0.05 actuation model.
func DefaultDDMTD() DDMTD {
	return DDMTD{dist: [NumActions]float64{0.9, 0.05, 0.0, 0.05}}
}

// Prob returns the probability that actual executes when chosen was
// selected.
func (d DDMTD) Prob(chosen, actual Action) float64 {
	return d.dist[(uint8(actual)-uint8(chosen))%NumActions]
}

// Distribution returns the probability of each executed action given the
// chosen one. Used for exact Bellman backups; the engine never samples.
func (d DDMTD) Distribution(chosen Action) [NumActions]float64 {
	var out [NumActions]float64
	for _, a := range AllActions() {
		out[a] = d.Prob(chosen, a)
	}
	return out
}

// Sample draws the executed action for a chosen one. Only game sessions
// use this path.
func (d DDMTD) Sample(rng *rand.Rand, chosen Action) Action {
	r := rng.Float64()
	acc := 0.0
	for _, a := range AllActions() {
		acc += d.Prob(chosen, a)
		if r < acc {
			return a
		}
	}
	// Float rounding can leave acc a hair under 1.
	return Left
}
