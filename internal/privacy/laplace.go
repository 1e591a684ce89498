// Package privacy implements the Laplace differential-privacy mechanism
// applied to published per-party HUI utilities (§4.G), plus naive sequential
// composition accounting for the cumulative privacy budget spent.
package privacy

import (
	"math"
	"math/rand"

	"github.com/rawblock/hui-federated/internal/hui"
)

// Mechanism draws noise from Laplace(0, sensitivity/epsilon) and clamps the
// perturbed utility to non-negative before publication. Clamping introduces
// a documented upward bias — the reference implementation's behaviour, kept
// here deliberately rather than "fixed" (§9 open question).
type Mechanism struct {
	Epsilon     float64
	Sensitivity float64
	rng         *rand.Rand
}

// NewMechanism builds a Laplace mechanism with the given epsilon and
// sensitivity. A smaller epsilon means stricter privacy and larger expected
// noise (§8 scenario 5).
func NewMechanism(epsilon, sensitivity float64, rng *rand.Rand) *Mechanism {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Mechanism{Epsilon: epsilon, Sensitivity: sensitivity, rng: rng}
}

// scale returns sensitivity/epsilon, the Laplace distribution's scale
// parameter.
func (m *Mechanism) scale() float64 {
	if m.Epsilon <= 0 {
		return 0
	}
	return m.Sensitivity / m.Epsilon
}

// sample draws one value from Laplace(0, scale) using inverse-CDF sampling.
func (m *Mechanism) sample() float64 {
	b := m.scale()
	if b == 0 {
		return 0
	}
	// u in [-0.5, 0.5)
	u := m.rng.Float64() - 0.5
	sign := 1.0
	if u < 0 {
		sign = -1.0
	}
	return -b * sign * math.Log(1-2*math.Abs(u))
}

// Perturb adds Laplace noise to one itemset's utility and clamps the result
// to non-negative (§4.G, §8 invariant 6).
func (m *Mechanism) Perturb(set hui.Itemset) hui.Itemset {
	noisy := float64(set.Utility) + m.sample()
	if noisy < 0 {
		noisy = 0
	}
	set.Utility = int64(math.Round(noisy))
	return set
}

// PerturbAll perturbs every itemset and drops those falling below minUtility
// after perturbation (§4.G).
func (m *Mechanism) PerturbAll(sets []hui.Itemset, minUtility int64) []hui.Itemset {
	out := make([]hui.Itemset, 0, len(sets))
	for _, s := range sets {
		p := m.Perturb(s)
		if p.Utility >= minUtility {
			out = append(out, p)
		}
	}
	return out
}

// BudgetTracker accumulates cumulative epsilon spent across rounds under
// naive sequential composition — an advisory number only, not a strong
// composition-theorem guarantee (§1 Non-goals, §4.G).
type BudgetTracker struct {
	Cumulative float64
}

// Spend advances the cumulative budget by epsilon and returns the new total.
func (b *BudgetTracker) Spend(epsilon float64) float64 {
	b.Cumulative += epsilon
	return b.Cumulative
}
