package privacy

import (
	"math/rand"
	"testing"

	"github.com/rawblock/hui-federated/internal/hui"
)

func itemset(t *testing.T, utility int64) hui.Itemset {
	t.Helper()
	s, err := hui.NewItemset([]hui.ItemName{hui.IntName(1)}, utility)
	if err != nil {
		t.Fatalf("NewItemset: %v", err)
	}
	return s
}

func TestPerturbNeverPublishesNegativeUtility(t *testing.T) {
	m := NewMechanism(0.01, 1.0, rand.New(rand.NewSource(42)))
	for i := 0; i < 200; i++ {
		got := m.Perturb(itemset(t, 1))
		if got.Utility < 0 {
			t.Fatalf("published negative utility %d", got.Utility)
		}
	}
}

func TestSmallerEpsilonProducesLargerExpectedNoise(t *testing.T) {
	const trials = 2000
	strict := NewMechanism(0.1, 1.0, rand.New(rand.NewSource(7)))
	loose := NewMechanism(10.0, 1.0, rand.New(rand.NewSource(7)))

	var strictAbsSum, looseAbsSum float64
	for i := 0; i < trials; i++ {
		s := strict.sample()
		if s < 0 {
			s = -s
		}
		strictAbsSum += s

		l := loose.sample()
		if l < 0 {
			l = -l
		}
		looseAbsSum += l
	}

	if strictAbsSum <= looseAbsSum {
		t.Fatalf("expected stricter (smaller) epsilon to produce larger expected |noise|: strict=%.2f loose=%.2f", strictAbsSum, looseAbsSum)
	}
}

func TestPerturbAllDropsBelowThreshold(t *testing.T) {
	m := NewMechanism(0, 1.0, rand.New(rand.NewSource(1))) // epsilon=0 => scale 0 => no noise
	sets := []hui.Itemset{itemset(t, 3), itemset(t, 30)}
	out := m.PerturbAll(sets, 10)
	if len(out) != 1 || out[0].Utility != 30 {
		t.Fatalf("expected only the itemset above threshold to survive, got %+v", out)
	}
}

func TestBudgetTrackerAccumulates(t *testing.T) {
	var b BudgetTracker
	b.Spend(0.5)
	total := b.Spend(0.5)
	if total != 1.0 {
		t.Fatalf("expected cumulative epsilon 1.0, got %f", total)
	}
}
