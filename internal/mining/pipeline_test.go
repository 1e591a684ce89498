package mining

import (
	"testing"

	"github.com/rawblock/hui-federated/internal/hui"
	"github.com/rawblock/hui-federated/internal/source"
)

func tx(names []int64, util int64) source.Transaction {
	items := make([]hui.ItemName, len(names))
	for i, n := range names {
		items[i] = hui.IntName(n)
	}
	return source.Transaction{Items: items, TransactionUtil: util}
}

func tinyDataset() source.InMemorySource {
	return source.InMemorySource{Rows: []source.Transaction{
		tx([]int64{1, 2, 3}, 10),
		tx([]int64{2, 3, 4}, 15),
		tx([]int64{1, 3, 4}, 12),
		tx([]int64{2, 4, 5}, 8),
		tx([]int64{1, 2, 4, 5}, 20),
		tx([]int64{3, 4, 5}, 14),
		tx([]int64{1, 2, 3, 4}, 18),
		tx([]int64{2, 3, 5}, 11),
		tx([]int64{1, 4, 5}, 16),
		tx([]int64{2, 3, 4, 5}, 22),
	}}
}

func findRecord(hus []hui.Itemset, names ...int64) (hui.Itemset, bool) {
	for _, h := range hus {
		if len(h.Items) != len(names) {
			continue
		}
		match := true
		for _, n := range names {
			if !h.Contains(hui.IntName(n)) {
				match = false
				break
			}
		}
		if match {
			return h, true
		}
	}
	return hui.Itemset{}, false
}

// TestTinyDeterministicMine matches spec §8 scenario 1: min_utility=5 must
// surface every singleton and {2,3}, each with utility >= 5.
func TestTinyDeterministicMine(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinUtility = 5

	result := Run(cfg, tinyDataset())

	for _, n := range []int64{1, 2, 3, 4, 5} {
		rec, ok := findRecord(result.HUIs, n)
		if !ok {
			t.Fatalf("expected singleton {%d} to be published", n)
		}
		if rec.Utility < 5 {
			t.Fatalf("singleton {%d} utility %d below threshold", n, rec.Utility)
		}
	}

	rec, ok := findRecord(result.HUIs, 2, 3)
	if !ok {
		t.Fatalf("expected {2,3} to be published")
	}
	if rec.Utility < 5 {
		t.Fatalf("{2,3} utility %d below threshold", rec.Utility)
	}
}

// TestHigherThresholdIsSubset matches spec §8 scenario 1's second half: a
// stricter threshold's result must be a subset of the looser one's.
func TestHigherThresholdIsSubset(t *testing.T) {
	loose := DefaultConfig()
	loose.MinUtility = 5
	strict := DefaultConfig()
	strict.MinUtility = 15

	looseResult := Run(loose, tinyDataset())
	strictResult := Run(strict, tinyDataset())

	looseKeys := make(map[string]bool, len(looseResult.HUIs))
	for _, h := range looseResult.HUIs {
		looseKeys[h.Key()] = true
	}
	for _, h := range strictResult.HUIs {
		if !looseKeys[h.Key()] {
			t.Fatalf("strict result contains %v not present in loose result", h.Items)
		}
	}
}

// TestMinUtilityZeroYieldsAllSingletons matches spec §8 boundary behaviour.
func TestMinUtilityZeroYieldsAllSingletons(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinUtility = 0

	result := Run(cfg, tinyDataset())
	for _, n := range []int64{1, 2, 3, 4, 5} {
		if _, ok := findRecord(result.HUIs, n); !ok {
			t.Fatalf("expected singleton {%d} with min_utility=0", n)
		}
	}
}

// TestMinUtilityAboveMaxYieldsEmpty matches spec §8 boundary behaviour.
func TestMinUtilityAboveMaxYieldsEmpty(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinUtility = 1_000_000

	result := Run(cfg, tinyDataset())
	if len(result.HUIs) != 0 {
		t.Fatalf("expected empty result, got %d HUIs", len(result.HUIs))
	}
}

// TestGetItemsByTWURanking matches spec §8 scenario 2.
func TestGetItemsByTWURanking(t *testing.T) {
	tr := NewTree(0)
	tr.SetItemTWU(hui.StringName("A"), 100)
	tr.SetItemTWU(hui.StringName("B"), 80)
	tr.SetItemTWU(hui.StringName("C"), 80)
	tr.SetItemTWU(hui.StringName("D"), 10)

	got := tr.GetItemsByTWU()
	want := []string{"A", "B", "C", "D"}
	if len(got) != len(want) {
		t.Fatalf("expected %d items, got %d", len(want), len(got))
	}
	for i, w := range want {
		if got[i].String() != w {
			t.Fatalf("position %d: expected %s, got %s", i, w, got[i].String())
		}
	}
}

// TestMiningIsDeterministic matches spec §8's round-trip property: mining
// the same dataset twice with the same configuration produces identical
// HUI sets.
func TestMiningIsDeterministic(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinUtility = 5

	r1 := Run(cfg, tinyDataset())
	r2 := Run(cfg, tinyDataset())

	if len(r1.HUIs) != len(r2.HUIs) {
		t.Fatalf("expected identical HUI counts, got %d and %d", len(r1.HUIs), len(r2.HUIs))
	}
	keys1 := make(map[string]int64)
	for _, h := range r1.HUIs {
		keys1[h.Key()] = h.Utility
	}
	for _, h := range r2.HUIs {
		u, ok := keys1[h.Key()]
		if !ok || u != h.Utility {
			t.Fatalf("mining run 2 diverged on itemset %v", h.Items)
		}
	}
}

// TestTransactionOrderDoesNotAffectHUIs matches spec §8 invariant 5.
func TestTransactionOrderDoesNotAffectHUIs(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinUtility = 5

	forward := tinyDataset()
	reversed := source.InMemorySource{Rows: make([]source.Transaction, len(forward.Rows))}
	for i, row := range forward.Rows {
		reversed.Rows[len(forward.Rows)-1-i] = row
	}

	r1 := Run(cfg, forward)
	r2 := Run(cfg, reversed)

	keys1 := make(map[string]int64)
	for _, h := range r1.HUIs {
		keys1[h.Key()] = h.Utility
	}
	for _, h := range r2.HUIs {
		u, ok := keys1[h.Key()]
		if !ok || u != h.Utility {
			t.Fatalf("transaction order changed the HUI set: %v", h.Items)
		}
	}
}

// TestVerifiedHUIsMeetThreshold matches spec §8 invariant 4.
func TestVerifiedHUIsMeetThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinUtility = 10

	result := Run(cfg, tinyDataset())
	for _, h := range result.HUIs {
		if h.Utility < cfg.MinUtility {
			t.Fatalf("published HUI %v has utility %d below threshold %d", h.Items, h.Utility, cfg.MinUtility)
		}
	}
}

// TestPHUIItemsNeverRepeat matches spec §8 invariant 3.
func TestPHUIItemsNeverRepeat(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinUtility = 0

	tree := NewTree(cfg.MinUtility)
	stats := ComputeStatsFromSource(cfg, tinyDataset())
	SeedTWU(tree, stats)
	BuildTreeFromSource(cfg, tree, tinyDataset())

	engine := NewEngine(tree, cfg, stats)
	phuis, _ := engine.Mine()

	for _, p := range phuis {
		seen := make(map[hui.ItemName]bool)
		for _, name := range p.Items {
			if seen[name] {
				t.Fatalf("PHUI %v repeats item %s", p.Items, name)
			}
			seen[name] = true
		}
	}
}

// TestSubProjectionRecursesThroughNonNearestAncestor guards against a
// regression in buildSubProjection: candidatesFromProjection ranks
// candidates by tallying every node in a retained path, so the top-ranked
// item for recursion need not be the path's nearest ancestor (nodes[0]).
// Here a single transaction A,B,C,D (TWU-ordered, so the tree chain is
// A -> B -> C -> D) gives D's conditional paths the ancestor chain
// [C, B, A] with B carrying by far the largest node utility, so B — not
// the nearest ancestor C — is selected first when mining under prefix
// {D}. The 3-item itemset {A, B, D} is only reachable if buildSubProjection
// can match B at a non-head position in the path and continue the
// recursion into the remaining ancestor A.
func TestSubProjectionRecursesThroughNonNearestAncestor(t *testing.T) {
	a, b, c, d := hui.StringName("A"), hui.StringName("B"), hui.StringName("C"), hui.StringName("D")

	cfg := DefaultConfig()
	cfg.MinUtility = 1

	tree := NewTree(cfg.MinUtility)
	tree.SetItemTWU(a, 100)
	tree.SetItemTWU(b, 90)
	tree.SetItemTWU(c, 80)
	tree.SetItemTWU(d, 70)
	tree.AddTransaction([]txItem{
		{Name: a, Utility: 1},
		{Name: b, Utility: 50},
		{Name: c, Utility: 1},
		{Name: d, Utility: 1},
	})

	stats := Stats{
		Items: map[hui.ItemName]*ItemStat{
			a: {TWU: 100},
			b: {TWU: 90},
			c: {TWU: 80},
			d: {TWU: 70},
		},
		AvgTotalUtility: 50,
	}

	engine := NewEngine(tree, cfg, stats)
	phuis, _ := engine.Mine()

	found := false
	for _, p := range phuis {
		if p.Len() != 3 {
			continue
		}
		if p.Contains(a) && p.Contains(b) && p.Contains(d) {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("expected 3-item PHUI {A,B,D} to be discovered via a non-nearest-ancestor sub-projection, got %d PHUIs", len(phuis))
	}
}
