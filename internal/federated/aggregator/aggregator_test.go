package aggregator

import (
	"testing"

	"github.com/rawblock/hui-federated/internal/hui"
)

func set(t *testing.T, names []int64, utility int64) hui.Itemset {
	t.Helper()
	items := make([]hui.ItemName, len(names))
	for i, n := range names {
		items[i] = hui.IntName(n)
	}
	s, err := hui.NewItemset(items, utility)
	if err != nil {
		t.Fatalf("NewItemset: %v", err)
	}
	return s
}

func TestAggregateSumIsIdempotentForSingleClient(t *testing.T) {
	a := set(t, []int64{1}, 10)
	result := Aggregate([]ClientContribution{{ClientID: "c1", Itemsets: []hui.Itemset{a}}}, PolicySum, 0)
	if len(result.Global) != 1 || result.Global[0].Utility != 10 {
		t.Fatalf("expected single itemset with utility 10, got %+v", result.Global)
	}
}

func TestAggregateSumAcrossClients(t *testing.T) {
	a1 := set(t, []int64{1, 2}, 10)
	a2 := set(t, []int64{1, 2}, 7)
	result := Aggregate([]ClientContribution{
		{ClientID: "c1", Itemsets: []hui.Itemset{a1}},
		{ClientID: "c2", Itemsets: []hui.Itemset{a2}},
	}, PolicySum, 0)
	if len(result.Global) != 1 {
		t.Fatalf("expected one merged itemset, got %d", len(result.Global))
	}
	if result.Global[0].Utility != 17 {
		t.Fatalf("expected summed utility 17, got %d", result.Global[0].Utility)
	}
}

func TestAggregateMeanOnlyAveragesReportingClients(t *testing.T) {
	a1 := set(t, []int64{1}, 10)
	a2 := set(t, []int64{1}, 20)
	b := set(t, []int64{2}, 5)
	result := Aggregate([]ClientContribution{
		{ClientID: "c1", Itemsets: []hui.Itemset{a1}},
		{ClientID: "c2", Itemsets: []hui.Itemset{a2, b}},
	}, PolicyMean, 0)

	found := make(map[string]int64)
	for _, g := range result.Global {
		found[g.Key()] = g.Utility
	}
	if found[set(t, []int64{1}, 0).Key()] != 15 {
		t.Fatalf("expected mean of 10 and 20 to be 15, got %d", found[set(t, []int64{1}, 0).Key()])
	}
	if found[set(t, []int64{2}, 0).Key()] != 5 {
		t.Fatalf("expected item {2} to keep its single utility 5, got %d", found[set(t, []int64{2}, 0).Key()])
	}
}

func TestAggregateDropsBelowMinUtility(t *testing.T) {
	a := set(t, []int64{1}, 3)
	result := Aggregate([]ClientContribution{{ClientID: "c1", Itemsets: []hui.Itemset{a}}}, PolicySum, 10)
	if len(result.Global) != 0 {
		t.Fatalf("expected itemset below threshold to be dropped, got %+v", result.Global)
	}
}

func TestCommunicationCostFormula(t *testing.T) {
	a := set(t, []int64{1, 2, 3}, 10)
	result := Aggregate([]ClientContribution{{ClientID: "c1", Itemsets: []hui.Itemset{a}}}, PolicySum, 0)
	want := int64(8*3 + 8)
	if result.CommBytes != want {
		t.Fatalf("expected comm cost %d, got %d", want, result.CommBytes)
	}
}
