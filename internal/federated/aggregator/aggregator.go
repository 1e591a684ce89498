// Package aggregator merges the per-client HUIs collected during one
// federated round into a single global result (§4.H).
package aggregator

import (
	"sort"

	"github.com/rawblock/hui-federated/internal/hui"
)

// Policy selects how utilities from multiple clients publishing the same
// itemset are combined.
type Policy string

const (
	// PolicySum adds every client's utility for a shared itemset. The
	// default — matches the reference implementation's federated total.
	PolicySum Policy = "sum"
	// PolicyMean averages the utilities of clients that reported the
	// itemset at all; clients that didn't report it are excluded from the
	// denominator, not treated as zero.
	PolicyMean Policy = "mean"
)

// ClientContribution is one client's mined itemsets for a round.
type ClientContribution struct {
	ClientID string
	Itemsets []hui.Itemset
}

// Result is the merged output of one federated round.
type Result struct {
	Global             []hui.Itemset
	ParticipatingCount int
	CommBytes          int64
}

// Aggregate merges contributions under policy, drops itemsets below
// minUtility, and returns the global list sorted descending by utility
// (ties ascending by key, for determinism).
func Aggregate(contributions []ClientContribution, policy Policy, minUtility int64) Result {
	type acc struct {
		items []hui.ItemName
		sum   int64
		count int
	}
	merged := make(map[string]*acc)

	var commBytes int64
	for _, c := range contributions {
		commBytes += communicationCost(c.Itemsets)
		for _, it := range c.Itemsets {
			key := it.Key()
			a, ok := merged[key]
			if !ok {
				a = &acc{items: append([]hui.ItemName(nil), it.Items...)}
				merged[key] = a
			}
			a.sum += it.Utility
			a.count++
		}
	}

	out := make([]hui.Itemset, 0, len(merged))
	for _, a := range merged {
		utility := a.sum
		if policy == PolicyMean && a.count > 0 {
			utility = a.sum / int64(a.count)
		}
		if utility < minUtility {
			continue
		}
		set, err := hui.NewItemset(a.items, utility)
		if err != nil {
			continue
		}
		out = append(out, set)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Utility != out[j].Utility {
			return out[i].Utility > out[j].Utility
		}
		return out[i].Key() < out[j].Key()
	})

	return Result{Global: out, ParticipatingCount: len(contributions), CommBytes: commBytes}
}

// communicationCost implements the accounting formula sum(8*|items| + 8)
// bytes, approximating the wire cost of one client's itemset payload
// (§4.H, §3 Supplemented Features).
func communicationCost(sets []hui.Itemset) int64 {
	var total int64
	for _, s := range sets {
		total += 8*int64(len(s.Items)) + 8
	}
	return total
}
