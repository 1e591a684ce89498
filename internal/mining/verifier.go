package mining

import (
	"github.com/rawblock/hui-federated/internal/hui"
	"github.com/rawblock/hui-federated/internal/source"
)

// VerifyStats reports how the verifier handled its candidate set, including
// whether it fell back to the approximate mode (§4.F edge case).
type VerifyStats struct {
	CandidatesVerified int
	Approximated       bool
}

// Verify runs the second pass over src (§4.F): for every surviving PHUI,
// accumulate each contained item's real per-transaction utility, then keep
// only itemsets whose exact utility is at least cfg.MinUtility. When the
// candidate count exceeds cfg.ApproximateWhenCandidatesExceed (if > 0), the
// verifier instead assigns |itemset| * heuristic as an explicit
// approximation — never the default, and reported via VerifyStats.
func Verify(cfg Config, candidates []hui.Itemset, src source.TransactionSource) ([]hui.Itemset, VerifyStats) {
	stat := VerifyStats{CandidatesVerified: len(candidates)}

	if cfg.ApproximateWhenCandidatesExceed > 0 && len(candidates) > cfg.ApproximateWhenCandidatesExceed {
		stat.Approximated = true
		const heuristicPerItem = 1
		out := make([]hui.Itemset, 0, len(candidates))
		for _, c := range candidates {
			approx := int64(c.Len()) * heuristicPerItem
			if approx >= cfg.MinUtility {
				c.Utility = approx
				out = append(out, c)
			}
		}
		return out, stat
	}

	totals := make([]int64, len(candidates))
	sets := make([]map[hui.ItemName]bool, len(candidates))
	for i, c := range candidates {
		m := make(map[hui.ItemName]bool, len(c.Items))
		for _, n := range c.Items {
			m[n] = true
		}
		sets[i] = m
	}

	_ = src.Transactions(func(tx source.Transaction) bool {
		if len(tx.Items) == 0 {
			return true
		}
		txSet := make(map[hui.ItemName]bool, len(tx.Items))
		for _, n := range tx.Items {
			txSet[n] = true
		}
		for i, set := range sets {
			if !subsetOf(set, txSet) {
				continue
			}
			for name := range set {
				totals[i] += perItemUtility(cfg.UtilityDistribution, name, tx.TransactionUtil, tx.PerItemUtility, len(tx.Items))
			}
		}
		return true
	})

	out := make([]hui.Itemset, 0, len(candidates))
	for i, c := range candidates {
		if totals[i] >= cfg.MinUtility {
			c.Utility = totals[i]
			out = append(out, c)
		}
	}
	return out, stat
}

func subsetOf(set, superset map[hui.ItemName]bool) bool {
	for n := range set {
		if !superset[n] {
			return false
		}
	}
	return true
}
