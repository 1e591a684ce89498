package mining

import "github.com/rawblock/hui-federated/internal/hui"

// ItemStat holds the single-pass statistics gathered per item (§4.C): its
// transaction-weighted utility (an upper bound used for pruning), its
// support (number of containing transactions), and its total utility summed
// across every transaction that contains it.
type ItemStat struct {
	TWU          int64
	Support      int64
	TotalUtility int64
}

// Stats is the result of one statistics pass: per-item stats plus the
// dataset-wide average total utility used by the mining engine's
// early-termination bound (§4.E).
type Stats struct {
	Items              map[hui.ItemName]*ItemStat
	AvgTotalUtility    float64
	TransactionsRead   int64
}

// perItemUtility returns the utility contribution of name within tx. A
// per-item value from the source is used whenever present, under either
// policy; otherwise EqualSplit divides the transaction's total evenly, while
// PerItemUtilities yields 0. No caller skips a transaction for lacking
// per-item data.
func perItemUtility(policy UtilityDistributionPolicy, name hui.ItemName, txUtil int64, perItem map[hui.ItemName]int64, itemCount int) int64 {
	if perItem != nil {
		if v, ok := perItem[name]; ok {
			return v
		}
	}
	if policy == EqualSplit && itemCount > 0 {
		return txUtil / int64(itemCount)
	}
	return 0
}

// txItems is the minimal shape the stats pass and builder both need from a
// transaction, decoupled from the source package's Transaction to keep this
// package import-light.
type txItems struct {
	names   []hui.ItemName
	txUtil  int64
	perItem map[hui.ItemName]int64
}

// ComputeStats performs the single pass over rows described in §4.C. Rows
// with no items are skipped (malformed, never fatal — §7). When
// cfg.MaxTransactions > 0, only that many transactions are read.
func ComputeStats(cfg Config, rows func(yield func(txItems) bool)) Stats {
	items := make(map[hui.ItemName]*ItemStat)
	var totalUtilitySum int64
	var txCount int64

	rows(func(row txItems) bool {
		if len(row.names) == 0 {
			return true // malformed, skip
		}
		if cfg.MaxTransactions > 0 && txCount >= int64(cfg.MaxTransactions) {
			return false
		}
		txCount++
		totalUtilitySum += row.txUtil

		seen := make(map[hui.ItemName]bool, len(row.names))
		for _, name := range row.names {
			if seen[name] {
				continue
			}
			seen[name] = true
			st, ok := items[name]
			if !ok {
				st = &ItemStat{}
				items[name] = st
			}
			st.TWU += row.txUtil
			st.Support++
			st.TotalUtility += perItemUtility(cfg.UtilityDistribution, name, row.txUtil, row.perItem, len(row.names))
		}
		return true
	})

	avg := 0.0
	if len(items) > 0 {
		var sum int64
		for _, st := range items {
			sum += st.TotalUtility
		}
		avg = float64(sum) / float64(len(items))
	}

	return Stats{Items: items, AvgTotalUtility: avg, TransactionsRead: txCount}
}
