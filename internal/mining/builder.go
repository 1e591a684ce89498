package mining

import (
	"sort"

	"github.com/rawblock/hui-federated/internal/hui"
)

// BuildTree reads rows a second time and populates tree, dropping items
// absent from the promising set and — when cfg.MaxItemsPerTransaction > 0 —
// truncating each transaction to its top-N items by TWU before inserting
// (§4.D steps 1-2). Malformed rows are skipped, matching the statistics
// pass's error policy (§7).
func BuildTree(cfg Config, tree *Tree, rows func(yield func(txItems) bool)) {
	promising := make(map[hui.ItemName]bool)
	for _, name := range tree.GetPromisingItems() {
		promising[name] = true
	}

	var txCount int64
	rows(func(row txItems) bool {
		if len(row.names) == 0 {
			return true
		}
		if cfg.MaxTransactions > 0 && txCount >= int64(cfg.MaxTransactions) {
			return false
		}
		txCount++

		kept := make([]hui.ItemName, 0, len(row.names))
		for _, name := range row.names {
			if promising[name] {
				kept = append(kept, name)
			}
		}
		if len(kept) == 0 {
			return true
		}

		if cfg.MaxItemsPerTransaction > 0 && len(kept) > cfg.MaxItemsPerTransaction {
			sort.Slice(kept, func(i, j int) bool {
				ti, tj := tree.GetItemTWU(kept[i]), tree.GetItemTWU(kept[j])
				if ti != tj {
					return ti > tj
				}
				return kept[i].Less(kept[j])
			})
			kept = kept[:cfg.MaxItemsPerTransaction]
		}

		items := make([]txItem, len(kept))
		for i, name := range kept {
			u := perItemUtility(cfg.UtilityDistribution, name, row.txUtil, row.perItem, len(row.names))
			items[i] = txItem{Name: name, Utility: u}
		}
		tree.AddTransaction(items)
		return true
	})
}

// SeedTWU copies stats' TWU values onto the tree so BuildTree's promising-set
// filter and insertion ordering see the same view the statistics pass
// computed.
func SeedTWU(tree *Tree, stats Stats) {
	for name, st := range stats.Items {
		tree.SetItemTWU(name, st.TWU)
	}
}
