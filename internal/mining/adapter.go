package mining

import "github.com/rawblock/hui-federated/internal/source"

// rowsFromSource adapts a TransactionSource into the internal txItems
// iterator shape shared by the statistics pass and the tree builder.
func rowsFromSource(src source.TransactionSource) func(yield func(txItems) bool) {
	return func(yield func(txItems) bool) {
		_ = src.Transactions(func(tx source.Transaction) bool {
			return yield(txItems{names: tx.Items, txUtil: tx.TransactionUtil, perItem: tx.PerItemUtility})
		})
	}
}

// ComputeStatsFromSource runs the statistics pass (§4.C) directly over a
// TransactionSource.
func ComputeStatsFromSource(cfg Config, src source.TransactionSource) Stats {
	return ComputeStats(cfg, rowsFromSource(src))
}

// BuildTreeFromSource runs the tree-builder pass (§4.D) directly over a
// TransactionSource.
func BuildTreeFromSource(cfg Config, tree *Tree, src source.TransactionSource) {
	BuildTree(cfg, tree, rowsFromSource(src))
}
