package mining

import (
	"github.com/rawblock/hui-federated/internal/hui"
	"github.com/rawblock/hui-federated/internal/source"
)

// Result bundles everything a standalone or federated caller needs from one
// end-to-end run: the published HUIs plus enough bookkeeping to fill a
// federated training_results.statistics field.
type Result struct {
	HUIs    []hui.Itemset
	Stats   Stats
	Prune   PruneStats
	Verify  VerifyStats
}

// Run executes the full control flow described in spec §2: statistics pass
// → tree build → mining → exact verification → filter by min utility. It is
// the single entrypoint both the standalone miner and the federated client
// use to mine their local data.
func Run(cfg Config, src source.TransactionSource) Result {
	stats := ComputeStatsFromSource(cfg, src)

	tree := NewTree(cfg.MinUtility)
	SeedTWU(tree, stats)
	BuildTreeFromSource(cfg, tree, src)

	engine := NewEngine(tree, cfg, stats)
	phuis, pruneStats := engine.Mine()

	hu, verifyStats := Verify(cfg, phuis, src)

	return Result{HUIs: hu, Stats: stats, Prune: pruneStats, Verify: verifyStats}
}
