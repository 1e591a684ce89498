package main

import (
	"encoding/json"
	"flag"
	"io"
	"log"
	"os"

	"github.com/rawblock/hui-federated/internal/mining"
	"github.com/rawblock/hui-federated/internal/source"
)

func main() {
	path := flag.String("data", "", "path to a transaction text file (required)")
	minUtility := flag.Int64("min-utility", 0, "minimum utility threshold")
	slack := flag.Float64("slack", 1.2, "upper-bound pruning slack multiplier")
	flag.Parse()

	if *path == "" {
		log.Fatal("FATAL: -data is required")
	}

	cfg := mining.DefaultConfig()
	cfg.MinUtility = *minUtility
	cfg.UpperBoundSlack = *slack

	src := source.TextSource{
		Open: func() (io.ReadCloser, error) {
			return os.Open(*path)
		},
	}

	log.Printf("Mining %s with min_utility=%d", *path, cfg.MinUtility)
	result := mining.Run(cfg, src)

	records := make([]map[string]any, len(result.HUIs))
	for i, h := range result.HUIs {
		rec := h.ToRecord()
		records[i] = map[string]any{"items": rec.Items, "utility": rec.Utility}
	}

	out := map[string]any{
		"huis":               records,
		"transactions_read":  result.Stats.TransactionsRead,
		"candidates_emitted": result.Prune.CandidatesEmitted,
		"pruned_by_twu":      result.Prune.PrunedByTWU,
		"pruned_by_bound":    result.Prune.PrunedByBound,
		"timed_out":          result.Prune.TimedOut,
		"approximated":       result.Verify.Approximated,
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatalf("failed to encode result: %v", err)
	}
}
