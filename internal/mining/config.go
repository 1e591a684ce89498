// Package mining implements the UP-Growth high-utility itemset miner: the
// UP-Tree, the item-statistics pass, the tree builder, the recursive mining
// engine with pseudo-projection and bound-driven pruning, and the
// exact-utility verifier.
package mining

import "time"

// UtilityDistributionPolicy controls how a transaction's total utility is
// spread across its items when a source does not supply per-item utilities.
// The reference implementation always split evenly and never surfaced the
// choice; this is made explicit per spec §9's open question.
type UtilityDistributionPolicy int

const (
	// PerItemUtilities uses only the per-item utilities the source supplies;
	// an item with no per-item value counts as utility 0. Such transactions
	// are not skipped: their TWU and support still count.
	PerItemUtilities UtilityDistributionPolicy = iota
	// EqualSplit divides the transaction's total utility evenly across its
	// items when per-item utilities are absent.
	EqualSplit
)

// Config carries every tunable named in spec §6. All caps default to zero,
// which this package treats as "unbounded" — the reference implementation's
// aggressive hard-coded caps are never the default.
type Config struct {
	// MinUtility is the threshold used by mining, aggregation, and the
	// verifier alike.
	MinUtility int64

	// UtilityDistribution controls how transaction totals are split across
	// items absent per-item utility data.
	UtilityDistribution UtilityDistributionPolicy

	// MaxItemsPerTransaction truncates a transaction to its top-N items by
	// TWU during tree construction when > 0. Zero means no truncation.
	MaxItemsPerTransaction int

	// MaxRecursionDepth bounds the mining engine's recursion. Zero means
	// unbounded.
	MaxRecursionDepth int

	// MaxItemsConsideredPerLevel bounds how many candidate items the engine
	// iterates per recursive call. Zero means unbounded.
	MaxItemsConsideredPerLevel int

	// MaxNodesPerProjection bounds the number of node references retained
	// in a single PathProjection. Zero means unbounded.
	MaxNodesPerProjection int

	// MaxPathLengthPerProjection bounds how far a path walk climbs toward
	// the root. Zero means unbounded.
	MaxPathLengthPerProjection int

	// MaxPHUIsRetained bounds how many potential HUIs the engine keeps
	// before it stops emitting more. Zero means unbounded.
	MaxPHUIsRetained int

	// ApproximateWhenCandidatesExceed makes the verifier assign
	// |itemset|*heuristic utility instead of an exact pass when the
	// candidate count exceeds this many PHUIs. Zero disables approximation
	// (the default — never silently approximate).
	ApproximateWhenCandidatesExceed int

	// ProjectionCacheSize bounds the projection cache (§5); zero means the
	// package default of 1000 entries.
	ProjectionCacheSize int

	// BoundsCacheSize bounds the upper-bound cache; zero means the package
	// default of 10000 entries.
	BoundsCacheSize int

	// PatternCacheSize bounds the decision cache ("ub >= min_util"); zero
	// means the package default of 10000 entries.
	PatternCacheSize int

	// UpperBoundSlack is the tunable coefficient in the early-termination
	// upper bound ub = min(min_twu, floor(UpperBoundSlack * avg * |set|)).
	// The reference hard-codes 1.2; this package names it instead of
	// burying it as a literal.
	UpperBoundSlack float64

	// MaxTransactions caps how many transactions a pass reads, when > 0.
	// Zero means unbounded — the reference's 10000/5000/3000 caps are a
	// performance hack, never the default.
	MaxTransactions int

	// Timeout bounds wall-clock mining time. Zero means unbounded. Checked
	// once per outer item-iteration (§5), never inside a single projection
	// walk, so the engine never aborts mid-path.
	Timeout time.Duration
}

// DefaultConfig returns the spec-mandated defaults: no caps, 1.2 slack,
// per-item utilities where available, equal split otherwise.
func DefaultConfig() Config {
	return Config{
		UtilityDistribution: EqualSplit,
		UpperBoundSlack:     1.2,
	}
}

func (c Config) projectionCacheSize() int {
	if c.ProjectionCacheSize > 0 {
		return c.ProjectionCacheSize
	}
	return 1000
}

func (c Config) boundsCacheSize() int {
	if c.BoundsCacheSize > 0 {
		return c.BoundsCacheSize
	}
	return 10000
}

func (c Config) patternCacheSize() int {
	if c.PatternCacheSize > 0 {
		return c.PatternCacheSize
	}
	return 10000
}
