package mining

import (
	"math"
	"sort"
	"time"

	"github.com/rawblock/hui-federated/internal/hui"
)

// PruneStats counts the pruning decisions made during a mining run, exposed
// so operators can see that early termination is working without affecting
// the result set itself (§4.E "Failure semantics").
type PruneStats struct {
	PrunedByTWU   int64
	PrunedByBound int64
	TimedOut      bool
	CandidatesEmitted int64
}

// Engine runs the recursive UP-Growth mining contract described in §4.E over
// a frozen Tree. It is single-threaded and cooperative: cancellation is only
// observed between item iterations (§5), never mid-projection-walk.
type Engine struct {
	tree  *Tree
	cfg   Config
	stats Stats

	boundsCache    *boundedCache
	decisionCache  *boundedCache
	projectionCache *boundedCache

	phuis []hui.Itemset
	stat  PruneStats

	start time.Time
}

// NewEngine builds a mining engine over tree using stats gathered by the
// statistics pass (§4.C), for the early-termination bound.
func NewEngine(tree *Tree, cfg Config, stats Stats) *Engine {
	return &Engine{
		tree:  tree,
		cfg:   cfg,
		stats: stats,

		boundsCache:     newBoundedCache(cfg.boundsCacheSize()),
		decisionCache:   newBoundedCache(cfg.patternCacheSize()),
		projectionCache: newBoundedCache(cfg.projectionCacheSize()),
	}
}

// Mine runs the full recursive search and returns every PHUI discovered.
// PHUI utility fields are provisional (the projection tally's utility_map
// value, or the top-level TWU as a loose upper bound) — the exact-utility
// verifier (§4.F) assigns the real utility before publication.
func (e *Engine) Mine() ([]hui.Itemset, PruneStats) {
	e.start = time.Now()
	prefix, _ := hui.NewItemset(nil, 0)

	top := e.tree.GetItemsByTWU()
	candidates := make([]candidate, 0, len(top))
	for _, name := range top {
		candidates = append(candidates, candidate{Name: name, Bound: e.tree.GetItemTWU(name)})
	}
	e.processLevel(candidates, prefix, nil, 0)
	return e.phuis, e.stat
}

func (e *Engine) timedOut() bool {
	if e.cfg.Timeout <= 0 {
		return false
	}
	if time.Since(e.start) >= e.cfg.Timeout {
		e.stat.TimedOut = true
		return true
	}
	return false
}

// processLevel implements the per-item loop in §4.E: skip by TWU, skip by
// early-termination bound, emit a PHUI, build/derive a projection, and
// recurse when the projection has support.
func (e *Engine) processLevel(candidates []candidate, prefix hui.Itemset, parent *PathProjection, depth int) {
	if e.cfg.MaxRecursionDepth > 0 && depth >= e.cfg.MaxRecursionDepth {
		return
	}

	considered := 0
	for _, c := range candidates {
		if e.timedOut() {
			return
		}
		if e.cfg.MaxItemsConsideredPerLevel > 0 && considered >= e.cfg.MaxItemsConsideredPerLevel {
			break
		}
		considered++

		if c.Bound < e.cfg.MinUtility {
			e.stat.PrunedByTWU++
			continue
		}

		extended := prefix.Extend(c.Name)
		ub := e.upperBound(extended)
		if ub < e.cfg.MinUtility {
			e.stat.PrunedByBound++
			continue
		}

		if e.cfg.MaxPHUIsRetained > 0 && len(e.phuis) >= e.cfg.MaxPHUIsRetained {
			return
		}
		extended.Utility = c.Bound
		e.phuis = append(e.phuis, extended)
		e.stat.CandidatesEmitted++

		projection := e.projectionFor(c.Name, extended, parent)
		if !projection.validate(e.tree) {
			projection = e.rebuildProjection(c.Name, extended, parent)
		}
		if projection.support > 0 {
			next := e.candidatesFromProjection(projection, extended)
			e.processLevel(next, extended, &projection, depth+1)
		}
	}
}

// projectionFor returns a cached projection when available, building one
// otherwise. Top-level and recursive projections share one cache keyed by
// the extended itemset's canonical key; a cached entry is reused only while
// its captured generation still matches the tree's. min_util is not part of
// the key, since it is fixed for the engine's lifetime.
func (e *Engine) projectionFor(item hui.ItemName, extended hui.Itemset, parent *PathProjection) PathProjection {
	key := extended.Key()
	if cached, ok := e.projectionCache.get(key); ok {
		if p, ok := cached.(PathProjection); ok && p.validate(e.tree) {
			return p
		}
	}
	return e.rebuildProjection(item, extended, parent)
}

func (e *Engine) rebuildProjection(item hui.ItemName, extended hui.Itemset, parent *PathProjection) PathProjection {
	var proj PathProjection
	if parent == nil {
		proj = buildTopLevelProjection(e.tree, item, e.cfg.MinUtility, e.cfg)
	} else {
		proj = buildSubProjection(e.tree, *parent, item, e.cfg.MinUtility)
	}
	e.projectionCache.put(extended.Key(), proj)
	return proj
}

// candidatesFromProjection implements §4.E's "Projection mining": tally
// frequency and utility per item across every retained path, keep items
// meeting the threshold and not already in prefix, and rank descending by
// utility (ties ascending by name, per the package-wide convention).
func (e *Engine) candidatesFromProjection(proj PathProjection, prefix hui.Itemset) []candidate {
	frequency := make(map[hui.ItemName]int64)
	utilityMap := make(map[hui.ItemName]int64)

	for _, p := range proj.paths {
		for _, idx := range p.nodes {
			name := e.tree.nodes[idx].item
			frequency[name]++
			utilityMap[name] += e.tree.nodes[idx].nodeUtility
		}
	}

	out := make([]candidate, 0, len(utilityMap))
	for name, u := range utilityMap {
		if u < e.cfg.MinUtility || frequency[name] < 1 || prefix.Contains(name) {
			continue
		}
		out = append(out, candidate{Name: name, Bound: u})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Bound != out[j].Bound {
			return out[i].Bound > out[j].Bound
		}
		return out[i].Name.Less(out[j].Name)
	})
	return out
}

// upperBound computes ub = min(min_twu_of_any_item_in_set, floor(slack *
// avg_total_utility * |set|)) per §4.E, caching both the bound and the
// pass/fail decision separately as the spec requires.
func (e *Engine) upperBound(extended hui.Itemset) int64 {
	key := extended.Key()
	if cached, ok := e.boundsCache.get(key); ok {
		if v, ok := cached.(int64); ok {
			return v
		}
	}

	minTWU := int64(math.MaxInt64)
	for _, name := range extended.Items {
		st, ok := e.stats.Items[name]
		if !ok {
			minTWU = 0
			break
		}
		if st.TWU < minTWU {
			minTWU = st.TWU
		}
	}
	if minTWU == int64(math.MaxInt64) {
		minTWU = 0
	}

	slackBound := int64(math.Floor(e.cfg.UpperBoundSlack * e.stats.AvgTotalUtility * float64(extended.Len())))
	ub := minTWU
	if slackBound < ub {
		ub = slackBound
	}

	e.boundsCache.put(key, ub)
	e.decisionCache.put(key, ub >= e.cfg.MinUtility)
	return ub
}
