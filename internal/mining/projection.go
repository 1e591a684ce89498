package mining

import "github.com/rawblock/hui-federated/internal/hui"

// pathRef is one retained ancestor chain within a PathProjection: the
// ancestor nodes walked from a header-table node's parent up to (but
// excluding) the root, plus the summed node utility along that chain.
// Indices are non-owning references into the tree's arena (§3); they are
// only ever dereferenced while the owning Tree is unchanged (validated via
// the generation counter captured at build time).
type pathRef struct {
	nodes   []nodeIndex
	utility int64
}

// PathProjection is the pseudo-projection described in §4.E: a transient
// value carrying the retained paths for one item under the current prefix,
// plus aggregate support and total utility.
type PathProjection struct {
	paths        []pathRef
	support      int64
	totalUtility int64
	generation   int
}

// buildTopLevelProjection walks every header-table node of item, retaining
// paths whose summed ancestor utility is at least minUtil (§4.E "Path
// projection").
func buildTopLevelProjection(tree *Tree, item hui.ItemName, minUtil int64, cfg Config) PathProjection {
	proj := PathProjection{generation: tree.generation}
	nodeBudget := cfg.MaxNodesPerProjection

	for _, headerIdx := range tree.GetHeaderNodes(item) {
		cur := tree.nodes[headerIdx].parent
		var path []nodeIndex
		var utility int64
		for cur != rootIndex && cur >= 0 {
			path = append(path, cur)
			utility += tree.nodes[cur].nodeUtility
			if cfg.MaxPathLengthPerProjection > 0 && len(path) >= cfg.MaxPathLengthPerProjection {
				break
			}
			cur = tree.nodes[cur].parent
		}
		if utility < minUtil {
			continue
		}
		if nodeBudget > 0 && len(path) > nodeBudget {
			continue
		}
		proj.paths = append(proj.paths, pathRef{nodes: path, utility: utility})
		proj.support++
		proj.totalUtility += utility
		if nodeBudget > 0 {
			nodeBudget -= len(path)
			if nodeBudget <= 0 {
				break
			}
		}
	}
	return proj
}

// buildSubProjection derives the conditional projection for item from a
// parent projection, per §4.E step 4: keep paths carrying item at any
// retained position (not just the nearest ancestor), drop that node and
// everything nearer than it, and re-filter by minUtil. A candidate surfaced
// by candidatesFromProjection's tally can be any node in a retained path,
// not only p.nodes[0], since that tally ranges over every node of every
// path — matching only the head here would silently stop recursion on
// valid 3+-item branches.
func buildSubProjection(tree *Tree, parent PathProjection, item hui.ItemName, minUtil int64) PathProjection {
	proj := PathProjection{generation: parent.generation}
	for _, p := range parent.paths {
		matchIdx := -1
		for i, idx := range p.nodes {
			if tree.nodes[idx].item.Equal(item) {
				matchIdx = i
				break
			}
		}
		if matchIdx == -1 {
			continue
		}

		var consumed int64
		for _, idx := range p.nodes[:matchIdx+1] {
			consumed += tree.nodes[idx].nodeUtility
		}
		remaining := p.nodes[matchIdx+1:]
		utility := p.utility - consumed
		if utility < minUtil {
			continue
		}
		proj.paths = append(proj.paths, pathRef{nodes: remaining, utility: utility})
		proj.support++
		proj.totalUtility += utility
	}
	return proj
}

// validate reports whether the projection is still usable against tree —
// i.e. the tree has not been Clear()'d since the projection was built
// (§3 PathProjection invariant).
func (p PathProjection) validate(tree *Tree) bool {
	return p.generation == tree.generation
}

// candidate is one item surfaced by tallying a projection, carrying the
// bound used both for the min-utility skip check and for ranking.
type candidate struct {
	Name  hui.ItemName
	Bound int64
}
