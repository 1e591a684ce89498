package mining

import (
	"sort"

	"github.com/rawblock/hui-federated/internal/hui"
)

// nodeIndex is a stable arena index into Tree.nodes. Index 0 is always the
// sentinel root. Using indices instead of raw pointers means a PathProjection
// can be validated cheaply (a generation check) instead of carrying
// live pointers across the mutation boundary described in spec §9.
type nodeIndex int

const rootIndex nodeIndex = 0

// upNode is a node in the prefix tree. children/nodeLink are stored as arena
// indices; parent is a back-index, never a pointer, so the arena can be
// copied or cleared without invalidating Go's garbage collector's view of
// the graph.
type upNode struct {
	item         hui.ItemName
	count        int64
	nodeUtility  int64
	parent       nodeIndex
	children     map[hui.ItemName]nodeIndex
	nodeLinkNext nodeIndex // next node in the header-table chain for this item, or -1
}

// Tree owns the arena of nodes, the per-item header-table chains, and the
// per-item TWU map used for insertion ordering and pruning.
type Tree struct {
	nodes      []upNode
	header     map[hui.ItemName][]nodeIndex
	itemTWU    map[hui.ItemName]int64
	minUtility int64
	generation int // bumped by Clear; projections capture it to detect staleness
}

// NewTree creates an empty tree whose insertion filter is minUtility.
func NewTree(minUtility int64) *Tree {
	t := &Tree{
		header:     make(map[hui.ItemName][]nodeIndex),
		itemTWU:    make(map[hui.ItemName]int64),
		minUtility: minUtility,
	}
	t.nodes = append(t.nodes, upNode{parent: -1, children: make(map[hui.ItemName]nodeIndex), nodeLinkNext: -1})
	return t
}

// SetItemTWU records an item's transaction-weighted utility, used both for
// insertion ordering and as the pruning bound in §4.E.
func (t *Tree) SetItemTWU(name hui.ItemName, twu int64) {
	t.itemTWU[name] = twu
}

// GetItemTWU returns the recorded TWU for name, or 0 if unknown.
func (t *Tree) GetItemTWU(name hui.ItemName) int64 {
	return t.itemTWU[name]
}

// GetPromisingItems returns every item whose TWU is at least minUtility, in
// unspecified order — callers that need ranking use GetItemsByTWU.
func (t *Tree) GetPromisingItems() []hui.ItemName {
	out := make([]hui.ItemName, 0, len(t.itemTWU))
	for name, twu := range t.itemTWU {
		if twu >= t.minUtility {
			out = append(out, name)
		}
	}
	return out
}

// GetItemsByTWU returns promising items sorted by descending TWU, ties
// broken by ascending item name (spec invariant #2).
func (t *Tree) GetItemsByTWU() []hui.ItemName {
	items := t.GetPromisingItems()
	sort.Slice(items, func(i, j int) bool {
		ti, tj := t.itemTWU[items[i]], t.itemTWU[items[j]]
		if ti != tj {
			return ti > tj
		}
		return items[i].Less(items[j])
	})
	return items
}

// Size returns the number of nodes in the arena, excluding the sentinel root.
func (t *Tree) Size() int { return len(t.nodes) - 1 }

// Depth returns the length of the longest root-to-leaf path.
func (t *Tree) Depth() int {
	var walk func(nodeIndex) int
	walk = func(idx nodeIndex) int {
		n := &t.nodes[idx]
		best := 0
		for _, child := range n.children {
			if d := walk(child); d > best {
				best = d
			}
		}
		return best + 1
	}
	if len(t.nodes[rootIndex].children) == 0 {
		return 0
	}
	// walk counts the sentinel root as a level; Depth, like Size, excludes it.
	return walk(rootIndex) - 1
}

// Clear resets the tree to empty, bumping the generation counter so any
// outstanding PathProjection referencing the old arena fails validation.
func (t *Tree) Clear() {
	t.nodes = t.nodes[:1]
	t.nodes[0] = upNode{parent: -1, children: make(map[hui.ItemName]nodeIndex), nodeLinkNext: -1}
	t.header = make(map[hui.ItemName][]nodeIndex)
	t.itemTWU = make(map[hui.ItemName]int64)
	t.generation++
}

// txItem is one (name, utility) pair within a transaction being inserted.
type txItem struct {
	Name    hui.ItemName
	Utility int64
}

// AddTransaction inserts one transaction's promising items into the tree.
// Items are sorted by descending TWU (ties ascending by name — spec §4.B
// step 1), items below minUtility are dropped (step 2), and the prefix is
// walked/extended node by node (step 3).
func (t *Tree) AddTransaction(items []txItem) {
	filtered := make([]txItem, 0, len(items))
	for _, it := range items {
		if t.itemTWU[it.Name] >= t.minUtility {
			filtered = append(filtered, it)
		}
	}
	sort.Slice(filtered, func(i, j int) bool {
		ti, tj := t.itemTWU[filtered[i].Name], t.itemTWU[filtered[j].Name]
		if ti != tj {
			return ti > tj
		}
		return filtered[i].Name.Less(filtered[j].Name)
	})

	cur := rootIndex
	for _, it := range filtered {
		node := &t.nodes[cur]
		if child, ok := node.children[it.Name]; ok {
			t.nodes[child].count++
			t.nodes[child].nodeUtility += it.Utility
			cur = child
			continue
		}
		newIdx := nodeIndex(len(t.nodes))
		t.nodes = append(t.nodes, upNode{
			item:        it.Name,
			count:       1,
			nodeUtility: it.Utility,
			parent:      cur,
			children:    make(map[hui.ItemName]nodeIndex),
			nodeLinkNext: -1,
		})
		// re-fetch node pointer: append may have reallocated the backing array
		t.nodes[cur].children[it.Name] = newIdx
		t.appendHeaderChain(it.Name, newIdx)
		cur = newIdx
	}
}

func (t *Tree) appendHeaderChain(name hui.ItemName, idx nodeIndex) {
	chain := t.header[name]
	if len(chain) > 0 {
		t.nodes[chain[len(chain)-1]].nodeLinkNext = idx
	}
	t.header[name] = append(chain, idx)
}

// GetHeaderNodes returns the arena indices of every node carrying name, in
// the stable order they were first created (following the node-link chain).
func (t *Tree) GetHeaderNodes(name hui.ItemName) []nodeIndex {
	return t.header[name]
}
