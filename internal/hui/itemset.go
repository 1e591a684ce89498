package hui

import (
	"fmt"
	"strings"
)

// Itemset is an ordered sequence of item names kept in canonical sorted
// order, together with an aggregate utility. Two itemsets compare equal iff
// their sequences and utilities match.
type Itemset struct {
	Items   []ItemName
	Utility int64
}

// NewItemset builds a canonical itemset from names, rejecting duplicates and
// negative utility. The input slice is copied and sorted; it is never
// retained by reference.
func NewItemset(names []ItemName, utility int64) (Itemset, error) {
	if utility < 0 {
		return Itemset{}, fmt.Errorf("hui: itemset has negative utility %d", utility)
	}
	sorted := SortNames(names)
	for i := 1; i < len(sorted); i++ {
		if sorted[i-1].Equal(sorted[i]) {
			return Itemset{}, fmt.Errorf("hui: itemset contains duplicate item %s", sorted[i])
		}
	}
	return Itemset{Items: sorted, Utility: utility}, nil
}

// Extend returns a new itemset formed by appending name (utility unset —
// callers assign utility once it is known, e.g. after projection or exact
// verification). Extend never mutates the receiver.
func (s Itemset) Extend(name ItemName) Itemset {
	items := make([]ItemName, len(s.Items), len(s.Items)+1)
	copy(items, s.Items)
	items = append(items, name)
	out, _ := NewItemset(items, 0) // names are unique by construction of the caller's loop
	return out
}

// Contains reports whether name is present in the itemset.
func (s Itemset) Contains(name ItemName) bool {
	for _, n := range s.Items {
		if n.Equal(name) {
			return true
		}
	}
	return false
}

// Len returns the number of items.
func (s Itemset) Len() int { return len(s.Items) }

// Key returns a stable string key suitable for map lookups and cache keys;
// it encodes the canonical sequence only, not the utility, so two itemsets
// over the same items always collide regardless of current utility.
func (s Itemset) Key() string {
	var b strings.Builder
	for i, n := range s.Items {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(n.String())
	}
	return b.String()
}

// Equal reports whether two itemsets have the same sequence and utility.
func (s Itemset) Equal(other Itemset) bool {
	if s.Utility != other.Utility || len(s.Items) != len(other.Items) {
		return false
	}
	for i := range s.Items {
		if !s.Items[i].Equal(other.Items[i]) {
			return false
		}
	}
	return true
}

// Record is the canonical HUI wire shape that crosses process boundaries:
// local miner → verifier → federated client → server → aggregator → operator.
type Record struct {
	Items   []string `json:"items"`
	Utility int64    `json:"utility"`
}

// ToRecord renders an itemset using its items' string form, for JSON
// transport. Integer-keyed names render as decimal strings; round-tripping
// back into ItemName is the receiver's responsibility since the wire format
// only ever needs to display and re-aggregate by string key.
func (s Itemset) ToRecord() Record {
	items := make([]string, len(s.Items))
	for i, n := range s.Items {
		items[i] = n.String()
	}
	return Record{Items: items, Utility: s.Utility}
}
