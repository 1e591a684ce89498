// Package source defines the re-readable transaction feed consumed by the
// mining pipeline. Parsing concrete datasets (CSV, space-delimited files,
// sample generators) is an external collaborator's concern; this package
// only specifies the contract every adapter must satisfy plus one minimal
// in-repo adapter for the documented text format, used by tests and the
// standalone miner entrypoint.
package source

import "github.com/rawblock/hui-federated/internal/hui"

// Transaction is one row yielded by a TransactionSource: an ordered set of
// item names, the transaction's total utility, and — when the underlying
// dataset supplies it — the individual per-item utility contributions.
// PerItemUtility is nil when the source only has a transaction total; in
// that case the configured UtilityDistributionPolicy decides each item's
// share: an even split under EqualSplit, zero under PerItemUtilities.
type Transaction struct {
	Items           []hui.ItemName
	TransactionUtil int64
	PerItemUtility  map[hui.ItemName]int64
}

// TransactionSource is a re-readable iterable of transactions. Implementations
// are consumed multiple times: once for the statistics pass (§4.C), once for
// tree construction (§4.D), and once more for exact-utility verification
// (§4.F). Each call to Transactions must yield the same sequence; sources
// backed by a file re-open/re-seek, in-memory sources simply re-range.
type TransactionSource interface {
	// Transactions invokes yield once per transaction in order. yield
	// returning false stops iteration early (mirrors the stdlib iterator
	// convention); a malformed record is skipped by the adapter itself and
	// never reaches yield, per §4.C/§7's MalformedInput semantics.
	Transactions(yield func(Transaction) bool) error
}

// InMemorySource is the simplest TransactionSource: a fixed slice of
// transactions held in memory, as used by the federated client for its
// locally-held data and by unit tests.
type InMemorySource struct {
	Rows []Transaction
}

// Transactions implements TransactionSource.
func (s InMemorySource) Transactions(yield func(Transaction) bool) error {
	for _, row := range s.Rows {
		if !yield(row) {
			break
		}
	}
	return nil
}
