package source

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/rawblock/hui-federated/internal/hui"
)

// TextSource adapts the reference text dataset format documented in the
// spec's external-interfaces section: "a b c … : T", items separated by
// whitespace, a single ':' separator, then the integer transaction utility.
// Lines beginning '#', '%', or '@' are comments. This is a minimal adapter
// sufficient for the standalone miner entrypoint and tests; a production
// CSV/streaming adapter is an external collaborator's concern.
type TextSource struct {
	Open func() (io.ReadCloser, error)
}

// Transactions implements TransactionSource. Malformed lines are skipped,
// never aborting the pass (§4.C/§7 MalformedInput).
func (t TextSource) Transactions(yield func(Transaction) bool) error {
	r, err := t.Open()
	if err != nil {
		return err
	}
	defer r.Close()

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "%") || strings.HasPrefix(line, "@") {
			continue
		}
		tx, ok := parseLine(line)
		if !ok {
			continue
		}
		if !yield(tx) {
			break
		}
	}
	return scanner.Err()
}

func parseLine(line string) (Transaction, bool) {
	parts := strings.SplitN(line, ":", 2)
	if len(parts) != 2 {
		return Transaction{}, false
	}
	fields := strings.Fields(parts[0])
	if len(fields) == 0 {
		return Transaction{}, false
	}
	totalStr := strings.TrimSpace(parts[1])
	total, err := strconv.ParseInt(totalStr, 10, 64)
	if err != nil {
		return Transaction{}, false
	}

	names := make([]hui.ItemName, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			names = append(names, hui.StringName(f))
			continue
		}
		names = append(names, hui.IntName(v))
	}
	return Transaction{Items: names, TransactionUtil: total}, true
}
