package sqlgen

import (
	"github.com/forbearing/quickdb/query"
	"github.com/forbearing/quickdb/quickdberr"
	"github.com/forbearing/quickdb/qvalue"
)

// DropNulls returns a copy of data with every qvalue.KindNull entry
// removed, the shared "NULL in writes" rule every SQL adapter's
// Create/Update path applies before building its column/param lists. An
// all-null payload has nothing left to write and is a hard error.
func DropNulls(data map[string]qvalue.Value) (map[string]qvalue.Value, error) {
	out := make(map[string]qvalue.Value, len(data))
	for k, v := range data {
		if v.Kind() == qvalue.KindNull {
			continue
		}
		out[k] = v
	}
	if len(out) == 0 {
		return nil, quickdberr.Query(nil, "nothing to write")
	}
	return out, nil
}

// DropNullOps is DropNulls' counterpart for update_with_operations: it
// drops any operation whose value is null and hard-errors if none remain.
func DropNullOps(ops []query.UpdateOperation) ([]query.UpdateOperation, error) {
	out := make([]query.UpdateOperation, 0, len(ops))
	for _, op := range ops {
		if op.Value.Kind() == qvalue.KindNull {
			continue
		}
		out = append(out, op)
	}
	if len(out) == 0 {
		return nil, quickdberr.Query(nil, "nothing to write")
	}
	return out, nil
}
