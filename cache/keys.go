package cache

import (
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/forbearing/quickdb/qvalue"
	"github.com/forbearing/quickdb/query"
)

// keyPrefix is shared by every quickdb cache key, matching the layout
// given in the external-interfaces section: rat_quickdb:{table}:...
const keyPrefix = "rat_quickdb"

// RecordKey builds the cache key for a single record lookup by id.
func RecordKey(table, id string) string {
	return fmt.Sprintf("%s:%s:record:%s", keyPrefix, table, id)
}

// QueryKey builds the cache key for a conditions+options read, combining
// the condition signature, option signature, and cache-version string so
// a version bump invalidates every previously cached query without a
// table scan.
func QueryKey(table, condSig, optSig, version string) string {
	return fmt.Sprintf("%s:%s:query:%s:%s:%s", keyPrefix, table, condSig, optSig, version)
}

// GroupsKey builds the cache key for a find_with_groups read.
func GroupsKey(table, groupSig, optSig string) string {
	return fmt.Sprintf("%s:%s:groups:%s:%s", keyPrefix, table, groupSig, optSig)
}

// TablePrefix returns the key prefix shared by every entry under table,
// used for whole-table invalidation.
func TablePrefix(table string) string {
	return fmt.Sprintf("%s:%s:", keyPrefix, table)
}

// MatchPattern reports whether key matches a glob pattern with path.Match
// semantics: `*` matches any run of characters other than '/', `?` exactly
// one character other than '/', and `[...]` classes and backslash escapes
// are honoured. A malformed pattern matches nothing.
func MatchPattern(pattern, key string) bool {
	matched, err := path.Match(pattern, key)
	if err != nil {
		return false
	}
	return matched
}

// ConditionSignature renders a flat condition list into the stable
// "{field}{op}{value}" joined-by-"_" encoding the spec requires: no map
// iteration, fields appear in their given order so the same conditions
// always produce the same signature.
func ConditionSignature(conditions []query.QueryCondition) string {
	parts := make([]string, len(conditions))
	for i, c := range conditions {
		parts[i] = fmt.Sprintf("%s%s%s", c.Field, c.Operator, valueSignature(c.Value))
	}
	return strings.Join(parts, "_")
}

// GroupSignature renders a condition-group tree deterministically: leaves
// use ConditionSignature's single-condition form, groups join their
// children's signatures with the group operator, recursively.
func GroupSignature(group query.QueryConditionGroup) string {
	if group.IsEmpty() {
		return "empty"
	}
	if group.IsLeaf() {
		return ConditionSignature([]query.QueryCondition{*group.Condition})
	}
	parts := make([]string, len(group.Children))
	for i, child := range group.Children {
		parts[i] = GroupSignature(child)
	}
	return fmt.Sprintf("(%s:%s)", group.GroupOp, strings.Join(parts, ","))
}

// OptionSignature renders pagination, sort, and field projection in the
// "pS_L" / "sfnd|..." / "f..." encodings the spec names.
func OptionSignature(opts query.Options) string {
	var b strings.Builder
	if opts.Pagination != nil {
		fmt.Fprintf(&b, "p%d_%d", opts.Pagination.Skip, opts.Pagination.Limit)
	}
	if len(opts.Sort) > 0 {
		b.WriteString(";s")
		for i, s := range opts.Sort {
			if i > 0 {
				b.WriteString("|")
			}
			dir := "a"
			if s.Dir == query.Desc {
				dir = "d"
			}
			fmt.Fprintf(&b, "%s%s", s.Field, dir)
		}
	}
	if len(opts.Fields) > 0 {
		fields := append([]string(nil), opts.Fields...)
		sort.Strings(fields)
		b.WriteString(";f")
		b.WriteString(strings.Join(fields, "|"))
	}
	if b.Len() == 0 {
		return "noopts"
	}
	return b.String()
}

// valueSignature renders a single Value into a stable string, covering
// every scalar kind a condition can carry.
func valueSignature(v qvalue.Value) string {
	switch v.Kind() {
	case qvalue.KindNull:
		return "null"
	case qvalue.KindBool:
		b, _ := v.AsBool()
		return strconv.FormatBool(b)
	case qvalue.KindI64:
		i, _ := v.AsI64()
		return strconv.FormatInt(i, 10)
	case qvalue.KindU64:
		u, _ := v.AsU64()
		return strconv.FormatUint(u, 10)
	case qvalue.KindF64:
		f, _ := v.AsF64()
		return strconv.FormatFloat(f, 'g', -1, 64)
	case qvalue.KindString:
		s, _ := v.AsString()
		return s
	case qvalue.KindUUID:
		u, _ := v.AsUUID()
		return u.String()
	case qvalue.KindDateTimeUTC, qvalue.KindDateTimeOffset:
		t, _ := v.AsTime()
		return t.UTC().Format("20060102T150405.000000000Z")
	case qvalue.KindSeq:
		items, _ := v.AsSeq()
		parts := make([]string, len(items))
		for i, item := range items {
			parts[i] = valueSignature(item)
		}
		return "[" + strings.Join(parts, ",") + "]"
	default:
		return fmt.Sprintf("%v", v)
	}
}
