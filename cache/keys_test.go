package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/forbearing/quickdb/query"
	"github.com/forbearing/quickdb/qvalue"
)

func TestConditionSignatureDeterministic(t *testing.T) {
	conds := []query.QueryCondition{
		{Field: "age", Operator: query.OpGt, Value: qvalue.I64(30)},
		{Field: "name", Operator: query.OpEq, Value: qvalue.String("Bob")},
	}
	sig1 := ConditionSignature(conds)
	sig2 := ConditionSignature(conds)
	assert.Equal(t, sig1, sig2)
	assert.Equal(t, "agegt30_nameeqBob", sig1)
}

func TestGroupSignatureDistinguishesAndOr(t *testing.T) {
	leafAge := query.Leaf(query.QueryCondition{Field: "age", Operator: query.OpGt, Value: qvalue.I64(30)})
	leafName := query.Leaf(query.QueryCondition{Field: "name", Operator: query.OpEq, Value: qvalue.String("Bob")})

	orSig := GroupSignature(query.Or(leafAge, leafName))
	andSig := GroupSignature(query.And(leafAge, leafName))
	assert.NotEqual(t, orSig, andSig)
}

func TestOptionSignaturePaginationSortFields(t *testing.T) {
	opts := query.Options{
		Pagination: &query.Pagination{Skip: 10, Limit: 20},
		Sort:       []query.Sort{{Field: "name", Dir: query.Asc}},
		Fields:     []string{"b", "a"},
	}
	sig := OptionSignature(opts)
	assert.Contains(t, sig, "p10_20")
	assert.Contains(t, sig, "namea")
	// Fields are sorted, so order of input doesn't affect the signature.
	assert.Contains(t, sig, "a|b")
}

func TestRecordAndQueryKeyLayout(t *testing.T) {
	assert.Equal(t, "rat_quickdb:users:record:1", RecordKey("users", "1"))
	assert.Equal(t, "rat_quickdb:users:query:sig1:sig2:v1", QueryKey("users", "sig1", "sig2", "v1"))
}

func TestMatchPattern(t *testing.T) {
	assert.True(t, MatchPattern("rat_quickdb:users:*", "rat_quickdb:users:record:1"))
	assert.False(t, MatchPattern("rat_quickdb:products:*", "rat_quickdb:users:record:1"))
}
