package query_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forbearing/quickdb/query"
	"github.com/forbearing/quickdb/qvalue"
)

func TestFromConditionsLowersToSingleAndGroup(t *testing.T) {
	conds := []query.QueryCondition{
		{Field: "name", Operator: query.OpEq, Value: qvalue.String("gizmo")},
		{Field: "count", Operator: query.OpGt, Value: qvalue.I64(1)},
	}
	group := query.FromConditions(conds)

	assert.False(t, group.IsLeaf())
	require.Len(t, group.Children, 2)
	assert.Equal(t, query.GroupAnd, group.GroupOp)
	assert.True(t, group.Children[0].IsLeaf())
	assert.Equal(t, "name", group.Children[0].Condition.Field)
}

func TestFromConditionsEmptyIsEmptyGroup(t *testing.T) {
	group := query.FromConditions(nil)
	assert.True(t, group.IsEmpty())
	assert.Empty(t, group.Children)
}

func TestLeafIsLeafNotEmpty(t *testing.T) {
	g := query.Leaf(query.QueryCondition{Field: "id", Operator: query.OpEq, Value: qvalue.String("x")})
	assert.True(t, g.IsLeaf())
	assert.False(t, g.IsEmpty())
}

func TestZeroGroupIsEmpty(t *testing.T) {
	var g query.QueryConditionGroup
	assert.True(t, g.IsEmpty())
	assert.False(t, g.IsLeaf())
}

func TestAndOrNestGroups(t *testing.T) {
	g := query.Or(
		query.Leaf(query.QueryCondition{Field: "a", Operator: query.OpEq, Value: qvalue.I64(1)}),
		query.And(
			query.Leaf(query.QueryCondition{Field: "b", Operator: query.OpEq, Value: qvalue.I64(2)}),
			query.Leaf(query.QueryCondition{Field: "c", Operator: query.OpEq, Value: qvalue.I64(3)}),
		),
	)
	assert.Equal(t, query.GroupOr, g.GroupOp)
	require.Len(t, g.Children, 2)
	assert.Equal(t, query.GroupAnd, g.Children[1].GroupOp)
}

func TestOptionsGroupsMatchesFromConditions(t *testing.T) {
	conds := []query.QueryCondition{{Field: "name", Operator: query.OpEq, Value: qvalue.String("gizmo")}}
	opts := query.Options{Conditions: conds}
	assert.Equal(t, query.FromConditions(conds), opts.Groups())
}
