// Package query defines the backend-neutral condition tree, query options,
// and update operations that adapters compile into SQL or BSON.
package query

import "github.com/forbearing/quickdb/qvalue"

// Operator is a comparison/match operator usable in a QueryCondition.
type Operator string

const (
	OpEq           Operator = "eq"
	OpNe           Operator = "ne"
	OpGt           Operator = "gt"
	OpGte          Operator = "gte"
	OpLt           Operator = "lt"
	OpLte          Operator = "lte"
	OpContains     Operator = "contains"
	OpJsonContains Operator = "json_contains"
	OpStartsWith   Operator = "starts_with"
	OpEndsWith     Operator = "ends_with"
	OpIn           Operator = "in"
	OpNotIn        Operator = "not_in"
	OpRegex        Operator = "regex"
	OpExists       Operator = "exists"
	OpIsNull       Operator = "is_null"
	OpIsNotNull    Operator = "is_not_null"
)

// GroupOperator joins child conditions/groups of a QueryConditionGroup.
type GroupOperator string

const (
	GroupAnd GroupOperator = "and"
	GroupOr  GroupOperator = "or"
)

// QueryCondition is a single field/operator/value predicate. Value is
// unused (and should be the zero Value) for OpExists/OpIsNull/OpIsNotNull.
type QueryCondition struct {
	Field    string
	Operator Operator
	Value    qvalue.Value
}

// QueryConditionGroup is a recursive AND/OR tree. A node with a non-nil
// Condition is a leaf; otherwise GroupOp joins Children. A flat condition
// list is represented as a single GroupAnd node whose children are all
// leaves (the "implicit AND" the spec describes).
type QueryConditionGroup struct {
	Condition *QueryCondition
	GroupOp   GroupOperator
	Children  []QueryConditionGroup
}

// Leaf builds a single-condition group.
func Leaf(c QueryCondition) QueryConditionGroup {
	return QueryConditionGroup{Condition: &c}
}

// And builds an AND group over children.
func And(children ...QueryConditionGroup) QueryConditionGroup {
	return QueryConditionGroup{GroupOp: GroupAnd, Children: children}
}

// Or builds an OR group over children.
func Or(children ...QueryConditionGroup) QueryConditionGroup {
	return QueryConditionGroup{GroupOp: GroupOr, Children: children}
}

// FromConditions lowers a flat condition list to its canonical
// single-AND-group form, the transform `find` applies before delegating
// to `find_with_groups`.
func FromConditions(conditions []QueryCondition) QueryConditionGroup {
	children := make([]QueryConditionGroup, len(conditions))
	for i, c := range conditions {
		children[i] = Leaf(c)
	}
	return And(children...)
}

// IsLeaf reports whether g is a single condition rather than a group.
func (g QueryConditionGroup) IsLeaf() bool { return g.Condition != nil }

// IsEmpty reports whether g carries no condition at all (an empty group).
func (g QueryConditionGroup) IsEmpty() bool {
	return g.Condition == nil && len(g.Children) == 0
}
