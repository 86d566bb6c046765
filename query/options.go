package query

import "github.com/forbearing/quickdb/qvalue"

// SortDirection orders a Sort entry.
type SortDirection string

const (
	Asc  SortDirection = "asc"
	Desc SortDirection = "desc"
)

// Sort names one field to order results by.
type Sort struct {
	Field string
	Dir   SortDirection
}

// Pagination bounds a result set by offset and count.
type Pagination struct {
	Skip  int
	Limit int
}

// Options carries the read-path knobs: conditions are applied before
// fetch, Sort/Pagination/Fields shape what's returned.
type Options struct {
	Conditions []QueryCondition
	Sort       []Sort
	Pagination *Pagination
	Fields     []string
}

// Groups lowers Conditions to the canonical condition-group form.
func (o Options) Groups() QueryConditionGroup {
	return FromConditions(o.Conditions)
}

// UpdateOperator names an update-operation transform.
type UpdateOperator string

const (
	UpdateSet             UpdateOperator = "set"
	UpdateIncrement       UpdateOperator = "increment"
	UpdateDecrement       UpdateOperator = "decrement"
	UpdateMultiply        UpdateOperator = "multiply"
	UpdateDivide          UpdateOperator = "divide"
	UpdatePercentIncrease UpdateOperator = "percent_increase"
	UpdatePercentDecrease UpdateOperator = "percent_decrease"
)

// UpdateOperation is one field transform applied by update_with_operations.
type UpdateOperation struct {
	Field    string
	Operator UpdateOperator
	Value    qvalue.Value
}
