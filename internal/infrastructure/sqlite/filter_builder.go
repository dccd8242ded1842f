package sqlite

import (
	"fmt"
	"strings"
)

type Operator string

const (
	OpEq Operator = "eq"
	OpNe Operator = "ne"
	OpIn Operator = "in"
)

// Filter is a single condition on a column. Field names come from code,
// never from user input.
type Filter struct {
	Field    string
	Operator Operator
	Value    interface{}
}

// BuildFilterClause builds a SQL condition for f
func BuildFilterClause(f Filter) (string, []interface{}) {
	switch f.Operator {
	case OpEq:
		return fmt.Sprintf("%s = ?", f.Field), []interface{}{f.Value}
	case OpNe:
		return fmt.Sprintf("%s != ?", f.Field), []interface{}{f.Value}
	case OpIn:
		if values, ok := f.Value.([]string); ok && len(values) > 0 {
			placeholders := make([]string, len(values))
			args := make([]interface{}, len(values))
			for i, v := range values {
				placeholders[i] = "?"
				args[i] = v
			}
			return fmt.Sprintf("%s IN (%s)", f.Field, strings.Join(placeholders, ", ")), args
		}
		return "", nil
	default:
		return "", nil
	}
}

// ApplyFilters appends filters to a query that already has a WHERE clause
func ApplyFilters(query string, args []interface{}, filters []Filter) (string, []interface{}) {
	for _, f := range filters {
		clause, filterArgs := BuildFilterClause(f)
		if clause != "" {
			query += " AND " + clause
			args = append(args, filterArgs...)
		}
	}
	return query, args
}

// ApplyLimit limits the result set when limit is positive
func ApplyLimit(query string, args []interface{}, limit int) (string, []interface{}) {
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return query, args
}
