// Package query defines the narrow contract between the dashboard's data
// access layer and whatever relational datastore backs it: a single-table
// select with equality, set-membership and null predicates, an explicit
// ordering and an optional limit.
//
// Backends must return rows in the requested order. Malformed queries are
// rejected before any I/O with ErrMalformed; connectivity problems are
// reported as error values wrapping ErrUnavailable.
package query

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

var (
	ErrMalformed   = errors.New("malformed query")
	ErrUnavailable = errors.New("datastore unavailable")
)

// Unavailable wraps a driver error so callers can match ErrUnavailable.
func Unavailable(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}

var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Op is a filter operator.
type Op string

const (
	OpEq     Op = "eq"
	OpIn     Op = "in"
	OpIsNull Op = "is_null"
)

// Filter is a single predicate. Filters in a Select are joined with AND.
type Filter struct {
	Column string
	Op     Op
	Value  any
	Values []any
}

func Eq(column string, value any) Filter {
	return Filter{Column: column, Op: OpEq, Value: value}
}

func In[T any](column string, values ...T) Filter {
	vs := make([]any, len(values))
	for i, v := range values {
		vs[i] = v
	}
	return Filter{Column: column, Op: OpIn, Values: vs}
}

func IsNull(column string) Filter {
	return Filter{Column: column, Op: OpIsNull}
}

// Order is one ORDER BY term.
type Order struct {
	Column string
	Desc   bool
}

func Asc(column string) Order  { return Order{Column: column} }
func Desc(column string) Order { return Order{Column: column, Desc: true} }

// Select describes a read against one table. Limit 0 means no limit.
type Select struct {
	Table   string
	Columns []string
	Filters []Filter
	OrderBy []Order
	Limit   int
}

// Validate reports construction mistakes. The returned error wraps
// ErrMalformed.
func (s Select) Validate() error {
	if !identPattern.MatchString(s.Table) {
		return fmt.Errorf("%w: invalid table %q", ErrMalformed, s.Table)
	}
	if len(s.Columns) == 0 {
		return fmt.Errorf("%w: no columns selected from %s", ErrMalformed, s.Table)
	}
	for _, c := range s.Columns {
		if !identPattern.MatchString(c) {
			return fmt.Errorf("%w: invalid column %q", ErrMalformed, c)
		}
	}
	for _, f := range s.Filters {
		if !identPattern.MatchString(f.Column) {
			return fmt.Errorf("%w: invalid filter column %q", ErrMalformed, f.Column)
		}
		switch f.Op {
		case OpEq:
			if f.Value == nil {
				return fmt.Errorf("%w: nil value for %s, use IsNull", ErrMalformed, f.Column)
			}
		case OpIn, OpIsNull:
		default:
			return fmt.Errorf("%w: unknown operator %q", ErrMalformed, f.Op)
		}
	}
	for _, o := range s.OrderBy {
		if !identPattern.MatchString(o.Column) {
			return fmt.Errorf("%w: invalid order column %q", ErrMalformed, o.Column)
		}
	}
	if s.Limit < 0 {
		return fmt.Errorf("%w: negative limit %d", ErrMalformed, s.Limit)
	}
	return nil
}

// Datastore executes selects.
type Datastore interface {
	Select(ctx context.Context, q Select) ([]Row, error)
}
