package query

import (
	"fmt"
	"strings"
)

// Dialect selects the placeholder style of compiled SQL.
type Dialect int

const (
	Postgres Dialect = iota
	SQLite
)

func (d Dialect) placeholder(n int) string {
	if d == Postgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// Compile renders q as parameterized SQL. Values are never interpolated
// into the statement text.
func Compile(q Select, d Dialect) (string, []any, error) {
	if err := q.Validate(); err != nil {
		return "", nil, err
	}

	var (
		b    strings.Builder
		args []any
	)
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(q.Columns, ", "))
	b.WriteString(" FROM ")
	b.WriteString(q.Table)

	if len(q.Filters) > 0 {
		clauses := make([]string, 0, len(q.Filters))
		for _, f := range q.Filters {
			clause, fargs := compileFilter(f, d, len(args)+1)
			clauses = append(clauses, clause)
			args = append(args, fargs...)
		}
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(clauses, " AND "))
	}

	if len(q.OrderBy) > 0 {
		terms := make([]string, len(q.OrderBy))
		for i, o := range q.OrderBy {
			dir := "ASC"
			if o.Desc {
				dir = "DESC"
			}
			terms[i] = o.Column + " " + dir
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(terms, ", "))
	}

	if q.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", q.Limit)
	}

	return b.String(), args, nil
}

func compileFilter(f Filter, d Dialect, argIdx int) (string, []any) {
	switch f.Op {
	case OpEq:
		return fmt.Sprintf("%s = %s", f.Column, d.placeholder(argIdx)), []any{f.Value}
	case OpIn:
		if len(f.Values) == 0 {
			return "1 = 0", nil
		}
		ph := make([]string, len(f.Values))
		for i := range f.Values {
			ph[i] = d.placeholder(argIdx + i)
		}
		return fmt.Sprintf("%s IN (%s)", f.Column, strings.Join(ph, ", ")), f.Values
	default:
		return f.Column + " IS NULL", nil
	}
}
