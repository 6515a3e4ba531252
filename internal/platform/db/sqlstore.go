package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/clinic/dashboard/internal/platform/query"
)

// SQLStore runs selects through database/sql. It is used with the
// sqlite3 driver for local development.
type SQLStore struct {
	db      *sql.DB
	dialect query.Dialect
}

func NewSQLStore(db *sql.DB, dialect query.Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

func (s *SQLStore) Select(ctx context.Context, q query.Select) ([]query.Row, error) {
	stmt, args, err := query.Compile(q, s.dialect)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, query.Unavailable(err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, query.Unavailable(err)
	}

	var out []query.Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, query.Unavailable(fmt.Errorf("scan %s row: %w", q.Table, err))
		}
		row := make(query.Row, len(cols))
		for i, c := range cols {
			row[c] = vals[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, query.Unavailable(err)
	}
	return out, nil
}
