package db

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/clinic/dashboard/internal/platform/query"
)

// queryable is the subset of *pgxpool.Pool (and pgx.Tx) PGStore needs.
type queryable interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PGStore runs selects through pgx.
type PGStore struct {
	conn queryable
}

func NewPGStore(conn queryable) *PGStore {
	return &PGStore{conn: conn}
}

func (s *PGStore) Select(ctx context.Context, q query.Select) ([]query.Row, error) {
	sql, args, err := query.Compile(q, query.Postgres)
	if err != nil {
		return nil, err
	}

	rows, err := s.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, query.Unavailable(err)
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, query.Unavailable(err)
	}

	out := make([]query.Row, len(maps))
	for i, m := range maps {
		out[i] = query.Row(m)
	}
	return out, nil
}
