package db

import (
	"context"

	"gorm.io/gorm"

	"github.com/clinic/dashboard/internal/platform/query"
)

// GormStore runs selects through gorm's query builder.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Select(ctx context.Context, q query.Select) ([]query.Row, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	tx := s.db.WithContext(ctx).Table(q.Table).Select(q.Columns)
	for _, f := range q.Filters {
		switch f.Op {
		case query.OpEq:
			tx = tx.Where(f.Column+" = ?", f.Value)
		case query.OpIn:
			if len(f.Values) == 0 {
				tx = tx.Where("1 = 0")
				continue
			}
			tx = tx.Where(f.Column+" IN ?", f.Values)
		case query.OpIsNull:
			tx = tx.Where(f.Column + " IS NULL")
		}
	}
	for _, o := range q.OrderBy {
		if o.Desc {
			tx = tx.Order(o.Column + " DESC")
		} else {
			tx = tx.Order(o.Column + " ASC")
		}
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var maps []map[string]any
	if err := tx.Find(&maps).Error; err != nil {
		return nil, query.Unavailable(err)
	}

	out := make([]query.Row, len(maps))
	for i, m := range maps {
		out[i] = query.Row(m)
	}
	return out, nil
}
