package query

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile_PostgresSelect(t *testing.T) {
	q := Select{
		Table:   "appointments",
		Columns: []string{"id", "patient_id", "date", "time", "status"},
		Filters: []Filter{In("patient_id", "p1", "p2")},
		OrderBy: []Order{Desc("date"), Desc("time")},
	}

	sql, args, err := Compile(q, Postgres)
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT id, patient_id, date, time, status FROM appointments WHERE patient_id IN ($1, $2) ORDER BY date DESC, time DESC",
		sql)
	assert.Equal(t, []any{"p1", "p2"}, args)
	assert.NotContains(t, sql, "p1")
}

func TestCompile_SQLitePlaceholders(t *testing.T) {
	q := Select{
		Table:   "patients",
		Columns: []string{"id", "name"},
		Filters: []Filter{Eq("id", "p1"), IsNull("deleted_at"), In("status", "Agendado")},
		Limit:   1,
	}

	sql, args, err := Compile(q, SQLite)
	require.NoError(t, err)

	assert.Equal(t, "SELECT id, name FROM patients WHERE id = ? AND deleted_at IS NULL AND status IN (?) LIMIT 1", sql)
	assert.Equal(t, []any{"p1", "Agendado"}, args)
}

func TestCompile_PostgresArgumentNumberingAcrossFilters(t *testing.T) {
	q := Select{
		Table:   "appointments",
		Columns: []string{"id"},
		Filters: []Filter{In("patient_id", "a", "b", "c"), Eq("status", "Confirmado")},
	}

	sql, args, err := Compile(q, Postgres)
	require.NoError(t, err)

	assert.Contains(t, sql, "patient_id IN ($1, $2, $3) AND status = $4")
	assert.Len(t, args, 4)
}

func TestCompile_EmptyInIsFalse(t *testing.T) {
	q := Select{
		Table:   "appointments",
		Columns: []string{"id"},
		Filters: []Filter{In[string]("patient_id")},
	}

	sql, args, err := Compile(q, Postgres)
	require.NoError(t, err)
	assert.Contains(t, sql, "WHERE 1 = 0")
	assert.Empty(t, args)
}

func TestValidate_Malformed(t *testing.T) {
	tests := []struct {
		name string
		q    Select
	}{
		{"empty table", Select{Columns: []string{"id"}}},
		{"injected table", Select{Table: "patients; drop table x", Columns: []string{"id"}}},
		{"no columns", Select{Table: "patients"}},
		{"star column", Select{Table: "patients", Columns: []string{"*"}}},
		{"bad filter column", Select{Table: "patients", Columns: []string{"id"}, Filters: []Filter{Eq("Id", "1")}}},
		{"nil eq", Select{Table: "patients", Columns: []string{"id"}, Filters: []Filter{Eq("id", nil)}}},
		{"unknown op", Select{Table: "patients", Columns: []string{"id"}, Filters: []Filter{{Column: "id", Op: "like"}}}},
		{"bad order column", Select{Table: "patients", Columns: []string{"id"}, OrderBy: []Order{Desc("created_at desc")}}},
		{"negative limit", Select{Table: "patients", Columns: []string{"id"}, Limit: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.q.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformed), "expected ErrMalformed, got %v", err)

			_, _, err = Compile(tt.q, Postgres)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestUnavailable(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := Unavailable(cause)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.NoError(t, Unavailable(nil))
}

func TestRow_String(t *testing.T) {
	id := uuid.MustParse("6f1c2f4e-8a43-4a4e-9a7b-0c1d2e3f4a5b")
	r := Row{
		"name":       "Maria",
		"bytes":      []byte("abc"),
		"uuid_raw":   [16]byte(id),
		"uuid":       id,
		"date":       time.Date(1990, 4, 12, 0, 0, 0, 0, time.UTC),
		"created_at": time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		"count":      int64(42),
		"null":       nil,
	}

	assert.Equal(t, "Maria", r.String("name"))
	assert.Equal(t, "abc", r.String("bytes"))
	assert.Equal(t, id.String(), r.String("uuid_raw"))
	assert.Equal(t, id.String(), r.String("uuid"))
	assert.Equal(t, "1990-04-12", r.String("date"))
	assert.Equal(t, "2024-01-02T03:04:05Z", r.String("created_at"))
	assert.Equal(t, "42", r.String("count"))
	assert.Equal(t, "", r.String("null"))
	assert.Equal(t, "", r.String("missing"))

	ts, ok := r.Time("created_at")
	assert.True(t, ok)
	assert.Equal(t, 2024, ts.Year())
	_, ok = r.Time("name")
	assert.False(t, ok)
}
