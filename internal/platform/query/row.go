package query

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Row is one result row keyed by column name. Value types depend on the
// backend driver; use the accessors instead of type-asserting directly.
type Row map[string]any

// String returns the column rendered as text, or "" when it is absent or
// NULL. Dates without a time component render as YYYY-MM-DD.
func (r Row) String(column string) string {
	return toString(r[column])
}

// Time returns the column as a time when the driver produced one.
func (r Row) Time(column string) (time.Time, bool) {
	switch v := r[column].(type) {
	case time.Time:
		return v, true
	case *time.Time:
		if v == nil {
			return time.Time{}, false
		}
		return *v, true
	}
	return time.Time{}, false
}

func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case *string:
		if t == nil {
			return ""
		}
		return *t
	case []byte:
		return string(t)
	case [16]byte:
		return uuid.UUID(t).String()
	case uuid.UUID:
		return t.String()
	case time.Time:
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
			return t.Format("2006-01-02")
		}
		return t.Format(time.RFC3339)
	case int64:
		return strconv.FormatInt(t, 10)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case driver.Valuer:
		dv, err := t.Value()
		if err != nil {
			return ""
		}
		if _, nested := dv.(driver.Valuer); nested {
			return fmt.Sprint(dv)
		}
		return toString(dv)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
