// Package dates is the single place where intake dates are parsed,
// validated and converted between the entry form (DD/MM/YYYY) and the
// storage form (YYYY-MM-DD). Registration and editing flows must route
// through it instead of parsing dates themselves.
package dates

import (
	"regexp"
	"strings"
	"time"
)

const (
	// StorageLayout is the canonical form persisted in the datastore.
	StorageLayout = "2006-01-02"
	// DisplayLayout is the form shown to and typed by dashboard users.
	DisplayLayout = "02/01/2006"

	entryLayout = "2/1/2006"

	MinYear        = 1900
	MaxStorageYear = 2100
)

var (
	isoPattern   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	entryPattern = regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}$`)
)

// Parse accepts YYYY-MM-DD or DD/MM/YYYY and returns the date at midnight
// UTC. It reports false for any other shape and for dates that do not exist
// in the calendar, such as 31/02/2020.
func Parse(input string) (time.Time, bool) {
	s := strings.TrimSpace(input)
	var layout string
	switch {
	case isoPattern.MatchString(s):
		layout = StorageLayout
	case entryPattern.MatchString(s):
		layout = entryLayout
	default:
		return time.Time{}, false
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// FormatForStorage renders input as YYYY-MM-DD. Years outside
// [MinYear, MaxStorageYear] are rejected.
func FormatForStorage(input string) (string, bool) {
	t, ok := Parse(input)
	if !ok {
		return "", false
	}
	if t.Year() < MinYear || t.Year() > MaxStorageYear {
		return "", false
	}
	return t.Format(StorageLayout), true
}

// FormatForDisplay renders input as DD/MM/YYYY. The empty string means
// "no date" and is returned for anything unparseable.
func FormatForDisplay(input string) string {
	t, ok := Parse(input)
	if !ok {
		return ""
	}
	return t.Format(DisplayLayout)
}

// IsValidBirthDate reports whether input is acceptable as a birth date.
// Birth date is optional, so the empty string is valid.
func IsValidBirthDate(input string) bool {
	return isValidBirthDateAt(input, time.Now())
}

func isValidBirthDateAt(input string, now time.Time) bool {
	if strings.TrimSpace(input) == "" {
		return true
	}
	t, ok := Parse(input)
	if !ok {
		return false
	}
	if t.Year() < MinYear || t.Year() > now.Year() {
		return false
	}
	return !t.After(today(now))
}

// CalculateAge returns the whole years elapsed between birthDate and now.
func CalculateAge(birthDate string) (int, bool) {
	return ageAt(birthDate, time.Now())
}

func ageAt(birthDate string, now time.Time) (int, bool) {
	b, ok := Parse(birthDate)
	if !ok {
		return 0, false
	}
	n := today(now)
	age := n.Year() - b.Year()
	if n.Month() < b.Month() || (n.Month() == b.Month() && n.Day() < b.Day()) {
		age--
	}
	return age, true
}

func today(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
