package sqlitedb

import (
	"errors"
	"time"
)

// TimeLayout is the text encoding used for every timestamp column. The
// fraction is fixed width so stored values sort lexically in time order.
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Now returns the current UTC time formatted for storage.
func Now() string {
	return time.Now().UTC().Format(TimeLayout)
}

// FormatTime formats t for storage.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// NullableString maps "" to NULL.
func NullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

// NullableTime maps nil to NULL.
func NullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(TimeLayout)
}

// NullableInt64 maps nil to NULL.
func NullableInt64(value *int64) any {
	if value == nil {
		return nil
	}
	return *value
}

// BoolToInt encodes a bool as SQLite INTEGER.
func BoolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

// ParseTime decodes a stored timestamp. SQLite's CURRENT_TIMESTAMP format is
// accepted as a fallback.
func ParseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

// ParseTimePtr decodes an optional timestamp column.
func ParseTimePtr(valid bool, value string) *time.Time {
	if !valid {
		return nil
	}
	t, err := ParseTime(value)
	if err != nil {
		return nil
	}
	return &t
}

// Placeholders returns "?,?,…" with count markers.
func Placeholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
