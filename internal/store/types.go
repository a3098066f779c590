package store

import (
	"fmt"
	"time"
)

// SQLite datetime format (from datetime('now'))
const SQLiteTimeFormat = "2006-01-02 15:04:05"

// NullTime handles scanning SQLite TEXT datetime columns.
type NullTime struct {
	Time  time.Time
	Valid bool
}

func (t *NullTime) Scan(value any) error {
	if value == nil {
		t.Valid = false
		return nil
	}
	var str string
	switch v := value.(type) {
	case []byte:
		str = string(v)
	case string:
		str = v
	case time.Time:
		t.Time = v
		t.Valid = true
		return nil
	default:
		return fmt.Errorf("cannot scan %T into NullTime", value)
	}
	if str == "" {
		t.Valid = false
		return nil
	}
	formats := []string{
		SQLiteTimeFormat,
		time.RFC3339,
		time.RFC3339Nano,
	}
	for _, format := range formats {
		if parsed, err := time.Parse(format, str); err == nil {
			t.Time = parsed
			t.Valid = true
			return nil
		}
	}
	return fmt.Errorf("cannot parse time %q", str)
}

// Entry describes a stored key without its value.
type Entry struct {
	Key       string
	Size      int64
	UpdatedAt NullTime
}
