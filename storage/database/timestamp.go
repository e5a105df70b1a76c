package database

import (
	"database/sql/driver"
	"time"

	"github.com/pkg/errors"
)

// sqlite hands computed columns (e.g. MAX(updated_at)) back as text
var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// Timestamp scans a UTC time from either a native time value or its text form.
type Timestamp struct {
	time.Time
}

func (ts *Timestamp) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		ts.Time = time.Time{}
		return nil
	case time.Time:
		ts.Time = v.UTC()
		return nil
	case []byte:
		return ts.parse(string(v))
	case string:
		return ts.parse(v)
	}
	return errors.Errorf("cannot scan %T into Timestamp", value)
}

func (ts *Timestamp) parse(s string) error {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			ts.Time = t.UTC()
			return nil
		}
	}
	return errors.Errorf("cannot parse %q as a timestamp", s)
}

func (ts Timestamp) Value() (driver.Value, error) {
	return ts.Time.UTC(), nil
}
