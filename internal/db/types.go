package db

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jandubois/clusterwatch/internal/report"
)

// SQLite datetime format (from datetime('now'))
const SQLiteTimeFormat = "2006-01-02 15:04:05"

// storedTimeFormat is fixed-width so stored values sort chronologically as text.
const storedTimeFormat = "2006-01-02T15:04:05.000000000Z"

// Time stores a time.Time as fixed-width UTC text and scans any of the
// formats SQLite produces.
type Time struct {
	time.Time
}

func (t Time) Value() (driver.Value, error) {
	return t.UTC().Format(storedTimeFormat), nil
}

func (t *Time) Scan(value any) error {
	var str string
	switch v := value.(type) {
	case nil:
		t.Time = time.Time{}
		return nil
	case time.Time:
		t.Time = v
		return nil
	case []byte:
		str = string(v)
	case string:
		str = v
	default:
		return fmt.Errorf("cannot scan %T into Time", value)
	}
	for _, format := range []string{storedTimeFormat, time.RFC3339Nano, SQLiteTimeFormat} {
		if parsed, err := time.Parse(format, str); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("cannot parse time %q", str)
}

// reportBody stores a report as its JSON encoding.
type reportBody struct {
	*report.Report
}

func (b reportBody) Value() (driver.Value, error) {
	data, err := json.Marshal(b.Report)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (b *reportBody) Scan(value any) error {
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into report", value)
	}
	r := new(report.Report)
	if err := json.Unmarshal(data, r); err != nil {
		return err
	}
	b.Report = r
	return nil
}
