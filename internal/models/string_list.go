package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"
)

// StringList persists as a PostgreSQL text[] and as a plain array elsewhere.
type StringList []string

// Value encodes the list as a text[] literal.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return pq.StringArray{}.Value()
	}
	return pq.StringArray(l).Value()
}

// Scan decodes text[] columns as well as JSON arrays.
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = StringList{}
		return nil
	}
	if raw, ok := value.([]byte); ok && len(raw) > 0 && raw[0] == '[' {
		var out []string
		if err := json.Unmarshal(raw, &out); err != nil {
			return fmt.Errorf("unmarshal string list: %w", err)
		}
		*l = out
		return nil
	}
	var arr pq.StringArray
	if err := arr.Scan(value); err != nil {
		return fmt.Errorf("scan string list: %w", err)
	}
	*l = StringList(arr)
	return nil
}

// Clone returns an independent copy.
func (l StringList) Clone() StringList {
	if l == nil {
		return StringList{}
	}
	out := make(StringList, len(l))
	copy(out, l)
	return out
}
