package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// FloatPairs holds a numeric series of [time, value] rows parsed from
// the analysis script output. Stored in the database as a JSON string.
type FloatPairs [][2]float64

// Value implements the driver.Valuer interface.
func (f FloatPairs) Value() (driver.Value, error) {
	if len(f) == 0 {
		return "[]", nil
	}

	b, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize FloatPairs, %w", err)
	}

	return string(b), nil
}

// Scan implements the sql.Scanner interface.
func (f *FloatPairs) Scan(value interface{}) error {
	if value == nil {
		*f = FloatPairs{}
		return nil
	}

	var b []byte
	switch v := value.(type) {
	case string:
		b = []byte(v)
	case []byte:
		b = v
	default:
		return fmt.Errorf("failed to scan FloatPairs, %v", value)
	}

	if len(b) == 0 {
		*f = FloatPairs{}
		return nil
	}

	return json.Unmarshal(b, f)
}
