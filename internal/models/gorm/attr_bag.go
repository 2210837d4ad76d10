package gorm

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

// AttrBag is a free-form key/value map persisted as a JSON column. It backs
// the reservation details bag: the application owns most keys, while the
// freshness codec owns exactly one reserved key inside it.
type AttrBag map[string]interface{}

// Value implements driver.Valuer, serializing the bag to JSON.
func (b AttrBag) Value() (driver.Value, error) {
	if b == nil {
		return "{}", nil
	}
	data, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal attr bag: %w", err)
	}
	return string(data), nil
}

// Scan implements sql.Scanner, reading the bag back from a JSON column.
// An unreadable column yields an empty bag rather than an error; details
// data must never take a reservation row down with it.
func (b *AttrBag) Scan(value interface{}) error {
	if value == nil {
		*b = AttrBag{}
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("unsupported type for attr bag column")
	}

	if len(data) == 0 {
		*b = AttrBag{}
		return nil
	}

	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		*b = AttrBag{}
		return nil
	}

	*b = out
	return nil
}
