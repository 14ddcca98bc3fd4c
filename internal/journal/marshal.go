package journal

import (
	"database/sql"
	"fmt"

	"github.com/roach88/slotgraph/internal/value"
)

// marshalValue converts a change value to canonical JSON TEXT, or NULL when
// the change carries none.
func marshalValue(v value.Value) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	data, err := value.MarshalCanonical(v)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshal value: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func unmarshalValue(ns sql.NullString) (value.Value, error) {
	if !ns.Valid {
		return nil, nil
	}
	v, err := value.Unmarshal([]byte(ns.String))
	if err != nil {
		return nil, fmt.Errorf("unmarshal value: %w", err)
	}
	return v, nil
}
