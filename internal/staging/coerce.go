package staging

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"songplaydw/internal/catalog"
)

// Coerce converts a decoded JSON value to the Go value written for a column of
// type t. Numbers must have been decoded with UseNumber. Empty strings load as
// NULL into non-text columns and timestamps arrive as epoch milliseconds.
func Coerce(v any, t catalog.ColumnType) (any, error) {
	if v == nil {
		return nil, nil
	}

	switch t {
	case catalog.Varchar:
		switch x := v.(type) {
		case string:
			return x, nil
		case json.Number:
			return x.String(), nil
		case bool:
			return strconv.FormatBool(x), nil
		default:
			b, err := json.Marshal(x)
			if err != nil {
				return nil, err
			}
			return string(b), nil
		}

	case catalog.Integer:
		s, ok := numeric(v)
		if !ok {
			return nil, fmt.Errorf("cannot load %T into an integer column", v)
		}
		if s == "" {
			return nil, nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", s)
		}
		return n, nil

	case catalog.Float:
		s, ok := numeric(v)
		if !ok {
			return nil, fmt.Errorf("cannot load %T into a float column", v)
		}
		if s == "" {
			return nil, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float %q", s)
		}
		return f, nil

	case catalog.Timestamp:
		s, ok := numeric(v)
		if !ok {
			return nil, fmt.Errorf("cannot load %T into a timestamp column", v)
		}
		if s == "" {
			return nil, nil
		}
		ms, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid epoch milliseconds %q", s)
		}
		return time.UnixMilli(ms).UTC(), nil
	}

	return nil, fmt.Errorf("unsupported column type %v", t)
}

// numeric returns the textual form of a number or numeric string.
func numeric(v any) (string, bool) {
	switch x := v.(type) {
	case json.Number:
		return x.String(), true
	case string:
		return strings.TrimSpace(x), true
	}
	return "", false
}
