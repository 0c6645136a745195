package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// EscapeSQL escapes single quotes in SQL strings to prevent injection.
// Used when catalog values must be embedded into engine-specific query text.
func EscapeSQL(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// ToString converts a raw driver value to its string form.
// Drivers return TEXT columns as []byte or string depending on the engine;
// NULL converts to the empty string.
func ToString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// ToBool converts a raw driver value to a boolean. Accepts native booleans,
// numeric 0/1, and the Y/N and TRUE/FALSE flag strings MySQL and Oracle
// catalogs use.
func ToBool(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case int:
		return val != 0
	case int32:
		return val != 0
	case int64:
		return val != 0
	case float64:
		return val != 0
	}
	switch strings.ToUpper(strings.TrimSpace(ToString(v))) {
	case "Y", "YES", "1", "TRUE", "T", "ON":
		return true
	}
	return false
}

// ToInt64 converts a raw driver value to int64, returning 0 when the value
// is NULL or not numeric.
func ToInt64(v interface{}) int64 {
	switch val := v.(type) {
	case nil:
		return 0
	case int:
		return int64(val)
	case int32:
		return int64(val)
	case int64:
		return val
	case float64:
		return int64(val)
	}
	if n, err := strconv.ParseInt(strings.TrimSpace(ToString(v)), 10, 64); err == nil {
		return n
	}
	return 0
}
