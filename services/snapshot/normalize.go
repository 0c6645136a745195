package snapshot

import (
	"sort"
	"strings"

	"dbaccountsync/models"
)

// recordNameFields are the field names accepted when a list entry arrives as
// a record instead of a plain string. Single-field records are accepted
// regardless of the field name.
var recordNameFields = []string{"name", "role", "privilege"}

// keyedCategories are the categories whose canonical form is a per-database
// mapping of flat string lists rather than one flat list.
var keyedCategories = map[string]bool{
	models.CategoryDatabasePrivileges:  true,
	models.CategoryDatabaseRoles:       true,
	models.CategoryDatabasePermissions: true,
}

// engineCategories lists which snapshot categories each engine populates.
// The coercion algorithm itself is engine-independent; only this table is
// engine-aware.
var engineCategories = map[models.Engine][]string{
	models.EngineMySQL: {
		models.CategoryGlobalPrivileges,
		models.CategoryDatabasePrivileges,
		models.CategoryRoles,
	},
	models.EnginePostgreSQL: {
		models.CategoryRoleAttributes,
		models.CategoryRoles,
		models.CategoryPredefinedRoles,
		models.CategoryDatabasePrivileges,
	},
	models.EngineSQLServer: {
		models.CategoryServerRoles,
		models.CategoryServerPermissions,
		models.CategoryDatabaseRoles,
		models.CategoryDatabasePermissions,
	},
	models.EngineOracle: {
		models.CategoryOracleRoles,
		models.CategorySystemPrivileges,
	},
}

// IsKeyedCategory reports whether a category's canonical form is a keyed
// per-database mapping.
func IsKeyedCategory(category string) bool {
	return keyedCategories[category]
}

// EngineCategories returns the snapshot categories an engine populates.
func EngineCategories(engine models.Engine) []string {
	return engineCategories[engine]
}

// FlattenList coerces a raw category value into the canonical flat list of
// non-empty strings. Recognized shapes: a list of strings, a list of
// single-field records (or records carrying a name field), and a keyed
// mapping of either. Order follows first occurrence, duplicates and
// empty/null entries are dropped. The second return value counts entries
// whose shape was not recognized, so ambiguous input is distinguishable from
// genuinely empty input.
func FlattenList(raw interface{}) ([]string, int) {
	out := []string{}
	seen := map[string]bool{}
	dropped := 0
	appendEntry := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}
	flattenInto(raw, appendEntry, &dropped)
	return out, dropped
}

func flattenInto(raw interface{}, appendEntry func(string), dropped *int) {
	switch val := raw.(type) {
	case nil:
	case string:
		appendEntry(val)
	case []string:
		for _, s := range val {
			appendEntry(s)
		}
	case []interface{}:
		for _, entry := range val {
			flattenEntry(entry, appendEntry, dropped)
		}
	case []map[string]interface{}:
		for _, entry := range val {
			flattenEntry(entry, appendEntry, dropped)
		}
	case map[string][]string:
		for _, key := range sortedKeysStrings(val) {
			for _, s := range val[key] {
				appendEntry(s)
			}
		}
	case map[string]interface{}:
		// Either a keyed mapping of lists or a single record; records are
		// handled through flattenEntry, mappings recurse per key.
		if _, ok := recordValue(val); ok {
			flattenEntry(val, appendEntry, dropped)
			return
		}
		for _, key := range sortedKeys(val) {
			flattenInto(val[key], appendEntry, dropped)
		}
	default:
		*dropped++
	}
}

// flattenEntry coerces one list element: a plain string or a record.
func flattenEntry(entry interface{}, appendEntry func(string), dropped *int) {
	switch val := entry.(type) {
	case nil:
	case string:
		appendEntry(val)
	case map[string]interface{}:
		if s, ok := recordValue(val); ok {
			appendEntry(s)
			return
		}
		*dropped++
	case map[string]string:
		converted := make(map[string]interface{}, len(val))
		for k, v := range val {
			converted[k] = v
		}
		flattenEntry(converted, appendEntry, dropped)
	default:
		*dropped++
	}
}

// recordValue extracts the string payload of a record-shaped entry. A record
// is a map with exactly one field, or a map carrying one of the known name
// fields. Null payloads count as recognized-but-empty.
func recordValue(record map[string]interface{}) (string, bool) {
	if len(record) == 1 {
		for _, v := range record {
			return stringPayload(v)
		}
	}
	for _, field := range recordNameFields {
		if v, ok := record[field]; ok {
			return stringPayload(v)
		}
	}
	return "", false
}

func stringPayload(v interface{}) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", true
	case string:
		return val, true
	}
	return "", false
}

// FlattenKeyed coerces a raw keyed-category value into the canonical
// map of flat string lists. A flat list arriving where a mapping was
// expected folds into the empty key so no data is lost.
func FlattenKeyed(raw interface{}) (map[string][]string, int) {
	out := map[string][]string{}
	dropped := 0
	switch val := raw.(type) {
	case nil:
	case map[string][]string:
		for k, v := range val {
			list, d := FlattenList(v)
			out[k] = list
			dropped += d
		}
	case map[string]interface{}:
		for k, v := range val {
			list, d := FlattenList(v)
			out[k] = list
			dropped += d
		}
	default:
		list, d := FlattenList(raw)
		dropped += d
		if len(list) > 0 {
			out[""] = list
		}
	}
	return out, dropped
}

// NormalizeCategories coerces every raw category of an engine's permission
// data into its canonical form. Unknown category names still coerce (flat)
// so no engine fact silently disappears. Returns the normalized categories
// and the total count of dropped unrecognizable entries.
func NormalizeCategories(engine models.Engine, raw map[string]interface{}) (map[string]interface{}, int) {
	out := map[string]interface{}{}
	dropped := 0
	for name, value := range raw {
		if IsKeyedCategory(name) {
			keyed, d := FlattenKeyed(value)
			out[name] = keyed
			dropped += d
			continue
		}
		list, d := FlattenList(value)
		out[name] = list
		dropped += d
	}
	return out, dropped
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedKeysStrings(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
