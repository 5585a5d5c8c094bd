package catalog

import "github.com/askdb/askdb/internal/pool"

// Per-dialect normalization of raw engine type names. Unmapped types pass
// through unchanged.
var postgresTypes = map[string]string{
	"character varying":           "text",
	"timestamp without time zone": "timestamp",
	"timestamp with time zone":    "timestamptz",
	"double precision":            "float8",
}

// MySQL has no native boolean; the introspection query surfaces tinyint(1)
// columns under their column_type so they can be mapped here.
var mysqlTypes = map[string]string{
	"varchar":    "text",
	"datetime":   "timestamp",
	"tinyint(1)": "boolean",
}

// Normalize maps a raw engine type to its normalized name for the dialect.
func Normalize(d pool.Dialect, raw string) string {
	var m map[string]string
	switch d {
	case pool.DialectPostgres:
		m = postgresTypes
	case pool.DialectMySQL:
		m = mysqlTypes
	}
	if normalized, ok := m[raw]; ok {
		return normalized
	}
	return raw
}
