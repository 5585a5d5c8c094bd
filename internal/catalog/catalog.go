// Package catalog derives a normalized description of a tenant database:
// schemas, tables, columns with type and nullability, and foreign-key edges.
// The catalog is built fresh on every call; introspection issues several
// sequential queries with no snapshot guarantee across them.
package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/askdb/askdb/internal/pool"
)

// Catalog is the normalized, cross-dialect schema description.
type Catalog struct {
	Schemas map[string]*Schema `json:"schemas"`
}

// Schema groups the tables of one database schema.
type Schema struct {
	Tables map[string]*Table `json:"tables"`
}

// Table holds a table's columns in engine order plus its foreign keys.
type Table struct {
	Columns     []Column     `json:"columns"`
	ForeignKeys []ForeignKey `json:"foreign_keys,omitempty"`
}

// Column describes one column with its normalized type.
type Column struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
}

// ForeignKey describes a source column referencing a target column.
type ForeignKey struct {
	Column        string `json:"column"`
	ForeignSchema string `json:"foreign_table_schema"`
	ForeignTable  string `json:"foreign_table"`
	ForeignColumn string `json:"foreign_column"`
}

// Table returns the named table, or nil if absent.
func (c *Catalog) Table(schema, table string) *Table {
	s, ok := c.Schemas[schema]
	if !ok {
		return nil
	}
	return s.Tables[table]
}

// ResolveTable locates a table by "schema.table" or bare "table" name,
// returning its qualified parts. Used to allow-list identifiers that cannot
// be parameter-bound.
func (c *Catalog) ResolveTable(name string) (schema, table string, ok bool) {
	if schemaPart, tablePart, found := strings.Cut(name, "."); found {
		if c.Table(schemaPart, tablePart) != nil {
			return schemaPart, tablePart, true
		}
		return "", "", false
	}
	for schemaName, s := range c.Schemas {
		if _, exists := s.Tables[name]; exists {
			return schemaName, name, true
		}
	}
	return "", "", false
}

// HasColumn reports whether the table has the named column.
func (t *Table) HasColumn(name string) bool {
	for _, col := range t.Columns {
		if col.Name == name {
			return true
		}
	}
	return false
}

// ColumnDef is a single column of a table description, with the raw engine
// type upper-cased for prompt rendering.
type ColumnDef struct {
	Name      string
	Type      string
	MaxLength *int
}

// Introspector derives catalogs and table descriptions for one dialect.
type Introspector interface {
	Introspect(ctx context.Context, p pool.Pool) (*Catalog, error)
	// DescribeTable returns the column list for a "schema.table" name.
	DescribeTable(ctx context.Context, p pool.Pool, fullName string) ([]ColumnDef, error)
	// HasMutatingPrivileges reports whether the connected role can change
	// schema or data.
	HasMutatingPrivileges(ctx context.Context, p pool.Pool) (bool, error)
}

// For returns the introspector for a dialect.
func For(d pool.Dialect) (Introspector, error) {
	switch d {
	case pool.DialectPostgres:
		return &postgresIntrospector{}, nil
	case pool.DialectMySQL:
		return &mysqlIntrospector{}, nil
	default:
		return nil, fmt.Errorf("unsupported dialect: %s", d)
	}
}

// CreateStatement renders a CREATE TABLE-like description for prompts.
func CreateStatement(fullName string, cols []ColumnDef) string {
	if len(cols) == 0 {
		return "No columns found for the given table name"
	}

	defs := make([]string, len(cols))
	for i, col := range cols {
		def := col.Name + " " + strings.ToUpper(col.Type)
		if col.MaxLength != nil {
			def = fmt.Sprintf("%s(%d)", def, *col.MaxLength)
		}
		defs[i] = def
	}
	return fmt.Sprintf("CREATE TABLE %s (\n\t%s\n);", fullName, strings.Join(defs, ",\n\t"))
}

// asString coerces a driver value to its string form.
func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", s)
	}
}

// asInt coerces a driver value to an int, if it is numeric.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		return int(n), true
	default:
		return 0, false
	}
}
