package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/askdb/askdb/internal/pool"
)

var mysqlExcludedSchemas = []string{"information_schema", "mysql", "sys", "performance_schema"}

type mysqlIntrospector struct{}

func (mysqlIntrospector) Introspect(ctx context.Context, p pool.Pool) (*Catalog, error) {
	cat := &Catalog{Schemas: make(map[string]*Schema)}

	args := make([]any, len(mysqlExcludedSchemas))
	marks := make([]string, len(mysqlExcludedSchemas))
	for i, s := range mysqlExcludedSchemas {
		args[i] = s
		marks[i] = "?"
	}

	schemaRes, err := p.Query(ctx,
		`SELECT schema_name FROM information_schema.schemata WHERE schema_name NOT IN (`+
			strings.Join(marks, ", ")+`)`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("listing schemas: %w", err)
	}

	for _, row := range schemaRes.Rows {
		schemaName := asString(row[0])
		schema := &Schema{Tables: make(map[string]*Table)}
		cat.Schemas[schemaName] = schema

		tableRes, err := p.Query(ctx,
			`SELECT table_name FROM information_schema.tables
			 WHERE table_schema = ? AND table_type = 'BASE TABLE'`,
			schemaName)
		if err != nil {
			return nil, fmt.Errorf("listing tables in %s: %w", schemaName, err)
		}

		for _, tableRow := range tableRes.Rows {
			tableName := asString(tableRow[0])
			table, err := introspectMySQLTable(ctx, p, schemaName, tableName)
			if err != nil {
				return nil, err
			}
			schema.Tables[tableName] = table
		}
	}

	return cat, nil
}

func introspectMySQLTable(ctx context.Context, p pool.Pool, schemaName, tableName string) (*Table, error) {
	table := &Table{}

	colRes, err := p.Query(ctx, `
		SELECT column_name,
		       IF(column_type = 'tinyint(1)', column_type, data_type),
		       is_nullable
		FROM information_schema.columns
		WHERE table_schema = ? AND table_name = ?
		ORDER BY ordinal_position`,
		schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("listing columns of %s.%s: %w", schemaName, tableName, err)
	}
	for _, row := range colRes.Rows {
		table.Columns = append(table.Columns, Column{
			Name:     asString(row[0]),
			Type:     Normalize(pool.DialectMySQL, asString(row[1])),
			Nullable: asString(row[2]) == "YES",
		})
	}

	fkRes, err := p.Query(ctx, `
		SELECT column_name, referenced_table_schema, referenced_table_name, referenced_column_name
		FROM information_schema.key_column_usage
		WHERE table_schema = ? AND table_name = ? AND referenced_table_name IS NOT NULL`,
		schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("listing foreign keys of %s.%s: %w", schemaName, tableName, err)
	}
	for _, row := range fkRes.Rows {
		table.ForeignKeys = append(table.ForeignKeys, ForeignKey{
			Column:        asString(row[0]),
			ForeignSchema: asString(row[1]),
			ForeignTable:  asString(row[2]),
			ForeignColumn: asString(row[3]),
		})
	}

	return table, nil
}

func (mysqlIntrospector) DescribeTable(ctx context.Context, p pool.Pool, fullName string) ([]ColumnDef, error) {
	schemaName, tableName, found := strings.Cut(fullName, ".")

	var res *pool.Result
	var err error
	if found {
		res, err = p.Query(ctx, `
			SELECT column_name, data_type, character_maximum_length
			FROM information_schema.columns
			WHERE table_schema = ? AND table_name = ?
			ORDER BY ordinal_position`,
			schemaName, tableName)
	} else {
		res, err = p.Query(ctx, `
			SELECT column_name, data_type, character_maximum_length
			FROM information_schema.columns
			WHERE table_schema = DATABASE() AND table_name = ?
			ORDER BY ordinal_position`,
			fullName)
	}
	if err != nil {
		return nil, fmt.Errorf("describing %s: %w", fullName, err)
	}

	defs := make([]ColumnDef, 0, len(res.Rows))
	for _, row := range res.Rows {
		def := ColumnDef{Name: asString(row[0]), Type: asString(row[1])}
		if n, ok := asInt(row[2]); ok {
			def.MaxLength = &n
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// HasMutatingPrivileges checks global and schema-level grants of the
// connected account. The grantee column stores 'user'@'host' quoted, so the
// comparison rebuilds that form from CURRENT_USER().
func (mysqlIntrospector) HasMutatingPrivileges(ctx context.Context, p pool.Pool) (bool, error) {
	const grantee = `CONCAT('''', SUBSTRING_INDEX(CURRENT_USER(), '@', 1), '''@''', SUBSTRING_INDEX(CURRENT_USER(), '@', -1), '''')`

	for _, table := range []string{"user_privileges", "schema_privileges"} {
		res, err := p.Query(ctx, `
			SELECT privilege_type FROM information_schema.`+table+`
			WHERE grantee = `+grantee+`
			AND privilege_type IN ('ALTER', 'DROP', 'INSERT', 'DELETE', 'UPDATE', 'CREATE')`)
		if err != nil {
			return false, fmt.Errorf("checking %s: %w", table, err)
		}
		if len(res.Rows) > 0 {
			return true, nil
		}
	}
	return false, nil
}
