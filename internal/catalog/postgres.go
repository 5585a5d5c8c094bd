package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/askdb/askdb/internal/pool"
)

// Schemas that never appear in a catalog.
var postgresExcludedSchemas = []string{"information_schema", "pg_catalog"}

type postgresIntrospector struct{}

func (postgresIntrospector) Introspect(ctx context.Context, p pool.Pool) (*Catalog, error) {
	cat := &Catalog{Schemas: make(map[string]*Schema)}

	schemaRes, err := p.Query(ctx,
		`SELECT schema_name FROM information_schema.schemata WHERE schema_name NOT IN ($1, $2)`,
		postgresExcludedSchemas[0], postgresExcludedSchemas[1])
	if err != nil {
		return nil, fmt.Errorf("listing schemas: %w", err)
	}

	for _, row := range schemaRes.Rows {
		schemaName := asString(row[0])
		schema := &Schema{Tables: make(map[string]*Table)}
		cat.Schemas[schemaName] = schema

		tableRes, err := p.Query(ctx,
			`SELECT tablename FROM pg_catalog.pg_tables WHERE schemaname = $1`, schemaName)
		if err != nil {
			return nil, fmt.Errorf("listing tables in %s: %w", schemaName, err)
		}

		for _, tableRow := range tableRes.Rows {
			tableName := asString(tableRow[0])
			table, err := introspectPostgresTable(ctx, p, schemaName, tableName)
			if err != nil {
				return nil, err
			}
			schema.Tables[tableName] = table
		}
	}

	return cat, nil
}

func introspectPostgresTable(ctx context.Context, p pool.Pool, schemaName, tableName string) (*Table, error) {
	table := &Table{}

	colRes, err := p.Query(ctx, `
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_name = $1 AND table_schema = $2
		ORDER BY ordinal_position`,
		tableName, schemaName)
	if err != nil {
		return nil, fmt.Errorf("listing columns of %s.%s: %w", schemaName, tableName, err)
	}
	for _, row := range colRes.Rows {
		table.Columns = append(table.Columns, Column{
			Name:     asString(row[0]),
			Type:     Normalize(pool.DialectPostgres, asString(row[1])),
			Nullable: asString(row[2]) == "YES",
		})
	}

	fkRes, err := p.Query(ctx, `
		SELECT
			kcu.column_name,
			ccu.table_schema AS foreign_table_schema,
			ccu.table_name AS foreign_table_name,
			ccu.column_name AS foreign_column_name
		FROM
			information_schema.table_constraints AS tc
			JOIN information_schema.key_column_usage AS kcu
				ON tc.constraint_name = kcu.constraint_name
				AND tc.table_schema = kcu.table_schema
			JOIN information_schema.constraint_column_usage AS ccu
				ON ccu.constraint_name = tc.constraint_name
				AND ccu.table_schema = tc.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY' AND tc.table_name = $1 AND tc.table_schema = $2`,
		tableName, schemaName)
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

func (postgresIntrospector) DescribeTable(ctx context.Context, p pool.Pool, fullName string) ([]ColumnDef, error) {
	schemaName, tableName, found := strings.Cut(fullName, ".")
	if !found {
		schemaName, tableName = "public", fullName
	}

	res, err := p.Query(ctx, `
		SELECT column_name, data_type, character_maximum_length
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position`,
		schemaName, tableName)
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

// HasMutatingPrivileges checks role_table_grants for privileges that would
// let the connected role change schema or data.
func (postgresIntrospector) HasMutatingPrivileges(ctx context.Context, p pool.Pool) (bool, error) {
	userRes, err := p.Query(ctx, `SELECT current_user`)
	if err != nil {
		return false, fmt.Errorf("reading current user: %w", err)
	}
	if len(userRes.Rows) == 0 {
		return false, fmt.Errorf("reading current user: empty result")
	}
	currentUser := asString(userRes.Rows[0][0])

	grantRes, err := p.Query(ctx, `
		SELECT table_schema, table_name, privilege_type
		FROM information_schema.role_table_grants
		WHERE grantee = $1 AND privilege_type IN ('ALTER', 'DROP', 'INSERT', 'DELETE', 'UPDATE')`,
		currentUser)
	if err != nil {
		return false, fmt.Errorf("checking grants: %w", err)
	}
	return len(grantRes.Rows) > 0, nil
}
