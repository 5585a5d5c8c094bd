package catalog

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/askdb/askdb/internal/pool"
)

// scriptedPool answers queries by first matching substring.
type scriptedPool struct {
	dialect pool.Dialect
	scripts []script
	queries []string
}

type script struct {
	contains string
	result   *pool.Result
}

func (p *scriptedPool) Dialect() pool.Dialect { return p.dialect }
func (p *scriptedPool) Query(ctx context.Context, sql string, args ...any) (*pool.Result, error) {
	p.queries = append(p.queries, sql)
	for _, s := range p.scripts {
		if strings.Contains(sql, s.contains) {
			return s.result, nil
		}
	}
	return nil, fmt.Errorf("unexpected query: %s", sql)
}
func (p *scriptedPool) Ping(ctx context.Context) error { return nil }
func (p *scriptedPool) Close() {}

func rows(vals ...[]any) [][]any { return vals }

func TestNormalize(t *testing.T) {
	cases := []struct {
		dialect pool.Dialect
		raw     string
		want    string
	}{
		{pool.DialectPostgres, "character varying", "text"},
		{pool.DialectPostgres, "timestamp without time zone", "timestamp"},
		{pool.DialectPostgres, "timestamp with time zone", "timestamptz"},
		{pool.DialectPostgres, "double precision", "float8"},
		{pool.DialectPostgres, "integer", "integer"},
		{pool.DialectMySQL, "varchar", "text"},
		{pool.DialectMySQL, "datetime", "timestamp"},
		{pool.DialectMySQL, "tinyint(1)", "boolean"},
		{pool.DialectMySQL, "bigint", "bigint"},
	}
	for _, tc := range cases {
		if got := Normalize(tc.dialect, tc.raw); got != tc.want {
			t.Errorf("Normalize(%s, %q) = %q, want %q", tc.dialect, tc.raw, got, tc.want)
		}
	}
}

func TestCreateStatement(t *testing.T) {
	maxLen := 255
	stmt := CreateStatement("public.users", []ColumnDef{
		{Name: "id", Type: "integer"},
		{Name: "email", Type: "character varying", MaxLength: &maxLen},
	})

	want := "CREATE TABLE public.users (\n\tid INTEGER,\n\temail CHARACTER VARYING(255)\n);"
	if stmt != want {
		t.Errorf("CreateStatement = %q, want %q", stmt, want)
	}
}

func TestCreateStatement_NoColumns(t *testing.T) {
	stmt := CreateStatement("public.missing", nil)
	if stmt != "No columns found for the given table name" {
		t.Errorf("CreateStatement = %q", stmt)
	}
}

func TestCatalog_ResolveTable(t *testing.T) {
	cat := &Catalog{Schemas: map[string]*Schema{
		"public": {Tables: map[string]*Table{
			"users": {Columns: []Column{{Name: "id", Type: "integer"}}},
		}},
		"sales": {Tables: map[string]*Table{
			"orders": {Columns: []Column{{Name: "id", Type: "integer"}}},
		}},
	}}

	if s, tb, ok := cat.ResolveTable("public.users"); !ok || s != "public" || tb != "users" {
		t.Errorf("ResolveTable(public.users) = %q, %q, %v", s, tb, ok)
	}
	if s, tb, ok := cat.ResolveTable("orders"); !ok || s != "sales" || tb != "orders" {
		t.Errorf("ResolveTable(orders) = %q, %q, %v", s, tb, ok)
	}
	if _, _, ok := cat.ResolveTable("public.orders"); ok {
		t.Error("ResolveTable found a table in the wrong schema")
	}
	if _, _, ok := cat.ResolveTable("nope"); ok {
		t.Error("ResolveTable found a nonexistent table")
	}
}

func TestTable_HasColumn(t *testing.T) {
	tb := &Table{Columns: []Column{{Name: "id"}, {Name: "email"}}}
	if !tb.HasColumn("email") {
		t.Error("HasColumn missed an existing column")
	}
	if tb.HasColumn("password") {
		t.Error("HasColumn reported a nonexistent column")
	}
}

func TestPostgresIntrospect(t *testing.T) {
	p := &scriptedPool{dialect: pool.DialectPostgres, scripts: []script{
		{"information_schema.schemata", &pool.Result{
			Columns: []string{"schema_name"},
			Rows:    rows([]any{"public"}),
		}},
		{"pg_catalog.pg_tables", &pool.Result{
			Columns: []string{"tablename"},
			Rows:    rows([]any{"users"}),
		}},
		{"information_schema.columns", &pool.Result{
			Columns: []string{"column_name", "data_type", "is_nullable"},
			Rows: rows(
				[]any{"id", "integer", "NO"},
				[]any{"email", "character varying", "YES"},
			),
		}},
		{"FOREIGN KEY", &pool.Result{
			Columns: []string{"column_name", "foreign_table_schema", "foreign_table_name", "foreign_column_name"},
			Rows:    rows([]any{"org_id", "public", "orgs", "id"}),
		}},
	}}

	intro, err := For(pool.DialectPostgres)
	if err != nil {
		t.Fatalf("For: %v", err)
	}
	cat, err := intro.Introspect(context.Background(), p)
	if err != nil {
		t.Fatalf("Introspect: %v", err)
	}

	table := cat.Table("public", "users")
	if table == nil {
		t.Fatal("public.users missing from catalog")
	}
	if len(table.Columns) != 2 {
		t.Fatalf("columns = %d, want 2", len(table.Columns))
	}
	if table.Columns[1].Type != "text" {
		t.Errorf("varying type normalized to %q, want text", table.Columns[1].Type)
	}
	if table.Columns[0].Nullable || !table.Columns[1].Nullable {
		t.Error("nullability not carried from is_nullable")
	}
	if len(table.ForeignKeys) != 1 || table.ForeignKeys[0].ForeignTable != "orgs" {
		t.Errorf("foreign keys = %+v", table.ForeignKeys)
	}
}

func TestMySQLIntrospect_ParameterizesSchemaFilter(t *testing.T) {
	p := &scriptedPool{dialect: pool.DialectMySQL, scripts: []script{
		{"information_schema.schemata", &pool.Result{
			Columns: []string{"schema_name"},
			Rows:    rows([]any{"app"}),
		}},
		{"information_schema.tables", &pool.Result{
			Columns: []string{"table_name"},
			Rows:    rows([]any{"orders"}),
		}},
		{"information_schema.columns", &pool.Result{
			Columns: []string{"column_name", "data_type", "is_nullable"},
			Rows: rows(
				[]any{"placed_at", "datetime", "YES"},
				[]any{"is_gift", "tinyint(1)", "NO"},
			),
		}},
		{"key_column_usage", &pool.Result{
			Columns: []string{"column_name", "referenced_table_schema", "referenced_table_name", "referenced_column_name"},
			Rows:    [][]any{},
		}},
	}}

	intro, _ := For(pool.DialectMySQL)
	cat, err := intro.Introspect(context.Background(), p)
	if err != nil {
		t.Fatalf("Introspect: %v", err)
	}

	table := cat.Table("app", "orders")
	if table == nil {
		t.Fatal("app.orders missing from catalog")
	}
	if table.Columns[0].Type != "timestamp" {
		t.Errorf("datetime normalized to %q, want timestamp", table.Columns[0].Type)
	}
	if table.Columns[1].Type != "boolean" {
		t.Errorf("tinyint(1) normalized to %q, want boolean", table.Columns[1].Type)
	}

	// The system-schema filter must be bound, not interpolated.
	if !strings.Contains(p.queries[0], "NOT IN (?, ?, ?, ?)") {
		t.Errorf("schema filter not parameterized: %s", p.queries[0])
	}
}

func TestIntrospect_Idempotent(t *testing.T) {
	pools := map[string]*scriptedPool{
		"postgres": {dialect: pool.DialectPostgres, scripts: []script{
			{"information_schema.schemata", &pool.Result{
				Columns: []string{"schema_name"},
				Rows:    rows([]any{"public"}),
			}},
			{"pg_catalog.pg_tables", &pool.Result{
				Columns: []string{"tablename"},
				Rows:    rows([]any{"users"}),
			}},
			{"information_schema.columns", &pool.Result{
				Columns: []string{"column_name", "data_type", "is_nullable"},
				Rows: rows(
					[]any{"id", "integer", "NO"},
					[]any{"email", "character varying", "YES"},
				),
			}},
			{"FOREIGN KEY", &pool.Result{
				Columns: []string{"column_name", "foreign_table_schema", "foreign_table_name", "foreign_column_name"},
				Rows:    rows([]any{"org_id", "public", "orgs", "id"}),
			}},
		}},
		"mysql": {dialect: pool.DialectMySQL, scripts: []script{
			{"information_schema.schemata", &pool.Result{
				Columns: []string{"schema_name"},
				Rows:    rows([]any{"app"}),
			}},
			{"information_schema.tables", &pool.Result{
				Columns: []string{"table_name"},
				Rows:    rows([]any{"orders"}),
			}},
			{"information_schema.columns", &pool.Result{
				Columns: []string{"column_name", "data_type", "is_nullable"},
				Rows:    rows([]any{"placed_at", "datetime", "YES"}),
			}},
			{"key_column_usage", &pool.Result{
				Columns: []string{"column_name", "referenced_table_schema", "referenced_table_name", "referenced_column_name"},
				Rows:    [][]any{},
			}},
		}},
	}

	for name, p := range pools {
		t.Run(name, func(t *testing.T) {
			intro, err := For(p.dialect)
			if err != nil {
				t.Fatalf("For: %v", err)
			}
			first, err := intro.Introspect(context.Background(), p)
			if err != nil {
				t.Fatalf("first Introspect: %v", err)
			}
			second, err := intro.Introspect(context.Background(), p)
			if err != nil {
				t.Fatalf("second Introspect: %v", err)
			}
			if !reflect.DeepEqual(first, second) {
				t.Errorf("catalogs differ between runs:\nfirst:  %+v\nsecond: %+v", first, second)
			}
		})
	}
}

func TestPostgresDescribeTable_DefaultsToPublic(t *testing.T) {
	p := &scriptedPool{dialect: pool.DialectPostgres, scripts: []script{
		{"information_schema.columns", &pool.Result{
			Columns: []string{"column_name", "data_type", "character_maximum_length"},
			Rows: rows(
				[]any{"id", "integer", nil},
				[]any{"email", "character varying", int64(255)},
			),
		}},
	}}

	intro, _ := For(pool.DialectPostgres)
	defs, err := intro.DescribeTable(context.Background(), p, "users")
	if err != nil {
		t.Fatalf("DescribeTable: %v", err)
	}

	if len(defs) != 2 {
		t.Fatalf("defs = %d, want 2", len(defs))
	}
	if defs[0].MaxLength != nil {
		t.Error("integer column carries a max length")
	}
	if defs[1].MaxLength == nil || *defs[1].MaxLength != 255 {
		t.Errorf("varchar max length = %v, want 255", defs[1].MaxLength)
	}
}

func TestPostgresHasMutatingPrivileges(t *testing.T) {
	readOnly := &scriptedPool{dialect: pool.DialectPostgres, scripts: []script{
		{"current_user", &pool.Result{Columns: []string{"current_user"}, Rows: rows([]any{"reader"})}},
		{"role_table_grants", &pool.Result{Columns: []string{"table_schema", "table_name", "privilege_type"}, Rows: [][]any{}}},
	}}

	intro, _ := For(pool.DialectPostgres)
	dangerous, err := intro.HasMutatingPrivileges(context.Background(), readOnly)
	if err != nil {
		t.Fatalf("HasMutatingPrivileges: %v", err)
	}
	if dangerous {
		t.Error("read-only role reported as dangerous")
	}

	writer := &scriptedPool{dialect: pool.DialectPostgres, scripts: []script{
		{"current_user", &pool.Result{Columns: []string{"current_user"}, Rows: rows([]any{"writer"})}},
		{"role_table_grants", &pool.Result{
			Columns: []string{"table_schema", "table_name", "privilege_type"},
			Rows:    rows([]any{"public", "users", "UPDATE"}),
		}},
	}}
	dangerous, err = intro.HasMutatingPrivileges(context.Background(), writer)
	if err != nil {
		t.Fatalf("HasMutatingPrivileges: %v", err)
	}
	if !dangerous {
		t.Error("writing role not reported as dangerous")
	}
}
