package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/askdb/askdb/internal/credentials"
	"github.com/askdb/askdb/internal/nlsql"
	"github.com/askdb/askdb/internal/pool"
)

// fakeDB serves the introspection and data queries a Postgres tenant would.
type fakeDB struct {
	dialect  pool.Dialect
	queries  []string
	args     [][]any
	failNext int
	data     *pool.Result
}

func (f *fakeDB) Dialect() pool.Dialect { return f.dialect }
func (f *fakeDB) Ping(context.Context) error { return nil }
func (f *fakeDB) Close() {}

func (f *fakeDB) Query(ctx context.Context, sql string, args ...any) (*pool.Result, error) {
	f.queries = append(f.queries, sql)
	f.args = append(f.args, args)

	if strings.HasPrefix(sql, "SELECT") && !strings.Contains(sql, "information_schema") &&
		!strings.Contains(sql, "pg_catalog") && !strings.Contains(sql, "current_user") {
		if f.failNext > 0 {
			f.failNext--
			return nil, fmt.Errorf("relation does not exist")
		}
		if f.data != nil {
			return f.data, nil
		}
		return &pool.Result{Columns: []string{"id"}, Rows: [][]any{{int64(1)}}}, nil
	}

	switch {
	case strings.Contains(sql, "information_schema.schemata"):
		return &pool.Result{Columns: []string{"schema_name"}, Rows: [][]any{{"public"}}}, nil
	case strings.Contains(sql, "pg_catalog.pg_tables"):
		return &pool.Result{Columns: []string{"tablename"}, Rows: [][]any{{"users"}}}, nil
	case strings.Contains(sql, "FOREIGN KEY"):
		return &pool.Result{Columns: []string{"a", "b", "c", "d"}, Rows: [][]any{}}, nil
	case strings.Contains(sql, "character_maximum_length"):
		return &pool.Result{
			Columns: []string{"column_name", "data_type", "character_maximum_length"},
			Rows:    [][]any{{"id", "integer", nil}, {"email", "character varying", int64(255)}},
		}, nil
	case strings.Contains(sql, "information_schema.columns"):
		return &pool.Result{
			Columns: []string{"column_name", "data_type", "is_nullable"},
			Rows:    [][]any{{"id", "integer", "NO"}, {"email", "character varying", "YES"}},
		}, nil
	case strings.Contains(sql, "current_user"):
		return &pool.Result{Columns: []string{"current_user"}, Rows: [][]any{{"reader"}}}, nil
	case strings.Contains(sql, "role_table_grants"):
		return &pool.Result{Columns: []string{"s", "t", "p"}, Rows: [][]any{}}, nil
	}
	return nil, fmt.Errorf("unexpected query: %s", sql)
}

type stubCompleter struct {
	outputs []string
	calls   int
}

func (s *stubCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	s.calls++
	if s.calls > len(s.outputs) {
		return "", errors.New("no more scripted completions")
	}
	return s.outputs[s.calls-1], nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testGateway(t *testing.T, db *fakeDB, completer nlsql.Completer) *Gateway {
	t.Helper()
	resolver := credentials.NewStaticResolver(map[string]string{
		"tenant-1": "postgres://reader:pw@db.internal/app",
	})
	registry := pool.NewRegistry(pool.DefaultConfig(), discardLogger(), nil, pool.WithOpenFunc(
		func(ctx context.Context, d pool.Dialect, connString string, cfg pool.Config) (pool.Pool, error) {
			return db, nil
		}))
	orch := nlsql.NewOrchestrator(completer, discardLogger())
	return New(resolver, registry, orch, discardLogger())
}

func TestGateway_Connect(t *testing.T) {
	db := &fakeDB{dialect: pool.DialectPostgres}
	g := testGateway(t, db, &stubCompleter{})

	res, err := g.Connect(context.Background(), "tenant-1")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if res.Schema.Table("public", "users") == nil {
		t.Error("catalog missing public.users")
	}
	if res.HasDangerousPermissions {
		t.Error("read-only role reported as dangerous")
	}
}

func TestGateway_Connect_NoTenant(t *testing.T) {
	g := testGateway(t, &fakeDB{dialect: pool.DialectPostgres}, &stubCompleter{})

	_, err := g.Connect(context.Background(), "")
	var inputErr *InputError
	if !errors.As(err, &inputErr) {
		t.Fatalf("error = %v, want InputError", err)
	}
	if inputErr.Msg != "No database uuid provided" {
		t.Errorf("message = %q", inputErr.Msg)
	}
}

func TestGateway_Connect_UnknownTenant(t *testing.T) {
	g := testGateway(t, &fakeDB{dialect: pool.DialectPostgres}, &stubCompleter{})

	_, err := g.Connect(context.Background(), "tenant-404")
	var credErr *CredentialError
	if !errors.As(err, &credErr) {
		t.Fatalf("error = %v, want CredentialError", err)
	}
	var notFound *credentials.NotFoundError
	if !errors.As(err, &notFound) {
		t.Errorf("error does not unwrap to NotFoundError: %v", err)
	}
}

func TestGateway_Query(t *testing.T) {
	db := &fakeDB{dialect: pool.DialectPostgres}
	g := testGateway(t, db, &stubCompleter{})

	res, err := g.Query(context.Background(), "tenant-1", "SELECT id FROM users")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if res.SQL != "SELECT id FROM users" {
		t.Errorf("result SQL = %q", res.SQL)
	}
	if len(res.Data.Rows) != 1 {
		t.Errorf("rows = %d, want 1", len(res.Data.Rows))
	}
}

func TestGateway_Query_RejectsUnsafeSQL(t *testing.T) {
	db := &fakeDB{dialect: pool.DialectPostgres}
	g := testGateway(t, db, &stubCompleter{})

	_, err := g.Query(context.Background(), "tenant-1", "DELETE FROM users")
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
	if len(db.queries) != 0 {
		t.Error("rejected SQL still reached the database")
	}
}

func TestGateway_Query_MissingInput(t *testing.T) {
	g := testGateway(t, &fakeDB{dialect: pool.DialectPostgres}, &stubCompleter{})

	for _, tc := range []struct{ tenant, sql string }{
		{"", "SELECT 1"},
		{"tenant-1", ""},
	} {
		_, err := g.Query(context.Background(), tc.tenant, tc.sql)
		var inputErr *InputError
		if !errors.As(err, &inputErr) {
			t.Errorf("Query(%q, %q) error = %v, want InputError", tc.tenant, tc.sql, err)
		}
	}
}

func TestGateway_Ask(t *testing.T) {
	db := &fakeDB{dialect: pool.DialectPostgres}
	completer := &stubCompleter{outputs: []string{"SELECT count(*) FROM users"}}
	g := testGateway(t, db, completer)

	res, err := g.Ask(context.Background(), "tenant-1", "users", "how many users?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if res.SQL != "SELECT count(*) FROM users" {
		t.Errorf("result SQL = %q", res.SQL)
	}
}

func TestGateway_Ask_InvalidGeneratedSQL(t *testing.T) {
	db := &fakeDB{dialect: pool.DialectPostgres}
	completer := &stubCompleter{outputs: []string{"DROP TABLE users"}}
	g := testGateway(t, db, completer)

	_, err := g.Ask(context.Background(), "tenant-1", "users", "how many users?")
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
	if validationErr.Msg != "Sorry, that query wasn't valid!" {
		t.Errorf("message = %q", validationErr.Msg)
	}
	if completer.calls != 1 {
		t.Errorf("completer called %d times after invalid SQL, want 1", completer.calls)
	}
}

func TestGateway_Ask_RegeneratesOnExecFailure(t *testing.T) {
	db := &fakeDB{dialect: pool.DialectPostgres, failNext: 1}
	completer := &stubCompleter{outputs: []string{
		"SELECT nope FROM users",
		"SELECT count(*) FROM users",
	}}
	g := testGateway(t, db, completer)

	res, err := g.Ask(context.Background(), "tenant-1", "users", "how many users?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if res.SQL != "SELECT count(*) FROM users" {
		t.Errorf("result SQL = %q", res.SQL)
	}
	if completer.calls != 2 {
		t.Errorf("completer called %d times, want 2", completer.calls)
	}
}
