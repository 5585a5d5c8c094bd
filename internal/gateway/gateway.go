// Package gateway composes the credential resolver, pool registry,
// introspectors, validator, and NL→SQL orchestrator into the four operations
// the HTTP surface exposes: connect, preview, query, and ask.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/askdb/askdb/internal/catalog"
	"github.com/askdb/askdb/internal/credentials"
	"github.com/askdb/askdb/internal/nlsql"
	"github.com/askdb/askdb/internal/pool"
	"github.com/askdb/askdb/internal/validate"
)

// The fixed user-facing message for unsafe SQL; never echoes parser internals.
const invalidQueryMessage = "Sorry, that query wasn't valid!"

// Gateway is the core of the service, shared by all requests.
type Gateway struct {
	resolver credentials.Resolver
	registry *pool.Registry
	orch     *nlsql.Orchestrator
	logger   *slog.Logger
}

// New creates a gateway.
func New(resolver credentials.Resolver, registry *pool.Registry, orch *nlsql.Orchestrator, logger *slog.Logger) *Gateway {
	return &Gateway{
		resolver: resolver,
		registry: registry,
		orch:     orch,
		logger:   logger,
	}
}

// ConnectResult is the output of Connect.
type ConnectResult struct {
	Schema                  *catalog.Catalog `json:"schema"`
	HasDangerousPermissions bool             `json:"has_dangerous_permissions"`
}

// QueryResult is the fixed result shape for query and ask.
type QueryResult struct {
	SQL  string       `json:"sql"`
	Data *pool.Result `json:"data"`
}

// pooled resolves the tenant's credential and returns its pool and the
// introspector for the detected dialect.
func (g *Gateway) pooled(ctx context.Context, tenantID string) (pool.Pool, catalog.Introspector, error) {
	connString, err := g.resolver.Resolve(ctx, tenantID)
	if err != nil {
		return nil, nil, &CredentialError{Err: err}
	}

	dialect, err := pool.DetectDialect(connString)
	if err != nil {
		return nil, nil, &CredentialError{Err: fmt.Errorf("tenant %s: %w", tenantID, err)}
	}

	p, err := g.registry.Acquire(ctx, dialect, connString)
	if err != nil {
		return nil, nil, &PoolError{Err: err}
	}

	intro, err := catalog.For(dialect)
	if err != nil {
		return nil, nil, &PoolError{Err: err}
	}
	return p, intro, nil
}

// Connect introspects the tenant database and reports whether the resolved
// credential carries schema-mutating privileges.
func (g *Gateway) Connect(ctx context.Context, tenantID string) (*ConnectResult, error) {
	if tenantID == "" {
		return nil, &InputError{Msg: "No database uuid provided"}
	}

	p, intro, err := g.pooled(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	cat, err := intro.Introspect(ctx, p)
	if err != nil {
		return nil, &ExecutionError{Err: err}
	}

	dangerous, err := intro.HasMutatingPrivileges(ctx, p)
	if err != nil {
		return nil, &ExecutionError{Err: err}
	}

	return &ConnectResult{Schema: cat, HasDangerousPermissions: dangerous}, nil
}

// Query validates a literal SQL text and executes it against the tenant pool.
func (g *Gateway) Query(ctx context.Context, tenantID, sqlText string) (*QueryResult, error) {
	if tenantID == "" || sqlText == "" {
		return nil, &InputError{Msg: "No query or database uuid provided"}
	}

	if res := validate.Validate(sqlText); !res.Valid {
		return nil, &ValidationError{Msg: res.Err}
	}

	p, _, err := g.pooled(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	data, err := p.Query(ctx, sqlText)
	if err != nil {
		return nil, &ExecutionError{Err: err}
	}
	return &QueryResult{SQL: sqlText, Data: data}, nil
}

// Ask answers a natural-language question about one table.
func (g *Gateway) Ask(ctx context.Context, tenantID, tableName, question string) (*QueryResult, error) {
	if tenantID == "" || tableName == "" {
		return nil, &InputError{Msg: "Missing database uuid or table name"}
	}
	if question == "" {
		return nil, &InputError{Msg: "No question provided"}
	}

	p, intro, err := g.pooled(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	defs, err := intro.DescribeTable(ctx, p, tableName)
	if err != nil {
		return nil, &ExecutionError{Err: err}
	}
	stmt := catalog.CreateStatement(tableName, defs)

	answer, err := g.orch.Ask(ctx, p, []string{stmt}, question)
	if err != nil {
		var invalid *nlsql.InvalidSQLError
		if errors.As(err, &invalid) {
			g.logger.Warn("generated SQL rejected", "reason", invalid.Reason)
			return nil, &ValidationError{Msg: invalidQueryMessage}
		}
		return nil, &ExecutionError{Err: err}
	}

	return &QueryResult{SQL: answer.SQL, Data: answer.Data}, nil
}
