package gateway

import (
	"context"
	"strings"

	"github.com/askdb/askdb/internal/pool"
)

// PreviewPageSize is the fixed number of rows per preview page.
const PreviewPageSize = 500

// WhereClause is a client-supplied filter fragment with parameter-bound
// values.
type WhereClause struct {
	Statement string `json:"statement"`
	Values    []any  `json:"values"`
}

// PreviewRequest pages through one table's rows.
type PreviewRequest struct {
	TenantID   string
	TableName  string
	PageNumber int
	Where      *WhereClause
	OrderBy    string
}

// Preview returns one page of rows from a table. The table and order-by
// identifiers are checked against the introspected catalog before being
// quoted into the statement; identifiers cannot be parameter-bound the way
// values can.
func (g *Gateway) Preview(ctx context.Context, req PreviewRequest) (*pool.Result, error) {
	if req.TenantID == "" {
		return nil, &InputError{Msg: "No database uuid provided"}
	}
	if req.TableName == "" {
		return nil, &InputError{Msg: "No table name provided"}
	}

	p, intro, err := g.pooled(ctx, req.TenantID)
	if err != nil {
		return nil, err
	}

	cat, err := intro.Introspect(ctx, p)
	if err != nil {
		return nil, &ExecutionError{Err: err}
	}

	schemaName, tableName, ok := cat.ResolveTable(req.TableName)
	if !ok {
		return nil, &InputError{Msg: "Unknown table: " + req.TableName}
	}
	if req.OrderBy != "" && !cat.Table(schemaName, tableName).HasColumn(req.OrderBy) {
		return nil, &InputError{Msg: "Unknown order by column: " + req.OrderBy}
	}

	sql, args := buildPreviewQuery(p.Dialect(), schemaName, tableName, req)
	data, err := p.Query(ctx, sql, args...)
	if err != nil {
		return nil, &ExecutionError{Err: err}
	}
	return data, nil
}

func buildPreviewQuery(d pool.Dialect, schemaName, tableName string, req PreviewRequest) (string, []any) {
	var b strings.Builder
	var args []any

	b.WriteString("SELECT * FROM ")
	b.WriteString(d.QuoteIdent(schemaName))
	b.WriteString(".")
	b.WriteString(d.QuoteIdent(tableName))

	if req.Where != nil && req.Where.Statement != "" {
		b.WriteString(" WHERE ")
		b.WriteString(req.Where.Statement)
		args = append(args, req.Where.Values...)
	}

	if req.OrderBy != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(d.QuoteIdent(req.OrderBy))
	}

	b.WriteString(" LIMIT ")
	b.WriteString(d.Placeholder(len(args) + 1))
	args = append(args, PreviewPageSize)

	page := req.PageNumber
	if page < 1 {
		page = 1
	}
	if offset := (page - 1) * PreviewPageSize; offset > 0 {
		b.WriteString(" OFFSET ")
		b.WriteString(d.Placeholder(len(args) + 1))
		args = append(args, offset)
	}

	return b.String(), args
}
