package pool

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// pgPool implements Pool for PostgreSQL using pgx. The statement budget is
// enforced server-side via the statement_timeout session parameter.
type pgPool struct {
	pool *pgxpool.Pool
}

func openPostgres(ctx context.Context, connString string, cfg Config) (Pool, error) {
	pc, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	pc.MaxConns = int32(cfg.MaxConns)
	pc.MaxConnIdleTime = cfg.IdleTimeout
	pc.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	if pc.ConnConfig.RuntimeParams == nil {
		pc.ConnConfig.RuntimeParams = map[string]string{}
	}
	pc.ConnConfig.RuntimeParams["statement_timeout"] =
		strconv.Itoa(int(cfg.StatementTimeout / time.Millisecond))

	p, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("connecting to PostgreSQL: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := p.Ping(pingCtx); err != nil {
		p.Close()
		return nil, fmt.Errorf("pinging PostgreSQL: %w", err)
	}

	return &pgPool{pool: p}, nil
}

func (p *pgPool) Dialect() Dialect {
	return DialectPostgres
}

func (p *pgPool) Query(ctx context.Context, sql string, args ...any) (*Result, error) {
	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	defer rows.Close()

	descs := rows.FieldDescriptions()
	cols := make([]string, len(descs))
	for i, d := range descs {
		cols[i] = d.Name
	}

	result := &Result{Columns: cols, Rows: [][]any{}}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		result.Rows = append(result.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return result, nil
}

func (p *pgPool) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *pgPool) Close() {
	p.pool.Close()
}
