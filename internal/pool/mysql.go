package pool

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// sqlPool implements Pool for MySQL over database/sql. MySQL has no session
// statement_timeout equivalent here, so the statement budget is enforced by
// wrapping every call in a context timeout.
type sqlPool struct {
	db          *sql.DB
	stmtTimeout time.Duration
}

func openMySQL(ctx context.Context, connString string, cfg Config) (Pool, error) {
	dsn, err := mysqlDSN(connString, cfg.ConnectTimeout)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening MySQL pool: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetConnMaxIdleTime(cfg.IdleTimeout)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging MySQL: %w", err)
	}

	return &sqlPool{db: db, stmtTimeout: cfg.StatementTimeout}, nil
}

// mysqlDSN converts a mysql:// URL or native DSN into a driver DSN with the
// connect timeout applied.
func mysqlDSN(connString string, connectTimeout time.Duration) (string, error) {
	if strings.HasPrefix(connString, "mysql://") {
		u, err := url.Parse(connString)
		if err != nil {
			return "", fmt.Errorf("parsing connection string: %w", err)
		}
		cfg := mysql.NewConfig()
		cfg.User = u.User.Username()
		cfg.Passwd, _ = u.User.Password()
		cfg.Net = "tcp"
		cfg.Addr = u.Host
		if u.Port() == "" {
			cfg.Addr = u.Hostname() + ":3306"
		}
		cfg.DBName = strings.TrimPrefix(u.Path, "/")
		cfg.Timeout = connectTimeout
		cfg.ParseTime = true
		return cfg.FormatDSN(), nil
	}

	cfg, err := mysql.ParseDSN(connString)
	if err != nil {
		return "", fmt.Errorf("parsing connection string: %w", err)
	}
	cfg.Timeout = connectTimeout
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

func (p *sqlPool) Dialect() Dialect {
	return DialectMySQL
}

func (p *sqlPool) Query(ctx context.Context, query string, args ...any) (*Result, error) {
	qctx, cancel := context.WithTimeout(ctx, p.stmtTimeout)
	defer cancel()

	rows, err := p.db.QueryContext(qctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading result columns: %w", err)
	}

	result := &Result{Columns: cols, Rows: [][]any{}}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return result, nil
}

func (p *sqlPool) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *sqlPool) Close() {
	p.db.Close()
}
