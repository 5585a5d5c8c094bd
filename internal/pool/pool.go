// Package pool owns the process-wide registry of pooled database connections.
// Pools are keyed by dialect plus a hash of the resolved connection string and
// are created lazily on first use; they live for the lifetime of the process.
package pool

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Dialect identifies a supported SQL engine.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
)

// Placeholder returns the dialect's positional bind marker for the nth
// parameter (1-based).
func (d Dialect) Placeholder(n int) string {
	if d == DialectPostgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// QuoteIdent quotes an identifier for the dialect.
func (d Dialect) QuoteIdent(s string) string {
	if d == DialectPostgres {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return "`" + strings.ReplaceAll(s, "`", "``") + "`"
}

// DetectDialect determines the dialect from a connection string.
func DetectDialect(connString string) (Dialect, error) {
	switch {
	case strings.HasPrefix(connString, "postgres://"),
		strings.HasPrefix(connString, "postgresql://"):
		return DialectPostgres, nil
	case strings.HasPrefix(connString, "mysql://"):
		return DialectMySQL, nil
	case strings.Contains(connString, "host=") || strings.Contains(connString, "dbname="):
		// keyword/value form is a Postgres convention
		return DialectPostgres, nil
	case strings.Contains(connString, "@tcp("):
		return DialectMySQL, nil
	}
	return "", fmt.Errorf("cannot determine database dialect from connection string")
}

// Key identifies a pool in the registry. The connection string itself is never
// used as a map key; only its hash is retained.
type Key struct {
	Dialect Dialect
	Hash    string
}

// KeyFor derives the registry key for a dialect and connection string.
func KeyFor(d Dialect, connString string) Key {
	sum := sha256.Sum256([]byte(connString))
	return Key{Dialect: d, Hash: hex.EncodeToString(sum[:])}
}

func (k Key) String() string {
	return string(k.Dialect) + ":" + k.Hash
}

// Config bounds every pool the registry creates.
type Config struct {
	MaxConns         int
	ConnectTimeout   time.Duration
	IdleTimeout      time.Duration
	StatementTimeout time.Duration
}

// DefaultConfig returns the deployment defaults.
func DefaultConfig() Config {
	return Config{
		MaxConns:         20,
		ConnectTimeout:   5 * time.Second,
		IdleTimeout:      30 * time.Second,
		StatementTimeout: 30 * time.Second,
	}
}

// Result is an executed query's data in a fixed shape: column names from the
// driver's result metadata (so an empty result set keeps its columns) and
// rows as ordered value lists aligned to the column list.
type Result struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Pool is a read-only handle on a pooled database connection.
type Pool interface {
	Dialect() Dialect
	// Query executes a statement and collects the full result set.
	Query(ctx context.Context, sql string, args ...any) (*Result, error)
	Ping(ctx context.Context) error
	Close()
}
