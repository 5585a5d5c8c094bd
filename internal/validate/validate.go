// Package validate gates raw SQL text before it can reach a tenant database.
// The check is syntactic: one statement per call, statement type on a fixed
// allow-list. It is a security boundary, not a sandbox — it does not inspect
// sub-clauses for writes hidden inside permitted constructs.
package validate

import (
	"strings"

	"github.com/xwb1989/sqlparser"
)

// Messages returned for the two rejection classes.
const (
	ErrMultipleQueries = "Multiple queries are not allowed"
	ErrNotAllowed      = "Only SELECT, DESCRIBE, SHOW, and EXPLAIN queries are allowed"
)

// Result is the outcome of validating one SQL text. Immutable once produced.
type Result struct {
	Valid         bool
	StatementType string // select, desc, show, or explain; empty when invalid
	Err           string // empty when valid
}

// Validate parses sqlText and enforces the single-statement and
// statement-type constraints.
func Validate(sqlText string) Result {
	pieces, err := sqlparser.SplitStatementToPieces(sqlText)
	if err != nil {
		return Result{Err: err.Error()}
	}
	if len(pieces) > 1 {
		return Result{Err: ErrMultipleQueries}
	}

	stmt, err := sqlparser.Parse(sqlText)
	if err != nil {
		return Result{Err: err.Error()}
	}

	switch stmt.(type) {
	case *sqlparser.Select, *sqlparser.Union, *sqlparser.ParenSelect:
		return Result{Valid: true, StatementType: "select"}
	case *sqlparser.Show:
		return Result{Valid: true, StatementType: "show"}
	case *sqlparser.OtherRead:
		// OtherRead covers DESCRIBE, DESC, and EXPLAIN; the leading keyword
		// tells them apart.
		return Result{Valid: true, StatementType: leadingReadKeyword(sqlText)}
	default:
		return Result{Err: ErrNotAllowed}
	}
}

func leadingReadKeyword(sqlText string) string {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(sqlText)))
	if len(fields) == 0 {
		return "explain"
	}
	switch fields[0] {
	case "desc", "describe":
		return "desc"
	default:
		return "explain"
	}
}
