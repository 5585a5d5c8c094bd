// Package nlsql turns a natural-language question into an executed SQL
// statement: build prompt, generate, validate, execute, with exactly one
// corrective regeneration cycle when execution fails at runtime.
package nlsql

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/askdb/askdb/internal/pool"
	"github.com/askdb/askdb/internal/validate"
)

// Executor runs a validated statement. Satisfied by pool.Pool.
type Executor interface {
	Query(ctx context.Context, sql string, args ...any) (*pool.Result, error)
}

// Answer is the orchestrator's result: the SQL that ran and its data.
type Answer struct {
	SQL  string
	Data *pool.Result
}

// InvalidSQLError reports generated SQL that failed the safety gate. A failed
// validation never triggers regeneration; only a runtime execution error does.
type InvalidSQLError struct {
	SQL    string
	Reason string
}

func (e *InvalidSQLError) Error() string {
	return "generated SQL failed validation: " + e.Reason
}

// ExecError reports a terminal execution failure after the one allowed
// regeneration cycle.
type ExecError struct {
	SQL string
	Err error
}

func (e *ExecError) Error() string {
	return "executing generated SQL: " + e.Err.Error()
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

// Orchestrator drives the generate-validate-execute-retry loop.
type Orchestrator struct {
	completer Completer
	logger    *slog.Logger
}

// NewOrchestrator creates an orchestrator over the given completer.
func NewOrchestrator(c Completer, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{completer: c, logger: logger}
}

// Ask answers a question against the given table description(s). On a first
// execution failure it regenerates once with the error appended to the
// prompt; a second failure is terminal.
func (o *Orchestrator) Ask(ctx context.Context, exec Executor, createStatements []string, question string) (*Answer, error) {
	prompt := PromptContext{CreateStatements: createStatements, Question: question}

	sql, err := o.completer.Complete(ctx, prompt.Render())
	if err != nil {
		return nil, fmt.Errorf("generating SQL: %w", err)
	}

	if res := validate.Validate(sql); !res.Valid {
		return nil, &InvalidSQLError{SQL: sql, Reason: res.Err}
	}

	data, execErr := exec.Query(ctx, sql)
	if execErr == nil {
		return &Answer{SQL: sql, Data: data}, nil
	}

	o.logger.Warn("generated SQL failed, regenerating once", "error", execErr)

	retry := PromptContext{
		CreateStatements: createStatements,
		Question:         question,
		PriorSQL:         sql,
		PriorError:       execErr.Error(),
	}

	fixed, err := o.completer.Complete(ctx, retry.Render())
	if err != nil {
		return nil, fmt.Errorf("regenerating SQL: %w", err)
	}

	if res := validate.Validate(fixed); !res.Valid {
		return nil, &InvalidSQLError{SQL: fixed, Reason: res.Err}
	}

	data, err = exec.Query(ctx, fixed)
	if err != nil {
		return nil, &ExecError{SQL: fixed, Err: err}
	}
	return &Answer{SQL: fixed, Data: data}, nil
}
