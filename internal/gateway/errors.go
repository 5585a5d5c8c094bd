package gateway

// The error taxonomy the request boundary maps to status codes. User-visible
// messages never carry connection strings or parser internals; the telemetry
// sink receives full detail.

// InputError reports a missing or malformed request field.
type InputError struct {
	Msg string
}

func (e *InputError) Error() string { return e.Msg }

// CredentialError reports a tenant credential that could not be resolved.
type CredentialError struct {
	Err error
}

func (e *CredentialError) Error() string { return e.Err.Error() }
func (e *CredentialError) Unwrap() error { return e.Err }

// ValidationError reports SQL rejected by the safety gate.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// ExecutionError reports a database runtime failure.
type ExecutionError struct {
	Err error
}

func (e *ExecutionError) Error() string { return e.Err.Error() }
func (e *ExecutionError) Unwrap() error { return e.Err }

// PoolError reports a connection-level failure while materializing a pool.
type PoolError struct {
	Err error
}

func (e *PoolError) Error() string { return e.Err.Error() }
func (e *PoolError) Unwrap() error { return e.Err }
