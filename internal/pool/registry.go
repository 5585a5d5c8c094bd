package pool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/askdb/askdb/internal/telemetry"
)

// ErrPoolNotInitialized is returned by Lookup when no pool exists for the key.
var ErrPoolNotInitialized = errors.New("pool has not been created yet")

// OpenFunc constructs a pool for a dialect and connection string.
type OpenFunc func(ctx context.Context, d Dialect, connString string, cfg Config) (Pool, error)

// Registry owns all live pools, keyed by (dialect, connection-string hash).
// Creation is guarded per key by a single-flight group so concurrent
// first-time acquisitions for the same key share one construction attempt
// and never leak a duplicate pool.
type Registry struct {
	cfg    Config
	logger *slog.Logger
	sink   telemetry.Sink
	open   OpenFunc

	mu    sync.RWMutex
	pools map[Key]Pool
	group singleflight.Group
}

// Option configures the registry.
type Option func(*Registry)

// WithOpenFunc overrides pool construction. Used by tests.
func WithOpenFunc(fn OpenFunc) Option {
	return func(r *Registry) {
		r.open = fn
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg Config, logger *slog.Logger, sink telemetry.Sink, opts ...Option) *Registry {
	if sink == nil {
		sink = telemetry.NopSink{}
	}
	r := &Registry{
		cfg:    cfg,
		logger: logger,
		sink:   sink,
		open:   openPool,
		pools:  make(map[Key]Pool),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Acquire returns the pool for the key, creating it on first use. Repeated
// calls with an equal dialect and connection string return the same pool.
func (r *Registry) Acquire(ctx context.Context, d Dialect, connString string) (Pool, error) {
	key := KeyFor(d, connString)

	r.mu.RLock()
	p, ok := r.pools[key]
	r.mu.RUnlock()
	if ok {
		return p, nil
	}

	v, err, _ := r.group.Do(key.String(), func() (any, error) {
		// Re-check under the flight: a previous flight may have inserted.
		r.mu.RLock()
		p, ok := r.pools[key]
		r.mu.RUnlock()
		if ok {
			return p, nil
		}

		created, err := r.open(ctx, d, connString, r.cfg)
		if err != nil {
			r.sink.Emit(telemetry.Event{
				Message: "pool creation failed",
				Error:   err.Error(),
			})
			return nil, err
		}

		r.mu.Lock()
		r.pools[key] = created
		r.mu.Unlock()

		r.logger.Info("created connection pool", "dialect", d, "key", shortHash(key))
		return created, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Pool), nil
}

// Lookup returns the pool for the key without creating one.
func (r *Registry) Lookup(d Dialect, connString string) (Pool, error) {
	key := KeyFor(d, connString)

	r.mu.RLock()
	p, ok := r.pools[key]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrPoolNotInitialized
	}
	return p, nil
}

// Len reports the number of live pools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pools)
}

// Close closes every pool. Only called at process shutdown; pools are never
// evicted while the gateway is serving.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, p := range r.pools {
		p.Close()
		delete(r.pools, key)
	}
}

// openPool is the default OpenFunc dispatching on dialect.
func openPool(ctx context.Context, d Dialect, connString string, cfg Config) (Pool, error) {
	switch d {
	case DialectPostgres:
		return openPostgres(ctx, connString, cfg)
	case DialectMySQL:
		return openMySQL(ctx, connString, cfg)
	default:
		return nil, fmt.Errorf("unsupported dialect: %s", d)
	}
}

func shortHash(k Key) string {
	if len(k.Hash) > 8 {
		return k.Hash[:8]
	}
	return k.Hash
}
