package connector

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	defaultCallTimeout = 30 * time.Second
	healthTimeout      = 10 * time.Second
)

// Registry owns the configured connector set. The set is immutable after
// construction; health is recomputed fresh on every call so a stale
// "healthy" verdict from a prior turn is never acted on.
type Registry struct {
	connectors  []Connector
	callTimeout time.Duration
	logger      *zap.Logger
}

// NewRegistry builds a registry over the given connectors.
func NewRegistry(logger *zap.Logger, callTimeout time.Duration, connectors ...Connector) *Registry {
	if callTimeout <= 0 {
		callTimeout = defaultCallTimeout
	}

	return &Registry{
		connectors:  connectors,
		callTimeout: callTimeout,
		logger:      logger,
	}
}

// Names returns the names of all configured connectors.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.connectors))
	for _, c := range r.connectors {
		names = append(names, c.Name())
	}

	return names
}

// Get returns the connector with the given name, or nil.
func (r *Registry) Get(name string) Connector {
	for _, c := range r.connectors {
		if c.Name() == name {
			return c
		}
	}

	return nil
}

// HealthCheckAll probes every configured connector concurrently. A probe
// that errors counts as unhealthy and never propagates.
func (r *Registry) HealthCheckAll(ctx context.Context) map[string]bool {
	results := make(map[string]bool, len(r.connectors))

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)

	for _, c := range r.connectors {
		wg.Add(1)

		go func(c Connector) {
			defer wg.Done()

			probeCtx, cancel := context.WithTimeout(ctx, healthTimeout)
			defer cancel()

			healthy, err := c.HealthCheck(probeCtx)
			if err != nil {
				r.logger.Warn("health check failed",
					zap.String("connector", c.Name()),
					zap.Error(err))

				healthy = false
			}

			mu.Lock()
			results[c.Name()] = healthy
			mu.Unlock()
		}(c)
	}

	wg.Wait()

	return results
}

// Healthy returns the connectors whose health probe, performed now, passed.
func (r *Registry) Healthy(ctx context.Context) []Connector {
	status := r.HealthCheckAll(ctx)

	healthy := make([]Connector, 0, len(r.connectors))

	for _, c := range r.connectors {
		if status[c.Name()] {
			healthy = append(healthy, c)
		}
	}

	return healthy
}

// FanOut runs op against every healthy connector concurrently, one
// outstanding call per connector, each under the registry's call timeout.
// The result map has exactly one entry per healthy connector; a failed call
// contributes that connector's zero value, never an aborted fan-out.
func FanOut[T any](ctx context.Context, r *Registry, op func(context.Context, Connector) (T, error)) map[string]T {
	healthy := r.Healthy(ctx)
	results := make(map[string]T, len(healthy))

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)

	for _, c := range healthy {
		wg.Add(1)

		go func(c Connector) {
			defer wg.Done()

			callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
			defer cancel()

			out, err := op(callCtx, c)
			if err != nil {
				r.logger.Warn("fan-out call failed",
					zap.String("connector", c.Name()),
					zap.Error(err))

				var zero T
				out = zero
			}

			mu.Lock()
			results[c.Name()] = out
			mu.Unlock()
		}(c)
	}

	wg.Wait()

	return results
}

