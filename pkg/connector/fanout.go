package connector

import (
	"context"

	"github.com/kestrelmon/kestrel/pkg/models"
)

// QueryFunc translates a descriptor-level request into one connector's
// native query. Returning ok=false skips that connector.
type QueryFunc func(c Connector) (query string, opts models.QueryOptions, ok bool)

// AllAlerts gathers active alerts from every healthy connector.
func (r *Registry) AllAlerts(ctx context.Context) map[string][]models.AlertRecord {
	return FanOut(ctx, r, func(ctx context.Context, c Connector) ([]models.AlertRecord, error) {
		return c.ActiveAlerts(ctx)
	})
}

// AllServices gathers service enumerations from every healthy connector.
func (r *Registry) AllServices(ctx context.Context) map[string][]string {
	return FanOut(ctx, r, func(ctx context.Context, c Connector) ([]string, error) {
		return c.Services(ctx)
	})
}

// AllSummaries gathers capped service/metric summaries from every healthy
// connector.
func (r *Registry) AllSummaries(ctx context.Context) map[string]Summary {
	return FanOut(ctx, r, func(ctx context.Context, c Connector) (Summary, error) {
		return Summarize(ctx, c), nil
	})
}

// QueryAll translates the request per connector and fans the metric query
// out across all healthy connectors able to serve it.
func (r *Registry) QueryAll(ctx context.Context, translate QueryFunc) map[string][]models.MetricSample {
	return FanOut(ctx, r, func(ctx context.Context, c Connector) ([]models.MetricSample, error) {
		query, opts, ok := translate(c)
		if !ok {
			return nil, nil
		}

		return c.QueryMetrics(ctx, query, opts)
	})
}

// Merge flattens per-connector results into their union. A single backend's
// empty or failed response never blocks the others.
func Merge[T any](results map[string][]T) []T {
	var merged []T
	for _, items := range results {
		merged = append(merged, items...)
	}

	return merged
}
