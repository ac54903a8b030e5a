package connector

import "context"

const (
	maxSummaryServices = 50
	maxSummaryMetrics  = 100
)

// Summary is a capped view of what one connector can enumerate.
type Summary struct {
	Connector    string   `json:"connector"`
	Services     []string `json:"services"`
	MetricNames  []string `json:"metric_names"`
	ServiceCount int      `json:"service_count"`
	MetricCount  int      `json:"metric_count"`
	Error        string   `json:"error,omitempty"`
}

// Summarize enumerates services and metric names for one connector, capping
// each list. Enumeration failures produce an empty summary with the cause
// recorded, not an error.
func Summarize(ctx context.Context, c Connector) Summary {
	s := Summary{
		Connector:   c.Name(),
		Services:    []string{},
		MetricNames: []string{},
	}

	services, err := c.Services(ctx)
	if err != nil {
		s.Error = err.Error()
		return s
	}

	metrics, err := c.MetricNames(ctx)
	if err != nil {
		s.Error = err.Error()
		return s
	}

	s.ServiceCount = len(services)
	s.MetricCount = len(metrics)

	if len(services) > maxSummaryServices {
		services = services[:maxSummaryServices]
	}

	if len(metrics) > maxSummaryMetrics {
		metrics = metrics[:maxSummaryMetrics]
	}

	s.Services = services
	s.MetricNames = metrics

	return s
}
