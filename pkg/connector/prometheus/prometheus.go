// Package prometheus implements the connector contract over the Prometheus
// HTTP API and, for alerts, the Alertmanager API with a query fallback.
package prometheus

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kestrelmon/kestrel/pkg/models"
)

const (
	connectorName = "prometheus"

	healthQuery        = "up"
	firingAlertsQuery  = `ALERTS{alertstate="firing"}`
	serviceGroupQuery  = `group by (job) ({__name__=~".+"})`
	defaultRequestTime = 30 * time.Second
	healthRequestTime  = 10 * time.Second
	defaultStep        = "30s"
)

// Config holds connection settings for one Prometheus instance.
type Config struct {
	BaseURL  string
	Username string
	Password string
}

// Connector talks to a Prometheus-compatible metrics API.
type Connector struct {
	config Config
	client *http.Client
	logger *zap.Logger
}

// New builds a Prometheus connector.
func New(config Config, logger *zap.Logger) *Connector {
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	return &Connector{
		config: config,
		client: &http.Client{
			Timeout: defaultRequestTime,
		},
		logger: logger,
	}
}

func (c *Connector) Name() string { return connectorName }

// HealthCheck issues an instant "up" query; any 200 response is healthy.
func (c *Connector) HealthCheck(ctx context.Context) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, healthRequestTime)
	defer cancel()

	params := url.Values{"query": {healthQuery}}

	resp, err := c.get(ctx, c.config.BaseURL+"/api/v1/query", params)
	if err != nil {
		return false, fmt.Errorf("%w: %w", errHealthCheck, err)
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK, nil
}

// QueryMetrics executes a PromQL query, instant by default or ranged when
// opts.Range is set.
func (c *Connector) QueryMetrics(ctx context.Context, query string, opts models.QueryOptions) ([]models.MetricSample, error) {
	var (
		endpoint string
		params   url.Values
	)

	if opts.Range {
		step := opts.Step
		if step == "" {
			step = defaultStep
		}

		end := time.Now()
		start := end.Add(-opts.EffectiveRange())

		endpoint = c.config.BaseURL + "/api/v1/query_range"
		params = url.Values{
			"query": {query},
			"start": {start.Format(time.RFC3339)},
			"end":   {end.Format(time.RFC3339)},
			"step":  {step},
		}
	} else {
		endpoint = c.config.BaseURL + "/api/v1/query"
		params = url.Values{"query": {query}}
	}

	resp, err := c.get(ctx, endpoint, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errQuery, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", errQueryStatus, resp.StatusCode)
	}

	var payload queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %w", errDecode, err)
	}

	return c.parseQueryResponse(&payload)
}

// ActiveAlerts prefers the Alertmanager API and falls back to querying the
// firing-alerts selector directly.
func (c *Connector) ActiveAlerts(ctx context.Context) ([]models.AlertRecord, error) {
	alerts, err := c.alertmanagerAlerts(ctx)
	if err == nil {
		return alerts, nil
	}

	c.logger.Debug("alertmanager unavailable, falling back to ALERTS query", zap.Error(err))

	samples, err := c.QueryMetrics(ctx, firingAlertsQuery, models.QueryOptions{})
	if err != nil {
		return nil, err
	}

	alerts = make([]models.AlertRecord, 0, len(samples))

	for i := range samples {
		labels := samples[i].Labels

		alerts = append(alerts, models.AlertRecord{
			Name:        labelOr(labels, "alertname", "Unknown"),
			Severity:    models.NormalizeSeverity(labels["severity"]),
			Description: labels["description"],
			Service:     labelOr(labels, "service", labelOr(labels, "job", "unknown")),
			Timestamp:   time.Now(),
			Labels:      labels,
		})
	}

	return alerts, nil
}

// Services collects the distinct job labels across all series.
func (c *Connector) Services(ctx context.Context) ([]string, error) {
	samples, err := c.QueryMetrics(ctx, serviceGroupQuery, models.QueryOptions{})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})

	for i := range samples {
		if job := samples[i].Labels["job"]; job != "" {
			seen[job] = struct{}{}
		}
	}

	services := make([]string, 0, len(seen))
	for job := range seen {
		services = append(services, job)
	}

	sort.Strings(services)

	return services, nil
}

// MetricNames enumerates metric names via the label-values API.
func (c *Connector) MetricNames(ctx context.Context) ([]string, error) {
	resp, err := c.get(ctx, c.config.BaseURL+"/api/v1/label/__name__/values", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errQuery, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", errQueryStatus, resp.StatusCode)
	}

	var payload struct {
		Status string   `json:"status"`
		Data   []string `json:"data"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %w", errDecode, err)
	}

	return payload.Data, nil
}

func (c *Connector) get(ctx context.Context, endpoint string, params url.Values) (*http.Response, error) {
	if params != nil {
		endpoint = endpoint + "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, err
	}

	if c.config.Username != "" && c.config.Password != "" {
		req.SetBasicAuth(c.config.Username, c.config.Password)
	}

	return c.client.Do(req)
}

type queryResponse struct {
	Status string `json:"status"`
	Data   struct {
		ResultType string        `json:"resultType"`
		Result     []queryResult `json:"result"`
	} `json:"data"`
}

type queryResult struct {
	Metric map[string]string `json:"metric"`
	Value  []json.RawMessage `json:"value,omitempty"`
	Values [][]json.RawMessage `json:"values,omitempty"`
}

func (c *Connector) parseQueryResponse(payload *queryResponse) ([]models.MetricSample, error) {
	if payload.Status != "success" {
		return nil, fmt.Errorf("%w: status %q", errQueryStatus, payload.Status)
	}

	var samples []models.MetricSample

	for i := range payload.Data.Result {
		item := &payload.Data.Result[i]
		name := labelOr(item.Metric, "__name__", "unknown")

		if len(item.Value) == 2 {
			if s, ok := parsePoint(name, item.Metric, item.Value); ok {
				samples = append(samples, s)
			}
		}

		for _, pair := range item.Values {
			if s, ok := parsePoint(name, item.Metric, pair); ok {
				samples = append(samples, s)
			}
		}
	}

	return samples, nil
}

// parsePoint decodes one [timestamp, "value"] pair. Unparsable points are
// skipped, matching the lenient handling of NaN-ish strings upstream.
func parsePoint(name string, labels map[string]string, pair []json.RawMessage) (models.MetricSample, bool) {
	if len(pair) != 2 {
		return models.MetricSample{}, false
	}

	var ts float64
	if err := json.Unmarshal(pair[0], &ts); err != nil {
		return models.MetricSample{}, false
	}

	var raw string
	if err := json.Unmarshal(pair[1], &raw); err != nil {
		return models.MetricSample{}, false
	}

	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return models.MetricSample{}, false
	}

	return models.MetricSample{
		Name:      name,
		Value:     value,
		Timestamp: time.Unix(int64(ts), 0),
		Labels:    labels,
		Unit:      inferUnit(name),
	}, true
}

func labelOr(labels map[string]string, key, fallback string) string {
	if v, ok := labels[key]; ok && v != "" {
		return v
	}

	return fallback
}

// inferUnit guesses a unit from metric-name substrings.
func inferUnit(name string) string {
	lower := strings.ToLower(name)

	switch {
	case containsAny(lower, "bytes", "size", "memory"):
		return "bytes"
	case containsAny(lower, "duration", "time", "latency"):
		return "seconds"
	case containsAny(lower, "rate", "rps", "qps"):
		return "per_second"
	case containsAny(lower, "percent", "ratio"):
		return "percent"
	case containsAny(lower, "count", "total", "num"):
		return "count"
	default:
		return "unknown"
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}

	return false
}
