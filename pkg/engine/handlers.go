package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kestrelmon/kestrel/pkg/connector"
	"github.com/kestrelmon/kestrel/pkg/models"
	"github.com/kestrelmon/kestrel/pkg/nlp"
)

const (
	azureConnectorName = "azure_monitor"

	maxListedServices = 10
)

// handleAlerts fans the alert listing out and synthesizes over the union.
// An empty union is a distinct happy-path message, not an error.
func (e *Engine) handleAlerts(ctx context.Context, desc *models.QueryDescriptor) string {
	merged := connector.Merge(e.registry.AllAlerts(ctx))

	if len(merged) == 0 {
		return "Great news! No active alerts found in your monitoring systems."
	}

	return e.synthesizer.Respond(ctx, desc.Original, nil, merged, desc.TimeRange)
}

// handleHealth composes a fixed-format status report: each connector's
// online/offline state, a services-healthy line from the liveness metric and
// the aggregate alert count.
func (e *Engine) handleHealth(ctx context.Context) string {
	health := e.registry.HealthCheckAll(ctx)

	liveness := connector.Merge(e.registry.QueryAll(ctx, func(connector.Connector) (string, models.QueryOptions, bool) {
		return nlp.LivenessQuery, models.QueryOptions{}, true
	}))

	names := make([]string, 0, len(health))
	for name := range health {
		names = append(names, name)
	}

	sort.Strings(names)

	var b strings.Builder

	b.WriteString("System Health Status\n\nData Sources:\n")

	for _, name := range names {
		state := "Offline"
		if health[name] {
			state = "Online"
		}

		fmt.Fprintf(&b, "- %s: %s\n", displayName(name), state)
	}

	up := 0
	for i := range liveness {
		if liveness[i].Value == 1.0 {
			up++
		}
	}

	fmt.Fprintf(&b, "\nServices Status: %d/%d services are healthy\n", up, len(liveness))

	if alerts := connector.Merge(e.registry.AllAlerts(ctx)); len(alerts) > 0 {
		fmt.Fprintf(&b, "%d active alerts requiring attention", len(alerts))
	} else {
		b.WriteString("No active alerts")
	}

	return b.String()
}

// handleServices lists each connector's services, capped per connector.
func (e *Engine) handleServices(ctx context.Context) string {
	results := e.registry.AllServices(ctx)

	total := 0
	for _, services := range results {
		total += len(services)
	}

	if total == 0 {
		return "No services found in the monitoring systems. Please check your configuration."
	}

	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}

	sort.Strings(names)

	var b strings.Builder

	b.WriteString("Available Services:\n")

	sources := 0

	for _, name := range names {
		services := results[name]
		if len(services) == 0 {
			continue
		}

		sources++

		fmt.Fprintf(&b, "\n%s (%d services):\n", displayName(name), len(services))

		shown := services
		if len(shown) > maxListedServices {
			shown = shown[:maxListedServices]
		}

		for _, service := range shown {
			fmt.Fprintf(&b, "- %s\n", service)
		}

		if len(services) > maxListedServices {
			fmt.Fprintf(&b, "... and %d more\n", len(services)-maxListedServices)
		}
	}

	fmt.Fprintf(&b, "\nTotal: %d services across %d data sources", total, sources)

	return b.String()
}

// handleMetrics translates the descriptor per connector, fans out, merges
// and synthesizes. An empty merge produces the suggestions message.
func (e *Engine) handleMetrics(ctx context.Context, desc *models.QueryDescriptor) string {
	promql := nlp.TranslatePromQL(desc)

	opts := models.QueryOptions{
		TimeRange:   desc.TimeRange,
		Aggregation: desc.Aggregation,
	}

	merged := connector.Merge(e.registry.QueryAll(ctx, func(c connector.Connector) (string, models.QueryOptions, bool) {
		if c.Name() == azureConnectorName {
			// the cloud backend takes metric names, not PromQL
			if len(desc.Metrics) == 0 {
				return "", opts, false
			}

			return strings.Join(desc.Metrics, ","), opts, true
		}

		return promql, opts, true
	}))

	if len(merged) == 0 {
		return noDataResponse(desc)
	}

	return e.synthesizer.Respond(ctx, desc.Original, merged, nil, desc.TimeRange)
}

// noDataResponse states the miss and suggests what to check.
func noDataResponse(desc *models.QueryDescriptor) string {
	var suggestions []string

	if len(desc.Services) > 0 {
		suggestions = append(suggestions,
			fmt.Sprintf("Check if the service '%s' is running", strings.Join(desc.Services, ", ")))
	}

	if len(desc.Metrics) > 0 {
		suggestions = append(suggestions,
			fmt.Sprintf("Verify that metrics '%s' are being collected", strings.Join(desc.Metrics, ", ")))
	}

	base := fmt.Sprintf("No data found for your query: '%s'", desc.Original)

	if len(suggestions) == 0 {
		return base + "\n\nTry asking about available services or check system health."
	}

	var b strings.Builder

	b.WriteString(base)
	b.WriteString("\n\nSuggestions:\n")

	for _, s := range suggestions {
		fmt.Fprintf(&b, "- %s\n", s)
	}

	return strings.TrimRight(b.String(), "\n")
}

// displayName capitalizes a connector name for the report.
func displayName(name string) string {
	name = strings.ReplaceAll(name, "_", " ")
	if name == "" {
		return name
	}

	return strings.ToUpper(name[:1]) + name[1:]
}
