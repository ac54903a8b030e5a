package nlp

import (
	"fmt"
	"strings"

	"github.com/kestrelmon/kestrel/pkg/models"
)

const (
	// LivenessQuery is the canonical backend liveness metric.
	LivenessQuery = "up"

	// FiringAlertsQuery selects currently firing alert series.
	FiringAlertsQuery = `ALERTS{alertstate="firing"}`
)

// TranslatePromQL deterministically maps a descriptor onto a PromQL
// expression. Alerts and health intents resolve to their canonical
// selectors; metric domains prefer an exact metric-name match over a
// synthesized rate expression; the final fallback is the liveness metric.
func TranslatePromQL(desc *models.QueryDescriptor) string {
	if desc.Kind == models.KindAlerts || desc.Intent == "alerts" {
		return FiringAlertsQuery
	}

	if desc.Intent == "health" || strings.Contains(strings.ToLower(desc.Original), "health") {
		return LivenessQuery
	}

	base := baseExpression(desc)

	if len(desc.Services) > 0 {
		base = injectServiceFilter(base, desc.Services)
	}

	if desc.Aggregation != "" && desc.Aggregation != models.AggRaw {
		base = wrapAggregation(base, desc.Aggregation, len(desc.Services) > 0)
	}

	return base
}

func baseExpression(desc *models.QueryDescriptor) string {
	switch {
	case desc.Intent == "cpu" || metricsMention(desc.Metrics, "cpu"):
		if contains(desc.Metrics, "cpu_usage_percent") {
			return "cpu_usage_percent"
		}

		return "rate(cpu_seconds_total[5m]) * 100"
	case desc.Intent == "memory" || metricsMention(desc.Metrics, "memory"):
		if contains(desc.Metrics, "memory_usage_percent") {
			return "memory_usage_percent"
		}

		return "memory_working_set_bytes"
	case desc.Intent == "network" || metricsMention(desc.Metrics, "network"):
		return "rate(network_receive_bytes_total[5m])"
	case len(desc.Metrics) > 0:
		return desc.Metrics[0]
	default:
		return LivenessQuery
	}
}

// injectServiceFilter adds a regex-alternation job matcher, inserted into
// existing label braces or appended as new ones.
func injectServiceFilter(expr string, services []string) string {
	filter := fmt.Sprintf(`job=~"%s"`, strings.Join(services, "|"))

	if idx := strings.Index(expr, "{"); idx >= 0 {
		return expr[:idx+1] + filter + "," + expr[idx+1:]
	}

	return expr + "{" + filter + "}"
}

func wrapAggregation(expr string, agg models.Aggregation, byService bool) string {
	fn := string(agg)

	switch agg {
	case models.AggAvg, models.AggSum, models.AggMax, models.AggMin:
	default:
		fn = string(models.AggAvg)
	}

	if byService {
		return fmt.Sprintf("%s by (job) (%s)", fn, expr)
	}

	return fmt.Sprintf("%s(%s)", fn, expr)
}

func metricsMention(metrics []string, substr string) bool {
	for _, m := range metrics {
		if strings.Contains(strings.ToLower(m), substr) {
			return true
		}
	}

	return false
}

func contains(items []string, target string) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}

	return false
}
