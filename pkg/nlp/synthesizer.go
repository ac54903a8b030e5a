package nlp

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kestrelmon/kestrel/pkg/llm"
	"github.com/kestrelmon/kestrel/pkg/models"
)

const (
	maxSummaryNames = 5
	maxSampleLines  = 3

	synthTokens      = 500
	synthTemperature = 0.3
)

// Synthesizer turns merged raw results into user-facing text. The
// language-model path is best-effort; any failure falls back to a
// deterministic sentence built from the counts alone.
type Synthesizer struct {
	client llm.Client // nil disables the model path
	logger *zap.Logger
}

// NewSynthesizer builds a synthesizer. client may be nil.
func NewSynthesizer(client llm.Client, logger *zap.Logger) *Synthesizer {
	return &Synthesizer{
		client: client,
		logger: logger,
	}
}

// Respond generates the reply for one turn's merged results.
func (s *Synthesizer) Respond(ctx context.Context, query string, metrics []models.MetricSample, alerts []models.AlertRecord, timeRange time.Duration) string {
	if s.client == nil {
		return Fallback(query, metrics, alerts)
	}

	prompt := s.buildPrompt(query, metrics, alerts, timeRange)

	reply, err := s.client.Complete(ctx, llm.Request{
		System:      "You are a monitoring assistant. Provide clear, concise responses about system metrics and alerts.",
		Prompt:      prompt,
		MaxTokens:   synthTokens,
		Temperature: synthTemperature,
	})
	if err != nil {
		s.logger.Warn("synthesis degraded to template response", zap.Error(err))
		return Fallback(query, metrics, alerts)
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		return Fallback(query, metrics, alerts)
	}

	return reply
}

// Fallback is the deterministic response used whenever model synthesis is
// unavailable. Never silence, never a raw error.
func Fallback(query string, metrics []models.MetricSample, alerts []models.AlertRecord) string {
	switch {
	case len(alerts) > 0:
		return fmt.Sprintf("Found %d active alerts. The most critical ones need attention.", len(alerts))
	case len(metrics) > 0:
		return fmt.Sprintf("Retrieved %d metrics for your query. The data shows recent activity across your monitored services.", len(metrics))
	default:
		return fmt.Sprintf("No data found for query '%s'. Please check if the services are running and metrics are available.", query)
	}
}

func (s *Synthesizer) buildPrompt(query string, metrics []models.MetricSample, alerts []models.AlertRecord, timeRange time.Duration) string {
	services := make(map[string]struct{})
	names := make(map[string]struct{})

	for i := range metrics {
		services[metrics[i].Service()] = struct{}{}
		names[metrics[i].Name] = struct{}{}
	}

	var b strings.Builder

	fmt.Fprintf(&b, "User asked: %q\n\n", query)
	fmt.Fprintf(&b, "Data summary:\n")
	fmt.Fprintf(&b, "- Found %d metrics\n", len(metrics))
	fmt.Fprintf(&b, "- Found %d alerts\n", len(alerts))
	fmt.Fprintf(&b, "- Services: %s\n", joinSorted(services, maxSummaryNames))
	fmt.Fprintf(&b, "- Metrics: %s\n", joinSorted(names, maxSummaryNames))
	fmt.Fprintf(&b, "- Time range: %s\n\n", models.FormatRange(timeRange))

	fmt.Fprintf(&b, "Sample metrics (showing first few):\n%s\n\n", formatSampleMetrics(metrics))
	fmt.Fprintf(&b, "Sample alerts (showing first few):\n%s\n\n", formatSampleAlerts(alerts))

	b.WriteString(`Generate a helpful, conversational response that:
1. Answers the user's question directly
2. Highlights important findings or anomalies
3. Suggests next steps if relevant
4. Keeps technical details accessible

Be concise but informative.`)

	return b.String()
}

func formatSampleMetrics(metrics []models.MetricSample) string {
	if len(metrics) == 0 {
		return "No metrics found."
	}

	if len(metrics) > maxSampleLines {
		metrics = metrics[:maxSampleLines]
	}

	lines := make([]string, 0, len(metrics))
	for i := range metrics {
		m := &metrics[i]
		lines = append(lines, fmt.Sprintf("- %s: %.2f %s (service: %s)", m.Name, m.Value, m.Unit, m.Service()))
	}

	return strings.Join(lines, "\n")
}

func formatSampleAlerts(alerts []models.AlertRecord) string {
	if len(alerts) == 0 {
		return "No active alerts."
	}

	if len(alerts) > maxSampleLines {
		alerts = alerts[:maxSampleLines]
	}

	lines := make([]string, 0, len(alerts))
	for i := range alerts {
		a := &alerts[i]
		lines = append(lines, fmt.Sprintf("- %s (%s): %s (service: %s)", a.Name, a.Severity, a.Description, a.Service))
	}

	return strings.Join(lines, "\n")
}

func joinSorted(set map[string]struct{}, limit int) string {
	items := make([]string, 0, len(set))
	for item := range set {
		items = append(items, item)
	}

	sort.Strings(items)

	if len(items) > limit {
		items = items[:limit]
	}

	return strings.Join(items, ", ")
}
