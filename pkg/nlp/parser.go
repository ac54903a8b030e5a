// Package nlp turns free text into structured query descriptors and merged
// backend results into user-facing prose.
package nlp

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kestrelmon/kestrel/pkg/llm"
	"github.com/kestrelmon/kestrel/pkg/models"
)

const (
	maxPromptServices = 20
	maxPromptMetrics  = 30
	maxCategoryHits   = 3

	intentTokens      = 300
	intentTemperature = 0.1
)

// metricCategories maps metric domains to the phrases that signal them.
var metricCategories = []struct {
	name     string
	patterns []string
}{
	{"cpu", []string{"cpu", "processor", "computation"}},
	{"memory", []string{"memory", "ram", "mem"}},
	{"disk", []string{"disk", "storage", "io", "filesystem"}},
	{"network", []string{"network", "net", "bandwidth", "traffic"}},
	{"latency", []string{"latency", "response time", "delay"}},
	{"throughput", []string{"throughput", "requests per second", "rps", "qps"}},
	{"errors", []string{"error", "failure", "exception", "fault"}},
}

var timePhrases = []struct {
	rng      time.Duration
	patterns []string
}{
	{time.Minute, []string{"last minute", "60s"}},
	{time.Hour, []string{"last hour", "hour ago"}},
	{24 * time.Hour, []string{"today", "last day", "day ago"}},
	{7 * 24 * time.Hour, []string{"this week", "last week", "week ago"}},
}

var (
	numericRangeRe = regexp.MustCompile(`(\d+)\s*(s|m|h|d)\b`)
	quotedRe       = regexp.MustCompile(`["']([^"']+)["']`)
)

// Parser converts a user question plus the registry's current enumerations
// into a QueryDescriptor. A deterministic pattern stage always produces a
// usable baseline; when a language-model client is present its structured
// reply overrides the baseline field by field. Parsing never fails.
type Parser struct {
	client llm.Client // nil disables the model stage
	logger *zap.Logger
}

// NewParser builds a parser. client may be nil.
func NewParser(client llm.Client, logger *zap.Logger) *Parser {
	return &Parser{
		client: client,
		logger: logger,
	}
}

// Parse builds the descriptor for one turn. Time range and aggregation
// always resolve to concrete defaults even with zero signal in the text.
func (p *Parser) Parse(ctx context.Context, text string, services, metrics []string) *models.QueryDescriptor {
	desc := p.baseline(text, services, metrics)

	if p.client == nil {
		return desc
	}

	override, err := p.modelIntent(ctx, text, services, metrics)
	if err != nil {
		p.logger.Debug("model intent stage degraded, using deterministic parse",
			zap.String("query", text),
			zap.Error(err))

		return desc
	}

	p.apply(desc, override, services, metrics)

	return desc
}

// baseline is the fast deterministic stage.
func (p *Parser) baseline(text string, services, metrics []string) *models.QueryDescriptor {
	lower := strings.ToLower(text)

	desc := &models.QueryDescriptor{
		Intent:      extractIntent(lower),
		Metrics:     extractMetrics(lower, metrics),
		Services:    extractServices(text, lower, services),
		TimeRange:   extractTimeRange(lower),
		Aggregation: extractAggregation(lower),
		Filters:     map[string]string{},
		Kind:        extractKind(lower),
		Original:    text,
	}

	return desc
}

func extractKind(lower string) models.QueryKind {
	switch {
	case strings.Contains(lower, "alert") || strings.Contains(lower, "alarm"):
		return models.KindAlerts
	case strings.Contains(lower, "health") || strings.Contains(lower, "status"):
		return models.KindHealth
	default:
		return models.KindMetrics
	}
}

func extractIntent(lower string) string {
	switch {
	case strings.Contains(lower, "alert") || strings.Contains(lower, "alarm"):
		return "alerts"
	case strings.Contains(lower, "health") || strings.Contains(lower, "status"):
		return "health"
	}

	for _, cat := range metricCategories {
		for _, pattern := range cat.patterns {
			if strings.Contains(lower, pattern) {
				return cat.name
			}
		}
	}

	return "unknown"
}

func extractMetrics(lower string, available []string) []string {
	seen := make(map[string]struct{})

	var matched []string

	add := func(name string) {
		if _, ok := seen[name]; !ok {
			seen[name] = struct{}{}
			matched = append(matched, name)
		}
	}

	// exact metric names mentioned in the text
	for _, metric := range available {
		if strings.Contains(lower, strings.ToLower(metric)) {
			add(metric)
		}
	}

	// category expansion, a few metrics per matched domain
	for _, cat := range metricCategories {
		if !containsAnyPhrase(lower, cat.patterns) {
			continue
		}

		hits := 0

		for _, metric := range available {
			if strings.Contains(strings.ToLower(metric), cat.name) {
				add(metric)

				hits++
				if hits == maxCategoryHits {
					break
				}
			}
		}
	}

	sort.Strings(matched)

	return matched
}

func extractServices(text, lower string, available []string) []string {
	seen := make(map[string]struct{})

	var matched []string

	add := func(name string) {
		if _, ok := seen[name]; !ok {
			seen[name] = struct{}{}
			matched = append(matched, name)
		}
	}

	for _, service := range available {
		if strings.Contains(lower, strings.ToLower(service)) {
			add(service)
		}
	}

	// quoted names match the enumeration exactly
	for _, m := range quotedRe.FindAllStringSubmatch(text, -1) {
		for _, service := range available {
			if service == m[1] {
				add(service)
			}
		}
	}

	sort.Strings(matched)

	return matched
}

func extractTimeRange(lower string) time.Duration {
	for _, phrase := range timePhrases {
		if containsAnyPhrase(lower, phrase.patterns) {
			return phrase.rng
		}
	}

	if m := numericRangeRe.FindStringSubmatch(lower); m != nil {
		if d, err := models.ParseRange(m[1] + m[2]); err == nil {
			return d
		}
	}

	return models.DefaultTimeRange
}

func extractAggregation(lower string) models.Aggregation {
	switch {
	case containsAnyPhrase(lower, []string{"average", "avg", "mean"}):
		return models.AggAvg
	case containsAnyPhrase(lower, []string{"sum", "total"}):
		return models.AggSum
	case containsAnyPhrase(lower, []string{"max", "maximum", "peak"}):
		return models.AggMax
	case containsAnyPhrase(lower, []string{"min", "minimum", "lowest"}):
		return models.AggMin
	default:
		return models.AggAvg
	}
}

func containsAnyPhrase(s string, phrases []string) bool {
	for _, phrase := range phrases {
		if strings.Contains(s, phrase) {
			return true
		}
	}

	return false
}

// modelIntent is the optional language-model stage. Its output is untrusted.
type modelIntent struct {
	Intent      string            `json:"intent"`
	Metrics     []string          `json:"metrics"`
	Services    []string          `json:"services"`
	TimeRange   string            `json:"time_range"`
	Aggregation string            `json:"aggregation"`
	QueryType   string            `json:"query_type"`
	Filters     map[string]string `json:"filters"`
}

func (p *Parser) modelIntent(ctx context.Context, text string, services, metrics []string) (*modelIntent, error) {
	prompt := intentPrompt(text, capped(services, maxPromptServices), capped(metrics, maxPromptMetrics))

	reply, err := p.client.Complete(ctx, llm.Request{
		System:      "You are a monitoring query analyzer. Return only valid JSON.",
		Prompt:      prompt,
		MaxTokens:   intentTokens,
		Temperature: intentTemperature,
	})
	if err != nil {
		return nil, err
	}

	raw := llm.ExtractJSON(reply)
	if raw == "" {
		return nil, errNoJSON
	}

	var intent modelIntent
	if err := json.Unmarshal([]byte(raw), &intent); err != nil {
		return nil, fmt.Errorf("%w: %w", errBadJSON, err)
	}

	return &intent, nil
}

// apply overrides baseline fields with the model's, field by field, only
// where present and non-empty. Names the registry does not enumerate are
// discarded so the descriptor never invents metrics or services.
func (p *Parser) apply(desc *models.QueryDescriptor, intent *modelIntent, services, metrics []string) {
	if intent.Intent != "" {
		desc.Intent = intent.Intent
	}

	if filtered := intersect(intent.Metrics, metrics); len(filtered) > 0 {
		desc.Metrics = filtered
	}

	if filtered := intersect(intent.Services, services); len(filtered) > 0 {
		desc.Services = filtered
	}

	if intent.TimeRange != "" {
		if d, err := models.ParseRange(intent.TimeRange); err == nil {
			desc.TimeRange = d
		}
	}

	switch models.Aggregation(intent.Aggregation) {
	case models.AggAvg, models.AggSum, models.AggMax, models.AggMin, models.AggRaw:
		desc.Aggregation = models.Aggregation(intent.Aggregation)
	}

	switch models.QueryKind(intent.QueryType) {
	case models.KindMetrics, models.KindAlerts, models.KindHealth, models.KindServices:
		desc.Kind = models.QueryKind(intent.QueryType)
	}

	for k, v := range intent.Filters {
		desc.Filters[k] = v
	}
}

func intersect(requested, available []string) []string {
	index := make(map[string]string, len(available))
	for _, name := range available {
		index[strings.ToLower(name)] = name
	}

	var out []string

	for _, name := range requested {
		if canonical, ok := index[strings.ToLower(name)]; ok {
			out = append(out, canonical)
		}
	}

	sort.Strings(out)

	return out
}

func capped(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}

	return items
}

func intentPrompt(query string, services, metrics []string) string {
	return fmt.Sprintf(`Analyze this monitoring query and extract structured information:

Query: %q

Available services: %s
Available metrics: %s

Extract and return JSON with:
- intent: main intent (cpu, memory, network, alerts, health, errors, performance)
- metrics: list of relevant metric names from available metrics
- services: list of relevant service names from available services
- time_range: time period (5m, 1h, 24h, etc.)
- aggregation: aggregation type (avg, sum, max, min, raw)
- query_type: type of query (metrics, alerts, health, services)
- filters: any additional filters as key-value pairs

Return only valid JSON.`,
		query,
		strings.Join(services, ", "),
		strings.Join(metrics, ", "))
}
