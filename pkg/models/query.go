package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// QueryKind selects which orchestration path a turn takes.
type QueryKind string

const (
	KindMetrics  QueryKind = "metrics"
	KindAlerts   QueryKind = "alerts"
	KindHealth   QueryKind = "health"
	KindServices QueryKind = "services"
)

// Aggregation is the requested aggregation over matched series.
type Aggregation string

const (
	AggAvg Aggregation = "avg"
	AggSum Aggregation = "sum"
	AggMax Aggregation = "max"
	AggMin Aggregation = "min"
	AggRaw Aggregation = "raw"
)

const (
	// DefaultTimeRange applies when the text carries no time signal.
	DefaultTimeRange = time.Hour
)

// QueryDescriptor is the structured form of a user question. It is built once
// per turn and never mutated afterwards.
type QueryDescriptor struct {
	Intent      string            `json:"intent"`
	Metrics     []string          `json:"metrics"`
	Services    []string          `json:"services"`
	TimeRange   time.Duration     `json:"time_range"`
	Aggregation Aggregation       `json:"aggregation"`
	Filters     map[string]string `json:"filters,omitempty"`
	Kind        QueryKind         `json:"query_type"`
	Original    string            `json:"original_query"`
}

// RangeString renders the time range in PromQL form (30s, 5m, 2h, 7d).
func (q *QueryDescriptor) RangeString() string {
	return FormatRange(q.TimeRange)
}

// FormatRange renders a duration the way monitoring systems spell ranges.
func FormatRange(d time.Duration) string {
	switch {
	case d >= 24*time.Hour && d%(24*time.Hour) == 0:
		return fmt.Sprintf("%dd", d/(24*time.Hour))
	case d >= time.Hour && d%time.Hour == 0:
		return fmt.Sprintf("%dh", d/time.Hour)
	case d >= time.Minute && d%time.Minute == 0:
		return fmt.Sprintf("%dm", d/time.Minute)
	default:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
}

// ParseRange parses a range string ("5m", "24h", "7d") into a duration.
// Day suffixes are handled here because time.ParseDuration does not.
func ParseRange(s string) (time.Duration, error) {
	if s == "" {
		return 0, errEmptyRange
	}

	if last := s[len(s)-1]; last == 'd' {
		var days int
		if _, err := fmt.Sscanf(s, "%dd", &days); err != nil {
			return 0, fmt.Errorf("%w: %s", errInvalidRange, s)
		}

		return time.Duration(days) * 24 * time.Hour, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", errInvalidRange, s)
	}

	return d, nil
}

// Duration is a wrapper around time.Duration for JSON unmarshaling.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
	case string:
		tmp, err := time.ParseDuration(value)
		if err != nil {
			return err
		}

		*d = Duration(tmp)
	default:
		return errInvalidDuration
	}

	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}
