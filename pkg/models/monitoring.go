// Package models pkg/models/monitoring.go
package models

import "time"

// Severity is the normalized alert severity. Backend-specific severities are
// mapped onto these three values at the connector boundary.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// MetricSample is a single data point returned by a connector.
type MetricSample struct {
	Name      string            `json:"name"`
	Value     float64           `json:"value"`
	Timestamp time.Time         `json:"timestamp"`
	Labels    map[string]string `json:"labels,omitempty"`
	Unit      string            `json:"unit,omitempty"`
}

// Service returns the originating service of the sample, preferring the
// service label over the scrape job.
func (m *MetricSample) Service() string {
	if s, ok := m.Labels["service"]; ok {
		return s
	}

	if j, ok := m.Labels["job"]; ok {
		return j
	}

	return "unknown"
}

// AlertRecord is a normalized active alert from any backend.
type AlertRecord struct {
	Name        string            `json:"name"`
	Severity    Severity          `json:"severity"`
	Description string            `json:"description,omitempty"`
	Service     string            `json:"service"`
	Timestamp   time.Time         `json:"timestamp"`
	Labels      map[string]string `json:"labels,omitempty"`
}

// NormalizeSeverity maps a backend severity string onto the three normalized
// values. Unknown severities map to info rather than failing.
func NormalizeSeverity(s string) Severity {
	switch s {
	case "critical", "sev0", "Sev0", "sev1", "Sev1", "page", "error":
		return SeverityCritical
	case "warning", "warn", "sev2", "Sev2":
		return SeverityWarning
	default:
		return SeverityInfo
	}
}
