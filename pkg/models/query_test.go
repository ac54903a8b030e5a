package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatRange(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{45 * time.Second, "45s"},
		{5 * time.Minute, "5m"},
		{time.Hour, "1h"},
		{36 * time.Hour, "36h"},
		{24 * time.Hour, "1d"},
		{7 * 24 * time.Hour, "7d"},
		{90 * time.Second, "90s"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatRange(tt.d))
		})
	}
}

func TestParseRange(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"30s", 30 * time.Second, false},
		{"5m", 5 * time.Minute, false},
		{"24h", 24 * time.Hour, false},
		{"7d", 7 * 24 * time.Hour, false},
		{"1d", 24 * time.Hour, false},
		{"", 0, true},
		{"soon", 0, true},
		{"xd", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRange(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDurationJSON(t *testing.T) {
	var cfg struct {
		Timeout Duration `json:"timeout"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"timeout": "30s"}`), &cfg))
	assert.Equal(t, 30*time.Second, time.Duration(cfg.Timeout))

	require.NoError(t, json.Unmarshal([]byte(`{"timeout": 1000000000}`), &cfg))
	assert.Equal(t, time.Second, time.Duration(cfg.Timeout))

	require.Error(t, json.Unmarshal([]byte(`{"timeout": true}`), &cfg))
	require.Error(t, json.Unmarshal([]byte(`{"timeout": "not-a-duration"}`), &cfg))

	out, err := json.Marshal(Duration(90 * time.Second))
	require.NoError(t, err)
	assert.Equal(t, `"1m30s"`, string(out))
}

func TestNormalizeSeverity(t *testing.T) {
	tests := []struct {
		in   string
		want Severity
	}{
		{"critical", SeverityCritical},
		{"sev0", SeverityCritical},
		{"Sev1", SeverityCritical},
		{"page", SeverityCritical},
		{"error", SeverityCritical},
		{"warning", SeverityWarning},
		{"warn", SeverityWarning},
		{"sev2", SeverityWarning},
		{"info", SeverityInfo},
		{"sev4", SeverityInfo},
		{"", SeverityInfo},
		{"mystery", SeverityInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeSeverity(tt.in))
		})
	}
}

func TestMetricSample_Service(t *testing.T) {
	m := MetricSample{Labels: map[string]string{"service": "checkout", "job": "scrape-1"}}
	assert.Equal(t, "checkout", m.Service())

	m = MetricSample{Labels: map[string]string{"job": "scrape-1"}}
	assert.Equal(t, "scrape-1", m.Service())

	m = MetricSample{}
	assert.Equal(t, "unknown", m.Service())
}
