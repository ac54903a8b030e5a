package azure

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kestrelmon/kestrel/pkg/models"
)

var testConfig = Config{
	SubscriptionID: "sub-1",
	TenantID:       "tenant-1",
	ClientID:       "client-1",
	ClientSecret:   "secret",
	WorkspaceID:    "ws-1",
}

// newTestConnector wires the connector and its token source to the test
// server for every host.
func newTestConnector(t *testing.T, handler http.Handler) *Connector {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := New(testConfig, zap.NewNop())
	c.managementHost = srv.URL
	c.logAnalyticsHost = srv.URL
	c.token.loginHost = srv.URL

	return c
}

func TestTokenSource_CachesUntilMargin(t *testing.T) {
	var tokenCalls int32

	mux := http.NewServeMux()
	mux.HandleFunc("/tenant-1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&tokenCalls, 1)

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.Form.Get("grant_type"))
		assert.Equal(t, "client-1", r.Form.Get("client_id"))
		assert.Equal(t, "secret", r.Form.Get("client_secret"))

		_, _ = w.Write([]byte(`{"access_token": "tok-123", "expires_in": "3600"}`))
	})
	mux.HandleFunc("/subscriptions/sub-1", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"id": "/subscriptions/sub-1"}`))
	})

	c := newTestConnector(t, mux)

	for i := 0; i < 3; i++ {
		healthy, err := c.HealthCheck(context.Background())
		require.NoError(t, err)
		assert.True(t, healthy)
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&tokenCalls), "cached token serves repeat calls")
}

func TestTokenSource_RefreshesExpired(t *testing.T) {
	var tokenCalls int32

	mux := http.NewServeMux()
	mux.HandleFunc("/tenant-1/oauth2/token", func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&tokenCalls, 1)
		// expires_in below the refresh margin forces reacquisition
		_, _ = w.Write([]byte(`{"access_token": "tok-123", "expires_in": "60"}`))
	})
	mux.HandleFunc("/subscriptions/sub-1", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	c := newTestConnector(t, mux)

	for i := 0; i < 2; i++ {
		_, err := c.HealthCheck(context.Background())
		require.NoError(t, err)
	}

	assert.Equal(t, int32(2), atomic.LoadInt32(&tokenCalls))
}

func TestTokenSource_RetriesAcquisition(t *testing.T) {
	var tokenCalls int32

	mux := http.NewServeMux()
	mux.HandleFunc("/tenant-1/oauth2/token", func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&tokenCalls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		_, _ = w.Write([]byte(`{"access_token": "tok-123", "expires_in": "3600"}`))
	})
	mux.HandleFunc("/subscriptions/sub-1", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	c := newTestConnector(t, mux)

	healthy, err := c.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.True(t, healthy)
	assert.Equal(t, int32(2), atomic.LoadInt32(&tokenCalls))
}

func TestServices(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/tenant-1/oauth2/token", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"access_token": "tok-123", "expires_in": "3600"}`))
	})
	mux.HandleFunc("/subscriptions/sub-1/resources", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, resourcesAPIVersion, r.URL.Query().Get("api-version"))

		_, _ = w.Write([]byte(`{
			"value": [
				{"type": "Microsoft.Compute/virtualMachines", "name": "web-01"},
				{"type": "Microsoft.Sql/servers", "name": "orders-db"},
				{"type": "Microsoft.Compute/virtualMachines", "name": "web-01"}
			]
		}`))
	})

	c := newTestConnector(t, mux)

	services, err := c.Services(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"servers: orders-db", "virtualMachines: web-01"}, services)
}

func TestQueryMetrics_ResourceMetrics(t *testing.T) {
	const resourceID = "/subscriptions/sub-1/resourceGroups/rg/providers/Microsoft.Compute/virtualMachines/web-01"

	mux := http.NewServeMux()
	mux.HandleFunc("/tenant-1/oauth2/token", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"access_token": "tok-123", "expires_in": "3600"}`))
	})
	mux.HandleFunc(resourceID+"/providers/Microsoft.Insights/metrics", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "Percentage CPU", q.Get("metricnames"))
		assert.Equal(t, "Maximum", q.Get("aggregation"))
		assert.Contains(t, q.Get("timespan"), "/")

		_, _ = w.Write([]byte(`{
			"value": [
				{
					"name": {"value": "Percentage CPU"},
					"unit": "Percent",
					"timeseries": [
						{
							"metadatavalues": [{"name": {"value": "instance"}, "value": "vm-0"}],
							"data": [
								{"timeStamp": "2026-08-30T10:00:00Z", "maximum": 81.5},
								{"timeStamp": "2026-08-30T10:01:00Z"}
							]
						}
					]
				}
			]
		}`))
	})

	c := newTestConnector(t, mux)

	samples, err := c.QueryMetrics(context.Background(), "Percentage CPU", models.QueryOptions{
		ResourceID:  resourceID,
		TimeRange:   time.Hour,
		Aggregation: models.AggMax,
	})
	require.NoError(t, err)

	// the aggregate-less point is skipped
	require.Len(t, samples, 1)
	assert.Equal(t, "Percentage CPU", samples[0].Name)
	assert.InDelta(t, 81.5, samples[0].Value, 0.001)
	assert.Equal(t, "percent", samples[0].Unit)
	assert.Equal(t, "vm-0", samples[0].Labels["instance"])
	assert.Equal(t, "virtualMachines", samples[0].Labels["resource_type"])
}

func TestQueryMetrics_KQL(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/tenant-1/oauth2/token", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"access_token": "tok-123", "expires_in": "3600"}`))
	})
	mux.HandleFunc("/v1/workspaces/ws-1/query", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Heartbeat | count", body["query"])
		assert.Equal(t, "PT1H", body["timespan"])

		_, _ = w.Write([]byte(`{
			"tables": [
				{
					"columns": [
						{"name": "TimeGenerated", "type": "datetime"},
						{"name": "Computer", "type": "string"},
						{"name": "Count", "type": "long"}
					],
					"rows": [
						["2026-08-30T10:00:00Z", "web-01", 42]
					]
				}
			]
		}`))
	})

	c := newTestConnector(t, mux)

	samples, err := c.QueryMetrics(context.Background(), "Heartbeat | count", models.QueryOptions{TimeRange: time.Hour})
	require.NoError(t, err)

	require.Len(t, samples, 1)
	assert.Equal(t, "kql_result", samples[0].Name)
	assert.InDelta(t, 42, samples[0].Value, 0.001)
	assert.Equal(t, "web-01", samples[0].Labels["Computer"])
}

func TestQueryMetrics_KQLWithoutWorkspace(t *testing.T) {
	cfg := testConfig
	cfg.WorkspaceID = ""

	c := New(cfg, zap.NewNop())

	_, err := c.QueryMetrics(context.Background(), "Heartbeat | count", models.QueryOptions{})
	require.ErrorIs(t, err, errNoWorkspace)
}

func TestQueryMetrics_UnroutableQueryIsEmpty(t *testing.T) {
	c := New(testConfig, zap.NewNop())

	samples, err := c.QueryMetrics(context.Background(), "avg(up)", models.QueryOptions{})
	require.NoError(t, err)
	assert.Empty(t, samples)
}

func TestActiveAlerts(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/tenant-1/oauth2/token", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"access_token": "tok-123", "expires_in": "3600"}`))
	})
	mux.HandleFunc("/subscriptions/sub-1/providers/Microsoft.AlertsManagement/alerts",
		func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "New,Acknowledged", r.URL.Query().Get("alertState"))

			_, _ = w.Write([]byte(`{
				"value": [
					{
						"properties": {
							"essentials": {
								"alertRule": "VM CPU High",
								"severity": "Sev1",
								"targetResourceName": "web-01",
								"firedDateTime": "2026-08-30T10:00:00Z",
								"monitorCondition": "Fired"
							},
							"context": {"description": "CPU above 90% for 10 minutes"}
						}
					},
					{
						"properties": {
							"essentials": {
								"severity": "Sev3"
							},
							"context": {}
						}
					}
				]
			}`))
		})

	c := newTestConnector(t, mux)

	alerts, err := c.ActiveAlerts(context.Background())
	require.NoError(t, err)

	require.Len(t, alerts, 2)
	assert.Equal(t, "VM CPU High", alerts[0].Name)
	assert.Equal(t, models.SeverityCritical, alerts[0].Severity)
	assert.Equal(t, "web-01", alerts[0].Service)
	assert.Equal(t, "CPU above 90% for 10 minutes", alerts[0].Description)

	// missing fields default rather than drop the alert
	assert.Equal(t, "Unknown", alerts[1].Name)
	assert.Equal(t, "unknown", alerts[1].Service)
	assert.Equal(t, models.SeverityInfo, alerts[1].Severity)
}

func TestConvertUnit(t *testing.T) {
	assert.Equal(t, "percent", convertUnit("Percent"))
	assert.Equal(t, "bytes", convertUnit("Bytes"))
	assert.Equal(t, "per_second", convertUnit("CountPerSecond"))
	assert.Equal(t, "unspecified", convertUnit("Unspecified"))
}

func TestIsoDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{30 * time.Second, "PT1M"},
		{5 * time.Minute, "PT5M"},
		{time.Hour, "PT1H"},
		{36 * time.Hour, "PT36H"},
		{24 * time.Hour, "P1D"},
		{7 * 24 * time.Hour, "P7D"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, isoDuration(tt.d))
		})
	}
}

func TestAggregationKeyword(t *testing.T) {
	assert.Equal(t, "Average", aggregationKeyword(models.AggAvg))
	assert.Equal(t, "Total", aggregationKeyword(models.AggSum))
	assert.Equal(t, "Maximum", aggregationKeyword(models.AggMax))
	assert.Equal(t, "Minimum", aggregationKeyword(models.AggMin))
	assert.Equal(t, "Average", aggregationKeyword(models.AggRaw))
}
