package connector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/kestrelmon/kestrel/pkg/models"
)

var errBackendDown = errors.New("backend down")

func newMock(ctrl *gomock.Controller, name string, healthy bool) *MockConnector {
	m := NewMockConnector(ctrl)
	m.EXPECT().Name().Return(name).AnyTimes()
	m.EXPECT().HealthCheck(gomock.Any()).Return(healthy, nil).AnyTimes()

	return m
}

func TestRegistry_Names(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	r := NewRegistry(zap.NewNop(), time.Second,
		newMock(ctrl, "prometheus", true),
		newMock(ctrl, "azure_monitor", true))

	assert.Equal(t, []string{"prometheus", "azure_monitor"}, r.Names())
	assert.NotNil(t, r.Get("prometheus"))
	assert.Nil(t, r.Get("datadog"))
}

func TestRegistry_HealthCheckAll(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	failing := NewMockConnector(ctrl)
	failing.EXPECT().Name().Return("azure_monitor").AnyTimes()
	failing.EXPECT().HealthCheck(gomock.Any()).Return(false, errBackendDown).AnyTimes()

	r := NewRegistry(zap.NewNop(), time.Second,
		newMock(ctrl, "prometheus", true),
		failing)

	status := r.HealthCheckAll(context.Background())

	assert.Equal(t, map[string]bool{
		"prometheus":    true,
		"azure_monitor": false,
	}, status)
}

func TestRegistry_HealthyExcludesUnreachable(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	r := NewRegistry(zap.NewNop(), time.Second,
		newMock(ctrl, "prometheus", true),
		newMock(ctrl, "azure_monitor", false))

	healthy := r.Healthy(context.Background())
	require.Len(t, healthy, 1)
	assert.Equal(t, "prometheus", healthy[0].Name())
}

func TestFanOut_FailureContributesZeroValue(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	good := newMock(ctrl, "prometheus", true)
	good.EXPECT().ActiveAlerts(gomock.Any()).Return([]models.AlertRecord{
		{Name: "HighCPU", Severity: models.SeverityCritical},
		{Name: "DiskFull", Severity: models.SeverityWarning},
	}, nil)

	bad := newMock(ctrl, "azure_monitor", true)
	bad.EXPECT().ActiveAlerts(gomock.Any()).Return(nil, errBackendDown)

	r := NewRegistry(zap.NewNop(), time.Second, good, bad)

	results := r.AllAlerts(context.Background())

	// one entry per healthy connector even when a call fails
	require.Len(t, results, 2)
	assert.Len(t, results["prometheus"], 2)
	assert.Empty(t, results["azure_monitor"])

	merged := Merge(results)
	assert.Len(t, merged, 2)
}

func TestFanOut_SkipsUnhealthy(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	good := newMock(ctrl, "prometheus", true)
	good.EXPECT().Services(gomock.Any()).Return([]string{"checkout"}, nil)

	// never queried, only health-probed
	down := newMock(ctrl, "azure_monitor", false)

	r := NewRegistry(zap.NewNop(), time.Second, good, down)

	results := r.AllServices(context.Background())

	require.Len(t, results, 1)
	assert.Equal(t, []string{"checkout"}, results["prometheus"])
}

func TestFanOut_SlowConnectorIsBounded(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	fast := newMock(ctrl, "prometheus", true)
	fast.EXPECT().ActiveAlerts(gomock.Any()).Return([]models.AlertRecord{{Name: "HighCPU"}}, nil)

	slow := newMock(ctrl, "azure_monitor", true)
	slow.EXPECT().ActiveAlerts(gomock.Any()).DoAndReturn(
		func(ctx context.Context) ([]models.AlertRecord, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})

	r := NewRegistry(zap.NewNop(), 50*time.Millisecond, fast, slow)

	start := time.Now()
	results := r.AllAlerts(context.Background())
	elapsed := time.Since(start)

	require.Len(t, results, 2)
	assert.Len(t, results["prometheus"], 1)
	assert.Empty(t, results["azure_monitor"])
	assert.Less(t, elapsed, 5*time.Second)
}

func TestQueryAll_TranslateSkip(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	prom := newMock(ctrl, "prometheus", true)
	prom.EXPECT().QueryMetrics(gomock.Any(), "up", gomock.Any()).
		Return([]models.MetricSample{{Name: "up", Value: 1}}, nil)

	// translate opts out of this connector, so QueryMetrics is never called
	azure := newMock(ctrl, "azure_monitor", true)

	r := NewRegistry(zap.NewNop(), time.Second, prom, azure)

	results := r.QueryAll(context.Background(), func(c Connector) (string, models.QueryOptions, bool) {
		if c.Name() != "prometheus" {
			return "", models.QueryOptions{}, false
		}

		return "up", models.QueryOptions{TimeRange: time.Hour}, true
	})

	require.Len(t, results, 2)
	assert.Len(t, results["prometheus"], 1)
	assert.Empty(t, results["azure_monitor"])
}
