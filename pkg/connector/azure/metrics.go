package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kestrelmon/kestrel/pkg/models"
)

// resourceMetrics queries the per-resource metrics endpoint. metricNames is
// a comma-separated list matching the API's metricnames parameter.
func (c *Connector) resourceMetrics(ctx context.Context, resourceID, metricNames string, opts models.QueryOptions) ([]models.MetricSample, error) {
	endpoint := fmt.Sprintf("%s%s/providers/Microsoft.Insights/metrics", c.managementHost, resourceID)

	end := time.Now().UTC()
	start := end.Add(-opts.EffectiveRange())

	params := url.Values{
		"api-version": {metricsAPIVersion},
		"metricnames": {metricNames},
		"timespan":    {start.Format(time.RFC3339) + "/" + end.Format(time.RFC3339)},
		"interval":    {"PT1M"},
		"aggregation": {aggregationKeyword(opts.Aggregation)},
	}

	resp, err := c.get(ctx, endpoint, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errMetricsQuery, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", errMetricsQuery, resp.StatusCode)
	}

	var payload metricsResponse
	if err := decodeJSON(resp, &payload); err != nil {
		return nil, err
	}

	return parseResourceMetrics(&payload, resourceID), nil
}

// kqlQuery runs a Log Analytics query. The canonical duration becomes an
// ISO8601 timespan at this boundary.
func (c *Connector) kqlQuery(ctx context.Context, query string, opts models.QueryOptions) ([]models.MetricSample, error) {
	if c.config.WorkspaceID == "" {
		return nil, errNoWorkspace
	}

	endpoint := fmt.Sprintf("%s/v1/workspaces/%s/query", c.logAnalyticsHost, c.config.WorkspaceID)

	body, err := json.Marshal(map[string]string{
		"query":    query,
		"timespan": isoDuration(opts.EffectiveRange()),
	})
	if err != nil {
		return nil, err
	}

	token, err := c.token.Token(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errLogQuery, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", errLogQuery, resp.StatusCode)
	}

	var payload kqlResponse
	if err := decodeJSON(resp, &payload); err != nil {
		return nil, err
	}

	return parseKQLResults(&payload), nil
}

type metricsResponse struct {
	Value []struct {
		Name struct {
			Value string `json:"value"`
		} `json:"name"`
		Unit       string `json:"unit"`
		Timeseries []struct {
			MetadataValues []struct {
				Name struct {
					Value string `json:"value"`
				} `json:"name"`
				Value string `json:"value"`
			} `json:"metadatavalues"`
			Data []metricPoint `json:"data"`
		} `json:"timeseries"`
	} `json:"value"`
}

type metricPoint struct {
	TimeStamp string   `json:"timeStamp"`
	Average   *float64 `json:"average,omitempty"`
	Maximum   *float64 `json:"maximum,omitempty"`
	Minimum   *float64 `json:"minimum,omitempty"`
	Total     *float64 `json:"total,omitempty"`
}

// value picks the aggregate present on the point, in priority order.
func (p *metricPoint) value() (float64, bool) {
	for _, v := range []*float64{p.Average, p.Maximum, p.Minimum, p.Total} {
		if v != nil {
			return *v, true
		}
	}

	return 0, false
}

func parseResourceMetrics(payload *metricsResponse, resourceID string) []models.MetricSample {
	var samples []models.MetricSample

	resourceType := "unknown"
	if parts := strings.Split(resourceID, "/"); len(parts) >= 2 {
		resourceType = parts[len(parts)-2]
	}

	for _, metric := range payload.Value {
		name := metric.Name.Value
		if name == "" {
			name = "unknown"
		}

		for _, series := range metric.Timeseries {
			labels := map[string]string{
				"resource_id":   resourceID,
				"resource_type": resourceType,
			}

			for _, dim := range series.MetadataValues {
				if dim.Name.Value != "" && dim.Value != "" {
					labels[dim.Name.Value] = dim.Value
				}
			}

			for i := range series.Data {
				point := &series.Data[i]

				ts, err := time.Parse(time.RFC3339, point.TimeStamp)
				if err != nil {
					continue
				}

				value, ok := point.value()
				if !ok {
					continue
				}

				sampleLabels := make(map[string]string, len(labels))
				for k, v := range labels {
					sampleLabels[k] = v
				}

				samples = append(samples, models.MetricSample{
					Name:      name,
					Value:     value,
					Timestamp: ts,
					Labels:    sampleLabels,
					Unit:      convertUnit(metric.Unit),
				})
			}
		}
	}

	return samples
}

type kqlResponse struct {
	Tables []struct {
		Columns []struct {
			Name string `json:"name"`
			Type string `json:"type"`
		} `json:"columns"`
		Rows [][]json.RawMessage `json:"rows"`
	} `json:"tables"`
}

// parseKQLResults maps tabular results onto samples using the first datetime
// column as timestamp and the first numeric column as value; remaining
// columns become labels.
func parseKQLResults(payload *kqlResponse) []models.MetricSample {
	var samples []models.MetricSample

	for _, table := range payload.Tables {
		timeCol, valueCol := -1, -1

		for i, col := range table.Columns {
			switch {
			case col.Type == "datetime" && timeCol < 0:
				timeCol = i
			case valueCol < 0 && isNumericColumn(col.Type) && !strings.Contains(strings.ToLower(col.Name), "time"):
				valueCol = i
			}
		}

		if timeCol < 0 || valueCol < 0 {
			continue
		}

		for _, row := range table.Rows {
			if len(row) <= timeCol || len(row) <= valueCol {
				continue
			}

			ts, ok := parseKQLTime(row[timeCol])
			if !ok {
				continue
			}

			value, ok := parseKQLNumber(row[valueCol])
			if !ok {
				continue
			}

			labels := make(map[string]string)

			for i, col := range table.Columns {
				if i == timeCol || i == valueCol || i >= len(row) {
					continue
				}

				labels[col.Name] = rawToString(row[i])
			}

			samples = append(samples, models.MetricSample{
				Name:      "kql_result",
				Value:     value,
				Timestamp: ts,
				Labels:    labels,
				Unit:      "count",
			})
		}
	}

	return samples
}

func isNumericColumn(t string) bool {
	return t == "real" || t == "long" || t == "int"
}

func parseKQLTime(raw json.RawMessage) (time.Time, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}, false
	}

	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}

	return ts, true
}

func parseKQLNumber(raw json.RawMessage) (float64, bool) {
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, false
	}

	return v, true
}

func rawToString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	return strings.Trim(string(raw), `"`)
}

func aggregationKeyword(agg models.Aggregation) string {
	switch agg {
	case models.AggSum:
		return "Total"
	case models.AggMax:
		return "Maximum"
	case models.AggMin:
		return "Minimum"
	default:
		return "Average"
	}
}

// isoDuration renders a duration as an ISO8601 period for timespan params.
func isoDuration(d time.Duration) string {
	hours := int(d.Hours())

	switch {
	case hours >= 24 && hours%24 == 0:
		return "P" + strconv.Itoa(hours/24) + "D"
	case hours >= 1:
		return "PT" + strconv.Itoa(hours) + "H"
	default:
		minutes := int(d.Minutes())
		if minutes < 1 {
			minutes = 1
		}

		return "PT" + strconv.Itoa(minutes) + "M"
	}
}

func decodeJSON(resp *http.Response, dst interface{}) error {
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: %w", errDecode, err)
	}

	return nil
}
