package azure

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kestrelmon/kestrel/pkg/models"
)

// ActiveAlerts reads New and Acknowledged alerts from the Alerts Management
// API. Azure SevN severities are normalized; anything unmapped lands in the
// info bucket.
func (c *Connector) ActiveAlerts(ctx context.Context) ([]models.AlertRecord, error) {
	endpoint := fmt.Sprintf("%s/subscriptions/%s/providers/Microsoft.AlertsManagement/alerts",
		c.managementHost, c.config.SubscriptionID)

	params := url.Values{
		"api-version": {alertsAPIVersion},
		"alertState":  {"New,Acknowledged"},
	}

	resp, err := c.get(ctx, endpoint, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errAlertsQuery, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", errAlertsQuery, resp.StatusCode)
	}

	var payload struct {
		Value []struct {
			Properties struct {
				Essentials struct {
					AlertRule          string `json:"alertRule"`
					Severity           string `json:"severity"`
					TargetResourceName string `json:"targetResourceName"`
					FiredDateTime      string `json:"firedDateTime"`
					MonitorCondition   string `json:"monitorCondition"`
				} `json:"essentials"`
				Context struct {
					Description string `json:"description"`
				} `json:"context"`
			} `json:"properties"`
		} `json:"value"`
	}

	if err := decodeJSON(resp, &payload); err != nil {
		return nil, err
	}

	alerts := make([]models.AlertRecord, 0, len(payload.Value))

	for _, a := range payload.Value {
		essentials := a.Properties.Essentials

		name := essentials.AlertRule
		if name == "" {
			name = "Unknown"
		}

		service := essentials.TargetResourceName
		if service == "" {
			service = "unknown"
		}

		firedAt := time.Now()
		if t, err := time.Parse(time.RFC3339, essentials.FiredDateTime); err == nil {
			firedAt = t
		}

		alerts = append(alerts, models.AlertRecord{
			Name:        name,
			Severity:    models.NormalizeSeverity(strings.ToLower(essentials.Severity)),
			Description: a.Properties.Context.Description,
			Service:     service,
			Timestamp:   firedAt,
			Labels: map[string]string{
				"severity":          essentials.Severity,
				"monitor_condition": essentials.MonitorCondition,
				"target_resource":   essentials.TargetResourceName,
			},
		})
	}

	return alerts, nil
}

// convertUnit maps Azure Monitor units onto the shared unit vocabulary.
func convertUnit(unit string) string {
	switch unit {
	case "Percent":
		return "percent"
	case "Count":
		return "count"
	case "Bytes":
		return "bytes"
	case "Seconds":
		return "seconds"
	case "BytesPerSecond":
		return "bytes_per_second"
	case "CountPerSecond":
		return "per_second"
	case "Milliseconds":
		return "milliseconds"
	default:
		return strings.ToLower(unit)
	}
}
