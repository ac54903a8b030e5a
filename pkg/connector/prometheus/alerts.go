package prometheus

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kestrelmon/kestrel/pkg/models"
)

// alertmanagerAlerts reads active alerts from the Alertmanager API. The
// default Alertmanager port substitutes for the Prometheus one when the base
// URL carries it.
func (c *Connector) alertmanagerAlerts(ctx context.Context) ([]models.AlertRecord, error) {
	base := strings.Replace(c.config.BaseURL, ":9090", ":9093", 1)

	ctx, cancel := context.WithTimeout(ctx, healthRequestTime)
	defer cancel()

	resp, err := c.get(ctx, base+"/api/v1/alerts", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errAlertmanager, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", errAlertmanager, resp.StatusCode)
	}

	var payload struct {
		Data []struct {
			Labels      map[string]string `json:"labels"`
			Annotations map[string]string `json:"annotations"`
			StartsAt    string            `json:"startsAt"`
			Status      struct {
				State string `json:"state"`
			} `json:"status"`
		} `json:"data"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %w", errDecode, err)
	}

	alerts := make([]models.AlertRecord, 0, len(payload.Data))

	for _, a := range payload.Data {
		if a.Status.State != "active" {
			continue
		}

		description := a.Annotations["description"]
		if description == "" {
			description = a.Annotations["summary"]
		}

		startedAt := time.Now()
		if t, err := time.Parse(time.RFC3339, a.StartsAt); err == nil {
			startedAt = t
		}

		alerts = append(alerts, models.AlertRecord{
			Name:        labelOr(a.Labels, "alertname", "Unknown"),
			Severity:    models.NormalizeSeverity(a.Labels["severity"]),
			Description: description,
			Service:     labelOr(a.Labels, "service", labelOr(a.Labels, "job", "unknown")),
			Timestamp:   startedAt,
			Labels:      a.Labels,
		})
	}

	return alerts, nil
}
