package connector

import (
	"time"

	"go.uber.org/zap"

	"github.com/kestrelmon/kestrel/pkg/config"
	"github.com/kestrelmon/kestrel/pkg/connector/azure"
	"github.com/kestrelmon/kestrel/pkg/connector/prometheus"
)

// NewFromConfig builds the registry from whatever backends are fully
// configured. A connector with partial settings is silently omitted rather
// than failing startup.
func NewFromConfig(cfg *config.Config, logger *zap.Logger) *Registry {
	var connectors []Connector

	if cfg.Prometheus.Complete() {
		connectors = append(connectors, prometheus.New(prometheus.Config{
			BaseURL:  cfg.Prometheus.URL,
			Username: cfg.Prometheus.Username,
			Password: cfg.Prometheus.Password,
		}, logger))

		logger.Info("prometheus connector initialized", zap.String("url", cfg.Prometheus.URL))
	}

	if cfg.Azure.Complete() {
		connectors = append(connectors, azure.New(azure.Config{
			SubscriptionID: cfg.Azure.SubscriptionID,
			TenantID:       cfg.Azure.TenantID,
			ClientID:       cfg.Azure.ClientID,
			ClientSecret:   cfg.Azure.ClientSecret,
			WorkspaceID:    cfg.Azure.WorkspaceID,
		}, logger))

		logger.Info("azure monitor connector initialized")
	}

	if len(connectors) == 0 {
		logger.Warn("no monitoring connectors configured")
	}

	return NewRegistry(logger, time.Duration(cfg.QueryTimeout), connectors...)
}
