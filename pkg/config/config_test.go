package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelmon/kestrel/pkg/models"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "kestrel.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadAndValidate(t *testing.T) {
	path := writeConfig(t, `{
		"listen_addr": ":8080",
		"log_level": "debug",
		"query_timeout": "45s",
		"prometheus": {
			"url": "http://prometheus:9090"
		},
		"azure": {
			"subscription_id": "sub",
			"tenant_id": "tenant",
			"client_id": "client",
			"client_secret": "secret",
			"workspace_id": "ws"
		},
		"llm": {
			"api_key": "sk-test",
			"model": "gpt-4",
			"rate_window": "1m"
		},
		"session": {
			"db_path": "/var/lib/kestrel/sessions.db",
			"max_messages": 100,
			"retention": "48h"
		},
		"auth": {
			"enabled": true,
			"jwt_secret": "shhh"
		}
	}`)

	var cfg Config
	require.NoError(t, LoadAndValidate(path, &cfg))

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, 45*time.Second, time.Duration(cfg.QueryTimeout))
	assert.True(t, cfg.Prometheus.Complete())
	assert.True(t, cfg.Azure.Complete())
	assert.True(t, cfg.LLM.Complete())
	assert.Equal(t, 100, cfg.Session.MaxMessages)
	assert.Equal(t, 48*time.Hour, time.Duration(cfg.Session.Retention))
	assert.True(t, cfg.Auth.Enabled)
}

func TestLoadAndValidate_Defaults(t *testing.T) {
	path := writeConfig(t, `{"listen_addr": ":8080"}`)

	var cfg Config
	require.NoError(t, LoadAndValidate(path, &cfg))

	assert.Equal(t, 30*time.Second, time.Duration(cfg.QueryTimeout))
	assert.Equal(t, 50, cfg.Session.MaxMessages)
	assert.Equal(t, 24*time.Hour, time.Duration(cfg.Session.Retention))
	assert.Equal(t, 10, cfg.Session.HistoryLimit)
	assert.False(t, cfg.Prometheus.Complete())
	assert.False(t, cfg.Azure.Complete())
	assert.False(t, cfg.LLM.Complete())
}

func TestLoadAndValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing listen addr", `{}`},
		{"auth without secret", `{"listen_addr": ":8080", "auth": {"enabled": true}}`},
		{"broken json", `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg Config
			require.Error(t, LoadAndValidate(writeConfig(t, tt.content), &cfg))
		})
	}
}

func TestLoadFile_Missing(t *testing.T) {
	var cfg Config
	require.Error(t, LoadFile(filepath.Join(t.TempDir(), "absent.json"), &cfg))
}

func TestAzureConfig_PartialIsIncomplete(t *testing.T) {
	cfg := &AzureConfig{
		SubscriptionID: "sub",
		TenantID:       "tenant",
		ClientID:       "client",
	}

	assert.False(t, cfg.Complete(), "all four credential fields are required")

	cfg.ClientSecret = "secret"
	assert.True(t, cfg.Complete())
}

func TestDurationFieldsRejectBadValues(t *testing.T) {
	var cfg Config
	err := LoadAndValidate(writeConfig(t, `{"listen_addr": ":8080", "query_timeout": "soon"}`), &cfg)
	require.Error(t, err)

	var d models.Duration
	require.Error(t, d.UnmarshalJSON([]byte(`"soon"`)))
}
