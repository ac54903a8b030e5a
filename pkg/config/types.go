package config

import (
	"time"

	"github.com/kestrelmon/kestrel/pkg/models"
)

// PrometheusConfig holds settings for the Prometheus connector. The connector
// is only constructed when URL is set.
type PrometheusConfig struct {
	URL      string `json:"url"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

func (c *PrometheusConfig) Complete() bool {
	return c != nil && c.URL != ""
}

// AzureConfig holds settings for the Azure Monitor connector. All four
// credential fields are required; a partial set silently omits the connector.
type AzureConfig struct {
	SubscriptionID string `json:"subscription_id"`
	TenantID       string `json:"tenant_id"`
	ClientID       string `json:"client_id"`
	ClientSecret   string `json:"client_secret"`
	WorkspaceID    string `json:"workspace_id,omitempty"`
}

func (c *AzureConfig) Complete() bool {
	return c != nil &&
		c.SubscriptionID != "" &&
		c.TenantID != "" &&
		c.ClientID != "" &&
		c.ClientSecret != ""
}

// LLMConfig holds settings for the language-model client. The engine runs
// without it, on deterministic parsing and synthesis alone.
type LLMConfig struct {
	APIKey      string          `json:"api_key"`
	Model       string          `json:"model,omitempty"`
	BaseURL     string          `json:"base_url,omitempty"`
	MaxRequests int             `json:"max_requests,omitempty"` // per window
	RateWindow  models.Duration `json:"rate_window,omitempty"`
}

func (c *LLMConfig) Complete() bool {
	return c != nil && c.APIKey != ""
}

// SessionConfig controls the bounded conversation history store.
type SessionConfig struct {
	DBPath       string          `json:"db_path,omitempty"` // empty means in-memory
	MaxMessages  int             `json:"max_messages,omitempty"`
	Retention    models.Duration `json:"retention,omitempty"`
	HistoryLimit int             `json:"history_limit,omitempty"`
}

// AuthConfig controls optional bearer-token authentication on the API.
type AuthConfig struct {
	Enabled   bool   `json:"enabled"`
	JWTSecret string `json:"jwt_secret,omitempty"`
}

// Config is the top-level server configuration.
type Config struct {
	ListenAddr   string            `json:"listen_addr"`
	LogLevel     string            `json:"log_level,omitempty"`
	CORSOrigins  string            `json:"cors_origins,omitempty"`
	QueryTimeout models.Duration   `json:"query_timeout,omitempty"`
	Prometheus   *PrometheusConfig `json:"prometheus,omitempty"`
	Azure        *AzureConfig      `json:"azure,omitempty"`
	LLM          *LLMConfig        `json:"llm,omitempty"`
	Session      SessionConfig     `json:"session,omitempty"`
	Auth         AuthConfig        `json:"auth,omitempty"`
}

const (
	defaultQueryTimeout = 30 * time.Second
	defaultMaxMessages  = 50
	defaultRetention    = 24 * time.Hour
	defaultHistoryLimit = 10
)

// Validate applies defaults and checks required fields.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return errNoListenAddr
	}

	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		return errNoJWTSecret
	}

	if c.QueryTimeout == 0 {
		c.QueryTimeout = models.Duration(defaultQueryTimeout)
	}

	if c.Session.MaxMessages == 0 {
		c.Session.MaxMessages = defaultMaxMessages
	}

	if c.Session.Retention == 0 {
		c.Session.Retention = models.Duration(defaultRetention)
	}

	if c.Session.HistoryLimit == 0 {
		c.Session.HistoryLimit = defaultHistoryLimit
	}

	return nil
}
