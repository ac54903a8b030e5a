package azure

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jpillora/backoff"
)

const (
	defaultLoginHost = "https://login.microsoftonline.com"

	// tokens are refreshed this long before their reported expiry
	refreshMargin = 5 * time.Minute

	tokenRetries = 3
)

// tokenSource acquires and caches a client-credentials bearer token.
type tokenSource struct {
	config    Config
	client    *http.Client
	loginHost string

	mu      sync.Mutex
	token   string
	expires time.Time
}

func newTokenSource(config Config, client *http.Client) *tokenSource {
	return &tokenSource{
		config:    config,
		client:    client,
		loginHost: defaultLoginHost,
	}
}

// Token returns a valid bearer token, reusing the cached one until the
// refresh margin is reached. Acquisition retries with jittered backoff.
func (t *tokenSource) Token(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.token != "" && time.Now().Before(t.expires) {
		return t.token, nil
	}

	b := &backoff.Backoff{
		Min:    250 * time.Millisecond,
		Max:    2 * time.Second,
		Jitter: true,
	}

	var lastErr error

	for attempt := 0; attempt < tokenRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(b.Duration()):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		token, expiresIn, err := t.acquire(ctx)
		if err != nil {
			lastErr = err
			continue
		}

		t.token = token
		t.expires = time.Now().Add(time.Duration(expiresIn)*time.Second - refreshMargin)

		return t.token, nil
	}

	return "", fmt.Errorf("%w: %w", errTokenAcquire, lastErr)
}

func (t *tokenSource) acquire(ctx context.Context) (token string, expiresIn int64, err error) {
	endpoint := fmt.Sprintf("%s/%s/oauth2/token", t.loginHost, t.config.TenantID)

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {t.config.ClientID},
		"client_secret": {t.config.ClientSecret},
		"resource":      {defaultManagementHost + "/"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, err
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("%w: status %d", errTokenStatus, resp.StatusCode)
	}

	var payload struct {
		AccessToken string      `json:"access_token"`
		ExpiresIn   json.Number `json:"expires_in"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", 0, err
	}

	if payload.AccessToken == "" {
		return "", 0, errEmptyToken
	}

	expiresIn, err = payload.ExpiresIn.Int64()
	if err != nil || expiresIn <= 0 {
		expiresIn = 3600
	}

	return payload.AccessToken, expiresIn, nil
}
