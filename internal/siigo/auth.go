package siigo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/timbale/registration-service/internal/domain"
)

// tokenSafetyMargin is subtracted from the provider expiry so a token is
// refreshed before it can expire mid-flight.
const tokenSafetyMargin = 60 * time.Second

// defaultTokenTTL applies when the auth response carries no expiry.
const defaultTokenTTL = 1 * time.Hour

type authRequest struct {
	Username  string `json:"username"`
	AccessKey string `json:"access_key"`
}

type authResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

type cachedToken struct {
	value     string
	expiresAt time.Time
}

func (t cachedToken) valid() bool {
	return t.value != "" && time.Now().Before(t.expiresAt)
}

// Authenticate returns a Siigo access token, reusing the cached one while it
// is still valid. Concurrent callers needing a refresh share a single auth
// request. Fails with ErrAuthFailed once retries are exhausted or the
// provider rejects the credentials.
func (c *Client) Authenticate(ctx context.Context) (string, error) {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()
	if token.valid() {
		return token.value, nil
	}

	v, err, _ := c.group.Do("auth", func() (interface{}, error) {
		// Another caller may have refreshed while we waited for the flight.
		c.mu.Lock()
		token := c.token
		c.mu.Unlock()
		if token.valid() {
			return token.value, nil
		}

		fresh, err := c.requestToken(ctx)
		if err != nil {
			return "", err
		}

		c.mu.Lock()
		c.token = fresh
		c.mu.Unlock()

		c.log.Debugw("Siigo access token refreshed", "expires_at", fresh.expiresAt.Format(time.RFC3339))
		return fresh.value, nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrAuthFailed) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", domain.ErrAuthFailed, err)
	}

	return v.(string), nil
}

// requestToken posts the API credentials to the Siigo auth endpoint through
// the retry executor.
func (c *Client) requestToken(ctx context.Context) (cachedToken, error) {
	payload, err := json.Marshal(authRequest{Username: c.username, AccessKey: c.accessKey})
	if err != nil {
		return cachedToken{}, fmt.Errorf("failed to marshal auth request: %w", err)
	}

	var out authResponse
	err = c.exec.Do(ctx, "auth", func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth", bytes.NewReader(payload))
		if err != nil {
			return domain.NewBillingError(0, "failed to build auth request", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Partner-Id", c.partnerID)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("auth request failed: %w", err)
		}

		body, err := readBody(resp)
		if err != nil {
			return fmt.Errorf("failed to read auth response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return classifyResponse(resp, body)
		}

		if err := json.Unmarshal(body, &out); err != nil {
			return domain.NewBillingError(resp.StatusCode, "malformed auth response", err)
		}
		if out.AccessToken == "" {
			return domain.NewBillingError(resp.StatusCode, "auth response missing access token", nil)
		}
		return nil
	}, domain.ErrAuthFailed)
	if err != nil {
		return cachedToken{}, err
	}

	ttl := defaultTokenTTL
	if out.ExpiresIn > 0 {
		ttl = time.Duration(out.ExpiresIn) * time.Second
	}
	if ttl > tokenSafetyMargin {
		ttl -= tokenSafetyMargin
	}

	return cachedToken{
		value:     out.AccessToken,
		expiresAt: time.Now().Add(ttl),
	}, nil
}
