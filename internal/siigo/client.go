package siigo

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/timbale/registration-service/internal/domain"
	"github.com/timbale/registration-service/internal/retry"
	"github.com/timbale/registration-service/pkg/logger"

	"golang.org/x/sync/singleflight"
)

// Client is a typed wrapper around the Siigo HTTP API. It owns the access
// token lifecycle (lazy fetch, expiry-aware cache, single-flight refresh) and
// routes retryable calls through the shared retry executor.
type Client struct {
	baseURL    string
	partnerID  string
	username   string
	accessKey  string
	httpClient *http.Client
	exec       *retry.Executor
	log        *logger.Logger

	group singleflight.Group
	mu    sync.Mutex
	token cachedToken
}

// Config holds Siigo API access settings
type Config struct {
	BaseURL   string
	PartnerID string
	Username  string
	AccessKey string
}

// NewClient creates a new Siigo API client
func NewClient(cfg Config, exec *retry.Executor, log *logger.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.siigo.com"
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		partnerID:  cfg.PartnerID,
		username:   cfg.Username,
		accessKey:  cfg.AccessKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		exec:       exec,
		log:        log,
	}
}

// createHeaders assembles the headers every authenticated Siigo call carries
func (c *Client) createHeaders(req *http.Request, token string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Partner-Id", c.partnerID)
}

// errorResponse is the error envelope Siigo returns on failed calls
type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// providerMessage extracts the human-readable message from an error body
func providerMessage(body []byte) string {
	var envelope errorResponse
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Message != "" {
			return envelope.Message
		}
		if envelope.Error != "" {
			return envelope.Error
		}
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = "no error detail provided"
	}
	return msg
}

// classifyResponse maps a non-2xx Siigo response to the error taxonomy:
// 429 becomes a RateLimitError with the Retry-After hint, other 4xx become a
// non-retryable BillingError carrying the provider message, and everything
// else (5xx) stays a plain error so the executor retries it.
func classifyResponse(resp *http.Response, body []byte) error {
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return &domain.RateLimitError{RetryAfter: retryAfterHint(resp)}
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return domain.NewBillingError(resp.StatusCode, providerMessage(body), nil)
	default:
		return fmt.Errorf("siigo returned status %d: %s", resp.StatusCode, providerMessage(body))
	}
}

// retryAfterHint reads the Retry-After header as whole seconds; zero when the
// header is absent or malformed, in which case the executor's fixed delay
// applies.
func retryAfterHint(resp *http.Response) time.Duration {
	raw := resp.Header.Get("Retry-After")
	if raw == "" {
		return 0
	}
	seconds, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// readBody drains and closes a response body
func readBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}
