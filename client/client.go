package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"

	"github.com/memorialnav/candle-ledger"
)

const (
	defaultTimeout  = 3 * time.Second
	defaultCooldown = 24 * time.Hour
)

// ErrCoolingDown is returned without a round-trip while a known cooldown is running.
var ErrCoolingDown = errors.New("candle is cooling down")

type CoolingDownError struct {
	Remaining time.Duration
}

func (e CoolingDownError) Error() string {
	return fmt.Sprintf("candle is cooling down for another %s", e.Remaining.Round(time.Second))
}

func (e CoolingDownError) Unwrap() error {
	return ErrCoolingDown
}

// APIError is any non-200 answer the client has no better type for.
type APIError struct {
	StatusCode int
	Message    string
}

func (e APIError) Error() string {
	return fmt.Sprintf("candle api: %d %s", e.StatusCode, e.Message)
}

type Options struct {
	Token     string
	UserAgent string
	Timeout   time.Duration
}

type Client struct {
	client    *http.Client
	cooldowns *cache.Cache
	baseURL   string
	token     string
	userAgent string
	now       func() time.Time
}

func New(baseURL string, opts Options) *Client {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = "candle-ledger-client"
	}

	httpClient := http.Client{
		Timeout: timeout,
	}
	c := &Client{
		client:    &httpClient,
		cooldowns: cache.New(cache.NoExpiration, 10*time.Minute),
		baseURL:   strings.TrimRight(baseURL, "/"),
		token:     opts.Token,
		userAgent: userAgent,
		now:       time.Now,
	}
	httpClient.Transport = c
	return c
}

func (c *Client) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return http.DefaultTransport.RoundTrip(req)
}

func cooldownKey(graveID, userID string) string {
	return graveID + "/" + userID
}

// Remaining reports the locally known cooldown of a (grave, user) pair.
func (c *Client) Remaining(graveID, userID string) time.Duration {
	_, expires, ok := c.cooldowns.GetWithExpiration(cooldownKey(graveID, userID))
	if !ok || expires.IsZero() {
		return 0
	}
	return candle.RemainingCooldown(expires, c.now(), 0)
}

func (c *Client) Light(ctx context.Context, req candle.LightRequest) (*candle.LightResponse, error) {
	if remaining := c.Remaining(req.GraveID, req.UserID); remaining > 0 {
		return nil, CoolingDownError{Remaining: remaining}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "encode light request")
	}

	var res candle.LightResponse
	err = c.do(ctx, http.MethodPost, "/api/candles/light", bytes.NewReader(body), &res)
	if err != nil {
		var apiErr rateLimitedError
		if errors.As(err, &apiErr) {
			wait := time.Duration(apiErr.retryAfter) * time.Second
			if wait > 0 {
				c.cooldowns.Set(cooldownKey(req.GraveID, req.UserID), true, wait)
			}
			return nil, CoolingDownError{Remaining: wait}
		}
		return nil, err
	}

	c.cooldowns.Set(cooldownKey(req.GraveID, req.UserID), true, defaultCooldown)
	return &res, nil
}

func (c *Client) ListByGrave(ctx context.Context, graveID string) ([]candle.Candle, error) {
	var res candle.CandlesResponse
	err := c.do(ctx, http.MethodGet, "/api/candles/grave/"+url.PathEscape(graveID), nil, &res)
	if err != nil {
		return nil, err
	}
	return res.Candles, nil
}

func (c *Client) Count(ctx context.Context, graveType, graveID string) (int64, error) {
	var res candle.CandleCountResponse
	path := "/api/candles/candle-count/" + url.PathEscape(graveType) + "/" + url.PathEscape(graveID)
	if err := c.do(ctx, http.MethodGet, path, nil, &res); err != nil {
		return 0, err
	}
	return res.CandleCount, nil
}

type rateLimitedError struct {
	retryAfter int64
}

func (e rateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %ds", e.retryAfter)
}

func (c *Client) do(ctx context.Context, method, path string, body *bytes.Reader, response any) error {
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	}
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to perform request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errRes candle.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errRes)
		if resp.StatusCode == http.StatusForbidden && errRes.RetryAfter != nil {
			return rateLimitedError{retryAfter: *errRes.RetryAfter}
		}
		return APIError{StatusCode: resp.StatusCode, Message: errRes.Error}
	}

	if err := json.NewDecoder(resp.Body).Decode(response); err != nil {
		return errors.Wrap(err, "failed to decode response")
	}
	return nil
}
