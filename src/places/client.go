// Package places proxies Google Places Nearby Search for the map views.
package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const maxUpstreamBody = 4 << 20

type (
	// Recorder receives upstream outcomes; the metrics package implements it.
	Recorder interface {
		UpstreamRequest(status string)
		CacheHit()
	}

	Options struct {
		BaseURL  string
		APIKey   string
		Timeout  time.Duration
		Cache    Cache
		CacheTTL time.Duration
		Recorder Recorder
		Logger   *zap.Logger
		// HTTPClient overrides the pooled default client.
		HTTPClient *http.Client
	}

	Client struct {
		baseURL  string
		apiKey   string
		timeout  time.Duration
		cache    Cache
		cacheTTL time.Duration
		recorder Recorder
		logger   *zap.Logger
		http     *http.Client
	}

	nopRecorder struct{}
)

func (nopRecorder) UpstreamRequest(string) {}
func (nopRecorder) CacheHit()              {}

func NewClient(opts Options) *Client {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		}}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	recorder := opts.Recorder
	if recorder == nil {
		recorder = nopRecorder{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:  opts.BaseURL,
		apiKey:   opts.APIKey,
		timeout:  timeout,
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
		recorder: recorder,
		logger:   logger,
		http:     client,
	}
}

// Nearby runs a Nearby Search. ZERO_RESULTS is a successful empty answer;
// every other non-OK status becomes an *UpstreamError.
func (c *Client) Nearby(ctx context.Context, args NearbyArgs) (*NearbyResponse, error) {
	target, err := BuildNearbySearchURL(c.baseURL, c.apiKey, args)
	if err != nil {
		return nil, err
	}

	key := cacheKey(args)
	if resp, ok := c.fromCache(key); ok {
		c.recorder.CacheHit()
		resp.Results = FilterMinRating(resp.Results, args.MinRating)
		return resp, nil
	}

	resp, err := c.fetch(ctx, target)
	if err != nil {
		return nil, err
	}
	c.toCache(key, resp)
	resp.Results = FilterMinRating(resp.Results, args.MinRating)
	return resp, nil
}

func (c *Client) fetch(ctx context.Context, target string) (*NearbyResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("prepare places request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		c.recorder.UpstreamRequest("transport_error")
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("places request timed out: %w", context.DeadlineExceeded)
		}
		return nil, fmt.Errorf("places request failed: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxUpstreamBody))
	if err != nil {
		c.recorder.UpstreamRequest("read_error")
		return nil, fmt.Errorf("read places response: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		c.recorder.UpstreamRequest(fmt.Sprintf("http_%d", res.StatusCode))
		return nil, &UpstreamError{
			HTTPStatus: res.StatusCode,
			Status:     http.StatusText(res.StatusCode),
			Message:    fmt.Sprintf("Places API responded with HTTP %d", res.StatusCode),
		}
	}

	var payload NearbyResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		c.recorder.UpstreamRequest("decode_error")
		return nil, fmt.Errorf("decode places response: %w", err)
	}
	c.recorder.UpstreamRequest(payload.Status)

	switch payload.Status {
	case StatusOK:
	case StatusZeroResults:
		payload.Results = []PlaceResult{}
	default:
		c.logger.Warn("places upstream rejected request",
			zap.String("status", payload.Status),
			zap.String("error_message", payload.ErrorMessage))
		return nil, &UpstreamError{
			HTTPStatus: res.StatusCode,
			Status:     payload.Status,
			Message:    payload.ErrorMessage,
		}
	}
	if payload.Results == nil {
		payload.Results = []PlaceResult{}
	}
	return &payload, nil
}

func (c *Client) fromCache(key string) (*NearbyResponse, bool) {
	if c.cache == nil {
		return nil, false
	}
	raw, ok := c.cache.Get(key)
	if !ok {
		return nil, false
	}
	var resp NearbyResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		c.logger.Debug("dropping undecodable cache entry", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if resp.Results == nil {
		resp.Results = []PlaceResult{}
	}
	return &resp, true
}

func (c *Client) toCache(key string, resp *NearbyResponse) {
	if c.cache == nil || c.cacheTTL <= 0 {
		return
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		return
	}
	c.cache.Set(key, raw, c.cacheTTL)
}
