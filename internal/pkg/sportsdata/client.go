package sportsdata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ManuelReschke/OddsRaiders/internal/pkg/env"
	"github.com/gofiber/fiber/v2/log"
	jsoniter "github.com/json-iterator/go"
	"golang.org/x/sync/singleflight"
)

const (
	defaultBaseURL    = "https://api-football-v1.p.rapidapi.com/v3"
	defaultHost       = "api-football-v1.p.rapidapi.com"
	defaultTimeout    = 20 * time.Second
	defaultMaxRetries = 2
	defaultMaxPages   = 20
	maxBodyBytes      = 8 << 20
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrTransient marks failures worth retrying (network, 429, 5xx).
var ErrTransient = errors.New("sportsdata: transient failure")

type Config struct {
	HTTPClient *http.Client
	BaseURL    string
	APIKey     string
	Host       string
	Timeout    time.Duration
	MaxRetries int
	MaxPages   int
	// Backoff returns the wait before retry attempt n (1-based).
	Backoff func(attempt int) time.Duration
}

// ConfigFromEnv reads RAPIDAPI_* settings.
func ConfigFromEnv() Config {
	return Config{
		BaseURL:    env.GetEnv("RAPIDAPI_BASE_URL", defaultBaseURL),
		APIKey:     env.GetEnv("RAPIDAPI_KEY", ""),
		Host:       env.GetEnv("RAPIDAPI_HOST", defaultHost),
		Timeout:    env.GetEnvDuration("RAPIDAPI_TIMEOUT", defaultTimeout),
		MaxRetries: env.GetEnvInt("RAPIDAPI_MAX_RETRIES", defaultMaxRetries),
		MaxPages:   env.GetEnvInt("RAPIDAPI_MAX_PAGES", defaultMaxPages),
	}
}

// Client is an authenticated client for the RapidAPI football provider.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	host       string
	maxRetries int
	maxPages   int
	backoff    func(attempt int) time.Duration
	flight     singleflight.Group
}

func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = defaultTimeout
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = defaultHost
	}
	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}
	backoff := cfg.Backoff
	if backoff == nil {
		backoff = func(attempt int) time.Duration { return time.Duration(attempt) * time.Second }
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		host:       host,
		maxRetries: max(cfg.MaxRetries, 0),
		maxPages:   maxPages,
		backoff:    backoff,
	}
}

// Result holds every item of a (possibly paged) response plus the raw bodies.
type Result struct {
	Endpoint string
	Query    map[string]string
	Items    []jsoniter.RawMessage
	Pages    [][]byte
}

type envelope struct {
	Errors   jsoniter.RawMessage   `json:"errors"`
	Results  int                   `json:"results"`
	Paging   paging                `json:"paging"`
	Response []jsoniter.RawMessage `json:"response"`
}

type paging struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// Fetch requests endpoint with query and follows paging. Identical concurrent
// calls share one round trip.
func (c *Client) Fetch(ctx context.Context, endpoint string, query map[string]string) (*Result, error) {
	key := endpoint + "?" + encodeQuery(query)
	out, err, _ := c.flight.Do(key, func() (any, error) {
		return c.fetchAllPages(ctx, endpoint, query)
	})
	if err != nil {
		return nil, err
	}
	res, ok := out.(*Result)
	if !ok {
		return nil, fmt.Errorf("unexpected result type %T", out)
	}
	return res, nil
}

func (c *Client) fetchAllPages(ctx context.Context, endpoint string, query map[string]string) (*Result, error) {
	res := &Result{Endpoint: endpoint, Query: query}
	page := 1
	for {
		q := make(map[string]string, len(query)+1)
		for k, v := range query {
			q[k] = v
		}
		if page > 1 {
			q["page"] = strconv.Itoa(page)
		}

		raw, err := c.executeRequest(ctx, c.buildURL(endpoint, q))
		if err != nil {
			return nil, fmt.Errorf("fetch %s page %d: %w", endpoint, page, err)
		}

		var body envelope
		if err := json.Unmarshal(raw, &body); err != nil {
			return nil, fmt.Errorf("decode %s page %d: %w", endpoint, page, err)
		}
		if msg := providerErrors(body.Errors); msg != "" {
			return nil, fmt.Errorf("provider rejected %s: %s", endpoint, msg)
		}

		res.Pages = append(res.Pages, raw)
		res.Items = append(res.Items, body.Response...)

		if body.Paging.Total <= page || page >= c.maxPages {
			if body.Paging.Total > c.maxPages {
				log.Warnf("[SportsData] %s has %d pages, stopped at %d", endpoint, body.Paging.Total, c.maxPages)
			}
			return res, nil
		}
		page++
	}
}

func (c *Client) buildURL(endpoint string, query map[string]string) string {
	fullURL := c.baseURL + "/" + strings.TrimLeft(endpoint, "/")
	if encoded := encodeQuery(query); encoded != "" {
		fullURL += "?" + encoded
	}
	return fullURL
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("accept", "application/json")
		req.Header.Set("x-rapidapi-key", c.apiKey)
		req.Header.Set("x-rapidapi-host", c.host)

		var retryAfter time.Duration
		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("%w: send request: %v", ErrTransient, err)
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
			_ = resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = fmt.Errorf("%w: read response body: %v", ErrTransient, readErr)
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				return raw, nil
			case isRetryableStatus(resp.StatusCode):
				lastErr = fmt.Errorf("%w: provider status=%d body=%s", ErrTransient, resp.StatusCode, abbreviateBody(raw))
				retryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
			default:
				return nil, fmt.Errorf("provider status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
			}
		}

		if attempt == c.maxRetries {
			break
		}
		wait := c.backoff(attempt + 1)
		if retryAfter > wait {
			wait = retryAfter
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	log.Warnf("[SportsData] request failed url=%s: %v", redactURL(fullURL), lastErr)
	return nil, lastErr
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(min(secs, 60)) * time.Second
}

// providerErrors flattens the "errors" field, which is [] when empty and an
// object of messages otherwise.
func providerErrors(raw jsoniter.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "[]" || s == "{}" || s == "null" {
		return ""
	}
	var asMap map[string]string
	if err := json.Unmarshal(raw, &asMap); err == nil {
		keys := make([]string, 0, len(asMap))
		for k := range asMap {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+asMap[k])
		}
		return strings.Join(parts, "; ")
	}
	return abbreviateBody(raw)
}

func encodeQuery(query map[string]string) string {
	values := url.Values{}
	for k, v := range query {
		values.Set(k, v)
	}
	return values.Encode()
}

func abbreviateBody(raw []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(raw))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Path
}
