package reputation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"sentinel-support/internal/config"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

var (
	ErrNotConfigured = errors.New("reputation provider not configured")
	ErrNotFound      = errors.New("indicator unknown to reputation provider")
	ErrRateLimited   = errors.New("reputation provider quota exceeded")
	ErrTooLarge      = errors.New("file exceeds scan size limit")
	ErrInvalidKind   = errors.New("invalid indicator kind")
)

// Client looks up indicators against a VirusTotal v3 compatible API.
// Results are cached and requests are paced to the provider quota.
type Client struct {
	baseURL  string
	apiKey   string
	enabled  bool
	maxBytes int64
	api      *retryablehttp.Client
	download *retryablehttp.Client
	limiter  *rate.Limiter
	cache    *expirable.LRU[string, Report]
	logger   *zap.Logger
}

func New(cfg config.ReputationConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	api := newRetryClient(logger, timeout)
	if cfg.BearerToken != "" {
		api.HTTPClient.Transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.BearerToken, TokenType: "Bearer"}),
			Base:   api.HTTPClient.Transport,
		}
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), cfg.RequestsPerMinute)
	}

	size := cfg.CacheSize
	if size <= 0 {
		size = 512
	}
	ttl := time.Duration(cfg.CacheTTLMinutes) * time.Minute
	if ttl <= 0 {
		ttl = time.Hour
	}

	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:   cfg.APIKey,
		enabled:  cfg.BaseURL != "" && (cfg.APIKey != "" || cfg.BearerToken != ""),
		maxBytes: cfg.MaxFileBytes,
		api:      api,
		download: newRetryClient(logger, timeout),
		limiter:  limiter,
		cache:    expirable.NewLRU[string, Report](size, nil, ttl),
		logger:   logger,
	}
}

func newRetryClient(logger *zap.Logger, timeout time.Duration) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.RetryWaitMin = 1 * time.Second
	client.RetryWaitMax = 10 * time.Second
	client.HTTPClient.Timeout = timeout
	client.Logger = retryablehttp.LeveledLogger(leveledZap{logger.Named("reputation").Sugar()})
	// hand the final response back so status codes map to sentinel errors
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return client
}

// Enabled reports whether lookups can be made.
func (c *Client) Enabled() bool {
	return c != nil && c.enabled
}

// Lookup fetches the provider report for a normalized indicator.
func (c *Client) Lookup(ctx context.Context, kind Kind, value string) (Report, error) {
	if !c.Enabled() {
		return Report{}, ErrNotConfigured
	}
	if !kind.Valid() {
		return Report{}, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
	if kind == KindFile {
		value = strings.ToLower(value)
	}

	key := string(kind) + ":" + value
	if report, ok := c.cache.Get(key); ok {
		lookups.WithLabelValues(string(kind), "cached").Inc()
		return report, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return Report{}, err
	}

	report, err := c.fetch(ctx, kind, value)
	switch {
	case errors.Is(err, ErrNotFound):
		lookups.WithLabelValues(string(kind), "not_found").Inc()
		return Report{}, err
	case errors.Is(err, ErrRateLimited):
		lookups.WithLabelValues(string(kind), "rate_limited").Inc()
		return Report{}, err
	case err != nil:
		lookups.WithLabelValues(string(kind), "error").Inc()
		return Report{}, err
	}

	lookups.WithLabelValues(string(kind), string(report.Verdict())).Inc()
	c.cache.Add(key, report)
	return report, nil
}

func (c *Client) fetch(ctx context.Context, kind Kind, value string) (Report, error) {
	collection, id := kind.path(value)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+collection+"/"+id, nil)
	if err != nil {
		return Report{}, err
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-apikey", c.apiKey)
	}

	start := time.Now()
	resp, err := c.api.Do(req)
	lookupDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
	if err != nil {
		return Report{}, fmt.Errorf("reputation request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Report{}, ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return Report{}, ErrRateLimited
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Report{}, fmt.Errorf("reputation request: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload objectResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Report{}, fmt.Errorf("decode reputation report: %w", err)
	}
	return payload.report(kind, value), nil
}

// HashURL downloads a file, such as a message attachment, and returns its
// SHA-256. Provider credentials are never sent to the download host.
func (c *Client) HashURL(ctx context.Context, url string) (string, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.download.Do(req)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download: status %d", resp.StatusCode)
	}
	return HashReader(resp.Body, c.maxBytes)
}

// HashReader returns the hex SHA-256 of r. A positive limit caps how many
// bytes are read; larger inputs fail with ErrTooLarge.
func HashReader(r io.Reader, limit int64) (string, error) {
	h := sha256.New()
	if limit > 0 {
		n, err := io.Copy(h, io.LimitReader(r, limit+1))
		if err != nil {
			return "", err
		}
		if n > limit {
			return "", ErrTooLarge
		}
	} else if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
