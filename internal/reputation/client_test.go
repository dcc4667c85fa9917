package reputation

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"sentinel-support/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const domainReport = `{"data":{"id":"evil.example","type":"domain","attributes":{
	"last_analysis_date":1700000000,"reputation":-12,
	"last_analysis_stats":{"harmless":60,"malicious":5,"suspicious":1,"undetected":10}}}}`

func newTestClient(t *testing.T, handler http.HandlerFunc, mutate func(*config.ReputationConfig)) (*Client, *int32) {
	t.Helper()
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	cfg := config.ReputationConfig{
		BaseURL:         server.URL,
		APIKey:          "key",
		CacheSize:       8,
		CacheTTLMinutes: 5,
		TimeoutSeconds:  5,
		MaxFileBytes:    1024,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	client := New(cfg, zap.NewNop())
	client.api.RetryMax = 0
	client.download.RetryMax = 0
	return client, &hits
}

func TestLookupDomainIsCached(t *testing.T) {
	client, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/domains/evil.example", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("x-apikey"))
		_, _ = w.Write([]byte(domainReport))
	}, nil)

	report, err := client.Lookup(context.Background(), KindDomain, "evil.example")
	require.NoError(t, err)
	assert.Equal(t, VerdictMalicious, report.Verdict())
	assert.Equal(t, 76, report.Engines())
	assert.Equal(t, -12, report.Reputation)
	assert.Equal(t, "https://www.virustotal.com/gui/domain/evil.example", report.Link)
	assert.False(t, report.LastAnalysis.IsZero())

	_, err = client.Lookup(context.Background(), KindDomain, "evil.example")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))
}

func TestLookupURLUsesEncodedID(t *testing.T) {
	target := "https://evil.example/login"
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/urls/"+base64.RawURLEncoding.EncodeToString([]byte(target)), r.URL.Path)
		_, _ = w.Write([]byte(`{"data":{"id":"abc","attributes":{"last_analysis_stats":{"harmless":3}}}}`))
	}, nil)

	report, err := client.Lookup(context.Background(), KindURL, target)
	require.NoError(t, err)
	assert.Equal(t, VerdictClean, report.Verdict())
	assert.Equal(t, "https://www.virustotal.com/gui/url/abc", report.Link)
}

func TestLookupErrors(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/unknown.example"):
			w.WriteHeader(http.StatusNotFound)
		case strings.HasSuffix(r.URL.Path, "/busy.example"):
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"bad"}`))
		}
	}, nil)

	_, err := client.Lookup(context.Background(), KindDomain, "unknown.example")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = client.Lookup(context.Background(), KindDomain, "busy.example")
	assert.ErrorIs(t, err, ErrRateLimited)

	_, err = client.Lookup(context.Background(), KindDomain, "other.example")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")

	_, err = client.Lookup(context.Background(), Kind("email"), "a@b.c")
	assert.ErrorIs(t, err, ErrInvalidKind)
}

func TestBearerTokenAuth(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Empty(t, r.Header.Get("x-apikey"))
		_, _ = w.Write([]byte(domainReport))
	}, func(cfg *config.ReputationConfig) {
		cfg.APIKey = ""
		cfg.BearerToken = "secret"
	})

	_, err := client.Lookup(context.Background(), KindIP, "1.2.3.4")
	require.NoError(t, err)
}

func TestNotConfigured(t *testing.T) {
	client := New(config.ReputationConfig{BaseURL: "https://example.invalid"}, nil)
	assert.False(t, client.Enabled())
	_, err := client.Lookup(context.Background(), KindDomain, "a.example")
	assert.ErrorIs(t, err, ErrNotConfigured)

	var nilClient *Client
	assert.False(t, nilClient.Enabled())
}

func TestHashURLAndReader(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("x-apikey"))
		_, _ = w.Write([]byte("hello"))
	}, nil)

	sum, err := client.HashURL(context.Background(), client.baseURL+"/attachment.bin")
	require.NoError(t, err)
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", sum)

	_, err = HashReader(strings.NewReader("hello"), 4)
	assert.ErrorIs(t, err, ErrTooLarge)

	sum, err = HashReader(strings.NewReader("hello"), 0)
	require.NoError(t, err)
	assert.Len(t, sum, 64)
}
