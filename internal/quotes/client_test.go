package quotes

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// stubCache is a map-backed Cache for tests.
type stubCache struct {
	prices map[string]float64
}

func newStubCache() *stubCache {
	return &stubCache{prices: make(map[string]float64)}
}

func (c *stubCache) Get(_ context.Context, symbol string) (float64, error) {
	price, ok := c.prices[symbol]
	if !ok {
		return 0, ErrCacheMiss
	}
	return price, nil
}

func (c *stubCache) Set(_ context.Context, symbol string, price float64) error {
	c.prices[symbol] = price
	return nil
}

// setupTestServer creates a new test server and a Client configured to use it.
func setupTestServer(handler http.Handler, cache Cache) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)

	client := resty.New().SetBaseURL(server.URL)
	logger := zap.NewNop() // Use a no-op logger for tests

	c := &Client{
		client:  client,
		apiKey:  "test_api_key",
		cache:   cache,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Inf, 1), // Allow all requests in tests
	}

	return c, server
}

func TestGetQuote_Success(t *testing.T) {
	// Arrange
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/query", r.URL.Path)
		assert.Equal(t, "GLOBAL_QUOTE", r.URL.Query().Get("function"))
		assert.Equal(t, "ACME", r.URL.Query().Get("symbol"))
		assert.Equal(t, "test_api_key", r.URL.Query().Get("apikey"))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"Global Quote": {"05. price": "123.4500"}}`))
	})

	cache := newStubCache()
	c, server := setupTestServer(handler, cache)
	defer server.Close()

	// Act
	price, err := c.GetQuote(context.Background(), "ACME")

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, 123.45, price)
	cached, err := cache.Get(context.Background(), "ACME")
	assert.NoError(t, err)
	assert.Equal(t, 123.45, cached)
}

func TestGetQuote_UnknownSymbol(t *testing.T) {
	// The provider answers with an empty quote for unknown symbols.
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"Global Quote": {}}`))
	})

	c, server := setupTestServer(handler, newStubCache())
	defer server.Close()

	price, err := c.GetQuote(context.Background(), "NOPE")

	assert.ErrorIs(t, err, ErrNoQuote)
	assert.Equal(t, 0.0, price)
}

func TestGetQuote_CacheHitSkipsProvider(t *testing.T) {
	var hits atomic.Int64
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"Global Quote": {"05. price": "10.00"}}`))
	})

	cache := newStubCache()
	cache.prices["ACME"] = 55.5
	c, server := setupTestServer(handler, cache)
	defer server.Close()

	price, err := c.GetQuote(context.Background(), "ACME")

	assert.NoError(t, err)
	assert.Equal(t, 55.5, price)
	assert.Equal(t, int64(0), hits.Load())
}

func TestGetQuote_BadPrice(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"Global Quote": {"05. price": "not-a-number"}}`))
	})

	c, server := setupTestServer(handler, newStubCache())
	defer server.Close()

	_, err := c.GetQuote(context.Background(), "ACME")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse quote")
}

func TestGetQuote_ClientErrorNotRetried(t *testing.T) {
	var hits atomic.Int64
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"Note": "bad api key"}`))
	})

	c, server := setupTestServer(handler, newStubCache())
	defer server.Close()

	_, err := c.GetQuote(context.Background(), "ACME")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), fmt.Sprintf("%d", http.StatusForbidden))
	assert.Equal(t, int64(1), hits.Load())
}

func TestGetQuote_ExhaustedRetriesReportStatus(t *testing.T) {
	var hits atomic.Int64
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"Note": "upstream down"}`))
	})

	c, server := setupTestServer(handler, newStubCache())
	defer server.Close()

	_, err := c.GetQuote(context.Background(), "ACME")

	// Persistent server errors exhaust the retry budget and the final
	// error must carry the HTTP status, not a nil wrap.
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Contains(t, err.Error(), fmt.Sprintf("%d", http.StatusInternalServerError))
	assert.NotContains(t, err.Error(), "%!w")
	assert.Equal(t, int64(3), hits.Load())
}

func TestGetQuote_RetriesServerErrors(t *testing.T) {
	var hits atomic.Int64
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"Global Quote": {"05. price": "42.00"}}`))
	})

	c, server := setupTestServer(handler, newStubCache())
	defer server.Close()

	price, err := c.GetQuote(context.Background(), "ACME")

	assert.NoError(t, err)
	assert.Equal(t, 42.0, price)
	assert.Equal(t, int64(2), hits.Load())
}
