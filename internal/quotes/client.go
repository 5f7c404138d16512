package quotes

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/suryanarayanrenjith/stock-portfolio/internal/config"
)

// ErrNoQuote means the provider has no price for the symbol. Callers
// degrade to a zero price instead of failing the whole view.
var ErrNoQuote = errors.New("no quote available")

// Provider returns the last traded price for a ticker symbol.
type Provider interface {
	GetQuote(ctx context.Context, symbol string) (float64, error)
}

// Client is a market data client for an Alpha Vantage style GLOBAL_QUOTE
// endpoint. It implements the Provider interface.
type Client struct {
	client  *resty.Client
	apiKey  string
	cache   Cache
	logger  *zap.Logger
	limiter *rate.Limiter
}

// ensure Client implements the interface
var _ Provider = (*Client)(nil)

// NewClient creates a new market data client.
func NewClient(cfg *config.Quotes, cache Cache, logger *zap.Logger) *Client {
	client := resty.New().SetBaseURL(cfg.BaseURL)

	// Initialize the rate limiter
	// rate.Limit is requests per second.
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst)

	return &Client{
		client:  client,
		apiKey:  cfg.APIKey,
		cache:   cache,
		logger:  logger,
		limiter: limiter,
	}
}

// globalQuoteResponse is the provider's GLOBAL_QUOTE payload.
type globalQuoteResponse struct {
	GlobalQuote struct {
		Price string `json:"05. price"`
	} `json:"Global Quote"`
}

// GetQuote returns the last traded price for symbol, consulting the cache
// first. A symbol the provider does not know yields ErrNoQuote.
func (c *Client) GetQuote(ctx context.Context, symbol string) (float64, error) {
	if price, err := c.cache.Get(ctx, symbol); err == nil {
		return price, nil
	}

	req := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"function": "GLOBAL_QUOTE",
			"symbol":   symbol,
			"apikey":   c.apiKey,
		}).
		SetResult(&globalQuoteResponse{})

	resp, err := c.doRequest(ctx, http.MethodGet, "/query", req)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch quote for %s: %w", symbol, err)
	}

	result := resp.Result().(*globalQuoteResponse)
	if result.GlobalQuote.Price == "" {
		return 0, ErrNoQuote
	}

	price, err := strconv.ParseFloat(result.GlobalQuote.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse quote %q for %s: %w", result.GlobalQuote.Price, symbol, err)
	}

	if err := c.cache.Set(ctx, symbol, price); err != nil {
		c.logger.Warn("Failed to cache quote", zap.String("symbol", symbol), zap.Error(err))
	}
	return price, nil
}

// doRequest handles the actual request execution with rate limiting and retry logic.
func (c *Client) doRequest(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	var resp *resty.Response
	var err error
	const maxRetries = 3

	for i := 0; i < maxRetries; i++ {
		// Wait for the rate limiter
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		c.logger.Debug("Executing request", zap.String("method", method), zap.String("url", c.client.BaseURL+url))
		resp, err = req.Execute(method, url)

		if err == nil && !resp.IsError() {
			return resp, nil // Success
		}

		// Analyze error and decide whether to retry
		shouldRetry := false
		var retryAfter time.Duration

		if resp != nil {
			statusCode := resp.StatusCode()
			if statusCode == http.StatusTooManyRequests {
				shouldRetry = true
				retryAfterHeader := resp.Header().Get("Retry-After")
				if seconds, err := strconv.Atoi(retryAfterHeader); err == nil {
					retryAfter = time.Duration(seconds) * time.Second
				}
			} else if statusCode >= 500 { // Server errors
				shouldRetry = true
			}
			// An HTTP error status comes back with a nil transport error;
			// record it so the exhausted-retries error has a cause to wrap.
			if err == nil {
				err = fmt.Errorf("status %s: %s", resp.Status(), resp.String())
			}
		} else { // Network or other client-side errors
			shouldRetry = true
		}

		if !shouldRetry {
			return nil, fmt.Errorf("request failed with status %s: %s", resp.Status(), resp.String())
		}

		if i == maxRetries-1 {
			break
		}

		// If we should retry, calculate wait time
		if retryAfter == 0 {
			// Exponential backoff: 1s, 2s, 4s
			retryAfter = time.Duration(math.Pow(2, float64(i))) * time.Second
		}

		c.logger.Warn("Request failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
			continue
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries, err)
}
