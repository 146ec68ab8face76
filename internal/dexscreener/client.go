package dexscreener

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"coinswiper/internal/domain"
	"coinswiper/internal/observability"
)

const defaultBaseURL = "https://api.dexscreener.com"

// ErrUnavailable is returned when the circuit breaker is open.
var ErrUnavailable = errors.New("dexscreener: upstream unavailable")

// Client talks to the DexScreener public API. All calls share one rate
// limiter and one circuit breaker, so a burst of parallel queries cannot
// exceed the upstream budget of 300 requests per minute.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	log     zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL. Used by tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(u, "/") }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// NewClient creates a DexScreener client.
func NewClient(log zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		// 300 req/min upstream budget, kept with headroom.
		limiter: rate.NewLimiter(rate.Limit(4), 8),
		log:     log.With().Str("component", "dexscreener").Logger(),
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "dexscreener",
		MaxRequests: 2,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn().
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	})

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SearchPairs runs a text search and returns the matching pairs.
func (c *Client) SearchPairs(ctx context.Context, query string) ([]*domain.Pair, error) {
	u := fmt.Sprintf("%s/latest/dex/search?q=%s", c.baseURL, url.QueryEscape(query))

	var resp searchResponse
	if err := c.getJSON(ctx, u, &resp); err != nil {
		return nil, fmt.Errorf("search pairs %q: %w", query, err)
	}
	return toDomainPairs(resp.Pairs), nil
}

// PairsByToken returns pairs for up to 30 comma-joined token addresses.
func (c *Client) PairsByToken(ctx context.Context, chainID string, addresses ...string) ([]*domain.Pair, error) {
	if len(addresses) == 0 {
		return nil, nil
	}
	if len(addresses) > 30 {
		return nil, fmt.Errorf("pairs by token: %d addresses exceeds limit of 30", len(addresses))
	}
	u := fmt.Sprintf("%s/tokens/v1/%s/%s", c.baseURL, chainID, strings.Join(addresses, ","))

	// This endpoint returns a bare array, not the search envelope.
	var pairs []pairJSON
	if err := c.getJSON(ctx, u, &pairs); err != nil {
		return nil, fmt.Errorf("pairs by token: %w", err)
	}
	return toDomainPairs(pairs), nil
}

// LatestTokenProfiles returns the most recent token profiles.
func (c *Client) LatestTokenProfiles(ctx context.Context) ([]TokenProfile, error) {
	var profiles []TokenProfile
	if err := c.getJSON(ctx, c.baseURL+"/token-profiles/latest/v1", &profiles); err != nil {
		return nil, fmt.Errorf("latest token profiles: %w", err)
	}
	return profiles, nil
}

// LatestTokenBoosts returns the most recently boosted tokens.
func (c *Client) LatestTokenBoosts(ctx context.Context) ([]TokenBoost, error) {
	var boosts []TokenBoost
	if err := c.getJSON(ctx, c.baseURL+"/token-boosts/latest/v1", &boosts); err != nil {
		return nil, fmt.Errorf("latest token boosts: %w", err)
	}
	return boosts, nil
}

// TopTokenBoosts returns the tokens with the highest active boost totals.
func (c *Client) TopTokenBoosts(ctx context.Context) ([]TokenBoost, error) {
	var boosts []TokenBoost
	if err := c.getJSON(ctx, c.baseURL+"/token-boosts/top/v1", &boosts); err != nil {
		return nil, fmt.Errorf("top token boosts: %w", err)
	}
	return boosts, nil
}

// getJSON performs a rate-limited, breaker-guarded GET and decodes the body.
func (c *Client) getJSON(ctx context.Context, u string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	body, err := c.breaker.Execute(func() (any, error) {
		return c.do(ctx, u)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return ErrUnavailable
		}
		return err
	}

	if err := json.Unmarshal(body.([]byte), out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		observability.RecordUpstreamRequest("error", time.Since(started).Seconds())
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()
	observability.RecordUpstreamRequest(strconv.Itoa(resp.StatusCode), time.Since(started).Seconds())

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}
