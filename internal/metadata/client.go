// Package metadata resolves display titles and posters for recommended
// movies and shows from a TMDB-compatible API, with a redis cache in front.
package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"cinelist/internal/inbox"
)

const (
	// TMDB tolerates roughly 40 requests per second per key
	rateLimit = 20
	rateBurst = 40

	maxRetries   = 3
	initialDelay = 500 * time.Millisecond
	maxDelay     = 8 * time.Second
)

var (
	ErrNotFound    = errors.New("metadata: title not found")
	ErrUnavailable = errors.New("metadata: provider unavailable")
)

// Details is the subset of a TMDB movie or tv payload the inbox renders.
type Details struct {
	Title      string `json:"title"`
	PosterPath string `json:"poster_path"`
}

// tmdbPayload covers both shapes: movies carry title, shows carry name.
type tmdbPayload struct {
	Title      string `json:"title"`
	Name       string `json:"name"`
	PosterPath string `json:"poster_path"`
}

type Client struct {
	baseURL     string
	apiKey      string
	language    string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	breaker     *gobreaker.CircuitBreaker[*Details]
	logger      *slog.Logger
}

func NewClient(baseURL, apiKey, language string, logger *slog.Logger) *Client {
	logger = logger.With("component", "metadata_client")
	return &Client{
		baseURL:     baseURL,
		apiKey:      apiKey,
		language:    language,
		rateLimiter: rate.NewLimiter(rate.Limit(rateLimit), rateBurst),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        50,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		breaker: gobreaker.NewCircuitBreaker[*Details](gobreaker.Settings{
			Name:        "tmdb-api",
			MaxRequests: 2,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			// a missing title is an answer, not a provider failure
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Info("circuit_breaker_state_change", "name", name, "from", from.String(), "to", to.String())
			},
		}),
		logger: logger,
	}
}

// Details fetches the display metadata for one title.
func (c *Client) Details(ctx context.Context, kind inbox.MediaKind, externalID int64) (*Details, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("metadata: unknown media kind %q", kind)
	}

	d, err := c.breaker.Execute(func() (*Details, error) {
		var p tmdbPayload
		if err := c.doRequest(ctx, fmt.Sprintf("/%s/%d", kind, externalID), &p); err != nil {
			return nil, err
		}
		title := p.Title
		if kind == inbox.MediaTV || title == "" {
			title = p.Name
		}
		return &Details{Title: title, PosterPath: p.PosterPath}, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return d, err
}

// doRequest performs a GET with rate limiting and retry on 429/5xx.
func (c *Client) doRequest(ctx context.Context, endpoint string, result any) error {
	params := url.Values{}
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}
	if c.language != "" {
		params.Set("language", c.language)
	}
	fullURL := c.baseURL + endpoint + "?" + params.Encode()

	var lastErr error
	delay := initialDelay

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Debug("metadata_retry", "endpoint", endpoint, "attempt", attempt, "delay", delay, "error", lastErr)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = min(delay*2, maxDelay)
		}

		if err := c.rateLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "cinelist/1.0")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			continue
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			if err := json.Unmarshal(body, result); err != nil {
				return fmt.Errorf("decode %s: %w", endpoint, err)
			}
			return nil
		case resp.StatusCode == http.StatusNotFound:
			return ErrNotFound
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			continue
		default:
			return fmt.Errorf("metadata: unexpected status %d for %s", resp.StatusCode, endpoint)
		}
	}
	return fmt.Errorf("request failed after %d attempts: %w", maxRetries+1, lastErr)
}
