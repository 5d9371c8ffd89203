package serp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shelfpix/backend/internal/domain"
	"golang.org/x/time/rate"
)

// Client handles communication with the SerpAPI Google Images endpoint
type Client struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	country     string
	maxResults  int
	rateLimiter *rate.Limiter
	debug       bool
}

// NewClient creates a new search API client
func NewClient(apiKey, baseURL, country string, maxResults int) *Client {
	// The search plan allows roughly one call per second sustained;
	// a small burst absorbs cache-miss clusters at batch start.
	limiter := rate.NewLimiter(rate.Limit(1), 5)

	if maxResults <= 0 {
		maxResults = 10
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		apiKey:      apiKey,
		baseURL:     baseURL,
		country:     country,
		maxResults:  maxResults,
		rateLimiter: limiter,
	}
}

// SetDebug toggles verbose request logging
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

// exponentialBackoff returns the sleep duration before retry n
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(500*(1<<(attempt-1))) * time.Millisecond
}

// SearchImages queries the image search engine for a single query string.
// Callers treat an error and an empty candidate list identically.
func (c *Client) SearchImages(ctx context.Context, query string) ([]domain.Candidate, error) {
	if c.debug {
		log.Printf("[SERP] SearchImages called with query: %q", query)
	}

	endpoint := fmt.Sprintf("%s/search", c.baseURL)
	params := url.Values{}
	params.Add("engine", "google_images")
	params.Add("q", query)
	params.Add("api_key", c.apiKey)
	params.Add("num", strconv.Itoa(c.maxResults))
	params.Add("gl", c.country)
	params.Add("hl", "en")
	params.Add("safe", "active")

	reqURL := fmt.Sprintf("%s?%s", endpoint, params.Encode())

	// Retry up to 3 times for transient failures
	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		resp, err := c.doRequest(ctx, reqURL)
		if err != nil {
			if c.debug {
				log.Printf("[SERP] Request error (attempt %d): %v", attempt, err)
			}
			lastErr = err
			sleep(ctx, exponentialBackoff(attempt))
			continue
		}

		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			if c.debug {
				log.Printf("[SERP] API error (attempt %d) - status: %d", attempt, resp.StatusCode)
			}
			lastErr = fmt.Errorf("%w: status %d", domain.ErrSearchFailure, resp.StatusCode)
			if resp.StatusCode == http.StatusTooManyRequests {
				sleep(ctx, exponentialBackoff(attempt))
				continue
			}
			return nil, lastErr
		}

		var searchResp searchResponse
		if err := json.Unmarshal(body, &searchResp); err != nil {
			return nil, fmt.Errorf("failed to decode search response: %w", err)
		}

		candidates := toCandidates(searchResp, c.maxResults)
		if c.debug {
			log.Printf("[SERP] Found %d candidates for query: %q", len(candidates), query)
		}
		return candidates, nil
	}

	return nil, lastErr
}

// doRequest executes an HTTP GET request with proper headers and error handling
func (c *Client) doRequest(ctx context.Context, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "shelfpix/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSearchFailure, err)
	}

	return resp, nil
}

// sleep waits for d or until ctx is cancelled
func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
