package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/shelfpix/backend/internal/domain"
)

// Client talks to the external vision inference service for semantic
// similarity, thumbnail ranking and text extraction. Calls are
// serialized because the service holds a single model instance.
type Client struct {
	endpoint string
	http     *http.Client
	mutex    sync.Mutex
}

var _ domain.VisionClient = (*Client)(nil)

// NewClient creates a reusable vision service client
func NewClient(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
	}
}

// Similarity scores an image against a set of text descriptions and
// returns the best match score in [0, 1].
func (c *Client) Similarity(ctx context.Context, descriptions []string, image []byte) (float64, error) {
	payload := map[string]any{
		"texts": descriptions,
		"image": base64.StdEncoding.EncodeToString(image),
	}

	var resp struct {
		Score float64 `json:"score"`
	}
	if err := c.post(ctx, "/similarity", payload, &resp); err != nil {
		return 0, err
	}

	return resp.Score, nil
}

// RankThumbnails orders candidate thumbnails by semantic closeness to
// the descriptions. The returned slice holds input indices, best first.
func (c *Client) RankThumbnails(ctx context.Context, descriptions []string, thumbnails [][]byte) ([]int, error) {
	images := make([]string, len(thumbnails))
	for i, t := range thumbnails {
		images[i] = base64.StdEncoding.EncodeToString(t)
	}

	payload := map[string]any{
		"texts":  descriptions,
		"images": images,
	}

	var resp struct {
		Order []int `json:"order"`
	}
	if err := c.post(ctx, "/rank", payload, &resp); err != nil {
		return nil, err
	}

	if len(resp.Order) != len(thumbnails) {
		return nil, fmt.Errorf("rank returned %d indices for %d thumbnails", len(resp.Order), len(thumbnails))
	}

	return resp.Order, nil
}

// ExtractText runs OCR over the image and returns the recognized text
func (c *Client) ExtractText(ctx context.Context, image []byte) (string, error) {
	payload := map[string]any{
		"image": base64.StdEncoding.EncodeToString(image),
	}

	var resp struct {
		Text string `json:"text"`
	}
	if err := c.post(ctx, "/ocr", payload, &resp); err != nil {
		return "", err
	}

	return resp.Text, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, v any) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrModelUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusServiceUnavailable {
		return fmt.Errorf("%w: status %s", domain.ErrModelUnavailable, resp.Status)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("vision service: unexpected status %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
