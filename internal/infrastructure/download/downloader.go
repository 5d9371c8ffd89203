package download

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shelfpix/backend/internal/domain"
)

const (
	maxBodyBytes = 10 << 20 // 10MB
	minBodyBytes = 1 << 10  // reject tracking pixels and error pages
)

// Downloader fetches candidate images over HTTP with browser-like
// headers so retailer CDNs serve the full asset.
type Downloader struct {
	http  *http.Client
	debug bool
}

var _ domain.Downloader = (*Downloader)(nil)

// NewDownloader creates a downloader with the given request timeout
func NewDownloader(timeout time.Duration) *Downloader {
	return &Downloader{
		http: &http.Client{Timeout: timeout},
	}
}

// SetDebug toggles request logging
func (d *Downloader) SetDebug(enabled bool) {
	d.debug = enabled
}

// Fetch downloads the image at rawURL. It returns ErrAccessDenied when
// the host blocks the request (403 or 429) so callers can fall back to
// the next candidate.
func (d *Downloader) Fetch(ctx context.Context, rawURL string) (*domain.Asset, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	setBrowserHeaders(req, rawURL)

	resp, err := d.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: status %d from %s", domain.ErrAccessDenied, resp.StatusCode, rawURL)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("fetch image: unexpected status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("fetch image: not an image (content-type %q)", contentType)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(data) > maxBodyBytes {
		return nil, fmt.Errorf("fetch image: body exceeds %d bytes", maxBodyBytes)
	}
	if len(data) < minBodyBytes {
		return nil, fmt.Errorf("fetch image: body too small (%d bytes)", len(data))
	}

	if d.debug {
		log.Printf("[DOWNLOAD] %s (%d bytes, %s)", rawURL, len(data), contentType)
	}

	return &domain.Asset{Data: data, MIMEType: contentType}, nil
}

// setBrowserHeaders mimics a desktop browser; some hosts reject bare
// clients or requests without a same-site referer.
func setBrowserHeaders(req *http.Request, rawURL string) {
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "image/avif,image/webp,image/apng,image/*,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		req.Header.Set("Referer", u.Scheme+"://"+u.Host+"/")
	}
}
