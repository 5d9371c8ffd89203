package serp

import (
	"net/url"
	"strings"

	"github.com/shelfpix/backend/internal/domain"
)

// searchResponse mirrors the fields of the images_results payload we consume
type searchResponse struct {
	ImagesResults []imageResult `json:"images_results"`
}

type imageResult struct {
	Position  int    `json:"position"`
	Original  string `json:"original"`
	Link      string `json:"link"`
	Thumbnail string `json:"thumbnail"`
	Title     string `json:"title"`
	Snippet   string `json:"snippet"`
	Source    string `json:"source"`
}

// toCandidates converts raw search results into domain candidates.
// Results without a usable image URL are skipped; rank preserves the
// engine's ordering even when positions are missing.
func toCandidates(resp searchResponse, limit int) []domain.Candidate {
	candidates := make([]domain.Candidate, 0, len(resp.ImagesResults))

	for i, r := range resp.ImagesResults {
		if len(candidates) >= limit {
			break
		}

		imgURL := r.Original
		if imgURL == "" {
			imgURL = r.Link
		}
		if imgURL == "" {
			continue
		}

		rank := r.Position
		if rank == 0 {
			rank = i + 1
		}

		candidates = append(candidates, domain.Candidate{
			URL:          imgURL,
			ThumbnailURL: r.Thumbnail,
			SourceDomain: sourceDomain(r, imgURL),
			Rank:         rank,
			Text:         strings.TrimSpace(r.Title + " " + r.Snippet),
		})
	}

	return candidates
}

// sourceDomain resolves the originating domain of a result, preferring the
// engine's source field over the image URL host.
func sourceDomain(r imageResult, imgURL string) string {
	if r.Source != "" {
		return normalizeDomain(r.Source)
	}
	if u, err := url.Parse(imgURL); err == nil && u.Host != "" {
		return normalizeDomain(u.Host)
	}
	return "unknown"
}

func normalizeDomain(d string) string {
	d = strings.ToLower(strings.TrimSpace(d))
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "http://")
	d = strings.TrimPrefix(d, "www.")
	if idx := strings.IndexByte(d, '/'); idx >= 0 {
		d = d[:idx]
	}
	return d
}
