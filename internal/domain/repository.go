package domain

import "context"

// ItemRepository defines the persistence operations the pipeline needs.
// UpdateOutcome is the transactional boundary for an item: one atomic write.
type ItemRepository interface {
	GetByID(ctx context.Context, id string) (*Item, error)
	ListIDsByStatus(ctx context.Context, statuses ...ItemStatus) ([]string, error)
	ListByStatus(ctx context.Context, status ItemStatus, limit int) ([]Item, error)
	UpdateOutcome(ctx context.Context, outcome ItemOutcome) error
	CountByStatus(ctx context.Context) (map[ItemStatus]int, error)
}

// SearchClient defines the interface for the external image search API.
// Zero results and errors are handled identically by callers (no candidates).
type SearchClient interface {
	SearchImages(ctx context.Context, query string) ([]Candidate, error)
}

// TrustTable scores source domains and records disposition outcomes.
// Reads happen during candidate scoring; writes only from the feedback path.
type TrustTable interface {
	Score(domain string) float64
	RecordOutcome(domain string, approved bool)
}

// VisionClient wraps the semantic/OCR inference service. Implementations
// must report ErrModelUnavailable rather than fabricating scores.
type VisionClient interface {
	// RankThumbnails orders candidate thumbnails by similarity to the
	// item descriptions, best first. Returned indices refer to images.
	RankThumbnails(ctx context.Context, descriptions []string, images [][]byte) ([]int, error)

	// Similarity scores one image against the item descriptions in [0,1].
	Similarity(ctx context.Context, descriptions []string, image []byte) (float64, error)

	// ExtractText runs OCR over the image and returns visible text.
	ExtractText(ctx context.Context, image []byte) (string, error)
}

// Downloader fetches a full-resolution asset from a candidate URL.
type Downloader interface {
	Fetch(ctx context.Context, rawURL string) (*Asset, error)
}

// Asset is a downloaded image payload.
type Asset struct {
	Data     []byte
	MIMEType string
}
