package domain

// ItemStatus tracks where an item sits in the acquisition lifecycle.
type ItemStatus string

const (
	StatusNotProcessed ItemStatus = "not_processed"
	StatusPending      ItemStatus = "pending"
	StatusApproved     ItemStatus = "approved"
	StatusDeclined     ItemStatus = "declined"
	StatusNotFound     ItemStatus = "not_found"
)

// Valid reports whether s is a known status value.
func (s ItemStatus) Valid() bool {
	switch s {
	case StatusNotProcessed, StatusPending, StatusApproved, StatusDeclined, StatusNotFound:
		return true
	}
	return false
}

// Item is one catalog entry the pipeline acquires an image for.
// Items are never deleted, only status-transitioned.
type Item struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Brand     string     `json:"brand,omitempty"`
	Variant   string     `json:"variant,omitempty"`
	SizeValue float64    `json:"sizeValue,omitempty"` // normalized to g or ml, 0 = unknown
	SizeUnit  string     `json:"sizeUnit,omitempty"`  // "g" or "ml"
	Status    ItemStatus `json:"status"`
	ImagePath string     `json:"imagePath,omitempty"`

	// Acquisition metadata, set once an image has been stored.
	SourceDomain string           `json:"sourceDomain,omitempty"`
	SourceURL    string           `json:"sourceUrl,omitempty"`
	Confidence   *float64         `json:"confidence,omitempty"`
	Action       ValidationAction `json:"action,omitempty"`
	DetectedText string           `json:"detectedText,omitempty"`
	BrandMatch   bool             `json:"brandMatch,omitempty"`
}

// Candidate is one externally-sourced image reference for an item.
// Candidates are ephemeral: only the chosen winner survives processing.
type Candidate struct {
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
	SourceDomain string `json:"sourceDomain"`
	Rank         int    `json:"rank"`
	Text         string `json:"text,omitempty"` // title + snippet surrounding the result
}

// ValidationAction is the disposition decided by the validation engine.
type ValidationAction string

const (
	ActionAutoApprove  ValidationAction = "auto_approve"
	ActionManualReview ValidationAction = "manual_review"
	ActionAutoReject   ValidationAction = "auto_reject"
)

// Issue flags recorded on a ValidationResult.
const (
	IssueNearDuplicate  = "near_duplicate"
	IssueStockMetadata  = "stock_metadata"
	IssueBrandNotInText = "brand_not_in_text"
)

// ValidationResult is produced once per downloaded image. It is immutable;
// reprocessing supersedes it with a new result rather than mutating.
type ValidationResult struct {
	Confidence   float64          `json:"confidence"`
	Action       ValidationAction `json:"action"`
	DetectedText string           `json:"detectedText,omitempty"`
	BrandMatch   bool             `json:"brandMatch"`
	Issues       []string         `json:"issues,omitempty"`
}

// ItemOutcome is the atomic commit payload for one item's final state.
// It is written as a single UPDATE so an interrupted process never leaves
// an item half-updated.
type ItemOutcome struct {
	ItemID       string
	Status       ItemStatus
	ImagePath    string
	Confidence   *float64 // nil when validation could not run
	Action       ValidationAction
	DetectedText string
	BrandMatch   bool
	SourceDomain string
	SourceURL    string
}

// BatchProgress is the externally visible state of a batch run.
type BatchProgress struct {
	RunID      string  `json:"runId"`
	Total      int     `json:"total"`
	Attempted  int     `json:"attempted"`
	Searched   int     `json:"searched"`
	Found      int     `json:"found"`
	Downloaded int     `json:"downloaded"`
	Skipped    int     `json:"skipped"`
	Errors     int     `json:"errors"`
	Running    bool    `json:"running"`
	Progress   float64 `json:"progress"` // attempted/total, clamped to [0,1]
}
