package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/shelfpix/backend/internal/domain"
)

// OCR boost weights. The total boost is capped so text evidence can
// nudge a decision but never carry it alone.
const (
	ocrBrandBoost     = 0.15
	ocrVariantBoost   = 0.10
	ocrTitleWordBoost = 0.05
	ocrTitleWordCap   = 3
	ocrBoostCap       = 0.3
	minTitleWordLen   = 4 // short words ("of", "the", "1l") prove nothing
)

// ValidatorConfig holds the confidence thresholds and gates
type ValidatorConfig struct {
	AutoApproveThreshold float64
	AutoRejectThreshold  float64
	RequireBrandOCR      bool
}

// Validator scores a downloaded image against the item it should depict
// and maps the confidence into a disposition band.
type Validator struct {
	vision domain.VisionClient
	config ValidatorConfig
}

// NewValidator creates a validator backed by the vision service
func NewValidator(vision domain.VisionClient, config ValidatorConfig) *Validator {
	return &Validator{vision: vision, config: config}
}

// BuildDescriptions produces the text prompts an item's image is scored
// against. More specific items get more specific prompts.
func BuildDescriptions(item domain.Item) []string {
	descriptions := []string{
		fmt.Sprintf("A product photo of %s", strings.TrimSpace(item.Brand+" "+item.Title)),
	}
	if item.Brand != "" {
		variant := item.Variant
		if variant == "" {
			variant = item.Title
		}
		descriptions = append(descriptions, fmt.Sprintf("A package of %s %s", item.Brand, variant))
	}
	if item.Variant != "" {
		descriptions = append(descriptions, fmt.Sprintf("%s %s product packaging", item.Title, item.Variant))
	}
	return descriptions
}

// Validate scores image for item. It returns ErrModelUnavailable
// unwrapped from the vision client when inference cannot run; callers
// park the item for manual review in that case.
func (v *Validator) Validate(ctx context.Context, item domain.Item, image []byte) (*domain.ValidationResult, error) {
	similarity, err := v.vision.Similarity(ctx, BuildDescriptions(item), image)
	if err != nil {
		return nil, err
	}

	text, err := v.vision.ExtractText(ctx, image)
	if err != nil {
		return nil, err
	}

	result := &domain.ValidationResult{DetectedText: text}
	result.BrandMatch = item.Brand != "" && containsBrand(text, item.Brand)

	confidence := similarity + v.ocrBoost(item, text, result.BrandMatch)
	if confidence > 1.0 {
		confidence = 1.0
	}

	if v.config.RequireBrandOCR && item.Brand != "" && !result.BrandMatch {
		// Without the brand readable on pack, auto-approval is off the
		// table no matter how similar the image looks.
		ceiling := v.config.AutoApproveThreshold - 0.01
		if confidence > ceiling {
			confidence = ceiling
		}
		result.Issues = append(result.Issues, domain.IssueBrandNotInText)
	}

	result.Confidence = confidence
	result.Action = v.band(confidence)

	return result, nil
}

// ocrBoost rewards recognized text that corroborates the item
func (v *Validator) ocrBoost(item domain.Item, text string, brandMatch bool) float64 {
	if strings.TrimSpace(text) == "" {
		return 0
	}

	boost := 0.0
	if brandMatch {
		boost += ocrBrandBoost
	}

	words := tokenize(text)
	if item.Variant != "" {
		for token := range tokenize(item.Variant) {
			if words[token] {
				boost += ocrVariantBoost
				break
			}
		}
	}

	matched := 0
	for token := range tokenize(item.Title) {
		if len(token) >= minTitleWordLen && words[token] {
			matched++
		}
	}
	if matched >= 2 {
		if matched > ocrTitleWordCap {
			matched = ocrTitleWordCap
		}
		boost += ocrTitleWordBoost * float64(matched)
	}

	if boost > ocrBoostCap {
		boost = ocrBoostCap
	}
	return boost
}

// band maps a confidence to its disposition; boundaries route upward
func (v *Validator) band(confidence float64) domain.ValidationAction {
	switch {
	case confidence >= v.config.AutoApproveThreshold:
		return domain.ActionAutoApprove
	case confidence >= v.config.AutoRejectThreshold:
		return domain.ActionManualReview
	default:
		return domain.ActionAutoReject
	}
}
