package usecase

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var sizeRegex = regexp.MustCompile(`(?i)\b(\d+(?:[.,]\d+)?)\s*(kg|g|ml|l|litre|liter)\b`)

// Size is a pack size normalized to grams or milliliters
type Size struct {
	Value float64
	Unit  string // "g" or "ml"
}

// ParseSizes extracts every pack size mentioned in text, normalized so
// "1.5kg" and "1500 g" compare equal.
func ParseSizes(text string) []Size {
	matches := sizeRegex.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	sizes := make([]Size, 0, len(matches))
	for _, m := range matches {
		raw := strings.ReplaceAll(m[1], ",", ".")
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}

		switch strings.ToLower(m[2]) {
		case "kg":
			sizes = append(sizes, Size{Value: value * 1000, Unit: "g"})
		case "g":
			sizes = append(sizes, Size{Value: value, Unit: "g"})
		case "l", "litre", "liter":
			sizes = append(sizes, Size{Value: value * 1000, Unit: "ml"})
		case "ml":
			sizes = append(sizes, Size{Value: value, Unit: "ml"})
		}
	}

	return sizes
}

// SizesConflict reports whether candidate text names a pack size that
// disagrees with the item's size beyond tolerancePercent. Text with no
// size of the item's unit class is neutral, not a conflict; mass and
// volume never conflict with each other.
func SizesConflict(itemValue float64, itemUnit, text string, tolerancePercent float64) bool {
	if itemValue <= 0 || itemUnit == "" {
		return false
	}

	sameClass := false
	for _, size := range ParseSizes(text) {
		if size.Unit != itemUnit {
			continue
		}
		sameClass = true
		if withinTolerance(itemValue, size.Value, tolerancePercent) {
			return false
		}
	}

	return sameClass
}

func withinTolerance(want, got, tolerancePercent float64) bool {
	if want == 0 {
		return got == 0
	}
	return math.Abs(got-want)/want*100 <= tolerancePercent
}
