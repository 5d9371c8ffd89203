package imaging

import (
	"bytes"
	"strings"

	"github.com/bep/imagemeta"
)

// stockKeywords are substrings that identify a stock-photo agency when
// found in copyright or credit metadata, case-insensitive.
var stockKeywords = []string{
	"shutterstock",
	"gettyimages",
	"getty images",
	"istockphoto",
	"istock",
	"alamy",
	"depositphotos",
	"dreamstime",
	"123rf",
	"adobestock",
	"adobe stock",
	"stocksy",
	"freepik",
}

// wantedTags lists the metadata tags relevant to stock detection
var wantedTags = map[imagemeta.Source]map[string]bool{
	imagemeta.IPTC: {
		"CopyrightNotice": true,
		"Credit":          true,
		"Byline":          true,
		"Source":          true,
	},
	imagemeta.EXIF: {
		"Copyright": true,
		"Artist":    true,
	},
}

// HasStockMetadata reports whether the raw image bytes carry EXIF or
// IPTC fingerprints of a known stock-photo agency. Parse failures are
// treated as clean.
func HasStockMetadata(data []byte) bool {
	if len(data) == 0 {
		return false
	}

	stock := false
	_, _ = imagemeta.Decode(imagemeta.Options{
		R:       bytes.NewReader(data),
		Sources: imagemeta.EXIF | imagemeta.IPTC,
		ShouldHandleTag: func(ti imagemeta.TagInfo) bool {
			if tags, ok := wantedTags[ti.Source]; ok {
				return tags[ti.Tag]
			}
			return false
		},
		HandleTag: func(ti imagemeta.TagInfo) error {
			if matchesStockKeyword(tagValueString(ti.Value)) {
				stock = true
			}
			return nil
		},
	})

	return stock
}

func matchesStockKeyword(value string) bool {
	if value == "" {
		return false
	}
	lower := strings.ToLower(value)
	for _, kw := range stockKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func tagValueString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []string:
		if len(val) > 0 {
			return val[0]
		}
	case []any:
		if len(val) > 0 {
			if s, ok := val[0].(string); ok {
				return s
			}
		}
	}
	return ""
}
