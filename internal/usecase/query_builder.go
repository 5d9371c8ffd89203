package usecase

import (
	"regexp"
	"strings"

	"github.com/shelfpix/backend/internal/domain"
)

var multipleSpacesRegex = regexp.MustCompile(`\s+`)

// BuildQuery produces the canonical search query for an item. The title
// already carries brand and pack size the way the catalog writes them,
// so the query is the cleaned title and nothing else. Rebuilding the
// query from parts would fragment the search cache.
func BuildQuery(item domain.Item) (string, error) {
	title := strings.TrimSpace(item.Title)
	if title == "" {
		return "", domain.ErrEmptyTitle
	}

	return multipleSpacesRegex.ReplaceAllString(title, " "), nil
}
