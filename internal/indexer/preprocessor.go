package indexer

import (
	"strings"
	"unicode"

	"github.com/hyperjump/katalog/internal/models"
	"github.com/hyperjump/katalog/pkg/utils"
)

// Preprocess normalizes text for embedding (trim, collapse whitespace).
func Preprocess(text string) string {
	text = strings.TrimSpace(text)
	var b strings.Builder
	wasSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if !wasSpace {
				b.WriteRune(' ')
				wasSpace = true
			}
		} else {
			b.WriteRune(r)
			wasSpace = false
		}
	}
	return b.String()
}

// Describe builds the text half of an item's embedding input:
// "<name> - <category>", followed by " - <description>" when the item has one.
// The description is cut to descLimit runes; descLimit <= 0 keeps it whole.
func Describe(item models.Item, descLimit int) string {
	text := Preprocess(item.Name) + " - " + Preprocess(item.Category)
	desc := Preprocess(item.Description)
	if desc == "" {
		return text
	}
	if descLimit > 0 {
		desc = utils.Prefix(desc, descLimit)
	}
	return text + " - " + desc
}
