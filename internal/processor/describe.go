package processor

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultBaseTags are the fixed brand and category tags added to every item.
var DefaultBaseTags = []string{
	"custom", "laser engraved", "KM2", "leather patch", "snapback", "trucker hat",
	"premium", "gift", "local business", "Florida", "Lynn Haven",
}

// AltText describes the product with up to two of its colors. The wording
// depends on whether the background was removed.
func AltText(product string, colors []string, backgroundRemoved bool) string {
	mc := "neutral"
	if len(colors) > 0 {
		mc = strings.Join(colors[:min(2, len(colors))], ", ")
	}

	title := cases.Title(language.English).String(product)

	if backgroundRemoved {
		return fmt.Sprintf("%s with %s tones on a transparent or clean background, e-commerce ready product photo.", title, mc)
	}

	return fmt.Sprintf("%s with %s tones on a white studio background, angled product photo for e-commerce.", title, mc)
}

// Tags returns the product, the base tags and the colors, deduplicated in
// first-seen order.
func Tags(product string, base, colors []string) []string {
	out := make([]string, 0, 1+len(base)+len(colors))
	seen := make(map[string]struct{}, cap(out))

	add := func(tag string) {
		if tag == "" {
			return
		}
		if _, ok := seen[tag]; ok {
			return
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}

	add(product)
	for _, t := range base {
		add(t)
	}
	for _, c := range colors {
		add(c)
	}

	return out
}
