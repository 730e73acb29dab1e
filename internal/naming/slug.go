package naming

import "strings"

// Slug lowercases s, turns every run of characters outside [a-z0-9] into a
// single hyphen and trims hyphens from both ends. Slug(Slug(s)) == Slug(s).
func Slug(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	pending := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pending && b.Len() > 0 {
				b.WriteByte('-')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}

	return b.String()
}

// SanitizeProduct lowercases s, maps spaces and underscores to hyphens, drops
// everything outside [a-z0-9-], collapses hyphen runs and trims them. An empty
// result becomes "image".
func SanitizeProduct(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '_', r == '-':
			b.WriteByte('-')
		}
	}

	out := b.String()
	for strings.Contains(out, "--") {
		out = strings.ReplaceAll(out, "--", "-")
	}
	out = strings.Trim(out, "-")

	if out == "" {
		return "image"
	}

	return out
}
