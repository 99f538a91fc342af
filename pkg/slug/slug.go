package slug

import (
	"regexp"
	"strings"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// latinFolding maps common accented Latin characters to ASCII so
// catalog names slugify predictably.
var latinFolding = strings.NewReplacer(
	"à", "a", "á", "a", "â", "a", "ä", "a", "ã", "a",
	"ç", "c",
	"è", "e", "é", "e", "ê", "e", "ë", "e",
	"ğ", "g",
	"ì", "i", "í", "i", "î", "i", "ï", "i", "ı", "i",
	"ñ", "n",
	"ò", "o", "ó", "o", "ô", "o", "ö", "o", "õ", "o",
	"ş", "s",
	"ù", "u", "ú", "u", "û", "u", "ü", "u",
	"ý", "y",
)

// Generate builds a URL-friendly slug from a display name.
//
// Examples:
//   - "Denim Jacket"    -> "denim-jacket"
//   - "Café  Crème!"    -> "cafe-creme"
//   - "  Çocuk Ürünü  " -> "cocuk-urunu"
func Generate(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = latinFolding.Replace(slug)

	// Runs of anything non-alphanumeric collapse to one hyphen.
	slug = nonAlnum.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")

	return slug
}

// WithSuffix appends a uniquifying suffix, e.g. a short ID, keeping
// the slug shape intact.
func WithSuffix(name, suffix string) string {
	base := Generate(name)
	tail := Generate(suffix)
	if base == "" {
		return tail
	}
	if tail == "" {
		return base
	}
	return base + "-" + tail
}
