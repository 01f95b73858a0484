package matching

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// editionSuffixes are trailing edition markers that platforms append to the
// same underlying title. Compared against the already-normalized tail.
var editionSuffixes = []string{
	"game of the year edition",
	"game of the year",
	"goty edition",
	"goty",
	"complete edition",
	"definitive edition",
	"enhanced edition",
	"deluxe edition",
	"ultimate edition",
	"remastered",
	"remaster",
	"directors cut",
}

// strippedPunctuation is removed outright during normalization. Everything
// here separates words, so it is replaced by a space and the spaces are
// collapsed afterwards.
const strippedPunctuation = ":;,.!?'\"()[]{}<>/\\|@#$%^&*_+=~`-"

// NormalizeTitle produces the comparable form of a title used for
// cross-platform matching and stored as games.normalized_title:
// lowercase, NFKD with combining marks dropped, trademark glyphs removed,
// punctuation replaced by spaces, whitespace collapsed, edition suffixes
// trimmed.
func NormalizeTitle(title string) string {
	decomposed := norm.NFKD.String(strings.ToLower(title))

	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		switch {
		case unicode.Is(unicode.Mn, r):
			// Combining mark left over from decomposition.
		case r == '®' || r == '©' || r == '™':
			// Registered / copyright / trademark glyphs.
		case strings.ContainsRune(strippedPunctuation, r):
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}

	normalized := strings.Join(strings.Fields(b.String()), " ")
	return stripEditionSuffix(normalized)
}

// stripEditionSuffix removes one trailing edition marker, if present.
func stripEditionSuffix(normalized string) string {
	for _, suffix := range editionSuffixes {
		if normalized == suffix {
			// "Remastered" alone is a title, not a suffix.
			return normalized
		}
		if strings.HasSuffix(normalized, " "+suffix) {
			return strings.TrimSpace(strings.TrimSuffix(normalized, suffix))
		}
	}
	return normalized
}
