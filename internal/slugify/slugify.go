// Package slugify turns arbitrary human text into URL/file-safe tokens and
// builds the compound slugs used for published filenames.
//
// Everything in this package is pure: no time, no randomness. The same
// inputs always produce byte-identical output, because published filenames
// must be reproducible across runs.
package slugify

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// hyphenRun collapses multiple consecutive hyphens into one.
var hyphenRun = regexp.MustCompile(`-{2,}`)

// Normalize converts arbitrary text into a lowercase token containing only
// [a-z0-9-_]. Accents are stripped, commas removed, whitespace runs become
// single hyphens, hyphen runs collapse, and leading/trailing hyphens are
// trimmed. Normalizing an already-normalized token returns it unchanged.
func Normalize(s string) string {
	// Decompose accented characters and drop the combining marks.
	t := transform.Chain(norm.NFD, transform.RemoveFunc(isMn))
	result, _, _ := transform.String(t, s)

	result = strings.ToLower(result)
	result = strings.ReplaceAll(result, ",", "")

	result = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, result)

	result = hyphenRun.ReplaceAllString(result, "-")
	return strings.Trim(result, "-")
}

// isMn reports whether r is a Unicode non-spacing mark (e.g., accents).
func isMn(r rune) bool {
	return unicode.Is(unicode.Mn, r)
}

// BuildSlug combines the identity fields of an image into one deterministic
// compound slug:
//
//	subject-sublocation-city__keyword__descriptor__photoid
//
// Double underscores partition the semantic groups so the slug can be
// decomposed for display; single hyphens join words within a group. Each
// field is normalized independently; empty location fields drop out without
// leaving doubled hyphens.
func BuildSlug(subject, subLocation, city, keyword, descriptor, photoID string) string {
	var locParts []string
	for _, part := range []string{subject, subLocation, city} {
		if n := Normalize(part); n != "" {
			locParts = append(locParts, n)
		}
	}

	groups := []string{
		strings.Join(locParts, "-"),
		Normalize(keyword),
		Normalize(descriptor),
		Normalize(photoID),
	}
	return strings.Join(groups, "__")
}

// CharSum returns the sum of the byte values of s. It is deliberately a weak
// hash: it only has to pick stable descriptors for filenames the user
// uploaded themselves, and previously published filenames depend on it
// staying exactly this.
func CharSum(s string) int {
	sum := 0
	for _, b := range []byte(s) {
		sum += int(b)
	}
	return sum
}

// PhotoID derives the photo-id slug component from an original filename:
// the lowercase base name with everything outside [a-z0-9] dropped, so
// "IMG_4521.jpg" becomes "img4521". Falls back to "img" when nothing
// survives.
func PhotoID(filename string) string {
	base := filepath.Base(filename)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.ToLower(base)

	var b strings.Builder
	for _, r := range base {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "img"
	}
	return b.String()
}
