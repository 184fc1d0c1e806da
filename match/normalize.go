package match

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	reSeparators = regexp.MustCompile(`[_\-\s]+`)
	knownExts    = map[string]bool{
		".html": true, ".htm": true,
		".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true, ".svg": true,
	}
)

// Normalize lower-cases name, drops a known page or image extension, folds
// diacritics and removes separators. The result is stable across runs.
func Normalize(name string) string {
	return reSeparators.ReplaceAllString(fold(stripExt(name)), "")
}

// Jaccard returns |a ∩ b| / |a ∪ b| over the distinct elements of a and b.
func Jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]bool, len(a))
	for _, t := range a {
		set[t] = true
	}
	union := len(set)
	inter := 0
	seen := make(map[string]bool, len(b))
	for _, t := range b {
		if seen[t] {
			continue
		}
		seen[t] = true
		if set[t] {
			inter++
		} else {
			union++
		}
	}
	return float64(inter) / float64(union)
}

func tokens(name string, stop map[string]struct{}) []string {
	var out []string
	seen := make(map[string]bool)
	for _, t := range reSeparators.Split(fold(stripExt(name)), -1) {
		if t == "" || seen[t] {
			continue
		}
		if _, ok := stop[t]; ok {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func stripExt(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "." {
		return ""
	}
	if ext := filepath.Ext(base); knownExts[strings.ToLower(ext)] {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}

func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		return strings.ToLower(s)
	}
	return folded
}
