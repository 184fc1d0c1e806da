package match

// Match Package Structure:
//
//   - match.go     - Matcher and the exact/token-overlap search
//   - normalize.go - Key normalization, tokenization and Jaccard scoring
//
// Matching is best-effort: a wrong pairing or a missed pairing is an
// accepted outcome, never an error.

import "log/slog"

// DefaultThreshold is the acceptance threshold used for page images.
const DefaultThreshold = 0.3

// DefaultStopWords are the articles and prepositions of the site's two
// working languages plus the castle words that appear in most names.
var DefaultStopWords = []string{
	"van", "de", "het", "le", "la", "du", "des", "te", "in", "op", "aan",
	"kasteel", "chateau", "hof",
}

type Matcher struct {
	threshold float64
	stop      map[string]struct{}
}

// New returns a Matcher accepting token-overlap scores strictly greater than
// threshold. A nil stopWords uses DefaultStopWords.
func New(threshold float64, stopWords []string) *Matcher {
	if stopWords == nil {
		stopWords = DefaultStopWords
	}
	stop := make(map[string]struct{}, len(stopWords))
	for _, w := range stopWords {
		stop[fold(w)] = struct{}{}
	}
	return &Matcher{threshold: threshold, stop: stop}
}

// WithThreshold returns a copy of m that shares its stop words.
func (m *Matcher) WithThreshold(threshold float64) *Matcher {
	return &Matcher{threshold: threshold, stop: m.stop}
}

func (m *Matcher) Threshold() float64 {
	return m.threshold
}

// Tokens splits name into its significant tokens under m's stop words.
func (m *Matcher) Tokens(name string) []string {
	return tokens(name, m.stop)
}

// Best returns the index of the candidate name that best matches key.
//
// An exact match of normalized keys wins over any token-overlap score.
// Otherwise the candidate with the highest Jaccard similarity is accepted
// when its score is strictly above the threshold and both token sets are
// non-empty. Ties keep the first candidate in slice order.
func (m *Matcher) Best(key string, names []string) (int, float64, bool) {
	normKey := Normalize(key)
	if normKey != "" {
		for i, name := range names {
			if Normalize(name) == normKey {
				slog.Debug("Exact match", "key", key, "candidate", name)
				return i, 1, true
			}
		}
	}

	keyTokens := m.Tokens(key)
	if len(keyTokens) == 0 {
		slog.Debug("Key has no significant tokens", "key", key)
		return -1, 0, false
	}

	best, bestScore := -1, 0.0
	for i, name := range names {
		candTokens := m.Tokens(name)
		if len(candTokens) == 0 {
			continue
		}
		score := Jaccard(keyTokens, candTokens)
		if score > m.threshold && score > bestScore {
			best, bestScore = i, score
		}
	}

	if best < 0 {
		return -1, 0, false
	}
	slog.Debug("Token match", "key", key, "candidate", names[best], "score", bestScore)
	return best, bestScore, true
}
