// Package similarity provides local, no-network implementations of the
// similarity function the consolidation sweep accepts. Each function
// scores two content strings in [0, 1].
package similarity

import (
	"math"
	"strings"
)

// Exact returns 1 for identical content (after trimming whitespace) and 0
// otherwise.
func Exact(a, b string) float64 {
	if strings.TrimSpace(a) == strings.TrimSpace(b) {
		return 1
	}
	return 0
}

// Bigram scores content by Jaccard overlap of character bigrams: cheap,
// deterministic, and good at catching near-identical phrasings.
func Bigram(a, b string) float64 {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	if a == b {
		if a == "" {
			return 0
		}
		return 1
	}

	bigramsA := bigrams(a)
	bigramsB := bigrams(b)
	if len(bigramsA) == 0 || len(bigramsB) == 0 {
		return 0
	}

	shared := 0
	for bg := range bigramsA {
		if bigramsB[bg] {
			shared++
		}
	}
	union := len(bigramsA) + len(bigramsB) - shared
	if union == 0 {
		return 0
	}
	return float64(shared) / float64(union)
}

func bigrams(s string) map[string]bool {
	if len(s) < 2 {
		return nil
	}
	m := make(map[string]bool, len(s)-1)
	for i := 0; i < len(s)-1; i++ {
		m[s[i:i+2]] = true
	}
	return m
}

// TermCosine scores content by cosine similarity over term-frequency
// vectors. More tolerant of reordering than Bigram; still entirely local.
func TermCosine(a, b string) float64 {
	ta := termFreq(tokenize(a))
	tb := termFreq(tokenize(b))
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for term, ca := range ta {
		normA += ca * ca
		if cb, ok := tb[term]; ok {
			dot += ca * cb
		}
	}
	for _, cb := range tb {
		normB += cb * cb
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return dot / denom
}

func termFreq(tokens []string) map[string]float64 {
	if len(tokens) == 0 {
		return nil
	}
	tf := make(map[string]float64, len(tokens))
	for _, t := range tokens {
		tf[t]++
	}
	return tf
}

// tokenize splits text into lowercase tokens, stripping punctuation and
// single-character noise.
func tokenize(text string) []string {
	text = strings.ToLower(text)
	var tokens []string
	var current strings.Builder
	for _, r := range text {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			current.WriteRune(r)
		} else {
			if current.Len() > 1 {
				tokens = append(tokens, current.String())
			}
			current.Reset()
		}
	}
	if current.Len() > 1 {
		tokens = append(tokens, current.String())
	}
	return tokens
}
