package similarity

import (
	"strings"
	"unicode/utf8"
)

// minTokenLen, in characters, drops short function words before comparison.
const minTokenLen = 4

func Tokens(text string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, f := range strings.Fields(strings.ToLower(text)) {
		if utf8.RuneCountInString(f) >= minTokenLen {
			out[f] = struct{}{}
		}
	}
	return out
}

// Jaccard is |A∩B| / |A∪B| over the token sets of a and b, 0 when either is empty.
func Jaccard(a, b string) float64 {
	return JaccardSets(Tokens(a), Tokens(b))
}

func JaccardSets(ta, tb map[string]struct{}) float64 {
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	small, large := ta, tb
	if len(small) > len(large) {
		small, large = large, small
	}
	inter := 0
	for tok := range small {
		if _, ok := large[tok]; ok {
			inter++
		}
	}
	union := len(ta) + len(tb) - inter
	return float64(inter) / float64(union)
}

// Max returns the highest similarity between text and any entry of corpus.
func Max(text string, corpus []string) float64 {
	ta := Tokens(text)
	best := 0.0
	for _, c := range corpus {
		if s := JaccardSets(ta, Tokens(c)); s > best {
			best = s
		}
	}
	return best
}

// Exceeds reports whether text is more similar than threshold to any corpus entry.
func Exceeds(text string, corpus []string, threshold float64) bool {
	return Max(text, corpus) > threshold
}
