package names

import (
	"regexp"
	"strings"
)

// Match type tags reported by Compare.
const (
	MatchNoData         = "no_data"
	MatchEmptyAfterNorm = "empty_after_norm"
	MatchExact          = "exact_normalized"
	MatchPrefixTrunc    = "prefix_truncation"
	MatchSuffixTrunc    = "suffix_truncation"
	MatchSubstringTrunc = "substring_truncation"
	MatchHighSim        = "high_similarity"
	MatchGoodSim        = "good_similarity"
	MatchFairSim        = "fair_similarity"
	MatchWeakSim        = "weak_similarity"
	MatchPhonetic       = "phonetic_match"
	MatchCharOverlap    = "character_overlap"
	MatchPoor           = "poor_match"
)

// Similarity is the structured verdict of comparing two names.
type Similarity struct {
	Ratio     float64
	MatchType string
	Score     int
}

var honorifics = map[string]bool{
	"dr": true, "dr.": true, "mr": true, "mr.": true,
	"mrs": true, "mrs.": true, "ms": true, "ms.": true, "miss": true,
	"jr": true, "jr.": true, "sr": true, "sr.": true,
	"ii": true, "iii": true, "iv": true,
}

// ocrFixes maps scanner and data-entry artifacts to their likely intended
// characters. Applied in order, so multi-character fixes run after the
// digit substitutions that could feed them.
var ocrFixes = []struct{ from, to string }{
	{"0", "o"}, {"1", "l"}, {"5", "s"}, {"8", "b"},
	{"rn", "m"}, {"cl", "d"}, {"vv", "w"}, {"ii", "n"},
	{"ﬁ", "fi"}, {"ﬂ", "fl"}, {"oe", "ce"}, {"ae", "a"},
	{".", ""}, {"_", ""}, {"|", "l"}, {"\\", ""}, {"/", ""},
}

var (
	nameSplitRE  = regexp.MustCompile(`[\s\-'.]+`)
	tokenSplitRE = regexp.MustCompile(`[-\s']+`)
)

// Normalize reduces a name to a canonical lowercase form: honorific tokens
// dropped, OCR artifacts substituted, accidental letter-doubling collapsed
// (never below 2 characters per token).
func Normalize(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ""
	}

	parts := splitNonEmpty(nameSplitRE, name)
	if len(parts) == 0 {
		return ""
	}

	cleaned := parts[:0:0]
	for _, p := range parts {
		if !honorifics[p] {
			cleaned = append(cleaned, p)
		}
	}
	if len(cleaned) == 0 {
		cleaned = parts
	}

	out := make([]string, 0, len(cleaned))
	for _, p := range cleaned {
		for _, fix := range ocrFixes {
			p = strings.ReplaceAll(p, fix.from, fix.to)
		}
		if len(p) > 2 {
			deduped := collapseRuns(p)
			if len(deduped) >= 2 {
				p = deduped
			}
		}
		out = append(out, p)
	}
	return strings.Join(out, " ")
}

// Compare computes a similarity verdict between two raw names. The Score is
// the last-resort bonus (0-15) awarded when pattern matching fails.
func Compare(a, b string) Similarity {
	if a == "" || b == "" {
		return Similarity{MatchType: MatchNoData}
	}

	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return Similarity{MatchType: MatchEmptyAfterNorm}
	}

	if na == nb {
		return Similarity{Ratio: 1.0, MatchType: MatchExact, Score: 15}
	}

	shorter, longer := na, nb
	if len(nb) < len(na) {
		shorter, longer = nb, na
	}
	if len(shorter) >= 2 && strings.Contains(longer, shorter) {
		switch {
		case strings.HasPrefix(longer, shorter):
			return Similarity{Ratio: 0.95, MatchType: MatchPrefixTrunc, Score: 12}
		case strings.HasSuffix(longer, shorter):
			return Similarity{Ratio: 0.95, MatchType: MatchSuffixTrunc, Score: 12}
		default:
			return Similarity{Ratio: 0.85, MatchType: MatchSubstringTrunc, Score: 10}
		}
	}

	dist := Levenshtein(na, nb)
	maxLen := len(na)
	if len(nb) > maxLen {
		maxLen = len(nb)
	}
	sim := 0.0
	if maxLen > 0 {
		sim = 1.0 - float64(dist)/float64(maxLen)
	}

	switch {
	case sim >= 0.9:
		return Similarity{Ratio: sim, MatchType: MatchHighSim, Score: 12}
	case sim >= 0.8:
		return Similarity{Ratio: sim, MatchType: MatchGoodSim, Score: 10}
	case sim >= 0.7:
		return Similarity{Ratio: sim, MatchType: MatchFairSim, Score: 8}
	case sim >= 0.6:
		return Similarity{Ratio: sim, MatchType: MatchWeakSim, Score: 5}
	}

	overlap := charOverlap(na, nb)
	if phoneticCode(na) == phoneticCode(nb) && overlap > 0.5 {
		return Similarity{Ratio: 0.6, MatchType: MatchPhonetic, Score: 6}
	}
	if overlap > 0.7 {
		return Similarity{Ratio: overlap, MatchType: MatchCharOverlap, Score: 4}
	}
	return Similarity{Ratio: sim, MatchType: MatchPoor}
}

// Levenshtein is the edit distance between two strings, compared bytewise.
func Levenshtein(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	prev := make([]int, len(s2)+1)
	curr := make([]int, len(s2)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(s1); i++ {
		curr[0] = i
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			curr[j] = minInt(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(s2)]
}

// phoneticCode builds a coarse sound key: first letter kept, vowels dropped,
// consecutive duplicates collapsed, padded or cut to 4 characters.
func phoneticCode(name string) string {
	if name == "" {
		return ""
	}
	result := []byte{name[0]}
	for i := 1; i < len(name); i++ {
		c := name[i]
		if strings.IndexByte("aeiou", c) >= 0 {
			continue
		}
		if c == result[len(result)-1] {
			continue
		}
		result = append(result, c)
	}
	code := string(result)
	if len(code) > 4 {
		return code[:4]
	}
	for len(code) < 4 {
		code += "0"
	}
	return code
}

// collapseRuns reduces every run of a repeated character to a single
// occurrence, so "aaron" becomes "aron".
func collapseRuns(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	last := rune(-1)
	for _, r := range s {
		if r == last {
			continue
		}
		b.WriteRune(r)
		last = r
	}
	return b.String()
}

func charOverlap(a, b string) float64 {
	setA := make(map[rune]struct{})
	for _, r := range a {
		setA[r] = struct{}{}
	}
	setB := make(map[rune]struct{})
	for _, r := range b {
		setB[r] = struct{}{}
	}
	if len(setA) == 0 && len(setB) == 0 {
		return 0
	}
	inter := 0
	for r := range setA {
		if _, ok := setB[r]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	return float64(inter) / float64(union)
}

func splitNonEmpty(re *regexp.Regexp, s string) []string {
	raw := re.Split(s, -1)
	out := raw[:0]
	for _, p := range raw {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func minInt(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
