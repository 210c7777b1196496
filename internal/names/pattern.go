package names

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// Matcher builds tolerant regular expressions for name lookups and caches
// the compiled results. Patterns accept truncations, extensions, and common
// misspellings of each token so that "cathy" still finds "Catherine".
// Safe for concurrent use.
type Matcher struct {
	nicknames *Nicknames

	mu    sync.Mutex
	cache map[string]*regexp.Regexp
}

func NewMatcher() *Matcher {
	return &Matcher{
		nicknames: NewNicknames(),
		cache:     make(map[string]*regexp.Regexp),
	}
}

// PatternForQuery turns a free-form name query into a fuzzy pattern. Tokens
// may appear adjacent or separated by arbitrary text in the candidate.
func (m *Matcher) PatternForQuery(query string) string {
	tokens := splitNonEmpty(tokenSplitRE, strings.ToLower(strings.TrimSpace(query)))
	if len(tokens) == 0 {
		return ".*"
	}
	parts := make([]string, len(tokens))
	for i, t := range tokens {
		parts[i] = m.patternForToken(t)
	}
	return strings.Join(parts, "(?:.*?| )")
}

// PatternWithNicknames widens a query so any nickname variation of each
// token matches, and so multi-token names match on either the first token
// alone or the full sequence.
func (m *Matcher) PatternWithNicknames(name string) string {
	tokens := splitNonEmpty(tokenSplitRE, strings.ToLower(strings.TrimSpace(name)))
	if len(tokens) == 0 {
		return ".*"
	}
	if len(tokens) == 1 {
		return m.tokenWithVariations(tokens[0])
	}

	full := make([]string, len(tokens))
	for i, t := range tokens {
		full[i] = m.tokenWithVariations(t)
	}
	return "(?:" + full[0] + "|" + strings.Join(full, `(?:.*?|\s+)`) + ")"
}

// tokenWithVariations unions the fuzzy patterns of a token and every
// nickname variation of it, so "bill" also matches "William".
func (m *Matcher) tokenWithVariations(token string) string {
	variations := m.nicknames.Variations(token)
	alts := make([]string, 0, len(variations))
	for v := range variations {
		alts = append(alts, m.patternForToken(v))
	}
	if len(alts) == 1 {
		return alts[0]
	}
	return "(?:" + strings.Join(alts, "|") + ")"
}

// MatchName reports whether name matches pattern, case-insensitively.
// Compiled patterns are memoized per Matcher instance.
func (m *Matcher) MatchName(pattern, name string) bool {
	m.mu.Lock()
	re, ok := m.cache[pattern]
	if !ok {
		var err error
		re, err = regexp.Compile("(?i)" + pattern)
		if err != nil {
			m.mu.Unlock()
			return false
		}
		m.cache[pattern] = re
	}
	m.mu.Unlock()
	return re.MatchString(name)
}

// patternForToken builds the per-token alternatives. Longer tokens get more
// forgiving forms: dropped first letter, a fuzzy middle section, and
// progressively shorter prefixes.
func (m *Matcher) patternForToken(token string) string {
	esc := regexp.QuoteMeta(token)
	n := len(token)

	switch {
	case n == 1:
		return `\b` + esc + `(?:\.|[a-z]*)\b`
	case n == 2:
		alts := []string{
			`\b` + esc + `[a-z]{0,3}\b`,
			`[a-z]*` + esc + `\b`,
			`\b[a-z]*` + esc + `[a-z]*\b`,
		}
		return "(?:" + strings.Join(alts, "|") + ")"
	}

	alts := []string{
		`\b` + esc + `[a-z]*\b`,
		`[a-z]*` + esc + `\b`,
		`\b[a-z]*` + esc + `[a-z]*\b`,
	}

	if n >= 5 {
		alts = append(alts, `\b`+regexp.QuoteMeta(token[1:])+`[a-z]*\b`)
	}

	if n >= 4 {
		lastPart := token[n-1:]
		if n > 4 {
			lastPart = token[n-2:]
		}
		middleLen := n - len(lastPart) - 1
		lo := middleLen - 1
		if lo < 1 {
			lo = 1
		}
		alts = append(alts, fmt.Sprintf(`\b%s[a-z]{%d,%d}%s[a-z]*\b`,
			regexp.QuoteMeta(token[:1]), lo, middleLen+1, regexp.QuoteMeta(lastPart)))
	}

	minPrefix := 2
	if n-1 < minPrefix {
		minPrefix = n - 1
	}
	for plen := n - 1; plen >= minPrefix; plen-- {
		alts = append(alts, `\b`+regexp.QuoteMeta(token[:plen])+`[a-z]*\b`)
	}

	return "(?:" + strings.Join(alts, "|") + ")"
}
