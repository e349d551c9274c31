package tabs

import "strings"

// QueryFromPattern rewrites a topic regex as a full text search query.
// Alternation becomes OR terms and escaped dots become literal dots, so
// "(?i)(bitcoin|btc|lightning\.network)" turns into
// "bitcoin OR btc OR lightning.network". Anything fancier than flat
// alternation passes through untouched.
func QueryFromPattern(pattern string) string {
	pattern = strings.TrimPrefix(pattern, "(?i)")
	pattern = stripEnclosingGroup(pattern)

	var terms []string
	for _, part := range strings.Split(pattern, "|") {
		part = strings.TrimSpace(part)
		part = strings.ReplaceAll(part, `\.`, ".")
		if part == "" {
			continue
		}
		terms = append(terms, part)
	}
	return strings.Join(terms, " OR ")
}

// stripEnclosingGroup removes one pair of parentheses wrapping the whole
// pattern, including the non-capturing form.
func stripEnclosingGroup(pattern string) string {
	if !strings.HasPrefix(pattern, "(") || !strings.HasSuffix(pattern, ")") {
		return pattern
	}

	depth := 0
	for i := range pattern {
		switch pattern[i] {
		case '(':
			depth++
		case ')':
			depth--
			// Closed before the end means the parens do not wrap the
			// whole pattern
			if depth == 0 && i != len(pattern)-1 {
				return pattern
			}
		}
	}

	inner := pattern[1 : len(pattern)-1]
	return strings.TrimPrefix(inner, "?:")
}
