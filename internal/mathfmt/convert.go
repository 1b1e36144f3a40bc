// Package mathfmt canonicalizes embedded script notation and full-width
// punctuation into inline LaTeX-style math spans. Convert lowers markup
// and wraps recognized expressions in $…$; Coalesce merges adjacent spans
// into one canonically spaced span and is idempotent. Both operate on one
// leaf string at a time and never cross item boundaries.
package mathfmt

import (
	"regexp"
	"strings"
	"unicode"
)

// Full-width punctuation and its spaced ASCII replacement, applied in
// order. The trailing spaces on sentence punctuation keep words separated
// after substitution.
var fullwidthReplacements = [][2]string{
	{"（", "("},
	{"）", ")"},
	{"，", ", "},
	{"。", ". "},
	{"．", ". "},
	{"；", "; "},
	{"：", ": "},
	{"＋", "+"},
	{"－", "-"},
	{"＝", "="},
	{"＜", "<"},
	{"＞", ">"},
}

var (
	wsRun      = regexp.MustCompile(`[\s\p{Z}]+`)
	brTag      = regexp.MustCompile(`(?i)<\s*br\s*/?>`)
	subOpen    = regexp.MustCompile(`(?i)<\s*sub\s*>`)
	subClose   = regexp.MustCompile(`(?i)<\s*/\s*sub\s*>`)
	supOpen    = regexp.MustCompile(`(?i)<\s*sup\s*>`)
	supClose   = regexp.MustCompile(`(?i)<\s*/\s*sup\s*>`)
	anyTag     = regexp.MustCompile(`<[^>]+>`)
	braceLeft  = regexp.MustCompile(`\{\s+`)
	braceRight = regexp.MustCompile(`\s+\}`)

	supPair = regexp.MustCompile(`\^\{([^}]+)\}\^\{([^}]+)\}`)
	subPair = regexp.MustCompile(`_\{([^}]+)\}_\{([^}]+)\}`)

	// A math expression: a backslash command with brace groups, or an
	// identifier / parenthesized group carrying script groups.
	mathExpr = regexp.MustCompile(`\\[A-Za-z]+(?:\{[^}]+\})+|(?:\([^)]+\)|[A-Za-zΑ-Ωα-ω][A-Za-z0-9Α-Ωα-ω]*)(?:_\{[^}]+\}|\^\{[^}]+\})+`)

	alnumBeforeOpen = regexp.MustCompile(`([0-9A-Za-zΑ-Ωα-ω])\$`)
	opBeforeOpen    = regexp.MustCompile(`([=+\-*/])\$`)
)

// Convert lowers embedded markup to math notation and wraps recognized
// expressions in $…$. Leading and trailing whitespace of the input is
// preserved untouched.
func Convert(text string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	start := len(text) - len(strings.TrimLeftFunc(text, unicode.IsSpace))
	end := len(strings.TrimRightFunc(text, unicode.IsSpace))
	prefix, core, suffix := text[:start], text[start:end], text[end:]

	core = strings.ReplaceAll(core, "\u00a0", " ")
	core = strings.ReplaceAll(core, "&nbsp;", " ")
	core = brTag.ReplaceAllString(core, "\n")
	core = subOpen.ReplaceAllString(core, "_{")
	core = subClose.ReplaceAllString(core, "}")
	core = supOpen.ReplaceAllString(core, "^{")
	core = supClose.ReplaceAllString(core, "}")
	core = anyTag.ReplaceAllString(core, "")
	for _, r := range fullwidthReplacements {
		core = strings.ReplaceAll(core, r[0], r[1])
	}
	core = braceLeft.ReplaceAllString(core, "{")
	core = braceRight.ReplaceAllString(core, "}")

	core = mergeAdjacent(supPair, "^", core)
	core = mergeAdjacent(subPair, "_", core)
	core = strings.TrimSpace(wsRun.ReplaceAllString(core, " "))

	core = mathExpr.ReplaceAllString(core, "$$${0}$$")
	// Keep consecutive spans and span-adjacent tokens from colliding.
	core = strings.ReplaceAll(core, "$$", "$ $")
	core = alnumBeforeOpen.ReplaceAllString(core, "${1} $$")
	core = opBeforeOpen.ReplaceAllString(core, "${1} $$")

	return prefix + core + suffix
}

// mergeAdjacent collapses immediately adjacent identical-direction script
// groups (^{a}^{b} → ^{ab}) until a fixed point is reached.
func mergeAdjacent(pair *regexp.Regexp, marker, s string) string {
	for {
		merged := pair.ReplaceAllString(s, marker+"{${1}${2}}")
		if merged == s {
			return s
		}
		s = merged
	}
}
