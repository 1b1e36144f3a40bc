package mathfmt

import (
	"regexp"
	"strings"
)

// connectorRun matches literal text that may sit between two math spans
// without breaking them apart: whitespace, list/operator punctuation,
// digits, and the CJK comma/period forms.
var connectorRun = regexp.MustCompile(`^[\s,;:+\-*/=0-9.··，。．]+$`)

var (
	eqPad      = regexp.MustCompile(`\s*=\s*`)
	plusPad    = regexp.MustCompile(`\s*\+\s*`)
	minusPad   = regexp.MustCompile(`\s*-\s*`)
	mulPad     = regexp.MustCompile(`\s*\*\s*`)
	divPad     = regexp.MustCompile(`\s*/\s*`)
	commaPad   = regexp.MustCompile(`\s*,\s*`)
	openTight  = regexp.MustCompile(`\s*\(\s*`)
	closeTight = regexp.MustCompile(`\s*\)\s*`)
	supTight   = regexp.MustCompile(`\s*\^\s*`)
	subTight   = regexp.MustCompile(`\s*_\s*`)

	negSup     = regexp.MustCompile(`\^\{\s*-\s*([^{}]+)\s*\}`)
	negSub     = regexp.MustCompile(`_\{\s*-\s*([^{}]+)\s*\}`)
	braceInner = regexp.MustCompile(`\{\s*([^{}]*?)\s*\}`)
)

// Coalesce merges math spans separated only by connector runs into one
// span and reformats each resulting span canonically. Running Coalesce on
// its own output changes nothing.
func Coalesce(text string) string {
	if !strings.Contains(text, "$") {
		return text
	}

	type segment struct {
		math    bool
		content string
	}
	var segments []segment
	for i := 0; i < len(text); {
		if text[i] == '$' {
			j := strings.IndexByte(text[i+1:], '$')
			if j < 0 {
				break
			}
			segments = append(segments, segment{math: true, content: text[i+1 : i+1+j]})
			i += j + 2
			continue
		}
		j := strings.IndexByte(text[i:], '$')
		if j < 0 {
			j = len(text) - i
		}
		segments = append(segments, segment{content: text[i : i+j]})
		i += j
	}

	var out []string
	var buffer string
	inBuffer := false
	pending := ""

	flush := func() {
		if formatted := formatMathBuffer(buffer + pending); formatted != "" {
			out = append(out, "$"+formatted+"$")
		}
		inBuffer = false
		buffer = ""
		pending = ""
	}

	for _, seg := range segments {
		if seg.math {
			if inBuffer {
				buffer += pending + seg.content
			} else {
				buffer = seg.content
				inBuffer = true
			}
			pending = ""
			continue
		}
		if inBuffer {
			if connectorRun.MatchString(seg.content) {
				pending += seg.content
				continue
			}
			flush()
		}
		out = append(out, seg.content)
	}
	if inBuffer {
		flush()
	} else if pending != "" {
		out = append(out, pending)
	}

	return strings.Join(out, "")
}

// formatMathBuffer normalizes the interior of a merged math span: single
// spaces around = + - * /, tight parentheses and script markers, grouped
// scripts with a correctly attached unary minus.
func formatMathBuffer(buffer string) string {
	buffer = strings.TrimSpace(buffer)
	if buffer == "" {
		return buffer
	}
	buffer = wsRun.ReplaceAllString(buffer, " ")
	buffer = eqPad.ReplaceAllString(buffer, " = ")
	buffer = plusPad.ReplaceAllString(buffer, " + ")
	buffer = minusPad.ReplaceAllString(buffer, " - ")
	buffer = mulPad.ReplaceAllString(buffer, " * ")
	buffer = divPad.ReplaceAllString(buffer, " / ")
	buffer = commaPad.ReplaceAllString(buffer, ", ")
	buffer = openTight.ReplaceAllString(buffer, "(")
	buffer = closeTight.ReplaceAllString(buffer, ")")
	buffer = wsRun.ReplaceAllString(buffer, " ")
	buffer = supTight.ReplaceAllString(buffer, "^")
	buffer = subTight.ReplaceAllString(buffer, "_")
	buffer = negSup.ReplaceAllStringFunc(buffer, func(m string) string {
		sub := negSup.FindStringSubmatch(m)
		return "^{-" + strings.ReplaceAll(sub[1], " ", "") + "}"
	})
	buffer = negSub.ReplaceAllStringFunc(buffer, func(m string) string {
		sub := negSub.FindStringSubmatch(m)
		return "_{-" + strings.ReplaceAll(sub[1], " ", "") + "}"
	})
	buffer = braceInner.ReplaceAllStringFunc(buffer, func(m string) string {
		sub := braceInner.FindStringSubmatch(m)
		return "{" + strings.TrimSpace(wsRun.ReplaceAllString(sub[1], " ")) + "}"
	})
	buffer = strings.ReplaceAll(buffer, " ,", ",")
	return strings.TrimSpace(buffer)
}

// Normalize is the full per-string pipeline: markup lowering and span
// wrapping, then span coalescing.
func Normalize(text string) string {
	return Coalesce(Convert(text))
}
