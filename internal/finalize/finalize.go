// Package finalize collapses the per-question accumulators into clean
// scalar and structured fields, and cross-references image usage against
// the externally resolved URL→file mapping.
package finalize

import (
	"fmt"
	"strings"

	"github.com/lzbgt/saint-cai-crawler/internal/chapter"
	"github.com/lzbgt/saint-cai-crawler/internal/mathfmt"
)

// Apply finalizes every question in the chapter in place. The returned
// warnings describe raw answer-line patterns the dedup rule was not
// designed for (a choice label echoed more than twice), so callers can
// surface upstream data quirks instead of silently absorbing them.
func Apply(ch *chapter.Chapter) []string {
	var warnings []string
	for _, sec := range ch.Sections {
		for _, item := range sec.Items {
			q, ok := item.(*chapter.QAItem)
			if !ok {
				continue
			}
			warnings = append(warnings, finalizeQA(q)...)
		}
	}
	return warnings
}

func finalizeQA(q *chapter.QAItem) []string {
	q.QuestionRich = compactParts(q.QuestionRich)
	if len(q.QuestionRich) > 0 {
		// Re-run the span coalescer over the joined string so math spans
		// split across adjacent rich parts still merge.
		q.Question = mathfmt.Coalesce(chapter.FlattenParts(q.QuestionRich))
	} else {
		q.Question = strings.TrimSpace(q.Question)
	}

	warnings := dedupAnswers(q)

	q.AnalysisLines = compactParts(q.AnalysisLines)
	q.Analysis = joinText(q.AnalysisLines, "\n")

	q.QuestionExtra = compactParts(q.QuestionExtra)

	for _, c := range q.Choices {
		c.Content = compactParts(c.Content)
	}
	return warnings
}

// dedupAnswers applies the echo rule: a raw line exactly equal to one of
// the item's choice labels is an echo. Non-preferred echoes are dropped,
// the preferred (first-seen) echo is deferred to the end unless a later
// duplicate already emitted it, and non-echo lines are kept once each.
func dedupAnswers(q *chapter.QAItem) []string {
	raw := make([]string, 0, len(q.AnswerLines))
	for _, line := range q.AnswerLines {
		if t := strings.TrimSpace(line); t != "" {
			raw = append(raw, t)
		}
	}

	labels := map[string]bool{}
	for _, c := range q.Choices {
		if c.Label != "" {
			labels[c.Label] = true
		}
	}

	var warnings []string
	echoCount := map[string]int{}
	for _, line := range raw {
		if labels[line] {
			echoCount[line]++
		}
	}
	for label, n := range echoCount {
		if n > 2 {
			warnings = append(warnings, fmt.Sprintf(
				"question %q: choice label %q appears %d times in raw answer lines", q.Question, label, n))
		}
	}

	preferred := ""
	for _, line := range raw {
		if labels[line] {
			preferred = line
			break
		}
	}

	// The preferred echo is deferred: its first occurrence is skipped and
	// it is appended at the very end unless a later duplicate already
	// emitted it.
	out := []string{}
	seen := map[string]bool{}
	preferredSkipped := false
	for _, line := range raw {
		if labels[line] {
			if line != preferred {
				continue
			}
			if !preferredSkipped {
				preferredSkipped = true
				continue
			}
		}
		if !seen[line] {
			out = append(out, line)
			seen[line] = true
		}
	}
	if preferred != "" && !seen[preferred] {
		out = append(out, preferred)
	}

	q.AnswerLines = out
	q.Answer = strings.Join(out, " ")
	return warnings
}

// compactParts drops empty text runs, trims the rest, and keeps image
// parts in place.
func compactParts(parts []chapter.Part) []chapter.Part {
	out := []chapter.Part{}
	for _, p := range parts {
		if p.IsImage() {
			out = append(out, p)
			continue
		}
		if t := strings.TrimSpace(p.Text); t != "" {
			out = append(out, chapter.TextPart(t))
		}
	}
	return out
}

// joinText joins the text-only subset of a part sequence.
func joinText(parts []chapter.Part, sep string) string {
	var texts []string
	for _, p := range parts {
		if !p.IsImage() {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, sep)
}
