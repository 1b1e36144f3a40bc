package parser

import (
	"strings"

	"github.com/lzbgt/saint-cai-crawler/internal/chapter"
	"golang.org/x/text/width"
)

// choiceDelims are the characters accepted between a choice label and its
// content, full-width forms included.
const choiceDelims = "．.、)）：: "

// openQuestion is the accumulator for the question currently being built.
// It moves through two states: pre-answer (no answer line recorded yet),
// where free text may open or extend choices, and post-answer, where all
// free text is analysis. The classifier drops the accumulator entirely on
// any block that closes a question.
type openQuestion struct {
	item   *chapter.QAItem
	active int // index into item.Choices, -1 while no choice is open
}

func newOpenQuestion(item *chapter.QAItem) *openQuestion {
	return &openQuestion{item: item, active: -1}
}

// beforeAnswer reports whether the question is still in its pre-answer
// state. Recording the first answer line flips it permanently.
func (q *openQuestion) beforeAnswer() bool {
	return len(q.item.AnswerLines) == 0
}

// recordAnswer appends an explicitly tagged answer line.
func (q *openQuestion) recordAnswer(line string) {
	q.item.AnswerLines = append(q.item.AnswerLines, line)
}

// recordAnalysis appends an explicitly tagged analysis line.
func (q *openQuestion) recordAnalysis(line string) {
	q.item.AnalysisLines = append(q.item.AnalysisLines, chapter.TextPart(line))
}

// routeText places a free text line according to the accumulator state:
// pre-answer text either opens a new choice, extends the open choice, or
// lands in question_extra; post-answer text is always analysis.
func (q *openQuestion) routeText(text string) {
	if !q.beforeAnswer() {
		q.item.AnalysisLines = append(q.item.AnalysisLines, chapter.TextPart(text))
		return
	}
	if label, remainder, ok := splitChoice(text); ok {
		c := &chapter.Choice{Label: label, Content: []chapter.Part{}, Images: []*chapter.ImageRef{}}
		if remainder != "" {
			c.Content = append(c.Content, chapter.TextPart(remainder))
		}
		q.item.Choices = append(q.item.Choices, c)
		q.active = len(q.item.Choices) - 1
		return
	}
	if q.active >= 0 {
		c := q.item.Choices[q.active]
		c.Content = append(c.Content, chapter.TextPart(text))
		return
	}
	q.item.QuestionExtra = append(q.item.QuestionExtra, chapter.TextPart(text))
}

// routeImage places an inline image: into the open choice pre-answer,
// otherwise question_extra pre-answer, otherwise analysis.
func (q *openQuestion) routeImage(ref *chapter.ImageRef) {
	if q.beforeAnswer() {
		if q.active >= 0 {
			c := q.item.Choices[q.active]
			c.Images = append(c.Images, ref)
			c.Content = append(c.Content, chapter.ImagePart(ref))
			return
		}
		q.item.QuestionExtra = append(q.item.QuestionExtra, chapter.ImagePart(ref))
		return
	}
	q.item.AnalysisLines = append(q.item.AnalysisLines, chapter.ImagePart(ref))
}

// splitChoice recognizes a choice line: a label letter (A–Z or full-width
// equivalent) that is the whole line, or is followed by one of the
// delimiter characters. The returned label keeps the source character;
// the remainder has leading delimiters stripped.
func splitChoice(text string) (label, remainder string, ok bool) {
	stripped := strings.TrimSpace(text)
	if stripped == "" {
		return "", "", false
	}
	runes := []rune(stripped)
	if !isChoiceLabel(runes[0]) {
		return "", "", false
	}
	if len(runes) == 1 {
		return string(runes[0]), "", true
	}
	if !strings.ContainsRune(choiceDelims, runes[1]) {
		return "", "", false
	}
	remainder = strings.TrimLeft(string(runes[2:]), choiceDelims)
	return string(runes[0]), remainder, true
}

// isChoiceLabel folds width variants so both 'A' and 'Ａ' count.
func isChoiceLabel(r rune) bool {
	folded := width.Fold.String(string(r))
	return len(folded) == 1 && folded[0] >= 'A' && folded[0] <= 'Z'
}
