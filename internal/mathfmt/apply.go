package mathfmt

import "github.com/lzbgt/saint-cai-crawler/internal/chapter"

// Apply normalizes every leaf string of a chapter in place: titles,
// headings, text blocks, and each text segment of question, choice and
// analysis content. Image parts pass through untouched.
func Apply(ch *chapter.Chapter) {
	ch.Title = Normalize(ch.Title)
	for _, sec := range ch.Sections {
		if sec.Title != "" {
			sec.Title = Normalize(sec.Title)
		}
		for _, item := range sec.Items {
			switch it := item.(type) {
			case *chapter.Heading:
				it.Text = Normalize(it.Text)
			case *chapter.TextBlock:
				it.Text = Normalize(it.Text)
			case *chapter.QAItem:
				applyQA(it)
			}
		}
	}
}

func applyQA(q *chapter.QAItem) {
	normalizeParts(q.QuestionRich)
	normalizeParts(q.QuestionExtra)
	normalizeParts(q.AnalysisLines)
	q.Question = Normalize(q.Question)
	for i, line := range q.AnswerLines {
		q.AnswerLines[i] = Normalize(line)
	}
	for _, c := range q.Choices {
		normalizeParts(c.Content)
	}
}

func normalizeParts(parts []chapter.Part) {
	for i := range parts {
		if !parts[i].IsImage() {
			parts[i].Text = Normalize(parts[i].Text)
		}
	}
}
