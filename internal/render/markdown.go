// Package render serializes a finished chapter model into its
// human-readable markdown form. Rendering is deterministic and carries no
// state across items.
package render

import (
	"fmt"
	"strings"

	"github.com/lzbgt/saint-cai-crawler/internal/chapter"
)

// Markdown renders the chapter: level-1 chapter title, level-2 section
// titles, level-3+ headings, verbatim paragraphs, and one block per
// question. Blocks are separated by exactly one blank line and the result
// ends with a single trailing newline.
func Markdown(ch *chapter.Chapter) string {
	var lines []string
	if ch.Title != "" {
		lines = append(lines, "# "+ch.Title, "")
	}

	for _, sec := range ch.Sections {
		if sec.Title != "" {
			lines = append(lines, "## "+sec.Title, "")
		}
		for _, item := range sec.Items {
			switch it := item.(type) {
			case *chapter.Heading:
				level := it.Level
				if level < 3 {
					level = 3
				}
				lines = append(lines, strings.Repeat("#", level)+" "+it.Text, "")
			case *chapter.TextBlock:
				lines = append(lines, it.Text, "")
			case *chapter.ImageBlock:
				if it.Ref.File != "" {
					lines = append(lines, fmt.Sprintf("![图](images/%s)", it.Ref.File), "")
				} else {
					lines = append(lines, fmt.Sprintf("[图像未下载](%s)", it.Ref.URL), "")
				}
			case *chapter.QAItem:
				lines = append(lines, renderQA(it)...)
				lines = append(lines, "")
			}
		}
	}

	return strings.TrimSpace(strings.Join(lines, "\n")) + "\n"
}

// imageLink renders one image as a local link when resolved, otherwise a
// literal not-downloaded placeholder pointing at the source URL.
func imageLink(ref *chapter.ImageRef, alt, indent string) string {
	if ref.File != "" {
		return fmt.Sprintf("%s![%s](images/%s)", indent, alt, ref.File)
	}
	return fmt.Sprintf("%s[图像未下载](%s)", indent, ref.URL)
}

func renderQA(q *chapter.QAItem) []string {
	var out []string

	prefix := ""
	if q.Number != "" {
		prefix = q.Number + ". "
	}

	if len(q.QuestionRich) > 0 {
		segments := make([]string, 0, len(q.QuestionRich))
		for _, p := range q.QuestionRich {
			if p.IsImage() {
				segments = append(segments, imageLink(p.Image, "题图", ""))
			} else if p.Text != "" {
				segments = append(segments, p.Text)
			}
		}
		out = append(out, "**"+prefix+strings.TrimSpace(strings.Join(segments, " "))+"**")
	} else {
		out = append(out, "**"+prefix+q.Question+"**")
	}

	for _, extra := range q.QuestionExtra {
		if extra.IsImage() {
			out = append(out, imageLink(extra.Image, "题图", ""))
		} else {
			out = append(out, extra.Text)
		}
	}

	if len(q.Choices) > 0 {
		if len(out) > 0 && out[len(out)-1] != "" {
			out = append(out, "")
		}
		for _, c := range q.Choices {
			if c.Label == "" {
				continue
			}
			var texts []string
			var media []*chapter.ImageRef
			for _, p := range c.Content {
				if p.IsImage() {
					media = append(media, p.Image)
				} else {
					texts = append(texts, p.Text)
				}
			}
			line := "- " + c.Label + "."
			if len(texts) > 0 {
				line += " " + strings.Join(texts, " ")
			}
			var sublines []string
			if len(media) > 0 {
				if len(texts) > 0 {
					line += " "
				}
				line += imageLink(media[0], "选项图", "")
				for _, m := range media[1:] {
					sublines = append(sublines, imageLink(m, "选项图", "  "))
				}
			}
			out = append(out, sublines...)
			out = append(out, strings.TrimRight(line, " "))
		}
	}

	if len(q.AnswerLines) > 0 {
		if len(q.AnswerLines) == 1 {
			out = append(out, "- **答案：** "+q.AnswerLines[0])
		} else {
			out = append(out, "- **答案：**")
			for _, ans := range q.AnswerLines {
				out = append(out, "  - "+ans)
			}
		}
	}

	if len(q.AnalysisLines) > 0 {
		var texts []string
		for _, p := range q.AnalysisLines {
			if !p.IsImage() {
				texts = append(texts, p.Text)
			}
		}
		if len(q.AnalysisLines) == 1 && len(texts) > 0 {
			out = append(out, "- **解析：** "+texts[0])
		} else {
			out = append(out, "- **解析：**")
			for _, p := range q.AnalysisLines {
				if p.IsImage() {
					out = append(out, imageLink(p.Image, "解析图", "  "))
				} else {
					out = append(out, "  "+p.Text)
				}
			}
		}
	}

	return out
}
