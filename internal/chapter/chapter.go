package chapter

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Chapter is the root of one parsed chapter document.
type Chapter struct {
	ID       string     `json:"chapter_id"`
	Title    string     `json:"title"`
	Sections []*Section `json:"sections"`
	Images   []*Image   `json:"images"`
}

// Image is one chapter-wide image reference with its resolved local file.
// The list on Chapter is ordered by first appearance and unique by URL.
type Image struct {
	URL  string `json:"url"`
	File string `json:"file,omitempty"`
}

// Section groups items under an optional section title. A section with an
// empty title is synthesized when content appears before any ArtH2 block.
type Section struct {
	Title string `json:"title,omitempty"`
	Items []Item `json:"items"`
}

// Item is one block-level entry within a section: a heading, a plain text
// paragraph, a standalone image, or a question with its answer material.
type Item interface {
	item()
}

// Heading is a sub-heading within a section (TiXing blocks).
type Heading struct {
	Level int
	Text  string
}

func (*Heading) item() {}

func (h *Heading) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type  string `json:"type"`
		Level int    `json:"level"`
		Text  string `json:"text"`
	}{"heading", h.Level, h.Text})
}

// TextBlock is a free-standing paragraph outside any question.
type TextBlock struct {
	Text string
}

func (*TextBlock) item() {}

func (t *TextBlock) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}{"text", t.Text})
}

// ImageBlock is a standalone image at section level.
type ImageBlock struct {
	Ref ImageRef
}

func (*ImageBlock) item() {}

func (b *ImageBlock) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type   string `json:"type"`
		URL    string `json:"image_url"`
		Width  string `json:"width,omitempty"`
		Height string `json:"height,omitempty"`
		File   string `json:"image_file,omitempty"`
	}{"image", b.Ref.URL, b.Ref.Width, b.Ref.Height, b.Ref.File})
}

// QAItem is one question with its choices, answers and analysis.
type QAItem struct {
	Number        string        `json:"number,omitempty"`
	Question      string        `json:"question"`
	QuestionRich  []Part        `json:"question_rich"`
	QuestionExtra []Part        `json:"question_extra"`
	Choices       []*Choice     `json:"choices"`
	AnswerLines   []string      `json:"answer_lines"`
	Answer        string        `json:"answer,omitempty"`
	AnalysisLines []Part        `json:"analysis_lines"`
	Analysis      string        `json:"analysis,omitempty"`
	Images        []*ImageUsage `json:"images"`
}

func (*QAItem) item() {}

func (q *QAItem) MarshalJSON() ([]byte, error) {
	type alias QAItem
	return json.Marshal(struct {
		Type string `json:"type"`
		*alias
	}{"qa", (*alias)(q)})
}

// Choice is one labeled option within a question. Images is a derived
// view over the image parts of Content.
type Choice struct {
	Label   string      `json:"label"`
	Content []Part      `json:"content"`
	Images  []*ImageRef `json:"images"`
}

// ImageRef is a single image reference. Identity is the URL; Width and
// Height carry the source markup's attribute values verbatim. File is
// filled in once the external download collaborator has resolved the URL.
type ImageRef struct {
	URL    string `json:"url"`
	Width  string `json:"width,omitempty"`
	Height string `json:"height,omitempty"`
	File   string `json:"file,omitempty"`
}

// ImageUsage records where within a question an image was used. Contexts
// holds tags like "question", "analysis" or "choice:A", each at most once.
type ImageUsage struct {
	URL      string   `json:"url"`
	File     string   `json:"file,omitempty"`
	Width    string   `json:"width,omitempty"`
	Height   string   `json:"height,omitempty"`
	Contexts []string `json:"contexts"`
}

// ImagePlaceholder is the inline stand-in for the n-th image (1-based)
// within one question's flattened text.
func ImagePlaceholder(n int) string {
	return fmt.Sprintf("[图%d]", n)
}

// FlattenParts joins a part sequence into a single plain string, each
// image replaced by its positional placeholder. Empty text runs are
// skipped; the result is trimmed.
func FlattenParts(parts []Part) string {
	segments := make([]string, 0, len(parts))
	images := 0
	for _, p := range parts {
		if p.IsImage() {
			images++
			segments = append(segments, ImagePlaceholder(images))
			continue
		}
		if p.Text != "" {
			segments = append(segments, p.Text)
		}
	}
	return strings.TrimSpace(strings.Join(segments, " "))
}

// Part is one run of inline content: either a text run or an image
// reference, never both. Text runs marshal as bare JSON strings, images
// as tagged objects, matching the chapter record format.
type Part struct {
	Text  string
	Image *ImageRef
}

// TextPart wraps a text run.
func TextPart(s string) Part { return Part{Text: s} }

// ImagePart wraps an image reference.
func ImagePart(ref *ImageRef) Part { return Part{Image: ref} }

// IsImage reports whether the part is an image reference.
func (p Part) IsImage() bool { return p.Image != nil }

func (p Part) MarshalJSON() ([]byte, error) {
	if p.Image != nil {
		return json.Marshal(struct {
			Type string `json:"type"`
			*ImageRef
		}{"image", p.Image})
	}
	return json.Marshal(p.Text)
}

func (p *Part) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		p.Image = nil
		return json.Unmarshal(data, &p.Text)
	}
	ref := &ImageRef{}
	if err := json.Unmarshal(data, ref); err != nil {
		return err
	}
	p.Text = ""
	p.Image = ref
	return nil
}
