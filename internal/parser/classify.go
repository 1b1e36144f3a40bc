package parser

import (
	"strings"

	"github.com/lzbgt/saint-cai-crawler/internal/chapter"
	"golang.org/x/net/html"
)

// Literal class vocabulary of the source markup. This set is a
// compatibility contract with the reader pages: any upstream change to it
// is an expected-to-break event, not something to paper over here.
const (
	classChapterTitle  = "ArtH1"
	classSectionTitle  = "ArtH2"
	classSeparator     = "PSplit"
	classTagBox        = "TagBoxP"
	classHeading       = "TiXing"
	classQuestionTitle = "QuestionTitle"
	classQuestionNum1  = "QuestionNum1"
	classQuestionNum2  = "QuestionNum2"
	classAnswerSpan    = "answer"
	classResolveSpan   = "ResolveTag"
	classImage         = "img"

	answerPrefix   = "【答案】"
	analysisPrefix = "【解析】"
)

// blockRule is one entry in the ordered classification table. apply
// returns true when the rule consumed the node. Rule order is the
// documented priority contract for ambiguous markup.
type blockRule struct {
	name  string
	apply func(b *builder, n *html.Node, text string) bool
}

// structureRules run before a container section is guaranteed to exist:
// they either set chapter-level structure or drop the node.
var structureRules = []blockRule{
	{"chapter-title", (*builder).ruleChapterTitle},
	{"section-title", (*builder).ruleSectionTitle},
	{"separator", (*builder).ruleSeparator},
}

// contentRules run with an open section; the first match wins. Nodes no
// rule consumes fall through to the free-text path.
var contentRules = []blockRule{
	{"answer-tag", (*builder).ruleTagBox},
	{"heading", (*builder).ruleHeading},
	{"question-start", (*builder).ruleQuestionStart},
	{"answer-prefix", (*builder).ruleAnswerPrefix},
	{"analysis-prefix", (*builder).ruleAnalysisPrefix},
}

// classify routes one top-level block node. Unknown elements are skipped
// silently; classification never fails.
func (b *builder) classify(n *html.Node) {
	switch n.Data {
	case "p":
		b.classifyParagraph(n)
	case "span":
		if hasClass(n, classImage) {
			b.topLevelImage(n)
		}
	}
}

func (b *builder) classifyParagraph(n *html.Node) {
	text := nodeText(n)
	for _, r := range structureRules {
		if r.apply(b, n, text) {
			return
		}
	}
	// Any paragraph that survives the structure rules opens a section,
	// even if nothing ends up classified from it.
	b.ensureSection()
	for _, r := range contentRules {
		if r.apply(b, n, text) {
			return
		}
	}
	b.freeText(n, text)
}

func (b *builder) ruleChapterTitle(n *html.Node, text string) bool {
	if !hasClass(n, classChapterTitle) {
		return false
	}
	b.ch.Title = text
	b.qa = nil
	return true
}

func (b *builder) ruleSectionTitle(n *html.Node, text string) bool {
	if !hasClass(n, classSectionTitle) {
		return false
	}
	b.section = &chapter.Section{Title: text, Items: []chapter.Item{}}
	b.ch.Sections = append(b.ch.Sections, b.section)
	b.qa = nil
	return true
}

func (b *builder) ruleSeparator(n *html.Node, text string) bool {
	return hasClass(n, classSeparator) && text == ""
}

// ruleTagBox handles explicitly tagged answer/analysis paragraphs. These
// bypass the free-text heuristics entirely: an answer span is always an
// answer line, a resolve span marks the rest of the paragraph as analysis.
func (b *builder) ruleTagBox(n *html.Node, text string) bool {
	if !hasClass(n, classTagBox) || b.qa == nil {
		return false
	}
	if span := findByClass(n, "span", classAnswerSpan); span != nil {
		b.qa.recordAnswer(strippedText(span))
		return true
	}
	if span := findByClass(n, "span", classResolveSpan); span != nil {
		span.Parent.RemoveChild(span)
		if remaining := nodeText(n); remaining != "" {
			b.qa.recordAnalysis(remaining)
		}
		return true
	}
	return false
}

func (b *builder) ruleHeading(n *html.Node, text string) bool {
	if !hasClass(n, classHeading) {
		return false
	}
	b.section.Items = append(b.section.Items, &chapter.Heading{Level: 3, Text: text})
	b.qa = nil
	return true
}

// ruleQuestionStart opens a new QAItem, implicitly closing the previous
// one. The optional number marker is extracted first and removed so it
// does not leak into the question text.
func (b *builder) ruleQuestionStart(n *html.Node, text string) bool {
	if !hasClass(n, classQuestionTitle) {
		return false
	}

	var number string
	for _, class := range []string{classQuestionNum1, classQuestionNum2} {
		if span := findByClass(n, "span", class); span != nil {
			number = strippedText(span)
			span.Parent.RemoveChild(span)
			break
		}
	}

	parts := []chapter.Part{}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			parts = appendTextPart(parts, normalizeText(c.Data))
		case html.ElementNode:
			if hasClass(c, classImage) {
				ref := imageRef(c)
				if ref == nil {
					continue
				}
				parts = append(parts, chapter.ImagePart(ref))
				b.registerImage(ref.URL)
				continue
			}
			parts = appendTextPart(parts, normalizeText(stringifyWithMarkup(c)))
		}
	}

	question := chapter.FlattenParts(parts)
	if question == "" {
		question = nodeText(n)
	}

	item := &chapter.QAItem{
		Number:        number,
		Question:      question,
		QuestionRich:  parts,
		QuestionExtra: []chapter.Part{},
		Choices:       []*chapter.Choice{},
		AnswerLines:   []string{},
		AnalysisLines: []chapter.Part{},
		Images:        []*chapter.ImageUsage{},
	}
	b.section.Items = append(b.section.Items, item)
	b.qa = newOpenQuestion(item)
	return true
}

func (b *builder) ruleAnswerPrefix(n *html.Node, text string) bool {
	if !strings.HasPrefix(text, answerPrefix) {
		return false
	}
	line := strings.TrimSpace(strings.TrimPrefix(text, answerPrefix))
	if b.qa != nil {
		b.qa.recordAnswer(line)
	} else {
		b.section.Items = append(b.section.Items, &chapter.TextBlock{Text: text})
	}
	return true
}

func (b *builder) ruleAnalysisPrefix(n *html.Node, text string) bool {
	if !strings.HasPrefix(text, analysisPrefix) {
		return false
	}
	line := strings.TrimSpace(strings.TrimPrefix(text, analysisPrefix))
	if b.qa != nil {
		b.qa.recordAnalysis(line)
	} else {
		b.section.Items = append(b.section.Items, &chapter.TextBlock{Text: text})
	}
	return true
}

// freeText is the fallback for paragraphs no rule consumed: the text goes
// wherever the accumulator state says, then any inline image spans inside
// the paragraph are routed the same way.
func (b *builder) freeText(n *html.Node, text string) {
	if text != "" {
		if b.qa != nil {
			b.qa.routeText(text)
		} else {
			b.section.Items = append(b.section.Items, &chapter.TextBlock{Text: text})
		}
	}

	for _, span := range findAllByClass(n, "span", classImage) {
		ref := imageRef(span)
		if ref == nil {
			continue
		}
		b.routeLooseImage(ref)
	}
}

// topLevelImage handles an image span appearing directly at the top level.
func (b *builder) topLevelImage(n *html.Node) {
	ref := imageRef(n)
	if ref == nil {
		return
	}
	b.routeLooseImage(ref)
}

func (b *builder) routeLooseImage(ref *chapter.ImageRef) {
	if b.qa != nil {
		b.qa.routeImage(ref)
	} else {
		b.ensureSection()
		b.section.Items = append(b.section.Items, &chapter.ImageBlock{Ref: *ref})
	}
	b.registerImage(ref.URL)
}
