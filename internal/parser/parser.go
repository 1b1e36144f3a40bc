// Package parser turns one decrypted chapter's raw markup into the
// chapter document model. It walks the top-level block nodes in document
// order through a fixed classification rule table, feeding an accumulator
// that owns the currently open question.
package parser

import (
	"fmt"
	"strings"

	"github.com/lzbgt/saint-cai-crawler/internal/chapter"
	"golang.org/x/net/html"
)

// builder carries the single-pass parse state: the chapter under
// construction, the open section, the open question accumulator, and the
// chapter-wide image ledger.
type builder struct {
	ch      *chapter.Chapter
	section *chapter.Section
	qa      *openQuestion

	imageOrder []string
	imageSeen  map[string]bool
}

// Parse builds the chapter document model from decrypted chapter markup.
// Unclassifiable nodes are skipped, missing structure (no title, no
// section heading) degrades to defaults; only unparseable markup is an
// error.
func Parse(markup, chapterID string) (*chapter.Chapter, error) {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse chapter markup: %w", err)
	}

	b := &builder{
		ch: &chapter.Chapter{
			ID:       chapterID,
			Sections: []*chapter.Section{},
			Images:   []*chapter.Image{},
		},
		imageSeen: map[string]bool{},
	}

	root := findBody(doc)
	if root == nil {
		root = doc
	}
	for n := root.FirstChild; n != nil; n = n.NextSibling {
		if n.Type != html.ElementNode {
			continue
		}
		b.classify(n)
	}

	for _, url := range b.imageOrder {
		b.ch.Images = append(b.ch.Images, &chapter.Image{URL: url})
	}
	return b.ch, nil
}

// ensureSection lazily opens an untitled section so content appearing
// before any section-title block still has a home.
func (b *builder) ensureSection() {
	if b.section == nil {
		b.section = &chapter.Section{Items: []chapter.Item{}}
		b.ch.Sections = append(b.ch.Sections, b.section)
	}
}

// registerImage records a URL in the chapter-wide ledger, first
// appearance wins.
func (b *builder) registerImage(url string) {
	if b.imageSeen[url] {
		return
	}
	b.imageSeen[url] = true
	b.imageOrder = append(b.imageOrder, url)
}
