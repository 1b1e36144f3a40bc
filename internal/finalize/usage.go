package finalize

import "github.com/lzbgt/saint-cai-crawler/internal/chapter"

// AttachImages cross-references every image reachable from the chapter
// against the externally resolved URL→file mapping. Each question gets an
// ordered-unique usage list keyed by URL; the first occurrence fixes the
// dimensions, later occurrences only fill fields still missing. URLs
// absent from the mapping stay unresolved, never an error.
func AttachImages(ch *chapter.Chapter, files map[string]string) {
	for _, sec := range ch.Sections {
		for _, item := range sec.Items {
			switch it := item.(type) {
			case *chapter.ImageBlock:
				it.Ref.File = files[it.Ref.URL]
			case *chapter.QAItem:
				attachQA(it, files)
			}
		}
	}
	for _, img := range ch.Images {
		img.File = files[img.URL]
	}
}

// usageLedger accumulates per-question image usage in first-seen order.
type usageLedger struct {
	order []string
	byURL map[string]*chapter.ImageUsage
	files map[string]string
}

func (l *usageLedger) record(ref *chapter.ImageRef, context string) {
	entry := l.byURL[ref.URL]
	if entry == nil {
		entry = &chapter.ImageUsage{
			URL:      ref.URL,
			File:     l.files[ref.URL],
			Width:    ref.Width,
			Height:   ref.Height,
			Contexts: []string{},
		}
		l.byURL[ref.URL] = entry
		l.order = append(l.order, ref.URL)
	} else {
		if entry.File == "" {
			entry.File = l.files[ref.URL]
		}
		if entry.Width == "" {
			entry.Width = ref.Width
		}
		if entry.Height == "" {
			entry.Height = ref.Height
		}
	}
	for _, c := range entry.Contexts {
		if c == context {
			return
		}
	}
	entry.Contexts = append(entry.Contexts, context)
}

func attachQA(q *chapter.QAItem, files map[string]string) {
	ledger := &usageLedger{byURL: map[string]*chapter.ImageUsage{}, files: files}

	resolve := func(parts []chapter.Part, context string) {
		for _, p := range parts {
			if !p.IsImage() {
				continue
			}
			p.Image.File = files[p.Image.URL]
			ledger.record(p.Image, context)
		}
	}

	resolve(q.QuestionRich, "question")
	resolve(q.QuestionExtra, "question")
	resolve(q.AnalysisLines, "analysis")
	for _, c := range q.Choices {
		resolve(c.Content, "choice:"+c.Label)
		// Rebuild the derived image view from the compacted content.
		c.Images = []*chapter.ImageRef{}
		for _, p := range c.Content {
			if p.IsImage() {
				c.Images = append(c.Images, p.Image)
			}
		}
	}

	q.Images = []*chapter.ImageUsage{}
	for _, url := range ledger.order {
		q.Images = append(q.Images, ledger.byURL[url])
	}
}
