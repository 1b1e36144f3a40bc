package finalize

import (
	"strings"
	"testing"

	"github.com/lzbgt/saint-cai-crawler/internal/chapter"
)

func wrap(q *chapter.QAItem) *chapter.Chapter {
	return &chapter.Chapter{
		Sections: []*chapter.Section{{Items: []chapter.Item{q}}},
	}
}

func choices(labels ...string) []*chapter.Choice {
	out := make([]*chapter.Choice, 0, len(labels))
	for _, l := range labels {
		out = append(out, &chapter.Choice{Label: l, Content: []chapter.Part{}})
	}
	return out
}

func TestApply_EchoDeferredToEnd(t *testing.T) {
	q := &chapter.QAItem{
		Choices:     choices("A", "B", "C"),
		AnswerLines: []string{"A", "A,C 两项均正确"},
	}
	warnings := Apply(wrap(q))
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings %v", warnings)
	}

	want := []string{"A,C 两项均正确", "A"}
	if len(q.AnswerLines) != len(want) {
		t.Fatalf("expected %v, got %v", want, q.AnswerLines)
	}
	for i := range want {
		if q.AnswerLines[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, q.AnswerLines)
		}
	}
	if q.Answer != "A,C 两项均正确 A" {
		t.Errorf("unexpected joined answer %q", q.Answer)
	}
}

func TestApply_SingleEchoKept(t *testing.T) {
	q := &chapter.QAItem{
		Choices:     choices("A", "B"),
		AnswerLines: []string{"A"},
	}
	Apply(wrap(q))

	if len(q.AnswerLines) != 1 || q.AnswerLines[0] != "A" {
		t.Errorf("expected lone echo to survive, got %v", q.AnswerLines)
	}
	if q.Answer != "A" {
		t.Errorf("unexpected answer %q", q.Answer)
	}
}

func TestApply_NonPreferredEchoDropped(t *testing.T) {
	q := &chapter.QAItem{
		Choices:     choices("A", "B"),
		AnswerLines: []string{"A", "B", "见解析"},
	}
	Apply(wrap(q))

	want := []string{"见解析", "A"}
	if len(q.AnswerLines) != len(want) || q.AnswerLines[0] != want[0] || q.AnswerLines[1] != want[1] {
		t.Errorf("expected %v, got %v", want, q.AnswerLines)
	}
}

func TestApply_DuplicateLinesKeptOnce(t *testing.T) {
	q := &chapter.QAItem{
		AnswerLines: []string{"见解析", "见解析", "  ", "见解析"},
	}
	Apply(wrap(q))

	if len(q.AnswerLines) != 1 || q.AnswerLines[0] != "见解析" {
		t.Errorf("expected one deduped line, got %v", q.AnswerLines)
	}
}

func TestApply_TripleEchoWarns(t *testing.T) {
	q := &chapter.QAItem{
		Question:    "测试题",
		Choices:     choices("A"),
		AnswerLines: []string{"A", "A", "A"},
	}
	warnings := Apply(wrap(q))

	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %v", warnings)
	}
	if !strings.Contains(warnings[0], `"A"`) || !strings.Contains(warnings[0], "3 times") {
		t.Errorf("unexpected warning text %q", warnings[0])
	}
	if len(q.AnswerLines) != 1 || q.AnswerLines[0] != "A" {
		t.Errorf("expected collapsed echo, got %v", q.AnswerLines)
	}
}

func TestApply_QuestionRebuiltFromRichParts(t *testing.T) {
	ref := &chapter.ImageRef{URL: "http://e/fig.png"}
	q := &chapter.QAItem{
		QuestionRich: []chapter.Part{
			chapter.TextPart("如图"),
			chapter.ImagePart(ref),
			chapter.TextPart("求阴影面积"),
		},
	}
	Apply(wrap(q))

	if q.Question != "如图 [图1] 求阴影面积" {
		t.Errorf("unexpected question %q", q.Question)
	}
}

func TestApply_AnalysisJoinedWithNewlines(t *testing.T) {
	q := &chapter.QAItem{
		AnalysisLines: []chapter.Part{
			chapter.TextPart("第一步"),
			chapter.ImagePart(&chapter.ImageRef{URL: "http://e/step.png"}),
			chapter.TextPart(" 第二步 "),
			chapter.TextPart(""),
		},
	}
	Apply(wrap(q))

	if q.Analysis != "第一步\n第二步" {
		t.Errorf("unexpected analysis %q", q.Analysis)
	}
	// Empty runs are dropped, the image part survives compaction.
	if len(q.AnalysisLines) != 3 {
		t.Errorf("expected 3 compacted parts, got %+v", q.AnalysisLines)
	}
}

func TestAttachImages_ContextsAndFiles(t *testing.T) {
	shared := "http://e/shared.png"
	q := &chapter.QAItem{
		QuestionExtra: []chapter.Part{
			chapter.ImagePart(&chapter.ImageRef{URL: shared, Width: "100"}),
		},
		AnalysisLines: []chapter.Part{
			chapter.ImagePart(&chapter.ImageRef{URL: shared}),
		},
		Choices: []*chapter.Choice{
			{
				Label: "A",
				Content: []chapter.Part{
					chapter.ImagePart(&chapter.ImageRef{URL: "http://e/a.png"}),
				},
			},
		},
	}
	ch := wrap(q)
	ch.Images = []*chapter.Image{{URL: shared}, {URL: "http://e/a.png"}}

	AttachImages(ch, map[string]string{
		shared: "shared.png",
	})

	if len(q.Images) != 2 {
		t.Fatalf("expected 2 usages, got %d", len(q.Images))
	}

	u := q.Images[0]
	if u.URL != shared || u.File != "shared.png" || u.Width != "100" {
		t.Errorf("unexpected first usage %+v", u)
	}
	if len(u.Contexts) != 2 || u.Contexts[0] != "question" || u.Contexts[1] != "analysis" {
		t.Errorf("unexpected contexts %v", u.Contexts)
	}

	u = q.Images[1]
	if u.URL != "http://e/a.png" || u.File != "" {
		t.Errorf("expected unresolved choice image, got %+v", u)
	}
	if len(u.Contexts) != 1 || u.Contexts[0] != "choice:A" {
		t.Errorf("unexpected contexts %v", u.Contexts)
	}

	if ch.Images[0].File != "shared.png" || ch.Images[1].File != "" {
		t.Errorf("unexpected chapter image files %+v", ch.Images)
	}
}

func TestAttachImages_ImageBlockResolved(t *testing.T) {
	ch := &chapter.Chapter{
		Sections: []*chapter.Section{{
			Items: []chapter.Item{
				&chapter.ImageBlock{Ref: chapter.ImageRef{URL: "http://e/fig.png"}},
			},
		}},
	}
	AttachImages(ch, map[string]string{"http://e/fig.png": "fig.png"})

	ib := ch.Sections[0].Items[0].(*chapter.ImageBlock)
	if ib.Ref.File != "fig.png" {
		t.Errorf("expected resolved file on image block, got %q", ib.Ref.File)
	}
}

func TestAttachImages_ChoiceImagesRebuilt(t *testing.T) {
	q := &chapter.QAItem{
		Choices: []*chapter.Choice{
			{
				Label: "B",
				Content: []chapter.Part{
					chapter.TextPart("文本"),
					chapter.ImagePart(&chapter.ImageRef{URL: "http://e/b.png"}),
				},
			},
		},
	}
	AttachImages(wrap(q), map[string]string{"http://e/b.png": "b.png"})

	c := q.Choices[0]
	if len(c.Images) != 1 || c.Images[0].URL != "http://e/b.png" || c.Images[0].File != "b.png" {
		t.Errorf("unexpected rebuilt choice images %+v", c.Images)
	}
}
