package parser

import (
	"strings"
	"testing"

	"github.com/lzbgt/saint-cai-crawler/internal/chapter"
)

const sampleChapter = `<html><body>
<p class="ArtH1">第一章 集合与函数</p>
<p class="PSplit"></p>
<p class="ArtH2">第一节 同步练习</p>
<p class="TiXing">一、选择题</p>
<p class="QuestionTitle"><span class="QuestionNum1">4．</span>下列说法中正确的是</p>
<p><span class="img" data-src="http://img.example.com/q4.png" data-width="120" data-height="60"></span></p>
<p>A．甲说法</p>
<p>B．乙说法</p>
<p>【答案】A</p>
<p>【解析】由定义可知甲说法正确</p>
</body></html>`

func mustParse(t *testing.T, markup string) *chapter.Chapter {
	t.Helper()
	ch, err := Parse(markup, "ch-001")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	return ch
}

func singleQA(t *testing.T, ch *chapter.Chapter) *chapter.QAItem {
	t.Helper()
	for _, sec := range ch.Sections {
		for _, item := range sec.Items {
			if q, ok := item.(*chapter.QAItem); ok {
				return q
			}
		}
	}
	t.Fatal("expected a question item in the chapter")
	return nil
}

func TestParse_ChapterStructure(t *testing.T) {
	ch := mustParse(t, sampleChapter)

	if ch.ID != "ch-001" {
		t.Errorf("expected chapter id %q, got %q", "ch-001", ch.ID)
	}
	if ch.Title != "第一章 集合与函数" {
		t.Errorf("unexpected chapter title %q", ch.Title)
	}
	if len(ch.Sections) != 1 {
		t.Fatalf("expected 1 section, got %d", len(ch.Sections))
	}
	sec := ch.Sections[0]
	if sec.Title != "第一节 同步练习" {
		t.Errorf("unexpected section title %q", sec.Title)
	}
	if len(sec.Items) != 2 {
		t.Fatalf("expected heading + question, got %d items", len(sec.Items))
	}
	h, ok := sec.Items[0].(*chapter.Heading)
	if !ok {
		t.Fatalf("expected first item to be a heading, got %T", sec.Items[0])
	}
	if h.Level != 3 || h.Text != "一、选择题" {
		t.Errorf("unexpected heading %+v", h)
	}
}

func TestParse_Question(t *testing.T) {
	q := singleQA(t, mustParse(t, sampleChapter))

	if q.Number != "4．" {
		t.Errorf("expected number %q, got %q", "4．", q.Number)
	}
	if q.Question != "下列说法中正确的是" {
		t.Errorf("unexpected question %q", q.Question)
	}

	if len(q.QuestionExtra) != 1 || !q.QuestionExtra[0].IsImage() {
		t.Fatalf("expected one image in question_extra, got %+v", q.QuestionExtra)
	}
	img := q.QuestionExtra[0].Image
	if img.URL != "http://img.example.com/q4.png" || img.Width != "120" || img.Height != "60" {
		t.Errorf("unexpected image ref %+v", img)
	}

	if len(q.Choices) != 2 {
		t.Fatalf("expected 2 choices, got %d", len(q.Choices))
	}
	if q.Choices[0].Label != "A" || q.Choices[1].Label != "B" {
		t.Errorf("unexpected choice labels %q, %q", q.Choices[0].Label, q.Choices[1].Label)
	}
	if len(q.Choices[0].Content) != 1 || q.Choices[0].Content[0].Text != "甲说法" {
		t.Errorf("unexpected choice A content %+v", q.Choices[0].Content)
	}

	if len(q.AnswerLines) != 1 || q.AnswerLines[0] != "A" {
		t.Errorf("unexpected answer lines %v", q.AnswerLines)
	}
	if len(q.AnalysisLines) != 1 || q.AnalysisLines[0].Text != "由定义可知甲说法正确" {
		t.Errorf("unexpected analysis lines %+v", q.AnalysisLines)
	}
}

func TestParse_ImageLedger(t *testing.T) {
	markup := `<html><body>
<p class="QuestionTitle">看图回答</p>
<p><span class="img" data-src="http://e/a.png"></span></p>
<p><span class="img" data-src="http://e/a.png"></span><span class="img" data-sr="http://e/b.png"></span></p>
</body></html>`
	ch := mustParse(t, markup)

	if len(ch.Images) != 2 {
		t.Fatalf("expected 2 unique images, got %d", len(ch.Images))
	}
	if ch.Images[0].URL != "http://e/a.png" || ch.Images[1].URL != "http://e/b.png" {
		t.Errorf("unexpected image order %+v", ch.Images)
	}
}

func TestParse_TaggedAnswerSpans(t *testing.T) {
	markup := `<html><body>
<p class="QuestionTitle"><span class="QuestionNum2">7．</span>计算下列各式</p>
<p class="TagBoxP"><span class="answer">B</span></p>
<p class="TagBoxP"><span class="ResolveTag">解析</span>由题意直接可得</p>
</body></html>`
	q := singleQA(t, mustParse(t, markup))

	if q.Number != "7．" {
		t.Errorf("unexpected number %q", q.Number)
	}
	if len(q.AnswerLines) != 1 || q.AnswerLines[0] != "B" {
		t.Errorf("unexpected answer lines %v", q.AnswerLines)
	}
	if len(q.AnalysisLines) != 1 || q.AnalysisLines[0].Text != "由题意直接可得" {
		t.Errorf("unexpected analysis lines %+v", q.AnalysisLines)
	}
}

func TestParse_UntitledSection(t *testing.T) {
	ch := mustParse(t, `<html><body><p>开篇说明文字</p></body></html>`)

	if len(ch.Sections) != 1 {
		t.Fatalf("expected 1 section, got %d", len(ch.Sections))
	}
	if ch.Sections[0].Title != "" {
		t.Errorf("expected untitled section, got %q", ch.Sections[0].Title)
	}
	tb, ok := ch.Sections[0].Items[0].(*chapter.TextBlock)
	if !ok || tb.Text != "开篇说明文字" {
		t.Errorf("unexpected item %+v", ch.Sections[0].Items[0])
	}
}

func TestParse_EmptySeparatorSkipped(t *testing.T) {
	ch := mustParse(t, `<html><body><p class="PSplit"></p></body></html>`)
	if len(ch.Sections) != 0 {
		t.Errorf("expected no sections for a lone empty separator, got %d", len(ch.Sections))
	}
}

func TestParse_QuestionKeepsScriptMarkup(t *testing.T) {
	markup := `<html><body>
<p class="QuestionTitle">计算x<sup>2</sup>的值</p>
</body></html>`
	q := singleQA(t, mustParse(t, markup))

	if !strings.Contains(q.Question, "<sup>2</sup>") {
		t.Errorf("expected script markup to survive for the normalizer, got %q", q.Question)
	}
}

func TestParse_ImageRouting(t *testing.T) {
	markup := `<html><body>
<p class="QuestionTitle">如图所示</p>
<p>A．甲</p>
<p><span class="img" data-src="http://e/choice-a.png"></span></p>
<p>【答案】A</p>
<p><span class="img" data-src="http://e/analysis.png"></span></p>
</body></html>`
	q := singleQA(t, mustParse(t, markup))

	if len(q.Choices) != 1 {
		t.Fatalf("expected 1 choice, got %d", len(q.Choices))
	}
	c := q.Choices[0]
	if len(c.Images) != 1 || c.Images[0].URL != "http://e/choice-a.png" {
		t.Errorf("expected pre-answer image on the open choice, got %+v", c.Images)
	}

	var analysisImages []string
	for _, p := range q.AnalysisLines {
		if p.IsImage() {
			analysisImages = append(analysisImages, p.Image.URL)
		}
	}
	if len(analysisImages) != 1 || analysisImages[0] != "http://e/analysis.png" {
		t.Errorf("expected post-answer image in analysis, got %v", analysisImages)
	}
}

func TestParse_TopLevelImageBecomesBlock(t *testing.T) {
	markup := `<html><body>
<span class="img" data-src="http://e/figure.png" data-width="200"></span>
</body></html>`
	ch := mustParse(t, markup)

	if len(ch.Sections) != 1 {
		t.Fatalf("expected 1 section, got %d", len(ch.Sections))
	}
	ib, ok := ch.Sections[0].Items[0].(*chapter.ImageBlock)
	if !ok {
		t.Fatalf("expected an image block, got %T", ch.Sections[0].Items[0])
	}
	if ib.Ref.URL != "http://e/figure.png" || ib.Ref.Width != "200" {
		t.Errorf("unexpected image block ref %+v", ib.Ref)
	}
}

func TestSplitChoice(t *testing.T) {
	cases := []struct {
		in        string
		label     string
		remainder string
		ok        bool
	}{
		{"A．甲说法", "A", "甲说法", true},
		{"B. 乙说法", "B", "乙说法", true},
		{"Ｃ、丙说法", "Ｃ", "丙说法", true},
		{"D", "D", "", true},
		{"1．不是选项", "", "", false},
		{"AB两项", "", "", false},
		{"", "", "", false},
	}
	for _, tc := range cases {
		label, remainder, ok := splitChoice(tc.in)
		if ok != tc.ok || label != tc.label || remainder != tc.remainder {
			t.Errorf("splitChoice(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tc.in, label, remainder, ok, tc.label, tc.remainder, tc.ok)
		}
	}
}

func TestParse_ChoiceContinuationText(t *testing.T) {
	markup := `<html><body>
<p class="QuestionTitle">判断下列说法</p>
<p>A．第一行</p>
<p>第二行继续</p>
</body></html>`
	q := singleQA(t, mustParse(t, markup))

	if len(q.Choices) != 1 {
		t.Fatalf("expected 1 choice, got %d", len(q.Choices))
	}
	c := q.Choices[0]
	if len(c.Content) != 2 || c.Content[1].Text != "第二行继续" {
		t.Errorf("expected continuation text on the open choice, got %+v", c.Content)
	}
}
