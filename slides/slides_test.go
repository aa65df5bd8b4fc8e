package slides

import (
	"strings"
	"testing"
)

func TestSplitEmptyText(t *testing.T) {
	if got := Split("", "Title", DefaultApproxChars, 40); got != nil {
		t.Errorf("expected nil for empty text, got %v", got)
	}
	if got := Split("   \n\n  ", "", DefaultApproxChars, 40); got != nil {
		t.Errorf("expected nil for blank text, got %v", got)
	}
}

func TestSplitAddsTitleSlide(t *testing.T) {
	text := strings.Repeat("word ", 20)
	got := Split(text, "Reliance Industries", DefaultApproxChars, 40)

	if len(got) == 0 {
		t.Fatal("expected slides")
	}
	if !got[0].IsTitle() || got[0].Title != "Reliance Industries" {
		t.Errorf("expected leading title slide, got %+v", got[0])
	}
	if got[0].Narration() != "Reliance Industries" {
		t.Errorf("title slide should narrate its title, got %q", got[0].Narration())
	}
}

func TestSplitPacksParagraphs(t *testing.T) {
	para := strings.Repeat("a", 300)
	text := para + "\n\n" + para + "\n\n" + para

	got := Split(text, "", 700, 40)

	// Two 300-char paragraphs fit a 700-char slide, the third spills.
	if len(got) != 2 {
		t.Fatalf("expected 2 slides, got %d", len(got))
	}
	if !strings.Contains(got[0].Body, "\n\n") {
		t.Error("expected first slide to hold two paragraphs")
	}
	if got[1].Body != para {
		t.Error("expected third paragraph alone on the second slide")
	}
}

func TestSplitMergesShortSlides(t *testing.T) {
	long := strings.Repeat("b", 650)
	short := "tiny trailing note"
	text := long + "\n\n" + short

	got := Split(text, "", 700, 40)

	if len(got) != 1 {
		t.Fatalf("expected short slide merged into previous, got %d slides", len(got))
	}
	if !strings.HasSuffix(got[0].Body, short) {
		t.Errorf("expected merged body to end with the short note, got %q", got[0].Body)
	}
}

func TestSplitShortAfterTitleMergesIntoTitleSlide(t *testing.T) {
	got := Split("short body", "The Title", 700, 40)

	if len(got) != 1 {
		t.Fatalf("expected a single title slide, got %d slides", len(got))
	}
	if got[0].Title != "The Title" {
		t.Errorf("expected title kept, got %q", got[0].Title)
	}
	if got[0].Body != "short body" {
		t.Errorf("expected short body folded into title slide, got %q", got[0].Body)
	}
}

func TestSplitLoneShortSlideSurvives(t *testing.T) {
	got := Split("just a few words", "", 700, 40)

	if len(got) != 1 {
		t.Fatalf("expected the lone short slide kept, got %d", len(got))
	}
	if got[0].Body != "just a few words" {
		t.Errorf("unexpected body: %q", got[0].Body)
	}
}

func TestSplitResplitsWhenTooMany(t *testing.T) {
	para := strings.Repeat("c", 500)
	parts := make([]string, 20)
	for i := range parts {
		parts[i] = para
	}
	text := strings.Join(parts, "\n\n")

	got := Split(text, "", 700, 40)

	// The fine pass would make 20 one-paragraph slides; the coarser
	// pass packs two 500-char paragraphs per 1200-char slide.
	if len(got) != 10 {
		t.Fatalf("expected 10 slides after re-split, got %d", len(got))
	}
	for i, s := range got {
		if !strings.Contains(s.Body, "\n\n") {
			t.Errorf("slide %d expected to hold two paragraphs", i)
		}
	}
}
