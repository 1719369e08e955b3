package chunking

import (
	"strings"
	"testing"
)

func TestSplitProducesOverlappingWindows(t *testing.T) {
	splitter := NewSplitter(10, 4)
	text := strings.Repeat("abcde", 5) // 25 runes

	spans := splitter.Split(text)
	if len(spans) != 4 {
		t.Fatalf("expected 4 windows, got %d", len(spans))
	}
	wantStarts := []int{0, 6, 12, 18}
	for i, span := range spans {
		if span.Start != wantStarts[i] {
			t.Fatalf("span %d start = %d, want %d", i, span.Start, wantStarts[i])
		}
	}
	if len([]rune(spans[0].Text)) != 10 {
		t.Fatalf("window size = %d", len([]rune(spans[0].Text)))
	}
	// Overlap: the tail of one window opens the next.
	if !strings.HasPrefix(spans[1].Text, spans[0].Text[6:]) {
		t.Fatalf("windows do not overlap: %q then %q", spans[0].Text, spans[1].Text)
	}
}

func TestSplitIsDeterministic(t *testing.T) {
	splitter := NewSplitter(50, 10)
	text := strings.Repeat("the quick brown fox jumps over the lazy dog ", 20)

	first := splitter.Split(text)
	second := splitter.Split(text)
	if len(first) != len(second) {
		t.Fatalf("runs disagree: %d vs %d windows", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("window %d differs between runs", i)
		}
	}
}

func TestSplitCountsRunesNotBytes(t *testing.T) {
	splitter := NewSplitter(4, 0)
	spans := splitter.Split("héllo wörld")

	if len(spans) != 3 {
		t.Fatalf("expected 3 windows, got %d", len(spans))
	}
	if spans[0].Text != "héll" || spans[1].Start != 4 {
		t.Fatalf("spans = %+v", spans)
	}
}

func TestSplitShortTextIsSingleWindow(t *testing.T) {
	splitter := NewSplitter(900, 150)
	spans := splitter.Split("short")

	if len(spans) != 1 || spans[0].Start != 0 || spans[0].Text != "short" {
		t.Fatalf("spans = %+v", spans)
	}
}

func TestSplitEmptyTextYieldsNothing(t *testing.T) {
	if spans := NewSplitter(900, 150).Split(""); spans != nil {
		t.Fatalf("expected nil, got %+v", spans)
	}
}

func TestNewSplitterNormalizesDegenerateOverlap(t *testing.T) {
	splitter := NewSplitter(100, 100)
	if splitter.Overlap != 25 {
		t.Fatalf("overlap = %d, want chunkSize/4", splitter.Overlap)
	}
}
