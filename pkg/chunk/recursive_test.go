package chunk

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitShortTextReturnsSingleChunk(t *testing.T) {
	s := NewRecursiveSplitter(100, 20)
	chunks := s.Split("a short paragraph")
	if len(chunks) != 1 || chunks[0] != "a short paragraph" {
		t.Fatalf("unexpected chunks %v", chunks)
	}
}

func TestSplitEmptyText(t *testing.T) {
	s := NewRecursiveSplitter(100, 20)
	if chunks := s.Split("   \n\n  "); chunks != nil {
		t.Fatalf("expected nil for blank input, got %v", chunks)
	}
}

func TestSplitRespectsChunkSize(t *testing.T) {
	s := NewRecursiveSplitter(50, 10)
	text := strings.Repeat("one two three four five. ", 20)

	chunks := s.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > 50 {
			t.Fatalf("chunk %d exceeds size: %d chars", i, len(c))
		}
		if strings.TrimSpace(c) == "" {
			t.Fatalf("chunk %d is empty", i)
		}
	}
}

func TestSplitPrefersParagraphBoundaries(t *testing.T) {
	s := NewRecursiveSplitter(40, 0)
	text := "first paragraph here.\n\nsecond paragraph here.\n\nthird paragraph here."

	chunks := s.Split(text)
	for i, c := range chunks {
		if strings.Contains(c, "\n\n") {
			t.Fatalf("chunk %d spans a paragraph break: %q", i, c)
		}
	}
}

func TestSplitDeterministic(t *testing.T) {
	s := NewRecursiveSplitter(64, 16)
	text := strings.Repeat("alpha beta gamma delta epsilon. ", 12)

	first := s.Split(text)
	second := s.Split(text)
	if len(first) != len(second) {
		t.Fatalf("runs differ in length: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("chunk %d differs between runs", i)
		}
	}
}

func TestSplitOverlapCarriesTail(t *testing.T) {
	s := NewRecursiveSplitter(30, 10)
	text := strings.Repeat("word ", 40)

	chunks := s.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		prevTail := chunks[i-1]
		if len(prevTail) > 10 {
			prevTail = prevTail[len(prevTail)-10:]
		}
		if !strings.Contains(chunks[i], strings.TrimSpace(prevTail)) {
			t.Fatalf("chunk %d does not carry overlap from its predecessor", i)
		}
	}
}

func TestSplitHardCutsUnbreakableRuns(t *testing.T) {
	s := NewRecursiveSplitter(20, 0)
	text := strings.Repeat("x", 55)

	chunks := s.Split(text)
	total := 0
	for i, c := range chunks {
		if len(c) > 20 {
			t.Fatalf("chunk %d exceeds size: %d", i, len(c))
		}
		total += len(c)
	}
	if total != 55 {
		t.Fatalf("expected full coverage of 55 chars, got %d", total)
	}
}

func TestNewRecursiveSplitterClampsOverlap(t *testing.T) {
	s := NewRecursiveSplitter(10, 50)
	if s.overlap >= s.chunkSize {
		t.Fatalf("overlap %d should be clamped below size %d", s.overlap, s.chunkSize)
	}
}

func TestSplitNeverCutsInsideRunes(t *testing.T) {
	s := NewRecursiveSplitter(5, 2)

	chunks := s.Split(strings.Repeat("é", 20))
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if !utf8.ValidString(c) {
			t.Fatalf("chunk %d is not valid UTF-8: %q", i, c)
		}
		if len(c) > 5 {
			t.Fatalf("chunk %d exceeds size: %d bytes", i, len(c))
		}
	}
}

func TestSplitMixedMultibyteText(t *testing.T) {
	s := NewRecursiveSplitter(12, 4)
	text := strings.Repeat("naïve café über ", 10)

	for i, c := range s.Split(text) {
		if !utf8.ValidString(c) {
			t.Fatalf("chunk %d is not valid UTF-8: %q", i, c)
		}
	}
}

func TestSplitRuneWiderThanChunkSize(t *testing.T) {
	s := NewRecursiveSplitter(2, 0)

	for i, c := range s.Split(strings.Repeat("世界", 6)) {
		if !utf8.ValidString(c) {
			t.Fatalf("chunk %d is not valid UTF-8: %q", i, c)
		}
	}
}
