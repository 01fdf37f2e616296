package chunker

import (
	"strings"
	"testing"
)

func TestSplit_Empty(t *testing.T) {
	if got := Split("", 1000, 200); got != nil {
		t.Errorf("Split(\"\") = %v, want nil", got)
	}
}

func TestSplit_SingleChunk(t *testing.T) {
	text := "A short agreement."
	chunks := Split(text, 1000, 200)
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	c := chunks[0]
	if c.Text != text || c.Start != 0 || c.End != len(text) {
		t.Errorf("chunk = %+v", c)
	}
}

func TestSplit_SentenceBoundary(t *testing.T) {
	// The period at offset 79 is past the halfway point of a 100-char
	// window, so the first chunk should end right after it.
	text := strings.Repeat("x", 79) + "." + strings.Repeat("y", 120)
	chunks := Split(text, 100, 10)
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want >= 2", len(chunks))
	}
	if chunks[0].End != 80 {
		t.Errorf("first chunk ends at %d, want 80", chunks[0].End)
	}
	if !strings.HasSuffix(chunks[0].Text, ".") {
		t.Errorf("first chunk %q does not end at sentence boundary", chunks[0].Text)
	}
}

func TestSplit_EarlyBreakIgnored(t *testing.T) {
	// A period before the halfway mark must not shrink the chunk.
	text := strings.Repeat("a", 10) + "." + strings.Repeat("b", 200)
	chunks := Split(text, 100, 10)
	if chunks[0].End != 100 {
		t.Errorf("first chunk ends at %d, want full window 100", chunks[0].End)
	}
}

func TestSplit_OffsetsCoverInput(t *testing.T) {
	text := strings.Repeat("The party shall indemnify the other party. ", 200)
	chunks := Split(text, 1000, 200)

	if chunks[0].Start != 0 {
		t.Fatalf("first chunk starts at %d", chunks[0].Start)
	}
	prevStart := -1
	for i, c := range chunks {
		if c.Start <= prevStart {
			t.Fatalf("chunk %d start %d does not advance past %d", i, c.Start, prevStart)
		}
		if c.End <= c.Start {
			t.Fatalf("chunk %d has empty range [%d,%d)", i, c.Start, c.End)
		}
		if c.Text != text[c.Start:c.End] {
			t.Fatalf("chunk %d text does not match offsets", i)
		}
		if i > 0 && c.Start > chunks[i-1].End {
			t.Fatalf("gap between chunk %d end %d and chunk %d start %d", i-1, chunks[i-1].End, i, c.Start)
		}
		prevStart = c.Start
	}
	if last := chunks[len(chunks)-1]; last.End != len(text) {
		t.Errorf("last chunk ends at %d, want %d", last.End, len(text))
	}
}

func TestSplit_Deterministic(t *testing.T) {
	text := strings.Repeat("Clause one. Clause two.\n", 500)
	a := Split(text, 1000, 200)
	b := Split(text, 1000, 200)
	if len(a) != len(b) {
		t.Fatalf("chunk counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("chunk %d differs between runs", i)
		}
	}
}

func TestSplit_Truncation(t *testing.T) {
	text := strings.Repeat("z", MaxInputSize+1000)
	chunks := Split(text, 1000, 200)
	last := chunks[len(chunks)-1]
	if !strings.HasSuffix(last.Text, TruncationMarker) {
		t.Error("oversized input not tagged with truncation marker")
	}
	for _, c := range chunks {
		if c.End > MaxInputSize {
			t.Fatalf("chunk end %d beyond input cap", c.End)
		}
	}
}

func TestSplit_ChunkCap(t *testing.T) {
	// No sentence breaks and heavy overlap force many windows.
	text := strings.Repeat("q", 200_000)
	chunks := Split(text, 100, 90)
	if len(chunks) > MaxChunks {
		t.Errorf("got %d chunks, cap is %d", len(chunks), MaxChunks)
	}
}

func TestSplit_ChunkCap_MarksTruncation(t *testing.T) {
	// Heavy overlap exhausts the chunk-count cap long before the text
	// runs out; the dropped remainder must be flagged like the input cap.
	text := strings.Repeat("a", 20_000)
	chunks := Split(text, 10, 5)

	if len(chunks) != MaxChunks {
		t.Fatalf("got %d chunks, want %d", len(chunks), MaxChunks)
	}
	last := chunks[len(chunks)-1]
	if last.End >= len(text) {
		t.Fatalf("cap did not bind: last end %d, text %d", last.End, len(text))
	}
	if !strings.HasSuffix(last.Text, TruncationMarker) {
		t.Errorf("last chunk missing truncation marker: %q", last.Text)
	}
}

func TestSplit_FullCoverage_NoMarker(t *testing.T) {
	chunks := Split(strings.Repeat("b", 3000), 1000, 200)
	last := chunks[len(chunks)-1]
	if last.End != 3000 {
		t.Fatalf("last end = %d, want 3000", last.End)
	}
	if strings.Contains(last.Text, TruncationMarker) {
		t.Error("marker appended though nothing was dropped")
	}
}

func TestSplit_ZeroOverlapTerminates(t *testing.T) {
	chunks := Split(strings.Repeat("w", 5000), 1000, 0)
	if len(chunks) != 5 {
		t.Errorf("got %d chunks, want 5", len(chunks))
	}
}
