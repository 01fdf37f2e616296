// Package chunker splits flattened document text into overlapping,
// sentence-boundary-aware chunks with tracked character offsets.
package chunker

import "strings"

const (
	// MaxInputSize caps how much text a single Split call will segment.
	// Text beyond the cap is dropped and the final chunk is tagged with
	// TruncationMarker.
	MaxInputSize = 500_000
	// MaxChunks bounds the chunk count on pathological input.
	MaxChunks = 1000
	// TruncationMarker is appended to the last chunk when input was cut.
	TruncationMarker = "\n[... text truncated ...]"
)

// Chunk is one window of the input with its [Start,End) offsets in the
// original text. Offsets always refer to the untruncated input; the
// truncation marker, when present, is advisory text outside [Start,End).
type Chunk struct {
	Text  string
	Start int
	End   int
}

// Split cuts text into chunks of at most size characters, overlapping by
// overlap. When a window's right edge falls inside the text, the chunk is
// shrunk back to the last sentence terminator or line break, but only if
// that break point is past the window's halfway mark; this avoids both
// mid-sentence cuts and pathologically tiny chunks. Deterministic: the same
// input always yields the same chunks.
func Split(text string, size, overlap int) []Chunk {
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	truncated := false
	if len(text) > MaxInputSize {
		text = text[:MaxInputSize]
		truncated = true
	}

	var chunks []Chunk
	start := 0
	for start < len(text) && len(chunks) < MaxChunks {
		end := start + size
		if end > len(text) {
			end = len(text)
		}

		if end < len(text) {
			if brk := breakPoint(text[start:end]); brk > size/2 {
				end = start + brk + 1
			}
		}

		chunks = append(chunks, Chunk{Text: text[start:end], Start: start, End: end})

		// Forward-progress guard: a window that cannot move past the
		// previous start would never terminate.
		next := end - overlap
		if next <= start {
			break
		}
		start = next
	}

	// Both caps drop text the same way: the last chunk carries the marker
	// whenever segmentation stopped short of the end of the input.
	if len(chunks) > 0 && chunks[len(chunks)-1].End < len(text) {
		truncated = true
	}
	if truncated && len(chunks) > 0 {
		last := &chunks[len(chunks)-1]
		last.Text += TruncationMarker
	}

	return chunks
}

// breakPoint returns the offset of the last sentence terminator or line
// break within window, or -1 if there is none.
func breakPoint(window string) int {
	period := strings.LastIndexByte(window, '.')
	newline := strings.LastIndexByte(window, '\n')
	if period > newline {
		return period
	}
	return newline
}
