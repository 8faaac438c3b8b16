package chunk

import (
	"strings"
	"unicode/utf8"
)

// defaultSeparators are tried in order, coarsest first. The empty string is
// the terminal fallback splitting on individual characters.
var defaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// RecursiveSplitter cuts text into overlapping chunks, preferring to break
// on paragraph, line, sentence, and word boundaries before falling back to
// hard character cuts.
type RecursiveSplitter struct {
	chunkSize  int
	overlap    int
	separators []string
}

// NewRecursiveSplitter builds a splitter. Size must be positive; overlap is
// clamped below size.
func NewRecursiveSplitter(chunkSize, overlap int) *RecursiveSplitter {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 2
	}
	return &RecursiveSplitter{
		chunkSize:  chunkSize,
		overlap:    overlap,
		separators: defaultSeparators,
	}
}

// Split returns the chunks for text. Output is deterministic, contains no
// empty chunks, and every chunk is at most the configured size.
func (s *RecursiveSplitter) Split(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	pieces := s.split(trimmed, s.separators)
	return s.merge(pieces)
}

// split recursively cuts text into pieces no longer than chunkSize.
func (s *RecursiveSplitter) split(text string, separators []string) []string {
	if len(text) <= s.chunkSize {
		return []string{text}
	}

	sep, rest := pickSeparator(text, separators)
	var parts []string
	if sep == "" {
		parts = hardCut(text, s.chunkSize)
	} else {
		parts = splitKeepingSeparator(text, sep)
	}

	var out []string
	for _, part := range parts {
		if len(part) <= s.chunkSize {
			out = append(out, part)
			continue
		}
		out = append(out, s.split(part, rest)...)
	}
	return out
}

// merge greedily packs pieces into chunks up to chunkSize, carrying the
// configured overlap from the tail of each emitted chunk.
func (s *RecursiveSplitter) merge(pieces []string) []string {
	var chunks []string
	var current strings.Builder

	flush := func() {
		chunk := strings.TrimSpace(current.String())
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		current.Reset()
		if s.overlap > 0 && chunk != "" {
			tail := chunk
			if len(tail) > s.overlap {
				start := len(tail) - s.overlap
				// Never start the overlap inside a multibyte rune.
				for start < len(tail) && !utf8.RuneStart(tail[start]) {
					start++
				}
				tail = tail[start:]
			}
			current.WriteString(tail)
		}
	}

	for _, piece := range pieces {
		if current.Len()+len(piece) > s.chunkSize && current.Len() > 0 {
			flush()
			// Drop the overlap seed if the next piece alone would overflow.
			if current.Len()+len(piece) > s.chunkSize {
				current.Reset()
			}
		}
		current.WriteString(piece)
	}

	if final := strings.TrimSpace(current.String()); final != "" {
		// Skip a trailing chunk that is only the overlap echo of the last one.
		if len(chunks) == 0 || !strings.HasSuffix(chunks[len(chunks)-1], final) {
			chunks = append(chunks, final)
		}
	}
	return chunks
}

func pickSeparator(text string, separators []string) (string, []string) {
	for i, sep := range separators {
		if sep == "" {
			return "", nil
		}
		if strings.Contains(text, sep) {
			return sep, separators[i+1:]
		}
	}
	return "", nil
}

func splitKeepingSeparator(text, sep string) []string {
	raw := strings.SplitAfter(text, sep)
	parts := raw[:0]
	for _, p := range raw {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// hardCut slices text into size-byte pieces, backing each cut up to a rune
// boundary so multibyte characters are never split.
func hardCut(text string, size int) []string {
	var parts []string
	for len(text) > size {
		cut := size
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		if cut == 0 {
			// A single rune wider than size still comes out whole.
			_, width := utf8.DecodeRuneInString(text)
			cut = width
		}
		parts = append(parts, text[:cut])
		text = text[cut:]
	}
	if text != "" {
		parts = append(parts, text)
	}
	return parts
}
