package knowledgebase

import "strings"

// chunkText splits text into windows of approximately size runes with
// overlap runes of repeated context between consecutive windows. Windows
// prefer to break on a paragraph boundary ("\n\n") near the target size,
// and never split in the middle of a UTF-8 codepoint (splitting operates on
// the rune slice, not raw bytes). A text shorter than size produces exactly
// one chunk.
func chunkText(text string, size, overlap int) []chunkWindow {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if size <= 0 {
		size = 800
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	if len(runes) <= size {
		return []chunkWindow{{Text: text, Start: 0, End: len(runes)}}
	}

	var windows []chunkWindow
	start := 0
	for start < len(runes) {
		end := start + size
		if end >= len(runes) {
			end = len(runes)
		} else if brk := paragraphBreak(runes, start, end); brk > start {
			end = brk
		}

		windows = append(windows, chunkWindow{
			Text:  string(runes[start:end]),
			Start: start,
			End:   end,
		})

		if end >= len(runes) {
			break
		}
		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return windows
}

// chunkWindow is one chunk's text and its rune-offset span within the
// source document.
type chunkWindow struct {
	Text  string
	Start int
	End   int
}

// paragraphBreak looks backward from end (within [start,end]) for the last
// double-newline boundary, returning that boundary's rune index, or start-1
// (no match) if none is found within the window.
func paragraphBreak(runes []rune, start, end int) int {
	window := string(runes[start:end])
	idx := strings.LastIndex(window, "\n\n")
	if idx < 0 {
		return start - 1
	}
	// Only accept breaks that leave a reasonably sized chunk (avoid
	// degenerate near-zero-length windows).
	brk := start + len([]rune(window[:idx])) + 2
	if brk-start < (end-start)/2 {
		return start - 1
	}
	return brk
}
