// Package chunker splits raw file text into fixed-size overlapping windows,
// the unit of embedding and retrieval.
package chunker

// Chunker carries the window parameters and the per-file chunk cap.
type Chunker struct {
	// Size is the window width in runes.
	Size int
	// Overlap is how many trailing runes each window shares with the next.
	Overlap int
	// MaxPerFile caps the number of windows emitted for one file; zero
	// means unlimited.
	MaxPerFile int
}

// Split windows the text with the chunker's parameters.
func (c Chunker) Split(text string) []string {
	chunks := Window(text, c.Size, c.Overlap)
	if c.MaxPerFile > 0 && len(chunks) > c.MaxPerFile {
		chunks = chunks[:c.MaxPerFile]
	}
	return chunks
}

// Window splits text into size-rune windows where each window starts
// overlap runes before the previous one ended. The final window may be
// shorter. Empty text yields no windows; a non-positive size or an overlap
// that would prevent forward progress yields the whole text as one window.
func Window(text string, size, overlap int) []string {
	if text == "" {
		return nil
	}
	runes := []rune(text)
	if size <= 0 || len(runes) <= size {
		return []string{text}
	}
	step := size - overlap
	if step <= 0 {
		return []string{text}
	}

	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}
