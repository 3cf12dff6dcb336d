package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowEmptyText(t *testing.T) {
	assert.Nil(t, Window("", 10, 2))
}

func TestWindowShortTextSingleChunk(t *testing.T) {
	chunks := Window("hello", 10, 2)
	require.Len(t, chunks, 1)
	assert.Equal(t, "hello", chunks[0])
}

func TestWindowOverlap(t *testing.T) {
	// 10 runes, size 4, overlap 2 → step 2.
	chunks := Window("abcdefghij", 4, 2)
	require.Equal(t, []string{"abcd", "cdef", "efgh", "ghij"}, chunks)

	// Each adjacent pair shares the overlap.
	for i := 1; i < len(chunks); i++ {
		assert.Equal(t, chunks[i-1][2:], chunks[i][:2])
	}
}

func TestWindowFinalChunkShorter(t *testing.T) {
	chunks := Window("abcdefghi", 4, 2)
	require.Equal(t, []string{"abcd", "cdef", "efghi"[0:4], "ghi"}, chunks)
}

func TestWindowNoForwardProgress(t *testing.T) {
	// Overlap >= size would loop forever; the whole text comes back instead.
	chunks := Window("abcdefghij", 4, 4)
	require.Len(t, chunks, 1)
	assert.Equal(t, "abcdefghij", chunks[0])

	chunks = Window("abcdefghij", 0, 0)
	require.Len(t, chunks, 1)
}

func TestWindowRuneBoundaries(t *testing.T) {
	text := strings.Repeat("héllo", 4) // multi-byte runes
	chunks := Window(text, 7, 2)
	var rejoined []rune
	for i, c := range chunks {
		runes := []rune(c)
		if i == 0 {
			rejoined = append(rejoined, runes...)
		} else {
			rejoined = append(rejoined, runes[2:]...)
		}
	}
	assert.Equal(t, text, string(rejoined))
}

func TestSplitCapsPerFile(t *testing.T) {
	c := Chunker{Size: 4, Overlap: 0, MaxPerFile: 2}
	chunks := c.Split("abcdefghijkl")
	require.Len(t, chunks, 2)
	assert.Equal(t, "abcd", chunks[0])
	assert.Equal(t, "efgh", chunks[1])
}

func TestSplitUnlimitedWithoutCap(t *testing.T) {
	c := Chunker{Size: 4, Overlap: 0}
	assert.Len(t, c.Split("abcdefghijkl"), 3)
}
