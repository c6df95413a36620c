package chunker

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"speechqa/internal/domain"
)

var ErrInvalidOverlap = errors.New("chunk overlap must be smaller than chunk size")

// DefaultSeparators are tried in order when snapping a chunk end to a boundary.
var DefaultSeparators = []string{"\n\n", "\n", ". ", " "}

// CharChunker splits text into windows of at most size runes, where consecutive
// windows share exactly overlap runes.
type CharChunker struct {
	size       int
	overlap    int
	separators [][]rune
}

func NewCharChunker(size, overlap int) (*CharChunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be greater than 0, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: size=%d overlap=%d", ErrInvalidOverlap, size, overlap)
	}

	seps := make([][]rune, len(DefaultSeparators))
	for i, s := range DefaultSeparators {
		seps[i] = []rune(s)
	}

	return &CharChunker{
		size:       size,
		overlap:    overlap,
		separators: seps,
	}, nil
}

func (c *CharChunker) Chunk(doc domain.Document) ([]domain.Chunk, error) {
	runes := []rune(doc.Content)
	n := len(runes)
	if n == 0 {
		return nil, nil
	}

	var chunks []domain.Chunk
	start := 0

	for start < n {
		end := start + c.size
		if end >= n {
			end = n
		} else {
			end = c.snap(runes, start, end)
		}

		text := string(runes[start:end])
		if strings.TrimSpace(text) != "" {
			chunks = append(chunks, domain.Chunk{
				ID:    ChunkID(doc.ID, start, end),
				DocID: doc.ID,
				Index: len(chunks),
				Start: start,
				End:   end,
				Text:  text,
			})
		}

		if end == n {
			break
		}
		start = end - c.overlap
	}

	return chunks, nil
}

// snap moves end back to just after the last separator in the window. The new
// end must leave more than overlap runes in the chunk so the next window advances.
func (c *CharChunker) snap(runes []rune, start, end int) int {
	minEnd := start + c.overlap + 1

	for _, sep := range c.separators {
		for i := end - len(sep); i >= start; i-- {
			if i+len(sep) < minEnd {
				break
			}
			if hasPrefix(runes[i:], sep) {
				return i + len(sep)
			}
		}
	}

	return end
}

func hasPrefix(s, prefix []rune) bool {
	if len(s) < len(prefix) {
		return false
	}
	for i := range prefix {
		if s[i] != prefix[i] {
			return false
		}
	}
	return true
}

// ChunkID is stable for a given document and rune range.
func ChunkID(docID string, start, end int) string {
	data := fmt.Sprintf("%s:%d-%d", docID, start, end)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(data)).String()
}
