package chunker

import (
	"strings"

	"grocerai/internal/domain"
)

// CharacterChunker cuts text into windows of at most size characters,
// preferring to break at whitespace, with overlap characters repeated
// between neighbouring passages.
type CharacterChunker struct {
	size    int
	overlap int
}

// NewCharacterChunker creates a window chunker. Defaults are 1000/200.
func NewCharacterChunker(size, overlap int) *CharacterChunker {
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 5
	}
	return &CharacterChunker{size: size, overlap: overlap}
}

func (c *CharacterChunker) Chunk(document domain.Document) ([]domain.Passage, error) {
	content := []rune(strings.TrimSpace(document.Content))
	if len(content) == 0 {
		return nil, nil
	}

	var passages []domain.Passage
	start := 0
	for start < len(content) {
		end := start + c.size
		if end >= len(content) {
			end = len(content)
		} else if cut := lastSpace(content[start:end]); cut > 0 {
			end = start + cut
		}

		text := strings.TrimSpace(string(content[start:end]))
		if text != "" {
			passages = append(passages, domain.Passage{
				SourceID: passageID(document.ID, len(passages)),
				Content:  text,
			})
		}
		if end == len(content) {
			break
		}

		next := end - c.overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return passages, nil
}

func lastSpace(runes []rune) int {
	for i := len(runes) - 1; i > 0; i-- {
		if runes[i] == ' ' || runes[i] == '\n' || runes[i] == '\t' {
			return i
		}
	}
	return -1
}
