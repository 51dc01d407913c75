package splitter

import (
	"strings"

	"github.com/docquery/docquery-backend/internal/apierr"
)

// Passage is one ordered slice of a document: the 1-based source page,
// the zero-based position among all passages of the document, and the
// trimmed text.
type Passage struct {
	Page  int
	Order int
	Text  string
}

// Splitter converts a raw document into an ordered sequence of passages
// given size/overlap parameters. Implementations are pluggable; the
// pipeline only depends on this contract.
type Splitter interface {
	Split(content []byte, chunkSize, chunkOverlap int) ([]Passage, error)
}

// CharacterSplitter splits page-delimited text into character windows,
// preferring to break on paragraph, line, and word boundaries in that
// order. Pages are delimited by form feeds, the separator text
// extractors conventionally emit.
type CharacterSplitter struct{}

func NewCharacterSplitter() *CharacterSplitter {
	return &CharacterSplitter{}
}

const pageSeparator = "\f"

var boundarySeparators = []string{"\n\n", "\n", " "}

func (s *CharacterSplitter) Split(content []byte, chunkSize, chunkOverlap int) ([]Passage, error) {
	if chunkSize <= 0 {
		return nil, apierr.Validation("chunk size must be positive, got %d", chunkSize)
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, apierr.Validation("chunk overlap must be in [0, chunk size), got %d", chunkOverlap)
	}

	pages := strings.Split(string(content), pageSeparator)
	passages := make([]Passage, 0)
	order := 0
	for pageIdx, pageText := range pages {
		for _, piece := range splitText(pageText, chunkSize, chunkOverlap) {
			trimmed := strings.TrimSpace(piece)
			if trimmed == "" {
				continue
			}
			passages = append(passages, Passage{
				Page:  pageIdx + 1,
				Order: order,
				Text:  trimmed,
			})
			order++
		}
	}
	return passages, nil
}

// splitText windows text into pieces of at most size runes, stepping
// back overlap runes between windows. Windows that would cut a word are
// shortened to the best boundary in the trailing half of the window.
func splitText(text string, size, overlap int) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= size {
		return []string{text}
	}

	var pieces []string
	start := 0
	for start < len(runes) {
		end := start + size
		if end >= len(runes) {
			pieces = append(pieces, string(runes[start:]))
			break
		}
		cut := boundaryCut(runes, start, end)
		pieces = append(pieces, string(runes[start:cut]))

		next := cut - overlap
		if next <= start {
			next = start + 1
		}
		start = next
	}
	return pieces
}

// boundaryCut finds the latest separator occurrence in the back half of
// the window so splits land between paragraphs, lines, or words when
// one is available.
func boundaryCut(runes []rune, start, end int) int {
	window := string(runes[start:end])
	floor := len(window) / 2
	for _, sep := range boundarySeparators {
		if idx := strings.LastIndex(window, sep); idx > floor {
			return start + len([]rune(window[:idx]))
		}
	}
	return end
}
