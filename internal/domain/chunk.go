package domain

import (
	"strings"
	"time"
)

// MemoryChunk is a single stored memory: a text window with its embedding
// and the tags supplied at ingest time.
type MemoryChunk struct {
	ProjectID ProjectID
	ChunkID   ChunkID
	Text      string
	Tags      []string
	Embedding []float32
	CreatedAt time.Time
}

// SplitText splits raw text into overlapping character windows of ChunkSize
// with ChunkOverlap shared between adjacent windows. Surrounding whitespace
// is trimmed and whitespace-only windows are dropped. Empty input yields an
// empty slice.
func SplitText(text string) []string {
	return SplitTextWith(text, ChunkSize, ChunkOverlap)
}

// SplitTextWith is SplitText with explicit window parameters.
// overlap must be smaller than size; callers violating that get the
// degenerate single-window behavior rather than an infinite loop.
func SplitTextWith(text string, size, overlap int) []string {
	if size <= 0 || overlap >= size {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil
		}
		return []string{trimmed}
	}

	runes := []rune(text)
	var chunks []string
	step := size - overlap
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		window := strings.TrimSpace(string(runes[start:end]))
		if window != "" {
			chunks = append(chunks, window)
		}
	}
	return chunks
}

// ValidateTags checks ingest-supplied tags against domain limits.
func ValidateTags(tags []string) error {
	if len(tags) > MaxTagsPerChunk {
		return ErrInvalidInput
	}
	for _, tag := range tags {
		if tag == "" || len(tag) > MaxTagLength {
			return ErrInvalidInput
		}
	}
	return nil
}
