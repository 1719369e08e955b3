package chunking

import "github.com/casewise/docintel/internal/core/domain"

// Splitter cuts text into fixed-size overlapping rune windows. Boundaries
// are a pure function of the input, so reindexing an unchanged document
// rebuilds identical chunks.
type Splitter struct {
	ChunkSize int
	Overlap   int
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 900
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Splitter{
		ChunkSize: chunkSize,
		Overlap:   overlap,
	}
}

// Split returns raw windows with their rune offsets into text. Cleanup is
// the indexer's job; trimming here would break page attribution.
func (s *Splitter) Split(text string) []domain.ChunkSpan {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	step := s.ChunkSize - s.Overlap
	if step <= 0 {
		step = s.ChunkSize
	}

	out := make([]domain.ChunkSpan, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := start + s.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, domain.ChunkSpan{
			Text:  string(runes[start:end]),
			Start: start,
		})
		if end == len(runes) {
			break
		}
	}
	return out
}
