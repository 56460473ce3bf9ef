package chunking

import "strings"

// Segment is one positioned window of source text.
type Segment struct {
	Content    string
	PageNumber int
	ChunkIndex int
}

// Splitter cuts text into overlapping rune windows. Windows shorter than
// MinLength after trimming are dropped; the domain layer would reject them
// as chunks anyway.
type Splitter struct {
	ChunkSize int
	Overlap   int
	MinLength int
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
		MinLength: 10,
	}
}

// SplitPage windows one page of text, numbering chunks from firstIndex and
// returning the next free index alongside the segments.
func (s *Splitter) SplitPage(text string, pageNumber, firstIndex int) ([]Segment, int) {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil, firstIndex
	}

	step := s.ChunkSize - s.Overlap
	if step <= 0 {
		step = s.ChunkSize
	}

	index := firstIndex
	out := make([]Segment, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := start + s.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		content := strings.TrimSpace(string(runes[start:end]))
		if len(content) >= s.MinLength {
			out = append(out, Segment{
				Content:    content,
				PageNumber: pageNumber,
				ChunkIndex: index,
			})
			index++
		}
		if end == len(runes) {
			break
		}
	}
	return out, index
}

// Split windows a single-page text, numbering chunks from zero.
func (s *Splitter) Split(text string) []Segment {
	segments, _ := s.SplitPage(text, 1, 0)
	return segments
}
