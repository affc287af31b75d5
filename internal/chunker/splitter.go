package chunker

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/textsplitter"

	"github.com/gitcodebot/repoingest/pkg/models"
)

// Chunking defaults, in bytes.
const (
	DefaultChunkSize    = 1500
	DefaultChunkOverlap = 150
)

// Splitter turns materialized files into ordered, overlapping chunks using
// a recursive separator-priority strategy: the language's most structural
// separators are tried first, any piece still over the size limit is
// subdivided with the next separator, and adjacent small pieces are merged
// back up to the size limit with chunkOverlap bytes shared between
// neighbors.
type Splitter struct {
	table        LanguageTable
	chunkSize    int
	chunkOverlap int

	// fallbacks counts files split as plain text because their extension
	// was not in the table. Exposed so operators can detect coverage gaps.
	fallbacks atomic.Int64
}

// NewSplitter builds a Splitter. Zero size/overlap select the defaults;
// overlap must stay below size.
func NewSplitter(table LanguageTable, chunkSize, chunkOverlap int) (*Splitter, error) {
	if chunkSize == 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap == 0 {
		chunkOverlap = DefaultChunkOverlap
	}
	if chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("chunk overlap %d must be smaller than chunk size %d", chunkOverlap, chunkSize)
	}
	return &Splitter{table: table, chunkSize: chunkSize, chunkOverlap: chunkOverlap}, nil
}

// FallbackCount reports how many files fell back to plain-text splitting.
func (s *Splitter) FallbackCount() int64 {
	return s.fallbacks.Load()
}

// Split chunks one materialized file. The content is read back from the
// record's storage path so that bodies accumulated across repeated
// materializations are chunked whole; records without a storage path are
// split from their in-memory content.
//
// The returned sequence is ordered left to right with monotonically
// non-decreasing start offsets. An unrecognized extension is not an error:
// the file is split as plain text and the fallback counter incremented.
func (s *Splitter) Split(rec models.FileRecord) ([]models.Chunk, error) {
	content := rec.Content
	if rec.StoragePath != "" {
		b, err := os.ReadFile(rec.StoragePath)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", rec.Name, err)
		}
		content = string(b)
	}
	if content == "" {
		return nil, nil
	}

	lang, known := s.table.Infer(rec.Extension)
	if !known {
		s.fallbacks.Add(1)
		log.Warn().
			Str("file", rec.Name).
			Str("extension", rec.Extension).
			Msg("unsupported extension, splitting as plain text")
	}

	sp := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(s.chunkSize),
		textsplitter.WithChunkOverlap(s.chunkOverlap),
		textsplitter.WithSeparators(separatorsForLanguage(lang)),
	)
	pieces, err := sp.SplitText(content)
	if err != nil {
		return nil, fmt.Errorf("splitting %s: %w", rec.Name, err)
	}

	chunks := make([]models.Chunk, 0, len(pieces))
	cursor := 0
	for _, piece := range pieces {
		if piece == "" {
			continue
		}
		start := locate(content, piece, cursor)
		chunks = append(chunks, models.Chunk{
			Content:     piece,
			FileName:    rec.Name,
			Path:        rec.Name,
			Language:    lang,
			StartOffset: start,
		})
		// Overlapping neighbors may start before this chunk ends, but
		// never at or before its own start.
		cursor = start + 1
	}
	return chunks, nil
}

// locate finds a chunk's start offset within the original content,
// searching forward from the previous chunk's start so duplicated text
// resolves to the correct occurrence. The search never looks behind from:
// an earlier occurrence of a repeated piece would report an offset that
// rewinds past its predecessor.
func locate(content, piece string, from int) int {
	if from < len(content) {
		if i := strings.Index(content[from:], piece); i >= 0 {
			return from + i
		}
	}
	return from
}
