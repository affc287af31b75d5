package chunker

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gitcodebot/repoingest/pkg/models"
)

func newTestSplitter(t *testing.T, size, overlap int) *Splitter {
	t.Helper()
	s, err := NewSplitter(DefaultLanguageTable(), size, overlap)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestNewSplitterValidation(t *testing.T) {
	if _, err := NewSplitter(DefaultLanguageTable(), 100, 100); err == nil {
		t.Error("expected error for overlap == size")
	}
	if _, err := NewSplitter(DefaultLanguageTable(), 100, 150); err == nil {
		t.Error("expected error for overlap > size")
	}
	s, err := NewSplitter(DefaultLanguageTable(), 0, 0)
	if err != nil {
		t.Fatalf("defaults rejected: %v", err)
	}
	if s.chunkSize != DefaultChunkSize || s.chunkOverlap != DefaultChunkOverlap {
		t.Errorf("defaults = (%d, %d), want (%d, %d)",
			s.chunkSize, s.chunkOverlap, DefaultChunkSize, DefaultChunkOverlap)
	}
}

func TestSplitSmallFileSingleChunk(t *testing.T) {
	s := newTestSplitter(t, 0, 0)
	chunks, err := s.Split(models.FileRecord{
		Name:      "main.py",
		Extension: ".py",
		Content:   "import os\nprint('hi')\n",
	})
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if chunks[0].Language != "python" {
		t.Errorf("language = %q, want python", chunks[0].Language)
	}
	if chunks[0].FileName != "main.py" || chunks[0].Path != "main.py" {
		t.Errorf("provenance = (%q, %q)", chunks[0].FileName, chunks[0].Path)
	}
	if chunks[0].StartOffset != 0 {
		t.Errorf("StartOffset = %d, want 0", chunks[0].StartOffset)
	}
	if s.FallbackCount() != 0 {
		t.Errorf("FallbackCount() = %d, want 0", s.FallbackCount())
	}
}

func TestSplitEmptyContent(t *testing.T) {
	s := newTestSplitter(t, 0, 0)
	chunks, err := s.Split(models.FileRecord{Name: "empty.go", Extension: ".go"})
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if chunks != nil {
		t.Errorf("chunks = %v, want nil", chunks)
	}
}

func TestSplitUnknownExtensionFallsBack(t *testing.T) {
	s := newTestSplitter(t, 0, 0)
	chunks, err := s.Split(models.FileRecord{
		Name:      "data.xyz",
		Extension: ".xyz",
		Content:   "some opaque text",
	})
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(chunks) != 1 || chunks[0].Language != PlainText {
		t.Errorf("chunks = %v, want one plaintext chunk", chunks)
	}
	if s.FallbackCount() != 1 {
		t.Errorf("FallbackCount() = %d, want 1", s.FallbackCount())
	}
}

func TestSplitReadsFromStoragePath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stored.md")
	if err := os.WriteFile(path, []byte("# Title\n\nBody text.\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := newTestSplitter(t, 0, 0)
	chunks, err := s.Split(models.FileRecord{
		Name:        "stored.md",
		Extension:   ".md",
		Content:     "stale in-memory copy",
		StoragePath: path,
	})
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if !strings.Contains(chunks[0].Content, "# Title") {
		t.Errorf("chunk content %q not read from storage", chunks[0].Content)
	}
	if chunks[0].Language != "markdown" {
		t.Errorf("language = %q, want markdown", chunks[0].Language)
	}
}

func TestSplitMissingStoragePath(t *testing.T) {
	s := newTestSplitter(t, 0, 0)
	_, err := s.Split(models.FileRecord{
		Name:        "gone.py",
		Extension:   ".py",
		StoragePath: filepath.Join(t.TempDir(), "gone.py"),
	})
	if err == nil {
		t.Error("expected error for missing storage file")
	}
}

// TestSplitCoverage checks the chunk sequence's structural properties on a
// long input: offsets monotonically non-decreasing, every chunk found at
// its offset, and no uncovered gap wider than the overlap between
// consecutive chunks.
func TestSplitCoverage(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 200; i++ {
		sb.WriteString("line of program text number ")
		sb.WriteString(strings.Repeat("x", i%13))
		sb.WriteString("\n")
		if i%10 == 9 {
			sb.WriteString("\n")
		}
	}
	content := sb.String()

	const size, overlap = 300, 60
	s := newTestSplitter(t, size, overlap)
	chunks, err := s.Split(models.FileRecord{
		Name:      "big.txt",
		Extension: ".txt",
		Content:   content,
	})
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want several", len(chunks))
	}

	prevStart := -1
	prevEnd := 0
	for i, c := range chunks {
		if c.StartOffset < prevStart {
			t.Errorf("chunk %d offset %d below previous %d", i, c.StartOffset, prevStart)
		}
		at := content[c.StartOffset:]
		if !strings.HasPrefix(at, c.Content) {
			t.Errorf("chunk %d not found at its offset %d", i, c.StartOffset)
		}
		if i > 0 && c.StartOffset > prevEnd {
			gap := c.StartOffset - prevEnd
			if gap > overlap {
				t.Errorf("gap of %d bytes before chunk %d exceeds overlap %d", gap, i, overlap)
			}
		}
		prevStart = c.StartOffset
		prevEnd = c.StartOffset + len(c.Content)
	}
}

// An offset search that cannot find the piece ahead of the cursor must
// not fall back to an earlier occurrence.
func TestLocateStaysAtOrAfterCursor(t *testing.T) {
	content := "alpha\nbeta\nalpha\ngamma\n"
	tests := []struct {
		piece string
		from  int
		want  int
	}{
		{"alpha", 0, 0},
		{"alpha", 1, 11},
		{"alpha", 12, 12},
		{"beta", 30, 30},
	}
	for _, tt := range tests {
		if got := locate(content, tt.piece, tt.from); got != tt.want {
			t.Errorf("locate(%q, %d) = %d, want %d", tt.piece, tt.from, got, tt.want)
		}
	}
}

func TestSplitRepeatedContentOffsetsIncrease(t *testing.T) {
	s := newTestSplitter(t, 60, 12)
	content := strings.Repeat("the same paragraph over and over\n\n", 12)
	chunks, err := s.Split(models.FileRecord{Name: "dup.txt", Extension: ".txt", Content: content})
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want several", len(chunks))
	}
	prev := -1
	for i, c := range chunks {
		if c.StartOffset <= prev {
			t.Errorf("chunk %d offset %d not after previous offset %d", i, c.StartOffset, prev)
		}
		prev = c.StartOffset
	}
}
