package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/karrick/godirwalk"
	"github.com/rs/zerolog/log"

	"github.com/gitcodebot/repoingest/pkg/models"
)

// Names of the three dump parts persisted under the staging directory.
const (
	SummaryFile = "summary.txt"
	TreeFile    = "tree.txt"
	ContentFile = "content.txt"

	sourceDirName = "sourcefiles"
)

// Staging is the file-backed staging area for one repository:
// <root>/<owner>/<name>/{summary.txt, tree.txt, content.txt, sourcefiles/...}.
type Staging struct {
	root string
	job  models.Job
}

// NewStaging returns the staging area for a job. Nothing is created until
// the first write.
func NewStaging(root string, job models.Job) *Staging {
	return &Staging{root: root, job: job}
}

// Dir returns the per-repository staging directory.
func (s *Staging) Dir() string {
	return filepath.Join(s.root, s.job.Owner, s.job.Name)
}

// SourceDir returns the directory materialized file bodies are written to.
func (s *Staging) SourceDir() string {
	return filepath.Join(s.Dir(), sourceDirName)
}

// ContentPath returns the staged content dump path.
func (s *Staging) ContentPath() string {
	return filepath.Join(s.Dir(), ContentFile)
}

// WriteDumpPart persists one dump part (summary, tree or content),
// replacing any previous run's copy.
func (s *Staging) WriteDumpPart(name, content string) error {
	if err := os.MkdirAll(s.Dir(), 0o755); err != nil {
		return fmt.Errorf("creating staging dir: %w", err)
	}
	path := filepath.Join(s.Dir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

// ReadDumpPart reads a staged dump part. A missing part maps to
// ErrSourceUnavailable.
func (s *Staging) ReadDumpPart(name string) (string, error) {
	b, err := os.ReadFile(filepath.Join(s.Dir(), name))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrSourceUnavailable, name)
		}
		return "", fmt.Errorf("reading %s: %w", name, err)
	}
	return string(b), nil
}

// Materialize writes one decoded file's body lines under sourcefiles/,
// creating intermediate directories as needed. Repeated calls for the same
// logical name append, so partial content emitted across blocks still
// accumulates. Returns the storage path and the lower-cased extension
// (with leading dot; empty if none).
func (s *Staging) Materialize(logicalName string, body []string) (string, string, error) {
	path := filepath.Join(s.SourceDir(), filepath.FromSlash(logicalName))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", "", fmt.Errorf("creating directories for %s: %w", logicalName, err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return "", "", fmt.Errorf("opening %s: %w", logicalName, err)
	}
	defer f.Close()

	if _, err := f.WriteString(strings.Join(body, "\n") + "\n"); err != nil {
		return "", "", fmt.Errorf("writing %s: %w", logicalName, err)
	}

	ext := strings.ToLower(filepath.Ext(logicalName))
	return path, ext, nil
}

// VerifySources walks the materialized staging tree and reconciles it
// against the demuxer's records and the tree decoder's advisory file
// enumeration. Discrepancies are logged, never fatal: the demuxer is the
// source of truth for file boundaries and content.
func (s *Staging) VerifySources(records map[string]models.FileRecord, declared []string) {
	staged := map[string]bool{}
	err := godirwalk.Walk(s.SourceDir(), &godirwalk.Options{
		Unsorted: true,
		Callback: func(path string, de *godirwalk.Dirent) error {
			if de.IsDir() {
				return nil
			}
			rel, err := filepath.Rel(s.SourceDir(), path)
			if err != nil {
				return err
			}
			staged[filepath.ToSlash(rel)] = true
			return nil
		},
	})
	if err != nil {
		log.Warn().Err(err).Str("dir", s.SourceDir()).Msg("staging verification walk failed")
		return
	}

	for name := range records {
		if !staged[name] {
			log.Warn().Str("file", name).Msg("decoded file missing from staging area")
		}
	}
	for _, name := range declared {
		// Tree entries are rooted at "<owner>-<name>/"; records are not.
		trimmed := name
		if i := strings.Index(name, "/"); i >= 0 {
			trimmed = name[i+1:]
		}
		if _, ok := records[trimmed]; !ok {
			log.Debug().Str("file", name).Msg("tree-declared file absent from content dump")
		}
	}
}

// Clean removes the per-repository staging directory.
func (s *Staging) Clean() error {
	return os.RemoveAll(s.Dir())
}
