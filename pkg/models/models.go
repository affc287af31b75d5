package models

// Terminal and intermediate job statuses written to the status store.
const (
	StatusIngesting      = "ingesting"
	StatusIngested       = "ingested"
	StatusFailedToIngest = "failed_to_ingest"
	StatusFailed         = "failed"
)

// Job identifies one ingestion run for a single repository.
type Job struct {
	Owner string `json:"owner"`
	Name  string `json:"name"`
}

// Namespace returns the per-repository vector-store namespace key.
func (j Job) Namespace() string {
	return j.Owner + "." + j.Name
}

// URL returns the canonical repository URL the status store is keyed on.
func (j Job) URL() string {
	return "https://github.com/" + j.Owner + "/" + j.Name
}

// FileRecord is one file decoded out of the content dump.
type FileRecord struct {
	// Name is the posix-style relative path exactly as it appeared in the dump.
	Name string `json:"name"`
	// Content is the newline-joined body of the file's block(s).
	Content string `json:"content"`
	// Extension is derived from Name, lower-cased with the leading dot;
	// empty when the name has no extension.
	Extension string `json:"extension"`
	// StoragePath is the absolute staging path assigned by the materializer.
	StoragePath string `json:"storage_path"`
}

// Chunk is a bounded, overlapping slice of one file's content prepared for
// embedding.
type Chunk struct {
	Content string `json:"content"`
	// FileName is the logical name of the file the chunk came from.
	FileName string `json:"file_name"`
	// Path is the namespace-relative path of the file.
	Path string `json:"path"`
	// Language the chunk was split as; "plaintext" for the fallback splitter.
	Language string `json:"language"`
	// StartOffset is the chunk's byte offset within the original content.
	// Offsets are monotonically non-decreasing across a file's chunks.
	StartOffset int `json:"start_offset"`
}
