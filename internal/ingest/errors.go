package ingest

import "errors"

var (
	// ErrSourceUnavailable indicates the dump (or one of its parts) could
	// not be fetched or found. The whole job fails with status "failed".
	ErrSourceUnavailable = errors.New("dump source unavailable")

	// ErrNoFilesDecoded indicates the demuxer produced zero records. The
	// job fails with status "failed_to_ingest".
	ErrNoFilesDecoded = errors.New("no files decoded from content dump")

	// ErrNamespaceCreation indicates the vector namespace could not be
	// created. The whole job fails.
	ErrNamespaceCreation = errors.New("namespace creation failed")
)
