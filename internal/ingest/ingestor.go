// Package ingest turns a repository's three-part textual dump into an
// embedded, per-repository vector namespace: decode, materialize, chunk,
// embed, upsert.
package ingest

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gitcodebot/repoingest/internal/ai"
	"github.com/gitcodebot/repoingest/internal/chunker"
	"github.com/gitcodebot/repoingest/internal/dump"
	"github.com/gitcodebot/repoingest/internal/vectorstore"
	"github.com/gitcodebot/repoingest/pkg/models"
)

// State is the phase an ingestion run is in; Result reports the terminal
// one.
type State int

const (
	StateNotStarted State = iota
	StateFetchingDump
	StateDecoding
	StateChunking
	StateSkippedExisting
	StateUpserting
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateFetchingDump:
		return "fetching_dump"
	case StateDecoding:
		return "decoding"
	case StateChunking:
		return "chunking"
	case StateSkippedExisting:
		return "skipped_existing"
	case StateUpserting:
		return "upserting"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result summarizes one run.
type Result struct {
	State          State
	FilesDecoded   int
	FilesUpserted  int
	FilesFailed    int
	ChunksUpserted int
}

// lockTimeout bounds how long a run waits for another run on the same
// repository to finish its namespace check.
const lockTimeout = 2 * time.Minute

// Ingestor executes one repository's ingestion end to end.
type Ingestor struct {
	Job         models.Job
	Dump        dump.Provider
	Store       vectorstore.Store
	Embedder    ai.Client
	Splitter    *chunker.Splitter
	StagingRoot string
	// Workers caps concurrent file embedding; zero selects a CPU-based
	// default capped at 8.
	Workers int
}

// Run executes the pipeline. Fatal conditions (missing dump parts, zero
// decoded files, namespace creation failure, a canceled context) abort
// the run; a single file's materialization, chunking, embedding or upsert
// failure is logged and counted but does not fail the others.
func (ig *Ingestor) Run(ctx context.Context) (Result, error) {
	res := Result{State: StateFetchingDump}
	ns := ig.Job.Namespace()

	staging := NewStaging(ig.StagingRoot, ig.Job)
	if err := ig.fetchAndStage(ctx, staging); err != nil {
		res.State = StateFailed
		return res, err
	}

	lock := NewNamespaceLock(ig.StagingRoot, ns)
	if err := lock.Acquire(ctx, lockTimeout); err != nil {
		res.State = StateFailed
		return res, fmt.Errorf("locking namespace %s: %w", ns, err)
	}
	defer func() {
		if err := lock.Release(); err != nil {
			log.Warn().Err(err).Str("namespace", ns).Msg("releasing namespace lock")
		}
	}()

	res.State = StateDecoding
	records, declared, dropped, err := ig.decode(staging)
	if err != nil {
		res.State = StateFailed
		return res, err
	}
	res.FilesDecoded = len(records)
	res.FilesFailed = dropped
	staging.VerifySources(records, declared)

	res.State = StateChunking

	info, err := ig.Store.Namespace(ctx, ns)
	if err != nil {
		res.State = StateFailed
		return res, fmt.Errorf("checking namespace %s: %w", ns, err)
	}
	if info.Exists && info.Points > 0 {
		log.Info().Str("namespace", ns).Uint64("points", info.Points).
			Msg("namespace already populated, skipping ingestion")
		res.State = StateSkippedExisting
		return res, nil
	}

	if err := ig.Store.CreateNamespace(ctx, ns, ig.Embedder.Dim()); err != nil {
		res.State = StateFailed
		return res, fmt.Errorf("%w: %s: %v", ErrNamespaceCreation, ns, err)
	}

	res.State = StateUpserting
	upserted, failed, chunks, err := ig.embedAndUpsert(ctx, ns, records)
	res.FilesUpserted = upserted
	res.FilesFailed += failed
	res.ChunksUpserted = chunks
	if err != nil {
		res.State = StateFailed
		return res, fmt.Errorf("upserting namespace %s: %w", ns, err)
	}

	res.State = StateDone
	log.Info().Str("namespace", ns).
		Int("files_decoded", res.FilesDecoded).
		Int("files_upserted", res.FilesUpserted).
		Int("files_failed", res.FilesFailed).
		Int("chunks", res.ChunksUpserted).
		Msg("ingestion complete")
	return res, nil
}

// fetchAndStage retrieves the dump and persists its three parts.
func (ig *Ingestor) fetchAndStage(ctx context.Context, staging *Staging) error {
	d, err := ig.Dump.Fetch(ctx, ig.Job.URL())
	if err != nil {
		return fmt.Errorf("%w: fetching dump for %s: %v", ErrSourceUnavailable, ig.Job.URL(), err)
	}
	parts := map[string]string{
		SummaryFile: d.Summary,
		TreeFile:    d.Tree,
		ContentFile: d.Content,
	}
	for name, content := range parts {
		if err := staging.WriteDumpPart(name, content); err != nil {
			return err
		}
	}
	return nil
}

// decode demuxes the staged content dump into per-file records,
// materializing each body under the staging area, and decodes the tree
// listing for the verification pass. A file whose body cannot be written
// is dropped and counted, not fatal: the remaining blocks still decode.
func (ig *Ingestor) decode(staging *Staging) (map[string]models.FileRecord, []string, int, error) {
	records := map[string]models.FileRecord{}
	dropped := 0

	emitted, err := DemuxContentFile(staging.ContentPath(), func(name string, body []string) error {
		path, ext, err := staging.Materialize(name, body)
		if err != nil {
			log.Error().Err(err).Str("file", name).Msg("materialization failed, dropping file")
			dropped++
			return nil
		}
		records[name] = models.FileRecord{
			Name:        name,
			Extension:   ext,
			StoragePath: path,
		}
		return nil
	})
	if err != nil {
		return nil, nil, dropped, err
	}
	if len(records) == 0 {
		return nil, nil, dropped, fmt.Errorf("%w: %s", ErrNoFilesDecoded, ig.Job.URL())
	}
	log.Debug().Int("blocks", emitted).Int("files", len(records)).Msg("content dump decoded")

	var declared []string
	if tree, err := staging.ReadDumpPart(TreeFile); err == nil {
		declared = DecodeTree(tree)
	} else {
		log.Warn().Err(err).Msg("tree listing unavailable, skipping reconciliation")
	}
	return records, declared, dropped, nil
}

// embedAndUpsert runs the per-file pipeline over a bounded worker pool.
// All chunks of one file go to the store as a single batch. A canceled or
// expired context stops the feed and returns the context error so the run
// terminates as failed rather than as a quiet partial success.
func (ig *Ingestor) embedAndUpsert(ctx context.Context, ns string, records map[string]models.FileRecord) (upserted, failed, chunks int, err error) {
	numWorkers := ig.Workers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
		if numWorkers > 8 {
			numWorkers = 8
		}
	}
	log.Info().Int("workers", numWorkers).Int("files", len(records)).Msg("embedding and upserting files")

	workChan := make(chan models.FileRecord, numWorkers*2)

	var okCount, failCount, chunkCount atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rec := range workChan {
				n, err := ig.processFile(ctx, ns, rec)
				if err != nil {
					log.Error().Err(err).Str("file", rec.Name).Msg("file ingestion failed")
					failCount.Add(1)
					continue
				}
				okCount.Add(1)
				chunkCount.Add(int64(n))
			}
		}()
	}

	for _, rec := range records {
		select {
		case workChan <- rec:
		case <-ctx.Done():
			close(workChan)
			wg.Wait()
			return int(okCount.Load()), int(failCount.Load()), int(chunkCount.Load()), ctx.Err()
		}
	}
	close(workChan)
	wg.Wait()

	return int(okCount.Load()), int(failCount.Load()), int(chunkCount.Load()), ctx.Err()
}

// processFile chunks, embeds and upserts one file. Returns the number of
// chunks stored.
func (ig *Ingestor) processFile(ctx context.Context, ns string, rec models.FileRecord) (int, error) {
	cks, err := ig.Splitter.Split(rec)
	if err != nil {
		return 0, err
	}
	if len(cks) == 0 {
		return 0, nil
	}

	texts := make([]string, len(cks))
	for i, c := range cks {
		texts[i] = c.Content
	}
	vecs, err := ig.Embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embedding %s: %w", rec.Name, err)
	}
	if len(vecs) != len(cks) {
		return 0, fmt.Errorf("embedding %s: got %d vectors for %d chunks", rec.Name, len(vecs), len(cks))
	}

	docs := make([]vectorstore.Document, len(cks))
	for i, c := range cks {
		docs[i] = vectorstore.Document{
			ID:      uuid.NewString(),
			Content: c.Content,
			Vector:  vecs[i],
			Metadata: map[string]any{
				"file_name":    c.FileName,
				"path":         c.Path,
				"language":     c.Language,
				"start_offset": c.StartOffset,
			},
		}
	}
	if err := ig.Store.Upsert(ctx, ns, docs); err != nil {
		return 0, fmt.Errorf("upserting %s: %w", rec.Name, err)
	}
	return len(docs), nil
}
