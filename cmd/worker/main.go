package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/gitcodebot/repoingest/internal/ai"
	"github.com/gitcodebot/repoingest/internal/chunker"
	"github.com/gitcodebot/repoingest/internal/config"
	"github.com/gitcodebot/repoingest/internal/dump"
	"github.com/gitcodebot/repoingest/internal/gitmeta"
	"github.com/gitcodebot/repoingest/internal/ingest"
	"github.com/gitcodebot/repoingest/internal/queue"
	"github.com/gitcodebot/repoingest/internal/status"
	"github.com/gitcodebot/repoingest/internal/vectorstore"
	"github.com/gitcodebot/repoingest/pkg/models"
)

func main() {
	fs := pflag.NewFlagSet("repoingest-worker", pflag.ExitOnError)

	cfg, err := config.Load("", fs)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	fs.Usage = cfg.Usage

	// Set up logging
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Invalid log level '%s': %v", cfg.LogLevel, err)
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
	zlog.Logger = logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider := strings.ToLower(cfg.Provider)
	var clientConfig *ai.ClientConfig
	switch provider {
	case "openai":
		clientConfig = &ai.ClientConfig{
			APIKey:     cfg.APIKey,
			EmbedModel: cfg.EmbedModel,
			Dim:        cfg.Dim,
			ProjectID:  cfg.ProjectID,
			Provider:   ai.ProviderOpenAI,
		}
	case "vertexai":
		clientConfig = &ai.ClientConfig{
			APIKey:     cfg.APIKey,
			EmbedModel: cfg.EmbedModel,
			Dim:        cfg.Dim,
			ProjectID:  cfg.ProjectID,
			Location:   cfg.Location,
			Provider:   ai.ProviderVertexAI,
		}
	case "stub":
		clientConfig = &ai.ClientConfig{
			Dim:      cfg.Dim,
			Provider: ai.ProviderStub,
		}
	default:
		logger.Fatal().Str("provider", provider).Msg("unsupported provider")
	}

	embedder, err := ai.NewClient(ctx, clientConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("creating embedding client")
	}
	if embedder.Dim() == 0 {
		logger.Fatal().Msg("embedding dimension must be set")
	}

	table, err := chunker.LoadLanguageTable(cfg.LanguagesFile)
	if err != nil {
		logger.Warn().Err(err).Str("path", cfg.LanguagesFile).
			Msg("language table unavailable, using built-in defaults")
		table = chunker.DefaultLanguageTable()
	}
	splitter, err := chunker.NewSplitter(table, cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		logger.Fatal().Err(err).Msg("creating splitter")
	}

	store, err := vectorstore.New(ctx, vectorstore.Config{
		Provider:     vectorstore.Provider(cfg.VectorProvider),
		QdrantHost:   cfg.QdrantHost,
		QdrantPort:   cfg.QdrantPort,
		QdrantAPIKey: cfg.QdrantAPIKey,
		QdrantTLS:    cfg.QdrantTLS,
		DatabaseURL:  cfg.Database,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("connecting to vector store")
	}
	defer store.Close()

	statusStore, err := status.Connect(ctx, cfg.StatusURI)
	if err != nil {
		logger.Fatal().Err(err).Msg("connecting to status store")
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := statusStore.Close(closeCtx); err != nil {
			logger.Warn().Err(err).Msg("closing status store")
		}
	}()

	consumer, err := queue.Connect(cfg.QueueURL, cfg.QueueSubject, cfg.QueueGroup)
	if err != nil {
		logger.Fatal().Err(err).Msg("connecting to queue")
	}
	defer consumer.Close()

	meta := gitmeta.NewClient(cfg.GithubToken)
	dumps := dump.NewHTTPProvider(cfg.DumpBaseURL)

	logger.Info().Msg("worker ready, waiting for ingest requests")
	for {
		repoURL, err := consumer.Next(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				logger.Info().Msg("shutting down")
				return
			}
			logger.Error().Err(err).Msg("receiving from queue")
			continue
		}

		handle(ctx, logger, repoURL, meta, dumps, store, embedder, splitter, statusStore, cfg)
	}
}

// handle runs one ingest request end to end and records its terminal
// status.
func handle(
	ctx context.Context,
	logger zerolog.Logger,
	repoURL string,
	meta *gitmeta.Client,
	provider dump.Provider,
	store vectorstore.Store,
	embedder ai.Client,
	splitter *chunker.Splitter,
	statusStore *status.Store,
	cfg config.Specification,
) {
	owner, name, err := gitmeta.ParseRepoURL(repoURL)
	if err != nil {
		logger.Error().Err(err).Str("url", repoURL).Msg("rejecting unparseable repository URL")
		if uerr := statusStore.Update(ctx, repoURL, models.StatusFailed, false); uerr != nil {
			logger.Error().Err(uerr).Str("url", repoURL).Msg("recording status")
		}
		return
	}
	job := models.Job{Owner: owner, Name: name}

	if info, err := meta.RepoInfo(ctx, owner, name); err != nil {
		logger.Warn().Err(err).Str("repo", owner+"/"+name).Msg("repository metadata unavailable")
	} else {
		logger.Info().Str("repo", owner+"/"+name).
			Str("branch", info.DefaultBranch).
			Int("size_kb", info.SizeKB).
			Msg("starting ingestion")
	}

	if err := statusStore.MarkIngesting(ctx, job.URL()); err != nil {
		logger.Error().Err(err).Str("url", job.URL()).Msg("recording status")
	}

	ig := &ingest.Ingestor{
		Job:         job,
		Dump:        provider,
		Store:       store,
		Embedder:    embedder,
		Splitter:    splitter,
		StagingRoot: cfg.StagingRoot,
		Workers:     cfg.Workers,
	}
	res, err := ig.Run(ctx)

	final := models.StatusIngested
	available := true
	switch {
	case errors.Is(err, ingest.ErrNoFilesDecoded):
		final = models.StatusFailedToIngest
		available = false
	case err != nil:
		final = models.StatusFailed
		available = false
	}
	if err != nil {
		logger.Error().Err(err).Str("url", job.URL()).Str("state", res.State.String()).
			Msg("ingestion failed")
	}

	if uerr := statusStore.Update(ctx, job.URL(), final, available); uerr != nil {
		logger.Error().Err(uerr).Str("url", job.URL()).Msg("recording final status")
	}
}
