package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/casewise/docintel/internal/config"
	"github.com/casewise/docintel/internal/core/ports"
	"github.com/casewise/docintel/internal/core/usecase"
	"github.com/casewise/docintel/internal/infrastructure/chunking"
	"github.com/casewise/docintel/internal/infrastructure/docai"
	"github.com/casewise/docintel/internal/infrastructure/queue/nats"
	"github.com/casewise/docintel/internal/infrastructure/repository/postgres"
	"github.com/casewise/docintel/internal/infrastructure/resilience"
	"github.com/casewise/docintel/internal/infrastructure/storage/localfs"
	"github.com/casewise/docintel/internal/infrastructure/textract"
)

type App struct {
	Config config.Config

	Ingest    ports.DocumentIngestor
	Documents ports.DocumentReader
	Queue     ports.ProcessingQueue
	Indexer   ports.ChunkIndexer
	Search    ports.SearchService
	Discovery ports.DiscoveryService
	Notifier  ports.QueueNotifier

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.Default()
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db, cfg.EmbedDim); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	docs := postgres.NewDocumentRepository(db)
	items := postgres.NewQueueRepository(db)
	chunks := postgres.NewChunkRepository(db)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	// Separate executors so a flapping model gateway cannot trip the NATS
	// breaker and vice versa.
	bus, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: resilience.NewExecutor(resilience.DefaultPolicy()),
	})
	if err != nil {
		return nil, fmt.Errorf("init queue notifier: %w", err)
	}

	gateway := docai.NewWithOptions(cfg.DocAIURL, cfg.DocAIGenModel, cfg.DocAIEmbedModel, docai.Options{
		Executor: resilience.NewExecutor(resilience.DefaultPolicy()),
	})
	classifier := docai.NewClassifier(gateway)
	embedder := docai.NewEmbedder(gateway)

	extractor := textract.New(storage)
	chunker := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)

	queueUC := usecase.NewQueueUseCase(items, docs, extractor, classifier, bus, log, usecase.QueueOptions{
		MaxAttempts:     cfg.QueueMaxAttempts,
		Backoff:         cfg.QueueBackoff,
		ReviewThreshold: cfg.ReviewThreshold,
	})
	ingestUC := usecase.NewIngestUseCase(docs, storage, queueUC)
	indexUC := usecase.NewIndexUseCase(docs, extractor, chunker, embedder, chunks, usecase.IndexOptions{
		MinTextRunes: cfg.IndexMinTextRunes,
	})
	searchUC := usecase.NewSearchUseCase(chunks, embedder, usecase.SearchOptions{
		DefaultLimit:         cfg.SearchDefaultLimit,
		MaxLimit:             cfg.SearchMaxLimit,
		DefaultMinSimilarity: cfg.SearchMinSimilarity,
		CandidateFactor:      cfg.SearchCandidateFactor,
	})

	matcher, err := usecase.NewMatcher()
	if err != nil {
		return nil, fmt.Errorf("load discovery lexicon: %w", err)
	}
	discoveryUC := usecase.NewDiscoveryUseCase(docs, matcher)

	return &App{
		Config: cfg,

		Ingest:    ingestUC,
		Documents: docs,
		Queue:     queueUC,
		Indexer:   indexUC,
		Search:    searchUC,
		Discovery: discoveryUC,
		Notifier:  bus,

		closeFn: func() {
			bus.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
