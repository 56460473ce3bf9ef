package bootstrap

import (
	"context"
	"fmt"

	"github.com/vlasenkov/knowledge-base/internal/config"
	"github.com/vlasenkov/knowledge-base/internal/core/domain"
	"github.com/vlasenkov/knowledge-base/internal/core/ports"
	"github.com/vlasenkov/knowledge-base/internal/core/usecase"
	"github.com/vlasenkov/knowledge-base/internal/infrastructure/chunking"
	"github.com/vlasenkov/knowledge-base/internal/infrastructure/embedding/ollama"
	"github.com/vlasenkov/knowledge-base/internal/infrastructure/extractor"
	"github.com/vlasenkov/knowledge-base/internal/infrastructure/extractor/pdf"
	"github.com/vlasenkov/knowledge-base/internal/infrastructure/extractor/plaintext"
	"github.com/vlasenkov/knowledge-base/internal/infrastructure/extractor/xlsx"
	"github.com/vlasenkov/knowledge-base/internal/infrastructure/queue/nats"
	"github.com/vlasenkov/knowledge-base/internal/infrastructure/repository/postgres"
	"github.com/vlasenkov/knowledge-base/internal/infrastructure/resilience"
	"github.com/vlasenkov/knowledge-base/internal/infrastructure/storage/localfs"
)

type App struct {
	Config config.Config

	Queue     ports.MessageQueue
	Documents ports.DocumentRepository
	Bases     ports.KnowledgeBaseRepository

	UploadUC  ports.DocumentUploader
	ProcessUC ports.DocumentProcessor
	SearchUC  ports.Searcher
	ManageUC  ports.KnowledgeBaseManager

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	documents := postgres.NewDocumentRepository(db)
	if err := documents.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	bases := postgres.NewKnowledgeBaseRepository(db, documents)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	embedder := ollama.NewEmbedder(ollama.New(cfg.OllamaURL, cfg.OllamaEmbedModel), executor)

	splitter := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	extractors := extractor.NewRegistry()
	textExtractor := plaintext.NewExtractor(storage, splitter)
	extractors.Register(domain.DocumentTypeText, textExtractor)
	extractors.Register(domain.DocumentTypeMarkdown, textExtractor)
	extractors.Register(domain.DocumentTypeHTML, textExtractor)
	extractors.Register(domain.DocumentTypePDF, pdf.NewExtractor(storage, splitter))
	extractors.Register(domain.DocumentTypeSpreadsheet, xlsx.NewExtractor(storage, splitter))

	uploadUC := usecase.NewUploadDocumentUseCase(documents, bases, storage, queue, queue)
	processUC := usecase.NewProcessDocumentUseCase(documents, bases, extractors, embedder)
	searchUC := usecase.NewSearchUseCase(bases, embedder)
	manageUC := usecase.NewManageKnowledgeBaseUseCase(bases)

	return &App{
		Config:    cfg,
		Queue:     queue,
		Documents: documents,
		Bases:     bases,

		UploadUC:  uploadUC,
		ProcessUC: processUC,
		SearchUC:  searchUC,
		ManageUC:  manageUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
