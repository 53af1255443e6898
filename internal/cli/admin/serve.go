package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/creditlens/creditlens/internal/api/handlers"
	"github.com/creditlens/creditlens/internal/config"
	"github.com/creditlens/creditlens/internal/domain"
	"github.com/creditlens/creditlens/internal/extract"
	"github.com/creditlens/creditlens/internal/index"
	"github.com/creditlens/creditlens/internal/jobs"
	"github.com/creditlens/creditlens/internal/openai"
	"github.com/creditlens/creditlens/internal/render"
	"github.com/creditlens/creditlens/internal/repository"
	"github.com/creditlens/creditlens/internal/server"
	"github.com/creditlens/creditlens/internal/service"
	"github.com/creditlens/creditlens/internal/storage"
	"github.com/creditlens/creditlens/internal/telemetry"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the creditlens API server and report worker on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	log.Println("connected to database")

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	if !cfg.HasOpenAI() {
		return fmt.Errorf("CREDITLENS_OPENAI_API_KEY is required: embeddings and completions have no fallback provider")
	}

	llmClient := openai.NewClientWithConfig(openai.Config{
		APIKey:              cfg.OpenAIAPIKey,
		EmbeddingModel:      cfg.EmbeddingModel,
		EmbeddingDimensions: cfg.EmbeddingDimensions,
		ChatModel:           cfg.ChatModel,
	})

	extractor := extract.NewExtractor()
	indexManager := index.NewManager(newIndexStore(cfg, pool, llmClient), extractor, cfg.CorpusDir)

	retriever := service.NewRetriever(indexManager)

	reportSvc, err := service.NewReportService(domain.DefaultQuestionBank(), retriever, llmClient, cfg.LLMTimeout)
	if err != nil {
		return fmt.Errorf("failed to create report service: %w", err)
	}

	sessionManager := service.NewSessionManager(retriever, llmClient, cfg.ChatHistoryLimit)

	artifactStore, err := newArtifactStore(ctx, cfg)
	if err != nil {
		return err
	}

	reportJobRepo := repository.NewReportJobRepository(pool)
	renderer := render.NewPDFRenderer()

	reportProcessor := jobs.NewReportWorker(reportJobRepo, indexManager, reportSvc, renderer, artifactStore)
	reportWorker := jobs.NewWorker(reportProcessor, cfg.WorkerPollInterval)
	go reportWorker.Start(ctx)
	log.Println("report worker started")

	// S3-backed storage can presign download URLs; the local store cannot, so
	// status responses fall back to the download route.
	linker, _ := artifactStore.(handlers.DownloadLinker)

	routerCfg := server.RouterConfig{
		ReportHandler: handlers.NewReportHandler(reportJobRepo, artifactStore, extractor, linker, cfg.UploadDir),
		ChatHandler:   handlers.NewChatHandler(sessionManager),
	}

	router := server.NewRouter(routerCfg)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	reportWorker.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// ArtifactStore is the storage surface the daemon needs: workers put rendered
// reports, the download endpoint gets them back.
type ArtifactStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// newArtifactStore picks S3-compatible storage when configured, the local
// report directory otherwise.
func newArtifactStore(ctx context.Context, cfg *config.Config) (ArtifactStore, error) {
	if cfg.HasS3() {
		s3Store, err := storage.NewS3Store(ctx, storage.S3StoreConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 store: %w", err)
		}
		if err := s3Store.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStore(cfg.ReportDir)
	if err != nil {
		return nil, err
	}
	log.Printf("storing report artifacts in %s", cfg.ReportDir)
	return localStore, nil
}

// newIndexStore picks the configured index backend.
func newIndexStore(cfg *config.Config, pool *pgxpool.Pool, embedder index.Embedder) index.Store {
	if cfg.IndexBackend == config.IndexBackendPostgres {
		return index.NewPgIndex(pool, cfg.IndexName, embedder)
	}
	return index.NewFileIndex(cfg.IndexPath, cfg.EmbeddingModel, embedder)
}

func runMigrations(databaseURL string) error {
	// Create a sql.DB connection for golang-migrate
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	// Create postgres driver instance
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	// Create migrate instance with file source
	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	// Run migrations
	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	// Get migration version and status
	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
