package admin

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/creditlens/creditlens/internal/config"
	"github.com/creditlens/creditlens/internal/domain"
	"github.com/creditlens/creditlens/internal/extract"
	"github.com/creditlens/creditlens/internal/index"
	"github.com/creditlens/creditlens/internal/openai"
)

// IndexCmd returns the index command group
func IndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Manage the corpus vector index",
	}

	cmd.AddCommand(indexBuildCmd())
	cmd.AddCommand(indexStatusCmd())

	return cmd
}

func indexBuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Rebuild the vector index from the corpus directory",
		Long:  "Re-extract every document in the corpus directory, embed the chunks, and overwrite the persisted index",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			env, err := newIndexEnv(ctx)
			if err != nil {
				return err
			}
			defer env.close()

			manager := index.NewManager(env.store, extract.NewExtractor(), env.cfg.CorpusDir)

			log.Printf("rebuilding %s index from %s", env.cfg.IndexBackend, env.cfg.CorpusDir)
			if err := manager.Rebuild(ctx); err != nil {
				return fmt.Errorf("index rebuild failed: %w", err)
			}

			fmt.Println("index rebuilt")
			return nil
		},
	}
}

func indexStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check whether a persisted index exists and is loadable",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			env, err := newIndexEnv(ctx)
			if err != nil {
				return err
			}
			defer env.close()

			switch err := env.store.Load(ctx); {
			case err == nil:
				fmt.Printf("index ok (backend: %s)\n", env.cfg.IndexBackend)
			case errors.Is(err, domain.ErrIndexNotFound):
				fmt.Println("index absent: it will be built on first use")
			default:
				return fmt.Errorf("index unusable: %w", err)
			}
			return nil
		},
	}
}

// indexEnv bundles the config, backend store, and connection cleanup the
// index subcommands share.
type indexEnv struct {
	cfg   *config.Config
	store index.Store
	close func()
}

func newIndexEnv(ctx context.Context) (*indexEnv, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if !cfg.HasOpenAI() {
		return nil, fmt.Errorf("CREDITLENS_OPENAI_API_KEY is required to embed the corpus")
	}

	pool, poolClose, err := openPool(ctx, cfg)
	if err != nil {
		return nil, err
	}

	llmClient := openai.NewClientWithConfig(openai.Config{
		APIKey:              cfg.OpenAIAPIKey,
		EmbeddingModel:      cfg.EmbeddingModel,
		EmbeddingDimensions: cfg.EmbeddingDimensions,
		ChatModel:           cfg.ChatModel,
	})

	return &indexEnv{
		cfg:   cfg,
		store: newIndexStore(cfg, pool, llmClient),
		close: poolClose,
	}, nil
}

// openPool connects to Postgres only when the index backend needs it.
func openPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, func(), error) {
	if cfg.IndexBackend != config.IndexBackendPostgres {
		return nil, func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, pool.Close, nil
}
