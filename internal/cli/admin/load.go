package admin

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/aeonisk/arbiter/internal/config"
	"github.com/aeonisk/arbiter/internal/content"
	"github.com/aeonisk/arbiter/internal/database"
	"github.com/aeonisk/arbiter/internal/index"
	"github.com/aeonisk/arbiter/internal/repository"
	"github.com/aeonisk/arbiter/internal/service"
)

// LoadCmd returns the load command, an offline content ingestion that runs
// the same pipeline as POST /content/reload without starting the server.
func LoadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load rulebook content into the database",
		Long:  "Fetch, chunk and store the configured rulebook content, replacing the previous set",
		RunE:  runLoad,
	}

	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations")

	return cmd
}

func runLoad(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	source, err := contentSource(ctx, cfg)
	if err != nil {
		return err
	}

	contentSvc := service.NewContentService(
		source,
		repository.NewTxRunner(pool),
		repository.NewChunkRepository(pool),
		index.New(cfg.SearchThreshold),
		cfg.HasEmbeddings(),
	)

	result, err := contentSvc.Reload(ctx)
	if err != nil {
		return fmt.Errorf("failed to load content: %w", err)
	}

	fmt.Printf("loaded %d chunks from %d files (%d glossary terms, %d embedding jobs queued)\n",
		result.Chunks, result.Files, result.GlossaryTerms, result.JobsQueued)
	return nil
}

// contentSource picks the configured rulebook source: S3 bucket, HTTP base
// URL, or a local directory.
func contentSource(ctx context.Context, cfg *config.Config) (content.Source, error) {
	switch {
	case cfg.HasS3():
		source, err := content.NewS3Source(ctx, content.S3SourceConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			Prefix:          cfg.S3Prefix,
			UsePathStyle:    true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 content source: %w", err)
		}
		log.Info().Str("bucket", cfg.S3Bucket).Msg("using S3 content source")
		return source, nil
	case cfg.ContentBaseURL != "":
		log.Info().Str("base_url", cfg.ContentBaseURL).Msg("using HTTP content source")
		return content.NewHTTPSource(cfg.ContentBaseURL, content.DefaultRulebooks), nil
	case cfg.ContentDir != "":
		log.Info().Str("dir", cfg.ContentDir).Msg("using directory content source")
		return content.NewDirSource(cfg.ContentDir), nil
	default:
		return nil, fmt.Errorf("no content source configured (set ARBITER_CONTENT_DIR, ARBITER_CONTENT_BASE_URL or the S3 settings)")
	}
}
