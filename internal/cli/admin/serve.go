package admin

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/aeonisk/arbiter/internal/api/handlers"
	"github.com/aeonisk/arbiter/internal/config"
	"github.com/aeonisk/arbiter/internal/database"
	"github.com/aeonisk/arbiter/internal/game"
	"github.com/aeonisk/arbiter/internal/index"
	"github.com/aeonisk/arbiter/internal/jobs"
	"github.com/aeonisk/arbiter/internal/llm"
	"github.com/aeonisk/arbiter/internal/rag"
	"github.com/aeonisk/arbiter/internal/repository"
	"github.com/aeonisk/arbiter/internal/server"
	"github.com/aeonisk/arbiter/internal/service"
	"github.com/aeonisk/arbiter/internal/telemetry"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the arbiter API server on the specified port",
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
			log.Warn().Err(err).Msg("telemetry init failed (continuing without tracing)")
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Info().Msg("connected to database")

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	chunkRepo := repository.NewChunkRepository(pool)
	characterRepo := repository.NewCharacterRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	embeddingJobRepo := repository.NewEmbeddingJobRepository(pool)
	queryLogRepo := repository.NewQueryLogRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	source, err := contentSource(ctx, cfg)
	if err != nil {
		return err
	}

	var llmClient *llm.Client
	if cfg.HasLLM() {
		llmClient = llm.New(llm.Config{
			APIKey:         cfg.LLMAPIKey,
			BaseURL:        cfg.LLMBaseURL,
			ChatModel:      cfg.ChatModel,
			AnalysisModel:  cfg.AnalysisModelName(),
			EmbeddingModel: cfg.EmbeddingModel,
		})
		log.Info().Str("model", cfg.ChatModel).Msg("language model configured")
	}

	searchIndex := index.New(cfg.SearchThreshold)
	contentSvc := service.NewContentService(source, txRunner, chunkRepo, searchIndex, cfg.HasEmbeddings())
	if err := contentSvc.WarmUp(ctx); err != nil {
		return fmt.Errorf("failed to warm up search index: %w", err)
	}

	characterSvc := service.NewCharacterService(characterRepo)

	var embeddingWorker *jobs.Worker
	var retrieverOpts []rag.RetrieverOption
	if cfg.HasEmbeddings() {
		embeddingSvc := service.NewEmbeddingService(llmClient, chunkRepo)
		embeddingProcessor := jobs.NewEmbeddingWorker(embeddingJobRepo, embeddingSvc)
		embeddingWorker = jobs.NewWorker(embeddingProcessor, 10*time.Second)
		go embeddingWorker.Start(ctx)
		log.Info().Msg("embedding worker started")

		retrieverOpts = append(retrieverOpts, rag.WithSemanticSearch(embeddingSvc, llmClient))
	}
	retrieverOpts = append(retrieverOpts,
		rag.WithQueryLog(queryLogRepo),
		rag.WithTopN(cfg.RerankTopN),
	)

	var completer rag.Completer
	if llmClient != nil {
		completer = llmClient
	}
	analyzer := rag.NewAnalyzer(completer)
	retriever := rag.NewRetriever(searchIndex, analyzer, completer, retrieverOpts...)

	toolkit := game.NewToolkit(characterSvc, contentSvc, nil)

	var chatModel service.ChatModel
	if llmClient != nil {
		chatModel = llmClient
	}
	chatSvc := service.NewChatService(chatModel, retriever, toolkit, sessionRepo, characterSvc, cfg.MaxToolRounds)

	routerCfg := server.RouterConfig{
		AuthToken:        cfg.AuthToken,
		ChatHandler:      handlers.NewChatHandler(chatSvc),
		SearchHandler:    handlers.NewSearchHandler(retriever),
		ContentHandler:   handlers.NewContentHandler(contentSvc),
		CharacterHandler: handlers.NewCharacterHandler(characterSvc),
		RollHandler:      handlers.NewRollHandler(characterSvc, nil),
	}

	router := server.NewRouter(routerCfg)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down...")

	if embeddingWorker != nil {
		embeddingWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Msg("server exited")
	return nil
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
		log.Info().Msg("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Info().Uint("version", uint(version)).Msg("migrations: database is up to date")
	} else {
		log.Info().Uint("version", uint(version)).Msg("migrations: applied successfully")
	}

	return nil
}
