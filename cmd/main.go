package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/docquery/docquery-backend/internal/clients/openai"
	"github.com/docquery/docquery-backend/internal/clients/redis"
	"github.com/docquery/docquery-backend/internal/config"
	"github.com/docquery/docquery-backend/internal/db"
	"github.com/docquery/docquery-backend/internal/handlers"
	"github.com/docquery/docquery-backend/internal/logger"
	"github.com/docquery/docquery-backend/internal/middleware"
	"github.com/docquery/docquery-backend/internal/observability"
	"github.com/docquery/docquery-backend/internal/repos"
	"github.com/docquery/docquery-backend/internal/server"
	"github.com/docquery/docquery-backend/internal/services"
	"github.com/docquery/docquery-backend/internal/splitter"
	"github.com/docquery/docquery-backend/internal/storage"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Config
	log.Info("Loading configuration from main...")
	cfg, err := config.Load(log)
	if err != nil {
		log.Fatal("Invalid configuration", "error", err)
	}

	// Tracing
	otelShutdown := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "docquery-backend",
		Environment: cfg.LogMode,
	})
	if otelShutdown != nil {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(ctx)
		}()
	}

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Postgres init failed", "error", err)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Fatal("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	userRepo := repos.NewUserRepo(thePG, log)
	projectRepo := repos.NewProjectRepo(thePG, log)
	projectUserRepo := repos.NewProjectUserRepo(thePG, log)
	documentRepo := repos.NewDocumentRepo(thePG, log)
	chunkRepo := repos.NewChunkRepo(thePG, log)
	vectorRepo := repos.NewVectorRepo(thePG, log)
	historyRepo := repos.NewHistoryRepo(thePG, log)

	// Blob store
	blobStore, err := storage.New(log)
	if err != nil {
		log.Fatal("Could not init blob store", "error", err)
	}

	// Clients
	openaiClient, err := openai.NewClient(log)
	if err != nil {
		log.Fatal("Could not init OpenAI client", "error", err)
	}
	embedCache, err := redis.NewEmbedCache(log)
	if err != nil {
		log.Warn("Embed cache disabled", "error", err)
		embedCache = nil
	}

	// Services
	log.Info("Setting up Services from main...")
	userService := services.NewUserService(log, userRepo)
	projectService := services.NewProjectService(thePG, log, projectRepo, projectUserRepo, blobStore)
	accessService := services.NewAccessService(log, projectUserRepo)
	historyService := services.NewHistoryService(log, historyRepo, cfg.HistoryWindow)
	documentService := services.NewDocumentService(thePG, log, cfg, projectRepo, documentRepo, blobStore)
	processService := services.NewProcessService(thePG, log, projectRepo, documentRepo, chunkRepo, vectorRepo, blobStore, splitter.NewCharacterSplitter(), openaiClient)
	queryService := services.NewQueryService(log, projectRepo, vectorRepo, accessService, historyService, openaiClient, embedCache)

	// Handlers
	log.Info("Setting up handlers from main...")
	projectHandler := handlers.NewProjectHandler(log, projectService)
	documentHandler := handlers.NewDocumentHandler(log, &cfg, documentService, processService)
	queryHandler := handlers.NewQueryHandler(log, &cfg, queryService)

	// Middleware
	log.Info("Setting up middleware from main...")
	identityMiddleware := middleware.NewIdentityMiddleware(log, userService)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		ProjectHandler:     projectHandler,
		DocumentHandler:    documentHandler,
		QueryHandler:       queryHandler,
		IdentityMiddleware: identityMiddleware,
	})

	fmt.Printf("Server listening on :%s\n", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatal("Server failed", "error", err)
	}
}
