package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/askdocs/askdocs/internal/ai"
	"github.com/askdocs/askdocs/internal/chunker"
	"github.com/askdocs/askdocs/internal/config"
	"github.com/askdocs/askdocs/internal/crew"
	"github.com/askdocs/askdocs/internal/embedcache"
	"github.com/askdocs/askdocs/internal/filestore"
	"github.com/askdocs/askdocs/internal/handler"
	"github.com/askdocs/askdocs/internal/job"
	"github.com/askdocs/askdocs/internal/middleware"
	"github.com/askdocs/askdocs/internal/schedule"
	"github.com/askdocs/askdocs/internal/service"
	"github.com/askdocs/askdocs/internal/store"
)

const (
	serviceName = "askdocs"
	version     = "2.0.0"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "askdocs",
		Short: "askdocs document indexing and question answering server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run askdocs server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))
			return runServer(cfg)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config) error {
	rootLogger := logutil.GetLogger(context.Background())
	rootLogger.Info("starting server",
		zap.Int("port", cfg.Port),
		zap.String("store", cfg.Store.Type),
		zap.String("ai_provider", cfg.AI.Provider),
	)

	st, err := store.New(cfg.Store)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer st.Close()

	provider, err := ai.NewProvider(cfg.AI.Provider, cfg.AI.Data)
	if err != nil {
		return fmt.Errorf("init ai provider: %w", err)
	}
	generator := ai.NewGenerator(provider, cfg.AI.GenerateModel)
	embedProvider := provider
	if cfg.AI.EmbedProvider != "" {
		embedProvider, err = ai.NewProvider(cfg.AI.EmbedProvider, cfg.AI.EmbedData)
		if err != nil {
			return fmt.Errorf("init embed provider: %w", err)
		}
	}
	embedder := ai.NewEmbedder(embedProvider, cfg.AI.EmbedModel)
	if cached, ok := st.(embedcache.CacheStore); ok {
		embedder = embedcache.WrapStore(embedder, cached)
	}
	// LRU goes outermost so repeat lookups never touch the store layer
	embedder = embedcache.WrapLRU(embedder, cfg.AI.EmbedCacheSize, time.Duration(cfg.AI.EmbedCacheTTLMin)*time.Minute)

	var files filestore.Store
	if cfg.FileStore != nil {
		files, err = filestore.New(*cfg.FileStore)
		if err != nil {
			return fmt.Errorf("init file store: %w", err)
		}
	}

	splitter := chunker.New(cfg.Chunking)
	aiTimeout := time.Duration(cfg.AI.Timeout) * time.Second
	history := service.NewHistoryLog(cfg.History.Limit)

	documentService := service.NewDocumentService(st, splitter, embedder, files)
	queryService := service.NewQueryService(st, embedder, generator, cfg.Retrieval, aiTimeout, history)
	campaignService := service.NewCampaignService(crew.MarketingStages(generator), 4*aiTimeout)

	deps := handler.RouterDeps{
		Health:         handler.NewHealthHandler(st, documentService, serviceName, version),
		Documents:      handler.NewDocumentHandler(documentService),
		Queries:        handler.NewQueryHandler(queryService),
		Campaigns:      handler.NewCampaignHandler(campaignService),
		CampaignWindow: time.Duration(cfg.CampaignRL) * time.Second,
	}

	engine, err := webapi.NewEngine(
		cfg.APIPrefix,
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORSAllow),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewScheduler()
	if err := scheduler.AddJob(job.NewEmbeddingBackfillJob(st, embedder, cfg.Jobs.EmbeddingBackfillBatch), cfg.Jobs.EmbeddingBackfillSpec); err != nil {
		return err
	}
	if cleaner, ok := st.(interface {
		DeleteCachedEmbeddingsBefore(ctx context.Context, cutoff int64) (int64, error)
	}); ok {
		if err := scheduler.AddJob(job.NewCacheCleanupJob(cleaner, cfg.Jobs.CacheKeepDays), cfg.Jobs.CacheCleanupSpec); err != nil {
			return err
		}
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	rootLogger.Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))
	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			rootLogger.Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	rootLogger.Info("server stopping...")
	return nil
}
