package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"rebot/internal/config"
	"rebot/internal/export"
	"rebot/internal/handler"
	"rebot/internal/logger"
	"rebot/internal/navigation"
	"rebot/internal/provider"
	"rebot/internal/questions"
	"rebot/internal/repository"
	"rebot/internal/service"
	"rebot/internal/session"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var deferredMode string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if deferredMode != "" {
				cfg.Navigation.DeferredMode = deferredMode
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&deferredMode, "deferred-mode", "", "deferred navigation mode: chained or fixed_delay (overrides NAV_DEFERRED_MODE)")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	log, err := logger.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer log.Sync()

	log.Info("REbot chat service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit))

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mode, err := navigation.ParseMode(cfg.Navigation.DeferredMode)
	if err != nil {
		return err
	}

	gin.SetMode(cfg.Server.GinMode)

	var data provider.DataSource = provider.NewHTTPClient(&cfg.Providers, log)
	log.Info("✅ Data API client initialized", zap.String("base", cfg.Providers.BaseURL))

	deps := session.Deps{
		Navigation: navigation.CoordinatorConfig{
			Mode:        mode,
			SettleDelay: cfg.Navigation.SettleDelay,
			MaxWait:     cfg.Navigation.MaxWait,
		},
		Logger: log,
	}

	var repo *repository.PostgresRepository
	if cfg.PostgreSQL.Enabled {
		repo, err = repository.NewPostgresRepository(
			cfg.GetPostgreSQLDSN(),
			cfg.PostgreSQL.MaxConnections,
			cfg.PostgreSQL.MaxIdleConnections,
		)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer repo.Close()

		data = provider.NewEnriched(data, repo, cfg.PostgreSQL.SimilarLimit, log)
		deps.Activations = repo
		log.Info("✅ Connected to PostgreSQL property store")
	} else {
		log.Warn("⚠️  PostgreSQL is disabled - no stored listings, similar properties or activation log")
	}
	deps.Data = data

	switch cfg.Assistant.Backend {
	case config.BackendOpenAI:
		client := service.NewOpenAIClient(&cfg.OpenAI, log)
		deps.Assistant = service.NewOpenAIAssistant(client, cfg.Assistant.HistoryLimit, log)
	default:
		deps.Assistant = service.NewRemoteAssistant(cfg.Assistant.RemoteURL, cfg.Assistant.Timeout, log)
	}
	log.Info("✅ Assistant backend initialized", zap.String("backend", cfg.Assistant.Backend))

	asker := service.SystemAsker{Assistant: deps.Assistant}
	deps.Features = service.NewFeatureExtractor(asker, cfg.Assistant.Timeout, log)
	if cfg.Questions.Enabled {
		deps.Questions = questions.NewGenerator(asker, cfg.Questions.Timeout, log)
	} else {
		deps.Questions = questions.NewGenerator(nil, 0, log)
	}

	if cfg.Export.Enabled {
		exporter, err := export.NewFromConfig(ctx, &cfg.Export, log)
		if err != nil {
			return err
		}
		deps.Exporter = exporter
		log.Info("✅ Transcript export enabled", zap.String("bucket", cfg.Export.Bucket))
	}

	sessions := session.NewManager(deps, cfg.Session, log)
	defer sessions.Close()
	go sessions.Run(ctx)

	router := gin.New()
	router.Use(gin.Recovery(), handler.RequestLogger(log))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = splitList(cfg.Server.AllowedOrigins)
	corsConfig.AllowMethods = splitList(cfg.Server.AllowedMethods)
	corsConfig.AllowHeaders = splitList(cfg.Server.AllowedHeaders)
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":          "healthy",
			"service":         "rebot",
			"version":         Version,
			"build_time":      BuildTime,
			"git_commit":      GitCommit,
			"active_sessions": sessions.Len(),
		})
	})

	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	})

	apiV1 := router.Group("/api/v1")
	if cfg.RateLimit.Enabled {
		limiter := handler.NewRateLimiter(cfg.RateLimit)
		go limiter.Run(ctx)
		apiV1.Use(limiter.Middleware())
	}
	{
		handler.NewSessionHandler(sessions, log).Register(apiV1)
		handler.NewLinksHandler().Register(apiV1)
		if repo != nil {
			apiV1.POST("/embeddings/batch", handler.NewEmbeddingHandler(repo).BatchUpdate)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "API endpoint not found"})
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: router}

	errCh := make(chan error, 1)
	go func() {
		log.Info("🚀 Starting server", zap.String("addr", addr))
		log.Info("📝 API", zap.String("url", fmt.Sprintf("http://localhost:%d/api/v1", cfg.Server.Port)))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("🛑 Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("server shutdown did not complete", zap.Error(err))
	}
	log.Info("✅ Server stopped")
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
