package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/lexassist/internal/config"
	"github.com/xxxsen/lexassist/internal/handler"
	"github.com/xxxsen/lexassist/internal/ingest"
	"github.com/xxxsen/lexassist/internal/job"
	"github.com/xxxsen/lexassist/internal/middleware"
	"github.com/xxxsen/lexassist/internal/pkg/jwt"
	"github.com/xxxsen/lexassist/internal/schedule"
)

var (
	configPath string
	envPath    string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "lexassist",
		Short: "legal document assistant backend",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.PersistentFlags().StringVar(&envPath, "env", "", "optional .env file")

	rootCmd.AddCommand(newRunCmd(), newAskCmd(), newIngestCmd(), newIndexCmd(), newTokenCmd())

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func loadConfig() (*config.Config, error) {
	if err := config.LoadEnvFile(envPath); err != nil {
		return nil, err
	}
	if configPath == "" {
		return nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
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
	return cfg, nil
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "run the http server and background jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			return runServer(a)
		},
	}
}

func runServer(a *app) error {
	cfg := a.cfg
	logger := logutil.GetLogger(context.Background())
	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	logger.Info("starting server",
		zap.Int("port", cfg.Port),
		zap.String("file_store", cfg.FileStore.Type),
		zap.String("language", cfg.Assistant.Language),
	)

	deps := handler.RouterDeps{
		Properties: handler.NewPropertiesHandler(handler.Properties{
			QuestionMinChars:  cfg.Assistant.QuestionMinChars,
			QuestionMaxChars:  cfg.Assistant.QuestionMaxChars,
			DefaultMaxSources: cfg.Assistant.DefaultMaxSources,
			MaxSourcesLimit:   cfg.Assistant.MaxSourcesLimit,
			Language:          cfg.Assistant.Language,
		}),
		Assistant: handler.NewAssistantHandler(a.orchestrator, a.telemetry, handler.AskLimits{
			QuestionMinChars: cfg.Assistant.QuestionMinChars,
			QuestionMaxChars: cfg.Assistant.QuestionMaxChars,
			MaxSourcesLimit:  cfg.Assistant.MaxSourcesLimit,
		}),
		Documents:       handler.NewDocumentHandler(a.documents),
		JWTSecret:       []byte(cfg.JWTSecret),
		RateLimitWindow: time.Duration(cfg.RateLimitWindow) * time.Second,
	}
	engine, err := webapi.NewEngine(
		"/api/v1",
		addr,
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORSAllowlist),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	if err := scheduler.AddJob(job.NewDocumentIndexJob(a.documents, cfg.Jobs.IndexBatch), cfg.Jobs.IndexSpec); err != nil {
		return fmt.Errorf("schedule document index: %w", err)
	}
	if err := scheduler.AddJob(job.NewEmbeddingCacheCleanupJob(a.embedCache, cfg.Jobs.EmbedCacheMaxAge), cfg.Jobs.EmbedCacheSpec); err != nil {
		return fmt.Errorf("schedule embedding cache cleanup: %w", err)
	}
	if err := scheduler.AddJob(job.NewTelemetryArchiveJob(a.telemetry, cfg.Telemetry.RetentionDays), cfg.Jobs.TelemetryArchiveSpec); err != nil {
		return fmt.Errorf("schedule telemetry archive: %w", err)
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	go func() {
		if err := engine.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			stop()
		}
	}()
	logger.Info("http server listening", zap.String("addr", addr), zap.Strings("jobs", scheduler.Jobs()))

	<-ctx.Done()
	logger.Info("server stopping...")
	return nil
}

func newAskCmd() *cobra.Command {
	var maxSources int
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "ask the legal assistant a question from the terminal",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			var ms *int
			if cmd.Flags().Changed("max-sources") {
				ms = &maxSources
			}
			q, err := handler.ValidateQuestion(strings.Join(args, " "), ms, handler.AskLimits{
				QuestionMinChars: cfg.Assistant.QuestionMinChars,
				QuestionMaxChars: cfg.Assistant.QuestionMaxChars,
				MaxSourcesLimit:  cfg.Assistant.MaxSourcesLimit,
			})
			if err != nil {
				return err
			}
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			q.UserID = "cli"

			answer, err := a.orchestrator.Answer(cmd.Context(), q)
			if err != nil {
				return err
			}
			title := color.New(color.FgCyan, color.Bold).SprintFunc()
			label := color.New(color.FgGreen, color.Bold).SprintFunc()
			faint := color.New(color.Faint).SprintFunc()
			fmt.Println(title("Answer"))
			fmt.Println(answer.Answer)
			fmt.Println()
			fmt.Println(title("Sources"))
			if len(answer.Sources) == 0 {
				fmt.Println(faint("(none)"))
			}
			for i, s := range answer.Sources {
				fmt.Printf("%s %s (%s) chunk %d  score %.3f\n", label(fmt.Sprintf("[Source %d]", i+1)), s.DocumentTitle, s.DocumentNumber, s.ChunkIndex, s.Score)
				fmt.Println(faint(s.Snippet))
			}
			fmt.Println(faint(fmt.Sprintf("%d ms", answer.ExecutionTimeMs)))
			return nil
		},
	}
	cmd.Flags().IntVar(&maxSources, "max-sources", 0, "number of sources to cite")
	return cmd
}

func newIngestCmd() *cobra.Command {
	var (
		dir   string
		watch bool
		index bool
	)
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "load markdown legal sources with front matter",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" {
				return fmt.Errorf("--dir is required")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			loader := ingest.NewLoader(a.documents)
			res, err := loader.LoadDir(ctx, dir)
			if err != nil {
				return err
			}
			fmt.Printf("changed=%d unchanged=%d failed=%d\n", res.Changed, res.Unchanged, res.Failed)
			if index {
				n, err := a.indexAll(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("indexed=%d\n", n)
			}
			if !watch {
				return nil
			}
			logutil.GetLogger(ctx).Info("watching legal sources", zap.String("dir", dir))
			return loader.Watch(ctx, dir, time.Second)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "directory of markdown files")
	cmd.Flags().BoolVar(&watch, "watch", false, "keep watching the directory for changes")
	cmd.Flags().BoolVar(&index, "index", false, "index changed documents right after loading")
	return cmd
}

func newIndexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "index every document whose chunks are stale",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			n, err := a.indexAll(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("indexed=%d\n", n)
			return nil
		},
	}
}

func newTokenCmd() *cobra.Command {
	var (
		userID string
		role   string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "mint a bearer token for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return fmt.Errorf("--user is required")
			}
			if role != jwt.RoleUser && role != jwt.RoleAdmin {
				return fmt.Errorf("--role must be %s or %s", jwt.RoleUser, jwt.RoleAdmin)
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = time.Duration(cfg.JWTTTLHours) * time.Hour
			}
			token, err := jwt.GenerateToken(userID, role, []byte(cfg.JWTSecret), ttl)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id")
	cmd.Flags().StringVar(&role, "role", jwt.RoleUser, "user or admin")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime, defaults to jwt_ttl_hours")
	return cmd
}
