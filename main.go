package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bryan-buckman/blogfront/internal/api"
	"github.com/bryan-buckman/blogfront/internal/config"
	"github.com/bryan-buckman/blogfront/internal/images"
	"github.com/bryan-buckman/blogfront/internal/logging"
	"github.com/bryan-buckman/blogfront/internal/metrics"
	"github.com/bryan-buckman/blogfront/internal/notify"
	"github.com/bryan-buckman/blogfront/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

var (
	configPath string
	listenAddr string
)

var rootCmd = &cobra.Command{
	Use:          "blogfront",
	Short:        "Web frontend for the blog posts API",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return run(ctx)
	},
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.Flags().StringVar(&listenAddr, "addr", "", "listen address (overrides config)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if listenAddr != "" {
		cfg.ListenAddr = listenAddr
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	m := metrics.New()

	queue := notify.New(notify.WithDefaultLifetime(cfg.NotificationLifetime))
	unsubscribe := queue.Subscribe(func(ns []notify.Notification) {
		m.SetNotifications(len(ns))
	})
	defer unsubscribe()
	defer queue.Clear()

	client := api.New(cfg.APIURL,
		api.WithTimeout(cfg.RequestTimeout),
		api.WithLogger(logger.Named("api")),
		api.WithObserver(m.ObserveBackend),
	)

	srv, err := server.New(server.Deps{
		Backend:  client,
		Queue:    queue,
		Resolver: images.NewResolver(cfg.APIURL, cfg.AssetsPath),
		Logger:   logger,
		Metrics:  m,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	logger.Info("Using backend", zap.String("api_url", cfg.APIURL))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(cfg.ListenAddr)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
