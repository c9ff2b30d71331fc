package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/iniduniaku/anon/internal/chat"
	"github.com/iniduniaku/anon/internal/config"
	"github.com/iniduniaku/anon/internal/geo"
	"github.com/iniduniaku/anon/internal/logging"
	"github.com/iniduniaku/anon/internal/server"
	"github.com/iniduniaku/anon/internal/upload"
)

const shutdownTimeout = 15 * time.Second

var (
	flagAddr      string
	flagUploadDir string
	flagRedisAddr string
)

var rootCmd = &cobra.Command{
	Use:   "anon-server",
	Short: "Anonymous one-on-one chat server",
	Long: `anon-server pairs anonymous visitors for ephemeral one-on-one text,
media, voice and video chat. Matching, message relay and call signaling run
over a single websocket per client; sessions vanish when either side leaves.`,
	RunE: run,
}

func init() {
	rootCmd.Flags().StringVar(&flagAddr, "addr", "", "HTTP listen address (default \":8080\")")
	rootCmd.Flags().StringVar(&flagUploadDir, "upload-dir", "", "directory for media uploads (default \"uploads\")")
	rootCmd.Flags().StringVar(&flagRedisAddr, "redis-addr", "", "Redis address for the geolocation cache (optional)")
}

func run(cmd *cobra.Command, args []string) error {
	logging.Init()
	logger := slog.Default()

	cfg, err := config.Load(config.Options{
		Addr:      flagAddr,
		UploadDir: flagUploadDir,
		RedisAddr: flagRedisAddr,
	})
	if err != nil {
		return err
	}

	// Geolocation cache: Redis when configured, in-process otherwise.
	var geoCache geo.Cache
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		geoCache = geo.NewRedisCache(client, cfg.GeoCacheTTL, logger)
		logger.Info("geolocation cache on redis", "addr", cfg.RedisAddr)
	} else {
		geoCache = geo.NewMemoryCache(cfg.GeoCacheTTL)
	}
	resolver := geo.NewResolver(geo.Config{BaseURL: cfg.GeoBaseURL}, geoCache, logger)

	uploads, err := upload.NewService(cfg.UploadDir, "/uploads", cfg.MaxUploadBytes, logger)
	if err != nil {
		return err
	}

	hub := chat.NewHub(resolver, logger)
	hubCtx, stopHub := context.WithCancel(context.Background())
	go hub.Run(hubCtx)

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: server.New(hub, uploads, logger).Routes(),
	}

	go func() {
		logger.Info("listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"http-server": func(ctx context.Context) error {
				return srv.Shutdown(ctx)
			},
			"chat-hub": func(ctx context.Context) error {
				stopHub()
				return nil
			},
		},
	)

	exitCode := <-wait
	logger.Info("server exited", "code", exitCode)
	os.Exit(exitCode)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
