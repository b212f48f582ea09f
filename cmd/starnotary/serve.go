package main

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gin-gonic/gin"
	"github.com/layer-3/starnotary/adapters/events"
	"github.com/layer-3/starnotary/adapters/ledger"
	"github.com/layer-3/starnotary/adapters/store"
	"github.com/layer-3/starnotary/adapters/tokenizer"
	"github.com/layer-3/starnotary/adapters/verifier"
	"github.com/layer-3/starnotary/config"
	"github.com/layer-3/starnotary/core"
	"github.com/layer-3/starnotary/logging"
	"github.com/layer-3/starnotary/ports"
	"github.com/layer-3/starnotary/service"
	transport "github.com/layer-3/starnotary/transport/http"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	cfg := config.Load()
	var windowSeconds int64

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("validation-window") {
				cfg.ValidationWindow = time.Duration(windowSeconds) * time.Second
			}
			return runServer(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	flags.StringVar(&cfg.RedisURL, "redis-url", cfg.RedisURL, "redis URL for state and events; empty keeps them in memory")
	flags.StringVar(&cfg.LedgerPath, "ledger", cfg.LedgerPath, "sqlite ledger path; empty keeps the chain in memory")
	flags.Int64Var(&windowSeconds, "validation-window", int64(cfg.ValidationWindow/time.Second), "challenge validation window in seconds")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	flags.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "text or json")
	flags.StringVar(&cfg.AdminKeyFile, "admin-key", cfg.AdminKeyFile, "PEM P-256 key signing operator tokens")

	return cmd
}

func runServer(ctx context.Context, cfg config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)
	wmLogger := watermill.NewSlogLogger(logger)

	window := core.NewWindow(cfg.ValidationWindow)
	if window.Seconds() < 1 {
		return core.ErrInvalidWindow
	}

	var (
		stateStore ports.StateStore
		publisher  message.Publisher
	)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to parse redis URL: %w", err)
		}
		redisClient := redis.NewClient(opts)
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to reach redis: %w", err)
		}
		stateStore = store.NewRedisStore(redisClient)

		publisher, err = redisstream.NewPublisher(
			redisstream.PublisherConfig{
				Client: redisClient,
			},
			wmLogger,
		)
		if err != nil {
			return fmt.Errorf("failed to create redis publisher: %w", err)
		}
	} else {
		logger.Warn("REDIS_URL not set, keeping registration state in memory")
		stateStore = store.NewMemoryStore()
		publisher = gochannel.NewGoChannel(gochannel.Config{}, wmLogger)
	}
	defer publisher.Close()

	var chain ports.Ledger
	if cfg.LedgerPath != "" {
		l, err := ledger.OpenSQLiteLedger(ctx, cfg.LedgerPath, nil)
		if err != nil {
			return fmt.Errorf("failed to open ledger: %w", err)
		}
		defer l.Close()
		chain = l
	} else {
		l, err := ledger.NewMemoryLedger(nil)
		if err != nil {
			return err
		}
		chain = l
	}

	adminKey, err := loadOrGenerateAdminKey(cfg.AdminKeyFile)
	if err != nil {
		return err
	}
	tok := tokenizer.NewJWTTokenizer(adminKey, cfg.AdminTokenTTL)
	if cfg.AdminKeyFile == "" {
		token, err := tok.IssueAdminToken("local-operator")
		if err != nil {
			return err
		}
		logger.Warn("no admin key configured, using an ephemeral one", "admin_token", token)
	}

	registry := service.NewRegistryService(
		stateStore,
		chain,
		verifier.NewEthVerifier(),
		events.NewWatermillPublisher(publisher, cfg.EventTopicPrefix),
		window,
		service.WithLogger(logger),
	)

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           transport.SetupRouter(registry, tok, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starnotary listening", "addr", cfg.Addr, "validation_window", window.Seconds())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func loadOrGenerateAdminKey(path string) (*ecdsa.PrivateKey, error) {
	if path == "" {
		return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	}
	return readAdminKey(path)
}
