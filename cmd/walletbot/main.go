package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/AlexZinkM/custody-bot/docs"
	"github.com/AlexZinkM/custody-bot/internal/api"
	"github.com/AlexZinkM/custody-bot/internal/cache"
	"github.com/AlexZinkM/custody-bot/internal/client"
	"github.com/AlexZinkM/custody-bot/internal/config"
	"github.com/AlexZinkM/custody-bot/internal/crypto"
	"github.com/AlexZinkM/custody-bot/internal/handler"
	"github.com/AlexZinkM/custody-bot/internal/logger"
	"github.com/AlexZinkM/custody-bot/internal/market"
	"github.com/AlexZinkM/custody-bot/internal/model"
	"github.com/AlexZinkM/custody-bot/internal/ratelimit"
	"github.com/AlexZinkM/custody-bot/internal/storage"
	"github.com/AlexZinkM/custody-bot/internal/storage/memory"
	"github.com/AlexZinkM/custody-bot/internal/storage/postgres"
	"github.com/AlexZinkM/custody-bot/internal/wallet"
	"github.com/AlexZinkM/custody-bot/solana"

	"github.com/redis/go-redis/v9"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := config.Init(); err != nil {
		if model.IsConfigurationError(err) {
			slog.Error("Invalid configuration", "error", err)
		} else {
			slog.Error("Failed to load config", "error", err)
		}
		os.Exit(1)
	}
	cfg := config.Get()

	log := logger.New(cfg.LogLevel)
	log.Info("Logger initialized", "level", cfg.LogLevel, "app_env", cfg.AppEnv)

	if err := run(cfg, log); err != nil {
		log.Error("Server failed", "error", err)
		os.Exit(1)
	}
	log.Info("Server stopped gracefully")
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				log.Error("Failed to close resource", "error", err)
			}
		}
	}()

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		c, err := cache.NewRedisClient(ctx, cache.Config{URL: cfg.RedisURL, Password: cfg.RedisPassword})
		if err != nil {
			return err
		}
		rdb = c
		closers = append(closers, rdb)
		log.Info("Connected to Redis")
	}

	users, err := newUserStore(ctx, cfg, &closers)
	if err != nil {
		return fmt.Errorf("failed to initialize user store: %w", err)
	}

	vault, err := crypto.NewVault(config.GetEncryptionKey())
	if err != nil {
		return fmt.Errorf("failed to initialize vault: %w", err)
	}

	mkt, err := newMarket(cfg, rdb, log, &closers)
	if err != nil {
		return fmt.Errorf("failed to initialize market data: %w", err)
	}

	policy := ratelimit.Policy{
		MaxRequests: cfg.RateLimitMaxRequests,
		Window:      cfg.RateLimitWindow,
		Cooldown:    cfg.RateLimitCooldown,
	}
	var limitStore ratelimit.Store = ratelimit.NewMemoryStore(cfg.RateLimitMaxUsers, policy)
	if rdb != nil {
		limitStore = ratelimit.NewRedisStore(rdb)
	}
	limiter := ratelimit.New(limitStore, policy, log)

	wallets := wallet.NewManager(users, vault, log, wallet.WithStrictGeneration(cfg.StrictWalletGeneration))
	svc := solana.NewService(users, vault, wallets, mkt, limiter, log)

	srv := &http.Server{
		Addr:              ":" + config.GetPort(),
		Handler:           api.SetupRouter(handler.NewSolanaHandler(svc, log)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}
	log.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newUserStore(ctx context.Context, cfg *config.Config, closers *[]io.Closer) (storage.UserStore, error) {
	if cfg.DatabaseURL == "" {
		slog.Warn("DATABASE_URL is not set, users are kept in memory and lost on restart")
		return memory.NewUserStore(), nil
	}

	store, err := postgres.NewUserStore(ctx, postgres.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return nil, err
	}
	*closers = append(*closers, store)
	return store, nil
}

func newMarket(cfg *config.Config, rdb *redis.Client, log *slog.Logger, closers *[]io.Closer) (*market.Service, error) {
	opts := func(baseURL string) client.Options {
		return client.Options{BaseURL: baseURL, Timeout: cfg.UpstreamTimeout, RPS: cfg.ProviderRPS}
	}
	coingecko := client.NewCoinGeckoClient(opts(cfg.CoinGeckoAPIURL))

	var prices cache.Store
	if rdb != nil {
		// entries older than ULTRA still serve the last-known tier
		prices = cache.NewRedisStore(rdb, 0)
	} else {
		mem, err := cache.NewMemoryStore(cfg.TokenCacheSize)
		if err != nil {
			return nil, err
		}
		prices = mem
	}

	pool := client.NewPool(cfg.SolanaRPCURLs, cfg.RPCPoolSize, cfg.SolanaFallbackRPCURL, client.DialRPC)
	*closers = append(*closers, pool)

	return market.NewService(market.Config{
		ShortTTL:        cfg.CacheShortTTL,
		LongTTL:         cfg.CacheLongTTL,
		UltraTTL:        cfg.CacheUltraTTL,
		DefaultSOLPrice: cfg.DefaultSOLPrice,
		DefaultBalance:  cfg.DefaultBalance,
		Timeout:         cfg.UpstreamTimeout,
	}, market.Deps{
		PriceSources: []market.PriceSource{
			coingecko,
			client.NewBinanceClient(opts(cfg.BinanceAPIURL)),
		},
		TertiaryPrice: client.NewJupiterClient(opts(cfg.JupiterAPIURL)),
		TokenSources: []market.TokenPriceSource{
			client.NewDexScreenerClient(opts(cfg.DexScreenerAPIURL)),
			coingecko,
		},
		Pool:  pool,
		Store: prices,
	}, log), nil
}
