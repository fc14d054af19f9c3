package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/AlexZinkM/custody-bot/internal/model"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"golang.org/x/term"
)

const (
	// DevEncryptionKey is substituted for an empty ENCRYPTION_KEY outside production
	DevEncryptionKey = "custody-bot-development-key-do-not-use"

	// EnvPlaceholder is the value `walletctl genkey` replaces in .env
	EnvPlaceholder = "replace_with_generated_key"

	envProduction = "production"
)

// Config contains all configuration parameters for the application.
type Config struct {
	Port     string `envconfig:"PORT" default:"8080"`
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	EncryptionKey          string `envconfig:"ENCRYPTION_KEY"`
	StrictWalletGeneration bool   `envconfig:"STRICT_WALLET_GENERATION" default:"false"`

	SolanaRPCURLs        []string      `envconfig:"SOLANA_RPC_URLS" default:"https://api.mainnet-beta.solana.com"`
	SolanaFallbackRPCURL string        `envconfig:"SOLANA_FALLBACK_RPC_URL" default:"https://api.mainnet-beta.solana.com"`
	RPCPoolSize          int           `envconfig:"RPC_POOL_SIZE" default:"5"`
	UpstreamTimeout      time.Duration `envconfig:"UPSTREAM_TIMEOUT" default:"10s"`
	ProviderRPS          float64       `envconfig:"PROVIDER_RPS" default:"5"`

	RateLimitMaxRequests int           `envconfig:"RATE_LIMIT_MAX_REQUESTS" default:"5"`
	RateLimitWindow      time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"5s"`
	RateLimitCooldown    time.Duration `envconfig:"RATE_LIMIT_COOLDOWN" default:"3s"`
	RateLimitMaxUsers    int           `envconfig:"RATE_LIMIT_MAX_USERS" default:"100000"`

	CacheShortTTL   time.Duration `envconfig:"CACHE_SHORT_TTL" default:"2m"`
	CacheLongTTL    time.Duration `envconfig:"CACHE_LONG_TTL" default:"15m"`
	CacheUltraTTL   time.Duration `envconfig:"CACHE_ULTRA_TTL" default:"60m"`
	DefaultSOLPrice float64       `envconfig:"DEFAULT_SOL_PRICE" default:"150"`
	DefaultBalance  float64       `envconfig:"DEFAULT_BALANCE" default:"0"`
	TokenCacheSize  int           `envconfig:"TOKEN_CACHE_SIZE" default:"10000"`

	RedisURL      string `envconfig:"REDIS_URL"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	DatabaseURL   string `envconfig:"DATABASE_URL"`

	CoinGeckoAPIURL   string `envconfig:"COINGECKO_API_URL" default:"https://api.coingecko.com/api/v3"`
	BinanceAPIURL     string `envconfig:"BINANCE_API_URL" default:"https://api.binance.com"`
	JupiterAPIURL     string `envconfig:"JUPITER_API_URL" default:"https://api.jup.ag"`
	DexScreenerAPIURL string `envconfig:"DEXSCREENER_API_URL" default:"https://api.dexscreener.com"`
}

// cfg is the global configuration instance
var cfg *Config

// Init loads .env (if present) and configuration from environment variables.
func Init() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	c, err := Load()
	if err != nil {
		return err
	}
	cfg = c
	return nil
}

// Load processes the environment into a new validated Config without touching the global.
func Load() (*Config, error) {
	c := &Config{}
	if err := envconfig.Process("", c); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Get returns the global configuration instance.
// Panics if Init() was not called.
func Get() *Config {
	if cfg == nil {
		panic("config not initialized, call Init() first")
	}
	return cfg
}

// IsProduction reports whether APP_ENV is production
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, envProduction)
}

// Validate checks the loaded values. A missing encryption key is fatal in production;
// elsewhere the development key is substituted with a warning.
func (c *Config) Validate() error {
	key := strings.TrimSpace(c.EncryptionKey)
	if key == EnvPlaceholder {
		return &model.ConfigurationError{Field: "ENCRYPTION_KEY", Message: "still set to the .env placeholder, run `walletctl genkey`"}
	}
	if key == "" {
		if c.IsProduction() {
			return &model.ConfigurationError{Field: "ENCRYPTION_KEY", Message: "must be set in production"}
		}
		slog.Warn("ENCRYPTION_KEY is not set, using the development key; secrets stored now are NOT protected",
			"app_env", c.AppEnv)
		key = DevEncryptionKey
	} else if key == DevEncryptionKey && c.IsProduction() {
		return &model.ConfigurationError{Field: "ENCRYPTION_KEY", Message: "development key is not allowed in production"}
	}
	c.EncryptionKey = key

	urls := c.SolanaRPCURLs[:0]
	for _, u := range c.SolanaRPCURLs {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	c.SolanaRPCURLs = urls
	if len(c.SolanaRPCURLs) == 0 {
		return &model.ConfigurationError{Field: "SOLANA_RPC_URLS", Message: "at least one endpoint is required"}
	}
	if c.RPCPoolSize <= 0 {
		return &model.ConfigurationError{Field: "RPC_POOL_SIZE", Message: "must be positive"}
	}
	if c.UpstreamTimeout <= 0 {
		return &model.ConfigurationError{Field: "UPSTREAM_TIMEOUT", Message: "must be positive"}
	}
	if c.ProviderRPS <= 0 {
		return &model.ConfigurationError{Field: "PROVIDER_RPS", Message: "must be positive"}
	}
	if c.RateLimitMaxRequests <= 0 || c.RateLimitWindow <= 0 || c.RateLimitCooldown < 0 {
		return &model.ConfigurationError{Field: "RATE_LIMIT_*", Message: "max requests and window must be positive, cooldown non-negative"}
	}
	if c.RateLimitMaxUsers <= 0 || c.TokenCacheSize <= 0 {
		return &model.ConfigurationError{Field: "RATE_LIMIT_MAX_USERS/TOKEN_CACHE_SIZE", Message: "must be positive"}
	}
	if !(c.CacheShortTTL > 0 && c.CacheShortTTL <= c.CacheLongTTL && c.CacheLongTTL <= c.CacheUltraTTL) {
		return &model.ConfigurationError{Field: "CACHE_*_TTL", Message: "tiers must satisfy 0 < short <= long <= ultra"}
	}
	return nil
}

// GetPort returns port from configuration
func GetPort() string {
	return Get().Port
}

// GetEncryptionKey returns the validated encryption secret
func GetEncryptionKey() string {
	return Get().EncryptionKey
}

// PromptForPassword reads a password from the terminal without echoing it.
// Caller must zero the returned slice after use.
func PromptForPassword(prompt string) ([]byte, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil, errors.New("stdin is not a terminal: run the command interactively to enter password")
	}
	fmt.Fprint(os.Stderr, prompt)
	defer fmt.Fprintln(os.Stderr)

	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	if len(raw) == 0 {
		return nil, errors.New("password cannot be empty")
	}
	return raw, nil
}
