// Package market serves SOL price, token prices and balances with tiered fallback.
//
// Prices are cached with three freshness bounds (SHORT, LONG, ULTRA) and a hardcoded
// default as the last resort. Refreshes run detached from the caller and are deduplicated
// per key, so a caller that gives up does not cancel the work or the cache write.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/AlexZinkM/custody-bot/internal/cache"
	"github.com/AlexZinkM/custody-bot/internal/client"
	"github.com/AlexZinkM/custody-bot/internal/metrics"
	"github.com/AlexZinkM/custody-bot/internal/model"

	"github.com/gagliardetto/solana-go"
	"golang.org/x/sync/singleflight"
)

const (
	solPriceKey    = "sol:price"
	tokenKeyPrefix = "token:"
)

// PriceSource quotes SOL in USD
type PriceSource interface {
	Name() string
	GetSOLPrice(ctx context.Context) (float64, error)
}

// TokenPriceSource quotes SPL tokens in USD
type TokenPriceSource interface {
	Name() string
	GetTokenPrice(ctx context.Context, address string) (*model.TokenPrice, error)
}

// RPCPool hands out RPC handles; *client.Pool implements it
type RPCPool interface {
	Get() client.RPC
	Fallback() client.RPC
}

// Config holds tier bounds and defaults
type Config struct {
	ShortTTL        time.Duration
	LongTTL         time.Duration
	UltraTTL        time.Duration
	DefaultSOLPrice float64
	DefaultBalance  float64
	Timeout         time.Duration // per upstream attempt
}

func DefaultConfig() Config {
	return Config{
		ShortTTL:        2 * time.Minute,
		LongTTL:         15 * time.Minute,
		UltraTTL:        60 * time.Minute,
		DefaultSOLPrice: 150,
		DefaultBalance:  0,
		Timeout:         10 * time.Second,
	}
}

// Deps are the upstreams of the service
type Deps struct {
	PriceSources  []PriceSource // raced
	TertiaryPrice PriceSource   // tried after the race and the LONG tier failed
	TokenSources  []TokenPriceSource
	Pool          RPCPool
	Store         cache.Store
}

type Service struct {
	cfg  Config
	deps Deps

	group singleflight.Group
	now   func() time.Time
	log   *slog.Logger
}

// Option configures a Service
type Option func(*Service)

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(cfg Config, deps Deps, log *slog.Logger, opts ...Option) *Service {
	s := &Service{
		cfg:  cfg,
		deps: deps,
		now:  time.Now,
		log:  log.With("component", "market"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NativePrice returns the SOL price in USD. It never fails; see the package doc for tiers.
func (s *Service) NativePrice(ctx context.Context) float64 {
	entry, ok := s.load(ctx, solPriceKey)
	if ok && entry.Age(s.now()) < s.cfg.ShortTTL {
		if price, err := decodePrice(entry); err == nil {
			s.served(ctx, resourceSOLPrice, TierFresh)
			return price
		}
	}

	detached := context.WithoutCancel(ctx)
	ch := s.group.DoChan(solPriceKey, func() (any, error) {
		return s.refreshNativePrice(detached), nil
	})

	select {
	case r := <-ch:
		return r.Val.(float64)
	case <-ctx.Done():
		s.log.Debug("Caller stopped waiting for SOL price, refresh continues", "error", ctx.Err())
		if ok {
			if price, err := decodePrice(entry); err == nil {
				age := entry.Age(s.now())
				s.served(ctx, resourceSOLPrice, s.cachedTier(age), "age", age)
				return price
			}
		}
		s.served(ctx, resourceSOLPrice, TierDefault, "price", s.cfg.DefaultSOLPrice)
		return s.cfg.DefaultSOLPrice
	}
}

// cachedTier names a cached value served without a refresh result
func (s *Service) cachedTier(age time.Duration) Tier {
	switch {
	case age < s.cfg.ShortTTL:
		return TierFresh
	case age < s.cfg.LongTTL:
		return TierDegradedRecent
	case age < s.cfg.UltraTTL:
		return TierDegradedStale
	default:
		return TierLastKnown
	}
}

func (s *Service) refreshNativePrice(ctx context.Context) float64 {
	names := make([]string, len(s.deps.PriceSources))
	for i, src := range s.deps.PriceSources {
		names[i] = src.Name()
	}

	raceCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	price, source, err := race(raceCtx, names, func(ctx context.Context, i int) (float64, error) {
		return s.deps.PriceSources[i].GetSOLPrice(ctx)
	})
	cancel()
	if err == nil {
		s.storePrice(ctx, price)
		s.served(ctx, resourceSOLPrice, TierLive, "provider", source)
		return price
	}
	s.log.Warn("SOL price providers failed", "error", err)

	entry, ok := s.load(ctx, solPriceKey)
	cached, decodeErr := decodePrice(entry)
	ok = ok && decodeErr == nil
	age := entry.Age(s.now())

	if ok && age < s.cfg.LongTTL {
		s.served(ctx, resourceSOLPrice, TierDegradedRecent, "age", age)
		return cached
	}

	if s.deps.TertiaryPrice != nil {
		tctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
		price, err := s.deps.TertiaryPrice.GetSOLPrice(tctx)
		cancel()
		if err == nil {
			s.storePrice(ctx, price)
			s.served(ctx, resourceSOLPrice, TierLive, "provider", s.deps.TertiaryPrice.Name())
			return price
		}
		s.log.Warn("Tertiary SOL price provider failed", "provider", s.deps.TertiaryPrice.Name(), "error", err)
	}

	switch {
	case ok && age < s.cfg.UltraTTL:
		s.served(ctx, resourceSOLPrice, TierDegradedStale, "age", age)
		return cached
	case ok:
		s.served(ctx, resourceSOLPrice, TierLastKnown, "age", age)
		return cached
	default:
		s.served(ctx, resourceSOLPrice, TierDefault, "price", s.cfg.DefaultSOLPrice)
		return s.cfg.DefaultSOLPrice
	}
}

// TokenPrice returns the market snapshot of an SPL token. When no price is available it
// returns a zero-priced snapshot with on-chain metadata; only a metadata failure is an error.
func (s *Service) TokenPrice(ctx context.Context, address string) (*model.TokenPrice, error) {
	if _, err := solana.PublicKeyFromBase58(address); err != nil {
		return nil, fmt.Errorf("%w: %s", model.ErrInvalidAddress, address)
	}

	key := tokenKeyPrefix + address
	entry, ok := s.load(ctx, key)
	if ok && entry.Age(s.now()) < s.cfg.ShortTTL {
		if tp, err := decodeTokenPrice(entry); err == nil {
			s.served(ctx, resourceTokenPrice, TierFresh, "token", address)
			return tp, nil
		}
	}

	detached := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (any, error) {
		return s.refreshTokenPrice(detached, address)
	})

	select {
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		// shared between callers, hand out copies
		tp := *r.Val.(*model.TokenPrice)
		return &tp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Service) refreshTokenPrice(ctx context.Context, address string) (*model.TokenPrice, error) {
	key := tokenKeyPrefix + address
	names := make([]string, len(s.deps.TokenSources))
	for i, src := range s.deps.TokenSources {
		names[i] = src.Name()
	}

	raceCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	tp, source, err := race(raceCtx, names, func(ctx context.Context, i int) (*model.TokenPrice, error) {
		return s.deps.TokenSources[i].GetTokenPrice(ctx, address)
	})
	cancel()

	entry, ok := s.load(ctx, key)
	cached, decodeErr := decodeTokenPrice(entry)
	ok = ok && decodeErr == nil

	if err == nil {
		tp.TokenInfo.Address = address
		if ok {
			mergeInfo(&tp.TokenInfo, cached.TokenInfo)
		}
		s.store(ctx, key, tp)
		s.served(ctx, resourceTokenPrice, TierLive, "token", address, "provider", source)
		return tp, nil
	}
	s.log.Warn("Token price providers failed", "token", address, "error", err)

	if age := entry.Age(s.now()); ok && age < s.cfg.LongTTL {
		s.served(ctx, resourceTokenPrice, TierDegradedRecent, "token", address, "age", age)
		return cached, nil
	}

	info, err := s.tokenInfo(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to get token metadata: %w", err)
	}
	if ok {
		mergeInfo(info, cached.TokenInfo)
	}
	s.served(ctx, resourceTokenPrice, TierZeroPayload, "token", address)
	return &model.TokenPrice{TokenInfo: *info}, nil
}

// tokenInfo reads mint metadata from a pooled handle, retrying once on the fallback endpoint
func (s *Service) tokenInfo(ctx context.Context, address string) (*model.TokenInfo, error) {
	rctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	info, err := client.GetTokenInfo(rctx, s.deps.Pool.Get(), address)
	cancel()
	if err == nil {
		return info, nil
	}
	s.log.Warn("Token metadata query failed, retrying on fallback endpoint", "token", address, "error", err)
	metrics.RPCFailoverTotal.Inc()

	rctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	return client.GetTokenInfo(rctx, s.deps.Pool.Fallback(), address)
}

// Balance returns the SOL balance of address. It is never cached and never fails:
// after the pooled attempt and one fallback attempt it returns the configured default.
func (s *Service) Balance(ctx context.Context, address string) float64 {
	if _, err := solana.PublicKeyFromBase58(address); err != nil {
		s.log.Warn("Balance requested for invalid address", "address", address, "error", err)
		s.served(ctx, resourceBalance, TierDefault, "address", address)
		return s.cfg.DefaultBalance
	}

	rctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	balance, err := client.GetSOLBalance(rctx, s.deps.Pool.Get(), address)
	cancel()
	if err == nil {
		s.served(ctx, resourceBalance, TierLive, "address", address)
		return balance
	}
	s.log.Warn("Balance query failed, retrying on fallback endpoint", "address", address, "error", err)
	metrics.RPCFailoverTotal.Inc()

	rctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
	balance, err = client.GetSOLBalance(rctx, s.deps.Pool.Fallback(), address)
	cancel()
	if err == nil {
		s.served(ctx, resourceBalance, TierFallbackRPC, "address", address)
		return balance
	}

	s.served(ctx, resourceBalance, TierDefault, "address", address, "error", err)
	return s.cfg.DefaultBalance
}

func (s *Service) load(ctx context.Context, key string) (cache.Entry, bool) {
	e, ok, err := s.deps.Store.Get(ctx, key)
	if err != nil {
		s.log.Warn("Cache read failed", "key", key, "error", err)
		return cache.Entry{}, false
	}
	return e, ok
}

func (s *Service) store(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.log.Error("Failed to encode cache entry", "key", key, "error", err)
		return
	}
	if err := s.deps.Store.Set(ctx, key, cache.Entry{Data: data, UpdatedAt: s.now()}); err != nil {
		s.log.Warn("Cache write failed", "key", key, "error", err)
	}
}

func (s *Service) storePrice(ctx context.Context, price float64) {
	s.store(ctx, solPriceKey, price)
}

func decodePrice(e cache.Entry) (float64, error) {
	var price float64
	if err := json.Unmarshal(e.Data, &price); err != nil {
		return 0, err
	}
	return price, nil
}

func decodeTokenPrice(e cache.Entry) (*model.TokenPrice, error) {
	var tp model.TokenPrice
	if err := json.Unmarshal(e.Data, &tp); err != nil {
		return nil, err
	}
	return &tp, nil
}

// mergeInfo fills empty fields of dst from what an earlier response carried
func mergeInfo(dst *model.TokenInfo, prev model.TokenInfo) {
	if dst.Name == "" {
		dst.Name = prev.Name
	}
	if dst.Symbol == "" {
		dst.Symbol = prev.Symbol
	}
	if dst.Decimals == 0 {
		dst.Decimals = prev.Decimals
	}
	if dst.Supply == 0 {
		dst.Supply = prev.Supply
	}
}
