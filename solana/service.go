// Package solana is the operations facade the UI layer talks to. It owns the wallet
// manager, market service and rate limiter so none of them reference each other.
package solana

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/AlexZinkM/custody-bot/internal/crypto"
	"github.com/AlexZinkM/custody-bot/internal/market"
	"github.com/AlexZinkM/custody-bot/internal/model"
	"github.com/AlexZinkM/custody-bot/internal/ratelimit"
	"github.com/AlexZinkM/custody-bot/internal/storage"
	"github.com/AlexZinkM/custody-bot/internal/wallet"

	"golang.org/x/sync/singleflight"
)

// Service composes the custody core
type Service struct {
	store   storage.UserStore
	vault   *crypto.Vault
	wallets *wallet.Manager
	market  *market.Service
	limiter *ratelimit.Limiter
	log     *slog.Logger

	repairs singleflight.Group // per user id
}

func NewService(
	store storage.UserStore,
	vault *crypto.Vault,
	wallets *wallet.Manager,
	market *market.Service,
	limiter *ratelimit.Limiter,
	log *slog.Logger,
) *Service {
	return &Service{
		store:   store,
		vault:   vault,
		wallets: wallets,
		market:  market,
		limiter: limiter,
		log:     log.With("component", "service"),
	}
}

// Wallets exposes the wallet manager for mutations
func (s *Service) Wallets() *wallet.Manager {
	return s.wallets
}

// User loads the record of id, or an empty one for a new user
func (s *Service) User(ctx context.Context, id string) (*model.User, error) {
	u, err := s.store.Load(ctx, id)
	if errors.Is(err, storage.ErrUserNotFound) {
		return &model.User{ID: id}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return u, nil
}

// RepairAndGetActiveWallet repairs the stored record of u (persisting any fix), copies it
// into u and returns its active wallet. Concurrent calls for one user share a single repair,
// which works on a fresh load so a record repaired meanwhile is not provisioned twice.
func (s *Service) RepairAndGetActiveWallet(ctx context.Context, u *model.User) (*model.Wallet, error) {
	v, err, _ := s.repairs.Do(u.ID, func() (any, error) {
		fresh, err := s.User(ctx, u.ID)
		if err != nil {
			return nil, err
		}
		if _, err := s.wallets.Repair(ctx, fresh); err != nil {
			return nil, err
		}
		return fresh, nil
	})
	if err != nil {
		return nil, err
	}

	// shared between callers, hand out copies
	*u = *v.(*model.User).Clone()
	return wallet.ActiveWallet(u)
}

// NativePrice returns the SOL price in USD
func (s *Service) NativePrice(ctx context.Context) float64 {
	return s.market.NativePrice(ctx)
}

// TokenPrice returns the market snapshot of an SPL token
func (s *Service) TokenPrice(ctx context.Context, address string) (*model.TokenPrice, error) {
	return s.market.TokenPrice(ctx, address)
}

// Balance returns the SOL balance of address
func (s *Service) Balance(ctx context.Context, address string) float64 {
	return s.market.Balance(ctx, address)
}

// IsRateLimited reports whether the request of userID must be rejected
func (s *Service) IsRateLimited(ctx context.Context, userID string) bool {
	return s.limiter.IsRateLimited(ctx, userID)
}
