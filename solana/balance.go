package solana

import (
	"context"

	"github.com/AlexZinkM/custody-bot/internal/model"
)

// GetBalance gets the SOL balance of address and its USD value
func (s *Service) GetBalance(ctx context.Context, address string) *model.BalanceResponse {
	sol := s.market.Balance(ctx, address)
	price := s.market.NativePrice(ctx)

	return &model.BalanceResponse{
		Address: address,
		SOL:     sol,
		USD:     sol * price,
	}
}
