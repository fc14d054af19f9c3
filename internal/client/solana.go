package client

import (
	"context"
	"fmt"

	"github.com/AlexZinkM/custody-bot/internal/common"
	"github.com/AlexZinkM/custody-bot/internal/model"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

const (
	// DefaultFallbackRPCURL is the well-known public endpoint used for one-shot retries
	DefaultFallbackRPCURL = "https://api.mainnet-beta.solana.com"
)

// RPC is the subset of *rpc.Client the service uses
type RPC interface {
	GetBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetBalanceResult, error)
	GetTokenSupply(ctx context.Context, mint solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetTokenSupplyResult, error)
}

// DialRPC creates a JSON-RPC handle for url. Dialing is lazy; no request is made.
func DialRPC(url string) RPC {
	return rpc.New(url)
}

// GetSOLBalance gets the SOL balance of address
func GetSOLBalance(ctx context.Context, c RPC, address string) (float64, error) {
	owner, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return 0, fmt.Errorf("invalid Solana address: %w", err)
	}

	metrics := observeRPC("getBalance")
	balance, err := c.GetBalance(ctx, owner, rpc.CommitmentConfirmed)
	metrics(err)
	if err != nil {
		return 0, fmt.Errorf("failed to get SOL balance: %w", err)
	}
	if balance == nil {
		return 0, fmt.Errorf("failed to get SOL balance: empty result")
	}
	return common.LamportsToFloat(balance.Value), nil
}

// GetTokenInfo gets decimals and supply of an SPL mint
func GetTokenInfo(ctx context.Context, c RPC, mint string) (*model.TokenInfo, error) {
	mintKey, err := solana.PublicKeyFromBase58(mint)
	if err != nil {
		return nil, fmt.Errorf("invalid token mint address: %w", err)
	}

	metrics := observeRPC("getTokenSupply")
	supply, err := c.GetTokenSupply(ctx, mintKey, rpc.CommitmentConfirmed)
	metrics(err)
	if err != nil {
		return nil, fmt.Errorf("failed to get token supply: %w", err)
	}
	if supply == nil || supply.Value == nil {
		return nil, fmt.Errorf("failed to get token supply: empty result")
	}

	amount, err := common.TokenAmountToFloat(supply.Value.Amount, supply.Value.Decimals)
	if err != nil {
		return nil, err
	}
	return &model.TokenInfo{
		Address:  mint,
		Decimals: supply.Value.Decimals,
		Supply:   amount,
	}, nil
}
