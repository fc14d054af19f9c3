package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/AlexZinkM/custody-bot/internal/common"
	"github.com/AlexZinkM/custody-bot/internal/model"
)

const dexscreenerAPI = "https://api.dexscreener.com"

// DexScreenerClient reads DEX pair data for a token
type DexScreenerClient struct {
	http *httpClient
}

func NewDexScreenerClient(opts Options) *DexScreenerClient {
	return &DexScreenerClient{http: newHTTPClient("dexscreener", dexscreenerAPI, opts)}
}

func (c *DexScreenerClient) Name() string { return "dexscreener" }

type dexPair struct {
	ChainID   string `json:"chainId"`
	BaseToken struct {
		Address string `json:"address"`
		Name    string `json:"name"`
		Symbol  string `json:"symbol"`
	} `json:"baseToken"`
	PriceUSD  string  `json:"priceUsd"`
	MarketCap float64 `json:"marketCap"`
	FDV       float64 `json:"fdv"`
	Liquidity *struct {
		USD float64 `json:"usd"`
	} `json:"liquidity"`
}

type dexTokensResponse struct {
	Pairs []dexPair `json:"pairs"`
}

// GetTokenPrice returns the price of the most liquid Solana pair quoting address as base token
func (c *DexScreenerClient) GetTokenPrice(ctx context.Context, address string) (*model.TokenPrice, error) {
	var resp dexTokensResponse
	if err := c.http.getJSON(ctx, "tokens", "/latest/dex/tokens/"+url.PathEscape(address), &resp); err != nil {
		return nil, err
	}

	var best *dexPair
	for i := range resp.Pairs {
		p := &resp.Pairs[i]
		if p.ChainID != "solana" || !strings.EqualFold(p.BaseToken.Address, address) || p.PriceUSD == "" {
			continue
		}
		if best == nil || p.liquidityUSD() > best.liquidityUSD() {
			best = p
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%s: %w: no pairs for %s", c.Name(), ErrMalformedPayload, address)
	}

	price, err := common.ParsePrice(best.PriceUSD)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", c.Name(), ErrMalformedPayload, err)
	}
	if _, err := validPrice(c.Name(), price); err != nil {
		return nil, err
	}

	marketCap := best.MarketCap
	if marketCap == 0 {
		marketCap = best.FDV
	}
	return &model.TokenPrice{
		Price:     price,
		MarketCap: marketCap,
		Liquidity: best.liquidityUSD(),
		TokenInfo: model.TokenInfo{
			Address: address,
			Name:    best.BaseToken.Name,
			Symbol:  best.BaseToken.Symbol,
		},
	}, nil
}

func (p *dexPair) liquidityUSD() float64 {
	if p.Liquidity == nil {
		return 0
	}
	return p.Liquidity.USD
}
