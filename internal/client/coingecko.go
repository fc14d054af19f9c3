package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/AlexZinkM/custody-bot/internal/common"
	"github.com/AlexZinkM/custody-bot/internal/model"
)

const (
	coingeckoAPI = "https://api.coingecko.com/api/v3"
)

// CoinGeckoClient client for CoinGecko API
type CoinGeckoClient struct {
	http *httpClient
}

// NewCoinGeckoClient creates a new CoinGecko client
func NewCoinGeckoClient(opts Options) *CoinGeckoClient {
	return &CoinGeckoClient{http: newHTTPClient("coingecko", coingeckoAPI, opts)}
}

func (c *CoinGeckoClient) Name() string { return "coingecko" }

// simplePriceResponse response from /simple/price
type simplePriceResponse struct {
	Solana struct {
		USD float64 `json:"usd"`
	} `json:"solana"`
}

// GetSOLPrice gets SOL to USD rate
func (c *CoinGeckoClient) GetSOLPrice(ctx context.Context) (float64, error) {
	var resp simplePriceResponse
	if err := c.http.getJSON(ctx, "simple_price", "/simple/price?ids=solana&vs_currencies=usd", &resp); err != nil {
		return 0, err
	}
	return validPrice(c.Name(), resp.Solana.USD)
}

// onchainPriceResponse response from /onchain/simple/networks/solana/token_price.
// Values are decimal strings keyed by token address and may be null.
type onchainPriceResponse struct {
	Data struct {
		Attributes struct {
			TokenPrices       map[string]*string `json:"token_prices"`
			MarketCapUSD      map[string]*string `json:"market_cap_usd"`
			TotalReserveInUSD map[string]*string `json:"total_reserve_in_usd"`
		} `json:"attributes"`
	} `json:"data"`
}

// GetTokenPrice gets the USD price, market cap and pool reserve of an SPL token
func (c *CoinGeckoClient) GetTokenPrice(ctx context.Context, address string) (*model.TokenPrice, error) {
	path := fmt.Sprintf("/onchain/simple/networks/solana/token_price/%s?include_market_cap=true&include_total_reserve_in_usd=true",
		url.PathEscape(address))

	var resp onchainPriceResponse
	if err := c.http.getJSON(ctx, "onchain_token_price", path, &resp); err != nil {
		return nil, err
	}

	attrs := resp.Data.Attributes
	priceStr := lookupCaseless(attrs.TokenPrices, address)
	if priceStr == nil {
		return nil, fmt.Errorf("%s: %w: no price for %s", c.Name(), ErrMalformedPayload, address)
	}
	price, err := common.ParsePrice(*priceStr)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", c.Name(), ErrMalformedPayload, err)
	}
	if _, err := validPrice(c.Name(), price); err != nil {
		return nil, err
	}

	out := &model.TokenPrice{
		Price:     price,
		TokenInfo: model.TokenInfo{Address: address},
	}
	if s := lookupCaseless(attrs.MarketCapUSD, address); s != nil {
		out.MarketCap, _ = common.ParsePrice(*s)
	}
	if s := lookupCaseless(attrs.TotalReserveInUSD, address); s != nil {
		out.Liquidity, _ = common.ParsePrice(*s)
	}
	return out, nil
}

// lookupCaseless finds address in m; CoinGecko may lowercase keys
func lookupCaseless(m map[string]*string, address string) *string {
	if v, ok := m[address]; ok {
		return v
	}
	for k, v := range m {
		if strings.EqualFold(k, address) {
			return v
		}
	}
	return nil
}
