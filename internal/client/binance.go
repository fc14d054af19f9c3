package client

import (
	"context"
	"fmt"

	"github.com/AlexZinkM/custody-bot/internal/common"
)

const binanceAPI = "https://api.binance.com"

// BinanceClient reads the SOL/USDT spot ticker
type BinanceClient struct {
	http *httpClient
}

func NewBinanceClient(opts Options) *BinanceClient {
	return &BinanceClient{http: newHTTPClient("binance", binanceAPI, opts)}
}

func (c *BinanceClient) Name() string { return "binance" }

type tickerPriceResponse struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// GetSOLPrice gets the last SOLUSDT trade price
func (c *BinanceClient) GetSOLPrice(ctx context.Context) (float64, error) {
	var resp tickerPriceResponse
	if err := c.http.getJSON(ctx, "ticker_price", "/api/v3/ticker/price?symbol=SOLUSDT", &resp); err != nil {
		return 0, err
	}
	if resp.Symbol != "SOLUSDT" {
		return 0, fmt.Errorf("%s: %w: unexpected symbol %q", c.Name(), ErrMalformedPayload, resp.Symbol)
	}
	price, err := common.ParsePrice(resp.Price)
	if err != nil {
		return 0, fmt.Errorf("%s: %w: %v", c.Name(), ErrMalformedPayload, err)
	}
	return validPrice(c.Name(), price)
}
