package client

import (
	"context"
	"fmt"

	"github.com/AlexZinkM/custody-bot/internal/common"
)

const jupiterAPI = "https://api.jup.ag"

// JupiterClient reads derived prices from the Jupiter price API
type JupiterClient struct {
	http *httpClient
}

func NewJupiterClient(opts Options) *JupiterClient {
	return &JupiterClient{http: newHTTPClient("jupiter", jupiterAPI, opts)}
}

func (c *JupiterClient) Name() string { return "jupiter" }

type jupiterPriceResponse struct {
	Data map[string]*struct {
		ID    string `json:"id"`
		Price string `json:"price"`
	} `json:"data"`
}

// GetSOLPrice gets the USD price of the native mint
func (c *JupiterClient) GetSOLPrice(ctx context.Context) (float64, error) {
	var resp jupiterPriceResponse
	if err := c.http.getJSON(ctx, "price", "/price/v2?ids="+common.NativeMint, &resp); err != nil {
		return 0, err
	}
	entry := resp.Data[common.NativeMint]
	if entry == nil {
		return 0, fmt.Errorf("%s: %w: no price for native mint", c.Name(), ErrMalformedPayload)
	}
	price, err := common.ParsePrice(entry.Price)
	if err != nil {
		return 0, fmt.Errorf("%s: %w: %v", c.Name(), ErrMalformedPayload, err)
	}
	return validPrice(c.Name(), price)
}
