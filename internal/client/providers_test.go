package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/AlexZinkM/custody-bot/internal/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"

func serve(t *testing.T, path, body string, status int) Options {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != path {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return Options{BaseURL: srv.URL, Timeout: 2 * time.Second}
}

func TestCoinGecko_SOLPrice(t *testing.T) {
	opts := serve(t, "/simple/price", `{"solana":{"usd":151.25}}`, http.StatusOK)
	price, err := NewCoinGeckoClient(opts).GetSOLPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 151.25, price)

	opts = serve(t, "/simple/price", `{"solana":{}}`, http.StatusOK)
	_, err = NewCoinGeckoClient(opts).GetSOLPrice(context.Background())
	assert.ErrorIs(t, err, ErrMalformedPayload)

	opts = serve(t, "/simple/price", `{}`, http.StatusTooManyRequests)
	_, err = NewCoinGeckoClient(opts).GetSOLPrice(context.Background())
	assert.ErrorContains(t, err, "status 429")
}

func TestCoinGecko_TokenPrice(t *testing.T) {
	body := `{"data":{"id":"x","type":"simple_token_price","attributes":{
		"token_prices":{"epjfwdd5aufqssqem2qn1xzybapc8g4weggkzwytdt1v":"0.9998"},
		"market_cap_usd":{"epjfwdd5aufqssqem2qn1xzybapc8g4weggkzwytdt1v":"1000.5"},
		"total_reserve_in_usd":{"epjfwdd5aufqssqem2qn1xzybapc8g4weggkzwytdt1v":null}}}}`
	opts := serve(t, "/onchain/simple/networks/solana/token_price/"+testMint, body, http.StatusOK)

	tp, err := NewCoinGeckoClient(opts).GetTokenPrice(context.Background(), testMint)
	require.NoError(t, err)
	assert.Equal(t, 0.9998, tp.Price)
	assert.Equal(t, 1000.5, tp.MarketCap)
	assert.Zero(t, tp.Liquidity)
	assert.Equal(t, testMint, tp.TokenInfo.Address)
}

func TestBinance_SOLPrice(t *testing.T) {
	opts := serve(t, "/api/v3/ticker/price", `{"symbol":"SOLUSDT","price":"149.87000000"}`, http.StatusOK)
	price, err := NewBinanceClient(opts).GetSOLPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 149.87, price)

	opts = serve(t, "/api/v3/ticker/price", `{"symbol":"SOLUSDT","price":"abc"}`, http.StatusOK)
	_, err = NewBinanceClient(opts).GetSOLPrice(context.Background())
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestJupiter_SOLPrice(t *testing.T) {
	opts := serve(t, "/price/v2", `{"data":{"`+common.NativeMint+`":{"id":"x","price":"150.5"}}}`, http.StatusOK)
	price, err := NewJupiterClient(opts).GetSOLPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 150.5, price)

	opts = serve(t, "/price/v2", `{"data":{"`+common.NativeMint+`":null}}`, http.StatusOK)
	_, err = NewJupiterClient(opts).GetSOLPrice(context.Background())
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestDexScreener_PicksMostLiquidPair(t *testing.T) {
	body := `{"pairs":[
		{"chainId":"solana","baseToken":{"address":"` + testMint + `","name":"USD Coin","symbol":"USDC"},"priceUsd":"0.99","liquidity":{"usd":10},"marketCap":5},
		{"chainId":"solana","baseToken":{"address":"` + testMint + `","name":"USD Coin","symbol":"USDC"},"priceUsd":"1.0","liquidity":{"usd":1000},"fdv":7},
		{"chainId":"ethereum","baseToken":{"address":"` + testMint + `"},"priceUsd":"5","liquidity":{"usd":99999}}
	]}`
	opts := serve(t, "/latest/dex/tokens/"+testMint, body, http.StatusOK)

	tp, err := NewDexScreenerClient(opts).GetTokenPrice(context.Background(), testMint)
	require.NoError(t, err)
	assert.Equal(t, 1.0, tp.Price)
	assert.Equal(t, 1000.0, tp.Liquidity)
	assert.Equal(t, 7.0, tp.MarketCap)
	assert.Equal(t, "USDC", tp.TokenInfo.Symbol)

	opts = serve(t, "/latest/dex/tokens/"+testMint, `{"pairs":null}`, http.StatusOK)
	_, err = NewDexScreenerClient(opts).GetTokenPrice(context.Background(), testMint)
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestHTTPClient_ContextCancelled(t *testing.T) {
	opts := serve(t, "/simple/price", `{"solana":{"usd":1}}`, http.StatusOK)
	opts.RPS = 1

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewCoinGeckoClient(opts).GetSOLPrice(ctx)
	assert.Error(t, err)
}
