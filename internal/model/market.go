package model

// TokenInfo is best-effort metadata of an SPL token mint
type TokenInfo struct {
	Address  string  `json:"address"`
	Name     string  `json:"name,omitempty"`
	Symbol   string  `json:"symbol,omitempty"`
	Decimals uint8   `json:"decimals"`
	Supply   float64 `json:"supply"`
}

// TokenPrice is the market snapshot of one token
type TokenPrice struct {
	Price     float64   `json:"price"`
	MarketCap float64   `json:"marketCap"`
	Liquidity float64   `json:"liquidity"`
	TokenInfo TokenInfo `json:"tokenInfo"`
}

// PriceResponse represents response for GET /market/sol
type PriceResponse struct {
	Symbol string  `json:"symbol"`
	USD    float64 `json:"usd"`
}

// BalanceResponse represents response for GET /market/balance/{address}
type BalanceResponse struct {
	Address string  `json:"address"`
	SOL     float64 `json:"sol"`
	USD     float64 `json:"usd"`
}
