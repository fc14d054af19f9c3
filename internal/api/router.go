package api

import (
	"net/http"

	"github.com/AlexZinkM/custody-bot/internal/handler"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

// SetupRouter sets up router with handlers
func SetupRouter(h *handler.SolanaHandler) http.Handler {
	mux := http.NewServeMux()

	// Swagger UI
	mux.HandleFunc("/swagger/", httpSwagger.WrapHandler)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Wallet endpoints, rate limited per user
	mux.HandleFunc("GET /users/{id}/wallet", h.RateLimited(h.ActiveWallet))
	mux.HandleFunc("GET /users/{id}/wallet/qr", h.RateLimited(h.DepositQR))
	mux.HandleFunc("GET /users/{id}/wallets", h.RateLimited(h.ListWallets))
	mux.HandleFunc("POST /users/{id}/wallets", h.RateLimited(h.CreateWallet))
	mux.HandleFunc("POST /users/{id}/wallets/import", h.RateLimited(h.ImportWallet))
	mux.HandleFunc("POST /users/{id}/wallets/active", h.RateLimited(h.SetActive))
	mux.HandleFunc("PATCH /users/{id}/wallets/{address}", h.RateLimited(h.RenameWallet))
	mux.HandleFunc("POST /users/{id}/wallets/{address}/export", h.RateLimited(h.ExportWallet))

	// Market endpoints
	mux.HandleFunc("GET /market/sol", h.SOLPrice)
	mux.HandleFunc("GET /market/tokens/{address}", h.TokenPrice)
	mux.HandleFunc("GET /market/balance/{address}", h.GetBalance)

	return mux
}
