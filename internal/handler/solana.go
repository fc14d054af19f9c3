package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/AlexZinkM/custody-bot/internal/model"
	"github.com/AlexZinkM/custody-bot/solana"
)

// SolanaHandler serves the custody operations over HTTP
type SolanaHandler struct {
	svc *solana.Service
	log *slog.Logger
}

// NewSolanaHandler creates a new SolanaHandler
func NewSolanaHandler(svc *solana.Service, log *slog.Logger) *SolanaHandler {
	return &SolanaHandler{
		svc: svc,
		log: log.With("component", "handler"),
	}
}

// RateLimited rejects requests of users over their budget with 429
func (h *SolanaHandler) RateLimited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.svc.IsRateLimited(r.Context(), r.PathValue("id")) {
			writeJSON(w, http.StatusTooManyRequests, model.ErrorResponse{
				Error: "too many requests, try again in a few seconds",
				Code:  "rate_limited",
			})
			return
		}
		next(w, r)
	}
}

// user loads and repairs the user of the request path
func (h *SolanaHandler) user(ctx context.Context, id string) (*model.User, *model.Wallet, error) {
	u, err := h.svc.User(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	active, err := h.svc.RepairAndGetActiveWallet(ctx, u)
	if err != nil {
		return nil, nil, err
	}
	return u, active, nil
}

// ActiveWallet handles GET /users/{id}/wallet
// @Summary      Get active wallet
// @Description  Repairs the user's wallet record (provisioning the first wallet if needed) and returns the active wallet
// @Tags         wallets
// @Produce      json
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  model.WalletView
// @Failure      429  {object}  model.ErrorResponse
// @Router       /users/{id}/wallet [get]
func (h *SolanaHandler) ActiveWallet(w http.ResponseWriter, r *http.Request) {
	_, active, err := h.user(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.NewWalletView(active))
}

// ListWallets handles GET /users/{id}/wallets
// @Summary      List wallets
// @Tags         wallets
// @Produce      json
// @Param        id   path      string  true  "User ID"
// @Success      200  {array}   model.WalletView
// @Router       /users/{id}/wallets [get]
func (h *SolanaHandler) ListWallets(w http.ResponseWriter, r *http.Request) {
	u, _, err := h.user(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	views := make([]model.WalletView, 0, len(u.Wallets))
	for i := range u.Wallets {
		views = append(views, model.NewWalletView(&u.Wallets[i]))
	}
	writeJSON(w, http.StatusOK, views)
}

// CreateWallet handles POST /users/{id}/wallets
// @Summary      Create wallet
// @Description  Generates a new wallet and makes it active
// @Tags         wallets
// @Accept       json
// @Produce      json
// @Param        id       path      string              true  "User ID"
// @Param        request  body      model.CreateRequest false "Wallet name"
// @Success      201      {object}  model.GenerateResponse
// @Failure      409      {object}  model.ErrorResponse
// @Router       /users/{id}/wallets [post]
func (h *SolanaHandler) CreateWallet(w http.ResponseWriter, r *http.Request) {
	var req model.CreateRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: err.Error(), Code: "bad_request"})
			return
		}
	}

	u, _, err := h.user(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	created, err := h.svc.Wallets().CreateWallet(r.Context(), u, req.Name)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, model.GenerateResponse{
		Success: true,
		Message: "Wallet created successfully",
		Address: created.Address,
	})
}

// ImportWallet handles POST /users/{id}/wallets/import
// @Summary      Import wallet
// @Description  Imports a recovery phrase or secret key and makes it active
// @Tags         wallets
// @Accept       json
// @Produce      json
// @Param        id       path      string              true  "User ID"
// @Param        request  body      model.ImportRequest true  "Secret"
// @Success      201      {object}  model.GenerateResponse
// @Failure      409      {object}  model.ErrorResponse
// @Failure      422      {object}  model.ErrorResponse
// @Router       /users/{id}/wallets/import [post]
func (h *SolanaHandler) ImportWallet(w http.ResponseWriter, r *http.Request) {
	var req model.ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: err.Error(), Code: "bad_request"})
		return
	}

	u, _, err := h.user(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	imported, err := h.svc.Wallets().ImportWallet(r.Context(), u, req.Name, req.Secret)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, model.GenerateResponse{
		Success: true,
		Message: "Wallet imported successfully",
		Address: imported.Address,
	})
}

// SetActive handles POST /users/{id}/wallets/active
// @Summary      Switch active wallet
// @Tags         wallets
// @Accept       json
// @Produce      json
// @Param        id       path      string                 true  "User ID"
// @Param        request  body      model.SetActiveRequest true  "Wallet address"
// @Success      200      {object}  model.WalletView
// @Failure      404      {object}  model.ErrorResponse
// @Router       /users/{id}/wallets/active [post]
func (h *SolanaHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	var req model.SetActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: err.Error(), Code: "bad_request"})
		return
	}

	u, _, err := h.user(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if _, err := h.svc.Wallets().SetActive(r.Context(), u, req.Address); err != nil {
		h.writeError(w, err)
		return
	}
	active, err := h.svc.RepairAndGetActiveWallet(r.Context(), u)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.NewWalletView(active))
}

// RenameWallet handles PATCH /users/{id}/wallets/{address}
// @Summary      Rename wallet
// @Tags         wallets
// @Accept       json
// @Param        id       path  string              true  "User ID"
// @Param        address  path  string              true  "Wallet address"
// @Param        request  body  model.RenameRequest true  "New name"
// @Success      204
// @Failure      404      {object}  model.ErrorResponse
// @Failure      422      {object}  model.ErrorResponse
// @Router       /users/{id}/wallets/{address} [patch]
func (h *SolanaHandler) RenameWallet(w http.ResponseWriter, r *http.Request) {
	var req model.RenameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: err.Error(), Code: "bad_request"})
		return
	}

	u, _, err := h.user(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.svc.Wallets().RenameWallet(r.Context(), u, r.PathValue("address"), req.Name); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportWallet handles POST /users/{id}/wallets/{address}/export
// @Summary      Export wallet secrets
// @Description  Decrypts the private key (base58) and recovery phrase of a wallet
// @Tags         wallets
// @Produce      json
// @Param        id       path      string  true  "User ID"
// @Param        address  path      string  true  "Wallet address"
// @Success      200      {object}  model.ExportResponse
// @Failure      404      {object}  model.ErrorResponse
// @Failure      422      {object}  model.ErrorResponse
// @Router       /users/{id}/wallets/{address}/export [post]
func (h *SolanaHandler) ExportWallet(w http.ResponseWriter, r *http.Request) {
	u, _, err := h.user(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	address := r.PathValue("address")
	var target *model.Wallet
	for i := range u.Wallets {
		if u.Wallets[i].Address == address {
			target = &u.Wallets[i]
			break
		}
	}
	if target == nil {
		h.writeError(w, model.ErrWalletNotFound)
		return
	}

	pk, mnemonic, err := h.svc.Wallets().Export(target)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.log.Info("Exported wallet secrets", "user_id", u.ID, "address", address)

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, model.ExportResponse{
		Address:    address,
		PrivateKey: pk,
		Mnemonic:   mnemonic,
	})
}

// DepositQR handles GET /users/{id}/wallet/qr
// @Summary      Deposit QR code
// @Description  PNG QR code of the active wallet address
// @Tags         wallets
// @Produce      png
// @Param        id   path  string  true  "User ID"
// @Success      200
// @Failure      422  {object}  model.ErrorResponse
// @Router       /users/{id}/wallet/qr [get]
func (h *SolanaHandler) DepositQR(w http.ResponseWriter, r *http.Request) {
	_, active, err := h.user(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	png, err := h.svc.DepositQR(active)
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// SOLPrice handles GET /market/sol
// @Summary      SOL price
// @Description  SOL price in USD, never fails (falls back to cached or default values)
// @Tags         market
// @Produce      json
// @Success      200  {object}  model.PriceResponse
// @Router       /market/sol [get]
func (h *SolanaHandler) SOLPrice(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.PriceResponse{
		Symbol: "SOL",
		USD:    h.svc.NativePrice(r.Context()),
	})
}

// TokenPrice handles GET /market/tokens/{address}
// @Summary      Token price
// @Description  Price, market cap, liquidity and metadata of an SPL token
// @Tags         market
// @Produce      json
// @Param        address  path      string  true  "Mint address"
// @Success      200      {object}  model.TokenPrice
// @Failure      400      {object}  model.ErrorResponse
// @Router       /market/tokens/{address} [get]
func (h *SolanaHandler) TokenPrice(w http.ResponseWriter, r *http.Request) {
	tp, err := h.svc.TokenPrice(r.Context(), r.PathValue("address"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tp)
}

// GetBalance handles GET /market/balance/{address}
// @Summary      Wallet balance
// @Description  SOL balance of an address and its USD value
// @Tags         market
// @Produce      json
// @Param        address  path      string  true  "Wallet address"
// @Success      200      {object}  model.BalanceResponse
// @Router       /market/balance/{address} [get]
func (h *SolanaHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.GetBalance(r.Context(), r.PathValue("address")))
}

func (h *SolanaHandler) writeError(w http.ResponseWriter, err error) {
	status, code := http.StatusInternalServerError, "internal"
	switch {
	case errors.Is(err, model.ErrWalletNotFound), errors.Is(err, model.ErrNoWallet):
		status, code = http.StatusNotFound, "wallet_not_found"
	case errors.Is(err, model.ErrWalletLimit):
		status, code = http.StatusConflict, "wallet_limit"
	case errors.Is(err, model.ErrDuplicateWallet):
		status, code = http.StatusConflict, "duplicate_wallet"
	case errors.Is(err, model.ErrImport):
		status, code = http.StatusUnprocessableEntity, "invalid_secret"
	case errors.Is(err, model.ErrPlaceholderWallet):
		status, code = http.StatusUnprocessableEntity, "placeholder_wallet"
	case errors.Is(err, model.ErrInvalidWalletName):
		status, code = http.StatusUnprocessableEntity, "invalid_name"
	case errors.Is(err, model.ErrInvalidAddress):
		status, code = http.StatusBadRequest, "invalid_address"
	case model.IsPersistenceError(err):
		status, code = http.StatusServiceUnavailable, "persistence"
	}

	if status >= http.StatusInternalServerError {
		h.log.Error("Request failed", "error", err)
	}
	writeJSON(w, status, model.ErrorResponse{Error: err.Error(), Code: code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
