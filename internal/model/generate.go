package model

// GenerateResponse represents response for POST /users/{id}/wallets and .../import
type GenerateResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Address string `json:"address,omitempty"`
}

// ImportRequest represents request for POST /users/{id}/wallets/import
type ImportRequest struct {
	Name   string `json:"name"`
	Secret string `json:"secret"` // mnemonic, hex, base58 or keygen JSON array
}

// CreateRequest represents request for POST /users/{id}/wallets
type CreateRequest struct {
	Name string `json:"name"`
}

// SetActiveRequest represents request for POST /users/{id}/wallets/active
type SetActiveRequest struct {
	Address string `json:"address"`
}

// RenameRequest represents request for PATCH /users/{id}/wallets/{address}
type RenameRequest struct {
	Name string `json:"name"`
}

// WalletView is the public part of a Wallet
type WalletView struct {
	Name        string `json:"name"`
	Address     string `json:"address"`
	IsActive    bool   `json:"isActive"`
	HasMnemonic bool   `json:"hasMnemonic"`
	Placeholder bool   `json:"placeholder,omitempty"`
}

// NewWalletView strips encrypted fields from w
func NewWalletView(w *Wallet) WalletView {
	return WalletView{
		Name:        w.Name,
		Address:     w.Address,
		IsActive:    w.IsActive,
		HasMnemonic: w.EncryptedMnemonic != "",
		Placeholder: w.Placeholder,
	}
}

// ExportResponse represents response for POST /users/{id}/wallets/{address}/export
type ExportResponse struct {
	Address    string `json:"address"`
	PrivateKey string `json:"privateKey"`
	Mnemonic   string `json:"mnemonic,omitempty"`
}
