package solana

import (
	"encoding/base64"
	"fmt"

	"github.com/AlexZinkM/custody-bot/internal/keys"
	"github.com/AlexZinkM/custody-bot/internal/model"
	"github.com/AlexZinkM/custody-bot/internal/wallet"

	"github.com/skip2/go-qrcode"
)

const qrSize = 256

// GenerateWallet generates a new keypair and returns it encrypted
func (s *Service) GenerateWallet() (*model.GeneratedWallet, error) {
	mat, err := keys.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate wallet: %w", err)
	}
	defer mat.Wipe()

	return wallet.Seal(s.vault, mat)
}

// ImportWallet imports a recovery phrase or secret key and returns it encrypted
func (s *Service) ImportWallet(secret string) (*model.GeneratedWallet, error) {
	mat, err := keys.Import(secret)
	if err != nil {
		return nil, err
	}
	defer mat.Wipe()

	return wallet.Seal(s.vault, mat)
}

// ExportSecret decrypts the private key of w (base58, the format wallets import)
func (s *Service) ExportSecret(w *model.Wallet) (string, error) {
	pk, _, err := s.wallets.Export(w)
	return pk, err
}

// DepositQR returns a PNG QR code of the active wallet address
func (s *Service) DepositQR(w *model.Wallet) ([]byte, error) {
	if w.Placeholder {
		return nil, model.ErrPlaceholderWallet
	}
	return qrPNG(w.Address)
}

func qrPNG(address string) ([]byte, error) {
	qr, err := qrcode.New(address, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("failed to create QR code: %w", err)
	}

	png, err := qr.PNG(qrSize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate PNG: %w", err)
	}
	return png, nil
}

// generateQRCode generates QR code of address in base64
func generateQRCode(address string) (string, error) {
	png, err := qrPNG(address)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(png), nil
}
