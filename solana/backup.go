package solana

import (
	"context"
	"fmt"
	"time"

	"github.com/AlexZinkM/custody-bot/internal/crypto"
	"github.com/AlexZinkM/custody-bot/internal/model"
	"github.com/AlexZinkM/custody-bot/internal/storage"
	"github.com/AlexZinkM/custody-bot/internal/wallet"
)

// Backup writes every real wallet of userID, decrypted, into a password-protected .cwt file.
// It returns the active address recorded in the file header.
// password must be []byte for security (caller should zero it after use)
func (s *Service) Backup(ctx context.Context, userID, filePath string, password []byte) (string, error) {
	u, err := s.store.Load(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to load user: %w", err)
	}
	active, err := s.RepairAndGetActiveWallet(ctx, u)
	if err != nil {
		return "", err
	}

	data := &model.BackupData{
		UserID:    u.ID,
		CreatedAt: time.Now().Format(time.RFC3339),
	}
	for i := range u.Wallets {
		w := &u.Wallets[i]
		if w.Placeholder {
			continue
		}
		pk, mnemonic, err := s.wallets.Export(w)
		if err != nil {
			return "", fmt.Errorf("failed to export wallet %s: %w", w.Address, err)
		}
		data.Wallets = append(data.Wallets, model.BackupWallet{
			Name:       w.Name,
			Address:    w.Address,
			PrivateKey: pk,
			Mnemonic:   mnemonic,
		})
	}
	if len(data.Wallets) == 0 {
		return "", model.ErrPlaceholderWallet
	}

	qrCode := ""
	if !active.Placeholder {
		if qrCode, err = generateQRCode(active.Address); err != nil {
			return "", err
		}
	}
	if err := crypto.WriteBackup(filePath, active.Address, qrCode, data, password); err != nil {
		return "", fmt.Errorf("failed to write backup: %w", err)
	}
	return active.Address, nil
}

// RotateKey re-encrypts every stored secret from oldVault to newVault.
// Blobs that already open with newVault are left alone, so an interrupted rotation
// can be resumed by running it again. It returns the number of users rewritten.
func RotateKey(ctx context.Context, store storage.UserStore, oldVault, newVault *crypto.Vault) (int, error) {
	ids, err := store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list users: %w", err)
	}

	rewritten := 0
	for _, id := range ids {
		u, err := store.Load(ctx, id)
		if err != nil {
			return rewritten, fmt.Errorf("failed to load user %s: %w", id, err)
		}

		changed, err := rotateUser(u, oldVault, newVault)
		if err != nil {
			return rewritten, fmt.Errorf("user %s: %w", id, err)
		}
		if !changed {
			continue
		}

		if err := store.Save(ctx, u); err != nil {
			return rewritten, fmt.Errorf("failed to save user %s: %w", id, err)
		}
		rewritten++
	}
	return rewritten, nil
}

func rotateUser(u *model.User, oldVault, newVault *crypto.Vault) (bool, error) {
	changed := false
	rotate := func(blob *string, what string) error {
		next, ok, err := rotateBlob(*blob, oldVault, newVault)
		if err != nil {
			return fmt.Errorf("%s: %w", what, err)
		}
		if ok {
			*blob = next
			changed = true
		}
		return nil
	}

	for i := range u.Wallets {
		w := &u.Wallets[i]
		if err := rotate(&w.EncryptedPrivateKey, "wallet "+w.Address+" key"); err != nil {
			return false, err
		}
		if err := rotate(&w.EncryptedMnemonic, "wallet "+w.Address+" mnemonic"); err != nil {
			return false, err
		}
	}

	if active, err := wallet.ActiveWallet(u); err == nil {
		if u.EncryptedPrivateKey != active.EncryptedPrivateKey || u.EncryptedMnemonic != active.EncryptedMnemonic {
			changed = true
		}
		u.WalletAddress = active.Address
		u.EncryptedPrivateKey = active.EncryptedPrivateKey
		u.EncryptedMnemonic = active.EncryptedMnemonic
		return changed, nil
	}

	if err := rotate(&u.EncryptedPrivateKey, "legacy key"); err != nil {
		return false, err
	}
	if err := rotate(&u.EncryptedMnemonic, "legacy mnemonic"); err != nil {
		return false, err
	}
	return changed, nil
}

// rotateBlob re-encrypts blob under newVault. It reports false for empty blobs and for
// blobs a previous run already rotated.
func rotateBlob(blob string, oldVault, newVault *crypto.Vault) (string, bool, error) {
	if blob == "" {
		return "", false, nil
	}

	plain, err := oldVault.DecryptString(blob)
	if err != nil {
		if _, newErr := newVault.DecryptString(blob); newErr == nil {
			return blob, false, nil
		}
		return "", false, err
	}

	next, err := newVault.EncryptString(plain)
	if err != nil {
		return "", false, err
	}
	return next, true, nil
}
