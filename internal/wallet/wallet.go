// Package wallet maintains the per-user wallet collection: exactly one active wallet,
// a legacy mirror of it on the user record, and self-repair of malformed records.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/AlexZinkM/custody-bot/internal/crypto"
	"github.com/AlexZinkM/custody-bot/internal/keys"
	"github.com/AlexZinkM/custody-bot/internal/metrics"
	"github.com/AlexZinkM/custody-bot/internal/model"
	"github.com/AlexZinkM/custody-bot/internal/storage"

	"github.com/google/uuid"
)

const (
	placeholderPrefix = "placeholder-"
	placeholderName   = "Placeholder wallet"
	legacyWalletName  = "Main wallet"
)

// ActiveWallet returns the active wallet of u. Callers must run Repair first.
func ActiveWallet(u *model.User) (*model.Wallet, error) {
	for i := range u.Wallets {
		if u.Wallets[i].IsActive {
			return &u.Wallets[i], nil
		}
	}
	return nil, model.ErrNoWallet
}

// Generator produces fresh key material; keys.Generate in production
type Generator func() (*keys.Material, error)

// Manager applies wallet mutations and persists them
type Manager struct {
	store    storage.UserStore
	vault    *crypto.Vault
	generate Generator
	strict   bool
	now      func() time.Time
	log      *slog.Logger
}

// Option configures a Manager
type Option func(*Manager)

func WithGenerator(g Generator) Option {
	return func(m *Manager) { m.generate = g }
}

// WithStrictGeneration makes Repair fail instead of substituting a placeholder wallet
func WithStrictGeneration(strict bool) Option {
	return func(m *Manager) { m.strict = strict }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(store storage.UserStore, vault *crypto.Vault, log *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		vault:    vault,
		generate: keys.Generate,
		now:      time.Now,
		log:      log.With("component", "wallet"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Repair brings u to a valid state: non-empty wallets, exactly one active, mirror in sync.
// It persists and reports true only when something changed.
func (m *Manager) Repair(ctx context.Context, u *model.User) (bool, error) {
	next := u.Clone()

	if len(next.Wallets) == 0 {
		w, err := m.provision(next)
		if err != nil {
			return false, err
		}
		next.Wallets = []model.Wallet{w}
		refreshMirror(next)
		if err := m.commit(ctx, u, next); err != nil {
			return false, err
		}
		return true, nil
	}

	changed := false
	for i := range next.Wallets {
		if backfill(next, &next.Wallets[i]) {
			changed = true
		}
	}
	if normalizeActive(next.Wallets) {
		changed = true
	}
	if refreshMirror(next) {
		changed = true
	}

	if !changed {
		return false, nil
	}
	m.log.Info("Repaired wallet record", "user_id", u.ID)
	if err := m.commit(ctx, u, next); err != nil {
		return false, err
	}
	return true, nil
}

// provision creates the first wallet of a user with no wallets array
func (m *Manager) provision(u *model.User) (model.Wallet, error) {
	if u.WalletAddress != "" {
		return model.Wallet{
			Name:                legacyWalletName,
			Address:             u.WalletAddress,
			EncryptedPrivateKey: u.EncryptedPrivateKey,
			EncryptedMnemonic:   u.EncryptedMnemonic,
			IsActive:            true,
			CreatedAt:           m.now(),
		}, nil
	}

	w, err := m.newWallet(legacyWalletName)
	if err == nil {
		w.IsActive = true
		return w, nil
	}
	if m.strict {
		return model.Wallet{}, fmt.Errorf("failed to provision wallet for user %s: %w", u.ID, err)
	}

	metrics.PlaceholderWalletsTotal.Inc()
	p := model.Wallet{
		Name:        placeholderName,
		Address:     placeholderPrefix + uuid.NewString(),
		IsActive:    true,
		Placeholder: true,
		CreatedAt:   m.now(),
	}
	m.log.Error("Key generation failed, substituted placeholder wallet",
		"user_id", u.ID, "address", p.Address, "error", err)
	return p, nil
}

// backfill copies missing secrets from the legacy mirror into the wallet it belongs to
func backfill(u *model.User, w *model.Wallet) bool {
	owns := w.Address == u.WalletAddress || (u.WalletAddress == "" && len(u.Wallets) == 1)
	if !owns {
		return false
	}

	changed := false
	if w.EncryptedPrivateKey == "" && u.EncryptedPrivateKey != "" {
		w.EncryptedPrivateKey = u.EncryptedPrivateKey
		changed = true
	}
	if w.EncryptedMnemonic == "" && u.EncryptedMnemonic != "" {
		w.EncryptedMnemonic = u.EncryptedMnemonic
		changed = true
	}
	return changed
}

// normalizeActive leaves exactly the first active wallet active, or the first wallet if none is
func normalizeActive(ws []model.Wallet) bool {
	first := -1
	changed := false
	for i := range ws {
		if !ws[i].IsActive {
			continue
		}
		if first == -1 {
			first = i
			continue
		}
		ws[i].IsActive = false
		changed = true
	}
	if first == -1 && len(ws) > 0 {
		ws[0].IsActive = true
		changed = true
	}
	return changed
}

// refreshMirror copies the active wallet into the legacy fields
func refreshMirror(u *model.User) bool {
	active, err := ActiveWallet(u)
	if err != nil {
		return false
	}
	if u.WalletAddress == active.Address &&
		u.EncryptedPrivateKey == active.EncryptedPrivateKey &&
		u.EncryptedMnemonic == active.EncryptedMnemonic {
		return false
	}
	u.WalletAddress = active.Address
	u.EncryptedPrivateKey = active.EncryptedPrivateKey
	u.EncryptedMnemonic = active.EncryptedMnemonic
	return true
}

func activate(ws []model.Wallet, index int) {
	for i := range ws {
		ws[i].IsActive = i == index
	}
}

// SetActive makes address the active wallet, refreshing the mirror in the same save
func (m *Manager) SetActive(ctx context.Context, u *model.User, address string) (*model.User, error) {
	next := u.Clone()
	index := findWallet(next.Wallets, address)
	if index < 0 {
		return nil, model.ErrWalletNotFound
	}

	activate(next.Wallets, index)
	refreshMirror(next)
	if err := m.commit(ctx, u, next); err != nil {
		return nil, err
	}
	return u, nil
}

// AddWallet appends w as the new active wallet
func (m *Manager) AddWallet(ctx context.Context, u *model.User, w model.Wallet) error {
	if len(u.Wallets) >= model.MaxWalletsPerUser {
		return model.ErrWalletLimit
	}
	if findWallet(u.Wallets, w.Address) >= 0 {
		return model.ErrDuplicateWallet
	}

	next := u.Clone()
	if w.CreatedAt.IsZero() {
		w.CreatedAt = m.now()
	}
	next.Wallets = append(next.Wallets, w)
	activate(next.Wallets, len(next.Wallets)-1)
	refreshMirror(next)
	return m.commit(ctx, u, next)
}

// CreateWallet generates a new keypair and adds it as the active wallet
func (m *Manager) CreateWallet(ctx context.Context, u *model.User, name string) (*model.Wallet, error) {
	if len(u.Wallets) >= model.MaxWalletsPerUser {
		return nil, model.ErrWalletLimit
	}
	name, err := m.walletName(u, name)
	if err != nil {
		return nil, err
	}

	w, err := m.newWallet(name)
	if err != nil {
		return nil, err
	}
	if err := m.AddWallet(ctx, u, w); err != nil {
		return nil, err
	}
	return ActiveWallet(u)
}

// ImportWallet imports a recovery phrase or secret key and adds it as the active wallet
func (m *Manager) ImportWallet(ctx context.Context, u *model.User, name, secret string) (*model.Wallet, error) {
	if len(u.Wallets) >= model.MaxWalletsPerUser {
		return nil, model.ErrWalletLimit
	}
	name, err := m.walletName(u, name)
	if err != nil {
		return nil, err
	}

	mat, err := keys.Import(secret)
	if err != nil {
		return nil, err
	}
	defer mat.Wipe()

	sealed, err := Seal(m.vault, mat)
	if err != nil {
		return nil, err
	}
	w := model.Wallet{
		Name:                name,
		Address:             sealed.PublicAddress,
		EncryptedPrivateKey: sealed.EncryptedPrivateKey,
		EncryptedMnemonic:   sealed.EncryptedMnemonic,
	}
	if err := m.AddWallet(ctx, u, w); err != nil {
		return nil, err
	}
	return ActiveWallet(u)
}

// RenameWallet changes the display name of a wallet
func (m *Manager) RenameWallet(ctx context.Context, u *model.User, address, name string) error {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > model.MaxWalletNameLength {
		return model.ErrInvalidWalletName
	}

	next := u.Clone()
	index := findWallet(next.Wallets, address)
	if index < 0 {
		return model.ErrWalletNotFound
	}
	next.Wallets[index].Name = name
	return m.commit(ctx, u, next)
}

// Export decrypts the secrets of w. Callers own the display and disposal policy.
func (m *Manager) Export(w *model.Wallet) (privateKey, mnemonic string, err error) {
	if w.Placeholder {
		return "", "", model.ErrPlaceholderWallet
	}
	privateKey, err = m.vault.DecryptString(w.EncryptedPrivateKey)
	if err != nil {
		return "", "", fmt.Errorf("failed to decrypt private key: %w", err)
	}
	if w.EncryptedMnemonic != "" {
		mnemonic, err = m.vault.DecryptString(w.EncryptedMnemonic)
		if err != nil {
			return "", "", fmt.Errorf("failed to decrypt mnemonic: %w", err)
		}
	}
	return privateKey, mnemonic, nil
}

func (m *Manager) walletName(u *model.User, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Sprintf("Wallet %d", len(u.Wallets)+1), nil
	}
	if utf8.RuneCountInString(name) > model.MaxWalletNameLength {
		return "", model.ErrInvalidWalletName
	}
	return name, nil
}

// newWallet generates and encrypts a keypair
func (m *Manager) newWallet(name string) (model.Wallet, error) {
	mat, err := m.generate()
	if err != nil {
		return model.Wallet{}, fmt.Errorf("failed to generate wallet: %w", err)
	}
	defer mat.Wipe()

	sealed, err := Seal(m.vault, mat)
	if err != nil {
		return model.Wallet{}, err
	}
	return model.Wallet{
		Name:                name,
		Address:             sealed.PublicAddress,
		EncryptedPrivateKey: sealed.EncryptedPrivateKey,
		EncryptedMnemonic:   sealed.EncryptedMnemonic,
		CreatedAt:           m.now(),
	}, nil
}

// Seal encrypts key material for storage
func Seal(vault *crypto.Vault, mat *keys.Material) (*model.GeneratedWallet, error) {
	encKey, err := vault.EncryptString(mat.PrivateKeyBase58())
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt private key: %w", err)
	}

	out := &model.GeneratedWallet{
		PublicAddress:       mat.Address,
		EncryptedPrivateKey: encKey,
	}
	if mat.Mnemonic != "" {
		out.EncryptedMnemonic, err = vault.EncryptString(mat.Mnemonic)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt mnemonic: %w", err)
		}
	}
	return out, nil
}

func findWallet(ws []model.Wallet, address string) int {
	for i := range ws {
		if ws[i].Address == address {
			return i
		}
	}
	return -1
}

// commit persists next and, on success, makes u equal to what was stored.
// A failed save is retried once without optional fields.
func (m *Manager) commit(ctx context.Context, u, next *model.User) error {
	next.UpdatedAt = m.now()

	err := m.store.Save(ctx, next)
	if err == nil {
		*u = *next
		return nil
	}
	m.log.Warn("Failed to save user, retrying with minimal data", "user_id", next.ID, "error", err)

	minimal := minimalCopy(next)
	if retryErr := m.store.Save(ctx, minimal); retryErr != nil {
		metrics.PersistenceRetriesTotal.WithLabelValues("failed").Inc()
		m.log.Error("Failed to save user with minimal data", "user_id", next.ID, "error", retryErr)
		return &model.PersistenceError{UserID: next.ID, Err: errors.Join(err, retryErr)}
	}

	metrics.PersistenceRetriesTotal.WithLabelValues("succeeded").Inc()
	m.log.Warn("Saved user with minimal data, recovery phrases and names were dropped", "user_id", next.ID)
	*u = *minimal
	return nil
}

// minimalCopy drops the optional fields: recovery phrases and wallet names
func minimalCopy(u *model.User) *model.User {
	c := u.Clone()
	c.EncryptedMnemonic = ""
	for i := range c.Wallets {
		c.Wallets[i].EncryptedMnemonic = ""
		c.Wallets[i].Name = ""
	}
	return c
}
