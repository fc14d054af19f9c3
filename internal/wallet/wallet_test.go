package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/AlexZinkM/custody-bot/internal/crypto"
	"github.com/AlexZinkM/custody-bot/internal/keys"
	"github.com/AlexZinkM/custody-bot/internal/logger"
	"github.com/AlexZinkM/custody-bot/internal/model"
	"github.com/AlexZinkM/custody-bot/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore records saves and fails the first failN of them
type fakeStore struct {
	mu    sync.Mutex
	saved []*model.User
	failN int
}

func (s *fakeStore) Load(ctx context.Context, id string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.saved) - 1; i >= 0; i-- {
		if s.saved[i].ID == id {
			return s.saved[i].Clone(), nil
		}
	}
	return nil, storage.ErrUserNotFound
}

func (s *fakeStore) Save(ctx context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failN > 0 {
		s.failN--
		return errors.New("write conflict")
	}
	s.saved = append(s.saved, u.Clone())
	return nil
}

func (s *fakeStore) List(ctx context.Context) ([]string, error) { return nil, nil }

func (s *fakeStore) saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saved)
}

func (s *fakeStore) last() *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saved[len(s.saved)-1]
}

func newManager(t *testing.T, store *fakeStore, opts ...Option) (*Manager, *crypto.Vault) {
	t.Helper()
	vault, err := crypto.NewVault("test-secret")
	require.NoError(t, err)
	opts = append([]Option{WithClock(func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) })}, opts...)
	return NewManager(store, vault, logger.Discard(), opts...), vault
}

func failingGenerator() (*keys.Material, error) {
	return nil, errors.New("entropy source unavailable")
}

func assertValid(t *testing.T, u *model.User) {
	t.Helper()
	require.NotEmpty(t, u.Wallets)

	active := 0
	for _, w := range u.Wallets {
		if w.IsActive {
			active++
		}
	}
	require.Equal(t, 1, active, "exactly one active wallet")

	w, err := ActiveWallet(u)
	require.NoError(t, err)
	assert.Equal(t, w.Address, u.WalletAddress)
	assert.Equal(t, w.EncryptedPrivateKey, u.EncryptedPrivateKey)
	assert.Equal(t, w.EncryptedMnemonic, u.EncryptedMnemonic)
}

func TestActiveWallet(t *testing.T) {
	_, err := ActiveWallet(&model.User{})
	assert.ErrorIs(t, err, model.ErrNoWallet)

	u := &model.User{Wallets: []model.Wallet{{Address: "a"}, {Address: "b", IsActive: true}}}
	w, err := ActiveWallet(u)
	require.NoError(t, err)
	assert.Equal(t, "b", w.Address)
}

func TestRepair_FromLegacyFields(t *testing.T) {
	store := &fakeStore{}
	m, _ := newManager(t, store)
	u := &model.User{ID: "1", WalletAddress: "legacy", EncryptedPrivateKey: "k", EncryptedMnemonic: "mn"}

	changed, err := m.Repair(context.Background(), u)
	require.NoError(t, err)
	assert.True(t, changed)
	assertValid(t, u)

	require.Len(t, u.Wallets, 1)
	assert.Equal(t, "legacy", u.Wallets[0].Address)
	assert.Equal(t, "k", u.Wallets[0].EncryptedPrivateKey)
	assert.Equal(t, "mn", u.Wallets[0].EncryptedMnemonic)
	assert.Equal(t, 1, store.saves())
}

func TestRepair_GeneratesFirstWallet(t *testing.T) {
	store := &fakeStore{}
	m, vault := newManager(t, store)
	u := &model.User{ID: "1"}

	changed, err := m.Repair(context.Background(), u)
	require.NoError(t, err)
	assert.True(t, changed)
	assertValid(t, u)

	w := u.Wallets[0]
	assert.True(t, w.IsActive)
	assert.Equal(t, w.Address, u.WalletAddress)
	assert.Equal(t, w.EncryptedPrivateKey, u.EncryptedPrivateKey)
	assert.False(t, w.Placeholder)
	assert.NotEmpty(t, w.EncryptedMnemonic)

	mnemonic, err := vault.DecryptString(w.EncryptedMnemonic)
	require.NoError(t, err)
	restored, err := keys.Import(mnemonic)
	require.NoError(t, err)
	assert.Equal(t, w.Address, restored.Address)

	assert.Equal(t, u.Wallets, store.last().Wallets)

	active, err := ActiveWallet(u)
	require.NoError(t, err)
	assert.Equal(t, w.Address, active.Address)
}

func TestRepair_PlaceholderOnGenerationFailure(t *testing.T) {
	store := &fakeStore{}
	m, _ := newManager(t, store, WithGenerator(failingGenerator))
	u := &model.User{ID: "1"}

	changed, err := m.Repair(context.Background(), u)
	require.NoError(t, err)
	assert.True(t, changed)
	assertValid(t, u)

	w := u.Wallets[0]
	assert.True(t, w.Placeholder)
	assert.True(t, strings.HasPrefix(w.Address, placeholderPrefix))
	assert.Empty(t, w.EncryptedPrivateKey)

	_, _, err = m.Export(&w)
	assert.ErrorIs(t, err, model.ErrPlaceholderWallet)

	// two placeholders never collide
	other := &model.User{ID: "2"}
	_, err = m.Repair(context.Background(), other)
	require.NoError(t, err)
	assert.NotEqual(t, w.Address, other.Wallets[0].Address)
}

func TestRepair_StrictGenerationFails(t *testing.T) {
	store := &fakeStore{}
	m, _ := newManager(t, store, WithGenerator(failingGenerator), WithStrictGeneration(true))
	u := &model.User{ID: "1"}

	changed, err := m.Repair(context.Background(), u)
	assert.Error(t, err)
	assert.False(t, changed)
	assert.Empty(t, u.Wallets)
	assert.Zero(t, store.saves())
}

func TestRepair_NonEmpty(t *testing.T) {
	cases := map[string]struct {
		user        model.User
		wantChanged bool
		wantActive  string
	}{
		"valid record is untouched": {
			user: model.User{
				Wallets:       []model.Wallet{{Address: "a", EncryptedPrivateKey: "ka", IsActive: true}},
				WalletAddress: "a", EncryptedPrivateKey: "ka",
			},
			wantActive: "a",
		},
		"no active wallet": {
			user: model.User{
				Wallets: []model.Wallet{{Address: "a", EncryptedPrivateKey: "ka"}, {Address: "b", EncryptedPrivateKey: "kb"}},
			},
			wantChanged: true,
			wantActive:  "a",
		},
		"several active wallets": {
			user: model.User{
				Wallets: []model.Wallet{
					{Address: "a", EncryptedPrivateKey: "ka"},
					{Address: "b", EncryptedPrivateKey: "kb", IsActive: true},
					{Address: "c", EncryptedPrivateKey: "kc", IsActive: true},
				},
				WalletAddress: "b", EncryptedPrivateKey: "kb",
			},
			wantChanged: true,
			wantActive:  "b",
		},
		"backfill from legacy mirror": {
			user: model.User{
				Wallets:       []model.Wallet{{Address: "a", IsActive: true}, {Address: "b"}},
				WalletAddress: "a", EncryptedPrivateKey: "ka", EncryptedMnemonic: "ma",
			},
			wantChanged: true,
			wantActive:  "a",
		},
		"stale mirror": {
			user: model.User{
				Wallets:       []model.Wallet{{Address: "a", EncryptedPrivateKey: "ka"}, {Address: "b", EncryptedPrivateKey: "kb", IsActive: true}},
				WalletAddress: "a", EncryptedPrivateKey: "ka",
			},
			wantChanged: true,
			wantActive:  "b",
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			store := &fakeStore{}
			m, _ := newManager(t, store)
			u := tc.user.Clone()

			changed, err := m.Repair(context.Background(), u)
			require.NoError(t, err)
			assert.Equal(t, tc.wantChanged, changed)
			assertValid(t, u)
			assert.Equal(t, tc.wantActive, u.WalletAddress)

			if tc.wantChanged {
				assert.Equal(t, 1, store.saves())
			} else {
				assert.Zero(t, store.saves())
			}
		})
	}
}

func TestRepair_BackfillOnlyTouchesOwner(t *testing.T) {
	m, _ := newManager(t, &fakeStore{})
	u := &model.User{
		Wallets:       []model.Wallet{{Address: "a", IsActive: true}, {Address: "b"}},
		WalletAddress: "a", EncryptedPrivateKey: "ka",
	}

	_, err := m.Repair(context.Background(), u)
	require.NoError(t, err)
	assert.Equal(t, "ka", u.Wallets[0].EncryptedPrivateKey)
	assert.Empty(t, u.Wallets[1].EncryptedPrivateKey)
}

func seedUser(t *testing.T, m *Manager, n int) *model.User {
	t.Helper()
	u := &model.User{ID: "1"}
	for i := 0; i < n; i++ {
		require.NoError(t, m.AddWallet(context.Background(), u, model.Wallet{
			Name:                fmt.Sprintf("w%d", i),
			Address:             fmt.Sprintf("addr%d", i),
			EncryptedPrivateKey: fmt.Sprintf("key%d", i),
			EncryptedMnemonic:   fmt.Sprintf("mn%d", i),
		}))
	}
	return u
}

func TestSetActive(t *testing.T) {
	store := &fakeStore{}
	m, _ := newManager(t, store)
	u := seedUser(t, m, 3)
	before := store.saves()

	got, err := m.SetActive(context.Background(), u, "addr1")
	require.NoError(t, err)
	assert.Same(t, u, got)
	assertValid(t, u)

	assert.Equal(t, "addr1", u.WalletAddress)
	assert.Equal(t, "key1", u.EncryptedPrivateKey)
	assert.Equal(t, "mn1", u.EncryptedMnemonic)

	// one save carries both the activation and the mirror
	assert.Equal(t, before+1, store.saves())
	saved := store.last()
	assert.Equal(t, "addr1", saved.WalletAddress)
	assert.True(t, saved.Wallets[1].IsActive)

	_, err = m.SetActive(context.Background(), u, "missing")
	assert.ErrorIs(t, err, model.ErrWalletNotFound)
	assert.Equal(t, "addr1", u.WalletAddress)
}

func TestAddWallet_Limit(t *testing.T) {
	m, _ := newManager(t, &fakeStore{})
	u := seedUser(t, m, model.MaxWalletsPerUser)
	assertValid(t, u)
	assert.Equal(t, "addr5", u.WalletAddress)

	before := u.Clone()
	err := m.AddWallet(context.Background(), u, model.Wallet{Address: "addr6"})
	assert.ErrorIs(t, err, model.ErrWalletLimit)
	assert.Equal(t, before, u)

	_, err = m.CreateWallet(context.Background(), u, "")
	assert.ErrorIs(t, err, model.ErrWalletLimit)
	assert.Len(t, u.Wallets, model.MaxWalletsPerUser)
}

func TestAddWallet_Duplicate(t *testing.T) {
	m, _ := newManager(t, &fakeStore{})
	u := seedUser(t, m, 2)

	err := m.AddWallet(context.Background(), u, model.Wallet{Address: "addr0"})
	assert.ErrorIs(t, err, model.ErrDuplicateWallet)
	assert.Len(t, u.Wallets, 2)
}

func TestCreateWallet(t *testing.T) {
	m, vault := newManager(t, &fakeStore{})
	u := seedUser(t, m, 1)

	w, err := m.CreateWallet(context.Background(), u, "")
	require.NoError(t, err)
	assert.Equal(t, "Wallet 2", w.Name)
	assert.True(t, w.IsActive)
	assertValid(t, u)

	pk, mnemonic, err := m.Export(w)
	require.NoError(t, err)
	assert.NotEmpty(t, mnemonic)

	imported, err := keys.Import(pk)
	require.NoError(t, err)
	assert.Equal(t, w.Address, imported.Address)

	_, err = vault.DecryptString(u.EncryptedPrivateKey)
	require.NoError(t, err)

	_, err = m.CreateWallet(context.Background(), u, strings.Repeat("x", model.MaxWalletNameLength+1))
	assert.ErrorIs(t, err, model.ErrInvalidWalletName)
}

func TestImportWallet(t *testing.T) {
	m, _ := newManager(t, &fakeStore{})
	u := &model.User{ID: "1"}

	mat, err := keys.Generate()
	require.NoError(t, err)

	w, err := m.ImportWallet(context.Background(), u, "Trading", mat.PrivateKeyBase58())
	require.NoError(t, err)
	assert.Equal(t, mat.Address, w.Address)
	assert.Empty(t, w.EncryptedMnemonic)
	assertValid(t, u)

	_, err = m.ImportWallet(context.Background(), u, "Again", mat.Mnemonic)
	assert.ErrorIs(t, err, model.ErrDuplicateWallet)

	_, err = m.ImportWallet(context.Background(), u, "", "garbage")
	assert.ErrorIs(t, err, model.ErrImport)
	assert.Len(t, u.Wallets, 1)
}

func TestRenameWallet(t *testing.T) {
	m, _ := newManager(t, &fakeStore{})
	u := seedUser(t, m, 2)

	require.NoError(t, m.RenameWallet(context.Background(), u, "addr0", "  Savings "))
	assert.Equal(t, "Savings", u.Wallets[0].Name)
	assert.Equal(t, "addr1", u.WalletAddress, "rename does not change the active wallet")

	assert.ErrorIs(t, m.RenameWallet(context.Background(), u, "addr0", " "), model.ErrInvalidWalletName)
	assert.ErrorIs(t, m.RenameWallet(context.Background(), u, "nope", "x"), model.ErrWalletNotFound)
}

func TestPersistence_RetriesWithMinimalData(t *testing.T) {
	store := &fakeStore{}
	m, _ := newManager(t, store)
	u := seedUser(t, m, 2)

	store.failN = 1
	_, err := m.SetActive(context.Background(), u, "addr0")
	require.NoError(t, err)

	saved := store.last()
	assert.Equal(t, "addr0", saved.WalletAddress)
	assert.Empty(t, saved.EncryptedMnemonic)
	for _, w := range saved.Wallets {
		assert.Empty(t, w.EncryptedMnemonic)
		assert.Empty(t, w.Name)
		assert.NotEmpty(t, w.EncryptedPrivateKey)
	}
	assert.Equal(t, saved, u)
}

func TestPersistence_TerminalError(t *testing.T) {
	store := &fakeStore{}
	m, _ := newManager(t, store)
	u := seedUser(t, m, 2)
	before := u.Clone()

	store.failN = 2
	_, err := m.SetActive(context.Background(), u, "addr0")
	require.Error(t, err)
	assert.True(t, model.IsPersistenceError(err))
	assert.Equal(t, before, u, "failed mutation leaves the record unchanged")
}
