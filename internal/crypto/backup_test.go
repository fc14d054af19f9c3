package crypto

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/AlexZinkM/custody-bot/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackup_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user.cwt")
	data := &model.BackupData{
		UserID: "42",
		Wallets: []model.BackupWallet{
			{Name: "Main", Address: "addr1", PrivateKey: "pk1", Mnemonic: "words"},
			{Name: "Imported", Address: "addr2", PrivateKey: "pk2"},
		},
		CreatedAt: "2026-01-01T00:00:00Z",
	}

	require.NoError(t, WriteBackup(path, "addr1", "qr", data, []byte("hunter2")))

	address, err := ReadBackupAddress(path)
	require.NoError(t, err)
	assert.Equal(t, "addr1", address)

	cwt, got, err := ReadBackup(path, []byte("hunter2"))
	require.NoError(t, err)
	assert.Equal(t, "solana", cwt.Network)
	assert.Equal(t, data, got)

	_, _, err = ReadBackup(path, []byte("wrong"))
	assert.ErrorIs(t, err, model.ErrDecryption)
}

func TestWriteBackup_Rejects(t *testing.T) {
	dir := t.TempDir()
	data := &model.BackupData{UserID: "1"}

	err := WriteBackup(filepath.Join(dir, "user.txt"), "a", "", data, []byte("pw"))
	assert.Error(t, err)

	err = WriteBackup(filepath.Join(dir, "user.cwt"), "a", "", data, nil)
	assert.Error(t, err)

	existing := filepath.Join(dir, "existing.cwt")
	require.NoError(t, os.WriteFile(existing, []byte("{}"), 0600))
	err = WriteBackup(existing, "a", "", data, []byte("pw"))
	assert.ErrorIs(t, err, ErrBackupExists)
}

func TestReadBackup_MissingFile(t *testing.T) {
	_, _, err := ReadBackup(filepath.Join(t.TempDir(), "nope.cwt"), []byte("pw"))
	assert.Error(t, err)
}
