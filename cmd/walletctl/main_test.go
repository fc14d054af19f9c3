package main

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/AlexZinkM/custody-bot/internal/config"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateKey(t *testing.T) {
	a, err := generateKey()
	require.NoError(t, err)
	b, err := generateKey()
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(a)
	require.NoError(t, err)
	assert.Len(t, raw, keyLength)
	assert.NotEqual(t, a, b)
}

func TestWriteEnvKey(t *testing.T) {
	dir := t.TempDir()

	t.Run("replaces placeholder", func(t *testing.T) {
		path := filepath.Join(dir, "placeholder.env")
		require.NoError(t, os.WriteFile(path, []byte("PORT=9000\nENCRYPTION_KEY="+config.EnvPlaceholder+"\n"), 0600))

		updated, err := writeEnvKey(path, "c2VjcmV0")
		require.NoError(t, err)
		assert.True(t, updated)

		env, err := godotenv.Read(path)
		require.NoError(t, err)
		assert.Equal(t, "c2VjcmV0", env["ENCRYPTION_KEY"])
		assert.Equal(t, "9000", env["PORT"])
	})

	t.Run("keeps existing key", func(t *testing.T) {
		path := filepath.Join(dir, "set.env")
		require.NoError(t, os.WriteFile(path, []byte("ENCRYPTION_KEY=already-set\n"), 0600))

		updated, err := writeEnvKey(path, "c2VjcmV0")
		require.NoError(t, err)
		assert.False(t, updated)

		env, err := godotenv.Read(path)
		require.NoError(t, err)
		assert.Equal(t, "already-set", env["ENCRYPTION_KEY"])
	})

	t.Run("missing file", func(t *testing.T) {
		updated, err := writeEnvKey(filepath.Join(dir, "absent.env"), "c2VjcmV0")
		require.NoError(t, err)
		assert.False(t, updated)
	})
}
