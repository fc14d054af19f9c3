package config

import (
	"testing"
	"time"

	"github.com/AlexZinkM/custody-bot/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("ENCRYPTION_KEY", "")

	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", c.Port)
	assert.Equal(t, DevEncryptionKey, c.EncryptionKey)
	assert.Equal(t, []string{"https://api.mainnet-beta.solana.com"}, c.SolanaRPCURLs)
	assert.Equal(t, 5, c.RPCPoolSize)
	assert.Equal(t, 5, c.RateLimitMaxRequests)
	assert.Equal(t, 5*time.Second, c.RateLimitWindow)
	assert.Equal(t, 3*time.Second, c.RateLimitCooldown)
	assert.Equal(t, 2*time.Minute, c.CacheShortTTL)
	assert.Equal(t, 15*time.Minute, c.CacheLongTTL)
	assert.Equal(t, time.Hour, c.CacheUltraTTL)
	assert.Equal(t, 150.0, c.DefaultSOLPrice)
	assert.False(t, c.StrictWalletGeneration)
}

func TestLoad_RPCList(t *testing.T) {
	t.Setenv("ENCRYPTION_KEY", "k")
	t.Setenv("SOLANA_RPC_URLS", "https://a.example, https://b.example")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.SolanaRPCURLs)
}

func TestLoad_ProductionRequiresKey(t *testing.T) {
	t.Setenv("APP_ENV", "production")

	cases := map[string]string{
		"missing":     "",
		"placeholder": EnvPlaceholder,
		"dev key":     DevEncryptionKey,
	}
	for name, key := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("ENCRYPTION_KEY", key)
			_, err := Load()
			require.Error(t, err)
			assert.True(t, model.IsConfigurationError(err))
		})
	}

	t.Setenv("ENCRYPTION_KEY", "real-secret")
	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "real-secret", c.EncryptionKey)
}

func TestValidate_Tiers(t *testing.T) {
	t.Setenv("ENCRYPTION_KEY", "k")
	t.Setenv("CACHE_SHORT_TTL", "30m")

	_, err := Load()
	assert.True(t, model.IsConfigurationError(err))
}
