package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLamports(t *testing.T) {
	assert.Equal(t, "0.024981836", LamportsToSOL(24981836))
	assert.Equal(t, "1.000000000", LamportsToSOL(1_000_000_000))
	assert.Equal(t, "0.000000000", LamportsToSOL(0))
	assert.Equal(t, 1.5, LamportsToFloat(1_500_000_000))
}

func TestTokenAmountToFloat(t *testing.T) {
	f, err := TokenAmountToFloat("123456789", 6)
	require.NoError(t, err)
	assert.Equal(t, 123.456789, f)

	f, err = TokenAmountToFloat("42", 0)
	require.NoError(t, err)
	assert.Equal(t, 42.0, f)

	_, err = TokenAmountToFloat("-1", 6)
	assert.Error(t, err)
}

func TestParsePrice(t *testing.T) {
	p, err := ParsePrice(" 187.42 ")
	require.NoError(t, err)
	assert.Equal(t, 187.42, p)

	_, err = ParsePrice("n/a")
	assert.Error(t, err)
}
