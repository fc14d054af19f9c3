// Package keys derives and imports Solana keypairs.
package keys

import (
	"bytes"
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/AlexZinkM/custody-bot/internal/model"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/tyler-smith/go-bip39"
)

const entropyBits = 256 // 24 words

// Material is a plaintext keypair; callers must encrypt it before persisting.
type Material struct {
	Address    string
	PrivateKey solana.PrivateKey // full 64-byte key
	Mnemonic   string            // empty for raw key imports
}

// PrivateKeyBase58 returns the key in the format Phantom and solana-keygen export
func (m *Material) PrivateKeyBase58() string {
	return m.PrivateKey.String()
}

// Wipe zeroes the private key bytes
func (m *Material) Wipe() {
	clear(m.PrivateKey)
}

// Generate creates a keypair from a fresh random mnemonic
func Generate() (*Material, error) {
	entropy, err := bip39.NewEntropy(entropyBits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate entropy: %w", err)
	}
	defer clear(entropy)

	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return nil, fmt.Errorf("failed to generate mnemonic: %w", err)
	}

	return fromMnemonic(mnemonic)
}

// Import accepts a recovery phrase, a hex or base58 secret key (32-byte seed or 64-byte key),
// or a solana-keygen JSON byte array. Anything else fails with model.ErrImport.
func Import(input string) (*Material, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, fmt.Errorf("%w: empty input", model.ErrImport)
	}

	if words := strings.Fields(input); len(words) > 1 {
		mnemonic := strings.ToLower(strings.Join(words, " "))
		if !bip39.IsMnemonicValid(mnemonic) {
			return nil, fmt.Errorf("%w: invalid recovery phrase", model.ErrImport)
		}
		return fromMnemonic(mnemonic)
	}

	raw, err := decodeSecret(input)
	if err != nil {
		return nil, err
	}
	defer clear(raw)

	return fromSecret(raw)
}

func fromMnemonic(mnemonic string) (*Material, error) {
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, "")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrImport, err)
	}
	defer clear(seed)

	child, err := deriveEd25519(seed, solanaPath)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	defer clear(child)

	pk := solana.PrivateKey(ed25519.NewKeyFromSeed(child))
	return &Material{
		Address:    pk.PublicKey().String(),
		PrivateKey: pk,
		Mnemonic:   mnemonic,
	}, nil
}

func fromSecret(raw []byte) (*Material, error) {
	var pk solana.PrivateKey

	switch len(raw) {
	case ed25519.SeedSize:
		pk = solana.PrivateKey(ed25519.NewKeyFromSeed(raw))
	case ed25519.PrivateKeySize:
		pk = solana.PrivateKey(ed25519.NewKeyFromSeed(raw[:ed25519.SeedSize]))
		if !bytes.Equal(pk[ed25519.SeedSize:], raw[ed25519.SeedSize:]) {
			clear(pk)
			return nil, fmt.Errorf("%w: public half does not match secret", model.ErrImport)
		}
	default:
		return nil, fmt.Errorf("%w: secret must be 32 or 64 bytes, got %d", model.ErrImport, len(raw))
	}

	return &Material{
		Address:    pk.PublicKey().String(),
		PrivateKey: pk,
	}, nil
}

func decodeSecret(input string) ([]byte, error) {
	if strings.HasPrefix(input, "[") {
		pk, err := solana.PrivateKeyFromSolanaKeygenFileBytes([]byte(input))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrImport, err)
		}
		return pk, nil
	}

	if isHex(input) {
		if len(input) != 2*ed25519.SeedSize && len(input) != 2*ed25519.PrivateKeySize {
			return nil, fmt.Errorf("%w: hex secret must be 64 or 128 characters", model.ErrImport)
		}
		raw, err := hex.DecodeString(input)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid hex", model.ErrImport)
		}
		return raw, nil
	}

	raw, err := base58.Decode(input)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base58", model.ErrImport)
	}
	return raw, nil
}

func isHex(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
