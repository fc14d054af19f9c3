package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/AlexZinkM/custody-bot/internal/model"
)

const (
	ivLen  = 12
	tagLen = 16

	blobSeparator = ":"
)

// Blob is an AES-256-GCM ciphertext with its nonce and authentication tag kept apart.
// Serialized as hex(iv):hex(tag):hex(ciphertext).
type Blob struct {
	IV         []byte
	Tag        []byte
	Ciphertext []byte
}

func (b Blob) String() string {
	return hex.EncodeToString(b.IV) + blobSeparator +
		hex.EncodeToString(b.Tag) + blobSeparator +
		hex.EncodeToString(b.Ciphertext)
}

// ParseBlob parses the serialized form produced by Blob.String
func ParseBlob(s string) (Blob, error) {
	parts := strings.Split(s, blobSeparator)
	if len(parts) != 3 {
		return Blob{}, fmt.Errorf("%w: expected 3 segments, got %d", model.ErrDecryption, len(parts))
	}

	iv, err := hex.DecodeString(parts[0])
	if err != nil || len(iv) != ivLen {
		return Blob{}, fmt.Errorf("%w: invalid iv", model.ErrDecryption)
	}
	tag, err := hex.DecodeString(parts[1])
	if err != nil || len(tag) != tagLen {
		return Blob{}, fmt.Errorf("%w: invalid tag", model.ErrDecryption)
	}
	ciphertext, err := hex.DecodeString(parts[2])
	if err != nil {
		return Blob{}, fmt.Errorf("%w: invalid ciphertext", model.ErrDecryption)
	}

	return Blob{IV: iv, Tag: tag, Ciphertext: ciphertext}, nil
}

// Vault encrypts custodial secrets with a key derived once from the configured secret.
// It holds no other state and is safe for concurrent use.
type Vault struct {
	aead cipher.AEAD
}

// NewVault derives a 256-bit key from secret with SHA-256 so that any secret length works.
func NewVault(secret string) (*Vault, error) {
	if secret == "" {
		return nil, errors.New("encryption secret is empty")
	}

	key := sha256.Sum256([]byte(secret))
	defer clear(key[:])

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aesGCM, err := cipher.NewGCMWithTagSize(block, tagLen)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &Vault{aead: aesGCM}, nil
}

// Encrypt seals plaintext under a fresh random nonce
func (v *Vault) Encrypt(plaintext string) (Blob, error) {
	iv := make([]byte, ivLen)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return Blob{}, fmt.Errorf("failed to generate nonce: %w", err)
	}

	pt := []byte(plaintext)
	defer clear(pt)

	sealed := v.aead.Seal(nil, iv, pt, nil)
	split := len(sealed) - tagLen

	return Blob{
		IV:         iv,
		Tag:        sealed[split:],
		Ciphertext: sealed[:split],
	}, nil
}

// Decrypt opens b; any authentication failure yields model.ErrDecryption and no plaintext.
func (v *Vault) Decrypt(b Blob) (string, error) {
	if len(b.IV) != ivLen || len(b.Tag) != tagLen {
		return "", fmt.Errorf("%w: malformed blob", model.ErrDecryption)
	}

	sealed := make([]byte, 0, len(b.Ciphertext)+tagLen)
	sealed = append(sealed, b.Ciphertext...)
	sealed = append(sealed, b.Tag...)

	plaintext, err := v.aead.Open(nil, b.IV, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: authentication failed", model.ErrDecryption)
	}
	defer clear(plaintext)

	return string(plaintext), nil
}

// EncryptString encrypts plaintext and returns the serialized blob
func (v *Vault) EncryptString(plaintext string) (string, error) {
	b, err := v.Encrypt(plaintext)
	if err != nil {
		return "", err
	}
	return b.String(), nil
}

// DecryptString parses and decrypts a serialized blob
func (v *Vault) DecryptString(s string) (string, error) {
	b, err := ParseBlob(s)
	if err != nil {
		return "", err
	}
	return v.Decrypt(b)
}
