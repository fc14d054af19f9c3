package model

import (
	"errors"
	"fmt"
)

var (
	// ErrDecryption is returned when an encrypted blob is malformed or fails authentication
	ErrDecryption = errors.New("decryption failed")

	// ErrImport is returned when an imported secret is neither a valid mnemonic nor a raw key
	ErrImport = errors.New("invalid secret key or recovery phrase")

	ErrNoWallet          = errors.New("user has no active wallet")
	ErrWalletNotFound    = errors.New("wallet not found")
	ErrWalletLimit       = fmt.Errorf("wallet limit reached (max %d)", MaxWalletsPerUser)
	ErrDuplicateWallet   = errors.New("wallet already exists")
	ErrPlaceholderWallet = errors.New("wallet is a placeholder and holds no key")
	ErrInvalidWalletName = fmt.Errorf("wallet name must be 1 to %d characters", MaxWalletNameLength)
)

// ConfigurationError is a fatal startup misconfiguration
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Message)
}

// IsConfigurationError checks if error is ConfigurationError
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// PersistenceError is returned when saving a user failed even with minimal data
type PersistenceError struct {
	UserID string
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to persist user %s: %v", e.UserID, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsPersistenceError checks if error is PersistenceError
func IsPersistenceError(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}

// ErrorResponse is the JSON body of every API error. Code is a stable machine-readable
// identifier such as "wallet_limit" or "rate_limited".
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// ErrInvalidAddress is returned for strings that are not base58 Solana public keys
var ErrInvalidAddress = errors.New("invalid Solana address")
