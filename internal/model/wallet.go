package model

import "time"

const (
	// MaxWalletsPerUser is the capacity of User.Wallets
	MaxWalletsPerUser = 6

	MaxWalletNameLength = 32
)

// Wallet is one custodial keypair owned by a User.
// Address is immutable once created, Name is user-mutable.
type Wallet struct {
	Name                string    `json:"name"`
	Address             string    `json:"address"`
	EncryptedPrivateKey string    `json:"encryptedPrivateKey"`
	EncryptedMnemonic   string    `json:"encryptedMnemonic,omitempty"`
	IsActive            bool      `json:"isActive"`
	Placeholder         bool      `json:"placeholder,omitempty"` // synthesized when key generation failed
	CreatedAt           time.Time `json:"createdAt"`
}

// User is the persisted document of one end user.
// WalletAddress, EncryptedPrivateKey and EncryptedMnemonic mirror the active wallet
// for older callers that predate multi-wallet support.
type User struct {
	ID      string   `json:"id"`
	Wallets []Wallet `json:"wallets"`

	WalletAddress       string `json:"walletAddress,omitempty"`
	EncryptedPrivateKey string `json:"encryptedPrivateKey,omitempty"`
	EncryptedMnemonic   string `json:"encryptedMnemonic,omitempty"`

	UpdatedAt time.Time `json:"updatedAt"`
}

// Clone returns a deep copy of the user document
func (u *User) Clone() *User {
	c := *u
	c.Wallets = append([]Wallet(nil), u.Wallets...)
	return &c
}

// GeneratedWallet is the result of generating or importing a keypair,
// with secrets already encrypted.
type GeneratedWallet struct {
	PublicAddress       string `json:"publicAddress"`
	EncryptedPrivateKey string `json:"encryptedPrivateKey"`
	EncryptedMnemonic   string `json:"encryptedMnemonic,omitempty"`
}

// CWTFile represents .cwt backup file structure
type CWTFile struct {
	Network    string `json:"network"`
	Address    string `json:"address"`
	QR         string `json:"QR"`
	Salt       string `json:"salt"`
	Nonce      string `json:"nonce"`
	CipherText string `json:"cipherText"`
}

// BackupData represents decrypted backup contents
type BackupData struct {
	UserID    string         `json:"userId"`
	Wallets   []BackupWallet `json:"wallets"`
	CreatedAt string         `json:"createdAt"`
}

// BackupWallet holds plaintext secrets of one wallet inside an encrypted backup
type BackupWallet struct {
	Name       string `json:"name"`
	Address    string `json:"address"`
	PrivateKey string `json:"privateKey"` // base58
	Mnemonic   string `json:"mnemonic,omitempty"`
}
