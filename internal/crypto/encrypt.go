package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/AlexZinkM/custody-bot/internal/model"

	"golang.org/x/crypto/scrypt"
)

const (
	// scrypt parameters for password-protected backups.
	// N=2^18 needs ~256MB RAM and 0.5-2s, which keeps brute force expensive
	// while still opening on phones.
	scryptN      = 1 << 18
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 32
	saltLen      = 32

	// BackupExt is the required extension of backup files
	BackupExt = ".cwt"

	networkSolana = "solana"
)

// ErrBackupExists is returned when the target backup file already has content
var ErrBackupExists = errors.New("backup file is not empty")

// WriteBackup encrypts data under password and writes it to a .cwt file.
// address and qrCode are stored in clear so the file can be identified without the password.
// password must be []byte for security (caller should zero it after use)
func WriteBackup(filePath, address, qrCode string, data *model.BackupData, password []byte) error {
	if !strings.HasSuffix(filePath, BackupExt) {
		return fmt.Errorf("file must have %s extension", BackupExt)
	}
	if len(password) == 0 {
		return errors.New("password cannot be empty")
	}

	if fileInfo, err := os.Stat(filePath); err == nil && fileInfo.Size() > 0 {
		return ErrBackupExists
	}

	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}

	nonce := make([]byte, ivLen)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}

	aesGCM, err := backupCipher(password, salt)
	if err != nil {
		return err
	}

	plaintext, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal backup data: %w", err)
	}
	defer clear(plaintext) // wipe plaintext bytes from memory

	ciphertext := aesGCM.Seal(nil, nonce, plaintext, nil)

	cwtFile := model.CWTFile{
		Network:    networkSolana,
		Address:    address,
		QR:         qrCode,
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		CipherText: base64.StdEncoding.EncodeToString(ciphertext),
	}

	fileData, err := json.MarshalIndent(cwtFile, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cwt file: %w", err)
	}

	// UTF-8 BOM for proper display in Windows
	out := append(append([]byte{}, utf8BOM...), fileData...)
	if err := os.WriteFile(filePath, out, 0600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// backupCipher derives the scrypt key for salt and wraps it in AES-GCM
func backupCipher(password, salt []byte) (cipher.AEAD, error) {
	key, err := scrypt.Key(password, salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	defer clear(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aesGCM, nil
}
