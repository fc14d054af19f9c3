package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"

	"github.com/AlexZinkM/custody-bot/internal/config"
	"github.com/AlexZinkM/custody-bot/internal/crypto"
	"github.com/AlexZinkM/custody-bot/internal/logger"
	"github.com/AlexZinkM/custody-bot/internal/storage/postgres"
	"github.com/AlexZinkM/custody-bot/internal/wallet"
	"github.com/AlexZinkM/custody-bot/solana"

	"github.com/joho/godotenv"
	"github.com/urfave/cli"
)

const keyLength = 32 // 256 bits

var (
	envFileFlag = cli.StringFlag{
		Name:  "env-file",
		Usage: "Write the key into this .env file if its ENCRYPTION_KEY is still the placeholder",
		Value: ".env",
	}
	oldKeyFlag = cli.StringFlag{
		Name:   "old-key",
		Usage:  "Current encryption secret",
		EnvVar: "ENCRYPTION_KEY",
	}
	newKeyFlag = cli.StringFlag{
		Name:  "new-key",
		Usage: "Encryption secret to re-encrypt with",
	}
	userFlag = cli.StringFlag{
		Name:  "user",
		Usage: "ID of the user to back up",
	}
	outFlag = cli.StringFlag{
		Name:  "out",
		Usage: "Backup file path (.cwt)",
	}
)

func main() {
	app := cli.NewApp()
	app.Name = "walletctl"
	app.Usage = "Maintenance tool for the custody wallet store"
	app.Version = "v0.1.0"
	app.Commands = []cli.Command{
		{
			Name:   "genkey",
			Usage:  "Generate a random ENCRYPTION_KEY",
			Flags:  []cli.Flag{envFileFlag},
			Action: genKey,
		},
		{
			Name:   "rotate-key",
			Usage:  "Re-encrypt every stored secret with a new ENCRYPTION_KEY",
			Flags:  []cli.Flag{oldKeyFlag, newKeyFlag},
			Action: rotateKey,
		},
		{
			Name:   "backup",
			Usage:  "Write a password-protected backup of a user's wallets",
			Flags:  []cli.Flag{userFlag, outFlag},
			Action: backup,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func genKey(c *cli.Context) error {
	key, err := generateKey()
	if err != nil {
		return err
	}
	fmt.Printf("Generated encryption key: %s\n", key)
	fmt.Println("Store this key securely and add it to your .env file as ENCRYPTION_KEY")

	updated, err := writeEnvKey(c.String(envFileFlag.Name), key)
	if err != nil {
		return err
	}
	if updated {
		fmt.Printf("Updated %s with the new encryption key\n", c.String(envFileFlag.Name))
	}
	return nil
}

// generateKey returns keyLength random bytes in base64
func generateKey() (string, error) {
	buf := make([]byte, keyLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}
	defer clear(buf)
	return base64.StdEncoding.EncodeToString(buf), nil
}

// writeEnvKey stores key in path only when ENCRYPTION_KEY holds the placeholder.
// A missing file is not an error.
func writeEnvKey(path, key string) (bool, error) {
	env, err := godotenv.Read(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if env["ENCRYPTION_KEY"] != config.EnvPlaceholder {
		return false, nil
	}

	env["ENCRYPTION_KEY"] = key
	if err := godotenv.Write(env, path); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return true, nil
}

func rotateKey(c *cli.Context) error {
	oldKey, newKey := c.String(oldKeyFlag.Name), c.String(newKeyFlag.Name)
	if oldKey == "" || newKey == "" {
		return errors.New("both --old-key and --new-key are required")
	}
	if oldKey == newKey {
		return errors.New("new key must differ from the old key")
	}

	oldVault, err := crypto.NewVault(oldKey)
	if err != nil {
		return err
	}
	newVault, err := crypto.NewVault(newKey)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := context.Background()
	store, err := postgres.NewUserStore(ctx, postgres.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := solana.RotateKey(ctx, store, oldVault, newVault)
	if err != nil {
		return fmt.Errorf("rotation stopped after %d users: %w", n, err)
	}
	fmt.Printf("Re-encrypted secrets of %d users\n", n)
	fmt.Println("Set ENCRYPTION_KEY to the new key before restarting the server")
	return nil
}

func backup(c *cli.Context) error {
	userID, out := c.String(userFlag.Name), c.String(outFlag.Name)
	if userID == "" || out == "" {
		return errors.New("both --user and --out are required")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel)

	vault, err := crypto.NewVault(cfg.EncryptionKey)
	if err != nil {
		return err
	}
	ctx := context.Background()
	store, err := postgres.NewUserStore(ctx, postgres.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return err
	}
	defer store.Close()

	password, err := config.PromptForPassword("Backup password: ")
	if err != nil {
		return err
	}
	defer clear(password)
	confirm, err := config.PromptForPassword("Repeat password: ")
	if err != nil {
		return err
	}
	defer clear(confirm)
	if string(password) != string(confirm) {
		return errors.New("passwords do not match")
	}

	// backup needs neither market data nor rate limiting
	svc := solana.NewService(store, vault, wallet.NewManager(store, vault, log), nil, nil, log)
	address, err := svc.Backup(ctx, userID, out, password)
	if err != nil {
		return err
	}
	fmt.Printf("Backup of %s written to %s\n", address, out)
	return nil
}

func loadConfig() (*config.Config, error) {
	if err := config.Init(); err != nil {
		return nil, err
	}
	cfg := config.Get()
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required: maintenance commands operate on the persistent store")
	}
	return cfg, nil
}
