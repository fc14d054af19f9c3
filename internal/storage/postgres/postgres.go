package postgres

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"github.com/AlexZinkM/custody-bot/internal/model"
	"github.com/AlexZinkM/custody-bot/internal/storage"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Config holds PostgreSQL connection configuration.
type Config struct {
	URL      string
	MaxConns int
	MinConns int
}

// UserStore keeps user documents as JSONB rows.
type UserStore struct {
	db *sqlx.DB
}

// NewUserStore connects, applies migrations and returns the store.
func NewUserStore(ctx context.Context, cfg Config) (*UserStore, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
	} else {
		db.SetMaxOpenConns(10)
	}
	if cfg.MinConns > 0 {
		db.SetMaxIdleConns(cfg.MinConns)
	} else {
		db.SetMaxIdleConns(2)
	}
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(30 * time.Minute)

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db.DB, "migrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &UserStore{db: db}, nil
}

// Close closes the connection pool.
func (s *UserStore) Close() error {
	return s.db.Close()
}

// Load retrieves the user document by id.
func (s *UserStore) Load(ctx context.Context, id string) (*model.User, error) {
	var doc []byte
	err := s.db.GetContext(ctx, &doc, `SELECT doc FROM users WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	var user model.User
	if err := json.Unmarshal(doc, &user); err != nil {
		return nil, fmt.Errorf("failed to decode user document: %w", err)
	}
	return &user, nil
}

// Save upserts the user document.
func (s *UserStore) Save(ctx context.Context, user *model.User) error {
	doc, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode user document: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (id, doc, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()`,
		user.ID, doc,
	)
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

// List returns every user id.
func (s *UserStore) List(ctx context.Context) ([]string, error) {
	var ids []string
	if err := s.db.SelectContext(ctx, &ids, `SELECT id FROM users ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return ids, nil
}

var _ storage.UserStore = (*UserStore)(nil)
