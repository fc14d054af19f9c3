package storage

import (
	"context"
	"errors"

	"github.com/AlexZinkM/custody-bot/internal/model"
)

var (
	// ErrUserNotFound is returned when a user document doesn't exist
	ErrUserNotFound = errors.New("user not found")
)

// UserStore loads and saves whole user documents.
// Implementations must provide read-your-writes consistency per user.
type UserStore interface {
	// Load retrieves the user document by id
	Load(ctx context.Context, id string) (*model.User, error)

	// Save upserts the whole user document
	Save(ctx context.Context, user *model.User) error

	// List returns every user id, used by maintenance tools
	List(ctx context.Context) ([]string, error)
}
