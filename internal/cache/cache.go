// Package cache stores timestamped market data entries. Tiering by age is the caller's job:
// stores never drop an entry because it is old, only to stay within their size bound.
package cache

import (
	"context"
	"time"
)

// Entry is one cached value and the time it was fetched
type Entry struct {
	Data      []byte    `json:"data"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Age returns how old the entry is at now
func (e Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.UpdatedAt)
}

// Store is a keyed get/set container. Set is last-writer-wins per key.
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, e Entry) error
}
