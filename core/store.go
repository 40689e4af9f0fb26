package core

import (
	"context"

	"github.com/pkg/errors"
)

var ErrKeyNotFound = errors.New("key not found")

// Store is a flat string key-value store holding session state and user preferences.
type Store interface {
	// Get returns ErrKeyNotFound if key is not set.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	// Delete is a no-op for missing keys.
	Delete(ctx context.Context, keys ...string) error
	Clear(ctx context.Context) error
}
