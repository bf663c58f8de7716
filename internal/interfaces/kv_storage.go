package interfaces

import (
	"context"
	"errors"
	"time"
)

// ErrKeyNotFound is returned when a key is not found in the key/value store
var ErrKeyNotFound = errors.New("key not found")

// KeyValuePair is one stored setting. Keys are case-insensitive.
type KeyValuePair struct {
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// KeyValueStorage holds runtime settings: the session flag, the custom
// prompt and AI configuration overrides.
type KeyValueStorage interface {
	// Get returns ErrKeyNotFound when key is unset
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, description string) error
	// Delete returns ErrKeyNotFound when key is unset
	Delete(ctx context.Context, key string) error
	DeleteAll(ctx context.Context) error
	GetAll(ctx context.Context) (map[string]string, error)
}
