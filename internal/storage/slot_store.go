package storage

import (
	"context"
	"errors"
)

// ErrStoreClosed is returned by operations on a closed store
var ErrStoreClosed = errors.New("slot store closed")

// SlotStore is the persisted key/value storage behind the image slots.
// Keys are slot identities, values are data URLs.
type SlotStore interface {
	// Get returns the stored value and whether the key is present
	Get(ctx context.Context, key string) (string, bool, error)

	// Put writes the value, replacing any previous one
	Put(ctx context.Context, key, value string) error

	// Delete removes the key; deleting a missing key is not an error
	Delete(ctx context.Context, key string) error

	// Close releases the backend
	Close() error
}
