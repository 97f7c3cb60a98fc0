// Package localstore keeps small per-user key/value state, the server-side
// counterpart of a browser's local storage. Values are opaque strings;
// callers encode structured values as JSON.
package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Get when the key was never set or was deleted
var ErrNotFound = errors.New("key not found")

// Store is a per-user key/value store
type Store interface {
	Get(ctx context.Context, userID uuid.UUID, key string) (string, error)
	Set(ctx context.Context, userID uuid.UUID, key, value string) error
	Delete(ctx context.Context, userID uuid.UUID, key string) error
}

// GetJSON decodes the value under key into v. found is false when the key is
// not set; v is left untouched in that case.
func GetJSON(ctx context.Context, s Store, userID uuid.UUID, key string, v interface{}) (found bool, err error) {
	raw, err := s.Get(ctx, userID, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return true, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

// SetJSON encodes v and stores it under key
func SetJSON(ctx context.Context, s Store, userID uuid.UUID, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return s.Set(ctx, userID, key, string(raw))
}
