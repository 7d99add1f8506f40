package cache

import (
	"context"
	"time"
)

// NullCache backs "--no-cache" and backend "none": reports are solved and
// renderings produced on every run, and "labeltower cache clear" finds
// nothing to remove.
type NullCache struct{}

// NewNullCache creates a null cache.
func NewNullCache() Cache {
	return NullCache{}
}

// Get reports every report and render key as missing.
func (NullCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, nil
}

// Set drops data.
func (NullCache) Set(context.Context, string, []byte, time.Duration) error {
	return nil
}

// Delete is a no-op.
func (NullCache) Delete(context.Context, string) error {
	return nil
}

// Clear removes nothing and reports zero entries.
func (NullCache) Clear(context.Context) (int, error) {
	return 0, nil
}

// Close is a no-op.
func (NullCache) Close() error {
	return nil
}

var (
	_ Cache   = NullCache{}
	_ Clearer = NullCache{}
)
