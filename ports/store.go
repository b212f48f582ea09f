package ports

import "context"

// StateStore holds per-address challenge and grant state.
// Get reports absence through found rather than an error, so a missing key is
// never confused with a backend fault.
type StateStore interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	// SetNX stores value only when key is absent and reports whether it did.
	SetNX(ctx context.Context, key, value string) (bool, error)
	// CompareAndSwap replaces old with new atomically and reports whether it did.
	CompareAndSwap(ctx context.Context, key, old, new string) (bool, error)
}
