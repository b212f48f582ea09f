package ports

import (
	"context"
	"encoding/json"

	"github.com/layer-3/starnotary/core"
)

// Ledger is the append-only record of registered stars.
type Ledger interface {
	Append(ctx context.Context, body json.RawMessage) (*core.Block, error)
	// GetBlock returns core.ErrNotFound when no block exists at height.
	GetBlock(ctx context.Context, height int64) (*core.Block, error)
	Height(ctx context.Context) (int64, error)
	// Validate recomputes hashes and links and returns the heights that fail.
	Validate(ctx context.Context) ([]int64, error)
}
