package ports

import (
	"context"

	"github.com/layer-3/starnotary/core"
)

// EventPublisher notifies other services about registry activity
type EventPublisher interface {
	PublishGrantVerified(ctx context.Context, address string, issuedAt int64) error
	PublishStarRegistered(ctx context.Context, address string, block *core.Block) error
}
