package ledger

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/layer-3/starnotary/core"
	"github.com/layer-3/starnotary/ports"
)

// MemoryLedger keeps the chain in a slice. It is meant for tests and
// single-process development.
type MemoryLedger struct {
	mu     sync.RWMutex
	blocks []core.Block
	now    func() time.Time
}

// NewMemoryLedger creates a ledger holding only the genesis block
func NewMemoryLedger(now func() time.Time) (*MemoryLedger, error) {
	if now == nil {
		now = time.Now
	}
	genesis, err := newGenesis(now())
	if err != nil {
		return nil, err
	}
	return &MemoryLedger{blocks: []core.Block{genesis}, now: now}, nil
}

var _ ports.Ledger = (*MemoryLedger)(nil)

func (l *MemoryLedger) Append(ctx context.Context, body json.RawMessage) (*core.Block, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	b, err := nextBlock(l.blocks[len(l.blocks)-1], body, l.now())
	if err != nil {
		return nil, err
	}
	l.blocks = append(l.blocks, b)
	return &b, nil
}

func (l *MemoryLedger) GetBlock(ctx context.Context, height int64) (*core.Block, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if height < 0 || height >= int64(len(l.blocks)) {
		return nil, core.ErrNotFound
	}
	b := l.blocks[height]
	return &b, nil
}

func (l *MemoryLedger) Height(ctx context.Context) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return int64(len(l.blocks) - 1), nil
}

func (l *MemoryLedger) Validate(ctx context.Context) ([]int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var bad []int64
	var prev *core.Block
	for i := range l.blocks {
		if !validateLink(prev, l.blocks[i]) {
			bad = append(bad, l.blocks[i].Height)
		}
		prev = &l.blocks[i]
	}
	return bad, nil
}
