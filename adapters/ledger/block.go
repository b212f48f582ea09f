// Package ledger provides hash-chained, append-only block storage for
// registered stars.
package ledger

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/fxamacker/cbor/v2"
	"github.com/layer-3/starnotary/core"
)

// GenesisStory is the body of the block at height 0.
const GenesisStory = "First block in the chain - Genesis block"

var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("ledger: cbor encoder: %v", err))
	}
}

// hashBlock returns the keccak256 of the block's deterministic CBOR encoding
// with the hash field cleared.
func hashBlock(b core.Block) (string, error) {
	b.Hash = ""
	data, err := encMode.Marshal(b)
	if err != nil {
		return "", fmt.Errorf("failed to encode block %d: %w", b.Height, err)
	}
	return hexutil.Encode(crypto.Keccak256(data)), nil
}

func newGenesis(now time.Time) (core.Block, error) {
	body, err := json.Marshal(GenesisStory)
	if err != nil {
		return core.Block{}, err
	}
	return seal(core.Block{
		Height: 0,
		Body:   body,
		Time:   strconv.FormatInt(now.Unix(), 10),
	})
}

func nextBlock(prev core.Block, body json.RawMessage, now time.Time) (core.Block, error) {
	return seal(core.Block{
		Height:            prev.Height + 1,
		Body:              body,
		Time:              strconv.FormatInt(now.Unix(), 10),
		PreviousBlockHash: prev.Hash,
	})
}

func seal(b core.Block) (core.Block, error) {
	hash, err := hashBlock(b)
	if err != nil {
		return core.Block{}, err
	}
	b.Hash = hash
	return b, nil
}

// validateLink checks a block's own hash and, past genesis, its link to prev.
func validateLink(prev *core.Block, b core.Block) bool {
	hash, err := hashBlock(b)
	if err != nil || hash != b.Hash {
		return false
	}
	if prev == nil {
		return b.Height == 0
	}
	return b.PreviousBlockHash == prev.Hash && b.Height == prev.Height+1
}
