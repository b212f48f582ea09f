package core

import "encoding/json"

// Block is a ledger record. Body holds the registered submission, or the
// genesis text at height 0.
type Block struct {
	Hash              string          `json:"hash" cbor:"1,keyasint"`
	Height            int64           `json:"height" cbor:"2,keyasint"`
	Body              json.RawMessage `json:"body" cbor:"3,keyasint"`
	Time              string          `json:"time" cbor:"4,keyasint"`
	PreviousBlockHash string          `json:"previousBlockHash" cbor:"5,keyasint"`
}
