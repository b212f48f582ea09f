// Package starnotary is the Go client for the star registration API.
package starnotary

import (
	"context"
	"encoding/json"

	"github.com/layer-3/starnotary/core"
)

// Client represents the public interface for interacting with the registry
type Client interface {
	// RequestValidation returns the live challenge for address, issuing one if needed
	RequestValidation(ctx context.Context, address string) (Challenge, error)

	// ValidateSignature proves control of address by signing the challenge message
	ValidateSignature(ctx context.Context, address, signature string) (Validation, error)

	// RegisterStar spends the address's grant on one star
	RegisterStar(ctx context.Context, address string, star core.Star) (Block, error)

	// GetBlock fetches a ledger block by height
	GetBlock(ctx context.Context, height int64) (Block, error)
}

// Challenge is the server's answer to a validation request
type Challenge struct {
	Address          string `json:"address"`
	RequestTimeStamp string `json:"requestTimeStamp"`
	Message          string `json:"message"`
	ValidationWindow int64  `json:"validationWindow"`
}

// Validation is the server's answer to a signature check
type Validation struct {
	RegisterStar bool `json:"registerStar"`
	Status       struct {
		Challenge
		MessageSignature string `json:"messageSignature"`
	} `json:"status"`
}

// Block is a ledger block as served by the API
type Block struct {
	Hash              string          `json:"hash"`
	Height            int64           `json:"height"`
	Body              json.RawMessage `json:"body"`
	Time              string          `json:"time"`
	PreviousBlockHash string          `json:"previousBlockHash"`
}
