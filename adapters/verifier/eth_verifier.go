package verifier

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/layer-3/starnotary/ports"
)

var (
	errInvalidAddress   = errors.New("invalid ethereum address")
	errNotChecksummed   = errors.New("address must be in EIP-55 checksummed form")
	errSignatureLength  = errors.New("signature must be 65 bytes")
	errRecoveryIDFormat = errors.New("invalid recovery id")
)

// EthVerifier checks EIP-191 personal_sign signatures, the format produced by
// wallets for plain-text messages.
type EthVerifier struct{}

// NewEthVerifier creates a new Ethereum signature verifier
func NewEthVerifier() ports.SignatureVerifier {
	return EthVerifier{}
}

// Verify recovers the signer of message and compares it with address. Only the
// checksummed 0x-prefixed spelling of an address is accepted.
func (EthVerifier) Verify(message, address, signature string) (bool, error) {
	if !common.IsHexAddress(address) {
		return false, errInvalidAddress
	}
	if common.HexToAddress(address).Hex() != address {
		return false, errNotChecksummed
	}

	sig, err := hexutil.Decode(signature)
	if err != nil {
		return false, fmt.Errorf("failed to decode signature: %w", err)
	}
	if len(sig) != crypto.SignatureLength {
		return false, errSignatureLength
	}

	// Wallets emit V as 27/28; crypto.SigToPub expects 0/1.
	sig = append([]byte(nil), sig...)
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}
	if sig[crypto.RecoveryIDOffset] > 1 {
		return false, errRecoveryIDFormat
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return false, fmt.Errorf("failed to recover public key: %w", err)
	}

	return crypto.PubkeyToAddress(*pub).Hex() == address, nil
}

// Sign produces a personal_sign signature over message with V in 27/28 form,
// the same encoding a wallet returns.
func Sign(message string, key *ecdsa.PrivateKey) (string, error) {
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
	if err != nil {
		return "", fmt.Errorf("failed to sign message: %w", err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig), nil
}
