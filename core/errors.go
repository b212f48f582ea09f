package core

import "errors"

var (
	// Protocol-state rejections
	ErrNoChallengeIssued = errors.New("no validation request found for address")
	ErrWindowExpired     = errors.New("validation window has expired")
	ErrSignatureInvalid  = errors.New("signature could not be verified")
	ErrUnauthorized      = errors.New("not authorized to register a star")
	ErrAlreadyRegistered = errors.New("address has already registered a star")

	// Input rejections
	ErrMissingAddress   = errors.New("no address provided")
	ErrMissingSignature = errors.New("no signature provided")
	ErrMissingStar      = errors.New("no star data provided")
	ErrMissingRA        = errors.New("no right ascension in star data provided")
	ErrMissingDec       = errors.New("no declination in star data provided")
	ErrMissingStory     = errors.New("no story in star data provided")
	ErrStoryTooLong     = errors.New("story exceeds 500 bytes once encoded")
	ErrInvalidWindow    = errors.New("validation window must be at least one second")

	ErrNotFound = errors.New("item not found")

	// Backend faults
	ErrStoreOperationFailed  = errors.New("store operation failed")
	ErrLedgerOperationFailed = errors.New("ledger operation failed")
)

// IsInputError reports whether err is caused by a malformed request.
func IsInputError(err error) bool {
	for _, target := range []error{
		ErrMissingAddress, ErrMissingSignature, ErrMissingStar, ErrMissingRA,
		ErrMissingDec, ErrMissingStory, ErrStoryTooLong, ErrInvalidWindow,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
