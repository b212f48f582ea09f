package ports

// SignatureVerifier checks that signature over message was produced by address.
// Callers treat any error as a failed verification.
type SignatureVerifier interface {
	Verify(message, address, signature string) (bool, error)
}
