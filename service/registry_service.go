package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/layer-3/starnotary/core"
	"github.com/layer-3/starnotary/ports"
)

// ChallengeStatus describes the outstanding challenge for an address
type ChallengeStatus struct {
	Address          string
	RequestTimeStamp int64
	Message          string
	ValidationWindow int64
}

// Verification is the outcome of a successful signature check
type Verification struct {
	Status ChallengeStatus
	// Grant is the grant state after verification. It stays used when the
	// address has already registered.
	Grant core.GrantState
}

// RegistryService runs the challenge, verification and registration handshake
type RegistryService struct {
	store    ports.StateStore
	ledger   ports.Ledger
	verifier ports.SignatureVerifier
	eventPub ports.EventPublisher
	window   *core.Window
	logger   *slog.Logger

	now       func() time.Time
	newTicket func() string
}

// Option customizes a RegistryService
type Option func(*RegistryService)

// WithClock replaces the wall clock
func WithClock(now func() time.Time) Option {
	return func(s *RegistryService) { s.now = now }
}

// WithLogger replaces the default logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *RegistryService) { s.logger = logger }
}

// NewRegistryService creates a new registry service. eventPub may be nil.
func NewRegistryService(
	store ports.StateStore,
	ledger ports.Ledger,
	verifier ports.SignatureVerifier,
	eventPub ports.EventPublisher,
	window *core.Window,
	opts ...Option,
) *RegistryService {
	s := &RegistryService{
		store:     store,
		ledger:    ledger,
		verifier:  verifier,
		eventPub:  eventPub,
		window:    window,
		logger:    slog.Default(),
		now:       time.Now,
		newTicket: newReservationID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Window returns the shared validation window
func (s *RegistryService) Window() *core.Window {
	return s.window
}

// SetValidationWindow overrides the validation window for every in-flight and future check
func (s *RegistryService) SetValidationWindow(seconds int64) error {
	if err := s.window.Set(seconds); err != nil {
		return err
	}
	s.logger.Info("validation window changed", "seconds", seconds)
	return nil
}

// loadChallenge reads the stored issuedAt for address
func (s *RegistryService) loadChallenge(ctx context.Context, address string) (core.Challenge, bool, error) {
	raw, found, err := s.store.Get(ctx, core.RequestKey(address))
	if err != nil {
		return core.Challenge{}, false, fmt.Errorf("%w: load challenge: %w", core.ErrStoreOperationFailed, err)
	}
	if !found {
		return core.Challenge{}, false, nil
	}
	issuedAt, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		// An unreadable timestamp cannot anchor a window; treat it like no challenge.
		s.logger.Warn("discarding malformed challenge timestamp", "address", address, "value", raw)
		return core.Challenge{}, false, nil
	}
	return core.Challenge{Address: address, IssuedAt: issuedAt}, true, nil
}

// RequestChallenge returns the live challenge for address, or issues a new one
// when none exists or the previous window has elapsed
func (s *RegistryService) RequestChallenge(ctx context.Context, address string) (ChallengeStatus, error) {
	if address == "" {
		return ChallengeStatus{}, core.ErrMissingAddress
	}

	now := s.now()
	challenge, found, err := s.loadChallenge(ctx, address)
	if err != nil {
		return ChallengeStatus{}, err
	}

	if found {
		if remaining := challenge.Remaining(s.window, now); remaining > 0 {
			return statusOf(challenge, remaining), nil
		}
		s.logger.Debug("validation window exceeded, starting a new one", "address", address)
	}

	challenge = core.Challenge{Address: address, IssuedAt: now.Unix()}
	if err := s.store.Set(ctx, core.RequestKey(address), strconv.FormatInt(challenge.IssuedAt, 10)); err != nil {
		return ChallengeStatus{}, fmt.Errorf("%w: store challenge: %w", core.ErrStoreOperationFailed, err)
	}

	return statusOf(challenge, s.window.Seconds()), nil
}

// VerifySignature checks signature against the outstanding challenge and, on
// success, grants address one registration
func (s *RegistryService) VerifySignature(ctx context.Context, address, signature string) (Verification, error) {
	if address == "" {
		return Verification{}, core.ErrMissingAddress
	}
	if signature == "" {
		return Verification{}, core.ErrMissingSignature
	}

	now := s.now()
	challenge, found, err := s.loadChallenge(ctx, address)
	if err != nil {
		return Verification{}, err
	}
	if !found {
		return Verification{}, core.ErrNoChallengeIssued
	}

	remaining := challenge.Remaining(s.window, now)
	if remaining <= 0 {
		s.logger.Debug("signature validation outside window", "address", address, "late_by", -remaining)
		return Verification{}, core.ErrWindowExpired
	}

	message := challenge.Message()
	if !s.verify(message, address, signature) {
		return Verification{}, core.ErrSignatureInvalid
	}

	// Never overwrite an existing grant: an unconsumed one is already in place
	// and a used one must stay used.
	grantKey := core.GrantKey(address)
	if _, err := s.store.SetNX(ctx, grantKey, core.UnconsumedGrant().Encode()); err != nil {
		return Verification{}, fmt.Errorf("%w: store grant: %w", core.ErrStoreOperationFailed, err)
	}
	grant, err := s.loadGrant(ctx, address)
	if err != nil {
		return Verification{}, err
	}

	if s.eventPub != nil && grant.State == core.GrantUnconsumed {
		if err := s.eventPub.PublishGrantVerified(ctx, address, challenge.IssuedAt); err != nil {
			s.logger.Warn("failed to publish grant event", "address", address, "error", err)
		}
	}

	return Verification{
		Status: statusOf(challenge, remaining),
		Grant:  grant.State,
	}, nil
}

// verify folds every verifier failure into a plain rejection
func (s *RegistryService) verify(message, address, signature string) bool {
	ok, err := s.verifier.Verify(message, address, signature)
	if err != nil {
		s.logger.Debug("signature verification failed", "address", address, "error", err)
		return false
	}
	return ok
}

func (s *RegistryService) loadGrant(ctx context.Context, address string) (core.Grant, error) {
	raw, found, err := s.store.Get(ctx, core.GrantKey(address))
	if err != nil {
		return core.Grant{}, fmt.Errorf("%w: load grant: %w", core.ErrStoreOperationFailed, err)
	}
	if !found {
		return core.Grant{State: core.GrantAbsent}, nil
	}
	return core.DecodeGrant(raw), nil
}

// GetBlock returns the ledger block at height
func (s *RegistryService) GetBlock(ctx context.Context, height int64) (*core.Block, error) {
	b, err := s.ledger.GetBlock(ctx, height)
	if errors.Is(err, core.ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrLedgerOperationFailed, err)
	}
	return b, nil
}

// ValidateChain returns the heights of blocks whose hash or link is broken
func (s *RegistryService) ValidateChain(ctx context.Context) ([]int64, error) {
	bad, err := s.ledger.Validate(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrLedgerOperationFailed, err)
	}
	return bad, nil
}

func statusOf(c core.Challenge, remaining int64) ChallengeStatus {
	return ChallengeStatus{
		Address:          c.Address,
		RequestTimeStamp: c.IssuedAt,
		Message:          c.Message(),
		ValidationWindow: remaining,
	}
}
