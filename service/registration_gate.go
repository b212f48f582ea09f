package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/layer-3/starnotary/core"
)

func newReservationID() string {
	return uuid.New().String()
}

// RegisterStar spends the address's grant on exactly one ledger append.
//
// The grant is first swapped from unconsumed to a reservation owned by this
// call, so concurrent attempts for the same address lose the swap. A failed
// append releases the reservation; a failed final write leaves it in place,
// which keeps the address blocked rather than letting it register twice.
func (s *RegistryService) RegisterStar(ctx context.Context, submission core.Submission) (*core.Block, error) {
	normalized, err := submission.Normalize()
	if err != nil {
		return nil, err
	}
	address := normalized.Address

	grant, err := s.loadGrant(ctx, address)
	if err != nil {
		return nil, err
	}
	switch {
	case grant.State == core.GrantAbsent:
		return nil, core.ErrUnauthorized
	case grant.Used():
		return nil, core.ErrAlreadyRegistered
	}

	body, err := json.Marshal(normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to encode submission: %w", err)
	}

	grantKey := core.GrantKey(address)
	unconsumed := core.UnconsumedGrant().Encode()
	reservation := core.ReservedGrant(s.newTicket()).Encode()

	swapped, err := s.store.CompareAndSwap(ctx, grantKey, unconsumed, reservation)
	if err != nil {
		return nil, fmt.Errorf("%w: reserve grant: %w", core.ErrStoreOperationFailed, err)
	}
	if !swapped {
		return nil, core.ErrAlreadyRegistered
	}

	// From here on the reservation must be resolved even if the caller goes away.
	settleCtx := context.WithoutCancel(ctx)

	block, err := s.ledger.Append(ctx, body)
	if err != nil {
		if _, releaseErr := s.store.CompareAndSwap(settleCtx, grantKey, reservation, unconsumed); releaseErr != nil {
			s.logger.Error("failed to release grant after ledger failure",
				"address", address, "error", releaseErr)
		}
		return nil, fmt.Errorf("%w: append block: %w", core.ErrLedgerOperationFailed, err)
	}

	consumed := core.ConsumedGrant(s.now().Unix()).Encode()
	if _, err := s.store.CompareAndSwap(settleCtx, grantKey, reservation, consumed); err != nil {
		// The reservation still marks the grant as used.
		s.logger.Error("failed to mark grant consumed",
			"address", address, "height", block.Height, "error", err)
	}

	s.logger.Info("star registered", "address", address, "height", block.Height, "hash", block.Hash)

	if s.eventPub != nil {
		if err := s.eventPub.PublishStarRegistered(settleCtx, address, block); err != nil {
			s.logger.Warn("failed to publish registration event", "address", address, "error", err)
		}
	}

	return block, nil
}

// GrantState reports the current grant state for address
func (s *RegistryService) GrantState(ctx context.Context, address string) (core.GrantState, error) {
	grant, err := s.loadGrant(ctx, address)
	if err != nil {
		return core.GrantAbsent, err
	}
	return grant.State, nil
}
