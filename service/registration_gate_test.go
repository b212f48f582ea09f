package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/layer-3/starnotary/core"
	"github.com/layer-3/starnotary/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEndToEndRegistration(t *testing.T) {
	f := newFixture(t, core.DefaultValidationWindow)
	ctx := context.Background()
	w := newWallet(t)

	status, err := f.svc.RequestChallenge(ctx, w.address)
	require.NoError(t, err)
	assert.Equal(t, w.address+":1538092394:starRegistry", status.Message)

	v, err := f.svc.VerifySignature(ctx, w.address, w.sign(t, status.Message))
	require.NoError(t, err)
	assert.Equal(t, core.GrantUnconsumed, v.Grant)

	block, err := f.svc.RegisterStar(ctx, starFor(w.address))
	require.NoError(t, err)
	assert.Equal(t, int64(1), block.Height)

	var body core.Submission
	require.NoError(t, json.Unmarshal(block.Body, &body))
	assert.Equal(t, w.address, body.Address)
	assert.Equal(t, core.EncodeStory("x"), body.Star.Story)

	state, err := f.svc.GrantState(ctx, w.address)
	require.NoError(t, err)
	assert.Equal(t, core.GrantConsumed, state)
	assert.Equal(t, []int64{1}, f.events.registered)

	_, err = f.svc.RegisterStar(ctx, starFor(w.address))
	assert.ErrorIs(t, err, core.ErrAlreadyRegistered)

	height, err := f.ledger.Height(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), height)
}

func TestRegisterWithoutGrantIsUnauthorized(t *testing.T) {
	f := newFixture(t, core.DefaultValidationWindow)

	_, err := f.svc.RegisterStar(context.Background(), starFor("A"))
	assert.ErrorIs(t, err, core.ErrUnauthorized)
}

func TestRegisterValidatesPayloadBeforeGrant(t *testing.T) {
	f := newFixture(t, core.DefaultValidationWindow)
	ctx := context.Background()
	w := newWallet(t)
	f.authorize(t, w)

	sub := starFor(w.address)
	sub.Star.Story = strings.Repeat("x", 251)
	_, err := f.svc.RegisterStar(ctx, sub)
	assert.ErrorIs(t, err, core.ErrStoryTooLong)

	state, err := f.svc.GrantState(ctx, w.address)
	require.NoError(t, err)
	assert.Equal(t, core.GrantUnconsumed, state, "rejected input must not spend the grant")

	sub.Star.Story = strings.Repeat("x", 250)
	_, err = f.svc.RegisterStar(ctx, sub)
	assert.NoError(t, err)
}

func TestConcurrentRegistrationsAppendOnce(t *testing.T) {
	f := newFixture(t, core.DefaultValidationWindow)
	ctx := context.Background()
	w := newWallet(t)
	f.authorize(t, w)

	const attempts = 32
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok       int
		rejected int
	)
	start := make(chan struct{})
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.svc.RegisterStar(ctx, starFor(w.address))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, core.ErrAlreadyRegistered):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, attempts-1, rejected)

	height, err := f.ledger.Height(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), height)
}

func TestAddressesRegisterIndependently(t *testing.T) {
	f := newFixture(t, core.DefaultValidationWindow)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		w := newWallet(t)
		f.authorize(t, w)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.RegisterStar(ctx, starFor(w.address))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	height, err := f.ledger.Height(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(8), height)
}

type failingLedger struct {
	ports.Ledger
	err error
}

func (l failingLedger) Append(ctx context.Context, body json.RawMessage) (*core.Block, error) {
	return nil, l.err
}

func TestFailedAppendKeepsGrant(t *testing.T) {
	f := newFixture(t, core.DefaultValidationWindow)
	ctx := context.Background()
	w := newWallet(t)
	f.authorize(t, w)

	f.svc.ledger = failingLedger{Ledger: f.ledger, err: errors.New("disk full")}
	_, err := f.svc.RegisterStar(ctx, starFor(w.address))
	assert.ErrorIs(t, err, core.ErrLedgerOperationFailed)

	state, err := f.svc.GrantState(ctx, w.address)
	require.NoError(t, err)
	assert.Equal(t, core.GrantUnconsumed, state)

	f.svc.ledger = f.ledger
	_, err = f.svc.RegisterStar(ctx, starFor(w.address))
	assert.NoError(t, err)
}

func TestCancelledAppendReleasesGrant(t *testing.T) {
	f := newFixture(t, core.DefaultValidationWindow)
	w := newWallet(t)
	f.authorize(t, w)

	ctx, cancel := context.WithCancel(context.Background())
	f.svc.ledger = cancellingLedger{Ledger: f.ledger, cancel: cancel}

	_, err := f.svc.RegisterStar(ctx, starFor(w.address))
	assert.ErrorIs(t, err, context.Canceled)

	state, err := f.svc.GrantState(context.Background(), w.address)
	require.NoError(t, err)
	assert.Equal(t, core.GrantUnconsumed, state)
}

// cancellingLedger simulates the caller going away mid-append.
type cancellingLedger struct {
	ports.Ledger
	cancel context.CancelFunc
}

func (l cancellingLedger) Append(ctx context.Context, body json.RawMessage) (*core.Block, error) {
	l.cancel()
	return l.Ledger.Append(ctx, body)
}

// consumeFailingStore rejects the final swap from a reservation to a timestamp.
type consumeFailingStore struct {
	ports.StateStore
}

func (s consumeFailingStore) CompareAndSwap(ctx context.Context, key, old, new string) (bool, error) {
	if core.DecodeGrant(old).State == core.GrantReserved && core.DecodeGrant(new).State == core.GrantConsumed {
		return false, errors.New("connection reset")
	}
	return s.StateStore.CompareAndSwap(ctx, key, old, new)
}

func TestFailedConsumeWriteStillBlocksAddress(t *testing.T) {
	f := newFixture(t, core.DefaultValidationWindow)
	ctx := context.Background()
	w := newWallet(t)
	f.authorize(t, w)

	f.svc.store = consumeFailingStore{f.store}
	block, err := f.svc.RegisterStar(ctx, starFor(w.address))
	require.NoError(t, err)
	assert.Equal(t, int64(1), block.Height)

	state, err := f.svc.GrantState(ctx, w.address)
	require.NoError(t, err)
	assert.Equal(t, core.GrantReserved, state)

	_, err = f.svc.RegisterStar(ctx, starFor(w.address))
	assert.ErrorIs(t, err, core.ErrAlreadyRegistered)
}

func TestOtherAddressSpellingsCannotRegisterAgain(t *testing.T) {
	f := newFixture(t, core.DefaultValidationWindow)
	ctx := context.Background()
	w := newWallet(t)

	f.authorize(t, w)
	_, err := f.svc.RegisterStar(ctx, starFor(w.address))
	require.NoError(t, err)

	lower := strings.ToLower(w.address)
	for _, spelling := range []string{lower, strings.TrimPrefix(lower, "0x"), strings.TrimPrefix(w.address, "0x")} {
		status, err := f.svc.RequestChallenge(ctx, spelling)
		require.NoError(t, err)

		_, err = f.svc.VerifySignature(ctx, spelling, w.sign(t, status.Message))
		assert.ErrorIs(t, err, core.ErrSignatureInvalid, spelling)

		_, err = f.svc.RegisterStar(ctx, starFor(spelling))
		assert.ErrorIs(t, err, core.ErrUnauthorized, spelling)
	}

	height, err := f.ledger.Height(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), height)
}
