package core

import (
	"strconv"
	"sync/atomic"
	"time"
)

// DefaultValidationWindow is how long a challenge stays answerable unless overridden.
const DefaultValidationWindow = 5 * time.Minute

const messageSuffix = "starRegistry"

// Challenge is the message an address must sign to prove control of its identity.
type Challenge struct {
	Address  string
	IssuedAt int64 // epoch seconds
}

// Message derives the text to sign. It is always recomputable from the stored issuedAt.
func (c Challenge) Message() string {
	return c.Address + ":" + strconv.FormatInt(c.IssuedAt, 10) + ":" + messageSuffix
}

// Remaining returns the seconds left in the window at now. Zero or less means expired.
func (c Challenge) Remaining(window *Window, now time.Time) int64 {
	return window.Seconds() - (now.Unix() - c.IssuedAt)
}

// Window is the process-wide validation window. It is read at every check and
// may be changed at runtime by an operator.
type Window struct {
	seconds atomic.Int64
}

func NewWindow(d time.Duration) *Window {
	w := &Window{}
	w.seconds.Store(int64(d / time.Second))
	return w
}

// Seconds returns the current window length.
func (w *Window) Seconds() int64 {
	return w.seconds.Load()
}

// Set replaces the window length.
func (w *Window) Set(seconds int64) error {
	if seconds < 1 {
		return ErrInvalidWindow
	}
	w.seconds.Store(seconds)
	return nil
}

const (
	requestKeyPrefix = "star_registration_request_"
	grantKeyPrefix   = "star_registration_granted_"
)

// RequestKey names the State Store entry holding the latest issuedAt for address.
func RequestKey(address string) string {
	return requestKeyPrefix + address
}

// GrantKey names the State Store entry holding the grant for address.
func GrantKey(address string) string {
	return grantKeyPrefix + address
}
