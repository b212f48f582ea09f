package core

import (
	"fmt"
	"strconv"
	"strings"
)

// GrantState is the lifecycle position of an address's registration grant.
type GrantState int

const (
	GrantAbsent GrantState = iota
	GrantUnconsumed
	GrantReserved
	GrantConsumed
)

func (s GrantState) String() string {
	switch s {
	case GrantAbsent:
		return "absent"
	case GrantUnconsumed:
		return "unconsumed"
	case GrantReserved:
		return "reserved"
	case GrantConsumed:
		return "consumed"
	default:
		return fmt.Sprintf("GrantState(%d)", int(s))
	}
}

const (
	unconsumedValue   = "0"
	reservationPrefix = "reserved:"
)

// Grant authorizes exactly one registration. It moves
// Absent -> Unconsumed -> Reserved -> Consumed and never back, except that a
// reservation whose ledger append failed is released to Unconsumed by its owner.
type Grant struct {
	State GrantState
	// Reservation identifies the in-flight registration holding the grant.
	Reservation string
	// ConsumedAt is the registration completion time in epoch seconds.
	ConsumedAt int64
}

func UnconsumedGrant() Grant {
	return Grant{State: GrantUnconsumed}
}

func ReservedGrant(id string) Grant {
	return Grant{State: GrantReserved, Reservation: id}
}

func ConsumedGrant(at int64) Grant {
	return Grant{State: GrantConsumed, ConsumedAt: at}
}

// Encode renders the grant as its State Store value. Absent grants have no value.
func (g Grant) Encode() string {
	switch g.State {
	case GrantUnconsumed:
		return unconsumedValue
	case GrantReserved:
		return reservationPrefix + g.Reservation
	case GrantConsumed:
		return strconv.FormatInt(g.ConsumedAt, 10)
	default:
		return ""
	}
}

// DecodeGrant parses a stored value. Any value that is not the unconsumed
// marker counts as used, so unknown values can never authorize a registration.
func DecodeGrant(value string) Grant {
	switch {
	case value == unconsumedValue:
		return UnconsumedGrant()
	case strings.HasPrefix(value, reservationPrefix):
		return ReservedGrant(strings.TrimPrefix(value, reservationPrefix))
	default:
		at, _ := strconv.ParseInt(value, 10, 64)
		return ConsumedGrant(at)
	}
}

// Used reports whether the grant can no longer authorize a registration.
func (g Grant) Used() bool {
	return g.State == GrantReserved || g.State == GrantConsumed
}
