package domain

import (
	"github.com/google/uuid"
)

// ReservationState tracks the lifecycle of an in-flight balance hold.
type ReservationState string

const (
	ReservationStateHeld      ReservationState = "HELD"
	ReservationStateCommitted ReservationState = "COMMITTED"
	ReservationStateReleased  ReservationState = "RELEASED"
)

// Reservation is an optimistic, reversible decrement of a wallet's cached
// balance held while a chain submission is in flight. It exists so that no
// wallet lock is held across slow network I/O: the balance is decremented at
// reserve time, then either committed (no-op on balance) or released
// (refunded) once the chain answers.
type Reservation struct {
	ID       uuid.UUID
	WalletID uuid.UUID
	Amount   int64
	State    ReservationState
}
