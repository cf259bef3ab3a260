package model

// OutcomeKind discriminates the terminal result of an orchestration run.
type OutcomeKind string

const (
	OutcomeBooked               OutcomeKind = "booked"
	OutcomeNoSlotsAvailable     OutcomeKind = "no_slots_available"
	OutcomeAuthenticationFailed OutcomeKind = "authentication_failed"
	OutcomeAborted              OutcomeKind = "aborted"
)

// BookingOutcome is the only thing a caller needs to branch on. Construct it
// through the helpers below so a value is never partially populated.
type BookingOutcome struct {
	Kind OutcomeKind

	// Set only for OutcomeBooked.
	Slot            *Slot
	ConfirmationRef string

	// Set for the failure kinds.
	Reason string

	// Diagnostic detail for operators (page state, raw error text).
	// Callers must not need it for correct branching.
	Diagnostic string
}

func Booked(slot Slot, confirmationRef string) BookingOutcome {
	return BookingOutcome{Kind: OutcomeBooked, Slot: &slot, ConfirmationRef: confirmationRef}
}

func NoSlotsAvailable() BookingOutcome {
	return BookingOutcome{Kind: OutcomeNoSlotsAvailable}
}

func AuthenticationFailed(reason string) BookingOutcome {
	return BookingOutcome{Kind: OutcomeAuthenticationFailed, Reason: reason}
}

func Aborted(reason, diagnostic string) BookingOutcome {
	return BookingOutcome{Kind: OutcomeAborted, Reason: reason, Diagnostic: diagnostic}
}

// Terminal reports whether the outcome ends the retry loop. Soft failures
// (no slots) are the only non-terminal kind.
func (o BookingOutcome) Terminal() bool {
	return o.Kind != OutcomeNoSlotsAvailable
}
