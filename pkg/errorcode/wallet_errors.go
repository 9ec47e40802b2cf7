package errorcode

import (
	"errors"
	"fmt"
)

// ErrorAuthentication is the single opaque failure returned for any login problem. It never tells whether the
// identifier or the secret was wrong.
var ErrorAuthentication = errors.New("authentication failed")

// ErrorInvalidCapability is returned when a permission carries a capability other than Read or Write.
var ErrorInvalidCapability = errors.New("invalid capability")

// ErrorUnknownCounterparty is returned when a counterparty address cannot be resolved by the authority.
var ErrorUnknownCounterparty = errors.New("unknown counterparty")

// ErrorIllegalTransition is returned when a permission action does not match the current phase of its key.
var ErrorIllegalTransition = errors.New("illegal permission transition")

// ErrorTransitionInFlight is returned when an action targets a permission key whose previous action has not resolved yet.
var ErrorTransitionInFlight = errors.New("another action on this permission is still pending")

// DerivationError reports bad key derivation input or an unusable derived key. It is fatal and never retried.
type DerivationError struct {
	Reason string
}

func (e *DerivationError) Error() string {
	return fmt.Sprintf("cannot derive signing identity: %v", e.Reason)
}

// LedgerSubmissionFailure reports that the ledger rejected (or never confirmed) a submitted operation.
// Callers that applied an optimistic update have already rolled it back when they see this error.
type LedgerSubmissionFailure struct {
	OperationID string
	Kind        string
	Reason      string
}

func (e *LedgerSubmissionFailure) Error() string {
	return fmt.Sprintf("ledger operation '%v' (%v) failed: %v", e.OperationID, e.Kind, e.Reason)
}

// IsDerivationError reports whether the cause of err is a `*DerivationError`.
func IsDerivationError(err error) bool {
	var target *DerivationError
	return errors.As(err, &target)
}

// IsLedgerSubmissionFailure reports whether the cause of err is a `*LedgerSubmissionFailure`.
func IsLedgerSubmissionFailure(err error) bool {
	var target *LedgerSubmissionFailure
	return errors.As(err, &target)
}
