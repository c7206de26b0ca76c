/*
errors.go - Centralized error types for the ledger engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers decide retry/abort from these; nothing here is retried
  automatically.

ERROR CATEGORIES:
  1. Lookup errors     - referenced records that don't exist
  2. Linkage errors    - 1:1 movement/record invariant violations
  3. Validation errors - bad amounts from callers
  4. Consistency errors - a charge's paid amount leaving [0, amount];
     these signal a bug, are never clamped, and must surface loudly

USAGE:
  if errors.Is(err, ledger.ErrAlreadyLinked) { ... }

  var inc *ledger.InconsistentStateError
  if errors.As(err, &inc) { log.Fatalf("charge %s corrupt", inc.ChargeID) }
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when a referenced apartment, charge,
	// payment, movement or account does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrAlreadyLinked is returned when either side of a requested
	// linkage already has a partner.
	ErrAlreadyLinked = errors.New("already linked")

	// ErrInvalidAmount is returned for non-positive or non-finite amounts.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInconsistentState is returned when an operation would leave a
	// charge's paid amount outside [0, amount]. This is a bug, not a
	// user error; the operation is aborted, never clamped.
	ErrInconsistentState = errors.New("inconsistent charge state")

	// ErrNoApartments is returned by the charge generator when there are
	// no apartments configured at all.
	ErrNoApartments = errors.New("no apartments configured")

	// ErrChargeReferenced is returned when deleting a charge that still
	// has payment allocations against it.
	ErrChargeReferenced = errors.New("charge referenced by allocations")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NotFoundError names the missing record.
type NotFoundError struct {
	Kind string // "apartment", "charge", "payment", "movement", "account", "transaction"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// AlreadyLinkedError reports which side of the linkage was occupied.
type AlreadyLinkedError struct {
	MovementID MovementID
	RecordType RecordType
	RecordID   string
	Side       string // "movement" or "record"
}

func (e *AlreadyLinkedError) Error() string {
	if e.Side == "movement" {
		return fmt.Sprintf("movement %s is already linked to %s %s", e.MovementID, e.RecordType, e.RecordID)
	}
	return fmt.Sprintf("%s %s is already linked to a movement", e.RecordType, e.RecordID)
}

func (e *AlreadyLinkedError) Unwrap() error { return ErrAlreadyLinked }

// InvalidAmountError reports the offending value.
type InvalidAmountError struct {
	Amount Money
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("invalid amount %s: must be positive", e.Amount)
}

func (e *InvalidAmountError) Unwrap() error { return ErrInvalidAmount }

// InconsistentStateError pins the corrupt charge and the amounts that
// violated the invariant, so the failure is diagnosable from the log.
type InconsistentStateError struct {
	ChargeID   ChargeID
	AmountPaid Money
	Amount     Money
}

func (e *InconsistentStateError) Error() string {
	return fmt.Sprintf("charge %s: amount paid %s outside [0, %s]", e.ChargeID, e.AmountPaid, e.Amount)
}

func (e *InconsistentStateError) Unwrap() error { return ErrInconsistentState }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsClientError returns true if the error is due to invalid caller input
// rather than an engine bug.
func IsClientError(err error) bool {
	return errors.Is(err, ErrAlreadyLinked) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrChargeReferenced)
}
