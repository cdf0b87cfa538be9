package ledger

import (
	"errors"
	"fmt"
)

// Sentinel errors returned from the store and the position builder. Callers
// match them with errors.Is.
var (
	// ErrAlreadyAssigned means a target transaction is already claimed by a
	// position. The caller should refresh the unassigned list and retry.
	ErrAlreadyAssigned = errors.New("transaction already assigned to a position")

	// ErrTransactionNotFound means a referenced (venue, external_id) pair does
	// not exist in the ledger.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrPositionNotFound means the referenced position id does not exist.
	ErrPositionNotFound = errors.New("position not found")

	// ErrEmptyName rejects position creation without an operator label.
	ErrEmptyName = errors.New("position name must not be empty")

	// ErrNoTransactions rejects membership operations over an empty set.
	ErrNoTransactions = errors.New("at least one transaction is required")

	// ErrNotMember means a removal targeted a transaction that does not belong
	// to the position.
	ErrNotMember = errors.New("transaction is not a member of the position")
)

// NormalizationError reports a malformed or incomplete raw event. Ingestion
// drops the record, logs it, and continues with the rest of the batch.
type NormalizationError struct {
	Venue  Venue
	Field  string
	Reason string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("normalize %s event: field %q: %s", e.Venue, e.Field, e.Reason)
}

func normErr(venue Venue, field, reason string) *NormalizationError {
	return &NormalizationError{Venue: venue, Field: field, Reason: reason}
}

// IntegrityError reports that a re-ingested record conflicts with the stored
// payload under the same (venue, external_id). The stored record is never
// overwritten; the conflict needs operator attention.
type IntegrityError struct {
	Ref          TxRef
	StoredDigest string
	NewDigest    string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity conflict for %s: stored payload digest %.12s, incoming %.12s",
		e.Ref, e.StoredDigest, e.NewDigest)
}
