package errs

import "errors"

// Common sentinel errors for cross-layer signaling.
var (
    ErrNotFound  = errors.New("not_found")
    ErrForbidden = errors.New("forbidden")
    ErrConflict  = errors.New("conflict")
    ErrInvalid   = errors.New("invalid")
    // ErrUnprocessable is used for semantic validation failures (HTTP 422)
    ErrUnprocessable = errors.New("unprocessable")
    // ErrSystemAccount indicates a system ledger cannot be modified/deactivated
    ErrSystemAccount = errors.New("system_account")
    // ErrImmutable indicates an attempt to change immutable fields
    ErrImmutable = errors.New("immutable")
    // ErrTooFewEntries is returned when a journal would drop below two lines.
    ErrTooFewEntries = errors.New("too_few_entries")
    // ErrUnbalanced signals that debits and credits do not net to zero.
    ErrUnbalanced = errors.New("unbalanced_voucher")
    // ErrInFlight is returned while a submit for the same form is still running.
    ErrInFlight = errors.New("in_flight")
    ErrClosed   = errors.New("closed")
)
