// Package journal holds the state and rules of a journal-voucher form: the
// ordered entry lines, the header, the derived balance, the field-keyed
// validation errors and the assembly of the create-voucher payload.
//
// Everything except Session and Desk is pure: reducers take a Form and return
// a new one, so the same state always validates to the same error set.
package journal

import (
    "github.com/shopspring/decimal"

    "github.com/tinoosan/voucherdesk/internal/ledger"
)

// Direction says which side of the voucher a line posts to.
type Direction string

const (
    // DirectionTo is the debit side.
    DirectionTo Direction = "To"
    // DirectionFrom is the credit side.
    DirectionFrom Direction = "From"
)

func (d Direction) Valid() bool { return d == DirectionTo || d == DirectionFrom }

// EntryLine is one row of the form. Amount stays the raw user input.
type EntryLine struct {
    ID        string    `json:"id"`
    Name      string    `json:"name"`
    Direction Direction `json:"direction"`
    Amount    string    `json:"amount"`
}

// EntryPatch is a partial update; nil fields are left alone.
type EntryPatch struct {
    ID        *string    `json:"id,omitempty"`
    Name      *string    `json:"name,omitempty"`
    Direction *Direction `json:"direction,omitempty"`
    Amount    *string    `json:"amount,omitempty"`
}

// Header carries the voucher-level fields.
type Header struct {
    Date              string             `json:"date"`
    Notes             string             `json:"notes"`
    TransactionNumber string             `json:"transaction_number"`
    PaymentMethod     ledger.PaymentMode `json:"payment_method"`
}

// HeaderPatch is a partial header update.
type HeaderPatch struct {
    Date              *string             `json:"date,omitempty"`
    Notes             *string             `json:"notes,omitempty"`
    TransactionNumber *string             `json:"transaction_number,omitempty"`
    PaymentMethod     *ledger.PaymentMode `json:"payment_method,omitempty"`
}

// Form is the whole editable state of one journal voucher.
type Form struct {
    Entries []EntryLine
    Header  Header
    Errors  Errors
}

// MinEntries is the structural floor of a double-entry voucher.
const MinEntries = 2

// MaxNotesLen bounds the narration, counted in characters.
const MaxNotesLen = 500

// Policy holds the tunables of validation.
type Policy struct {
    // Tolerance absorbs rounding in the balance check. It is not an allowance
    // for an unbalanced voucher.
    Tolerance decimal.Decimal
}

// DefaultTolerance is one paisa/cent.
var DefaultTolerance = decimal.New(1, -2)

func DefaultPolicy() Policy { return Policy{Tolerance: DefaultTolerance} }

func (p Policy) tolerance() decimal.Decimal {
    if p.Tolerance.IsPositive() {
        return p.Tolerance
    }
    return DefaultTolerance
}

// NewForm returns a blank form: one "To" and one "From" line, payment method
// Cash, no errors.
func NewForm() Form {
    return Form{
        Entries: []EntryLine{
            {Direction: DirectionTo},
            {Direction: DirectionFrom},
        },
        Header: Header{PaymentMethod: ledger.PaymentModeCash},
        Errors: Errors{},
    }
}

// clone copies the slices and map so reducers never alias the input.
func (f Form) clone() Form {
    out := Form{Header: f.Header}
    out.Entries = make([]EntryLine, len(f.Entries))
    copy(out.Entries, f.Entries)
    out.Errors = f.Errors.Clone()
    return out
}
