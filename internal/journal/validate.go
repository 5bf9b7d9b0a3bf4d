package journal

import (
    "strconv"
    "strings"
    "time"
    "unicode/utf8"

    "github.com/tinoosan/voucherdesk/internal/errs"
)

// Field keys of the error set.
const (
    KeyEntries = "entries"
    KeyBalance = "balance"
    KeyDate    = "date"
    KeyNotes   = "notes"
)

// Messages shown next to the fields.
const (
    MsgTooFewEntries  = "At least 2 entries are required"
    MsgLedgerRequired = "Ledger is required"
    MsgAmountPositive = "Amount must be greater than 0"
    MsgUnbalanced     = `Total "To" amount must equal total "From" amount`
    MsgDateRequired   = "Date is required"
    MsgDateInvalid    = "Date is invalid"
    MsgNotesTooLong   = "Notes must be less than 500 characters"
)

// EntryNameKey is the error key of line i's ledger field.
func EntryNameKey(i int) string { return "entry_" + strconv.Itoa(i) + "_name" }

// EntryAmountKey is the error key of line i's amount field.
func EntryAmountKey(i int) string { return "entry_" + strconv.Itoa(i) + "_amount" }

// parseEntryKey splits "entry_<i>_<field>".
func parseEntryKey(key string) (int, string, bool) {
    rest, ok := strings.CutPrefix(key, "entry_")
    if !ok {
        return 0, "", false
    }
    num, field, ok := strings.Cut(rest, "_")
    if !ok {
        return 0, "", false
    }
    i, err := strconv.Atoi(num)
    if err != nil || i < 0 {
        return 0, "", false
    }
    return i, field, true
}

// Errors maps a field key to its message. A missing key means valid.
type Errors map[string]string

func (e Errors) Clone() Errors {
    out := make(Errors, len(e))
    for k, v := range e {
        out[k] = v
    }
    return out
}

// ValidationError is returned when a form is submitted or assembled while
// invalid. It matches errs.ErrUnprocessable.
type ValidationError struct {
    Fields Errors
}

func (e *ValidationError) Error() string {
    return "journal form has " + strconv.Itoa(len(e.Fields)) + " invalid field(s)"
}

func (e *ValidationError) Unwrap() error { return errs.ErrUnprocessable }

// ComputeErrors applies every rule to f and returns the merged error set.
// It never mutates f.
func ComputeErrors(f Form, p Policy) Errors {
    out := Errors{}
    if len(f.Entries) < MinEntries {
        out[KeyEntries] = MsgTooFewEntries
    }
    for i, e := range f.Entries {
        if strings.TrimSpace(e.Name) == "" {
            out[EntryNameKey(i)] = MsgLedgerRequired
        }
        if amt, ok := amountValue(e.Amount); !ok || !amt.IsPositive() {
            out[EntryAmountKey(i)] = MsgAmountPositive
        }
    }
    if !ComputeBalance(f.Entries).Balanced(p) {
        out[KeyBalance] = MsgUnbalanced
    }
    if strings.TrimSpace(f.Header.Date) == "" {
        out[KeyDate] = MsgDateRequired
    } else if _, err := ParseDate(f.Header.Date); err != nil {
        out[KeyDate] = MsgDateInvalid
    }
    if utf8.RuneCountInString(f.Header.Notes) > MaxNotesLen {
        out[KeyNotes] = MsgNotesTooLong
    }
    return out
}

// IsValid is the submission gate.
func IsValid(f Form, p Policy) bool { return len(ComputeErrors(f, p)) == 0 }

// Validate returns f with its displayed errors replaced by a fresh set.
func Validate(f Form, p Policy) Form {
    out := f.clone()
    out.Errors = ComputeErrors(f, p)
    return out
}

var dateLayouts = []string{
    time.RFC3339Nano,
    "2006-01-02T15:04:05",
    "2006-01-02T15:04",
    time.DateOnly,
}

// ParseDate accepts an ISO date or date-time.
func ParseDate(s string) (time.Time, error) {
    s = strings.TrimSpace(s)
    var firstErr error
    for _, layout := range dateLayouts {
        t, err := time.Parse(layout, s)
        if err == nil {
            return t, nil
        }
        if firstErr == nil {
            firstErr = err
        }
    }
    return time.Time{}, firstErr
}
