package journal

import (
    "strconv"
    "strings"

    "github.com/tinoosan/voucherdesk/internal/errs"
)

// ApplyEntryUpdate returns f with the fields present in patch written to line
// i. A non-empty name clears that line's name error; a non-empty amount clears
// its amount error and the balance error. Nothing is re-validated here.
func ApplyEntryUpdate(f Form, i int, patch EntryPatch) (Form, error) {
    if i < 0 || i >= len(f.Entries) {
        return f, errs.ErrInvalid
    }
    if patch.Direction != nil && !patch.Direction.Valid() {
        return f, errs.ErrInvalid
    }
    out := f.clone()
    line := &out.Entries[i]
    if patch.ID != nil {
        line.ID = *patch.ID
    }
    if patch.Name != nil {
        line.Name = *patch.Name
        if strings.TrimSpace(*patch.Name) != "" {
            delete(out.Errors, EntryNameKey(i))
        }
    }
    if patch.Direction != nil {
        line.Direction = *patch.Direction
    }
    if patch.Amount != nil {
        line.Amount = *patch.Amount
        if strings.TrimSpace(*patch.Amount) != "" {
            delete(out.Errors, EntryAmountKey(i))
            delete(out.Errors, KeyBalance)
        }
    }
    return out, nil
}

// AddEntry appends a line seeded to close the current gap: "To" when the
// debit side is short or even, "From" otherwise, with |difference| as amount.
func AddEntry(f Form) Form {
    out := f.clone()
    diff := ComputeBalance(f.Entries).Difference
    line := EntryLine{Direction: DirectionTo}
    if diff.IsPositive() {
        line.Direction = DirectionFrom
    }
    if !diff.IsZero() {
        line.Amount = diff.Abs().StringFixed(2)
    }
    out.Entries = append(out.Entries, line)
    return out
}

// RemoveEntry drops line i. At the floor of MinEntries lines the form is
// returned unchanged with errs.ErrTooFewEntries. Errors of the removed line
// are cleared and those of later lines move down with them.
func RemoveEntry(f Form, i int) (Form, error) {
    if len(f.Entries) <= MinEntries {
        return f, errs.ErrTooFewEntries
    }
    if i < 0 || i >= len(f.Entries) {
        return f, errs.ErrInvalid
    }
    out := f.clone()
    out.Entries = append(out.Entries[:i], out.Entries[i+1:]...)
    out.Errors = Errors{}
    for k, v := range f.Errors {
        idx, field, ok := parseEntryKey(k)
        switch {
        case !ok:
            out.Errors[k] = v
        case idx == i:
            // dropped with its line
        case idx > i:
            out.Errors["entry_"+strconv.Itoa(idx-1)+"_"+field] = v
        default:
            out.Errors[k] = v
        }
    }
    return out, nil
}

// ApplyHeaderUpdate writes the fields present in patch. A non-empty date
// clears the date error; notes within the limit clear the notes error.
func ApplyHeaderUpdate(f Form, patch HeaderPatch) (Form, error) {
    if patch.PaymentMethod != nil && !patch.PaymentMethod.Valid() {
        return f, errs.ErrInvalid
    }
    out := f.clone()
    if patch.Date != nil {
        out.Header.Date = *patch.Date
        if strings.TrimSpace(*patch.Date) != "" {
            delete(out.Errors, KeyDate)
        }
    }
    if patch.Notes != nil {
        out.Header.Notes = *patch.Notes
        if len([]rune(*patch.Notes)) <= MaxNotesLen {
            delete(out.Errors, KeyNotes)
        }
    }
    if patch.TransactionNumber != nil {
        out.Header.TransactionNumber = strings.TrimSpace(*patch.TransactionNumber)
    }
    if patch.PaymentMethod != nil {
        out.Header.PaymentMethod = *patch.PaymentMethod
    }
    return out, nil
}
