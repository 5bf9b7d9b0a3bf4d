package journal

import (
    "regexp"
    "strings"

    "github.com/shopspring/decimal"
)

// Balance is derived from the entries on every access.
type Balance struct {
    To         decimal.Decimal `json:"to_total"`
    From       decimal.Decimal `json:"from_total"`
    Difference decimal.Decimal `json:"difference"`
}

// ComputeBalance sums each side. Blank or non-numeric amounts count as zero.
func ComputeBalance(entries []EntryLine) Balance {
    to, from := decimal.Zero, decimal.Zero
    for _, e := range entries {
        amt := parseAmount(e.Amount)
        switch e.Direction {
        case DirectionTo:
            to = to.Add(amt)
        case DirectionFrom:
            from = from.Add(amt)
        }
    }
    return Balance{To: to, From: from, Difference: to.Sub(from)}
}

// Balanced reports |Difference| < tolerance.
func (b Balance) Balanced(p Policy) bool {
    return b.Difference.Abs().LessThan(p.tolerance())
}

func parseAmount(s string) decimal.Decimal {
    d, ok := amountValue(s)
    if !ok {
        return decimal.Zero
    }
    return d
}

// Plain digits with an optional fraction. Signs and exponents are not amounts.
var reAmount = regexp.MustCompile(`^(\d+(\.\d*)?|\.\d+)$`)

// maxAmountDigits caps the digits a user amount may carry.
const maxAmountDigits = 18

// amountValue parses a user amount; ok is false for blank or non-numeric input.
func amountValue(s string) (decimal.Decimal, bool) {
    s = strings.TrimSpace(s)
    if !reAmount.MatchString(s) {
        return decimal.Zero, false
    }
    if len(s)-strings.Count(s, ".") > maxAmountDigits {
        return decimal.Zero, false
    }
    d, err := decimal.NewFromString(s)
    if err != nil {
        return decimal.Zero, false
    }
    return d, true
}
