package ledger

import (
    "errors"
    "math"

    "github.com/govalues/money"
    "github.com/shopspring/decimal"
)

var (
    // ErrCurrency is returned for an unknown currency code.
    ErrCurrency = errors.New("unknown currency")
    // ErrAmountRange is returned when an amount does not fit in int64 minor units.
    ErrAmountRange = errors.New("amount out of range")
)

// maxAmountDigits bounds the minor-unit digits of an amount; 18 digits always fit in int64.
const maxAmountDigits = 18

var maxMinorUnits = decimal.NewFromInt(math.MaxInt64)

// ToMoney converts a decimal into an amount of the currency, rounded to the
// currency's minor unit.
func ToMoney(code string, d decimal.Decimal) (money.Amount, error) {
    curr, err := money.ParseCurr(code)
    if err != nil {
        return money.Amount{}, ErrCurrency
    }
    if d.IsZero() {
        return money.NewAmountFromMinorUnits(curr.Code(), 0)
    }
    scale := curr.Scale()
    // Checked on the coefficient and exponent so huge exponents are never expanded.
    if d.NumDigits()+int(d.Exponent())+scale > maxAmountDigits || int(d.Exponent()) < -maxAmountDigits {
        return money.Amount{}, ErrAmountRange
    }
    units := d.Round(int32(scale)).Shift(int32(scale))
    if units.Abs().GreaterThan(maxMinorUnits) {
        return money.Amount{}, ErrAmountRange
    }
    return money.NewAmountFromMinorUnits(curr.Code(), units.IntPart())
}

// ToDecimal is the inverse of ToMoney.
func ToDecimal(a money.Amount) decimal.Decimal {
    units, _ := a.MinorUnits()
    return decimal.New(units, -int32(a.Curr().Scale()))
}

// Zero returns a zero amount in the currency.
func Zero(code string) money.Amount {
    a, err := money.NewAmountFromMinorUnits(code, 0)
    if err != nil {
        return money.MustNewAmount("INR", 0, 0)
    }
    return a
}

// Format renders a with exactly the currency's minor digits, e.g. "500.00".
func Format(a money.Amount) string {
    return ToDecimal(a).StringFixed(int32(a.Curr().Scale()))
}
