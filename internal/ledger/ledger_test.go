package ledger

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestVoucherNumberFormat(t *testing.T) {
	jv, ok := LookupVoucherType("journal")
	if !ok || jv.ID != "vt_journal" {
		t.Fatalf("lookup failed: %+v", jv)
	}
	if got := jv.FormatNumber(7); got != "JV-0007" {
		t.Fatalf("format = %q", got)
	}
	if got := jv.FormatNumber(12345); got != "JV-12345" {
		t.Fatalf("format = %q", got)
	}
	tests := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"JV-0007", 7, true},
		{" JV-12345 ", 12345, true},
		{"PV-0001", 0, false},
		{"JV-", 0, false},
		{"JV-00x1", 0, false},
		{"JV-0000", 0, false},
	}
	for _, tt := range tests {
		n, ok := jv.ParseNumber(tt.in)
		if n != tt.want || ok != tt.ok {
			t.Fatalf("ParseNumber(%q) = %d,%v", tt.in, n, ok)
		}
	}
}

func TestMoneyRoundTrip(t *testing.T) {
	a, err := ToMoney("INR", decimal.RequireFromString("100.004"))
	if err != nil {
		t.Fatalf("to money: %v", err)
	}
	units, _ := a.MinorUnits()
	if units != 10000 {
		t.Fatalf("units = %d", units)
	}
	if got := ToDecimal(a); !got.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("back = %s", got)
	}
	neg, _ := ToMoney("INR", decimal.RequireFromString("-12.5"))
	if got := Format(neg); got != "-12.50" {
		t.Fatalf("neg = %s", got)
	}
	if _, err := ToMoney("ZZZ", decimal.NewFromInt(1)); err == nil {
		t.Fatalf("expected currency error")
	}
}

func TestToMoneyRefusesOutOfRange(t *testing.T) {
	for _, in := range []string{"1e20", "-100000000000000000000", "10000000000000000", "1e50000000", "1e-50000000"} {
		if _, err := ToMoney("INR", decimal.RequireFromString(in)); !errors.Is(err, ErrAmountRange) {
			t.Fatalf("ToMoney(%s) err = %v, want ErrAmountRange", in, err)
		}
	}
	a, err := ToMoney("INR", decimal.RequireFromString("9999999999999999.99"))
	if err != nil {
		t.Fatalf("largest amount: %v", err)
	}
	if got := Format(a); got != "9999999999999999.99" {
		t.Fatalf("largest = %s", got)
	}
	z, err := ToMoney("INR", decimal.RequireFromString("0e1000000"))
	if err != nil || !z.IsZero() {
		t.Fatalf("zero = %v, %v", z, err)
	}
}

func TestPaymentModes(t *testing.T) {
	if !PaymentModeUPI.Valid() || PaymentMode("Cheque").Valid() {
		t.Fatalf("payment mode validation broken")
	}
	if !IsBuiltinTradingName(" sales ") || IsBuiltinTradingName("Sales Returns") {
		t.Fatalf("builtin trading name match broken")
	}
}
