package ledger

import (
    "fmt"
    "strconv"
    "strings"
)

// VoucherType names the kind of accounting document.
type VoucherType string

const (
    VoucherTypeJournal  VoucherType = "Journal"
    VoucherTypePayment  VoucherType = "Payment"
    VoucherTypeReceipt  VoucherType = "Receipt"
    VoucherTypeContra   VoucherType = "Contra"
    VoucherTypeSales    VoucherType = "Sales"
    VoucherTypePurchase VoucherType = "Purchase"
)

// VoucherTypeDef carries the fixed identifiers of a voucher type.
type VoucherTypeDef struct {
    Type   VoucherType `json:"voucher_type"`
    ID     string      `json:"voucher_type_id"`
    Prefix string      `json:"prefix"`
}

var voucherTypes = []VoucherTypeDef{
    {Type: VoucherTypeJournal, ID: "vt_journal", Prefix: "JV"},
    {Type: VoucherTypePayment, ID: "vt_payment", Prefix: "PV"},
    {Type: VoucherTypeReceipt, ID: "vt_receipt", Prefix: "RV"},
    {Type: VoucherTypeContra, ID: "vt_contra", Prefix: "CV"},
    {Type: VoucherTypeSales, ID: "vt_sales", Prefix: "SV"},
    {Type: VoucherTypePurchase, ID: "vt_purchase", Prefix: "PU"},
}

// VoucherTypes returns every known voucher type in display order.
func VoucherTypes() []VoucherTypeDef {
    out := make([]VoucherTypeDef, len(voucherTypes))
    copy(out, voucherTypes)
    return out
}

// LookupVoucherType resolves a type by name, ignoring case.
func LookupVoucherType(name string) (VoucherTypeDef, bool) {
    for _, d := range voucherTypes {
        if strings.EqualFold(string(d.Type), strings.TrimSpace(name)) {
            return d, true
        }
    }
    return VoucherTypeDef{}, false
}

// FormatNumber renders the seq-th number of the type, e.g. JV-0001.
func (d VoucherTypeDef) FormatNumber(seq int64) string {
    return fmt.Sprintf("%s-%04d", d.Prefix, seq)
}

// ParseNumber extracts the sequence from a number in this type's format.
func (d VoucherTypeDef) ParseNumber(number string) (int64, bool) {
    rest, ok := strings.CutPrefix(strings.TrimSpace(number), d.Prefix+"-")
    if !ok || rest == "" {
        return 0, false
    }
    n, err := strconv.ParseInt(rest, 10, 64)
    if err != nil || n <= 0 {
        return 0, false
    }
    return n, true
}

// PaymentMode is the settlement method recorded on a voucher.
type PaymentMode string

const (
    PaymentModeCash         PaymentMode = "Cash"
    PaymentModeBankTransfer PaymentMode = "Bank Transfer"
    PaymentModeCreditCard   PaymentMode = "Credit Card"
    PaymentModeDebitCard    PaymentMode = "Debit Card"
    PaymentModeUPI          PaymentMode = "UPI"
)

// PaymentModes lists the accepted payment modes.
func PaymentModes() []PaymentMode {
    return []PaymentMode{PaymentModeCash, PaymentModeBankTransfer, PaymentModeCreditCard, PaymentModeDebitCard, PaymentModeUPI}
}

// Valid reports whether m is one of PaymentModes.
func (m PaymentMode) Valid() bool {
    for _, p := range PaymentModes() {
        if p == m {
            return true
        }
    }
    return false
}
