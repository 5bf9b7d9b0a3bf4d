package ledger

import (
    "github.com/shopspring/decimal"
)

// Amount is a decimal that encodes as a bare JSON number. Decoding accepts
// both numbers and quoted strings.
type Amount struct{ decimal.Decimal }

// NewAmount wraps d.
func NewAmount(d decimal.Decimal) Amount { return Amount{Decimal: d} }

// MarshalJSON writes the amount without quotes.
func (a Amount) MarshalJSON() ([]byte, error) { return []byte(a.Decimal.String()), nil }

// CreateVoucherPayload is the body of the create-voucher call.
type CreateVoucherPayload struct {
    VoucherType      VoucherType      `json:"voucher_type"`
    VoucherTypeID    string           `json:"voucher_type_id"`
    Date             string           `json:"date"`
    VoucherNumber    string           `json:"voucher_number"`
    PartyName        string           `json:"party_name"`
    PartyNameID      string           `json:"party_name_id"`
    Narration        string           `json:"narration"`
    CompanyID        string           `json:"company_id"`
    PaymentMode      PaymentMode      `json:"payment_mode"`
    PaidAmount       Amount           `json:"paid_amount"`
    Total            Amount           `json:"total"`
    TotalAmount      Amount           `json:"total_amount"`
    GrandTotal       Amount           `json:"grand_total"`
    Discount         Amount           `json:"discount"`
    TotalTax         Amount           `json:"total_tax"`
    AdditionalCharge Amount           `json:"additional_charge"`
    Roundoff         Amount           `json:"roundoff"`
    Accounting       []AccountingItem `json:"accounting"`
    Items            []VoucherItem    `json:"items"`
}

// AccountingItem is one signed accounting line of the payload. The
// "vouchar_id" spelling is part of the wire contract.
type AccountingItem struct {
    VoucharID  string `json:"vouchar_id"`
    Ledger     string `json:"ledger"`
    LedgerID   string `json:"ledger_id"`
    Amount     Amount `json:"amount"`
    OrderIndex int    `json:"order_index"`
}

// VoucherItem is an inventory line. Journal vouchers never carry any.
type VoucherItem struct {
    Name     string `json:"name"`
    Quantity Amount `json:"quantity"`
    Rate     Amount `json:"rate"`
    Amount   Amount `json:"amount"`
}
