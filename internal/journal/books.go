package journal

import (
    "context"

    "github.com/tinoosan/voucherdesk/internal/ledger"
)

// LedgerOption is one selectable account in the entry lines.
type LedgerOption struct {
    ID       string `json:"id"`
    Name     string `json:"name"`
    Category string `json:"category,omitempty"`
}

// Books is the remote side of the form: ledger lookup, the voucher counter
// and voucher creation. The form never talks to storage directly.
type Books interface {
    Ledgers(ctx context.Context, companyID string) ([]LedgerOption, error)
    NextVoucherNumber(ctx context.Context, companyID string, vt ledger.VoucherType) (string, error)
    // CreateVoucher posts the payload. Calls repeated with the same idemKey
    // must not create a second voucher.
    CreateVoucher(ctx context.Context, p ledger.CreateVoucherPayload, idemKey string) error
}

// Messager is implemented by errors that carry text meant for the user.
type Messager interface {
    UserMessage() string
}

// SelectableLedgers drops the built-in Sales and Purchases ledgers, which
// journal vouchers do not post to directly.
func SelectableLedgers(all []LedgerOption) []LedgerOption {
    out := make([]LedgerOption, 0, len(all))
    for _, l := range all {
        if ledger.IsBuiltinTradingName(l.Name) {
            continue
        }
        out = append(out, l)
    }
    return out
}
