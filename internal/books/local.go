// Package books connects the journal form to the books: in-process through
// the account and voucher services, or over HTTP through the v1 API.
package books

import (
    "context"
    "strings"

    "github.com/google/uuid"

    "github.com/tinoosan/voucherdesk/internal/errs"
    "github.com/tinoosan/voucherdesk/internal/journal"
    "github.com/tinoosan/voucherdesk/internal/ledger"
    "github.com/tinoosan/voucherdesk/internal/service/account"
    "github.com/tinoosan/voucherdesk/internal/service/voucher"
)

// Local serves journal.Books from the services of the same process.
type Local struct {
    Accounts account.Service
    Vouchers voucher.Service
}

var _ journal.Books = (*Local)(nil)

func parseCompany(companyID string) (uuid.UUID, error) {
    id, err := uuid.Parse(strings.TrimSpace(companyID))
    if err != nil || id == uuid.Nil {
        return uuid.Nil, errs.ErrInvalid
    }
    return id, nil
}

// Ledgers lists the company's active accounts.
func (l *Local) Ledgers(ctx context.Context, companyID string) ([]journal.LedgerOption, error) {
    id, err := parseCompany(companyID)
    if err != nil { return nil, err }
    accs, err := l.Accounts.List(ctx, id)
    if err != nil { return nil, err }
    out := make([]journal.LedgerOption, 0, len(accs))
    for _, a := range accs {
        if !a.Active { continue }
        out = append(out, journal.LedgerOption{ID: a.ID.String(), Name: a.Name, Category: string(a.Category)})
    }
    return out, nil
}

func (l *Local) NextVoucherNumber(ctx context.Context, companyID string, vt ledger.VoucherType) (string, error) {
    id, err := parseCompany(companyID)
    if err != nil { return "", err }
    return l.Vouchers.NextNumber(ctx, id, vt)
}

// CreateVoucher posts p. Refusals come back as *voucher.ValidationError,
// whose message the form shows as is.
func (l *Local) CreateVoucher(ctx context.Context, p ledger.CreateVoucherPayload, idemKey string) error {
    _, _, err := l.Vouchers.Create(ctx, p, idemKey)
    return err
}
