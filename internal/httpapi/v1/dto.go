package v1

import (
    "time"

    "github.com/google/uuid"

    "github.com/tinoosan/voucherdesk/internal/journal"
    "github.com/tinoosan/voucherdesk/internal/ledger"
)

// Ledgers

type postLedgerRequest struct {
    Name     string            `json:"name"`
    Category ledger.Category   `json:"category"`
    Currency string            `json:"currency,omitempty"`
    Details  map[string]string `json:"details,omitempty"`
}

type patchLedgerRequest struct {
    Name    *string           `json:"name"`
    Details map[string]string `json:"details"`
}

type ledgerResponse struct {
    ID        uuid.UUID         `json:"id"`
    CompanyID uuid.UUID         `json:"company_id"`
    Name      string            `json:"name"`
    Category  ledger.Category   `json:"category"`
    Currency  string            `json:"currency"`
    Details   map[string]string `json:"details"`
    System    bool              `json:"system"`
    Active    bool              `json:"active"`
}

type listLedgersResponse struct {
    Items []ledgerResponse `json:"items"`
}

func toLedgerResponse(a ledger.Account) ledgerResponse {
    details := map[string]string(a.Details.Clone())
    if details == nil { details = map[string]string{} }
    return ledgerResponse{
        ID:        a.ID,
        CompanyID: a.CompanyID,
        Name:      a.Name,
        Category:  a.Category,
        Currency:  a.Currency,
        Details:   details,
        System:    a.System,
        Active:    a.Active,
    }
}

// Vouchers

type voucherLineResponse struct {
    ID          uuid.UUID `json:"id"`
    LedgerID    uuid.UUID `json:"ledger_id"`
    Ledger      string    `json:"ledger"`
    Amount      string    `json:"amount"`
    AmountMinor int64     `json:"amount_minor"`
    OrderIndex  int       `json:"order_index"`
}

type voucherResponse struct {
    ID            uuid.UUID             `json:"id"`
    CompanyID     uuid.UUID             `json:"company_id"`
    VoucherType   ledger.VoucherType    `json:"voucher_type"`
    VoucherTypeID string                `json:"voucher_type_id"`
    Date          string                `json:"date"`
    VoucherNumber string                `json:"voucher_number"`
    PartyName     string                `json:"party_name,omitempty"`
    PartyID       *uuid.UUID            `json:"party_id,omitempty"`
    Narration     string                `json:"narration"`
    PaymentMode   ledger.PaymentMode    `json:"payment_mode"`
    Currency      string                `json:"currency"`
    Total         string                `json:"total"`
    TotalMinor    int64                 `json:"total_minor"`
    Lines         []voucherLineResponse `json:"lines"`
    CreatedAt     time.Time             `json:"created_at"`
}

type listVouchersResponse struct {
    Items []voucherResponse `json:"items"`
}

func toVoucherResponse(v ledger.Voucher) voucherResponse {
    total, _ := v.Total.MinorUnits()
    resp := voucherResponse{
        ID:            v.ID,
        CompanyID:     v.CompanyID,
        VoucherType:   v.Type,
        VoucherTypeID: v.TypeID,
        Date:          v.Date.Format(time.DateOnly),
        VoucherNumber: v.Number,
        PartyName:     v.PartyName,
        Narration:     v.Narration,
        PaymentMode:   v.PaymentMode,
        Currency:      v.Currency,
        Total:         ledger.Format(v.Total),
        TotalMinor:    total,
        Lines:         make([]voucherLineResponse, 0, len(v.Lines)),
        CreatedAt:     v.CreatedAt,
    }
    if v.PartyID != uuid.Nil {
        id := v.PartyID
        resp.PartyID = &id
    }
    for _, ln := range v.Lines {
        units, _ := ln.Amount.MinorUnits()
        resp.Lines = append(resp.Lines, voucherLineResponse{
            ID:          ln.ID,
            LedgerID:    ln.AccountID,
            Ledger:      ln.AccountName,
            Amount:      ledger.Format(ln.Amount),
            AmountMinor: units,
            OrderIndex:  ln.OrderIndex,
        })
    }
    return resp
}

type nextNumberResponse struct {
    VoucherType   ledger.VoucherType `json:"voucher_type"`
    VoucherNumber string             `json:"voucher_number"`
}

// Balances

type balanceResponse struct {
    LedgerID     uuid.UUID `json:"ledger_id"`
    Currency     string    `json:"currency"`
    Balance      string    `json:"balance"`
    BalanceMinor int64     `json:"balance_minor"`
    AsOf         *string   `json:"as_of,omitempty"`
}

type trialBalanceLine struct {
    LedgerID    uuid.UUID       `json:"ledger_id"`
    Name        string          `json:"name"`
    Category    ledger.Category `json:"category"`
    Currency    string          `json:"currency"`
    Debit       string          `json:"debit"`
    Credit      string          `json:"credit"`
    DebitMinor  int64           `json:"debit_minor"`
    CreditMinor int64           `json:"credit_minor"`
}

type trialBalanceResponse struct {
    CompanyID   uuid.UUID          `json:"company_id"`
    AsOf        *string            `json:"as_of,omitempty"`
    Accounts    []trialBalanceLine `json:"accounts"`
    TotalDebit  string             `json:"total_debit"`
    TotalCredit string             `json:"total_credit"`
}

// Journal forms

type openJournalFormRequest struct {
    CompanyID string `json:"company_id"`
}

type validateJournalFormResponse struct {
    Valid  bool           `json:"valid"`
    Errors journal.Errors `json:"errors"`
}

type submitJournalFormResponse struct {
    Voucher ledger.CreateVoucherPayload `json:"voucher"`
    Form    journal.Snapshot            `json:"form"`
}

type notificationsResponse struct {
    Items []journal.Notification `json:"items"`
}
