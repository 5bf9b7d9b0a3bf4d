// Package account implements the ledger account rules: category driven detail
// fields, immutable identity fields, soft-deletes, and per-company unique names.
package account

import (
    "context"
    "errors"
    "log/slog"
    "strings"

    "github.com/google/uuid"

    "github.com/tinoosan/voucherdesk/internal/dictionary"
    "github.com/tinoosan/voucherdesk/internal/errs"
    "github.com/tinoosan/voucherdesk/internal/ledger"
    "github.com/tinoosan/voucherdesk/internal/meta"
    "github.com/tinoosan/voucherdesk/internal/slug"
)

type Repo interface {
    ListAccounts(ctx context.Context, companyID uuid.UUID) ([]ledger.Account, error)
    GetAccount(ctx context.Context, companyID, accountID uuid.UUID) (ledger.Account, error)
}

type Writer interface {
    CreateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error)
    UpdateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error)
}

type Service interface {
    ValidateCreate(a ledger.Account) error
    Create(ctx context.Context, a ledger.Account) (ledger.Account, error)
    List(ctx context.Context, companyID uuid.UUID) ([]ledger.Account, error)
    Get(ctx context.Context, companyID, accountID uuid.UUID) (ledger.Account, error)
    Update(ctx context.Context, a ledger.Account) (ledger.Account, error)
    Deactivate(ctx context.Context, companyID, accountID uuid.UUID) error
    EnsureDefaults(ctx context.Context, companyID uuid.UUID) ([]ledger.Account, error)
}

type service struct {
    repo     Repo
    writer   Writer
    currency string
    log      *slog.Logger
}

// New builds the service. currency is given to accounts created without one.
func New(repo Repo, writer Writer, currency string, logger *slog.Logger) Service {
    if logger == nil { logger = slog.Default() }
    if currency == "" { currency = "INR" }
    return &service{repo: repo, writer: writer, currency: strings.ToUpper(currency), log: logger}
}

// ErrNameExists indicates an account with the same name already exists for the company.
var ErrNameExists = errors.New("ledger name already exists for company")

// DetailsError lists the detail fields that break the category rules.
type DetailsError struct {
    Fields []dictionary.FieldError
}

func (e *DetailsError) Error() string {
    parts := make([]string, 0, len(e.Fields))
    for _, f := range e.Fields { parts = append(parts, f.Error()) }
    return "invalid details: " + strings.Join(parts, "; ")
}

func (e *DetailsError) Unwrap() error { return errs.ErrUnprocessable }

// normalizeCategory accepts labels and codes alike ("Bank Accounts", "bank_accounts").
func normalizeCategory(c ledger.Category) ledger.Category {
    return ledger.Category(slug.Slugify(string(c)))
}

func (s *service) ValidateCreate(account ledger.Account) error {
    if account.CompanyID == uuid.Nil {
        return errs.ErrInvalid
    }
    if strings.TrimSpace(account.Name) == "" {
        return errors.New("name is required")
    }
    if account.Currency != "" && len(strings.TrimSpace(account.Currency)) != 3 {
        return errors.New("currency must be a 3-letter code")
    }
    def, ok := dictionary.Lookup(normalizeCategory(account.Category))
    if !ok {
        return errors.New("invalid category")
    }
    // Sales and Purchases are created by EnsureDefaults only
    if def.Reserved && !account.System {
        return errors.New("category is reserved for built-in ledgers")
    }
    if !account.System && ledger.IsBuiltinTradingName(account.Name) {
        return errors.New("name is reserved for a built-in ledger")
    }
    if err := account.Details.Validate(); err != nil {
        return err
    }
    if fields := def.CheckDetails(account.Details); len(fields) > 0 {
        return &DetailsError{Fields: fields}
    }
    return nil
}

func (s *service) Create(ctx context.Context, account ledger.Account) (ledger.Account, error) {
    account.Name = strings.TrimSpace(account.Name)
    account.Category = normalizeCategory(account.Category)
    account.Currency = strings.ToUpper(strings.TrimSpace(account.Currency))
    if account.Currency == "" { account.Currency = s.currency }
    account.Details = meta.New(account.Details)
    if err := s.ValidateCreate(account); err != nil {
        return ledger.Account{}, err
    }
    existing, err := s.repo.ListAccounts(ctx, account.CompanyID)
    if err != nil {
        return ledger.Account{}, err
    }
    for _, a := range existing {
        if strings.EqualFold(strings.TrimSpace(a.Name), account.Name) {
            return ledger.Account{}, ErrNameExists
        }
    }
    account.ID = uuid.New()
    account.Active = true
    created, err := s.writer.CreateAccount(ctx, account)
    if err != nil {
        return ledger.Account{}, err
    }
    s.log.Info("ledger created", "account_id", created.ID.String(), "company_id", created.CompanyID.String(), "category", string(created.Category))
    return created, nil
}

func (s *service) List(ctx context.Context, companyID uuid.UUID) ([]ledger.Account, error) {
    if companyID == uuid.Nil {
        return nil, errs.ErrInvalid
    }
    return s.repo.ListAccounts(ctx, companyID)
}

func (s *service) Get(ctx context.Context, companyID, accountID uuid.UUID) (ledger.Account, error) {
    if companyID == uuid.Nil || accountID == uuid.Nil {
        return ledger.Account{}, errs.ErrInvalid
    }
    return s.repo.GetAccount(ctx, companyID, accountID)
}

// Update applies allowed changes to name and details using a complete domain account.
func (s *service) Update(ctx context.Context, a ledger.Account) (ledger.Account, error) {
    if a.CompanyID == uuid.Nil || a.ID == uuid.Nil {
        return ledger.Account{}, errs.ErrInvalid
    }
    current, err := s.repo.GetAccount(ctx, a.CompanyID, a.ID)
    if err != nil { return ledger.Account{}, err }
    if current.System {
        return ledger.Account{}, errs.ErrSystemAccount
    }
    a.Category = normalizeCategory(a.Category)
    // Enforce immutability on Category/Currency and the system flag
    if current.Category != a.Category || !strings.EqualFold(current.Currency, a.Currency) || a.System != current.System {
        return ledger.Account{}, errs.ErrImmutable
    }
    a.Name = strings.TrimSpace(a.Name)
    a.Active = current.Active
    if err := s.ValidateCreate(a); err != nil {
        return ledger.Account{}, err
    }
    if !strings.EqualFold(current.Name, a.Name) {
        existing, err := s.repo.ListAccounts(ctx, a.CompanyID)
        if err != nil { return ledger.Account{}, err }
        for _, other := range existing {
            if other.ID != a.ID && strings.EqualFold(strings.TrimSpace(other.Name), a.Name) {
                return ledger.Account{}, ErrNameExists
            }
        }
    }
    return s.writer.UpdateAccount(ctx, a)
}

// Deactivate sets Active=false (soft delete). System accounts are refused.
func (s *service) Deactivate(ctx context.Context, companyID, accountID uuid.UUID) error {
    if companyID == uuid.Nil || accountID == uuid.Nil {
        return errs.ErrInvalid
    }
    acc, err := s.repo.GetAccount(ctx, companyID, accountID)
    if err != nil { return err }
    if acc.System {
        return errs.ErrSystemAccount
    }
    acc.Active = false
    if _, err := s.writer.UpdateAccount(ctx, acc); err != nil { return err }
    return nil
}

// EnsureDefaults creates the Cash, Sales and Purchases ledgers a company
// starts with, skipping any that already exist by name. It is idempotent.
func (s *service) EnsureDefaults(ctx context.Context, companyID uuid.UUID) ([]ledger.Account, error) {
    if companyID == uuid.Nil { return nil, errs.ErrInvalid }
    existing, err := s.repo.ListAccounts(ctx, companyID)
    if err != nil { return nil, err }
    have := make(map[string]ledger.Account, len(existing))
    for _, a := range existing { have[strings.ToLower(a.Name)] = a }

    defaults := []ledger.Account{
        {Name: "Cash", Category: ledger.CategoryCashInHand},
        {Name: "Sales", Category: ledger.CategorySalesAccounts, System: true},
        {Name: "Purchases", Category: ledger.CategoryPurchaseAccounts, System: true},
    }
    out := make([]ledger.Account, 0, len(defaults))
    for _, d := range defaults {
        if a, ok := have[strings.ToLower(d.Name)]; ok {
            out = append(out, a)
            continue
        }
        d.CompanyID = companyID
        d.Currency = s.currency
        d.Details = meta.Metadata{}
        if err := s.ValidateCreate(d); err != nil { return nil, err }
        d.ID = uuid.New()
        d.Active = true
        created, err := s.writer.CreateAccount(ctx, d)
        if err != nil { return nil, err }
        out = append(out, created)
    }
    return out, nil
}
