package ledger

import (
    "strings"
    "time"

    "github.com/google/uuid"
    "github.com/govalues/money"
    "github.com/tinoosan/voucherdesk/internal/meta"
)

// Category is the group a ledger account is filed under (bank accounts,
// sundry debtors, ...). It drives which detail fields an account carries.
type Category string

const (
    CategoryBankAccounts       Category = "bank_accounts"
    CategoryCashInHand         Category = "cash_in_hand"
    CategorySundryDebtors      Category = "sundry_debtors"
    CategorySundryCreditors    Category = "sundry_creditors"
    CategoryDutiesTaxes        Category = "duties_taxes"
    CategoryDirectExpenses     Category = "direct_expenses"
    CategoryIndirectExpenses   Category = "indirect_expenses"
    CategoryDirectIncomes      Category = "direct_incomes"
    CategoryIndirectIncomes    Category = "indirect_incomes"
    CategoryCapitalAccount     Category = "capital_account"
    CategoryCurrentAssets      Category = "current_assets"
    CategoryCurrentLiabilities Category = "current_liabilities"
    CategorySalesAccounts      Category = "sales_accounts"
    CategoryPurchaseAccounts   Category = "purchase_accounts"
)

// Account is a ledger account belonging to a company.
type Account struct {
    ID        uuid.UUID
    CompanyID uuid.UUID
    Name      string
    Category  Category
    Currency  string
    // Details holds the category specific fields (account number, GSTIN, ...).
    Details meta.Metadata
    // System marks built-in accounts (Sales, Purchases) that cannot be edited.
    System bool
    // Active is false once the account has been deactivated.
    Active bool
}

// IsBuiltinTrading reports whether the account is one of the built-in Sales or
// Purchases ledgers.
func (a Account) IsBuiltinTrading() bool {
    return IsBuiltinTradingName(a.Name)
}

// IsBuiltinTradingName matches the built-in Sales/Purchases ledger names.
func IsBuiltinTradingName(name string) bool {
    n := strings.TrimSpace(name)
    return strings.EqualFold(n, "Sales") || strings.EqualFold(n, "Purchases")
}

// Voucher is a posted accounting document. Lines are kept in order_index order.
type Voucher struct {
    ID          uuid.UUID
    CompanyID   uuid.UUID
    Type        VoucherType
    TypeID      string
    Date        time.Time
    Number      string
    PartyName   string
    PartyID     uuid.UUID
    Narration   string
    PaymentMode PaymentMode
    Currency    string
    Total       money.Amount
    Lines       []AccountingLine
    CreatedAt   time.Time
}

// AccountingLine posts a signed amount to one account: positive is the debit
// ("To") side, negative the credit ("From") side.
type AccountingLine struct {
    ID          uuid.UUID
    VoucherID   uuid.UUID
    AccountID   uuid.UUID
    AccountName string
    Amount      money.Amount
    OrderIndex  int
}
