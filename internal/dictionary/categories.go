// Package dictionary is the catalogue of ledger categories and the detail
// fields each one shows. A field listed as required must be present when an
// account of that category is created; fields outside Required and Optional
// are rejected.
package dictionary

import (
	"regexp"
	"strings"

	"github.com/tinoosan/voucherdesk/internal/ledger"
)

// CategoryDef describes one ledger category.
type CategoryDef struct {
	Code     ledger.Category `json:"code"`
	Label    string          `json:"label"`
	Reserved bool            `json:"reserved"`
	Required []string        `json:"required_fields"`
	Optional []string        `json:"optional_fields"`
}

var partyRequired = []string{"mailing_name", "state"}
var partyOptional = []string{"gstin", "address", "phone", "email"}

var curated = []CategoryDef{
	{Code: ledger.CategoryBankAccounts, Label: "Bank Accounts",
		Required: []string{"account_holder", "account_number", "ifsc_code", "bank_name"},
		Optional: []string{"branch"}},
	{Code: ledger.CategoryCashInHand, Label: "Cash-in-Hand"},
	{Code: ledger.CategorySundryDebtors, Label: "Sundry Debtors", Required: partyRequired, Optional: partyOptional},
	{Code: ledger.CategorySundryCreditors, Label: "Sundry Creditors", Required: partyRequired, Optional: partyOptional},
	{Code: ledger.CategoryDutiesTaxes, Label: "Duties & Taxes", Required: []string{"tax_type"}, Optional: []string{"rate"}},
	{Code: ledger.CategoryDirectExpenses, Label: "Direct Expenses"},
	{Code: ledger.CategoryIndirectExpenses, Label: "Indirect Expenses"},
	{Code: ledger.CategoryDirectIncomes, Label: "Direct Incomes"},
	{Code: ledger.CategoryIndirectIncomes, Label: "Indirect Incomes"},
	{Code: ledger.CategoryCapitalAccount, Label: "Capital Account"},
	{Code: ledger.CategoryCurrentAssets, Label: "Current Assets"},
	{Code: ledger.CategoryCurrentLiabilities, Label: "Current Liabilities"},
	{Code: ledger.CategorySalesAccounts, Label: "Sales Accounts", Reserved: true},
	{Code: ledger.CategoryPurchaseAccounts, Label: "Purchase Accounts", Reserved: true},
}

// Categories returns all categories in display order.
func Categories() []CategoryDef {
	out := make([]CategoryDef, len(curated))
	copy(out, curated)
	return out
}

// Lookup returns the definition for code.
func Lookup(code ledger.Category) (CategoryDef, bool) {
	for _, c := range curated {
		if c.Code == code {
			return c, true
		}
	}
	return CategoryDef{}, false
}

func IsReserved(code ledger.Category) bool {
	c, ok := Lookup(code)
	return ok && c.Reserved
}

// Visible reports whether field is shown for the category.
func (c CategoryDef) Visible(field string) bool {
	for _, f := range c.Required {
		if f == field {
			return true
		}
	}
	for _, f := range c.Optional {
		if f == field {
			return true
		}
	}
	return false
}

var (
	reGSTIN = regexp.MustCompile(`^[0-9]{2}[A-Z]{5}[0-9]{4}[A-Z][1-9A-Z]Z[0-9A-Z]$`)
	reIFSC  = regexp.MustCompile(`^[A-Z]{4}0[A-Z0-9]{6}$`)
)

// FieldError names the detail field that failed and why.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string { return e.Field + ": " + e.Message }

// CheckDetails applies the category's visibility and format rules to details.
// Missing required fields come first, in declaration order.
func (c CategoryDef) CheckDetails(details map[string]string) []FieldError {
	var out []FieldError
	for _, f := range c.Required {
		if strings.TrimSpace(details[f]) == "" {
			out = append(out, FieldError{Field: f, Message: "is required"})
		}
	}
	for k, v := range details {
		if !c.Visible(k) {
			out = append(out, FieldError{Field: k, Message: "is not used by " + c.Label})
			continue
		}
		if msg := checkFormat(k, strings.TrimSpace(v)); msg != "" {
			out = append(out, FieldError{Field: k, Message: msg})
		}
	}
	return out
}

func checkFormat(field, v string) string {
	if v == "" {
		return ""
	}
	switch field {
	case "gstin":
		if !reGSTIN.MatchString(strings.ToUpper(v)) {
			return "must be a valid 15 character GSTIN"
		}
	case "ifsc_code":
		if !reIFSC.MatchString(strings.ToUpper(v)) {
			return "must be a valid IFSC code"
		}
	case "email":
		if !strings.Contains(v, "@") {
			return "must be a valid email address"
		}
	}
	return ""
}
