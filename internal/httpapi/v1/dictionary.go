package v1

import (
	"net/http"

	"github.com/tinoosan/voucherdesk/internal/dictionary"
	"github.com/tinoosan/voucherdesk/internal/ledger"
)

// GET /v1/dictionary/ledger-categories?include_reserved=true
func (s *Server) getLedgerCategories(w http.ResponseWriter, r *http.Request) {
	withReserved := r.URL.Query().Get("include_reserved") == "true"
	out := struct {
		Items []dictionary.CategoryDef `json:"items"`
	}{Items: []dictionary.CategoryDef{}}
	for _, c := range dictionary.Categories() {
		if c.Reserved && !withReserved {
			continue
		}
		out.Items = append(out.Items, c)
	}
	toJSON(w, http.StatusOK, out)
}

// GET /v1/dictionary/voucher-types
func (s *Server) getVoucherTypes(w http.ResponseWriter, r *http.Request) {
	out := struct {
		Items        []ledger.VoucherTypeDef `json:"items"`
		PaymentModes []ledger.PaymentMode    `json:"payment_modes"`
	}{Items: ledger.VoucherTypes(), PaymentModes: ledger.PaymentModes()}
	toJSON(w, http.StatusOK, out)
}
