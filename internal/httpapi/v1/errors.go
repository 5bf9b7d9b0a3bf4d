package v1

import (
    "errors"
    "net/http"

    "github.com/tinoosan/voucherdesk/internal/errs"
    "github.com/tinoosan/voucherdesk/internal/service/account"
    "github.com/tinoosan/voucherdesk/internal/service/voucher"
)

// errorResponse is the standard error payload for the API.
type errorResponse struct {
    Error  string            `json:"error"`
    Code   string            `json:"code,omitempty"`
    Fields map[string]string `json:"fields,omitempty"`
}

func writeErr(w http.ResponseWriter, status int, msg, code string) {
    toJSON(w, status, errorResponse{Error: msg, Code: code})
}

func badRequest(w http.ResponseWriter, msg string) { writeErr(w, http.StatusBadRequest, msg, "bad_request") }
func notFound(w http.ResponseWriter)               { writeErr(w, http.StatusNotFound, "not_found", "not_found") }
func forbidden(w http.ResponseWriter, msg string)  { writeErr(w, http.StatusForbidden, msg, "forbidden") }
func conflict(w http.ResponseWriter, msg, code string) { writeErr(w, http.StatusConflict, msg, code) }
func unprocessable(w http.ResponseWriter, msg, code string) {
    writeErr(w, http.StatusUnprocessableEntity, msg, code)
}
func internalError(w http.ResponseWriter) {
    writeErr(w, http.StatusInternalServerError, "internal error", "internal")
}

// writeServiceErr maps service and store errors onto HTTP responses.
func writeServiceErr(w http.ResponseWriter, err error) {
    var (
        vErr *voucher.ValidationError
        dErr *account.DetailsError
    )
    switch {
    case errors.As(err, &vErr):
        unprocessable(w, vErr.Message, vErr.Code)
    case errors.As(err, &dErr):
        fields := make(map[string]string, len(dErr.Fields))
        for _, f := range dErr.Fields { fields[f.Field] = f.Message }
        toJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "invalid details", Code: "validation_error", Fields: fields})
    case errors.Is(err, account.ErrNameExists):
        conflict(w, err.Error(), "name_exists")
    case errors.Is(err, errs.ErrConflict):
        conflict(w, "conflict", "conflict")
    case errors.Is(err, errs.ErrNotFound):
        notFound(w)
    case errors.Is(err, errs.ErrSystemAccount):
        forbidden(w, "system_account")
    case errors.Is(err, errs.ErrForbidden):
        forbidden(w, "forbidden")
    case errors.Is(err, errs.ErrImmutable):
        unprocessable(w, "immutable", "immutable")
    case errors.Is(err, errs.ErrUnprocessable):
        unprocessable(w, err.Error(), "validation_error")
    case errors.Is(err, errs.ErrInvalid):
        badRequest(w, "invalid")
    default:
        internalError(w)
    }
}
