package books

import (
    "bytes"
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "net/http"
    "net/url"
    "strings"
    "time"

    "github.com/tinoosan/voucherdesk/internal/journal"
    "github.com/tinoosan/voucherdesk/internal/ledger"
)

// RemoteError is a non-2xx answer from the books API.
type RemoteError struct {
    Status  int
    Code    string
    Message string
}

func (e *RemoteError) Error() string {
    if e.Code != "" {
        return fmt.Sprintf("books api: %d %s: %s", e.Status, e.Code, e.Message)
    }
    return fmt.Sprintf("books api: %d: %s", e.Status, e.Message)
}

// UserMessage returns the server's message for refusals the user can act on.
// Server faults stay generic.
func (e *RemoteError) UserMessage() string {
    if e.Status >= 500 {
        return ""
    }
    return e.Message
}

// Client talks to the books HTTP API.
type Client struct {
    BaseURL string
    // Token, when set, is sent as a bearer token.
    Token string
    HTTP  *http.Client
}

var _ journal.Books = (*Client)(nil)

// NewClient returns a client with a 10s request timeout.
func NewClient(baseURL, token string) *Client {
    return &Client{
        BaseURL: strings.TrimRight(baseURL, "/"),
        Token:   token,
        HTTP:    &http.Client{Timeout: 10 * time.Second},
    }
}

type ledgerItem struct {
    ID       string `json:"id"`
    Name     string `json:"name"`
    Category string `json:"category"`
    Active   bool   `json:"active"`
}

func (c *Client) Ledgers(ctx context.Context, companyID string) ([]journal.LedgerOption, error) {
    var body struct {
        Items []ledgerItem `json:"items"`
    }
    path := "/v1/companies/" + url.PathEscape(companyID) + "/ledgers"
    if err := c.do(ctx, http.MethodGet, path, nil, "", &body); err != nil {
        return nil, err
    }
    out := make([]journal.LedgerOption, 0, len(body.Items))
    for _, it := range body.Items {
        if !it.Active { continue }
        out = append(out, journal.LedgerOption{ID: it.ID, Name: it.Name, Category: it.Category})
    }
    return out, nil
}

func (c *Client) NextVoucherNumber(ctx context.Context, companyID string, vt ledger.VoucherType) (string, error) {
    var body struct {
        VoucherNumber string `json:"voucher_number"`
    }
    path := "/v1/companies/" + url.PathEscape(companyID) + "/voucher-types/" + url.PathEscape(string(vt)) + "/next-number"
    if err := c.do(ctx, http.MethodGet, path, nil, "", &body); err != nil {
        return "", err
    }
    if body.VoucherNumber == "" {
        return "", errors.New("books api: empty voucher number")
    }
    return body.VoucherNumber, nil
}

func (c *Client) CreateVoucher(ctx context.Context, p ledger.CreateVoucherPayload, idemKey string) error {
    return c.do(ctx, http.MethodPost, "/v1/vouchers", p, idemKey, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in any, idemKey string, out any) error {
    var body io.Reader
    if in != nil {
        b, err := json.Marshal(in)
        if err != nil { return fmt.Errorf("encode request: %w", err) }
        body = bytes.NewReader(b)
    }
    req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
    if err != nil { return err }
    req.Header.Set("Accept", "application/json")
    if in != nil { req.Header.Set("Content-Type", "application/json") }
    if c.Token != "" { req.Header.Set("Authorization", "Bearer "+c.Token) }
    if idemKey != "" { req.Header.Set("Idempotency-Key", idemKey) }

    hc := c.HTTP
    if hc == nil { hc = http.DefaultClient }
    resp, err := hc.Do(req)
    if err != nil { return fmt.Errorf("books api %s %s: %w", method, path, err) }
    defer resp.Body.Close()

    if resp.StatusCode < 200 || resp.StatusCode > 299 {
        var eb struct {
            Error string `json:"error"`
            Code  string `json:"code"`
        }
        raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
        if json.Unmarshal(raw, &eb) != nil || eb.Error == "" {
            eb.Error = strings.TrimSpace(string(raw))
            if eb.Error == "" { eb.Error = http.StatusText(resp.StatusCode) }
        }
        return &RemoteError{Status: resp.StatusCode, Code: eb.Code, Message: eb.Error}
    }
    if out == nil {
        _, _ = io.Copy(io.Discard, resp.Body)
        return nil
    }
    if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
        return fmt.Errorf("decode response: %w", err)
    }
    return nil
}
