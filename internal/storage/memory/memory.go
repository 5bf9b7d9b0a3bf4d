package memory

// Package memory provides a simple in-memory implementation used for development and tests.
// It keeps code paths easy to follow while allowing us to plug in a real DB later.
import (
    "context"
    "sort"
    "strings"
    "sync"
    "time"

    "github.com/google/uuid"

    "github.com/tinoosan/voucherdesk/internal/errs"
    "github.com/tinoosan/voucherdesk/internal/ledger"
)

// voucherKey tracks ordering for vouchers per company: sorted asc by (Date, Number, ID)
type voucherKey struct {
    Date   time.Time
    Number string
    ID     uuid.UUID
}

type counterKey struct {
    CompanyID uuid.UUID
    Type      ledger.VoucherType
}

// Store is an in-memory implementation of the repositories used by the services.
// It is guarded by an RWMutex for concurrent reads/writes.
type Store struct {
    mu       sync.RWMutex
    accounts map[uuid.UUID]ledger.Account
    vouchers map[uuid.UUID]*ledger.Voucher
    // Per-company sorted index of vouchers for ordered scans
    keysByCompany map[uuid.UUID][]voucherKey
    // Last allocated sequence per (company, voucher type)
    counters map[counterKey]int64
    // Idempotency: companyID -> key -> voucherID
    idem map[uuid.UUID]map[string]uuid.UUID
}

// New constructs an empty in-memory store.
func New() *Store {
    s := &Store{}
    s.Reset()
    return s
}

// SeedAccount stores a for local dev/tests.
func (s *Store) SeedAccount(a ledger.Account) { s.mu.Lock(); s.accounts[a.ID] = cloneAccount(a); s.mu.Unlock() }

func (s *Store) Reset() {
    s.mu.Lock()
    s.accounts = map[uuid.UUID]ledger.Account{}
    s.vouchers = map[uuid.UUID]*ledger.Voucher{}
    s.keysByCompany = map[uuid.UUID][]voucherKey{}
    s.counters = map[counterKey]int64{}
    s.idem = map[uuid.UUID]map[string]uuid.UUID{}
    s.mu.Unlock()
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// AccountsByIDs returns the company's accounts among ids.
func (s *Store) AccountsByIDs(_ context.Context, companyID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]ledger.Account, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    out := make(map[uuid.UUID]ledger.Account, len(ids))
    for _, id := range ids {
        if acc, ok := s.accounts[id]; ok && acc.CompanyID == companyID {
            out[id] = cloneAccount(acc)
        }
    }
    return out, nil
}

// ListAccounts returns a company's accounts ordered by name.
func (s *Store) ListAccounts(_ context.Context, companyID uuid.UUID) ([]ledger.Account, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    out := make([]ledger.Account, 0)
    for _, a := range s.accounts {
        if a.CompanyID == companyID {
            out = append(out, cloneAccount(a))
        }
    }
    sort.Slice(out, func(i, j int) bool {
        ni, nj := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
        if ni != nj {
            return ni < nj
        }
        return out[i].ID.String() < out[j].ID.String()
    })
    return out, nil
}

// CreateAccount persists a new account.
func (s *Store) CreateAccount(_ context.Context, a ledger.Account) (ledger.Account, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    if _, ok := s.accounts[a.ID]; ok {
        return ledger.Account{}, errs.ErrConflict
    }
    s.accounts[a.ID] = cloneAccount(a)
    return a, nil
}

// GetAccount returns a company's account by ID.
func (s *Store) GetAccount(_ context.Context, companyID, accountID uuid.UUID) (ledger.Account, error) {
    s.mu.RLock(); defer s.mu.RUnlock()
    a, ok := s.accounts[accountID]
    if !ok || a.CompanyID != companyID { return ledger.Account{}, errs.ErrNotFound }
    return cloneAccount(a), nil
}

// UpdateAccount persists changes to an account.
func (s *Store) UpdateAccount(_ context.Context, a ledger.Account) (ledger.Account, error) {
    s.mu.Lock(); defer s.mu.Unlock()
    cur, ok := s.accounts[a.ID]
    if !ok || cur.CompanyID != a.CompanyID { return ledger.Account{}, errs.ErrNotFound }
    s.accounts[a.ID] = cloneAccount(a)
    return a, nil
}

// PeekVoucherSeq returns the sequence the next voucher of the type would get.
func (s *Store) PeekVoucherSeq(_ context.Context, companyID uuid.UUID, vt ledger.VoucherType) (int64, error) {
    s.mu.RLock(); defer s.mu.RUnlock()
    return s.counters[counterKey{companyID, vt}] + 1, nil
}

// CreateVoucher persists v and its lines in one step. A blank number is
// allocated from the counter; a number in the type's own format moves the
// counter forward. A number already used by the company is a conflict. When
// idemKey was seen before, the voucher stored under it is returned instead.
func (s *Store) CreateVoucher(_ context.Context, v ledger.Voucher, idemKey string) (ledger.Voucher, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    if idemKey != "" {
        if id, ok := s.idem[v.CompanyID][idemKey]; ok {
            if prev, ok := s.vouchers[id]; ok {
                return cloneVoucher(*prev), nil
            }
        }
    }
    def, ok := ledger.LookupVoucherType(string(v.Type))
    if !ok {
        return ledger.Voucher{}, errs.ErrInvalid
    }
    ck := counterKey{v.CompanyID, def.Type}
    if v.Number == "" {
        v.Number = def.FormatNumber(s.counters[ck] + 1)
    }
    for _, k := range s.keysByCompany[v.CompanyID] {
        if strings.EqualFold(k.Number, v.Number) {
            if other := s.vouchers[k.ID]; other != nil && other.Type == v.Type {
                return ledger.Voucher{}, errs.ErrConflict
            }
        }
    }
    if seq, ok := def.ParseNumber(v.Number); ok && seq > s.counters[ck] {
        s.counters[ck] = seq
    }
    for i := range v.Lines {
        v.Lines[i].VoucherID = v.ID
    }
    stored := cloneVoucher(v)
    s.vouchers[v.ID] = &stored
    s.insertVoucherIndexLocked(v.CompanyID, voucherKey{Date: v.Date, Number: v.Number, ID: v.ID})
    if idemKey != "" {
        m, ok := s.idem[v.CompanyID]
        if !ok { m = make(map[string]uuid.UUID); s.idem[v.CompanyID] = m }
        m[idemKey] = v.ID
    }
    return cloneVoucher(v), nil
}

// VouchersByCompany returns a company's vouchers ordered by date.
func (s *Store) VouchersByCompany(_ context.Context, companyID uuid.UUID) ([]ledger.Voucher, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    keys := s.keysByCompany[companyID]
    out := make([]ledger.Voucher, 0, len(keys))
    for _, k := range keys {
        if v, ok := s.vouchers[k.ID]; ok {
            out = append(out, cloneVoucher(*v))
        }
    }
    return out, nil
}

// VoucherByID returns a single voucher of the company.
func (s *Store) VoucherByID(_ context.Context, companyID, id uuid.UUID) (ledger.Voucher, error) {
    s.mu.RLock(); defer s.mu.RUnlock()
    v, ok := s.vouchers[id]
    if !ok || v.CompanyID != companyID { return ledger.Voucher{}, errs.ErrNotFound }
    return cloneVoucher(*v), nil
}

// VoucherByIdempotencyKey resolves a voucher created under key.
func (s *Store) VoucherByIdempotencyKey(_ context.Context, companyID uuid.UUID, key string) (ledger.Voucher, bool, error) {
    s.mu.RLock(); defer s.mu.RUnlock()
    if id, ok := s.idem[companyID][key]; ok {
        if v, ok := s.vouchers[id]; ok {
            return cloneVoucher(*v), true, nil
        }
    }
    return ledger.Voucher{}, false, nil
}

func cloneAccount(a ledger.Account) ledger.Account {
    a.Details = a.Details.Clone()
    return a
}

func cloneVoucher(v ledger.Voucher) ledger.Voucher {
    lines := make([]ledger.AccountingLine, len(v.Lines))
    copy(lines, v.Lines)
    v.Lines = lines
    return v
}

// insertVoucherIndexLocked inserts k into the per-company sorted index.
// Caller must hold s.mu (write lock).
func (s *Store) insertVoucherIndexLocked(companyID uuid.UUID, k voucherKey) {
    keys := s.keysByCompany[companyID]
    // binary search for first position > k (stable insert after equal)
    i := sort.Search(len(keys), func(i int) bool {
        if keys[i].Date.After(k.Date) { return true }
        if keys[i].Date.Equal(k.Date) { return keys[i].Number > k.Number }
        return false
    })
    keys = append(keys, voucherKey{})
    copy(keys[i+1:], keys[i:])
    keys[i] = k
    s.keysByCompany[companyID] = keys
}
