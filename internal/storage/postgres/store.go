package postgres

// Package postgres provides a pgx-backed storage implementation that satisfies
// the repository and writer interfaces used by the services.
//
// Migrations that create the expected schema live under db/migrations. This
// package maps between the domain entities and SQL rows and runs the
// necessary statements/transactions.

import (
    "context"
    "errors"
    "fmt"
    "strings"

    "github.com/google/uuid"
    "github.com/govalues/money"
    "github.com/jackc/pgx/v5"
    "github.com/jackc/pgx/v5/pgconn"
    "github.com/jackc/pgx/v5/pgtype"
    "github.com/jackc/pgx/v5/pgxpool"

    "github.com/tinoosan/voucherdesk/internal/errs"
    "github.com/tinoosan/voucherdesk/internal/ledger"
    "github.com/tinoosan/voucherdesk/internal/meta"
)

// Store holds a pgx connection pool and implements the read/write interfaces
// used across the service layer. All methods are safe for concurrent use.
type Store struct {
    pool *pgxpool.Pool
}

// Open establishes a pgx pool using the provided connection string.
func Open(ctx context.Context, dsn string) (*Store, error) {
    cfg, err := pgxpool.ParseConfig(dsn)
    if err != nil { return nil, err }
    pool, err := pgxpool.NewWithConfig(ctx, cfg)
    if err != nil { return nil, err }
    // Verify connection
    if err := pool.Ping(ctx); err != nil { pool.Close(); return nil, err }
    return &Store{pool: pool}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() { if s.pool != nil { s.pool.Close() } }

// Ping verifies connectivity to the database.
func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func isUniqueViolation(err error) bool {
    var pgErr *pgconn.PgError
    return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// --- Accounts ---

const accountCols = `id, company_id, name, category, currency, details, system, active`

func scanAccount(row pgx.Row) (ledger.Account, error) {
    var a ledger.Account
    var details []byte
    if err := row.Scan(&a.ID, &a.CompanyID, &a.Name, &a.Category, &a.Currency, &details, &a.System, &a.Active); err != nil {
        return ledger.Account{}, err
    }
    a.Details = meta.Metadata{}
    if len(details) > 0 {
        var m meta.Metadata
        if err := m.UnmarshalJSON(details); err == nil { a.Details = m }
    }
    return a, nil
}

// AccountsByIDs returns the company's accounts among ids.
func (s *Store) AccountsByIDs(ctx context.Context, companyID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]ledger.Account, error) {
    if len(ids) == 0 { return map[uuid.UUID]ledger.Account{}, nil }
    rows, err := s.pool.Query(ctx, `select `+accountCols+` from accounts where company_id = $1 and id = any($2)`, companyID, ids)
    if err != nil { return nil, err }
    defer rows.Close()
    out := make(map[uuid.UUID]ledger.Account)
    for rows.Next() {
        a, err := scanAccount(rows)
        if err != nil { return nil, err }
        out[a.ID] = a
    }
    return out, rows.Err()
}

// ListAccounts returns all accounts for a company ordered by name.
func (s *Store) ListAccounts(ctx context.Context, companyID uuid.UUID) ([]ledger.Account, error) {
    rows, err := s.pool.Query(ctx, `select `+accountCols+` from accounts where company_id = $1 order by lower(name), id`, companyID)
    if err != nil { return nil, err }
    defer rows.Close()
    out := make([]ledger.Account, 0)
    for rows.Next() {
        a, err := scanAccount(rows)
        if err != nil { return nil, err }
        out = append(out, a)
    }
    return out, rows.Err()
}

// GetAccount returns a company's account by ID.
func (s *Store) GetAccount(ctx context.Context, companyID, accountID uuid.UUID) (ledger.Account, error) {
    a, err := scanAccount(s.pool.QueryRow(ctx, `select `+accountCols+` from accounts where id = $1 and company_id = $2`, accountID, companyID))
    if errors.Is(err, pgx.ErrNoRows) { return ledger.Account{}, errs.ErrNotFound }
    return a, err
}

// CreateAccount inserts a new account.
func (s *Store) CreateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error) {
    if err := a.Details.Validate(); err != nil { return ledger.Account{}, err }
    details, _ := a.Details.MarshalStableJSON()
    _, err := s.pool.Exec(ctx, `
        insert into accounts (`+accountCols+`)
        values ($1,$2,$3,$4,$5,$6,$7,$8)
    `, a.ID, a.CompanyID, a.Name, string(a.Category), strings.ToUpper(a.Currency), details, a.System, a.Active)
    if isUniqueViolation(err) { return ledger.Account{}, errs.ErrConflict }
    if err != nil { return ledger.Account{}, err }
    return a, nil
}

// UpdateAccount persists name, details and active flag.
func (s *Store) UpdateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error) {
    if err := a.Details.Validate(); err != nil { return ledger.Account{}, err }
    details, _ := a.Details.MarshalStableJSON()
    tag, err := s.pool.Exec(ctx, `
        update accounts set name = $3, details = $4, active = $5
        where id = $1 and company_id = $2
    `, a.ID, a.CompanyID, a.Name, details, a.Active)
    if isUniqueViolation(err) { return ledger.Account{}, errs.ErrConflict }
    if err != nil { return ledger.Account{}, err }
    if tag.RowsAffected() == 0 { return ledger.Account{}, errs.ErrNotFound }
    return a, nil
}

// --- Vouchers ---

// PeekVoucherSeq returns the sequence the next voucher of the type would get.
func (s *Store) PeekVoucherSeq(ctx context.Context, companyID uuid.UUID, vt ledger.VoucherType) (int64, error) {
    var last int64
    err := s.pool.QueryRow(ctx, `
        select last_seq from voucher_counters where company_id = $1 and voucher_type = $2
    `, companyID, string(vt)).Scan(&last)
    if err != nil && !errors.Is(err, pgx.ErrNoRows) { return 0, err }
    return last + 1, nil
}

// CreateVoucher inserts the voucher, its lines, the counter move and the
// idempotency key in one transaction. The counter row is locked for the
// duration so concurrent creates of the same type serialize.
func (s *Store) CreateVoucher(ctx context.Context, v ledger.Voucher, idemKey string) (ledger.Voucher, error) {
    def, ok := ledger.LookupVoucherType(string(v.Type))
    if !ok { return ledger.Voucher{}, errs.ErrInvalid }

    tx, err := s.pool.Begin(ctx)
    if err != nil { return ledger.Voucher{}, err }
    defer func() { _ = tx.Rollback(ctx) }()

    if idemKey != "" {
        if id, found, err := idemLookup(ctx, tx, v.CompanyID, idemKey); err != nil {
            return ledger.Voucher{}, err
        } else if found {
            _ = tx.Rollback(ctx)
            return s.VoucherByID(ctx, v.CompanyID, id)
        }
    }

    if _, err := tx.Exec(ctx, `
        insert into voucher_counters (company_id, voucher_type, last_seq) values ($1,$2,0)
        on conflict (company_id, voucher_type) do nothing
    `, v.CompanyID, string(def.Type)); err != nil {
        return ledger.Voucher{}, err
    }
    var last int64
    if err := tx.QueryRow(ctx, `
        select last_seq from voucher_counters where company_id = $1 and voucher_type = $2 for update
    `, v.CompanyID, string(def.Type)).Scan(&last); err != nil {
        return ledger.Voucher{}, err
    }
    if v.Number == "" {
        v.Number = def.FormatNumber(last + 1)
    }

    total, _ := v.Total.MinorUnits()
    var party any
    if v.PartyID != uuid.Nil { party = v.PartyID }
    if _, err := tx.Exec(ctx, `
        insert into vouchers (id, company_id, voucher_type, voucher_type_id, date, number, party_name, party_id, narration, payment_mode, currency, total_minor, created_at)
        values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
    `, v.ID, v.CompanyID, string(v.Type), v.TypeID, v.Date, v.Number, v.PartyName, party, v.Narration, string(v.PaymentMode), strings.ToUpper(v.Currency), total, v.CreatedAt); err != nil {
        if isUniqueViolation(err) { return ledger.Voucher{}, errs.ErrConflict }
        return ledger.Voucher{}, err
    }
    for i := range v.Lines {
        ln := &v.Lines[i]
        ln.VoucherID = v.ID
        minor, _ := ln.Amount.MinorUnits()
        if _, err := tx.Exec(ctx, `
            insert into voucher_lines (id, voucher_id, account_id, account_name, amount_minor, order_index)
            values ($1,$2,$3,$4,$5,$6)
        `, ln.ID, v.ID, ln.AccountID, ln.AccountName, minor, ln.OrderIndex); err != nil {
            return ledger.Voucher{}, fmt.Errorf("insert line: %w", err)
        }
    }
    if seq, ok := def.ParseNumber(v.Number); ok && seq > last {
        if _, err := tx.Exec(ctx, `
            update voucher_counters set last_seq = $3 where company_id = $1 and voucher_type = $2
        `, v.CompanyID, string(def.Type), seq); err != nil {
            return ledger.Voucher{}, err
        }
    }
    if idemKey != "" {
        if _, err := tx.Exec(ctx, `
            insert into voucher_idempotency (company_id, key, voucher_id) values ($1,$2,$3)
        `, v.CompanyID, idemKey, v.ID); err != nil {
            if isUniqueViolation(err) {
                // another request with the same key committed first
                _ = tx.Rollback(ctx)
                prev, ok, err := s.VoucherByIdempotencyKey(ctx, v.CompanyID, idemKey)
                if err == nil && ok { return prev, nil }
                return ledger.Voucher{}, errs.ErrConflict
            }
            return ledger.Voucher{}, err
        }
    }
    if err := tx.Commit(ctx); err != nil { return ledger.Voucher{}, err }
    return v, nil
}

func idemLookup(ctx context.Context, q pgx.Tx, companyID uuid.UUID, key string) (uuid.UUID, bool, error) {
    var id uuid.UUID
    err := q.QueryRow(ctx, `select voucher_id from voucher_idempotency where company_id = $1 and key = $2`, companyID, key).Scan(&id)
    if errors.Is(err, pgx.ErrNoRows) { return uuid.Nil, false, nil }
    if err != nil { return uuid.Nil, false, err }
    return id, true, nil
}

const voucherCols = `id, company_id, voucher_type, voucher_type_id, date, number, party_name, party_id, narration, payment_mode, currency, total_minor, created_at`

func scanVoucher(row pgx.Row) (ledger.Voucher, error) {
    var (
        v     ledger.Voucher
        vt    string
        mode  string
        party pgtype.UUID
        total int64
    )
    if err := row.Scan(&v.ID, &v.CompanyID, &vt, &v.TypeID, &v.Date, &v.Number, &v.PartyName, &party, &v.Narration, &mode, &v.Currency, &total, &v.CreatedAt); err != nil {
        return ledger.Voucher{}, err
    }
    v.Type = ledger.VoucherType(vt)
    v.PaymentMode = ledger.PaymentMode(mode)
    if party.Valid { v.PartyID = uuid.UUID(party.Bytes) }
    amt, err := money.NewAmountFromMinorUnits(v.Currency, total)
    if err != nil { return ledger.Voucher{}, err }
    v.Total = amt
    return v, nil
}

// loadLines fills the lines of the given vouchers, in order_index order.
func (s *Store) loadLines(ctx context.Context, vouchers []ledger.Voucher) error {
    if len(vouchers) == 0 { return nil }
    ids := make([]uuid.UUID, len(vouchers))
    pos := make(map[uuid.UUID]int, len(vouchers))
    for i, v := range vouchers { ids[i] = v.ID; pos[v.ID] = i }
    rows, err := s.pool.Query(ctx, `
        select id, voucher_id, account_id, account_name, amount_minor, order_index
        from voucher_lines where voucher_id = any($1)
        order by voucher_id, order_index
    `, ids)
    if err != nil { return err }
    defer rows.Close()
    for rows.Next() {
        var ln ledger.AccountingLine
        var minor int64
        if err := rows.Scan(&ln.ID, &ln.VoucherID, &ln.AccountID, &ln.AccountName, &minor, &ln.OrderIndex); err != nil { return err }
        v := &vouchers[pos[ln.VoucherID]]
        amt, err := money.NewAmountFromMinorUnits(v.Currency, minor)
        if err != nil { return err }
        ln.Amount = amt
        v.Lines = append(v.Lines, ln)
    }
    return rows.Err()
}

// VouchersByCompany returns a company's vouchers ordered by date and number.
func (s *Store) VouchersByCompany(ctx context.Context, companyID uuid.UUID) ([]ledger.Voucher, error) {
    rows, err := s.pool.Query(ctx, `select `+voucherCols+` from vouchers where company_id = $1 order by date, number, id`, companyID)
    if err != nil { return nil, err }
    out := make([]ledger.Voucher, 0)
    for rows.Next() {
        v, err := scanVoucher(rows)
        if err != nil { rows.Close(); return nil, err }
        out = append(out, v)
    }
    rows.Close()
    if err := rows.Err(); err != nil { return nil, err }
    if err := s.loadLines(ctx, out); err != nil { return nil, err }
    return out, nil
}

// VoucherByID returns a single voucher with its lines.
func (s *Store) VoucherByID(ctx context.Context, companyID, id uuid.UUID) (ledger.Voucher, error) {
    v, err := scanVoucher(s.pool.QueryRow(ctx, `select `+voucherCols+` from vouchers where id = $1 and company_id = $2`, id, companyID))
    if errors.Is(err, pgx.ErrNoRows) { return ledger.Voucher{}, errs.ErrNotFound }
    if err != nil { return ledger.Voucher{}, err }
    list := []ledger.Voucher{v}
    if err := s.loadLines(ctx, list); err != nil { return ledger.Voucher{}, err }
    return list[0], nil
}

// VoucherByIdempotencyKey resolves a voucher created under key.
func (s *Store) VoucherByIdempotencyKey(ctx context.Context, companyID uuid.UUID, key string) (ledger.Voucher, bool, error) {
    var id uuid.UUID
    err := s.pool.QueryRow(ctx, `select voucher_id from voucher_idempotency where company_id = $1 and key = $2`, companyID, key).Scan(&id)
    if errors.Is(err, pgx.ErrNoRows) { return ledger.Voucher{}, false, nil }
    if err != nil { return ledger.Voucher{}, false, err }
    v, err := s.VoucherByID(ctx, companyID, id)
    if err != nil { return ledger.Voucher{}, false, err }
    return v, true, nil
}
