// Package voucher implements the books side of voucher posting: numbering,
// payload validation, persistence, events and ledger balances.
package voucher

import (
    "context"
    "log/slog"
    "strings"
    "time"

    "github.com/google/uuid"
    "github.com/govalues/money"

    "github.com/tinoosan/voucherdesk/internal/errs"
    "github.com/tinoosan/voucherdesk/internal/events"
    "github.com/tinoosan/voucherdesk/internal/ledger"
)

// Repo defines read operations needed by the service.
type Repo interface {
    AccountsByIDs(ctx context.Context, companyID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]ledger.Account, error)
    ListAccounts(ctx context.Context, companyID uuid.UUID) ([]ledger.Account, error)
    VouchersByCompany(ctx context.Context, companyID uuid.UUID) ([]ledger.Voucher, error)
    VoucherByID(ctx context.Context, companyID, id uuid.UUID) (ledger.Voucher, error)
    VoucherByIdempotencyKey(ctx context.Context, companyID uuid.UUID, key string) (ledger.Voucher, bool, error)
    PeekVoucherSeq(ctx context.Context, companyID uuid.UUID, vt ledger.VoucherType) (int64, error)
}

// Writer defines write operations needed by the service.
type Writer interface {
    // CreateVoucher persists the voucher and its lines atomically, allocating
    // the number when blank. A replayed idemKey returns the earlier voucher.
    CreateVoucher(ctx context.Context, v ledger.Voucher, idemKey string) (ledger.Voucher, error)
}

// Service exposes voucher numbering, validation, creation and reporting helpers.
type Service interface {
    NextNumber(ctx context.Context, companyID uuid.UUID, vt ledger.VoucherType) (string, error)
    ValidatePayload(ctx context.Context, p ledger.CreateVoucherPayload) (ledger.Voucher, error)
    // Create returns replayed=true when idemKey matched an earlier voucher.
    Create(ctx context.Context, p ledger.CreateVoucherPayload, idemKey string) (v ledger.Voucher, replayed bool, err error)
    List(ctx context.Context, companyID uuid.UUID, vt ledger.VoucherType) ([]ledger.Voucher, error)
    Get(ctx context.Context, companyID, id uuid.UUID) (ledger.Voucher, error)
    TrialBalance(ctx context.Context, companyID uuid.UUID, asOf *time.Time) (map[uuid.UUID]money.Amount, error)
    AccountBalance(ctx context.Context, companyID, accountID uuid.UUID, asOf *time.Time) (money.Amount, error)
}

type Options struct {
    // Currency of every voucher; defaults to INR.
    Currency  string
    Publisher events.Publisher
    Topic     string
    Logger    *slog.Logger
}

type service struct {
    repo   Repo
    writer Writer
    curr   string
    pub    events.Publisher
    topic  string
    log    *slog.Logger
    now    func() time.Time
}

func New(repo Repo, writer Writer, opts Options) Service {
    s := &service{repo: repo, writer: writer, curr: strings.ToUpper(opts.Currency), pub: opts.Publisher, topic: opts.Topic, log: opts.Logger, now: time.Now}
    if s.curr == "" { s.curr = "INR" }
    if s.topic == "" { s.topic = events.TopicVoucherCreated }
    if s.log == nil { s.log = slog.Default() }
    if s.pub == nil { s.pub = events.LogPublisher{Log: s.log} }
    return s
}

// NextNumber peeks the number the next voucher of the type will get. It does
// not reserve it.
func (s *service) NextNumber(ctx context.Context, companyID uuid.UUID, vt ledger.VoucherType) (string, error) {
    if companyID == uuid.Nil {
        return "", errs.ErrInvalid
    }
    def, ok := ledger.LookupVoucherType(string(vt))
    if !ok {
        return "", errs.ErrInvalid
    }
    seq, err := s.repo.PeekVoucherSeq(ctx, companyID, def.Type)
    if err != nil {
        return "", err
    }
    return def.FormatNumber(seq), nil
}

func (s *service) Create(ctx context.Context, p ledger.CreateVoucherPayload, idemKey string) (ledger.Voucher, bool, error) {
    idemKey = strings.TrimSpace(idemKey)
    if idemKey != "" {
        if companyID, err := uuid.Parse(strings.TrimSpace(p.CompanyID)); err == nil {
            prev, ok, err := s.repo.VoucherByIdempotencyKey(ctx, companyID, idemKey)
            if err != nil {
                return ledger.Voucher{}, false, err
            }
            if ok {
                return prev, true, nil
            }
        }
    }
    v, err := s.ValidatePayload(ctx, p)
    if err != nil {
        return ledger.Voucher{}, false, err
    }
    v.ID = uuid.New()
    v.CreatedAt = s.now().UTC()
    for i := range v.Lines {
        v.Lines[i].ID = uuid.New()
        v.Lines[i].VoucherID = v.ID
    }
    created, err := s.writer.CreateVoucher(ctx, v, idemKey)
    if err != nil {
        return ledger.Voucher{}, false, err
    }
    if created.ID != v.ID {
        // lost a race on the same idempotency key
        return created, true, nil
    }

    ev := events.VoucherCreated{
        VoucherID:     created.ID.String(),
        CompanyID:     created.CompanyID.String(),
        VoucherType:   string(created.Type),
        VoucherNumber: created.Number,
        Total:         ledger.Format(created.Total),
        Currency:      created.Currency,
        OccurredAt:    created.CreatedAt,
    }
    if err := s.pub.Publish(ctx, s.topic, ev); err != nil {
        s.log.Warn("voucher event publish failed", "voucher_id", ev.VoucherID, "err", err)
    }
    s.log.Info("voucher created", "voucher_id", ev.VoucherID, "company_id", ev.CompanyID,
        "voucher_type", ev.VoucherType, "voucher_number", ev.VoucherNumber, "total", ev.Total)
    return created, false, nil
}

func (s *service) List(ctx context.Context, companyID uuid.UUID, vt ledger.VoucherType) ([]ledger.Voucher, error) {
    if companyID == uuid.Nil {
        return nil, errs.ErrInvalid
    }
    all, err := s.repo.VouchersByCompany(ctx, companyID)
    if err != nil {
        return nil, err
    }
    if vt == "" {
        return all, nil
    }
    out := make([]ledger.Voucher, 0, len(all))
    for _, v := range all {
        if strings.EqualFold(string(v.Type), string(vt)) {
            out = append(out, v)
        }
    }
    return out, nil
}

func (s *service) Get(ctx context.Context, companyID, id uuid.UUID) (ledger.Voucher, error) {
    if companyID == uuid.Nil || id == uuid.Nil {
        return ledger.Voucher{}, errs.ErrInvalid
    }
    return s.repo.VoucherByID(ctx, companyID, id)
}

// TrialBalance returns the net signed amount (debits positive) per account up to asOf.
func (s *service) TrialBalance(ctx context.Context, companyID uuid.UUID, asOf *time.Time) (map[uuid.UUID]money.Amount, error) {
    if companyID == uuid.Nil {
        return nil, errs.ErrInvalid
    }
    vouchers, err := s.repo.VouchersByCompany(ctx, companyID)
    if err != nil { return nil, err }
    out := make(map[uuid.UUID]money.Amount)
    for _, v := range vouchers {
        if asOf != nil && v.Date.After(*asOf) {
            continue
        }
        for _, ln := range v.Lines {
            cur, ok := out[ln.AccountID]
            if !ok {
                cur = ledger.Zero(ln.Amount.Curr().Code())
            }
            if sum, err := cur.Add(ln.Amount); err == nil { out[ln.AccountID] = sum }
        }
    }
    return out, nil
}

// AccountBalance returns the net amount for a single account up to asOf.
func (s *service) AccountBalance(ctx context.Context, companyID, accountID uuid.UUID, asOf *time.Time) (money.Amount, error) {
    if companyID == uuid.Nil || accountID == uuid.Nil {
        return ledger.Zero(s.curr), errs.ErrInvalid
    }
    accs, err := s.repo.AccountsByIDs(ctx, companyID, []uuid.UUID{accountID})
    if err != nil { return ledger.Zero(s.curr), err }
    acc, ok := accs[accountID]
    if !ok { return ledger.Zero(s.curr), errs.ErrNotFound }
    vouchers, err := s.repo.VouchersByCompany(ctx, companyID)
    if err != nil { return ledger.Zero(acc.Currency), err }
    net := ledger.Zero(acc.Currency)
    for _, v := range vouchers {
        if asOf != nil && v.Date.After(*asOf) { continue }
        for _, ln := range v.Lines {
            if ln.AccountID != accountID { continue }
            if sum, err := net.Add(ln.Amount); err == nil { net = sum }
        }
    }
    return net, nil
}
