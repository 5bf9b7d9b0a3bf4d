package journal

import (
    "context"
    "errors"
    "fmt"
    "log/slog"
    "strconv"
    "sync"
    "time"

    "github.com/google/uuid"
    "golang.org/x/sync/errgroup"

    "github.com/tinoosan/voucherdesk/internal/errs"
    "github.com/tinoosan/voucherdesk/internal/ledger"
)

// Level of a notification.
type Level string

const (
    LevelSuccess Level = "success"
    LevelError   Level = "error"
    LevelWarning Level = "warning"
    LevelInfo    Level = "info"
)

// Notification is a transient message for the user (a toast).
type Notification struct {
    Level   Level     `json:"level"`
    Message string    `json:"message"`
    At      time.Time `json:"at"`
}

const (
    msgFixErrors    = "Please fix the errors in the form"
    msgCreated      = "Journal entry created successfully"
    msgCreateFailed = "Failed to create journal entry"
    msgNumberFailed = "Could not fetch the next voucher number"
)

// Session is one open journal form. All state changes go through its
// methods, which serialize on mu. Submit releases mu during the network call
// and uses loading to refuse concurrent submits and edits.
type Session struct {
    ID        uuid.UUID
    CompanyID string

    books  Books
    policy Policy
    log    *slog.Logger
    now    func() time.Time

    mu      sync.Mutex
    form    Form
    ledgers []LedgerOption
    loading bool
    open    bool
    rev     int
    notes   []Notification
    touched time.Time
}

// Snapshot is a read-only copy of the session state.
type Snapshot struct {
    ID        uuid.UUID      `json:"id"`
    CompanyID string         `json:"company_id"`
    Entries   []EntryLine    `json:"entries"`
    Header    Header         `json:"header"`
    Errors    Errors         `json:"errors"`
    Balance   Balance        `json:"balance"`
    Ledgers   []LedgerOption `json:"ledgers"`
    Loading   bool           `json:"loading"`
    Open      bool           `json:"open"`
    CanRemove bool           `json:"can_remove"`
    CanSubmit bool           `json:"can_submit"`
}

func newSession(companyID string, books Books, policy Policy, logger *slog.Logger, now func() time.Time) *Session {
    return &Session{
        ID:        uuid.New(),
        CompanyID: companyID,
        books:     books,
        policy:    policy,
        log:       logger,
        now:       now,
        form:      NewForm(),
        touched:   now(),
    }
}

// load fetches the ledgers and the next journal number in parallel. Only a
// ledger failure is fatal; without a number the header keeps its placeholder.
func (s *Session) load(ctx context.Context) error {
    var (
        ledgers []LedgerOption
        number  string
        numErr  error
    )
    g, gctx := errgroup.WithContext(ctx)
    g.Go(func() error {
        list, err := s.books.Ledgers(gctx, s.CompanyID)
        if err != nil {
            return fmt.Errorf("fetch ledgers: %w", err)
        }
        ledgers = SelectableLedgers(list)
        return nil
    })
    g.Go(func() error {
        number, numErr = s.books.NextVoucherNumber(gctx, s.CompanyID, ledger.VoucherTypeJournal)
        return nil
    })
    if err := g.Wait(); err != nil {
        return err
    }

    s.mu.Lock()
    defer s.mu.Unlock()
    s.ledgers = ledgers
    s.open = true
    if numErr != nil {
        s.log.Warn("next voucher number unavailable", "session_id", s.ID.String(), "company_id", s.CompanyID, "err", numErr)
        s.notifyLocked(LevelWarning, msgNumberFailed)
    } else {
        s.form.Header.TransactionNumber = number
    }
    return nil
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
    s.mu.Lock()
    defer s.mu.Unlock()
    return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
    f := s.form.clone()
    ledgers := make([]LedgerOption, len(s.ledgers))
    copy(ledgers, s.ledgers)
    return Snapshot{
        ID:        s.ID,
        CompanyID: s.CompanyID,
        Entries:   f.Entries,
        Header:    f.Header,
        Errors:    f.Errors,
        Balance:   ComputeBalance(f.Entries),
        Ledgers:   ledgers,
        Loading:   s.loading,
        Open:      s.open,
        CanRemove: len(f.Entries) > MinEntries,
        CanSubmit: !s.loading && s.open && IsValid(s.form, s.policy),
    }
}

// mutate runs fn on the form unless a submit is in flight or the form is closed.
func (s *Session) mutate(fn func(Form) (Form, error)) (Snapshot, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    if s.loading {
        return s.snapshotLocked(), errs.ErrInFlight
    }
    if !s.open {
        return s.snapshotLocked(), errs.ErrClosed
    }
    next, err := fn(s.form)
    if err != nil {
        return s.snapshotLocked(), err
    }
    s.form = next
    s.rev++
    s.touched = s.now()
    return s.snapshotLocked(), nil
}

func (s *Session) UpdateEntry(i int, patch EntryPatch) (Snapshot, error) {
    return s.mutate(func(f Form) (Form, error) { return ApplyEntryUpdate(f, i, patch) })
}

func (s *Session) AddEntry() (Snapshot, error) {
    return s.mutate(func(f Form) (Form, error) { return AddEntry(f), nil })
}

// RemoveEntry refuses to go below two lines and says so with a warning.
func (s *Session) RemoveEntry(i int) (Snapshot, error) {
    snap, err := s.mutate(func(f Form) (Form, error) { return RemoveEntry(f, i) })
    if errors.Is(err, errs.ErrTooFewEntries) {
        s.mu.Lock()
        s.notifyLocked(LevelWarning, MsgTooFewEntries)
        s.mu.Unlock()
    }
    return snap, err
}

func (s *Session) UpdateHeader(patch HeaderPatch) (Snapshot, error) {
    return s.mutate(func(f Form) (Form, error) { return ApplyHeaderUpdate(f, patch) })
}

// Validate recomputes the displayed error set.
func (s *Session) Validate() Errors {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.form = Validate(s.form, s.policy)
    s.touched = s.now()
    return s.form.Errors.Clone()
}

// Submit validates, assembles and posts the voucher. On success the form is
// reset with a fresh voucher number and closed; on failure the input is kept
// and the error is reported as a notification as well as returned.
func (s *Session) Submit(ctx context.Context) (ledger.CreateVoucherPayload, error) {
    s.mu.Lock()
    if s.loading {
        s.mu.Unlock()
        return ledger.CreateVoucherPayload{}, errs.ErrInFlight
    }
    if !s.open {
        s.mu.Unlock()
        return ledger.CreateVoucherPayload{}, errs.ErrClosed
    }
    s.touched = s.now()
    s.form.Errors = ComputeErrors(s.form, s.policy)
    payload, err := Assemble(s.form, Target{CompanyID: s.CompanyID}, s.policy)
    if err != nil {
        s.notifyLocked(LevelError, msgFixErrors)
        s.mu.Unlock()
        return ledger.CreateVoucherPayload{}, err
    }
    key := s.ID.String() + ":" + strconv.Itoa(s.rev)
    s.loading = true
    s.mu.Unlock()

    createErr := s.books.CreateVoucher(ctx, payload, key)
    var (
        number string
        numErr error
    )
    if createErr == nil {
        number, numErr = s.books.NextVoucherNumber(ctx, s.CompanyID, ledger.VoucherTypeJournal)
    }

    s.mu.Lock()
    defer s.mu.Unlock()
    s.loading = false
    s.touched = s.now()
    if createErr != nil {
        s.log.Error("journal submit failed", "session_id", s.ID.String(), "company_id", s.CompanyID, "err", createErr)
        s.notifyLocked(LevelError, userMessage(createErr))
        return payload, fmt.Errorf("create voucher: %w", createErr)
    }
    s.form = NewForm()
    s.rev++
    s.open = false
    if numErr != nil {
        s.log.Warn("next voucher number unavailable", "session_id", s.ID.String(), "err", numErr)
    } else {
        s.form.Header.TransactionNumber = number
    }
    s.log.Info("journal voucher submitted", "session_id", s.ID.String(), "company_id", s.CompanyID,
        "voucher_number", payload.VoucherNumber, "total", payload.Total.String())
    s.notifyLocked(LevelSuccess, msgCreated)
    return payload, nil
}

// Reset discards the input, fetches a fresh voucher number and reopens the form.
func (s *Session) Reset(ctx context.Context) (Snapshot, error) {
    s.mu.Lock()
    if s.loading {
        snap := s.snapshotLocked()
        s.mu.Unlock()
        return snap, errs.ErrInFlight
    }
    s.mu.Unlock()

    number, numErr := s.books.NextVoucherNumber(ctx, s.CompanyID, ledger.VoucherTypeJournal)

    s.mu.Lock()
    defer s.mu.Unlock()
    if s.loading {
        return s.snapshotLocked(), errs.ErrInFlight
    }
    s.form = NewForm()
    s.rev++
    s.open = true
    s.touched = s.now()
    if numErr != nil {
        s.notifyLocked(LevelWarning, msgNumberFailed)
    } else {
        s.form.Header.TransactionNumber = number
    }
    return s.snapshotLocked(), nil
}

// Notifications drains the queued notifications.
func (s *Session) Notifications() []Notification {
    s.mu.Lock()
    defer s.mu.Unlock()
    out := s.notes
    s.notes = nil
    return out
}

func (s *Session) notifyLocked(level Level, msg string) {
    s.notes = append(s.notes, Notification{Level: level, Message: msg, At: s.now()})
}

func (s *Session) idleSince() (time.Time, bool) {
    s.mu.Lock()
    defer s.mu.Unlock()
    return s.touched, s.loading
}

func userMessage(err error) string {
    var m Messager
    if errors.As(err, &m) && m.UserMessage() != "" {
        return m.UserMessage()
    }
    return msgCreateFailed
}
