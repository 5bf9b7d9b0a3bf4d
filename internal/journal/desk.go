package journal

import (
    "context"
    "log/slog"
    "strings"
    "sync"
    "time"

    "github.com/google/uuid"

    "github.com/tinoosan/voucherdesk/internal/errs"
)

// Desk keeps the open journal sessions. It is safe for concurrent use.
type Desk struct {
    books  Books
    policy Policy
    log    *slog.Logger
    now    func() time.Time

    mu       sync.RWMutex
    sessions map[uuid.UUID]*Session
}

// NewDesk wires the desk to a Books implementation.
func NewDesk(books Books, policy Policy, logger *slog.Logger) *Desk {
    if logger == nil {
        logger = slog.Default()
    }
    return &Desk{
        books:    books,
        policy:   policy,
        log:      logger,
        now:      time.Now,
        sessions: make(map[uuid.UUID]*Session),
    }
}

// Open starts a session for the company and loads its ledgers and next
// voucher number. The session is registered only if loading succeeds.
func (d *Desk) Open(ctx context.Context, companyID string) (*Session, error) {
    companyID = strings.TrimSpace(companyID)
    if companyID == "" {
        return nil, errs.ErrInvalid
    }
    s := newSession(companyID, d.books, d.policy, d.log, d.now)
    if err := s.load(ctx); err != nil {
        d.log.Error("journal session open failed", "company_id", companyID, "err", err)
        return nil, err
    }
    d.mu.Lock()
    d.sessions[s.ID] = s
    d.mu.Unlock()
    d.log.Info("journal session opened", "session_id", s.ID.String(), "company_id", companyID)
    return s, nil
}

func (d *Desk) Get(id uuid.UUID) (*Session, error) {
    d.mu.RLock()
    defer d.mu.RUnlock()
    s, ok := d.sessions[id]
    if !ok {
        return nil, errs.ErrNotFound
    }
    return s, nil
}

// Close forgets the session. A submit still in flight finishes on its own.
func (d *Desk) Close(id uuid.UUID) error {
    d.mu.Lock()
    defer d.mu.Unlock()
    if _, ok := d.sessions[id]; !ok {
        return errs.ErrNotFound
    }
    delete(d.sessions, id)
    return nil
}

func (d *Desk) Len() int {
    d.mu.RLock()
    defer d.mu.RUnlock()
    return len(d.sessions)
}

// Sweep closes sessions untouched for longer than maxIdle, skipping any with
// a submit in flight. It returns how many were closed.
func (d *Desk) Sweep(maxIdle time.Duration) int {
    cutoff := d.now().Add(-maxIdle)
    d.mu.Lock()
    defer d.mu.Unlock()
    n := 0
    for id, s := range d.sessions {
        touched, loading := s.idleSince()
        if loading || touched.After(cutoff) {
            continue
        }
        delete(d.sessions, id)
        n++
    }
    if n > 0 {
        d.log.Info("idle journal sessions swept", "count", n)
    }
    return n
}
