// Package memory provides a simple in-memory implementation used for
// development and tests. It keeps code paths easy to follow while allowing
// us to plug in a real DB later.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"

	"github.com/plazapos/contable/internal/errs"
	"github.com/plazapos/contable/internal/ledger"
)

// Store is an in-memory implementation of the repository and writer
// interfaces used by the services. It is guarded by a single RWMutex, which
// also provides the serialization points the domain needs: one open session
// per cashier, atomic sale accumulation, exactly-one-winner close, and
// per-account ordered movement imports.
type Store struct {
	mu         sync.RWMutex
	businesses map[uuid.UUID]struct{}
	accounts   map[uuid.UUID]ledger.Account
	// codes maps businessID -> account code -> account id.
	codes map[uuid.UUID]map[string]uuid.UUID

	sessions map[uuid.UUID]*ledger.CashSession
	// openSessions maps businessID -> cashier -> open session id.
	openSessions map[uuid.UUID]map[string]uuid.UUID

	bankAccounts map[uuid.UUID]ledger.BankAccount
	// movements holds each account's movements sorted asc by (Date, Seq).
	movements map[uuid.UUID][]ledger.BankMovement
	nextSeq   map[uuid.UUID]int64
}

// New constructs an empty in-memory store.
func New() *Store {
	return &Store{
		businesses:   make(map[uuid.UUID]struct{}),
		accounts:     make(map[uuid.UUID]ledger.Account),
		codes:        make(map[uuid.UUID]map[string]uuid.UUID),
		sessions:     make(map[uuid.UUID]*ledger.CashSession),
		openSessions: make(map[uuid.UUID]map[string]uuid.UUID),
		bankAccounts: make(map[uuid.UUID]ledger.BankAccount),
		movements:    make(map[uuid.UUID][]ledger.BankMovement),
		nextSeq:      make(map[uuid.UUID]int64),
	}
}

// Seed helpers for local dev/tests.

func (s *Store) SeedBusiness(id uuid.UUID) {
	s.mu.Lock()
	s.businesses[id] = struct{}{}
	s.mu.Unlock()
}

func (s *Store) Reset() {
	s.mu.Lock()
	s.businesses = map[uuid.UUID]struct{}{}
	s.accounts = map[uuid.UUID]ledger.Account{}
	s.codes = map[uuid.UUID]map[string]uuid.UUID{}
	s.sessions = map[uuid.UUID]*ledger.CashSession{}
	s.openSessions = map[uuid.UUID]map[string]uuid.UUID{}
	s.bankAccounts = map[uuid.UUID]ledger.BankAccount{}
	s.movements = map[uuid.UUID][]ledger.BankMovement{}
	s.nextSeq = map[uuid.UUID]int64{}
	s.mu.Unlock()
}

// Ready reports the store as always available.
func (s *Store) Ready(context.Context) error { return nil }

// --- Accounts ---

// ListAccounts returns all accounts of a business.
func (s *Store) ListAccounts(_ context.Context, businessID uuid.UUID) ([]ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Account, 0)
	for _, a := range s.accounts {
		if a.BusinessID == businessID {
			out = append(out, a)
		}
	}
	return out, nil
}

// GetAccount returns a business's account by ID.
func (s *Store) GetAccount(_ context.Context, businessID, accountID uuid.UUID) (ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[accountID]
	if !ok || a.BusinessID != businessID {
		return ledger.Account{}, errs.ErrNotFound
	}
	return a, nil
}

// AccountByCode resolves an account by its chart code.
func (s *Store) AccountByCode(_ context.Context, businessID uuid.UUID, code string) (ledger.Account, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.codes[businessID][code]
	if !ok {
		return ledger.Account{}, false, nil
	}
	return s.accounts[id], true, nil
}

// CreateAccount persists a new account. The per-business code uniqueness is
// enforced here as the final serialization point.
func (s *Store) CreateAccount(_ context.Context, a ledger.Account) (ledger.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byCode, ok := s.codes[a.BusinessID]
	if !ok {
		byCode = make(map[string]uuid.UUID)
		s.codes[a.BusinessID] = byCode
	}
	if _, exists := byCode[a.Code]; exists {
		return ledger.Account{}, errs.ErrConflict
	}
	s.accounts[a.ID] = a
	byCode[a.Code] = a.ID
	return a, nil
}

// UpdateAccount persists changes to an account.
func (s *Store) UpdateAccount(_ context.Context, a ledger.Account) (ledger.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.accounts[a.ID]
	if !ok || cur.BusinessID != a.BusinessID {
		return ledger.Account{}, errs.ErrNotFound
	}
	if cur.Code != a.Code {
		delete(s.codes[a.BusinessID], cur.Code)
		s.codes[a.BusinessID][a.Code] = a.ID
	}
	s.accounts[a.ID] = a
	return a, nil
}

// BalancesAsOf returns accounts with their balances as of the given date.
// The in-memory store keeps only current balances; historical cut-off is the
// durable store's concern, so this returns the current snapshot.
func (s *Store) BalancesAsOf(ctx context.Context, businessID uuid.UUID, _ time.Time) ([]ledger.Account, error) {
	return s.ListAccounts(ctx, businessID)
}

// BalancesBetween returns accounts with their period activity between the
// given dates. Same dev/test simplification as BalancesAsOf.
func (s *Store) BalancesBetween(ctx context.Context, businessID uuid.UUID, _, _ time.Time) ([]ledger.Account, error) {
	return s.ListAccounts(ctx, businessID)
}

// --- Cash drawer sessions ---

// GetSession returns a session by ID.
func (s *Store) GetSession(_ context.Context, businessID, sessionID uuid.UUID) (ledger.CashSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok || sess.BusinessID != businessID {
		return ledger.CashSession{}, errs.ErrNotFound
	}
	return *sess, nil
}

// CreateSession persists a new open session. It fails with ErrConflict when
// the cashier already has an open session; the check and the insert happen
// under one lock so concurrent opens cannot both succeed.
func (s *Store) CreateSession(_ context.Context, sess ledger.CashSession) (ledger.CashSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	open, ok := s.openSessions[sess.BusinessID]
	if !ok {
		open = make(map[string]uuid.UUID)
		s.openSessions[sess.BusinessID] = open
	}
	if _, exists := open[sess.Cashier]; exists {
		return ledger.CashSession{}, errs.ErrConflict
	}
	cp := sess
	s.sessions[cp.ID] = &cp
	open[cp.Cashier] = cp.ID
	return cp, nil
}

// AddSale increments the accumulator for the method on an open session.
// The read-increment-write happens under the write lock, so concurrent
// sales never lose updates.
func (s *Store) AddSale(_ context.Context, businessID, sessionID uuid.UUID, method ledger.PaymentMethod, amount decimal.Decimal) (ledger.CashSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok || sess.BusinessID != businessID {
		return ledger.CashSession{}, errs.ErrNotFound
	}
	if sess.State != ledger.SessionOpen {
		return ledger.CashSession{}, errs.ErrConflict
	}
	if err := sess.Accumulate(method, amount); err != nil {
		return ledger.CashSession{}, err
	}
	return *sess, nil
}

// CloseSession freezes the session exactly once. A second close, concurrent
// or not, observes the closed state and fails with ErrConflict.
func (s *Store) CloseSession(_ context.Context, businessID, sessionID uuid.UUID, counted decimal.Decimal, notes string, at time.Time) (ledger.CashSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok || sess.BusinessID != businessID {
		return ledger.CashSession{}, errs.ErrNotFound
	}
	if sess.State != ledger.SessionOpen {
		return ledger.CashSession{}, errs.ErrConflict
	}
	if err := sess.Close(counted, notes, at); err != nil {
		return ledger.CashSession{}, err
	}
	delete(s.openSessions[businessID], sess.Cashier)
	return *sess, nil
}

// --- Bank accounts and movements ---

// GetBankAccount returns a bank account by ID.
func (s *Store) GetBankAccount(_ context.Context, businessID, accountID uuid.UUID) (ledger.BankAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.bankAccounts[accountID]
	if !ok || a.BusinessID != businessID {
		return ledger.BankAccount{}, errs.ErrNotFound
	}
	return a, nil
}

// CreateBankAccount persists a new bank account.
func (s *Store) CreateBankAccount(_ context.Context, a ledger.BankAccount) (ledger.BankAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bankAccounts[a.ID] = a
	return a, nil
}

// MovementsBetween returns a copy of the account's movements within
// [from, to] inclusive, ordered asc by (Date, Seq).
func (s *Store) MovementsBetween(_ context.Context, accountID uuid.UUID, from, to time.Time) ([]ledger.BankMovement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ms := s.movements[accountID]
	out := make([]ledger.BankMovement, 0)
	for _, m := range ms {
		if m.Date.Before(from) {
			continue
		}
		if m.Date.After(to) {
			break
		}
		out = append(out, m)
	}
	return out, nil
}

// MovementsThrough returns all movements dated at or before to.
func (s *Store) MovementsThrough(_ context.Context, accountID uuid.UUID, to time.Time) ([]ledger.BankMovement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ms := s.movements[accountID]
	end := sort.Search(len(ms), func(i int) bool { return ms[i].Date.After(to) })
	out := make([]ledger.BankMovement, end)
	copy(out, ms[:end])
	return out, nil
}

// AppendMovements chains balance_after for the given rows from the
// account's running balance, assigns insertion sequence numbers, and
// advances the running balance. The whole batch runs under the write lock,
// so concurrent imports on the same account cannot interleave.
func (s *Store) AppendMovements(_ context.Context, accountID uuid.UUID, rows []ledger.BankMovement) ([]ledger.BankMovement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.bankAccounts[accountID]
	if !ok {
		return nil, errs.ErrNotFound
	}
	bal := acc.Balance
	seq := s.nextSeq[accountID]
	appended := make([]ledger.BankMovement, 0, len(rows))
	for _, m := range rows {
		next, err := bal.Add(m.Signed())
		if err != nil {
			return nil, err
		}
		bal = next
		seq++
		m.AccountID = accountID
		m.Seq = seq
		m.BalanceAfter = bal
		appended = append(appended, m)
	}
	for _, m := range appended {
		s.insertMovementLocked(accountID, m)
	}
	s.nextSeq[accountID] = seq
	acc.Balance = bal
	s.bankAccounts[accountID] = acc
	return appended, nil
}

// MarkReconciled flips pending movements within [from, to] to reconciled
// and returns how many were flipped. The flag never reverts.
func (s *Store) MarkReconciled(_ context.Context, accountID uuid.UUID, from, to time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bankAccounts[accountID]; !ok {
		return 0, errs.ErrNotFound
	}
	ms := s.movements[accountID]
	n := 0
	for i := range ms {
		if ms[i].Date.Before(from) || ms[i].Date.After(to) {
			continue
		}
		if !ms[i].Reconciled {
			ms[i].Reconciled = true
			n++
		}
	}
	return n, nil
}

// insertMovementLocked inserts m keeping the slice sorted asc by
// (Date, Seq). Caller must hold s.mu (write lock).
func (s *Store) insertMovementLocked(accountID uuid.UUID, m ledger.BankMovement) {
	ms := s.movements[accountID]
	i := sort.Search(len(ms), func(i int) bool {
		if ms[i].Date.After(m.Date) {
			return true
		}
		if ms[i].Date.Equal(m.Date) {
			return ms[i].Seq > m.Seq
		}
		return false
	})
	if i == len(ms) {
		s.movements[accountID] = append(ms, m)
		return
	}
	ms = append(ms, ledger.BankMovement{})
	copy(ms[i+1:], ms[i:])
	ms[i] = m
	s.movements[accountID] = ms
}
