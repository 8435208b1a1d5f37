// Package bank implements the reconciliation engine for bank accounts:
// ordered movement listing, batch import with a recomputed running-balance
// chain, and balance-level reconciliation against an externally asserted
// statement balance. No statement line items are available, so individual
// movements are never auto-matched; a run compares balances and flags
// pending movements only on a clean result.
package bank

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"

	"github.com/plazapos/contable/internal/errs"
	"github.com/plazapos/contable/internal/ledger"
)

// Repo defines the read operations needed by the service.
type Repo interface {
	GetBankAccount(ctx context.Context, businessID, accountID uuid.UUID) (ledger.BankAccount, error)
	MovementsBetween(ctx context.Context, accountID uuid.UUID, from, to time.Time) ([]ledger.BankMovement, error)
	MovementsThrough(ctx context.Context, accountID uuid.UUID, to time.Time) ([]ledger.BankMovement, error)
}

// Writer defines the write operations needed by the service. The store
// serializes AppendMovements per account: the balance_after chain is
// order-dependent.
type Writer interface {
	CreateBankAccount(ctx context.Context, a ledger.BankAccount) (ledger.BankAccount, error)
	AppendMovements(ctx context.Context, accountID uuid.UUID, rows []ledger.BankMovement) ([]ledger.BankMovement, error)
	MarkReconciled(ctx context.Context, accountID uuid.UUID, from, to time.Time) (int, error)
}

// MovementInput is one pre-parsed statement row handed in by the import
// collaborator. The engine never parses source files.
type MovementInput struct {
	Date        time.Time
	Description string
	Reference   string
	Amount      decimal.Decimal
	Kind        ledger.MovementKind
}

// ReconcileResult is the output contract of a reconciliation run.
type ReconcileResult struct {
	ReconciledCount int
	PendingCount    int
	// Difference is statement balance minus the computed account balance
	// as of the window end. Exactly zero signals a clean reconciliation.
	Difference decimal.Decimal
}

// Service exposes the reconciliation engine operations.
type Service interface {
	CreateAccount(ctx context.Context, a ledger.BankAccount) (ledger.BankAccount, error)
	GetAccount(ctx context.Context, businessID, accountID uuid.UUID) (ledger.BankAccount, error)
	ListMovements(ctx context.Context, businessID, accountID uuid.UUID, from, to time.Time) (iter.Seq[ledger.BankMovement], error)
	ImportMovements(ctx context.Context, businessID, accountID uuid.UUID, rows []MovementInput) (int, error)
	Reconcile(ctx context.Context, businessID, accountID uuid.UUID, from, to time.Time, statementBalance decimal.Decimal) (ReconcileResult, error)
	BalanceAsOf(ctx context.Context, businessID, accountID uuid.UUID, asOf time.Time) (decimal.Decimal, error)
}

type service struct {
	repo   Repo
	writer Writer
}

func New(repo Repo, writer Writer) Service { return &service{repo: repo, writer: writer} }

// CreateAccount registers a bank account. The running balance starts at the
// opening balance.
func (s *service) CreateAccount(ctx context.Context, a ledger.BankAccount) (ledger.BankAccount, error) {
	if a.BusinessID == uuid.Nil {
		return ledger.BankAccount{}, errs.ErrInvalid
	}
	if strings.TrimSpace(a.Bank) == "" || strings.TrimSpace(a.Number) == "" {
		return ledger.BankAccount{}, fmt.Errorf("%w: bank and account number are required", errs.ErrInvalid)
	}
	if a.Kind != ledger.BankAccountChecking && a.Kind != ledger.BankAccountSavings {
		return ledger.BankAccount{}, fmt.Errorf("%w: invalid bank account kind %q", errs.ErrInvalid, a.Kind)
	}
	acc := ledger.BankAccount{
		ID:             uuid.New(),
		BusinessID:     a.BusinessID,
		Bank:           strings.TrimSpace(a.Bank),
		Kind:           a.Kind,
		Number:         strings.TrimSpace(a.Number),
		Currency:       strings.ToUpper(strings.TrimSpace(a.Currency)),
		OpeningBalance: a.OpeningBalance,
		Balance:        a.OpeningBalance,
		Active:         true,
	}
	return s.writer.CreateBankAccount(ctx, acc)
}

func (s *service) GetAccount(ctx context.Context, businessID, accountID uuid.UUID) (ledger.BankAccount, error) {
	if businessID == uuid.Nil || accountID == uuid.Nil {
		return ledger.BankAccount{}, errs.ErrInvalid
	}
	return s.repo.GetBankAccount(ctx, businessID, accountID)
}

// ListMovements returns a lazy, restartable sequence of the account's
// movements within [from, to], ascending by date with insertion-order
// tie-breaks. The snapshot is taken once; re-iterating replays it.
func (s *service) ListMovements(ctx context.Context, businessID, accountID uuid.UUID, from, to time.Time) (iter.Seq[ledger.BankMovement], error) {
	if from.After(to) {
		return nil, errs.ErrInvalidRange
	}
	if _, err := s.GetAccount(ctx, businessID, accountID); err != nil {
		return nil, err
	}
	ms, err := s.repo.MovementsBetween(ctx, accountID, from, to)
	if err != nil {
		return nil, err
	}
	return func(yield func(ledger.BankMovement) bool) {
		for _, m := range ms {
			if !yield(m) {
				return
			}
		}
	}, nil
}

// ImportMovements validates and appends pre-parsed rows, recomputing the
// balance_after chain from the account's current running balance in
// chronological order. Returns the number of movements imported.
func (s *service) ImportMovements(ctx context.Context, businessID, accountID uuid.UUID, rows []MovementInput) (int, error) {
	if _, err := s.GetAccount(ctx, businessID, accountID); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	ms := make([]ledger.BankMovement, 0, len(rows))
	for i, r := range rows {
		if err := validateRow(i, r); err != nil {
			return 0, err
		}
		ms = append(ms, ledger.BankMovement{
			ID:          uuid.New(),
			AccountID:   accountID,
			Date:        r.Date,
			Description: strings.TrimSpace(r.Description),
			Reference:   strings.TrimSpace(r.Reference),
			Amount:      r.Amount,
			Kind:        r.Kind,
		})
	}
	// Chain chronologically regardless of the order rows arrived in.
	sort.SliceStable(ms, func(i, j int) bool { return ms[i].Date.Before(ms[j].Date) })
	appended, err := s.writer.AppendMovements(ctx, accountID, ms)
	if err != nil {
		return 0, err
	}
	return len(appended), nil
}

// Reconcile compares the asserted statement balance against the computed
// account balance as of the window end and counts reconciled vs pending
// movements inside the window. When the difference is exactly zero the
// pending movements in the window are flagged reconciled; the returned
// counts always reflect the state found at the start of the run.
func (s *service) Reconcile(ctx context.Context, businessID, accountID uuid.UUID, from, to time.Time, statementBalance decimal.Decimal) (ReconcileResult, error) {
	if from.After(to) {
		return ReconcileResult{}, errs.ErrInvalidRange
	}
	if _, err := s.GetAccount(ctx, businessID, accountID); err != nil {
		return ReconcileResult{}, err
	}
	window, err := s.repo.MovementsBetween(ctx, accountID, from, to)
	if err != nil {
		return ReconcileResult{}, err
	}
	res := ReconcileResult{}
	for _, m := range window {
		if m.Reconciled {
			res.ReconciledCount++
		} else {
			res.PendingCount++
		}
	}
	computed, err := s.BalanceAsOf(ctx, businessID, accountID, to)
	if err != nil {
		return ReconcileResult{}, err
	}
	res.Difference, err = statementBalance.Sub(computed)
	if err != nil {
		return ReconcileResult{}, err
	}
	if res.Difference.IsZero() && res.PendingCount > 0 {
		if _, err := s.writer.MarkReconciled(ctx, accountID, from, to); err != nil {
			return ReconcileResult{}, err
		}
	}
	return res, nil
}

// BalanceAsOf computes the account balance at a date: the opening balance
// plus the signed sum of movements dated at or before it.
func (s *service) BalanceAsOf(ctx context.Context, businessID, accountID uuid.UUID, asOf time.Time) (decimal.Decimal, error) {
	acc, err := s.GetAccount(ctx, businessID, accountID)
	if err != nil {
		return decimal.Decimal{}, err
	}
	ms, err := s.repo.MovementsThrough(ctx, accountID, asOf)
	if err != nil {
		return decimal.Decimal{}, err
	}
	bal := acc.OpeningBalance
	for _, m := range ms {
		bal, err = bal.Add(m.Signed())
		if err != nil {
			return decimal.Decimal{}, err
		}
	}
	return bal, nil
}

func validateRow(i int, r MovementInput) error {
	if r.Date.IsZero() {
		return fmt.Errorf("%w: row[%d]: date is required", errs.ErrInvalid, i)
	}
	if strings.TrimSpace(r.Description) == "" {
		return fmt.Errorf("%w: row[%d]: description is required", errs.ErrInvalid, i)
	}
	if !r.Kind.Valid() {
		return fmt.Errorf("%w: row[%d]: kind must be credit or debit", errs.ErrInvalid, i)
	}
	if !r.Amount.IsPos() {
		return fmt.Errorf("%w: row[%d]: amount must be positive", errs.ErrInvalid, i)
	}
	return nil
}
