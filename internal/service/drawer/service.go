// Package drawer implements the cash drawer session lifecycle: open with a
// float, accumulate sales per payment method, close against a physical
// count. Sessions move OPEN -> CLOSED exactly once; there is no reopening.
package drawer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"

	"github.com/plazapos/contable/internal/errs"
	"github.com/plazapos/contable/internal/ledger"
)

// Repo defines the read operations needed by the service.
type Repo interface {
	GetSession(ctx context.Context, businessID, sessionID uuid.UUID) (ledger.CashSession, error)
}

// Writer defines the write operations needed by the service. The store owns
// the serialization points: a single open session per cashier, atomic sale
// accumulation, and a compare-and-swap close.
type Writer interface {
	CreateSession(ctx context.Context, s ledger.CashSession) (ledger.CashSession, error)
	AddSale(ctx context.Context, businessID, sessionID uuid.UUID, method ledger.PaymentMethod, amount decimal.Decimal) (ledger.CashSession, error)
	CloseSession(ctx context.Context, businessID, sessionID uuid.UUID, counted decimal.Decimal, notes string, at time.Time) (ledger.CashSession, error)
}

// CloseResult is the outcome of closing a session.
type CloseResult struct {
	Session        ledger.CashSession
	ExpectedCash   decimal.Decimal
	CountedCash    decimal.Decimal
	Variance       decimal.Decimal
	Classification ledger.VarianceClass
}

// Service exposes the drawer lifecycle operations.
type Service interface {
	Open(ctx context.Context, businessID uuid.UUID, cashier string, date time.Time, openingCash decimal.Decimal) (ledger.CashSession, error)
	RecordSale(ctx context.Context, businessID, sessionID uuid.UUID, method ledger.PaymentMethod, amount decimal.Decimal) (ledger.CashSession, error)
	Close(ctx context.Context, businessID, sessionID uuid.UUID, countedCash decimal.Decimal, notes string) (CloseResult, error)
	Get(ctx context.Context, businessID, sessionID uuid.UUID) (ledger.CashSession, error)
}

type service struct {
	repo   Repo
	writer Writer
	now    func() time.Time
}

func New(repo Repo, writer Writer) Service {
	return &service{repo: repo, writer: writer, now: time.Now}
}

// Open starts a new session for the cashier. The store rejects a second
// open session for the same cashier with ErrConflict.
func (s *service) Open(ctx context.Context, businessID uuid.UUID, cashier string, date time.Time, openingCash decimal.Decimal) (ledger.CashSession, error) {
	if businessID == uuid.Nil {
		return ledger.CashSession{}, errs.ErrInvalid
	}
	if strings.TrimSpace(cashier) == "" {
		return ledger.CashSession{}, fmt.Errorf("%w: cashier is required", errs.ErrInvalid)
	}
	if openingCash.IsNeg() {
		return ledger.CashSession{}, fmt.Errorf("%w: opening cash must not be negative", errs.ErrInvalid)
	}
	if date.IsZero() {
		date = s.now()
	}
	sess := ledger.CashSession{
		ID:          uuid.New(),
		BusinessID:  businessID,
		Date:        date,
		Cashier:     strings.TrimSpace(cashier),
		OpeningCash: openingCash,
		State:       ledger.SessionOpen,
		OpenedAt:    s.now(),
	}
	return s.writer.CreateSession(ctx, sess)
}

// RecordSale adds a completed sale to the session's accumulator for the
// method. The increment is atomic at the store. Unknown sessions fail with
// ErrNotFound; closed sessions with ErrConflict.
func (s *service) RecordSale(ctx context.Context, businessID, sessionID uuid.UUID, method ledger.PaymentMethod, amount decimal.Decimal) (ledger.CashSession, error) {
	if businessID == uuid.Nil || sessionID == uuid.Nil {
		return ledger.CashSession{}, errs.ErrInvalid
	}
	if !method.Valid() {
		return ledger.CashSession{}, fmt.Errorf("%w: invalid payment method %q", errs.ErrInvalid, method)
	}
	if !amount.IsPos() {
		return ledger.CashSession{}, fmt.Errorf("%w: sale amount must be positive", errs.ErrInvalid)
	}
	return s.writer.AddSale(ctx, businessID, sessionID, method, amount)
}

// Close freezes the session against the physical count. Exactly one close
// wins; later attempts observe the closed state and fail with ErrConflict,
// leaving the frozen variance untouched.
func (s *service) Close(ctx context.Context, businessID, sessionID uuid.UUID, countedCash decimal.Decimal, notes string) (CloseResult, error) {
	if businessID == uuid.Nil || sessionID == uuid.Nil {
		return CloseResult{}, errs.ErrInvalid
	}
	if countedCash.IsNeg() {
		return CloseResult{}, fmt.Errorf("%w: counted cash must not be negative", errs.ErrInvalid)
	}
	sess, err := s.writer.CloseSession(ctx, businessID, sessionID, countedCash, notes, s.now())
	if err != nil {
		return CloseResult{}, err
	}
	expected, err := sess.ExpectedCash()
	if err != nil {
		return CloseResult{}, err
	}
	return CloseResult{
		Session:        sess,
		ExpectedCash:   expected,
		CountedCash:    sess.CountedCash,
		Variance:       sess.Variance,
		Classification: ledger.ClassifyVariance(sess.Variance),
	}, nil
}

func (s *service) Get(ctx context.Context, businessID, sessionID uuid.UUID) (ledger.CashSession, error) {
	if businessID == uuid.Nil || sessionID == uuid.Nil {
		return ledger.CashSession{}, errs.ErrInvalid
	}
	return s.repo.GetSession(ctx, businessID, sessionID)
}
