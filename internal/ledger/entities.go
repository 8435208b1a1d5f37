package ledger

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
)

// AccountType enumerates the broad classification of an account in the
// chart of accounts.
type AccountType string

const (
	// AccountTypeAsset holds resources owned by the business.
	AccountTypeAsset AccountType = "asset"
	// AccountTypeLiability tracks obligations.
	AccountTypeLiability AccountType = "liability"
	// AccountTypeEquity captures the owners' residual interest.
	AccountTypeEquity AccountType = "equity"
	// AccountTypeIncome represents revenue from sales and services.
	AccountTypeIncome AccountType = "income"
	// AccountTypeCost represents the direct cost of goods sold.
	AccountTypeCost AccountType = "cost"
	// AccountTypeExpense represents operating outflows.
	AccountTypeExpense AccountType = "expense"
)

// Valid reports whether t is one of the known account types.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity,
		AccountTypeIncome, AccountTypeCost, AccountTypeExpense:
		return true
	}
	return false
}

// Nature identifies the side on which an account's balance grows.
type Nature string

const (
	NatureDebit  Nature = "debit"
	NatureCredit Nature = "credit"
)

// NatureFor returns the customary balance nature for an account type.
func NatureFor(t AccountType) Nature {
	switch t {
	case AccountTypeAsset, AccountTypeCost, AccountTypeExpense:
		return NatureDebit
	default:
		return NatureCredit
	}
}

// Account represents one node in the chart of accounts of a business.
type Account struct {
	ID         uuid.UUID
	BusinessID uuid.UUID
	// Code is the hierarchical key, e.g. "1.1.01". Unique per business.
	Code   string
	Name   string
	Type   AccountType
	Nature Nature
	// Level is the depth in the tree; roots are level 1.
	Level int
	// Detail marks leaf accounts, the only ones that accept direct postings.
	Detail bool
	// Balance is the signed balance as maintained by the posting collaborator.
	Balance decimal.Decimal
	// Active indicates whether the account is visible (soft-delete when false).
	Active   bool
	ParentID *uuid.UUID
}

// PaymentMethod enumerates how a sale was collected.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentCard     PaymentMethod = "card"
	PaymentTransfer PaymentMethod = "transfer"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentTransfer:
		return true
	}
	return false
}

// SessionState is the lifecycle state of a cash drawer session.
type SessionState string

const (
	SessionOpen   SessionState = "open"
	SessionClosed SessionState = "closed"
)

// VarianceClass is the three-way classification of a drawer variance.
type VarianceClass string

const (
	// VarianceBalanced means counted cash matched expected cash exactly.
	VarianceBalanced VarianceClass = "balanced"
	// VarianceOverage means the drawer held more cash than expected.
	VarianceOverage VarianceClass = "overage"
	// VarianceShortage means the drawer held less cash than expected.
	VarianceShortage VarianceClass = "shortage"
)

// ClassifyVariance maps a signed variance to its reporting class.
func ClassifyVariance(v decimal.Decimal) VarianceClass {
	switch {
	case v.IsZero():
		return VarianceBalanced
	case v.IsNeg():
		return VarianceShortage
	default:
		return VarianceOverage
	}
}

// CashSession represents one cashier's open-to-close drawer cycle.
type CashSession struct {
	ID         uuid.UUID
	BusinessID uuid.UUID
	Date       time.Time
	Cashier    string

	OpeningCash   decimal.Decimal
	CashSales     decimal.Decimal
	CardSales     decimal.Decimal
	TransferSales decimal.Decimal

	// CountedCash and Variance are set on close and frozen afterwards.
	CountedCash decimal.Decimal
	Variance    decimal.Decimal

	State    SessionState
	Notes    string
	OpenedAt time.Time
	ClosedAt *time.Time
}

// TotalSales sums the per-method accumulators.
func (s CashSession) TotalSales() (decimal.Decimal, error) {
	t, err := s.CashSales.Add(s.CardSales)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return t.Add(s.TransferSales)
}

// ExpectedCash is the cash the drawer should hold: opening cash plus cash
// sales. Card and transfer sales never enter the drawer.
func (s CashSession) ExpectedCash() (decimal.Decimal, error) {
	return s.OpeningCash.Add(s.CashSales)
}

// Accumulate adds a sale amount to the accumulator for the method.
// Callers must ensure the session is open and the amount positive.
func (s *CashSession) Accumulate(method PaymentMethod, amount decimal.Decimal) error {
	var err error
	switch method {
	case PaymentCash:
		s.CashSales, err = s.CashSales.Add(amount)
	case PaymentCard:
		s.CardSales, err = s.CardSales.Add(amount)
	case PaymentTransfer:
		s.TransferSales, err = s.TransferSales.Add(amount)
	default:
		return errInvalidMethod
	}
	return err
}

// Close freezes the session: records counted cash, derives the signed
// variance against expected cash, and transitions to the closed state.
func (s *CashSession) Close(counted decimal.Decimal, notes string, at time.Time) error {
	expected, err := s.ExpectedCash()
	if err != nil {
		return err
	}
	variance, err := counted.Sub(expected)
	if err != nil {
		return err
	}
	s.CountedCash = counted
	s.Variance = variance
	s.Notes = notes
	s.State = SessionClosed
	s.ClosedAt = &at
	return nil
}

var errInvalidMethod = errors.New("invalid payment method")

// BankAccountKind mirrors the account types offered by local banks.
type BankAccountKind string

const (
	BankAccountChecking BankAccountKind = "checking"
	BankAccountSavings  BankAccountKind = "savings"
)

// BankAccount represents a bank account whose movements are reconciled
// against externally asserted statement balances.
type BankAccount struct {
	ID         uuid.UUID
	BusinessID uuid.UUID
	Bank       string
	Kind       BankAccountKind
	Number     string
	Currency   string
	// OpeningBalance anchors the balance_after chain of the movements.
	OpeningBalance decimal.Decimal
	// Balance is the running balance after all recorded movements.
	Balance decimal.Decimal
	Active  bool
}

// MovementKind is the direction of a bank movement from the account
// holder's point of view: credits increase the balance, debits decrease it.
type MovementKind string

const (
	MovementCredit MovementKind = "credit"
	MovementDebit  MovementKind = "debit"
)

// Valid reports whether k is a known movement kind.
func (k MovementKind) Valid() bool {
	return k == MovementCredit || k == MovementDebit
}

// BankMovement is one recorded line on a bank account. Movements are
// immutable once imported; corrections are new movements.
type BankMovement struct {
	ID          uuid.UUID
	AccountID   uuid.UUID
	Date        time.Time
	Description string
	Reference   string
	// Amount is always positive; Kind carries the direction.
	Amount decimal.Decimal
	Kind   MovementKind
	// BalanceAfter is the running balance snapshot after this movement.
	BalanceAfter decimal.Decimal
	// Reconciled flips false -> true during a reconciliation run and
	// never reverts automatically.
	Reconciled bool
	// Seq is the insertion order assigned by the store. It breaks
	// ordering ties between movements on the same date.
	Seq int64
}

// Signed returns the amount with its sign applied: positive for credits,
// negative for debits.
func (m BankMovement) Signed() decimal.Decimal {
	if m.Kind == MovementDebit {
		return m.Amount.Neg()
	}
	return m.Amount
}
