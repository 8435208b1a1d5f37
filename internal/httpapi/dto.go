package httpapi

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"

	"github.com/plazapos/contable/internal/errs"
	"github.com/plazapos/contable/internal/ledger"
	"github.com/plazapos/contable/internal/service/bank"
)

// Dates travel as calendar days; amounts travel as decimal strings.
const dateLayout = "2006-01-02"

func parseAmount(field, raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Decimal{}, nil
	}
	d, err := decimal.Parse(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: invalid amount for %s", errs.ErrInvalid, field)
	}
	return d, nil
}

func parseDate(field, raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date for %s, want YYYY-MM-DD", errs.ErrInvalid, field)
	}
	return t, nil
}

// --- Accounts ---

type postAccountRequest struct {
	BusinessID uuid.UUID          `json:"business_id" validate:"required"`
	Code       string             `json:"code" validate:"required"`
	Name       string             `json:"name" validate:"required"`
	Type       ledger.AccountType `json:"type" validate:"required"`
	Nature     ledger.Nature      `json:"nature,omitempty"`
	Level      int                `json:"level" validate:"required,min=1"`
	Detail     bool               `json:"detail"`
	Balance    string             `json:"balance,omitempty"`
	ParentID   *uuid.UUID         `json:"parent_id,omitempty"`
}

func (req postAccountRequest) toDomain() (ledger.Account, error) {
	bal, err := parseAmount("balance", req.Balance)
	if err != nil {
		return ledger.Account{}, err
	}
	return ledger.Account{
		BusinessID: req.BusinessID,
		Code:       req.Code,
		Name:       req.Name,
		Type:       req.Type,
		Nature:     req.Nature,
		Level:      req.Level,
		Detail:     req.Detail,
		Balance:    bal,
		ParentID:   req.ParentID,
	}, nil
}

type patchAccountRequest struct {
	BusinessID uuid.UUID        `json:"business_id" validate:"required"`
	Active     *bool            `json:"active,omitempty"`
	Parent     *reparentRequest `json:"parent,omitempty"`
}

type reparentRequest struct {
	ParentID *uuid.UUID `json:"parent_id"`
}

type accountResponse struct {
	ID         uuid.UUID          `json:"id"`
	BusinessID uuid.UUID          `json:"business_id"`
	Code       string             `json:"code"`
	Name       string             `json:"name"`
	Type       ledger.AccountType `json:"type"`
	Nature     ledger.Nature      `json:"nature"`
	Level      int                `json:"level"`
	Detail     bool               `json:"detail"`
	Balance    string             `json:"balance"`
	Active     bool               `json:"active"`
	ParentID   *uuid.UUID         `json:"parent_id,omitempty"`
}

func toAccountResponse(a ledger.Account) accountResponse {
	return accountResponse{
		ID:         a.ID,
		BusinessID: a.BusinessID,
		Code:       a.Code,
		Name:       a.Name,
		Type:       a.Type,
		Nature:     a.Nature,
		Level:      a.Level,
		Detail:     a.Detail,
		Balance:    a.Balance.String(),
		Active:     a.Active,
		ParentID:   a.ParentID,
	}
}

type subtreeTotalResponse struct {
	AccountID uuid.UUID `json:"account_id"`
	Total     string    `json:"total"`
}

// --- Reports ---

type sectionRowResponse struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Amount string `json:"amount"`
}

type sectionResponse struct {
	Name  string               `json:"name"`
	Rows  []sectionRowResponse `json:"rows"`
	Total string               `json:"total"`
}

type balanceSheetResponse struct {
	AsOf                   string          `json:"as_of"`
	Assets                 sectionResponse `json:"assets"`
	Liabilities            sectionResponse `json:"liabilities"`
	Equity                 sectionResponse `json:"equity"`
	TotalAssets            string          `json:"total_assets"`
	TotalLiabilitiesEquity string          `json:"total_liabilities_equity"`
	Balanced               bool            `json:"balanced"`
}

type incomeStatementResponse struct {
	From        string          `json:"from"`
	To          string          `json:"to"`
	Income      sectionResponse `json:"income"`
	Costs       sectionResponse `json:"costs"`
	Expenses    sectionResponse `json:"expenses"`
	GrossProfit string          `json:"gross_profit"`
	NetProfit   string          `json:"net_profit"`
}

type totalByTypeResponse struct {
	Type  ledger.AccountType `json:"type"`
	Total string             `json:"total"`
}

// --- Cash drawer ---

type openSessionRequest struct {
	BusinessID  uuid.UUID `json:"business_id" validate:"required"`
	Cashier     string    `json:"cashier" validate:"required"`
	Date        string    `json:"date,omitempty"`
	OpeningCash string    `json:"opening_cash" validate:"required"`
}

type openSessionInput struct {
	BusinessID  uuid.UUID
	Cashier     string
	Date        time.Time
	OpeningCash decimal.Decimal
}

type recordSaleRequest struct {
	BusinessID uuid.UUID            `json:"business_id" validate:"required"`
	Method     ledger.PaymentMethod `json:"method" validate:"required"`
	Amount     string               `json:"amount" validate:"required"`
}

type recordSaleInput struct {
	BusinessID uuid.UUID
	Method     ledger.PaymentMethod
	Amount     decimal.Decimal
}

type closeSessionRequest struct {
	BusinessID  uuid.UUID `json:"business_id" validate:"required"`
	CountedCash string    `json:"counted_cash" validate:"required"`
	Notes       string    `json:"notes,omitempty"`
}

type closeSessionInput struct {
	BusinessID  uuid.UUID
	CountedCash decimal.Decimal
	Notes       string
}

type sessionResponse struct {
	ID            uuid.UUID           `json:"id"`
	BusinessID    uuid.UUID           `json:"business_id"`
	Date          string              `json:"date"`
	Cashier       string              `json:"cashier"`
	OpeningCash   string              `json:"opening_cash"`
	CashSales     string              `json:"cash_sales"`
	CardSales     string              `json:"card_sales"`
	TransferSales string              `json:"transfer_sales"`
	TotalSales    string              `json:"total_sales"`
	State         ledger.SessionState `json:"state"`
	Notes         string              `json:"notes,omitempty"`
	CountedCash   *string             `json:"counted_cash,omitempty"`
	Variance      *string             `json:"variance,omitempty"`
}

func toSessionResponse(s ledger.CashSession) (sessionResponse, error) {
	total, err := s.TotalSales()
	if err != nil {
		return sessionResponse{}, fmt.Errorf("session %s totals: %w", s.ID, err)
	}
	resp := sessionResponse{
		ID:            s.ID,
		BusinessID:    s.BusinessID,
		Date:          s.Date.Format(dateLayout),
		Cashier:       s.Cashier,
		OpeningCash:   s.OpeningCash.String(),
		CashSales:     s.CashSales.String(),
		CardSales:     s.CardSales.String(),
		TransferSales: s.TransferSales.String(),
		TotalSales:    total.String(),
		State:         s.State,
		Notes:         s.Notes,
	}
	if s.State == ledger.SessionClosed {
		counted := s.CountedCash.String()
		variance := s.Variance.String()
		resp.CountedCash = &counted
		resp.Variance = &variance
	}
	return resp, nil
}

type closeResultResponse struct {
	Session        sessionResponse      `json:"session"`
	ExpectedCash   string               `json:"expected_cash"`
	CountedCash    string               `json:"counted_cash"`
	Variance       string               `json:"variance"`
	Classification ledger.VarianceClass `json:"classification"`
}

// --- Bank ---

type postBankAccountRequest struct {
	BusinessID     uuid.UUID              `json:"business_id" validate:"required"`
	Bank           string                 `json:"bank" validate:"required"`
	Kind           ledger.BankAccountKind `json:"kind" validate:"required"`
	Number         string                 `json:"number" validate:"required"`
	Currency       string                 `json:"currency,omitempty"`
	OpeningBalance string                 `json:"opening_balance,omitempty"`
}

func (req postBankAccountRequest) toDomain() (ledger.BankAccount, error) {
	opening, err := parseAmount("opening_balance", req.OpeningBalance)
	if err != nil {
		return ledger.BankAccount{}, err
	}
	return ledger.BankAccount{
		BusinessID:     req.BusinessID,
		Bank:           req.Bank,
		Kind:           req.Kind,
		Number:         req.Number,
		Currency:       req.Currency,
		OpeningBalance: opening,
	}, nil
}

type bankAccountResponse struct {
	ID             uuid.UUID              `json:"id"`
	BusinessID     uuid.UUID              `json:"business_id"`
	Bank           string                 `json:"bank"`
	Kind           ledger.BankAccountKind `json:"kind"`
	Number         string                 `json:"number"`
	Currency       string                 `json:"currency,omitempty"`
	OpeningBalance string                 `json:"opening_balance"`
	Balance        string                 `json:"balance"`
	Active         bool                   `json:"active"`
}

func toBankAccountResponse(a ledger.BankAccount) bankAccountResponse {
	return bankAccountResponse{
		ID:             a.ID,
		BusinessID:     a.BusinessID,
		Bank:           a.Bank,
		Kind:           a.Kind,
		Number:         a.Number,
		Currency:       a.Currency,
		OpeningBalance: a.OpeningBalance.String(),
		Balance:        a.Balance.String(),
		Active:         a.Active,
	}
}

type movementRowRequest struct {
	Date        string              `json:"date" validate:"required"`
	Description string              `json:"description" validate:"required"`
	Reference   string              `json:"reference,omitempty"`
	Amount      string              `json:"amount" validate:"required"`
	Kind        ledger.MovementKind `json:"kind" validate:"required"`
}

type importMovementsRequest struct {
	BusinessID uuid.UUID            `json:"business_id" validate:"required"`
	Movements  []movementRowRequest `json:"movements" validate:"required,min=1,dive"`
}

type importMovementsInput struct {
	BusinessID uuid.UUID
	Rows       []bank.MovementInput
}

func (req importMovementsRequest) toInput() (importMovementsInput, error) {
	in := importMovementsInput{BusinessID: req.BusinessID, Rows: make([]bank.MovementInput, 0, len(req.Movements))}
	for i, m := range req.Movements {
		date, err := parseDate(fmt.Sprintf("movements[%d].date", i), m.Date)
		if err != nil {
			return importMovementsInput{}, err
		}
		amount, err := parseAmount(fmt.Sprintf("movements[%d].amount", i), m.Amount)
		if err != nil {
			return importMovementsInput{}, err
		}
		in.Rows = append(in.Rows, bank.MovementInput{
			Date:        date,
			Description: m.Description,
			Reference:   m.Reference,
			Amount:      amount,
			Kind:        m.Kind,
		})
	}
	return in, nil
}

type importMovementsResponse struct {
	Imported int `json:"imported"`
}

type movementResponse struct {
	ID           uuid.UUID           `json:"id"`
	Date         string              `json:"date"`
	Description  string              `json:"description"`
	Reference    string              `json:"reference,omitempty"`
	Amount       string              `json:"amount"`
	Kind         ledger.MovementKind `json:"kind"`
	BalanceAfter string              `json:"balance_after"`
	Reconciled   bool                `json:"reconciled"`
}

func toMovementResponse(m ledger.BankMovement) movementResponse {
	return movementResponse{
		ID:           m.ID,
		Date:         m.Date.Format(dateLayout),
		Description:  m.Description,
		Reference:    m.Reference,
		Amount:       m.Amount.String(),
		Kind:         m.Kind,
		BalanceAfter: m.BalanceAfter.String(),
		Reconciled:   m.Reconciled,
	}
}

type reconcileRequest struct {
	BusinessID       uuid.UUID `json:"business_id" validate:"required"`
	From             string    `json:"from" validate:"required"`
	To               string    `json:"to" validate:"required"`
	StatementBalance string    `json:"statement_balance" validate:"required"`
}

type reconcileInput struct {
	BusinessID       uuid.UUID
	From, To         time.Time
	StatementBalance decimal.Decimal
}

func (req reconcileRequest) toInput() (reconcileInput, error) {
	from, err := parseDate("from", req.From)
	if err != nil {
		return reconcileInput{}, err
	}
	to, err := parseDate("to", req.To)
	if err != nil {
		return reconcileInput{}, err
	}
	balance, err := parseAmount("statement_balance", req.StatementBalance)
	if err != nil {
		return reconcileInput{}, err
	}
	return reconcileInput{BusinessID: req.BusinessID, From: from, To: to, StatementBalance: balance}, nil
}

type reconcileResponse struct {
	ReconciledCount int    `json:"reconciled_count"`
	PendingCount    int    `json:"pending_count"`
	Difference      string `json:"difference"`
}
