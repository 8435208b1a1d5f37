// Package reports derives the financial statements from the chart of
// accounts: balance sheet, income statement, and the named per-type totals
// the dashboard shows. Balances are supplied by the posting collaborator
// through the store; this layer only partitions and aggregates them.
package reports

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"

	"github.com/plazapos/contable/internal/errs"
	"github.com/plazapos/contable/internal/ledger"
)

// Repo defines the balance reads needed by the service.
type Repo interface {
	// BalancesAsOf returns the accounts of a business with balances as of
	// the given date.
	BalancesAsOf(ctx context.Context, businessID uuid.UUID, asOf time.Time) ([]ledger.Account, error)
	// BalancesBetween returns the accounts of a business with their
	// activity accumulated over [from, to].
	BalancesBetween(ctx context.Context, businessID uuid.UUID, from, to time.Time) ([]ledger.Account, error)
}

// SectionRow is one account line of a statement section.
type SectionRow struct {
	Code   string
	Name   string
	Amount decimal.Decimal
}

// Section groups rows of one account type with their total.
type Section struct {
	Name  string
	Rows  []SectionRow
	Total decimal.Decimal
}

// BalanceSheet is the statement of financial position as of a date.
type BalanceSheet struct {
	AsOf        time.Time
	Assets      Section
	Liabilities Section
	Equity      Section
	TotalAssets            decimal.Decimal
	TotalLiabilitiesEquity decimal.Decimal
	// Balanced asserts the accounting equation with exact decimal
	// equality. Postings are balanced by construction, so a false here is
	// a system-health warning for the caller to surface, not an error.
	Balanced bool
}

// IncomeStatement is the result of operations over a period.
type IncomeStatement struct {
	From, To    time.Time
	Income      Section
	Costs       Section
	Expenses    Section
	GrossProfit decimal.Decimal
	NetProfit   decimal.Decimal
}

// Service exposes the statement builders.
type Service interface {
	BalanceSheet(ctx context.Context, businessID uuid.UUID, asOf time.Time) (BalanceSheet, error)
	IncomeStatement(ctx context.Context, businessID uuid.UUID, from, to time.Time) (IncomeStatement, error)
	TotalByType(ctx context.Context, businessID uuid.UUID, t ledger.AccountType, asOf time.Time) (decimal.Decimal, error)
}

type service struct {
	repo Repo
}

func New(repo Repo) Service { return &service{repo: repo} }

// BalanceSheet partitions detail asset, liability, and equity accounts into
// three sections. Only detail accounts are listed; non-detail accounts
// mirror their children and would double count.
func (s *service) BalanceSheet(ctx context.Context, businessID uuid.UUID, asOf time.Time) (BalanceSheet, error) {
	if businessID == uuid.Nil {
		return BalanceSheet{}, errs.ErrInvalid
	}
	accounts, err := s.repo.BalancesAsOf(ctx, businessID, asOf)
	if err != nil {
		return BalanceSheet{}, err
	}
	sections, err := partition(accounts, map[ledger.AccountType]string{
		ledger.AccountTypeAsset:     "Activos",
		ledger.AccountTypeLiability: "Pasivos",
		ledger.AccountTypeEquity:    "Patrimonio",
	})
	if err != nil {
		return BalanceSheet{}, err
	}
	bs := BalanceSheet{
		AsOf:        asOf,
		Assets:      sections[ledger.AccountTypeAsset],
		Liabilities: sections[ledger.AccountTypeLiability],
		Equity:      sections[ledger.AccountTypeEquity],
	}
	bs.TotalAssets = bs.Assets.Total
	bs.TotalLiabilitiesEquity, err = bs.Liabilities.Total.Add(bs.Equity.Total)
	if err != nil {
		return BalanceSheet{}, err
	}
	bs.Balanced = bs.TotalAssets.Cmp(bs.TotalLiabilitiesEquity) == 0
	return bs, nil
}

// IncomeStatement partitions detail income, cost, and expense accounts over
// the period and derives gross and net profit.
func (s *service) IncomeStatement(ctx context.Context, businessID uuid.UUID, from, to time.Time) (IncomeStatement, error) {
	if businessID == uuid.Nil {
		return IncomeStatement{}, errs.ErrInvalid
	}
	if from.After(to) {
		return IncomeStatement{}, errs.ErrInvalidRange
	}
	accounts, err := s.repo.BalancesBetween(ctx, businessID, from, to)
	if err != nil {
		return IncomeStatement{}, err
	}
	sections, err := partition(accounts, map[ledger.AccountType]string{
		ledger.AccountTypeIncome:  "Ingresos",
		ledger.AccountTypeCost:    "Costos",
		ledger.AccountTypeExpense: "Gastos",
	})
	if err != nil {
		return IncomeStatement{}, err
	}
	is := IncomeStatement{
		From:     from,
		To:       to,
		Income:   sections[ledger.AccountTypeIncome],
		Costs:    sections[ledger.AccountTypeCost],
		Expenses: sections[ledger.AccountTypeExpense],
	}
	is.GrossProfit, err = is.Income.Total.Sub(is.Costs.Total)
	if err != nil {
		return IncomeStatement{}, err
	}
	is.NetProfit, err = is.GrossProfit.Sub(is.Expenses.Total)
	if err != nil {
		return IncomeStatement{}, err
	}
	return is, nil
}

// TotalByType returns the aggregate balance for one account type as of a
// date. Dashboard figures ("Total cartera", "Valor inventario") read this
// instead of re-deriving sums per view.
func (s *service) TotalByType(ctx context.Context, businessID uuid.UUID, t ledger.AccountType, asOf time.Time) (decimal.Decimal, error) {
	if businessID == uuid.Nil {
		return decimal.Decimal{}, errs.ErrInvalid
	}
	if !t.Valid() {
		return decimal.Decimal{}, errs.ErrInvalid
	}
	accounts, err := s.repo.BalancesAsOf(ctx, businessID, asOf)
	if err != nil {
		return decimal.Decimal{}, err
	}
	var total decimal.Decimal
	for _, a := range accounts {
		if a.Type != t || !a.Detail {
			continue
		}
		total, err = total.Add(a.Balance)
		if err != nil {
			return decimal.Decimal{}, err
		}
	}
	return total, nil
}

// partition splits detail accounts into one section per requested type,
// rows ordered by ascending code.
func partition(accounts []ledger.Account, names map[ledger.AccountType]string) (map[ledger.AccountType]Section, error) {
	out := make(map[ledger.AccountType]Section, len(names))
	for t, name := range names {
		out[t] = Section{Name: name, Rows: []SectionRow{}}
	}
	for _, a := range accounts {
		name, wanted := names[a.Type]
		if !wanted || !a.Detail {
			continue
		}
		sec := out[a.Type]
		sec.Name = name
		sec.Rows = append(sec.Rows, SectionRow{Code: a.Code, Name: a.Name, Amount: a.Balance})
		total, err := sec.Total.Add(a.Balance)
		if err != nil {
			return nil, err
		}
		sec.Total = total
		out[a.Type] = sec
	}
	for t, sec := range out {
		sort.Slice(sec.Rows, func(i, j int) bool { return sec.Rows[i].Code < sec.Rows[j].Code })
		out[t] = sec
	}
	return out, nil
}
