// Package postgres provides a pgx-backed storage implementation that
// satisfies the repository and writer interfaces used by the HTTP API and
// services.
//
// It is intentionally small and explicit. The schema lives under
// db/migrations. This package focuses on mapping between the domain
// entities and SQL rows and running the necessary statements and
// transactions. Amounts are stored as numeric and travel as text to keep
// the decimal representation exact.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/plazapos/contable/internal/errs"
	"github.com/plazapos/contable/internal/ledger"
)

// Store holds a pgx connection pool and implements the read/write
// interfaces used across the service layer. All methods are safe for
// concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// Open establishes a pgx pool using the provided connection string.
func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ready pings the pool to verify connectivity.
func (s *Store) Ready(ctx context.Context) error { return s.pool.Ping(ctx) }

// SeedBusiness inserts the business row if it does not exist yet.
func (s *Store) SeedBusiness(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
		insert into businesses (id) values ($1)
		on conflict (id) do nothing
	`, id)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func parseDec(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Decimal{}, nil
	}
	return decimal.Parse(raw)
}

// --- Accounts ---

const accountCols = `id, business_id, code, name, type, nature, level, detail, balance::text, active, parent_id`

func scanAccount(row pgx.Row) (ledger.Account, error) {
	var a ledger.Account
	var balance string
	if err := row.Scan(&a.ID, &a.BusinessID, &a.Code, &a.Name, &a.Type, &a.Nature,
		&a.Level, &a.Detail, &balance, &a.Active, &a.ParentID); err != nil {
		return ledger.Account{}, err
	}
	var err error
	a.Balance, err = parseDec(balance)
	return a, err
}

// ListAccounts returns all accounts of a business in code order.
func (s *Store) ListAccounts(ctx context.Context, businessID uuid.UUID) ([]ledger.Account, error) {
	rows, err := s.pool.Query(ctx, `
		select `+accountCols+`
		from accounts
		where business_id = $1
		order by code
	`, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetAccount fetches a single account by id for a business.
func (s *Store) GetAccount(ctx context.Context, businessID, accountID uuid.UUID) (ledger.Account, error) {
	a, err := scanAccount(s.pool.QueryRow(ctx, `
		select `+accountCols+`
		from accounts
		where id = $1 and business_id = $2
	`, accountID, businessID))
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Account{}, errs.ErrNotFound
	}
	return a, err
}

// AccountByCode resolves an account by its code.
func (s *Store) AccountByCode(ctx context.Context, businessID uuid.UUID, code string) (ledger.Account, bool, error) {
	a, err := scanAccount(s.pool.QueryRow(ctx, `
		select `+accountCols+`
		from accounts
		where business_id = $1 and code = $2
	`, businessID, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Account{}, false, nil
	}
	if err != nil {
		return ledger.Account{}, false, err
	}
	return a, true, nil
}

// CreateAccount inserts an account row. A duplicate code within the
// business maps to ErrConflict via the unique constraint.
func (s *Store) CreateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error) {
	_, err := s.pool.Exec(ctx, `
		insert into accounts (id, business_id, code, name, type, nature, level, detail, balance, active, parent_id)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, a.ID, a.BusinessID, a.Code, a.Name, a.Type, a.Nature, a.Level, a.Detail, a.Balance.String(), a.Active, a.ParentID)
	if isUniqueViolation(err) {
		return ledger.Account{}, fmt.Errorf("%w: code %s already exists", errs.ErrConflict, a.Code)
	}
	if err != nil {
		return ledger.Account{}, err
	}
	return a, nil
}

// UpdateAccount updates the mutable fields (name, detail, active, parent,
// level, balance).
func (s *Store) UpdateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error) {
	ct, err := s.pool.Exec(ctx, `
		update accounts
		set name=$1, detail=$2, active=$3, parent_id=$4, level=$5, balance=$6
		where id=$7 and business_id=$8
	`, a.Name, a.Detail, a.Active, a.ParentID, a.Level, a.Balance.String(), a.ID, a.BusinessID)
	if err != nil {
		return ledger.Account{}, err
	}
	if ct.RowsAffected() == 0 {
		return ledger.Account{}, errs.ErrNotFound
	}
	return a, nil
}

// BalancesAsOf returns the accounts with their current balances. Balances
// are maintained as running totals by the posting collaborator, so the
// snapshot is the as-of view; historical cut-offs would require a posting
// log this service does not own.
func (s *Store) BalancesAsOf(ctx context.Context, businessID uuid.UUID, _ time.Time) ([]ledger.Account, error) {
	return s.ListAccounts(ctx, businessID)
}

// BalancesBetween returns the accounts with the activity the running
// totals currently show. See BalancesAsOf for the snapshot caveat.
func (s *Store) BalancesBetween(ctx context.Context, businessID uuid.UUID, _, _ time.Time) ([]ledger.Account, error) {
	return s.ListAccounts(ctx, businessID)
}

// --- Cash drawer sessions ---

const sessionCols = `id, business_id, date, cashier, opening_cash::text, cash_sales::text,
	card_sales::text, transfer_sales::text, counted_cash::text, variance::text, state, notes, opened_at, closed_at`

func scanSession(row pgx.Row) (ledger.CashSession, error) {
	var sess ledger.CashSession
	var opening, cash, card, transfer, counted, variance string
	if err := row.Scan(&sess.ID, &sess.BusinessID, &sess.Date, &sess.Cashier,
		&opening, &cash, &card, &transfer, &counted, &variance,
		&sess.State, &sess.Notes, &sess.OpenedAt, &sess.ClosedAt); err != nil {
		return ledger.CashSession{}, err
	}
	var err error
	if sess.OpeningCash, err = parseDec(opening); err != nil {
		return ledger.CashSession{}, err
	}
	if sess.CashSales, err = parseDec(cash); err != nil {
		return ledger.CashSession{}, err
	}
	if sess.CardSales, err = parseDec(card); err != nil {
		return ledger.CashSession{}, err
	}
	if sess.TransferSales, err = parseDec(transfer); err != nil {
		return ledger.CashSession{}, err
	}
	if sess.CountedCash, err = parseDec(counted); err != nil {
		return ledger.CashSession{}, err
	}
	sess.Variance, err = parseDec(variance)
	return sess, err
}

// GetSession fetches a session by id for a business.
func (s *Store) GetSession(ctx context.Context, businessID, sessionID uuid.UUID) (ledger.CashSession, error) {
	sess, err := scanSession(s.pool.QueryRow(ctx, `
		select `+sessionCols+`
		from cash_sessions
		where id = $1 and business_id = $2
	`, sessionID, businessID))
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.CashSession{}, errs.ErrNotFound
	}
	return sess, err
}

// CreateSession inserts a session row. The partial unique index on open
// sessions rejects a second open session per cashier with ErrConflict,
// racing opens included.
func (s *Store) CreateSession(ctx context.Context, sess ledger.CashSession) (ledger.CashSession, error) {
	_, err := s.pool.Exec(ctx, `
		insert into cash_sessions (id, business_id, date, cashier, opening_cash,
			cash_sales, card_sales, transfer_sales, counted_cash, variance, state, notes, opened_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`, sess.ID, sess.BusinessID, sess.Date, sess.Cashier, sess.OpeningCash.String(),
		sess.CashSales.String(), sess.CardSales.String(), sess.TransferSales.String(),
		sess.CountedCash.String(), sess.Variance.String(), sess.State, sess.Notes, sess.OpenedAt)
	if isUniqueViolation(err) {
		return ledger.CashSession{}, fmt.Errorf("%w: cashier %s already has an open session", errs.ErrConflict, sess.Cashier)
	}
	if err != nil {
		return ledger.CashSession{}, err
	}
	return sess, nil
}

// AddSale increments the accumulator for the payment method with a guarded
// update: the row must still be open. A zero row count is disambiguated
// into ErrNotFound or ErrConflict by re-reading the session.
func (s *Store) AddSale(ctx context.Context, businessID, sessionID uuid.UUID, method ledger.PaymentMethod, amount decimal.Decimal) (ledger.CashSession, error) {
	var col string
	switch method {
	case ledger.PaymentCash:
		col = "cash_sales"
	case ledger.PaymentCard:
		col = "card_sales"
	case ledger.PaymentTransfer:
		col = "transfer_sales"
	default:
		return ledger.CashSession{}, fmt.Errorf("%w: invalid payment method %q", errs.ErrInvalid, method)
	}
	ct, err := s.pool.Exec(ctx, `
		update cash_sessions
		set `+col+` = `+col+` + $1::numeric
		where id = $2 and business_id = $3 and state = 'open'
	`, amount.String(), sessionID, businessID)
	if err != nil {
		return ledger.CashSession{}, err
	}
	if ct.RowsAffected() == 0 {
		sess, err := s.GetSession(ctx, businessID, sessionID)
		if err != nil {
			return ledger.CashSession{}, err
		}
		if sess.State == ledger.SessionClosed {
			return ledger.CashSession{}, fmt.Errorf("%w: session is closed", errs.ErrConflict)
		}
		return ledger.CashSession{}, errs.ErrNotFound
	}
	return s.GetSession(ctx, businessID, sessionID)
}

// CloseSession settles the session with a guarded update so exactly one
// close wins. The variance is computed in SQL against the accumulators the
// winning close observes.
func (s *Store) CloseSession(ctx context.Context, businessID, sessionID uuid.UUID, counted decimal.Decimal, notes string, at time.Time) (ledger.CashSession, error) {
	ct, err := s.pool.Exec(ctx, `
		update cash_sessions
		set state = 'closed',
			counted_cash = $1::numeric,
			variance = $1::numeric - (opening_cash + cash_sales),
			notes = $2,
			closed_at = $3
		where id = $4 and business_id = $5 and state = 'open'
	`, counted.String(), notes, at, sessionID, businessID)
	if err != nil {
		return ledger.CashSession{}, err
	}
	if ct.RowsAffected() == 0 {
		sess, err := s.GetSession(ctx, businessID, sessionID)
		if err != nil {
			return ledger.CashSession{}, err
		}
		if sess.State == ledger.SessionClosed {
			return ledger.CashSession{}, fmt.Errorf("%w: session already closed", errs.ErrConflict)
		}
		return ledger.CashSession{}, errs.ErrNotFound
	}
	return s.GetSession(ctx, businessID, sessionID)
}

// --- Bank accounts and movements ---

const bankAccountCols = `id, business_id, bank, kind, number, currency, opening_balance::text, balance::text, active`

func scanBankAccount(row pgx.Row) (ledger.BankAccount, error) {
	var a ledger.BankAccount
	var opening, balance string
	if err := row.Scan(&a.ID, &a.BusinessID, &a.Bank, &a.Kind, &a.Number,
		&a.Currency, &opening, &balance, &a.Active); err != nil {
		return ledger.BankAccount{}, err
	}
	var err error
	if a.OpeningBalance, err = parseDec(opening); err != nil {
		return ledger.BankAccount{}, err
	}
	a.Balance, err = parseDec(balance)
	return a, err
}

func (s *Store) GetBankAccount(ctx context.Context, businessID, accountID uuid.UUID) (ledger.BankAccount, error) {
	a, err := scanBankAccount(s.pool.QueryRow(ctx, `
		select `+bankAccountCols+`
		from bank_accounts
		where id = $1 and business_id = $2
	`, accountID, businessID))
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.BankAccount{}, errs.ErrNotFound
	}
	return a, err
}

func (s *Store) CreateBankAccount(ctx context.Context, a ledger.BankAccount) (ledger.BankAccount, error) {
	_, err := s.pool.Exec(ctx, `
		insert into bank_accounts (id, business_id, bank, kind, number, currency, opening_balance, balance, active)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, a.ID, a.BusinessID, a.Bank, a.Kind, a.Number, a.Currency,
		a.OpeningBalance.String(), a.Balance.String(), a.Active)
	if isUniqueViolation(err) {
		return ledger.BankAccount{}, fmt.Errorf("%w: bank account number already registered", errs.ErrConflict)
	}
	if err != nil {
		return ledger.BankAccount{}, err
	}
	return a, nil
}

const movementCols = `id, account_id, date, description, reference, amount::text, kind, balance_after::text, reconciled, seq`

func scanMovements(rows pgx.Rows) ([]ledger.BankMovement, error) {
	defer rows.Close()
	out := make([]ledger.BankMovement, 0)
	for rows.Next() {
		var m ledger.BankMovement
		var amount, after string
		if err := rows.Scan(&m.ID, &m.AccountID, &m.Date, &m.Description, &m.Reference,
			&amount, &m.Kind, &after, &m.Reconciled, &m.Seq); err != nil {
			return nil, err
		}
		var err error
		if m.Amount, err = parseDec(amount); err != nil {
			return nil, err
		}
		if m.BalanceAfter, err = parseDec(after); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// MovementsBetween returns the movements inside [from, to] in statement
// order: date, then arrival order.
func (s *Store) MovementsBetween(ctx context.Context, accountID uuid.UUID, from, to time.Time) ([]ledger.BankMovement, error) {
	rows, err := s.pool.Query(ctx, `
		select `+movementCols+`
		from bank_movements
		where account_id = $1 and date >= $2 and date <= $3
		order by date, seq
	`, accountID, from, to)
	if err != nil {
		return nil, err
	}
	return scanMovements(rows)
}

// MovementsThrough returns all movements dated on or before to.
func (s *Store) MovementsThrough(ctx context.Context, accountID uuid.UUID, to time.Time) ([]ledger.BankMovement, error) {
	rows, err := s.pool.Query(ctx, `
		select `+movementCols+`
		from bank_movements
		where account_id = $1 and date <= $2
		order by date, seq
	`, accountID, to)
	if err != nil {
		return nil, err
	}
	return scanMovements(rows)
}

// AppendMovements inserts a statement batch and extends the running
// balance chain. The bank account row is locked for the duration so
// concurrent imports serialize and each movement's balance_after reflects
// every movement before it.
func (s *Store) AppendMovements(ctx context.Context, accountID uuid.UUID, rows []ledger.BankMovement) ([]ledger.BankMovement, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var balanceRaw string
	var maxSeq int64
	err = tx.QueryRow(ctx, `
		select balance::text, coalesce((select max(seq) from bank_movements where account_id = $1), 0)
		from bank_accounts
		where id = $1
		for update
	`, accountID).Scan(&balanceRaw, &maxSeq)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	running, err := parseDec(balanceRaw)
	if err != nil {
		return nil, err
	}

	out := make([]ledger.BankMovement, 0, len(rows))
	for _, m := range rows {
		running, err = running.Add(m.Signed())
		if err != nil {
			return nil, err
		}
		maxSeq++
		m.Seq = maxSeq
		m.BalanceAfter = running
		if _, err := tx.Exec(ctx, `
			insert into bank_movements (id, account_id, date, description, reference, amount, kind, balance_after, reconciled, seq)
			values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		`, m.ID, accountID, m.Date, m.Description, m.Reference, m.Amount.String(),
			m.Kind, m.BalanceAfter.String(), m.Reconciled, m.Seq); err != nil {
			return nil, fmt.Errorf("insert movement: %w", err)
		}
		out = append(out, m)
	}
	if _, err := tx.Exec(ctx, `
		update bank_accounts set balance = $1::numeric where id = $2
	`, running.String(), accountID); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkReconciled flips the pending movements inside [from, to] and
// returns how many changed.
func (s *Store) MarkReconciled(ctx context.Context, accountID uuid.UUID, from, to time.Time) (int, error) {
	ct, err := s.pool.Exec(ctx, `
		update bank_movements
		set reconciled = true
		where account_id = $1 and date >= $2 and date <= $3 and not reconciled
	`, accountID, from, to)
	if err != nil {
		return 0, err
	}
	return int(ct.RowsAffected()), nil
}
