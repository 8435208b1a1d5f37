package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"

	"github.com/plazapos/contable/internal/errs"
	"github.com/plazapos/contable/internal/ledger"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.Parse(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return d
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}

func TestCreateAccountDuplicateCode(t *testing.T) {
	ctx := context.Background()
	store := New()
	businessID := uuid.New()
	store.SeedBusiness(businessID)

	a := ledger.Account{ID: uuid.New(), BusinessID: businessID, Code: "1", Name: "Activos", Type: ledger.AccountTypeAsset, Level: 1, Active: true}
	if _, err := store.CreateAccount(ctx, a); err != nil {
		t.Fatal(err)
	}
	dup := ledger.Account{ID: uuid.New(), BusinessID: businessID, Code: "1", Name: "Otro", Type: ledger.AccountTypeAsset, Level: 1}
	if _, err := store.CreateAccount(ctx, dup); !errors.Is(err, errs.ErrConflict) {
		t.Errorf("duplicate code: got %v, want ErrConflict", err)
	}
	// The same code in a different business is fine.
	other := ledger.Account{ID: uuid.New(), BusinessID: uuid.New(), Code: "1", Name: "Activos", Type: ledger.AccountTypeAsset, Level: 1}
	if _, err := store.CreateAccount(ctx, other); err != nil {
		t.Errorf("same code in other business: %v", err)
	}

	got, ok, err := store.AccountByCode(ctx, businessID, "1")
	if err != nil || !ok {
		t.Fatalf("AccountByCode: ok=%v err=%v", ok, err)
	}
	if got.ID != a.ID {
		t.Errorf("AccountByCode resolved %s, want %s", got.ID, a.ID)
	}
}

func TestConcurrentAddSale(t *testing.T) {
	ctx := context.Background()
	store := New()
	businessID := uuid.New()
	store.SeedBusiness(businessID)
	sess, err := store.CreateSession(ctx, ledger.CashSession{
		ID: uuid.New(), BusinessID: businessID, Cashier: "ana",
		Date: day(t, "2025-03-10"), OpeningCash: dec(t, "100"), State: ledger.SessionOpen,
	})
	if err != nil {
		t.Fatal(err)
	}

	const workers = 50
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			if _, err := store.AddSale(ctx, businessID, sess.ID, ledger.PaymentCash, dec(t, "2")); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	got, err := store.GetSession(ctx, businessID, sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.CashSales.String() != "100" {
		t.Errorf("cash sales = %s after %d concurrent sales of 2, want 100", got.CashSales, workers)
	}
}

func TestConcurrentOpenOnlyOneWins(t *testing.T) {
	ctx := context.Background()
	store := New()
	businessID := uuid.New()
	store.SeedBusiness(businessID)

	const attempts = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	okCount, conflictCount := 0, 0
	wg.Add(attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			defer wg.Done()
			_, err := store.CreateSession(ctx, ledger.CashSession{
				ID: uuid.New(), BusinessID: businessID, Cashier: "luis",
				Date: day(t, "2025-03-10"), State: ledger.SessionOpen,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				okCount++
			case errors.Is(err, errs.ErrConflict):
				conflictCount++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	if okCount != 1 || conflictCount != attempts-1 {
		t.Errorf("opens: %d succeeded, %d conflicted; want 1 and %d", okCount, conflictCount, attempts-1)
	}
}

func TestCloseSessionExactlyOnce(t *testing.T) {
	ctx := context.Background()
	store := New()
	businessID := uuid.New()
	store.SeedBusiness(businessID)
	sess, err := store.CreateSession(ctx, ledger.CashSession{
		ID: uuid.New(), BusinessID: businessID, Cashier: "ana",
		Date: day(t, "2025-03-10"), OpeningCash: dec(t, "100"), State: ledger.SessionOpen,
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.AddSale(ctx, businessID, sess.ID, ledger.PaymentCash, dec(t, "50")); err != nil {
		t.Fatal(err)
	}

	const attempts = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	okCount := 0
	wg.Add(attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			defer wg.Done()
			_, err := store.CloseSession(ctx, businessID, sess.ID, dec(t, "120"), "", time.Now())
			if err == nil {
				mu.Lock()
				okCount++
				mu.Unlock()
			} else if !errors.Is(err, errs.ErrConflict) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	if okCount != 1 {
		t.Fatalf("%d closes won, want exactly 1", okCount)
	}

	got, err := store.GetSession(ctx, businessID, sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Variance.String() != "-30" {
		t.Errorf("variance = %s, want -30", got.Variance)
	}
	// Sales on a closed session are rejected and the variance stays frozen.
	if _, err := store.AddSale(ctx, businessID, sess.ID, ledger.PaymentCash, dec(t, "5")); !errors.Is(err, errs.ErrConflict) {
		t.Errorf("sale on closed session: got %v, want ErrConflict", err)
	}
	// The cashier can open a fresh session once the old one is closed.
	if _, err := store.CreateSession(ctx, ledger.CashSession{
		ID: uuid.New(), BusinessID: businessID, Cashier: "ana",
		Date: day(t, "2025-03-11"), State: ledger.SessionOpen,
	}); err != nil {
		t.Errorf("reopen after close: %v", err)
	}
}

func TestAppendMovementsChainsBalances(t *testing.T) {
	ctx := context.Background()
	store := New()
	businessID := uuid.New()
	store.SeedBusiness(businessID)
	acc, err := store.CreateBankAccount(ctx, ledger.BankAccount{
		ID: uuid.New(), BusinessID: businessID, Bank: "BPD", Kind: ledger.BankAccountChecking,
		Number: "001", OpeningBalance: dec(t, "1000"), Balance: dec(t, "1000"), Active: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	rows := []ledger.BankMovement{
		{ID: uuid.New(), Date: day(t, "2025-03-01"), Description: "deposit", Amount: dec(t, "500"), Kind: ledger.MovementCredit},
		{ID: uuid.New(), Date: day(t, "2025-03-02"), Description: "check", Amount: dec(t, "200"), Kind: ledger.MovementDebit},
	}
	appended, err := store.AppendMovements(ctx, acc.ID, rows)
	if err != nil {
		t.Fatal(err)
	}
	if len(appended) != 2 {
		t.Fatalf("appended %d rows", len(appended))
	}
	if appended[0].BalanceAfter.String() != "1500" {
		t.Errorf("first balance_after = %s, want 1500", appended[0].BalanceAfter)
	}
	if appended[1].BalanceAfter.String() != "1300" {
		t.Errorf("second balance_after = %s, want 1300", appended[1].BalanceAfter)
	}

	got, err := store.GetBankAccount(ctx, businessID, acc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Balance.String() != "1300" {
		t.Errorf("running balance = %s, want 1300", got.Balance)
	}

	// A later import continues the chain.
	more, err := store.AppendMovements(ctx, acc.ID, []ledger.BankMovement{
		{ID: uuid.New(), Date: day(t, "2025-03-03"), Description: "fee", Amount: dec(t, "25"), Kind: ledger.MovementDebit},
	})
	if err != nil {
		t.Fatal(err)
	}
	if more[0].BalanceAfter.String() != "1275" {
		t.Errorf("chained balance_after = %s, want 1275", more[0].BalanceAfter)
	}
	if more[0].Seq <= appended[1].Seq {
		t.Errorf("seq did not advance: %d after %d", more[0].Seq, appended[1].Seq)
	}
}

func TestMovementsOrderingAndWindow(t *testing.T) {
	ctx := context.Background()
	store := New()
	businessID := uuid.New()
	acc, err := store.CreateBankAccount(ctx, ledger.BankAccount{
		ID: uuid.New(), BusinessID: businessID, Number: "002", Active: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	// Same-date movements keep arrival order via seq.
	_, err = store.AppendMovements(ctx, acc.ID, []ledger.BankMovement{
		{ID: uuid.New(), Date: day(t, "2025-03-05"), Description: "b", Amount: dec(t, "1"), Kind: ledger.MovementCredit},
		{ID: uuid.New(), Date: day(t, "2025-03-05"), Description: "c", Amount: dec(t, "1"), Kind: ledger.MovementCredit},
		{ID: uuid.New(), Date: day(t, "2025-03-01"), Description: "a", Amount: dec(t, "1"), Kind: ledger.MovementCredit},
	})
	if err != nil {
		t.Fatal(err)
	}

	ms, err := store.MovementsBetween(ctx, acc.ID, day(t, "2025-03-01"), day(t, "2025-03-31"))
	if err != nil {
		t.Fatal(err)
	}
	gotOrder := ""
	for _, m := range ms {
		gotOrder += m.Description
	}
	if gotOrder != "abc" {
		t.Errorf("order = %q, want abc", gotOrder)
	}

	// The window is inclusive on both ends.
	ms, err = store.MovementsBetween(ctx, acc.ID, day(t, "2025-03-05"), day(t, "2025-03-05"))
	if err != nil {
		t.Fatal(err)
	}
	if len(ms) != 2 {
		t.Errorf("inclusive window returned %d movements, want 2", len(ms))
	}

	through, err := store.MovementsThrough(ctx, acc.ID, day(t, "2025-03-04"))
	if err != nil {
		t.Fatal(err)
	}
	if len(through) != 1 || through[0].Description != "a" {
		t.Errorf("through 03-04 = %v", through)
	}
}

func TestMarkReconciled(t *testing.T) {
	ctx := context.Background()
	store := New()
	businessID := uuid.New()
	acc, err := store.CreateBankAccount(ctx, ledger.BankAccount{
		ID: uuid.New(), BusinessID: businessID, Number: "003", Active: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	_, err = store.AppendMovements(ctx, acc.ID, []ledger.BankMovement{
		{ID: uuid.New(), Date: day(t, "2025-03-01"), Amount: dec(t, "1"), Kind: ledger.MovementCredit},
		{ID: uuid.New(), Date: day(t, "2025-03-10"), Amount: dec(t, "1"), Kind: ledger.MovementCredit},
		{ID: uuid.New(), Date: day(t, "2025-04-01"), Amount: dec(t, "1"), Kind: ledger.MovementCredit},
	})
	if err != nil {
		t.Fatal(err)
	}

	n, err := store.MarkReconciled(ctx, acc.ID, day(t, "2025-03-01"), day(t, "2025-03-31"))
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("flipped %d, want 2", n)
	}
	// A second run over the same window finds nothing pending.
	n, err = store.MarkReconciled(ctx, acc.ID, day(t, "2025-03-01"), day(t, "2025-03-31"))
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("second run flipped %d, want 0", n)
	}

	if _, err := store.MarkReconciled(ctx, uuid.New(), day(t, "2025-03-01"), day(t, "2025-03-31")); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("unknown account: got %v, want ErrNotFound", err)
	}
}
