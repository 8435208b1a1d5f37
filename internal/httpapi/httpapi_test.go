package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"

	"github.com/plazapos/contable/internal/ledger"
	"github.com/plazapos/contable/internal/storage/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

type errResp struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func setup(t *testing.T) (http.Handler, uuid.UUID) {
	t.Helper()
	store := memory.New()
	businessID := uuid.New()
	store.SeedBusiness(businessID)
	h := New(store, testLogger(), Options{}).Handler()
	return h, businessID
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func createAccount(t *testing.T, h http.Handler, businessID uuid.UUID, code, name, typ string, level int, detail bool, balance string, parentID string) map[string]any {
	t.Helper()
	body := map[string]any{
		"business_id": businessID.String(),
		"code":        code,
		"name":        name,
		"type":        typ,
		"level":       level,
		"detail":      detail,
	}
	if balance != "" {
		body["balance"] = balance
	}
	if parentID != "" {
		body["parent_id"] = parentID
	}
	rec := doJSON(t, h, http.MethodPost, "/v1/accounts", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create %s: expected 201, got %d: %s", code, rec.Code, rec.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestAccountEndpoints(t *testing.T) {
	h, businessID := setup(t)

	root := createAccount(t, h, businessID, "1", "Activos", "asset", 1, false, "", "")
	curr := createAccount(t, h, businessID, "1.1", "Activo Corriente", "asset", 2, false, "", root["id"].(string))
	createAccount(t, h, businessID, "1.1.02", "Bancos", "asset", 3, true, "800", curr["id"].(string))
	createAccount(t, h, businessID, "1.1.01", "Caja", "asset", 3, true, "200", curr["id"].(string))

	if root["nature"] != "debit" {
		t.Errorf("asset nature defaulted to %v", root["nature"])
	}

	// Duplicate code is a validation failure.
	rec := doJSON(t, h, http.MethodPost, "/v1/accounts", map[string]any{
		"business_id": businessID.String(), "code": "1", "name": "Otro", "type": "asset", "level": 1,
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("duplicate code: expected 422, got %d: %s", rec.Code, rec.Body.String())
	}

	// Wrong content type gets a 415.
	req := httptest.NewRequest(http.MethodPost, "/v1/accounts", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "text/plain")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnsupportedMediaType {
		t.Errorf("text/plain: expected 415, got %d", rr.Code)
	}

	// The listing is flattened pre-order with siblings sorted by code.
	rec = doJSON(t, h, http.MethodGet, "/v1/accounts?business_id="+businessID.String(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", rec.Code)
	}
	var listing struct {
		Accounts []struct {
			Code string `json:"code"`
		} `json:"accounts"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listing); err != nil {
		t.Fatal(err)
	}
	want := []string{"1", "1.1", "1.1.01", "1.1.02"}
	if len(listing.Accounts) != len(want) {
		t.Fatalf("listed %d accounts, want %d", len(listing.Accounts), len(want))
	}
	for i, w := range want {
		if listing.Accounts[i].Code != w {
			t.Errorf("position %d: code %s, want %s", i, listing.Accounts[i].Code, w)
		}
	}

	// Subtree total aggregates the detail balances.
	rec = doJSON(t, h, http.MethodGet, "/v1/accounts/"+root["id"].(string)+"/subtree-total?business_id="+businessID.String(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("subtree total: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var total struct {
		Total string `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &total); err != nil {
		t.Fatal(err)
	}
	if total.Total != "1000" {
		t.Errorf("subtree total = %s, want 1000", total.Total)
	}

	// Deactivate via PATCH.
	rec = doJSON(t, h, http.MethodPatch, "/v1/accounts/"+curr["id"].(string), map[string]any{
		"business_id": businessID.String(), "active": false,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("patch: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var patched struct {
		Active bool `json:"active"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &patched); err != nil {
		t.Fatal(err)
	}
	if patched.Active {
		t.Error("account still active after PATCH")
	}

	// Unknown account is a 404.
	rec = doJSON(t, h, http.MethodGet, "/v1/accounts/"+uuid.NewString()+"?business_id="+businessID.String(), nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown account: expected 404, got %d", rec.Code)
	}
}

func TestReportEndpoints(t *testing.T) {
	h, businessID := setup(t)
	createAccount(t, h, businessID, "1.1.01", "Caja", "asset", 1, true, "1000", "")
	createAccount(t, h, businessID, "3.1.01", "Capital", "equity", 1, true, "1000", "")
	createAccount(t, h, businessID, "4.1.01", "Ventas", "income", 1, true, "5000", "")
	createAccount(t, h, businessID, "5.1.01", "Costo de Ventas", "cost", 1, true, "3000", "")
	createAccount(t, h, businessID, "6.1.01", "Gastos", "expense", 1, true, "1200", "")

	rec := doJSON(t, h, http.MethodGet, "/v1/reports/balance-sheet?business_id="+businessID.String(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("balance sheet: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var bs struct {
		TotalAssets string `json:"total_assets"`
		Balanced    bool   `json:"balanced"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &bs); err != nil {
		t.Fatal(err)
	}
	if bs.TotalAssets != "1000" || !bs.Balanced {
		t.Errorf("balance sheet = %+v, want total 1000 balanced", bs)
	}

	rec = doJSON(t, h, http.MethodGet, "/v1/reports/income-statement?business_id="+businessID.String()+"&from=2025-03-01&to=2025-03-31", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("income statement: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var is struct {
		GrossProfit string `json:"gross_profit"`
		NetProfit   string `json:"net_profit"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &is); err != nil {
		t.Fatal(err)
	}
	if is.GrossProfit != "2000" || is.NetProfit != "800" {
		t.Errorf("income statement = %+v, want gross 2000 net 800", is)
	}

	// Inverted window is a 422 with the range code.
	rec = doJSON(t, h, http.MethodGet, "/v1/reports/income-statement?business_id="+businessID.String()+"&from=2025-03-31&to=2025-03-01", nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("inverted range: expected 422, got %d", rec.Code)
	}
	var er errResp
	if err := json.Unmarshal(rec.Body.Bytes(), &er); err != nil {
		t.Fatal(err)
	}
	if er.Code != "invalid_range" {
		t.Errorf("error code = %q, want invalid_range", er.Code)
	}

	// Missing bounds are a 400.
	rec = doJSON(t, h, http.MethodGet, "/v1/reports/income-statement?business_id="+businessID.String(), nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing bounds: expected 400, got %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/v1/reports/totals?business_id="+businessID.String()+"&type=asset", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("totals: expected 200, got %d", rec.Code)
	}
	var tot struct {
		Total string `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &tot); err != nil {
		t.Fatal(err)
	}
	if tot.Total != "1000" {
		t.Errorf("asset total = %s, want 1000", tot.Total)
	}
}

func TestDrawerEndpoints(t *testing.T) {
	h, businessID := setup(t)

	rec := doJSON(t, h, http.MethodPost, "/v1/drawer/sessions", map[string]any{
		"business_id": businessID.String(), "cashier": "ana", "opening_cash": "100",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("open: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var sess struct {
		ID    string `json:"id"`
		State string `json:"state"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &sess); err != nil {
		t.Fatal(err)
	}
	if sess.State != "open" {
		t.Errorf("state = %s after open", sess.State)
	}

	// Second open for the same cashier conflicts.
	rec = doJSON(t, h, http.MethodPost, "/v1/drawer/sessions", map[string]any{
		"business_id": businessID.String(), "cashier": "ana", "opening_cash": "50",
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("second open: expected 409, got %d", rec.Code)
	}

	sales := []map[string]any{
		{"method": "cash", "amount": "50"},
		{"method": "card", "amount": "80"},
		{"method": "transfer", "amount": "120"},
	}
	for _, sale := range sales {
		sale["business_id"] = businessID.String()
		rec = doJSON(t, h, http.MethodPost, "/v1/drawer/sessions/"+sess.ID+"/sales", sale)
		if rec.Code != http.StatusOK {
			t.Fatalf("sale %v: expected 200, got %d: %s", sale, rec.Code, rec.Body.String())
		}
	}

	// Unknown session is a 404, not a validation error.
	rec = doJSON(t, h, http.MethodPost, "/v1/drawer/sessions/"+uuid.NewString()+"/sales", map[string]any{
		"business_id": businessID.String(), "method": "cash", "amount": "10",
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown session sale: expected 404, got %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/v1/drawer/sessions/"+sess.ID+"/close", map[string]any{
		"business_id": businessID.String(), "counted_cash": "120", "notes": "faltante",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("close: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var closed struct {
		ExpectedCash   string `json:"expected_cash"`
		Variance       string `json:"variance"`
		Classification string `json:"classification"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &closed); err != nil {
		t.Fatal(err)
	}
	if closed.ExpectedCash != "150" || closed.Variance != "-30" || closed.Classification != "shortage" {
		t.Errorf("close result = %+v, want expected 150 variance -30 shortage", closed)
	}

	// A second close conflicts and the frozen result stands.
	rec = doJSON(t, h, http.MethodPost, "/v1/drawer/sessions/"+sess.ID+"/close", map[string]any{
		"business_id": businessID.String(), "counted_cash": "500",
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("second close: expected 409, got %d", rec.Code)
	}
	rec = doJSON(t, h, http.MethodGet, "/v1/drawer/sessions/"+sess.ID+"?business_id="+businessID.String(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get session: expected 200, got %d", rec.Code)
	}
	var got struct {
		Variance *string `json:"variance"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Variance == nil || *got.Variance != "-30" {
		t.Errorf("variance after failed close = %v, want -30", got.Variance)
	}
}

func TestGetSessionTotalsOverflow(t *testing.T) {
	store := memory.New()
	businessID := uuid.New()
	store.SeedBusiness(businessID)
	h := New(store, testLogger(), Options{}).Handler()

	// Accumulators at the decimal coefficient ceiling cannot be summed;
	// the handler must surface that as a 500, not an empty total.
	huge, err := decimal.Parse("9999999999999999999")
	if err != nil {
		t.Fatal(err)
	}
	sess, err := store.CreateSession(context.Background(), ledger.CashSession{
		ID:         uuid.New(),
		BusinessID: businessID,
		Date:       time.Now(),
		Cashier:    "ana",
		CashSales:  huge,
		CardSales:  huge,
		State:      ledger.SessionOpen,
		OpenedAt:   time.Now(),
	})
	if err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, h, http.MethodGet, "/v1/drawer/sessions/"+sess.ID.String()+"?business_id="+businessID.String(), nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp errResp
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Code != "internal" {
		t.Errorf("error code = %q, want internal", resp.Code)
	}
}

func TestBankEndpoints(t *testing.T) {
	h, businessID := setup(t)

	rec := doJSON(t, h, http.MethodPost, "/v1/bank-accounts", map[string]any{
		"business_id": businessID.String(), "bank": "Banco Popular", "kind": "checking",
		"number": "784512", "currency": "DOP", "opening_balance": "1000",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create bank account: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var acc struct {
		ID      string `json:"id"`
		Balance string `json:"balance"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &acc); err != nil {
		t.Fatal(err)
	}
	if acc.Balance != "1000" {
		t.Errorf("balance = %s, want the opening balance", acc.Balance)
	}

	rec = doJSON(t, h, http.MethodPost, "/v1/bank-accounts/"+acc.ID+"/movements/import", map[string]any{
		"business_id": businessID.String(),
		"movements": []map[string]any{
			{"date": "2025-03-05", "description": "deposito", "amount": "500", "kind": "credit"},
			{"date": "2025-03-20", "description": "retiro", "amount": "200", "kind": "debit"},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("import: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var imported struct {
		Imported int `json:"imported"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &imported); err != nil {
		t.Fatal(err)
	}
	if imported.Imported != 2 {
		t.Errorf("imported = %d, want 2", imported.Imported)
	}

	rec = doJSON(t, h, http.MethodGet, "/v1/bank-accounts/"+acc.ID+"/movements?business_id="+businessID.String()+"&from=2025-03-01&to=2025-03-31", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("movements: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var movements struct {
		Movements []struct {
			Description  string `json:"description"`
			BalanceAfter string `json:"balance_after"`
		} `json:"movements"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &movements); err != nil {
		t.Fatal(err)
	}
	if len(movements.Movements) != 2 {
		t.Fatalf("listed %d movements", len(movements.Movements))
	}
	if movements.Movements[1].BalanceAfter != "1300" {
		t.Errorf("final balance_after = %s, want 1300", movements.Movements[1].BalanceAfter)
	}

	rec = doJSON(t, h, http.MethodPost, "/v1/bank-accounts/"+acc.ID+"/reconcile", map[string]any{
		"business_id": businessID.String(), "from": "2025-03-01", "to": "2025-03-31",
		"statement_balance": "1300",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("reconcile: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var recon struct {
		ReconciledCount int    `json:"reconciled_count"`
		PendingCount    int    `json:"pending_count"`
		Difference      string `json:"difference"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &recon); err != nil {
		t.Fatal(err)
	}
	if recon.Difference != "0" || recon.PendingCount != 2 {
		t.Errorf("reconcile = %+v, want difference 0 pending 2", recon)
	}

	// The clean run flipped the movements.
	rec = doJSON(t, h, http.MethodGet, "/v1/bank-accounts/"+acc.ID+"/movements?business_id="+businessID.String()+"&from=2025-03-01&to=2025-03-31", nil)
	var after struct {
		Movements []struct {
			Reconciled bool `json:"reconciled"`
		} `json:"movements"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &after); err != nil {
		t.Fatal(err)
	}
	for i, m := range after.Movements {
		if !m.Reconciled {
			t.Errorf("movement %d still pending after clean reconcile", i)
		}
	}

	// Unknown bank account is a 404.
	rec = doJSON(t, h, http.MethodGet, "/v1/bank-accounts/"+uuid.NewString()+"?business_id="+businessID.String(), nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown bank account: expected 404, got %d", rec.Code)
	}
}

func TestAuxEndpoints(t *testing.T) {
	h, _ := setup(t)
	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		rec := doJSON(t, h, http.MethodGet, path, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}
