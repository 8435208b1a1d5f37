package httpapi

import (
	"net/http"

	"github.com/plazapos/contable/internal/ledger"
)

func (s *Server) postBankAccount(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}
	acc, ok := r.Context().Value(ctxKeyPostBankAccount).(ledger.BankAccount)
	if !ok {
		badRequest(w, "missing validated payload")
		return
	}
	created, err := s.bankSvc.CreateAccount(r.Context(), acc)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, toBankAccountResponse(created))
}

func (s *Server) getBankAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	businessID, err := queryBusinessID(r)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	acc, err := s.bankSvc.GetAccount(r.Context(), businessID, id)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toBankAccountResponse(acc))
}

// listMovements streams the movements inside [from, to] in statement
// order. Absent bounds widen the window: from defaults to the beginning,
// to defaults to today.
func (s *Server) listMovements(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	businessID, err := queryBusinessID(r)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	from, err := queryDate(r, "from", zeroTime)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	to, err := queryDate(r, "to", s.now())
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	seq, err := s.bankSvc.ListMovements(r.Context(), businessID, id, from, to)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	out := make([]movementResponse, 0)
	for m := range seq {
		out = append(out, toMovementResponse(m))
	}
	toJSON(w, http.StatusOK, map[string]any{"movements": out})
}

// importMovements appends a statement batch to the account, extending the
// running balance chain.
func (s *Server) importMovements(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}
	in, ok := r.Context().Value(ctxKeyImportMovements).(importMovementsInput)
	if !ok {
		badRequest(w, "missing validated payload")
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	n, err := s.bankSvc.ImportMovements(r.Context(), in.BusinessID, id, in.Rows)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, importMovementsResponse{Imported: n})
}

// reconcile compares the recorded balance at the window end against the
// statement balance. Pending movements are marked reconciled only when
// the difference is zero.
func (s *Server) reconcile(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}
	in, ok := r.Context().Value(ctxKeyReconcile).(reconcileInput)
	if !ok {
		badRequest(w, "missing validated payload")
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	res, err := s.bankSvc.Reconcile(r.Context(), in.BusinessID, id, in.From, in.To, in.StatementBalance)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, reconcileResponse{
		ReconciledCount: res.ReconciledCount,
		PendingCount:    res.PendingCount,
		Difference:      res.Difference.String(),
	})
}
