package httpapi

import (
	"net/http"

	"github.com/plazapos/contable/internal/ledger"
)

// postAccount creates an account under an existing parent. The validated
// domain account is taken from the request context.
func (s *Server) postAccount(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}
	acc, ok := r.Context().Value(ctxKeyPostAccount).(ledger.Account)
	if !ok {
		badRequest(w, "missing validated payload")
		return
	}
	created, err := s.treeSvc.Create(r.Context(), acc)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, toAccountResponse(created))
}

// listAccounts returns the chart flattened in pre-order: each account
// before its children, siblings in code order.
func (s *Server) listAccounts(w http.ResponseWriter, r *http.Request) {
	businessID, err := queryBusinessID(r)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	seq, err := s.treeSvc.Flatten(r.Context(), businessID)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	out := make([]accountResponse, 0)
	for acc := range seq {
		out = append(out, toAccountResponse(acc))
	}
	toJSON(w, http.StatusOK, map[string]any{"accounts": out})
}

func (s *Server) getAccount(w http.ResponseWriter, r *http.Request) {
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
	acc, err := s.treeSvc.Get(r.Context(), businessID, id)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toAccountResponse(acc))
}

// getSubtreeTotal sums the detail balances under the account, the account
// included.
func (s *Server) getSubtreeTotal(w http.ResponseWriter, r *http.Request) {
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
	total, err := s.treeSvc.SubtreeTotal(r.Context(), businessID, id)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, subtreeTotalResponse{AccountID: id, Total: total.String()})
}

// patchAccount applies partial updates: reparenting first, then the
// active flag, so a single request can move and deactivate in one go.
func (s *Server) patchAccount(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}
	req, ok := r.Context().Value(ctxKeyPatchAccount).(patchAccountRequest)
	if !ok {
		badRequest(w, "missing validated payload")
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeDomainErr(w, err)
		return
	}

	var acc ledger.Account
	if req.Parent != nil {
		acc, err = s.treeSvc.Reparent(r.Context(), req.BusinessID, id, req.Parent.ParentID)
		if err != nil {
			writeDomainErr(w, err)
			return
		}
	}
	if req.Active != nil {
		acc, err = s.treeSvc.SetActive(r.Context(), req.BusinessID, id, *req.Active)
		if err != nil {
			writeDomainErr(w, err)
			return
		}
	}
	toJSON(w, http.StatusOK, toAccountResponse(acc))
}
