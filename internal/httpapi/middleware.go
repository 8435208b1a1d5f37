package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/plazapos/contable/internal/ledger"
)

type ctxKey string

const ctxKeyPostAccount ctxKey = "validatedPostAccount"
const ctxKeyPatchAccount ctxKey = "validatedPatchAccount"
const ctxKeyOpenSession ctxKey = "validatedOpenSession"
const ctxKeyRecordSale ctxKey = "validatedRecordSale"
const ctxKeyCloseSession ctxKey = "validatedCloseSession"
const ctxKeyPostBankAccount ctxKey = "validatedPostBankAccount"
const ctxKeyImportMovements ctxKey = "validatedImportMovements"
const ctxKeyReconcile ctxKey = "validatedReconcile"

var validate = validator.New(validator.WithRequiredStructEnabled())

// decodeValid decodes the request body into dst and runs struct-tag
// validation. A false return means the response was already written.
func decodeValid(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return false
	}
	if err := validate.Struct(dst); err != nil {
		badRequest(w, err.Error())
		return false
	}
	return true
}

// validatePostAccount parses the POST /v1/accounts body and stores the
// domain account in the request context for the handler to use.
func (s *Server) validatePostAccount() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req postAccountRequest
			if !decodeValid(w, r, &req) {
				return
			}
			acc, err := req.toDomain()
			if err != nil {
				writeDomainErr(w, err)
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyPostAccount, acc)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (s *Server) validatePatchAccount() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req patchAccountRequest
			if !decodeValid(w, r, &req) {
				return
			}
			if req.Active == nil && req.Parent == nil {
				badRequest(w, "nothing to update")
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyPatchAccount, req)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (s *Server) validateOpenSession() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req openSessionRequest
			if !decodeValid(w, r, &req) {
				return
			}
			date, err := parseDate("date", req.Date)
			if err != nil {
				writeDomainErr(w, err)
				return
			}
			opening, err := parseAmount("opening_cash", req.OpeningCash)
			if err != nil {
				writeDomainErr(w, err)
				return
			}
			in := openSessionInput{
				BusinessID:  req.BusinessID,
				Cashier:     req.Cashier,
				Date:        date,
				OpeningCash: opening,
			}
			ctx := context.WithValue(r.Context(), ctxKeyOpenSession, in)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (s *Server) validateRecordSale() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req recordSaleRequest
			if !decodeValid(w, r, &req) {
				return
			}
			if !req.Method.Valid() {
				badRequest(w, "unknown payment method")
				return
			}
			amount, err := parseAmount("amount", req.Amount)
			if err != nil {
				writeDomainErr(w, err)
				return
			}
			in := recordSaleInput{BusinessID: req.BusinessID, Method: req.Method, Amount: amount}
			ctx := context.WithValue(r.Context(), ctxKeyRecordSale, in)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (s *Server) validateCloseSession() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req closeSessionRequest
			if !decodeValid(w, r, &req) {
				return
			}
			counted, err := parseAmount("counted_cash", req.CountedCash)
			if err != nil {
				writeDomainErr(w, err)
				return
			}
			in := closeSessionInput{BusinessID: req.BusinessID, CountedCash: counted, Notes: req.Notes}
			ctx := context.WithValue(r.Context(), ctxKeyCloseSession, in)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (s *Server) validatePostBankAccount() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req postBankAccountRequest
			if !decodeValid(w, r, &req) {
				return
			}
			if req.Kind != ledger.BankAccountChecking && req.Kind != ledger.BankAccountSavings {
				badRequest(w, "unknown bank account kind")
				return
			}
			acc, err := req.toDomain()
			if err != nil {
				writeDomainErr(w, err)
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyPostBankAccount, acc)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (s *Server) validateImportMovements() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req importMovementsRequest
			if !decodeValid(w, r, &req) {
				return
			}
			in, err := req.toInput()
			if err != nil {
				writeDomainErr(w, err)
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyImportMovements, in)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (s *Server) validateReconcile() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req reconcileRequest
			if !decodeValid(w, r, &req) {
				return
			}
			in, err := req.toInput()
			if err != nil {
				writeDomainErr(w, err)
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyReconcile, in)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
