package httpapi

import (
	"net/http"
)

// openSession starts a cash drawer session. A cashier with an open session
// gets a 409.
func (s *Server) openSession(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}
	in, ok := r.Context().Value(ctxKeyOpenSession).(openSessionInput)
	if !ok {
		badRequest(w, "missing validated payload")
		return
	}
	sess, err := s.drawerSvc.Open(r.Context(), in.BusinessID, in.Cashier, in.Date, in.OpeningCash)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	resp, err := toSessionResponse(sess)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, resp)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
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
	sess, err := s.drawerSvc.Get(r.Context(), businessID, id)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	resp, err := toSessionResponse(sess)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, resp)
}

// recordSale accumulates a completed sale into the open session. Closed
// sessions get a 409, unknown ones a 404.
func (s *Server) recordSale(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}
	in, ok := r.Context().Value(ctxKeyRecordSale).(recordSaleInput)
	if !ok {
		badRequest(w, "missing validated payload")
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	sess, err := s.drawerSvc.RecordSale(r.Context(), in.BusinessID, id, in.Method, in.Amount)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	resp, err := toSessionResponse(sess)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, resp)
}

// closeSession settles the drawer against the physical count and freezes
// the variance. A second close gets a 409 and leaves the first result
// intact.
func (s *Server) closeSession(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}
	in, ok := r.Context().Value(ctxKeyCloseSession).(closeSessionInput)
	if !ok {
		badRequest(w, "missing validated payload")
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	res, err := s.drawerSvc.Close(r.Context(), in.BusinessID, id, in.CountedCash, in.Notes)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	sessResp, err := toSessionResponse(res.Session)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, closeResultResponse{
		Session:        sessResp,
		ExpectedCash:   res.ExpectedCash.String(),
		CountedCash:    res.CountedCash.String(),
		Variance:       res.Variance.String(),
		Classification: res.Classification,
	})
}
