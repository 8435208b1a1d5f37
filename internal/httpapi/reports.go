package httpapi

import (
	"net/http"

	"github.com/plazapos/contable/internal/ledger"
	"github.com/plazapos/contable/internal/service/reports"
)

func toSectionResponse(sec reports.Section) sectionResponse {
	rows := make([]sectionRowResponse, 0, len(sec.Rows))
	for _, row := range sec.Rows {
		rows = append(rows, sectionRowResponse{Code: row.Code, Name: row.Name, Amount: row.Amount.String()})
	}
	return sectionResponse{Name: sec.Name, Rows: rows, Total: sec.Total.String()}
}

// getBalanceSheet builds the statement of financial position. as_of
// defaults to today.
func (s *Server) getBalanceSheet(w http.ResponseWriter, r *http.Request) {
	businessID, err := queryBusinessID(r)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	asOf, err := queryDate(r, "as_of", s.now())
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	bs, err := s.reportSvc.BalanceSheet(r.Context(), businessID, asOf)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, balanceSheetResponse{
		AsOf:                   bs.AsOf.Format(dateLayout),
		Assets:                 toSectionResponse(bs.Assets),
		Liabilities:            toSectionResponse(bs.Liabilities),
		Equity:                 toSectionResponse(bs.Equity),
		TotalAssets:            bs.TotalAssets.String(),
		TotalLiabilitiesEquity: bs.TotalLiabilitiesEquity.String(),
		Balanced:               bs.Balanced,
	})
}

// getIncomeStatement builds the result of operations over [from, to].
// Both bounds are required.
func (s *Server) getIncomeStatement(w http.ResponseWriter, r *http.Request) {
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
	to, err := queryDate(r, "to", zeroTime)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	if from.IsZero() || to.IsZero() {
		badRequest(w, "from and to are required")
		return
	}
	is, err := s.reportSvc.IncomeStatement(r.Context(), businessID, from, to)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, incomeStatementResponse{
		From:        is.From.Format(dateLayout),
		To:          is.To.Format(dateLayout),
		Income:      toSectionResponse(is.Income),
		Costs:       toSectionResponse(is.Costs),
		Expenses:    toSectionResponse(is.Expenses),
		GrossProfit: is.GrossProfit.String(),
		NetProfit:   is.NetProfit.String(),
	})
}

// getTotalByType returns the aggregate balance of one account type, a
// cheap dashboard primitive next to the full statements.
func (s *Server) getTotalByType(w http.ResponseWriter, r *http.Request) {
	businessID, err := queryBusinessID(r)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	t := ledger.AccountType(r.URL.Query().Get("type"))
	if !t.Valid() {
		badRequest(w, "unknown account type")
		return
	}
	asOf, err := queryDate(r, "as_of", s.now())
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	total, err := s.reportSvc.TotalByType(r.Context(), businessID, t, asOf)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, totalByTypeResponse{Type: t, Total: total.String()})
}
