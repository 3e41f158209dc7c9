package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/simonvc/fundledger/internal/ledger"
	"github.com/simonvc/fundledger/internal/store"
)

func (s *Server) submitReport(w http.ResponseWriter, r *http.Request) {
	var req ledger.ReportRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	rep, err := s.store.SubmitReport(r.Context(), actorFrom(r.Context()), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rep)
}

func (s *Server) listReports(w http.ResponseWriter, r *http.Request) {
	var filter store.ReportFilter
	var err error
	if filter.ChurchID, err = churchParam(r); err != nil {
		writeError(w, err)
		return
	}
	if filter.Year, err = queryInt(r, "year"); err != nil {
		writeError(w, err)
		return
	}
	reports, err := s.store.ListReports(r.Context(), actorFrom(r.Context()), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(reports))
}

func (s *Server) getReport(w http.ResponseWriter, r *http.Request) {
	rep, err := s.store.GetReport(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}
