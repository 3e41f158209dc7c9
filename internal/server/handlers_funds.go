package server

import (
	"net/http"

	"github.com/simonvc/fundledger/internal/ledger"
	"github.com/simonvc/fundledger/internal/store"
)

// viewLedger guards the read-only fund and transaction queries, which
// every known role may run.
func viewLedger(r *http.Request) error {
	return ledger.Authorize(actorFrom(r.Context()), ledger.ActionViewLedger, ledger.Resource{})
}

type createFundRequest struct {
	Name        string          `json:"name"`
	Type        ledger.FundType `json:"type,omitempty"`
	Description string          `json:"description,omitempty"`
}

func (s *Server) createFund(w http.ResponseWriter, r *http.Request) {
	var req createFundRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	f := &ledger.Fund{Name: req.Name, Type: req.Type, Description: req.Description}
	if err := s.store.CreateFund(r.Context(), actorFrom(r.Context()), f); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

func (s *Server) listFunds(w http.ResponseWriter, r *http.Request) {
	if err := viewLedger(r); err != nil {
		writeError(w, err)
		return
	}
	limit, offset, err := page(r)
	if err != nil {
		writeError(w, err)
		return
	}
	filter := store.FundFilter{
		Type:       ledger.FundType(r.URL.Query().Get("type")),
		ActiveOnly: r.URL.Query().Get("active") == "true",
		Limit:      limit,
		Offset:     offset,
	}
	funds, err := s.store.ListFunds(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(funds))
}

func (s *Server) seedFunds(w http.ResponseWriter, r *http.Request) {
	created, err := s.store.SeedDefaultFunds(r.Context(), actorFrom(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(created))
}

func (s *Server) getFund(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err == nil {
		err = viewLedger(r)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	f, err := s.store.GetFund(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) getFundBalance(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err == nil {
		err = viewLedger(r)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	b, err := s.store.FundBalance(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) reconcileFund(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err == nil {
		err = viewLedger(r)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	rec, err := s.store.ReconcileFund(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) deactivateFund(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.store.DeactivateFund(r.Context(), actorFrom(r.Context()), id); err != nil {
		writeError(w, err)
		return
	}
	f, err := s.store.GetFund(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) createChurch(w http.ResponseWriter, r *http.Request) {
	var c ledger.Church
	if err := decode(r, &c); err != nil {
		writeError(w, err)
		return
	}
	if err := s.store.CreateChurch(r.Context(), actorFrom(r.Context()), &c); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) listChurches(w http.ResponseWriter, r *http.Request) {
	if err := viewLedger(r); err != nil {
		writeError(w, err)
		return
	}
	churches, err := s.store.ListChurches(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(churches))
}

func (s *Server) getChurch(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err == nil {
		err = viewLedger(r)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	c, err := s.store.GetChurch(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) getChart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ledger.DefaultFunds)
}
