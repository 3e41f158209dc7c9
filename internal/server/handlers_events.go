package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/simonvc/fundledger/internal/ledger"
	"github.com/simonvc/fundledger/internal/store"
)

type commentRequest struct {
	Comment string `json:"comment,omitempty"`
}

type approveResponse struct {
	Event       *ledger.FundEvent   `json:"event"`
	Transaction *ledger.Transaction `json:"transaction"`
}

func (s *Server) createEvent(w http.ResponseWriter, r *http.Request) {
	var in ledger.EventInput
	if err := decode(r, &in); err != nil {
		writeError(w, err)
		return
	}
	e, err := s.store.CreateEvent(r.Context(), actorFrom(r.Context()), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	filter := store.EventFilter{Status: ledger.EventStatus(r.URL.Query().Get("status"))}
	if filter.Status != "" && !ledger.ValidEventStatus(filter.Status) {
		writeError(w, ledger.Validation("status", "unknown status %q", filter.Status))
		return
	}
	var err error
	if filter.FundID, err = queryInt64(r, "fund_id"); err != nil {
		writeError(w, err)
		return
	}
	if filter.ChurchID, err = queryInt64(r, "church_id"); err != nil {
		writeError(w, err)
		return
	}
	if filter.Limit, filter.Offset, err = page(r); err != nil {
		writeError(w, err)
		return
	}

	list, err := s.store.ListEvents(r.Context(), actorFrom(r.Context()), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(list))
}

func (s *Server) getEvent(w http.ResponseWriter, r *http.Request) {
	d, err := s.store.GetEventDetail(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) updateEvent(w http.ResponseWriter, r *http.Request) {
	var u ledger.EventUpdate
	if err := decode(r, &u); err != nil {
		writeError(w, err)
		return
	}
	e, err := s.store.UpdateEvent(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"), u)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) addBudgetItem(w http.ResponseWriter, r *http.Request) {
	var in ledger.BudgetItemInput
	if err := decode(r, &in); err != nil {
		writeError(w, err)
		return
	}
	item, err := s.store.AddBudgetItem(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) updateBudgetItem(w http.ResponseWriter, r *http.Request) {
	var in ledger.BudgetItemInput
	if err := decode(r, &in); err != nil {
		writeError(w, err)
		return
	}
	item, err := s.store.UpdateBudgetItem(r.Context(), actorFrom(r.Context()),
		chi.URLParam(r, "id"), chi.URLParam(r, "itemID"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) deleteBudgetItem(w http.ResponseWriter, r *http.Request) {
	err := s.store.DeleteBudgetItem(r.Context(), actorFrom(r.Context()),
		chi.URLParam(r, "id"), chi.URLParam(r, "itemID"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) addActual(w http.ResponseWriter, r *http.Request) {
	var in ledger.ActualInput
	if err := decode(r, &in); err != nil {
		writeError(w, err)
		return
	}
	a, err := s.store.AddActual(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) updateActual(w http.ResponseWriter, r *http.Request) {
	var in ledger.ActualInput
	if err := decode(r, &in); err != nil {
		writeError(w, err)
		return
	}
	a, err := s.store.UpdateActual(r.Context(), actorFrom(r.Context()),
		chi.URLParam(r, "id"), chi.URLParam(r, "actualID"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) deleteActual(w http.ResponseWriter, r *http.Request) {
	err := s.store.DeleteActual(r.Context(), actorFrom(r.Context()),
		chi.URLParam(r, "id"), chi.URLParam(r, "actualID"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) submitEvent(w http.ResponseWriter, r *http.Request) {
	e, err := s.store.SubmitEvent(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) approveEvent(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	e, txn, err := s.store.ApproveEvent(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"), req.Comment)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, approveResponse{Event: e, Transaction: txn})
}

func (s *Server) rejectEvent(w http.ResponseWriter, r *http.Request) {
	var in ledger.RejectInput
	if err := decode(r, &in); err != nil {
		writeError(w, err)
		return
	}
	e, err := s.store.RejectEvent(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) cancelEvent(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	e, err := s.store.CancelEvent(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"), req.Comment)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}
