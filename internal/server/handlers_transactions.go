package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/simonvc/fundledger/internal/ledger"
	"github.com/simonvc/fundledger/internal/store"
)

func (s *Server) postTransaction(w http.ResponseWriter, r *http.Request) {
	var req ledger.PostRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	txn, err := s.store.Post(r.Context(), actorFrom(r.Context()), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, txn)
}

func (s *Server) transfer(w http.ResponseWriter, r *http.Request) {
	var req ledger.TransferRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	res, err := s.store.Transfer(r.Context(), actorFrom(r.Context()), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	if err := viewLedger(r); err != nil {
		writeError(w, err)
		return
	}
	q := r.URL.Query()
	filter := store.TxnFilter{
		EventID:  q.Get("event_id"),
		ReportID: q.Get("report_id"),
		From:     q.Get("from"),
		To:       q.Get("to"),
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

	txns, err := s.store.ListTransactions(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(txns))
}

func (s *Server) getTransaction(w http.ResponseWriter, r *http.Request) {
	if err := viewLedger(r); err != nil {
		writeError(w, err)
		return
	}
	txn, err := s.store.GetTransaction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, txn)
}

func (s *Server) activity(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.ActivityFilter{
		EventID: q.Get("event_id"),
		ActorID: q.Get("actor_id"),
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
	if filter.Limit, err = queryInt(r, "limit"); err != nil {
		writeError(w, err)
		return
	}
	if since := q.Get("since"); since != "" {
		if filter.Since, err = time.Parse(time.RFC3339, since); err != nil {
			writeError(w, ledger.Validation("since", "since must be an RFC3339 timestamp"))
			return
		}
	}

	entries, err := s.store.ActivityLog(r.Context(), actorFrom(r.Context()), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(entries))
}
