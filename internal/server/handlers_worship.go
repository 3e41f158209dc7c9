package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/simonvc/fundledger/internal/ledger"
	"github.com/simonvc/fundledger/internal/store"
)

// churchParam reads church_id from the query string, defaulting to the
// actor's own church.
func churchParam(r *http.Request) (int64, error) {
	id, err := queryInt64(r, "church_id")
	if err != nil {
		return 0, err
	}
	return actorChurch(actorFrom(r.Context()), id), nil
}

func actorChurch(a ledger.Actor, id int64) int64 {
	if id == 0 && a.ChurchID != nil {
		return *a.ChurchID
	}
	return id
}

func (s *Server) createWorship(w http.ResponseWriter, r *http.Request) {
	var in ledger.WorshipInput
	if err := decode(r, &in); err != nil {
		writeError(w, err)
		return
	}
	rec, err := s.store.CreateWorshipRecord(r.Context(), actorFrom(r.Context()), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) listWorship(w http.ResponseWriter, r *http.Request) {
	filter := store.WorshipFilter{From: r.URL.Query().Get("from"), To: r.URL.Query().Get("to")}
	var err error
	if filter.ChurchID, err = churchParam(r); err != nil {
		writeError(w, err)
		return
	}
	if filter.Limit, filter.Offset, err = page(r); err != nil {
		writeError(w, err)
		return
	}
	list, err := s.store.ListWorshipRecords(r.Context(), actorFrom(r.Context()), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(list))
}

func (s *Server) getWorship(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.GetWorshipRecord(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) createDonor(w http.ResponseWriter, r *http.Request) {
	var d ledger.Donor
	if err := decode(r, &d); err != nil {
		writeError(w, err)
		return
	}
	a := actorFrom(r.Context())
	d.ChurchID = actorChurch(a, d.ChurchID)
	if err := s.store.CreateDonor(r.Context(), a, &d); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

type resolveDonorRequest struct {
	ChurchID   int64  `json:"church_id"`
	Name       string `json:"name"`
	NationalID string `json:"national_id,omitempty"`
}

func (s *Server) resolveDonor(w http.ResponseWriter, r *http.Request) {
	var req resolveDonorRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	a := actorFrom(r.Context())
	d, err := s.store.ResolveDonor(r.Context(), a, actorChurch(a, req.ChurchID), req.Name, req.NationalID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) listDonors(w http.ResponseWriter, r *http.Request) {
	churchID, err := churchParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	donors, err := s.store.ListDonors(r.Context(), actorFrom(r.Context()), churchID, r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(donors))
}

func (s *Server) getDonor(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	d, err := s.store.GetDonor(r.Context(), actorFrom(r.Context()), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) deactivateDonor(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.store.DeactivateDonor(r.Context(), actorFrom(r.Context()), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
