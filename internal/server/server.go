package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/simonvc/fundledger/internal/store"
)

type Server struct {
	store     *store.Store
	router    chi.Router
	addr      string
	log       *slog.Logger
	jwtSecret []byte
	jwtIssuer string
}

type Option func(*Server)

// WithJWT switches actor resolution from gateway headers to HS256
// bearer tokens.
func WithJWT(secret, issuer string) Option {
	return func(s *Server) {
		s.jwtSecret = []byte(secret)
		s.jwtIssuer = issuer
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.log = l }
}

func New(st *store.Store, addr string, opts ...Option) *Server {
	r := chi.NewRouter()
	s := &Server{store: st, router: r, addr: addr, log: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLog)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.healthz)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.actorContext)

		// Funds
		r.Post("/funds", s.createFund)
		r.Get("/funds", s.listFunds)
		r.Post("/funds/seed", s.seedFunds)
		r.Get("/funds/{id}", s.getFund)
		r.Get("/funds/{id}/balance", s.getFundBalance)
		r.Get("/funds/{id}/reconcile", s.reconcileFund)
		r.Post("/funds/{id}/deactivate", s.deactivateFund)

		// Churches
		r.Post("/churches", s.createChurch)
		r.Get("/churches", s.listChurches)
		r.Get("/churches/{id}", s.getChurch)

		// Ledger
		r.Post("/transactions", s.postTransaction)
		r.Get("/transactions", s.listTransactions)
		r.Get("/transactions/{id}", s.getTransaction)
		r.Post("/transfers", s.transfer)

		// Events
		r.Post("/events", s.createEvent)
		r.Get("/events", s.listEvents)
		r.Get("/events/{id}", s.getEvent)
		r.Patch("/events/{id}", s.updateEvent)
		r.Post("/events/{id}/budget-items", s.addBudgetItem)
		r.Put("/events/{id}/budget-items/{itemID}", s.updateBudgetItem)
		r.Delete("/events/{id}/budget-items/{itemID}", s.deleteBudgetItem)
		r.Post("/events/{id}/actuals", s.addActual)
		r.Put("/events/{id}/actuals/{actualID}", s.updateActual)
		r.Delete("/events/{id}/actuals/{actualID}", s.deleteActual)
		r.Post("/events/{id}/submit", s.submitEvent)
		r.Post("/events/{id}/approve", s.approveEvent)
		r.Post("/events/{id}/reject", s.rejectEvent)
		r.Post("/events/{id}/cancel", s.cancelEvent)

		// Worship and donors
		r.Post("/worship", s.createWorship)
		r.Get("/worship", s.listWorship)
		r.Get("/worship/{id}", s.getWorship)
		r.Post("/donors", s.createDonor)
		r.Get("/donors", s.listDonors)
		r.Post("/donors/resolve", s.resolveDonor)
		r.Get("/donors/{id}", s.getDonor)
		r.Post("/donors/{id}/deactivate", s.deactivateDonor)

		// Monthly reports
		r.Post("/reports", s.submitReport)
		r.Get("/reports", s.listReports)
		r.Get("/reports/{id}", s.getReport)

		r.Get("/activity", s.activity)

		// National fund catalogue reference
		r.Get("/chart", s.getChart)
	})

	return s
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.log.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
				"remote", r.RemoteAddr,
			)
		}()
		next.ServeHTTP(ww, r)
	})
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListenAndServe serves until ctx is cancelled, then drains in-flight
// requests.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	s.log.Info("fundledger server listening", "addr", s.addr)

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) Handler() http.Handler {
	return s.router
}
