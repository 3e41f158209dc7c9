package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simonvc/fundledger/internal/ledger"
	"github.com/simonvc/fundledger/internal/store"
)

var (
	admin     = ledger.Actor{ID: "admin-1", Role: ledger.RoleAdmin}
	treasurer = ledger.Actor{ID: "natl-1", Role: ledger.RoleNationalTreasurer}
	director  = ledger.Actor{ID: "dir-1", Role: ledger.RoleFundDirector}
)

func newTestServer(t *testing.T, opts ...Option) http.Handler {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return New(st, ":0", opts...).Handler()
}

func do(t *testing.T, h http.Handler, method, path string, actor *ledger.Actor, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if actor != nil {
		req.Header.Set(HeaderActorID, actor.ID)
		req.Header.Set(HeaderActorRole, string(actor.Role))
		if actor.ChurchID != nil {
			req.Header.Set(HeaderActorChurch, strconv.FormatInt(*actor.ChurchID, 10))
		}
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func expect(t *testing.T, rec *httptest.ResponseRecorder, status int, out any) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d; body %s", rec.Code, status, rec.Body.String())
	}
	if out != nil {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
}

func createFund(t *testing.T, h http.Handler, name, opening string) ledger.Fund {
	t.Helper()
	var f ledger.Fund
	expect(t, do(t, h, "POST", "/api/v1/funds", &admin, map[string]any{"name": name, "type": "national"}), http.StatusCreated, &f)
	if opening != "" {
		rec := do(t, h, "POST", "/api/v1/transactions", &treasurer, map[string]any{
			"fund_id": f.ID, "amount_in": opening, "concept": "Opening balance",
		})
		expect(t, rec, http.StatusCreated, nil)
	}
	return f
}

func fundBalance(t *testing.T, h http.Handler, id int64) decimal.Decimal {
	t.Helper()
	var b ledger.FundBalance
	expect(t, do(t, h, "GET", fmt.Sprintf("/api/v1/funds/%d/balance", id), &director, nil), http.StatusOK, &b)
	return b.Balance
}

func TestHealthz(t *testing.T) {
	h := newTestServer(t)
	var body map[string]string
	expect(t, do(t, h, "GET", "/healthz", nil, nil), http.StatusOK, &body)
	if body["status"] != "ok" {
		t.Errorf("healthz = %v", body)
	}
}

func TestMapError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{ledger.Validation("concept", "required"), http.StatusBadRequest},
		{&ledger.InsufficientFundsError{FundID: 1}, http.StatusUnprocessableEntity},
		{ledger.Forbidden("no"), http.StatusForbidden},
		{ledger.NotFound("fund", 9), http.StatusNotFound},
		{fmt.Errorf("approve: %w", ledger.Conflict("stale")), http.StatusConflict},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := mapError(tt.err); got != tt.want {
			t.Errorf("mapError(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestPostingErrorsOverHTTP(t *testing.T) {
	h := newTestServer(t)
	f := createFund(t, h, "Misiones", "100.00")

	var body errorResponse
	rec := do(t, h, "POST", "/api/v1/transactions", &treasurer, map[string]any{
		"fund_id": f.ID, "amount_out": "100.01", "concept": "Too much",
	})
	expect(t, rec, http.StatusUnprocessableEntity, &body)
	if body.Kind != ledger.KindInsufficientFunds {
		t.Errorf("kind = %q, want insufficient_funds", body.Kind)
	}

	rec = do(t, h, "POST", "/api/v1/transactions", &treasurer, map[string]any{
		"fund_id": f.ID, "amount_in": "5", "concept": " ",
	})
	expect(t, rec, http.StatusBadRequest, &body)
	if body.Kind != ledger.KindValidation || body.Field != "concept" {
		t.Errorf("error body = %+v, want validation on concept", body)
	}

	rec = do(t, h, "POST", "/api/v1/transactions", &treasurer, map[string]any{
		"fund_id": f.ID, "amount_in": "5", "concept": "x", "event_id": "forged",
	})
	expect(t, rec, http.StatusBadRequest, nil)

	expect(t, do(t, h, "POST", "/api/v1/transactions", &director, map[string]any{
		"fund_id": f.ID, "amount_in": "5", "concept": "x",
	}), http.StatusForbidden, nil)

	expect(t, do(t, h, "GET", "/api/v1/funds/999", &director, nil), http.StatusNotFound, nil)
	expect(t, do(t, h, "GET", "/api/v1/funds", nil, nil), http.StatusForbidden, nil)

	if got := fundBalance(t, h, f.ID); !got.Equal(decimal.RequireFromString("100")) {
		t.Errorf("balance = %s, want 100", got)
	}
}

func TestEventApprovalOverHTTP(t *testing.T) {
	h := newTestServer(t)
	f := createFund(t, h, "Jovenes", "1000")

	var e ledger.FundEvent
	expect(t, do(t, h, "POST", "/api/v1/events", &director, map[string]any{
		"fund_id":      f.ID,
		"name":         "Youth camp",
		"event_date":   "2024-06-01",
		"budget_items": []map[string]any{{"category": "food", "projected_amount": "500"}},
	}), http.StatusCreated, &e)
	if e.Status != ledger.StatusDraft {
		t.Fatalf("status = %s, want draft", e.Status)
	}

	base := "/api/v1/events/" + e.ID
	expect(t, do(t, h, "POST", base+"/actuals", &director, map[string]any{
		"line_type": "expense", "description": "Groceries", "amount": "300",
	}), http.StatusCreated, nil)
	expect(t, do(t, h, "POST", base+"/actuals", &director, map[string]any{
		"line_type": "income", "description": "Registrations", "amount": 120.5,
	}), http.StatusCreated, nil)
	expect(t, do(t, h, "POST", base+"/submit", &director, nil), http.StatusOK, nil)

	// Lines are frozen once submitted.
	expect(t, do(t, h, "POST", base+"/actuals", &director, map[string]any{
		"line_type": "expense", "description": "Late", "amount": "1",
	}), http.StatusConflict, nil)

	selfApprover := ledger.Actor{ID: director.ID, Role: ledger.RoleNationalTreasurer}
	expect(t, do(t, h, "POST", base+"/approve", &selfApprover, nil), http.StatusForbidden, nil)

	var res approveResponse
	expect(t, do(t, h, "POST", base+"/approve", &treasurer, commentRequest{Comment: "ok"}), http.StatusOK, &res)
	if res.Event.Status != ledger.StatusApproved || res.Transaction == nil {
		t.Fatalf("approve response = %+v", res)
	}
	if !res.Transaction.AmountOut.Equal(decimal.RequireFromString("179.5")) {
		t.Errorf("posting out = %s, want 179.5", res.Transaction.AmountOut)
	}
	if got := fundBalance(t, h, f.ID); !got.Equal(decimal.RequireFromString("820.5")) {
		t.Errorf("balance = %s, want 820.5", got)
	}

	expect(t, do(t, h, "POST", base+"/approve", &admin, nil), http.StatusConflict, nil)

	var detail ledger.EventDetail
	expect(t, do(t, h, "GET", base, &director, nil), http.StatusOK, &detail)
	if len(detail.Audit) != 2 || detail.Transaction == nil {
		t.Errorf("detail audit = %d entries, transaction = %v", len(detail.Audit), detail.Transaction)
	}

	var txns []ledger.Transaction
	expect(t, do(t, h, "GET", "/api/v1/transactions?event_id="+e.ID, &director, nil), http.StatusOK, &txns)
	if len(txns) != 1 {
		t.Errorf("transactions for event = %d, want 1", len(txns))
	}
}

func TestTransferOverHTTP(t *testing.T) {
	h := newTestServer(t)
	src := createFund(t, h, "Fondo Nacional", "50")
	dst := createFund(t, h, "Misiones", "")

	var res ledger.TransferResult
	expect(t, do(t, h, "POST", "/api/v1/transfers", &treasurer, map[string]any{
		"source_fund_id": src.ID, "destination_fund_id": dst.ID, "amount": "50", "description": "Quarterly",
	}), http.StatusCreated, &res)
	if res.Debit == nil || res.Credit == nil || !res.Debit.BalanceAfter.IsZero() {
		t.Errorf("transfer result = %+v", res)
	}
	expect(t, do(t, h, "POST", "/api/v1/transfers", &treasurer, map[string]any{
		"source_fund_id": src.ID, "destination_fund_id": dst.ID, "amount": "0.01", "description": "Again",
	}), http.StatusUnprocessableEntity, nil)

	var rec ledger.Reconciliation
	expect(t, do(t, h, "GET", fmt.Sprintf("/api/v1/funds/%d/reconcile", dst.ID), &director, nil), http.StatusOK, &rec)
	if !rec.Balanced || rec.Transactions != 1 {
		t.Errorf("reconciliation = %+v", rec)
	}
}

func TestWorshipAndReportsOverHTTP(t *testing.T) {
	h := newTestServer(t)
	var c ledger.Church
	expect(t, do(t, h, "POST", "/api/v1/churches", &admin, map[string]any{"name": "Iglesia Central"}), http.StatusCreated, &c)
	f := createFund(t, h, "Fondo Nacional", "")
	pastor := ledger.Actor{ID: "pastor-1", Role: ledger.RolePastor, ChurchID: &c.ID}

	var w ledger.WorshipRecord
	expect(t, do(t, h, "POST", "/api/v1/worship", &pastor, map[string]any{
		"church_id":          c.ID,
		"service_date":       "2024-03-03",
		"anonymous_offering": "25",
		"lines": []map[string]any{
			{"donor_name": "Maria Perez", "amounts": map[string]any{"tithe": "400"}},
		},
	}), http.StatusCreated, &w)
	if !w.GrandTotal.Equal(decimal.RequireFromString("425")) {
		t.Errorf("grand total = %s, want 425", w.GrandTotal)
	}

	var donors []ledger.Donor
	expect(t, do(t, h, "GET", "/api/v1/donors?q=maria", &pastor, nil), http.StatusOK, &donors)
	if len(donors) != 1 {
		t.Errorf("donors = %d, want 1", len(donors))
	}

	other := c.ID + 1
	outsider := ledger.Actor{ID: "pastor-2", Role: ledger.RolePastor, ChurchID: &other}
	expect(t, do(t, h, "GET", "/api/v1/worship/"+w.ID, &outsider, nil), http.StatusForbidden, nil)

	report := map[string]any{
		"church_id": c.ID, "month": 3, "year": 2024,
		"postings": map[string]any{"tithe": f.ID},
	}
	var rep ledger.MonthlyReport
	expect(t, do(t, h, "POST", "/api/v1/reports", &pastor, report), http.StatusCreated, &rep)
	expect(t, do(t, h, "POST", "/api/v1/reports", &pastor, report), http.StatusConflict, nil)

	var reports []ledger.MonthlyReport
	expect(t, do(t, h, "GET", "/api/v1/reports?year=2024", &pastor, nil), http.StatusOK, &reports)
	if len(reports) != 1 || reports[0].ID != rep.ID {
		t.Errorf("reports = %+v", reports)
	}
	if got := fundBalance(t, h, f.ID); !got.Equal(decimal.RequireFromString("400")) {
		t.Errorf("national fund = %s, want 400", got)
	}
}

func TestJWTActor(t *testing.T) {
	const secret = "test-secret"
	h := newTestServer(t, WithJWT(secret, "fundledger"))

	send := func(auth string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/api/v1/funds", bytes.NewBufferString(`{"name":"Damas"}`))
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		// Gateway headers are ignored once tokens are configured.
		req.Header.Set(HeaderActorID, admin.ID)
		req.Header.Set(HeaderActorRole, string(admin.Role))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	if rec := send(""); rec.Code != http.StatusForbidden {
		t.Errorf("no token: status = %d, want 403", rec.Code)
	}
	if rec := send("Bearer not-a-token"); rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token: status = %d, want 401", rec.Code)
	}

	forged, err := IssueToken([]byte("other-secret"), "fundledger", admin, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if rec := send("Bearer " + forged); rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong secret: status = %d, want 401", rec.Code)
	}

	expired, _ := IssueToken([]byte(secret), "fundledger", admin, -time.Minute)
	if rec := send("Bearer " + expired); rec.Code != http.StatusUnauthorized {
		t.Errorf("expired token: status = %d, want 401", rec.Code)
	}

	token, _ := IssueToken([]byte(secret), "fundledger", admin, time.Hour)
	if rec := send("Bearer " + token); rec.Code != http.StatusCreated {
		t.Errorf("valid token: status = %d, want 201; body %s", rec.Code, rec.Body.String())
	}
}

func TestParseTokenRoundTrip(t *testing.T) {
	church := int64(4)
	in := ledger.Actor{ID: "sec-9", Role: ledger.RoleSecretary, ChurchID: &church}
	token, err := IssueToken([]byte("k"), "iss", in, time.Minute)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	out, err := ParseToken([]byte("k"), "iss", token)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if out.ID != in.ID || out.Role != in.Role || out.ChurchID == nil || *out.ChurchID != 4 {
		t.Errorf("ParseToken() = %+v, want %+v", out, in)
	}
	if _, err := ParseToken([]byte("k"), "someone-else", token); err == nil {
		t.Error("ParseToken() accepted a token from another issuer")
	}
}
