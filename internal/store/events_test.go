package store

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/simonvc/fundledger/internal/ledger"
)

var approver = ledger.Actor{ID: "natl-2", Role: ledger.RoleNationalTreasurer}

func newEvent(t *testing.T, st *Store, creator ledger.Actor, fundID int64) *ledger.FundEvent {
	t.Helper()
	e, err := st.CreateEvent(context.Background(), creator, ledger.EventInput{
		FundID:    fundID,
		Name:      "Youth conference",
		EventDate: "2024-05-18",
		BudgetItems: []ledger.BudgetItemInput{
			{Category: "venue", ProjectedAmount: amt("120000")},
		},
	})
	if err != nil {
		t.Fatalf("CreateEvent() error = %v", err)
	}
	return e
}

func eventStatus(t *testing.T, st *Store, id string) ledger.EventStatus {
	t.Helper()
	d, err := st.GetEventDetail(context.Background(), admin, id)
	if err != nil {
		t.Fatalf("GetEventDetail(%s) error = %v", id, err)
	}
	return d.Event.Status
}

// Scenarios: an approval that would overdraw fails and leaves the event
// submitted; after a revision the approval posts exactly once.
func TestEventApprovalLifecycle(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	b := mustFund(t, st, "Fund B", "150000")

	e := newEvent(t, st, director, b.ID)
	actual, err := st.AddActual(ctx, director, e.ID, ledger.ActualInput{
		LineType:    ledger.LineExpense,
		Description: "Venue rental",
		Amount:      amt("200000"),
	})
	if err != nil {
		t.Fatalf("AddActual() error = %v", err)
	}
	if _, err := st.SubmitEvent(ctx, director, e.ID); err != nil {
		t.Fatalf("SubmitEvent() error = %v", err)
	}

	_, _, err = st.ApproveEvent(ctx, approver, e.ID, "")
	if !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("ApproveEvent() error = %v, want insufficient funds", err)
	}
	assertBalance(t, st, b.ID, "150000")
	if got := eventStatus(t, st, e.ID); got != ledger.StatusSubmitted {
		t.Errorf("status after failed approval = %s, want submitted", got)
	}

	if _, err := st.RejectEvent(ctx, approver, e.ID, ledger.RejectInput{Reason: "over budget", Resubmit: true}); err != nil {
		t.Fatalf("RejectEvent() error = %v", err)
	}
	if got := eventStatus(t, st, e.ID); got != ledger.StatusPendingRevision {
		t.Errorf("status after reject = %s, want pending_revision", got)
	}

	if _, err := st.UpdateActual(ctx, director, e.ID, actual.ID, ledger.ActualInput{
		LineType:    ledger.LineExpense,
		Description: "Venue rental",
		Amount:      amt("100000"),
	}); err != nil {
		t.Fatalf("UpdateActual() error = %v", err)
	}
	if _, err := st.SubmitEvent(ctx, director, e.ID); err != nil {
		t.Fatalf("resubmit error = %v", err)
	}

	approved, txn, err := st.ApproveEvent(ctx, approver, e.ID, "ok")
	if err != nil {
		t.Fatalf("ApproveEvent() error = %v", err)
	}
	if approved.Status != ledger.StatusApproved || approved.ApprovedBy != approver.ID || approved.ApprovedAt == nil {
		t.Errorf("approved event = %+v", approved)
	}
	if !txn.AmountOut.Equal(amt("100000")) || !txn.AmountIn.IsZero() {
		t.Errorf("approval posting = in %s out %s, want out 100000", txn.AmountIn, txn.AmountOut)
	}
	assertBalance(t, st, b.ID, "50000")
	assertReconciled(t, st, b.ID)

	d, err := st.GetEventDetail(ctx, director, e.ID)
	if err != nil {
		t.Fatalf("GetEventDetail() error = %v", err)
	}
	if d.Transaction == nil || d.Transaction.ID != txn.ID {
		t.Errorf("detail transaction = %+v, want %s", d.Transaction, txn.ID)
	}
	want := []ledger.EventStatus{
		ledger.StatusSubmitted,
		ledger.StatusPendingRevision,
		ledger.StatusSubmitted,
		ledger.StatusApproved,
	}
	if len(d.Audit) != len(want) {
		t.Fatalf("audit entries = %d, want %d", len(d.Audit), len(want))
	}
	for i, entry := range d.Audit {
		if entry.NewStatus != want[i] {
			t.Errorf("audit[%d] = %s, want %s", i, entry.NewStatus, want[i])
		}
	}
	if d.Audit[1].Comment != "over budget" {
		t.Errorf("reject comment = %q", d.Audit[1].Comment)
	}
}

func TestApproveEventWithoutActualsPostsZero(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	f := mustFund(t, st, "General", "10")

	e := newEvent(t, st, director, f.ID)
	if _, err := st.SubmitEvent(ctx, director, e.ID); err != nil {
		t.Fatalf("SubmitEvent() error = %v", err)
	}
	_, txn, err := st.ApproveEvent(ctx, approver, e.ID, "")
	if err != nil {
		t.Fatalf("ApproveEvent() error = %v", err)
	}
	if !txn.AmountIn.IsZero() || !txn.AmountOut.IsZero() {
		t.Errorf("zero approval posting = in %s out %s", txn.AmountIn, txn.AmountOut)
	}
	if *txn.EventID != e.ID {
		t.Errorf("posting event id = %v, want %s", txn.EventID, e.ID)
	}
	assertBalance(t, st, f.ID, "10")

	audit, err := st.ListEventAudit(ctx, director, e.ID)
	if err != nil {
		t.Fatalf("ListEventAudit() error = %v", err)
	}
	if len(audit) != 2 {
		t.Errorf("audit entries = %d, want 2", len(audit))
	}
}

func TestApproveEventIncomePostsNet(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	f := mustFund(t, st, "General", "")

	e := newEvent(t, st, director, f.ID)
	for _, in := range []ledger.ActualInput{
		{LineType: ledger.LineIncome, Description: "Registrations", Amount: amt("800.50")},
		{LineType: ledger.LineExpense, Description: "Food", Amount: amt("300.25")},
	} {
		if _, err := st.AddActual(ctx, director, e.ID, in); err != nil {
			t.Fatalf("AddActual() error = %v", err)
		}
	}
	st.SubmitEvent(ctx, director, e.ID)

	_, txn, err := st.ApproveEvent(ctx, approver, e.ID, "")
	if err != nil {
		t.Fatalf("ApproveEvent() error = %v", err)
	}
	if !txn.AmountIn.Equal(amt("500.25")) {
		t.Errorf("net posting = %s, want 500.25", txn.AmountIn)
	}
	assertBalance(t, st, f.ID, "500.25")
}

func TestConcurrentApprovalPostsOnce(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	f := mustFund(t, st, "General", "1000")

	e := newEvent(t, st, director, f.ID)
	st.AddActual(ctx, director, e.ID, ledger.ActualInput{LineType: ledger.LineExpense, Description: "Chairs", Amount: amt("100")})
	st.SubmitEvent(ctx, director, e.ID)

	approvers := []ledger.Actor{approver, treasurer, admin, approver, treasurer}
	errs := make([]error, len(approvers))
	var wg sync.WaitGroup
	for i, a := range approvers {
		wg.Add(1)
		go func(i int, a ledger.Actor) {
			defer wg.Done()
			_, _, errs[i] = st.ApproveEvent(ctx, a, e.ID, "")
		}(i, a)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case !errors.Is(err, ledger.ErrConflict):
			t.Errorf("ApproveEvent() error = %v, want conflict", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("%d approvals succeeded, want 1", succeeded)
	}
	assertBalance(t, st, f.ID, "900")

	txns, _ := st.ListTransactions(ctx, TxnFilter{EventID: e.ID})
	if len(txns) != 1 {
		t.Errorf("event has %d postings, want 1", len(txns))
	}
}

func TestEventTransitionRules(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	f := mustFund(t, st, "General", "100")

	t.Run("self approval", func(t *testing.T) {
		e := newEvent(t, st, treasurer, f.ID)
		st.SubmitEvent(ctx, treasurer, e.ID)
		_, _, err := st.ApproveEvent(ctx, treasurer, e.ID, "")
		if !errors.Is(err, ledger.ErrForbidden) {
			t.Errorf("self approval error = %v, want forbidden", err)
		}
	})

	t.Run("approve draft", func(t *testing.T) {
		e := newEvent(t, st, director, f.ID)
		_, _, err := st.ApproveEvent(ctx, approver, e.ID, "")
		if !errors.Is(err, ledger.ErrConflict) {
			t.Errorf("approving a draft error = %v, want conflict", err)
		}
	})

	t.Run("submit without budget", func(t *testing.T) {
		e, err := st.CreateEvent(ctx, director, ledger.EventInput{FundID: f.ID, Name: "Empty", EventDate: "2024-06-01"})
		if err != nil {
			t.Fatalf("CreateEvent() error = %v", err)
		}
		_, err = st.SubmitEvent(ctx, director, e.ID)
		if ledger.FieldOf(err) != "budget_items" {
			t.Errorf("SubmitEvent() error = %v, want budget_items validation", err)
		}
	})

	t.Run("submit by someone else", func(t *testing.T) {
		e := newEvent(t, st, director, f.ID)
		_, err := st.SubmitEvent(ctx, admin, e.ID)
		if !errors.Is(err, ledger.ErrForbidden) {
			t.Errorf("SubmitEvent() by non-creator error = %v, want forbidden", err)
		}
	})

	t.Run("reject needs reason", func(t *testing.T) {
		e := newEvent(t, st, director, f.ID)
		st.SubmitEvent(ctx, director, e.ID)
		_, err := st.RejectEvent(ctx, approver, e.ID, ledger.RejectInput{Reason: "  "})
		if ledger.FieldOf(err) != "reason" {
			t.Errorf("RejectEvent() error = %v, want reason validation", err)
		}
	})

	t.Run("final reject is terminal", func(t *testing.T) {
		e := newEvent(t, st, director, f.ID)
		st.SubmitEvent(ctx, director, e.ID)
		if _, err := st.RejectEvent(ctx, approver, e.ID, ledger.RejectInput{Reason: "no"}); err != nil {
			t.Fatalf("RejectEvent() error = %v", err)
		}
		_, err := st.SubmitEvent(ctx, director, e.ID)
		if !errors.Is(err, ledger.ErrConflict) {
			t.Errorf("resubmitting a rejected event error = %v, want conflict", err)
		}
	})

	t.Run("cancel", func(t *testing.T) {
		e := newEvent(t, st, director, f.ID)
		if _, err := st.CancelEvent(ctx, admin, e.ID, "duplicate"); err != nil {
			t.Fatalf("CancelEvent() by admin error = %v", err)
		}
		_, err := st.AddActual(ctx, director, e.ID, ledger.ActualInput{LineType: ledger.LineIncome, Description: "x", Amount: amt("1")})
		if !errors.Is(err, ledger.ErrConflict) {
			t.Errorf("AddActual() on cancelled event error = %v, want conflict", err)
		}
	})

	t.Run("edit by another director", func(t *testing.T) {
		e := newEvent(t, st, director, f.ID)
		other := ledger.Actor{ID: "dir-2", Role: ledger.RoleFundDirector}
		_, err := st.AddBudgetItem(ctx, other, e.ID, ledger.BudgetItemInput{Category: "food", ProjectedAmount: amt("5")})
		if !errors.Is(err, ledger.ErrForbidden) {
			t.Errorf("AddBudgetItem() by other director error = %v, want forbidden", err)
		}
	})
}

func TestEventLinesFrozenAfterSubmit(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	f := mustFund(t, st, "General", "100")

	e := newEvent(t, st, director, f.ID)
	a, err := st.AddActual(ctx, director, e.ID, ledger.ActualInput{LineType: ledger.LineExpense, Description: "Sound", Amount: amt("10")})
	if err != nil {
		t.Fatalf("AddActual() error = %v", err)
	}
	st.SubmitEvent(ctx, director, e.ID)

	err = st.DeleteActual(ctx, director, e.ID, a.ID)
	if !errors.Is(err, ledger.ErrConflict) {
		t.Errorf("DeleteActual() after submit error = %v, want conflict", err)
	}
	if _, err := st.writer.ExecContext(ctx, `DELETE FROM fund_event_actuals WHERE id = ?`, a.ID); err == nil {
		t.Error("raw DELETE of a submitted actual succeeded, want trigger failure")
	}
	if _, err := st.writer.ExecContext(ctx, `DELETE FROM fund_event_audit`); err == nil {
		t.Error("DELETE on fund_event_audit succeeded, want trigger failure")
	}

	if _, err := st.writer.ExecContext(ctx, `UPDATE fund_event_budget_items SET projected_amount = 1 WHERE event_id = ?`, e.ID); err == nil {
		t.Error("raw UPDATE of a submitted budget item succeeded, want trigger failure")
	}
	if _, err := st.writer.ExecContext(ctx, `DELETE FROM fund_event_budget_items WHERE event_id = ?`, e.ID); err == nil {
		t.Error("raw DELETE of a submitted budget item succeeded, want trigger failure")
	}
	if _, err := st.writer.ExecContext(ctx,
		`INSERT INTO fund_event_budget_items (id, event_id, category, projected_amount, created_at, updated_at)
		VALUES ('late-item', ?, 'food', 100, '2024-05-01T00:00:00Z', '2024-05-01T00:00:00Z')`, e.ID); err == nil {
		t.Error("raw INSERT of a budget item after submit succeeded, want trigger failure")
	}
	d, err := st.GetEventDetail(ctx, admin, e.ID)
	if err != nil {
		t.Fatalf("GetEventDetail() error = %v", err)
	}
	if len(d.BudgetItems) != 1 || !d.BudgetItems[0].ProjectedAmount.Equal(amt("120000")) {
		t.Errorf("budget items = %+v, want the original venue line", d.BudgetItems)
	}
}

func TestEventLineEditing(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	f := mustFund(t, st, "General", "")

	e := newEvent(t, st, director, f.ID)
	item, err := st.AddBudgetItem(ctx, director, e.ID, ledger.BudgetItemInput{Category: "food", ProjectedAmount: amt("30000")})
	if err != nil {
		t.Fatalf("AddBudgetItem() error = %v", err)
	}
	item, err = st.UpdateBudgetItem(ctx, admin, e.ID, item.ID, ledger.BudgetItemInput{Category: "food", ProjectedAmount: amt("35000")})
	if err != nil {
		t.Fatalf("UpdateBudgetItem() by admin error = %v", err)
	}
	if !item.ProjectedAmount.Equal(amt("35000")) {
		t.Errorf("projected = %s, want 35000", item.ProjectedAmount)
	}
	st.AddActual(ctx, director, e.ID, ledger.ActualInput{LineType: ledger.LineExpense, Description: "Catering", Amount: amt("40000")})

	name := "Youth conference 2024"
	if _, err := st.UpdateEvent(ctx, director, e.ID, ledger.EventUpdate{Name: &name}); err != nil {
		t.Fatalf("UpdateEvent() error = %v", err)
	}

	d, err := st.GetEventDetail(ctx, director, e.ID)
	if err != nil {
		t.Fatalf("GetEventDetail() error = %v", err)
	}
	if d.Event.Name != name {
		t.Errorf("name = %q, want %q", d.Event.Name, name)
	}
	if !d.Totals.Projected.Equal(amt("155000")) || !d.Totals.Expense.Equal(amt("40000")) {
		t.Errorf("totals = %+v, want projected 155000 expense 40000", d.Totals)
	}
	if !d.Totals.Variance.Equal(amt("115000")) {
		t.Errorf("variance = %s, want 115000", d.Totals.Variance)
	}

	if err := st.DeleteBudgetItem(ctx, director, e.ID, item.ID); err != nil {
		t.Fatalf("DeleteBudgetItem() error = %v", err)
	}
	err = st.DeleteBudgetItem(ctx, director, e.ID, item.ID)
	if !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("second DeleteBudgetItem() error = %v, want not found", err)
	}
}

func TestListEventsChurchScope(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	f := mustFund(t, st, "General", "")
	c1 := mustChurch(t, st, "Iglesia Central")
	c2 := mustChurch(t, st, "Iglesia Norte")

	pastor1 := ledger.Actor{ID: "p-1", Role: ledger.RolePastor, ChurchID: &c1.ID}
	pastor2 := ledger.Actor{ID: "p-2", Role: ledger.RolePastor, ChurchID: &c2.ID}

	for _, p := range []ledger.Actor{pastor1, pastor2} {
		if _, err := st.CreateEvent(ctx, p, ledger.EventInput{
			FundID: f.ID, ChurchID: p.ChurchID, Name: "Retreat", EventDate: "2024-07-01",
		}); err != nil {
			t.Fatalf("CreateEvent() for %s error = %v", p, err)
		}
	}
	_, err := st.CreateEvent(ctx, pastor1, ledger.EventInput{FundID: f.ID, ChurchID: &c2.ID, Name: "X", EventDate: "2024-07-01"})
	if !errors.Is(err, ledger.ErrForbidden) {
		t.Errorf("CreateEvent() for another church error = %v, want forbidden", err)
	}

	list, err := st.ListEvents(ctx, pastor1, EventFilter{})
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	if len(list) != 1 || *list[0].ChurchID != c1.ID {
		t.Errorf("pastor sees %d events, want only the one of church %d", len(list), c1.ID)
	}

	all, err := st.ListEvents(ctx, admin, EventFilter{})
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	if len(all) != 2 {
		t.Errorf("admin sees %d events, want 2", len(all))
	}
}

func TestActivityLog(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	f := mustFund(t, st, "General", "50")

	e := newEvent(t, st, director, f.ID)
	st.SubmitEvent(ctx, director, e.ID)
	st.ApproveEvent(ctx, approver, e.ID, "")

	log, err := st.ActivityLog(ctx, director, ActivityFilter{FundID: f.ID})
	if err != nil {
		t.Fatalf("ActivityLog() error = %v", err)
	}
	var postings, transitions int
	for _, a := range log {
		switch a.Kind {
		case ledger.ActivityPosting:
			postings++
		case ledger.ActivityTransition:
			transitions++
		}
	}
	if postings != 2 || transitions != 2 {
		t.Errorf("activity = %d postings, %d transitions, want 2 and 2", postings, transitions)
	}

	mine, _ := st.ActivityLog(ctx, director, ActivityFilter{ActorID: approver.ID})
	for _, a := range mine {
		if a.Actor != approver.ID {
			t.Errorf("activity by %s in approver filter", a.Actor)
		}
	}
}

func TestActivityLogChurchScope(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	f := mustFund(t, st, "General", "100")
	c1 := mustChurch(t, st, "Iglesia Central")
	c2 := mustChurch(t, st, "Iglesia Norte")
	pastor1 := ledger.Actor{ID: "p-1", Role: ledger.RolePastor, ChurchID: &c1.ID}
	pastor2 := ledger.Actor{ID: "p-2", Role: ledger.RolePastor, ChurchID: &c2.ID}

	var events []*ledger.FundEvent
	for _, p := range []ledger.Actor{pastor1, pastor2} {
		e, err := st.CreateEvent(ctx, p, ledger.EventInput{
			FundID: f.ID, ChurchID: p.ChurchID, Name: "Retreat", EventDate: "2024-07-01",
			BudgetItems: []ledger.BudgetItemInput{{Category: "food", ProjectedAmount: amt("10")}},
		})
		if err != nil {
			t.Fatalf("CreateEvent() for %s error = %v", p, err)
		}
		if _, err := st.SubmitEvent(ctx, p, e.ID); err != nil {
			t.Fatalf("SubmitEvent() error = %v", err)
		}
		events = append(events, e)
	}
	if _, err := st.RejectEvent(ctx, approver, events[1].ID, ledger.RejectInput{Reason: "not this year"}); err != nil {
		t.Fatalf("RejectEvent() error = %v", err)
	}
	if _, err := st.Post(ctx, treasurer, ledger.PostRequest{FundID: f.ID, ChurchID: &c2.ID, AmountIn: amt("5"), Concept: "Norte offering"}); err != nil {
		t.Fatalf("Post() error = %v", err)
	}

	log, err := st.ActivityLog(ctx, pastor1, ActivityFilter{})
	if err != nil {
		t.Fatalf("ActivityLog() error = %v", err)
	}
	if len(log) != 1 {
		t.Errorf("pastor of church %d sees %d entries, want only its own submission", c1.ID, len(log))
	}
	for _, a := range log {
		if a.EventID == nil || *a.EventID != events[0].ID {
			t.Errorf("pastor of church %d sees %q", c1.ID, a.Summary)
		}
	}

	_, err = st.ActivityLog(ctx, pastor1, ActivityFilter{ChurchID: c2.ID})
	if !errors.Is(err, ledger.ErrForbidden) {
		t.Errorf("ActivityLog() for another church error = %v, want forbidden", err)
	}
	_, err = st.ListEventAudit(ctx, pastor1, events[1].ID)
	if !errors.Is(err, ledger.ErrForbidden) {
		t.Errorf("ListEventAudit() for another church error = %v, want forbidden", err)
	}

	all, err := st.ActivityLog(ctx, admin, ActivityFilter{ChurchID: c2.ID})
	if err != nil {
		t.Fatalf("ActivityLog() error = %v", err)
	}
	if len(all) != 3 {
		t.Errorf("admin sees %d church %d entries, want 3", len(all), c2.ID)
	}
}

// Two different events drawing on the same fund cannot together
// overdraw it, whatever order their approvals land in.
func TestConcurrentApprovalsOfDifferentEvents(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	f := mustFund(t, st, "General", "150")

	var ids []string
	for i := 0; i < 2; i++ {
		e := newEvent(t, st, director, f.ID)
		if _, err := st.AddActual(ctx, director, e.ID, ledger.ActualInput{LineType: ledger.LineExpense, Description: "Buses", Amount: amt("100")}); err != nil {
			t.Fatalf("AddActual() error = %v", err)
		}
		if _, err := st.SubmitEvent(ctx, director, e.ID); err != nil {
			t.Fatalf("SubmitEvent() error = %v", err)
		}
		ids = append(ids, e.ID)
	}

	errs := make([]error, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, _, errs[i] = st.ApproveEvent(ctx, approver, id, "")
		}(i, id)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case !errors.Is(err, ledger.ErrInsufficientFunds):
			t.Errorf("ApproveEvent() error = %v, want insufficient funds", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("%d approvals succeeded, want 1", succeeded)
	}
	assertBalance(t, st, f.ID, "50")
	assertReconciled(t, st, f.ID)

	for i, id := range ids {
		want := ledger.StatusSubmitted
		if errs[i] == nil {
			want = ledger.StatusApproved
		}
		if got := eventStatus(t, st, id); got != want {
			t.Errorf("event %d status = %s, want %s", i, got, want)
		}
	}
}

// A fixed-seed walk of postings, transfers and event approvals. After
// every step each fund must match the expected balance, stay
// non-negative and reconcile with its transactions.
func TestRandomLedgerSequenceStaysReconciled(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	r := rand.New(rand.NewSource(20240518))

	funds := []*ledger.Fund{
		mustFund(t, st, "General", "500"),
		mustFund(t, st, "Misiones", "200"),
		mustFund(t, st, "Jovenes", ""),
	}
	want := map[int64]decimal.Decimal{
		funds[0].ID: amt("500"),
		funds[1].ID: amt("200"),
		funds[2].ID: decimal.Zero,
	}
	randomAmount := func() decimal.Decimal {
		return decimal.New(int64(r.Intn(40000)+1), -ledger.MinorExponent)
	}

	for step := 0; step < 200; step++ {
		f := funds[r.Intn(len(funds))]
		amount := randomAmount()
		var err error

		switch r.Intn(4) {
		case 0:
			_, err = st.Post(ctx, treasurer, ledger.PostRequest{FundID: f.ID, AmountIn: amount, Concept: "Offering"})
			if err == nil {
				want[f.ID] = want[f.ID].Add(amount)
			}
		case 1:
			_, err = st.Post(ctx, treasurer, ledger.PostRequest{FundID: f.ID, AmountOut: amount, Concept: "Expense"})
			if err == nil {
				want[f.ID] = want[f.ID].Sub(amount)
			}
		case 2:
			dst := funds[(r.Intn(len(funds)-1)+1+indexOf(funds, f))%len(funds)]
			_, err = st.Transfer(ctx, treasurer, ledger.TransferRequest{
				SourceFundID: f.ID, DestinationFundID: dst.ID, Amount: amount, Description: "Rebalance",
			})
			if err == nil {
				want[f.ID] = want[f.ID].Sub(amount)
				want[dst.ID] = want[dst.ID].Add(amount)
			}
		case 3:
			income := randomAmount()
			e := newEvent(t, st, director, f.ID)
			for _, line := range []ledger.ActualInput{
				{LineType: ledger.LineIncome, Description: "Tickets", Amount: income},
				{LineType: ledger.LineExpense, Description: "Buses", Amount: amount},
			} {
				if _, err := st.AddActual(ctx, director, e.ID, line); err != nil {
					t.Fatalf("step %d: AddActual() error = %v", step, err)
				}
			}
			if _, err := st.SubmitEvent(ctx, director, e.ID); err != nil {
				t.Fatalf("step %d: SubmitEvent() error = %v", step, err)
			}
			_, _, err = st.ApproveEvent(ctx, approver, e.ID, "")
			if err == nil {
				want[f.ID] = want[f.ID].Add(income).Sub(amount)
			}
		}
		if err != nil && !errors.Is(err, ledger.ErrInsufficientFunds) {
			t.Fatalf("step %d: unexpected error = %v", step, err)
		}

		for _, fund := range funds {
			got := balanceOf(t, st, fund.ID)
			if got.IsNegative() {
				t.Fatalf("step %d: fund %d balance %s is negative", step, fund.ID, got)
			}
			if !got.Equal(want[fund.ID]) {
				t.Fatalf("step %d: fund %d balance = %s, want %s", step, fund.ID, got, want[fund.ID])
			}
			assertReconciled(t, st, fund.ID)
		}
	}
}

func indexOf(funds []*ledger.Fund, f *ledger.Fund) int {
	for i, g := range funds {
		if g.ID == f.ID {
			return i
		}
	}
	return -1
}
